package receiver

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	domain "github.com/oshokin/dronpoint-adapter/internal/domain/alarm"
	"github.com/oshokin/dronpoint-adapter/internal/logger"
)

// Routes served by the receiver.
const (
	NotificationRoute = "/alarm_notification/"
	ListRoute         = "/alarm_list/"
)

// Validation messages.
const (
	MessageMissingParams   = "request must contain class, lat and lon variables"
	MessageMalformedParams = "lat and lon variables must be float, class is int"
)

// Repository abstracts the storage the transport layer depends on.
type Repository interface {
	Add(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context) ([]*domain.Notification, error)
}

// Server implements the receiver HTTP API.
type Server struct {
	// repository stores accepted notifications.
	repository Repository
	// now returns the receive time.
	now func() time.Time
}

// NewServer wires the repository into HTTP handlers.
func NewServer(repository Repository) *Server {
	return &Server{
		repository: repository,
		now:        time.Now,
	}
}

// Router returns the gin engine serving the receiver routes.
func (s *Server) Router(ctx context.Context) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(ctx))

	router.GET(NotificationRoute, s.Notify)
	router.GET(ListRoute, s.List)

	return router
}

// Notify accepts one alarm notification.
func (s *Server) Notify(c *gin.Context) {
	lat, lon, class, message := parseNotification(c)
	if message != "" {
		c.String(http.StatusBadRequest, message)
		return
	}

	n := domain.NewNotification(class, lat, lon, s.now().UTC())
	if err := s.repository.Add(c.Request.Context(), n); err != nil {
		logger.ErrorKV(c.Request.Context(), "Store notification failed", "error", err)
		c.String(http.StatusInternalServerError, "unable to store notification")

		return
	}

	c.String(http.StatusOK, "flight to %s %s", formatCoordinate(lat), formatCoordinate(lon))
}

// List returns all received notifications, oldest first.
func (s *Server) List(c *gin.Context) {
	notifications, err := s.repository.List(c.Request.Context())
	if err != nil {
		logger.ErrorKV(c.Request.Context(), "List notifications failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to list notifications"})

		return
	}

	c.JSON(http.StatusOK, notifications)
}

// parseNotification reads lat, lon and class in that order; the first
// missing or malformed value decides the message.
func parseNotification(c *gin.Context) (float64, float64, int, string) {
	var (
		coordinates [2]float64
		class       int
	)

	for i, key := range []string{"lat", "lon"} {
		raw, ok := c.GetQuery(key)
		if !ok {
			return 0, 0, 0, MessageMissingParams
		}

		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return 0, 0, 0, MessageMalformedParams
		}

		coordinates[i] = v
	}

	raw, ok := c.GetQuery("class")
	if !ok {
		return 0, 0, 0, MessageMissingParams
	}

	class, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, 0, 0, MessageMalformedParams
	}

	return coordinates[0], coordinates[1], class, ""
}

// formatCoordinate always keeps a fractional part, so 55 reads as 55.0.
func formatCoordinate(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}

	return s
}

// requestLogger logs each request through the context logger.
func requestLogger(ctx context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Request = c.Request.WithContext(logger.ToContext(c.Request.Context(), logger.FromContext(ctx)))
		c.Next()

		logger.InfoKV(ctx, "Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
