package notifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/oshokin/dronpoint-adapter/internal/config"
	"github.com/oshokin/dronpoint-adapter/internal/domain/event"
	"github.com/oshokin/dronpoint-adapter/internal/logger"
	"github.com/oshokin/dronpoint-adapter/internal/version"
)

// NotificationPath is the alarm endpoint of the HTTP sink.
const NotificationPath = "alarm_notification/"

// Query parameters of the notification request.
const (
	ParamClass     = "class"
	ParamLatitude  = "lat"
	ParamLongitude = "lon"
)

// HTTP notifies the sink with a GET request per alarm.
type HTTP struct {
	// endpoint is the full notification URL without query.
	endpoint *url.URL
	// http performs the requests.
	http *http.Client
	// timeout bounds one notification.
	timeout time.Duration
}

// NewHTTP builds an HTTP notifier for settings.
func NewHTTP(settings *config.Sink) (*HTTP, error) {
	if settings == nil {
		return nil, errSinkRequired
	}

	base, err := url.Parse(settings.BaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse sink url: %w", err)
	}

	endpoint, err := base.Parse(NotificationPath)
	if err != nil {
		return nil, fmt.Errorf("resolve notification path: %w", err)
	}

	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = config.DefaultSinkTimeout
	}

	return &HTTP{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		timeout:  timeout,
	}, nil
}

// Notify sends class and coordinates of e. Absent coordinates are omitted.
func (h *HTTP) Notify(ctx context.Context, e *event.Event) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	target := *h.endpoint
	target.RawQuery = notificationQuery(e).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("create notification request: %w", err)
	}

	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := h.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSinkUnreachable, err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s", ErrSinkUnreachable, resp.Status)
	}

	logger.DebugKV(ctx, "Notification sent", "url", target.String(), "status", resp.StatusCode)

	return nil
}

// Close releases idle connections.
func (h *HTTP) Close() error {
	h.http.CloseIdleConnections()

	return nil
}

func notificationQuery(e *event.Event) url.Values {
	query := url.Values{}
	query.Set(ParamClass, strconv.Itoa(e.Class))

	if e.Latitude != nil {
		query.Set(ParamLatitude, formatCoordinate(*e.Latitude))
	}

	if e.Longitude != nil {
		query.Set(ParamLongitude, formatCoordinate(*e.Longitude))
	}

	return query
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
