package adapter

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/dronpoint-adapter/internal/config"
	"github.com/oshokin/dronpoint-adapter/internal/domain/event"
	"github.com/oshokin/dronpoint-adapter/internal/service/origin"
	"github.com/oshokin/dronpoint-adapter/internal/service/subscriber"
)

const (
	testUser     = "operator"
	testPassword = "secret"
)

// hostPort splits a test server URL.
func hostPort(t *testing.T, rawURL string) (string, string, int) {
	t.Helper()

	u, err := url.Parse(rawURL)
	require.NoError(t, err)

	host, portText, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)

	port, err := strconv.Atoi(portText)
	require.NoError(t, err)

	return u.Scheme, host, port
}

// writeConfig saves adapter settings for the two test servers and returns the path.
func writeConfig(t *testing.T, drServer, sinkServer *httptest.Server, password, healthAddress string) string {
	t.Helper()

	originScheme, originHost, originPort := hostPort(t, drServer.URL)
	sinkScheme, sinkHost, sinkPort := hostPort(t, sinkServer.URL)

	cfg := &config.Config{
		Origin: config.Origin{
			Scheme:   originScheme,
			Host:     originHost,
			Port:     originPort,
			Username: testUser,
			Password: password,
			Timeout:  2 * time.Second,
		},
		Sink: config.Sink{
			Kind:    config.SinkKindHTTP,
			Scheme:  sinkScheme,
			Host:    sinkHost,
			Port:    sinkPort,
			Timeout: time.Second,
		},
		TargetClasses: config.Classes{event.ClassHumanStep},
		HealthAddress: healthAddress,
	}

	path := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(path, cfg))

	return path
}

// newDRServer emulates the DR server. stream writes the subscription body.
func newDRServer(t *testing.T, stream func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != testUser || pass != testPassword {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		if r.URL.Path == "/dunai/"+origin.SubscribePath {
			stream(w, r)
			return
		}

		_, _ = io.WriteString(w, "DR server")
	}))
	t.Cleanup(srv.Close)

	return srv
}

// newSink records notification queries.
func newSink(t *testing.T) (*httptest.Server, <-chan url.Values) {
	t.Helper()

	queries := make(chan url.Values, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.Query()

		_, _ = io.WriteString(w, "ok")
	}))
	t.Cleanup(srv.Close)

	return srv, queries
}

func TestRun_StreamClosedByServer(t *testing.T) {
	t.Parallel()

	const body = `{"events":[{"id":7,"event_class":2,"category":2,"latitude":55.5,"longitude":37.25}]}` +
		`{"events":[{"id":7,"event_class":2,"category":2}]}` +
		`{}` +
		`{"events":[{"id":7,"event_class":2,"category":2,"end_time":1000}]}` +
		`{"events":[{"id":3,"event_class":99,"category":2}]}` +
		`{"events":[{"id":8,"event_class":16,"category":2},{"id":9,"event_class":2,"category":1}]}`

	drServer := newDRServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, body)
	})
	sinkServer, queries := newSink(t)

	err := Run(context.Background(), &Options{
		ConfigPath: writeConfig(t, drServer, sinkServer, testPassword, ""),
	})
	require.ErrorIs(t, err, subscriber.ErrStreamClosed)

	require.Len(t, queries, 1)

	q := <-queries
	require.Equal(t, "2", q.Get("class"))
	require.Equal(t, "55.5", q.Get("lat"))
	require.Equal(t, "37.25", q.Get("lon"))
}

func TestRun_Interrupted(t *testing.T) {
	t.Parallel()

	drServer := newDRServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"events":[{"id":1,"event_class":2,"category":2}]}{`)
		w.(http.Flusher).Flush()

		<-r.Context().Done()
	})
	sinkServer, queries := newSink(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, &Options{
			ConfigPath:    writeConfig(t, drServer, sinkServer, testPassword, ""),
			LogLevel:      "debug",
			HealthAddress: "127.0.0.1:0",
		})
	}()

	select {
	case q := <-queries:
		require.Equal(t, "2", q.Get("class"))
	case <-time.After(5 * time.Second):
		require.FailNow(t, "no notification received")
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "adapter did not shut down")
	}
}

func TestRun_BadCredentials(t *testing.T) {
	t.Parallel()

	drServer := newDRServer(t, func(http.ResponseWriter, *http.Request) {})
	sinkServer, queries := newSink(t)

	err := Run(context.Background(), &Options{
		ConfigPath: writeConfig(t, drServer, sinkServer, "wrong", ""),
	})
	require.ErrorIs(t, err, origin.ErrAuth)
	require.Empty(t, queries)
}

func TestRun_MissingConfig(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
	})
	require.Error(t, err)
}

func TestRun_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	drServer := newDRServer(t, func(http.ResponseWriter, *http.Request) {})
	sinkServer, _ := newSink(t)

	err := Run(context.Background(), &Options{
		ConfigPath: writeConfig(t, drServer, sinkServer, testPassword, ""),
		LogLevel:   "loud",
	})
	require.ErrorIs(t, err, config.ErrInvalid)
}
