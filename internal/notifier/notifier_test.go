package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/dronpoint-adapter/internal/config"
	"github.com/oshokin/dronpoint-adapter/internal/domain/event"
	"github.com/oshokin/dronpoint-adapter/internal/version"
)

func ptr[T any](v T) *T {
	return &v
}

// sinkSettings points an HTTP sink at srv.
func sinkSettings(t *testing.T, srv *httptest.Server, timeout time.Duration) *config.Sink {
	t.Helper()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	host, portText, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)

	port, err := strconv.Atoi(portText)
	require.NoError(t, err)

	return &config.Sink{
		Kind:    config.SinkKindHTTP,
		Scheme:  u.Scheme,
		Host:    host,
		Port:    port,
		Timeout: timeout,
	}
}

func TestHTTP_Notify(t *testing.T) {
	t.Parallel()

	queries := make(chan url.Values, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/"+NotificationPath, r.URL.Path)
		require.Equal(t, version.UserAgent(), r.UserAgent())
		queries <- r.URL.Query()

		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	n, err := New(context.Background(), sinkSettings(t, srv, time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })

	err = n.Notify(context.Background(), &event.Event{
		ID:        7,
		Class:     event.ClassHumanStep,
		Latitude:  ptr(55.75),
		Longitude: ptr(37.6175),
	})
	require.NoError(t, err)

	q := <-queries
	require.Equal(t, "2", q.Get(ParamClass))
	require.Equal(t, "55.75", q.Get(ParamLatitude))
	require.Equal(t, "37.6175", q.Get(ParamLongitude))

	// Absent coordinates are left out.
	require.NoError(t, n.Notify(context.Background(), &event.Event{ID: 8, Class: event.ClassShooting}))

	q = <-queries
	require.Equal(t, "16", q.Get(ParamClass))
	require.False(t, q.Has(ParamLatitude))
	require.False(t, q.Has(ParamLongitude))
}

func TestHTTP_NotifyRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	n, err := NewHTTP(sinkSettings(t, srv, time.Second))
	require.NoError(t, err)

	err = n.Notify(context.Background(), &event.Event{ID: 1, Class: event.ClassHumanDigg})
	require.ErrorIs(t, err, ErrSinkUnreachable)
}

func TestHTTP_NotifyUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	settings := sinkSettings(t, srv, time.Second)
	srv.Close()

	n, err := NewHTTP(settings)
	require.NoError(t, err)

	err = n.Notify(context.Background(), &event.Event{ID: 1, Class: event.ClassHumanDigg})
	require.ErrorIs(t, err, ErrSinkUnreachable)
}

func TestHTTP_NotifyTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	n, err := NewHTTP(sinkSettings(t, srv, 50*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	err = n.Notify(context.Background(), &event.Event{ID: 1, Class: event.ClassHumanDigg})
	require.ErrorIs(t, err, ErrSinkUnreachable)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestNew_Invalid(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), nil)
	require.Error(t, err)

	_, err = New(context.Background(), &config.Sink{Kind: "carrier-pigeon"})
	require.ErrorIs(t, err, config.ErrInvalid)
}

// fakeToken is a completed or pending mqtt.Token.
type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(complete bool, err error) *fakeToken {
	token := &fakeToken{done: make(chan struct{}), err: err}
	if complete {
		close(token.done)
	}

	return token
}

func (f *fakeToken) Wait() bool {
	<-f.done

	return true
}

func (f *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-f.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (f *fakeToken) Done() <-chan struct{} {
	return f.done
}

func (f *fakeToken) Error() error {
	return f.err
}

// fakeMQTT records publishes and hands out a fixed token.
type fakeMQTT struct {
	mu           sync.Mutex
	topics       []string
	payloads     [][]byte
	token        mqtt.Token
	disconnected bool
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload any) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()

	if qos != qosAtMostOnce || retained {
		panic("unexpected publish flags")
	}

	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload.([]byte))

	return f.token
}

func (f *fakeMQTT) Disconnect(uint) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.disconnected = true
}

func TestMQTT_Notify(t *testing.T) {
	t.Parallel()

	client := &fakeMQTT{token: newFakeToken(true, nil)}
	n := newMQTT(client, "dronpoint/alarms", time.Second)

	err := n.Notify(context.Background(), &event.Event{
		ID:        42,
		Class:     event.ClassGate,
		Latitude:  ptr(1.5),
		StartTime: ptr(1000.0),
	})
	require.NoError(t, err)

	require.Equal(t, []string{"dronpoint/alarms"}, client.topics)

	var alarm Alarm
	require.NoError(t, json.Unmarshal(client.payloads[0], &alarm))
	require.Equal(t, int64(42), alarm.ID)
	require.Equal(t, event.ClassGate, alarm.Class)
	require.Equal(t, "gate", alarm.ClassName)
	require.Equal(t, ptr(1.5), alarm.Latitude)
	require.Nil(t, alarm.Longitude)

	require.NoError(t, n.Close())
	require.True(t, client.disconnected)
}

func TestMQTT_NotifyFailure(t *testing.T) {
	t.Parallel()

	brokerErr := errors.New("not connected")
	client := &fakeMQTT{token: newFakeToken(true, brokerErr)}
	n := newMQTT(client, "dronpoint/alarms", time.Second)

	err := n.Notify(context.Background(), &event.Event{ID: 1, Class: event.ClassGate})
	require.ErrorIs(t, err, ErrSinkUnreachable)
	require.ErrorIs(t, err, brokerErr)
}

func TestMQTT_NotifyTimeout(t *testing.T) {
	t.Parallel()

	client := &fakeMQTT{token: newFakeToken(false, nil)}
	n := newMQTT(client, "dronpoint/alarms", 20*time.Millisecond)

	err := n.Notify(context.Background(), &event.Event{ID: 1, Class: event.ClassGate})
	require.ErrorIs(t, err, ErrSinkUnreachable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
