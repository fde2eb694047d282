package origin

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/oshokin/dronpoint-adapter/internal/config"
	"github.com/oshokin/dronpoint-adapter/internal/logger"
	"github.com/oshokin/dronpoint-adapter/internal/version"
)

// SubscribePath is the events stream endpoint, relative to the API root.
const SubscribePath = "events/stream/subscribe"

const (
	idleConnTimeout = 90 * time.Second
	maxIdleConns    = 4
)

var (
	// ErrConnect is returned when the DR server cannot be reached at all.
	ErrConnect = errors.New("origin host unreachable")
	// ErrAuth is returned when the DR server rejects the credentials.
	ErrAuth = errors.New("origin rejected credentials")
	// ErrServer is returned for 5xx answers.
	ErrServer = errors.New("origin server error")
	// ErrUnexpectedStatus is returned for other non-successful answers.
	ErrUnexpectedStatus = errors.New("origin unexpected status")

	// errOriginRequired is returned when Dial gets no settings.
	errOriginRequired = errors.New("origin settings must be provided")
)

// Client talks to the DR server API.
type Client struct {
	// baseURL is the API root, e.g. https://host:5082/dunai/.
	baseURL *url.URL
	// username for HTTP basic authentication.
	username string
	// password for HTTP basic authentication.
	password string
	// http performs all requests; it has no overall timeout so that the
	// stream can stay open, call deadlines come from contexts.
	http *http.Client

	// callTimeout is the timeout for non-streaming requests.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout overrides the timeout for non-streaming requests.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithHTTPClient replaces the HTTP client, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// Dial builds a client and probes the server root with the credentials.
// It fails with ErrConnect when the server cannot be reached and with
// ErrAuth when the credentials are rejected.
func Dial(ctx context.Context, settings *config.Origin, opts ...Option) (*Client, error) {
	if settings == nil {
		return nil, errOriginRequired
	}

	base, err := url.Parse(settings.BaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse origin url: %w", err)
	}

	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = config.DefaultOriginTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			//nolint:gosec // The DR server uses a self-signed certificate unless verify_tls is set.
			InsecureSkipVerify: !settings.VerifyTLS,
		},
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          maxIdleConns,
		IdleConnTimeout:       idleConnTimeout,
	}

	client := &Client{
		baseURL:     base,
		username:    settings.Username,
		password:    settings.Password,
		http:        &http.Client{Transport: transport},
		callTimeout: timeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	if err = client.checkAuth(ctx); err != nil {
		client.Close()

		return nil, err
	}

	return client, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	if c == nil || c.http == nil {
		return
	}

	c.http.CloseIdleConnections()
}

// String implements fmt.Stringer.
func (c *Client) String() string {
	return "DR server API client at " + c.baseURL.Host
}

// Subscribe opens the events stream. The body stays open until the server
// closes it, ctx is canceled or the caller closes it.
func (c *Client) Subscribe(ctx context.Context) (io.ReadCloser, error) {
	resp, err := c.do(ctx, SubscribePath)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	logger.InfoKV(ctx, "Response for event subscribe", "status", resp.StatusCode)

	if err = checkStatus(resp); err != nil {
		_ = resp.Body.Close()

		return nil, fmt.Errorf("subscribe: %w", err)
	}

	return resp.Body, nil
}

// checkAuth requests the server root and maps a 401 to ErrAuth.
func (c *Client) checkAuth(ctx context.Context) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.do(callCtx, "/")
	if err != nil {
		return fmt.Errorf("check credentials: %w", err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("check credentials: %w", ErrAuth)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("check credentials: %w: %s", ErrServer, resp.Status)
	}

	return nil
}

// do sends an authenticated GET for a path relative to the API root.
func (c *Client) do(ctx context.Context, ref string) (*http.Response, error) {
	target, err := c.baseURL.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", ref, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("User-Agent", version.UserAgent())

	logger.DebugKV(ctx, "Origin request", "method", req.Method, "url", target.String())

	resp, err := c.http.Do(req)
	if err != nil {
		// A deadline means the host did not answer in time, which is still unreachable.
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}

		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	return resp, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrAuth
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", ErrServer, resp.Status)
	case resp.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	default:
		return nil
	}
}
