package remote

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"
)

// DefaultTimeout is the per-request timeout used when none is configured.
const DefaultTimeout = 60 * time.Second

// retryBaseDelay is the first backoff interval of the retrying transport.
const retryBaseDelay = 500 * time.Millisecond

// TransportOptions configures the HTTP client used to talk to the wiki.
type TransportOptions struct {
	// Username and Password enable HTTP basic authentication when Username is set.
	Username string
	Password string

	// Headers are added to every request.
	Headers map[string]string

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// ProxyURL routes requests through an http, https or socks5 proxy.
	// An empty value honors the environment (HTTP_PROXY, HTTPS_PROXY, NO_PROXY).
	ProxyURL string

	// Timeout is the overall per-request timeout.
	Timeout time.Duration

	// RequestsPerSecond limits the request rate. Zero means unlimited.
	RequestsPerSecond float64

	// Retries is the number of additional attempts for transport failures,
	// 429 and 5xx responses. Zero disables retrying.
	Retries uint64
}

// NewHTTPClient builds an HTTP client for the wiki from opts.
//
// The transport chain is, outermost first: header injection, rate limiting,
// retrying, and finally the base transport with TLS and proxy settings.
// Redirects are followed by the client as usual; tiny-URL resolution
// disables that on its own copy.
func NewHTTPClient(opts TransportOptions) (*http.Client, error) {
	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: opts.InsecureSkipVerify, //nolint:gosec // opt-in for self-hosted wikis
			MinVersion:         tls.VersionTLS12,
		},
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	if opts.ProxyURL != "" {
		if err := configureProxy(base, opts.ProxyURL); err != nil {
			return nil, err
		}
	}

	var transport http.RoundTripper = base
	if opts.Retries > 0 {
		transport = &retryingTransport{base: transport, retries: opts.Retries, delay: retryBaseDelay}
	}
	if opts.RequestsPerSecond > 0 {
		transport = &rateLimitedTransport{
			base:    transport,
			limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		}
	}
	transport = &headerInjectingTransport{
		base:     transport,
		username: opts.Username,
		password: opts.Password,
		headers:  opts.Headers,
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// configureProxy applies an http(s) or socks5 proxy to the transport.
func configureProxy(t *http.Transport, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProxyURL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		t.Proxy = http.ProxyURL(u)
		return nil
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		t.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			t.DialContext = cd.DialContext
		} else {
			t.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidProxyURL, u.Scheme)
	}
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// credentials and custom headers into every request.
type headerInjectingTransport struct {
	base     http.RoundTripper
	username string
	password string
	headers  map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	clone := req.Clone(req.Context())

	if t.username != "" {
		clone.SetBasicAuth(t.username, t.password)
	}
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}
	if clone.Header.Get("Accept") == "" {
		clone.Header.Set("Accept", "application/json, */*")
	}

	return t.base.RoundTrip(clone)
}

// rateLimitedTransport waits for the limiter before every request.
type rateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

// RoundTrip implements http.RoundTripper.
func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// retryingTransport retries idempotent requests with exponential backoff.
// The last attempt's response is returned as is, so callers still see the
// final status code.
type retryingTransport struct {
	base    http.RoundTripper
	retries uint64
	delay   time.Duration
}

// RoundTrip implements http.RoundTripper.
func (t *retryingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return t.base.RoundTrip(req)
	}

	backoff := retry.WithMaxRetries(t.retries, retry.NewExponential(t.delay))

	var resp *http.Response
	var attempt uint64
	err := retry.Do(req.Context(), backoff, func(ctx context.Context) error {
		last := attempt == t.retries
		attempt++

		r, err := t.base.RoundTrip(req.Clone(ctx))
		if err != nil {
			if last {
				return err
			}
			return retry.RetryableError(err)
		}
		if !last && (r.StatusCode == http.StatusTooManyRequests || r.StatusCode >= http.StatusInternalServerError) {
			_, _ = io.Copy(io.Discard, r.Body)
			_ = r.Body.Close()
			return retry.RetryableError(fmt.Errorf("HTTP %d", r.StatusCode))
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
