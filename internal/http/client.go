package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/clientable/internal/constants"
	"github.com/fivetwenty-io/clientable/pkg/clientable"
)

// Request is a single call relative to a service base URI.
type Request struct {
	Method string
	// URI is relative to the base URI and may carry a query string.
	URI string
	// Body is encoded as JSON when Raw is nil.
	Body interface{}
	// Raw is sent verbatim. Used for file uploads.
	Raw io.Reader
}

// Response is the raw result of a call that reached the service.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Options are the per-request settings.
type Options struct {
	BaseURI        string
	Headers        map[string]string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Timeout        time.Duration
	// Debug logs the request and response for this call.
	Debug bool
}

// RequestError means the request failed before any response was received,
// for example because it could not be built.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed: %v", e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ConnectError means the service could not be reached: refused connection,
// DNS or TLS failure, timeout or cancellation.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connection failed: %v", e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Client sends one request per call with no retries.
type Client struct {
	logger    clientable.Logger
	debug     bool
	userAgent string

	mu         sync.Mutex
	transports map[transportKey]*http.Transport
}

type transportKey struct {
	connect time.Duration
	read    time.Duration
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger clientable.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent sets the fallback User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// NewClient creates a new HTTP client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		userAgent:  constants.DefaultUserAgent,
		transports: make(map[transportKey]*http.Transport),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// EnsureTrailingSlash appends "/" to uri unless it already ends with one.
// Without it, resolving a relative URI drops the last path segment of the base.
func EnsureTrailingSlash(uri string) string {
	if strings.HasSuffix(uri, "/") {
		return uri
	}

	return uri + "/"
}

// ResolveURI resolves uri against base after normalizing the base.
func ResolveURI(base, uri string) (string, error) {
	baseURL, err := url.Parse(EnsureTrailingSlash(base))
	if err != nil {
		return "", fmt.Errorf("parsing base URI: %w", err)
	}

	ref, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parsing request URI: %w", err)
	}

	return baseURL.ResolveReference(ref).String(), nil
}

// Send performs the request. Any HTTP status is a response; the error is a
// *RequestError, a *ConnectError or, for anything unforeseen, the raw error.
func (c *Client) Send(ctx context.Context, req *Request, opts Options) (*Response, error) {
	target, err := ResolveURI(opts.BaseURI, req.URI)
	if err != nil {
		return nil, &RequestError{Err: err}
	}

	body, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, &RequestError{Err: err}
	}

	for key, value := range opts.Headers {
		httpReq.Header.Set(key, value)
	}

	if httpReq.Header.Get(constants.HeaderUserAgent) == "" && c.userAgent != "" {
		httpReq.Header.Set(constants.HeaderUserAgent, c.userAgent)
	}

	if httpReq.Header.Get(constants.HeaderRequestID) == "" {
		httpReq.Header.Set(constants.HeaderRequestID, uuid.NewString())
	}

	debug := c.debug || opts.Debug

	if debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method":     req.Method,
			"url":        target,
			"request_id": httpReq.Header.Get(constants.HeaderRequestID),
			"headers":    redactHeaders(httpReq.Header),
		})
	}

	start := time.Now()

	resp, err := c.httpClient(opts).Do(httpReq)
	if err != nil {
		return nil, classifyError(ctx, err)
	}

	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectError{Err: fmt.Errorf("reading response body: %w", err)}
	}

	if debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"status":   resp.StatusCode,
			"duration": time.Since(start).String(),
			"size":     len(respBody),
		})
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}

func encodeBody(req *Request) (interface{}, error) {
	if req.Raw != nil {
		return req.Raw, nil
	}

	if req.Body == nil {
		return nil, nil
	}

	data, err := json.Marshal(req.Body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	return bytes.NewReader(data), nil
}

// httpClient returns a single-attempt client honouring the request timeouts.
func (c *Client) httpClient(opts Options) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil
	client.CheckRetry = func(context.Context, *http.Response, error) (bool, error) {
		return false, nil
	}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.HTTPClient = &http.Client{
		Transport: c.transport(opts.ConnectTimeout, opts.ReadTimeout),
		Timeout:   opts.Timeout,
	}

	return client
}

// CloseIdleConnections closes idle connections on every cached transport.
func (c *Client) CloseIdleConnections() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, transport := range c.transports {
		transport.CloseIdleConnections()
	}
}

func (c *Client) transport(connect, read time.Duration) *http.Transport {
	key := transportKey{connect: connect, read: read}

	c.mu.Lock()
	defer c.mu.Unlock()

	if transport, ok := c.transports[key]; ok {
		return transport
	}

	dialer := &net.Dialer{Timeout: connect}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = connect
	transport.ResponseHeaderTimeout = read

	c.transports[key] = transport

	return transport
}

func classifyError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ConnectError{Err: err}
	}

	// *url.Error itself satisfies net.Error, so inspect what it wraps.
	cause := err

	urlErr := &url.Error{}
	isURLErr := errors.As(err, &urlErr)
	if isURLErr {
		cause = urlErr.Err
	}

	var (
		netErr       net.Error
		unknownCA    x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidCert  x509.CertificateInvalidError
		verifyErr    *tls.CertificateVerificationError
		recordHdrErr tls.RecordHeaderError
	)

	switch {
	case errors.As(cause, &netErr),
		errors.As(cause, &unknownCA),
		errors.As(cause, &hostnameErr),
		errors.As(cause, &invalidCert),
		errors.As(cause, &verifyErr),
		errors.As(cause, &recordHdrErr):
		return &ConnectError{Err: err}
	case isURLErr:
		return &RequestError{Err: err}
	default:
		return err
	}
}

func redactHeaders(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for key := range header {
		if strings.EqualFold(key, constants.HeaderAuthorization) {
			out[key] = "[REDACTED]"

			continue
		}

		out[key] = header.Get(key)
	}

	return out
}
