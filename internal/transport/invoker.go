// Package transport executes built requests against the remote endpoint.
//
// The Invoker makes exactly one attempt per request. Every HTTP status,
// including 4xx and 5xx, is returned as a normal *Response; only a request
// that obtained no response at all (refused connection, timeout, truncated
// or malformed response) yields an error, always of type *Error.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/sebo/internal/envelope"
)

// DefaultTimeout bounds a single request when no other timeout is configured.
const DefaultTimeout = 30 * time.Second

const tracerName = "github.com/roach88/sebo/internal/transport"

// Response is a transport-level response.
type Response struct {
	StatusCode int
	Body       string
	Header     http.Header
	Duration   time.Duration
}

// Invoker is an HTTP client bound to one owned connection pool.
type Invoker struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithHTTPClient replaces the underlying client. The invoker works on a
// copy, so the caller's client is never modified; Close still closes idle
// connections on the shared transport. A nil client is ignored.
func WithHTTPClient(c *http.Client) Option {
	return func(i *Invoker) {
		if c != nil {
			clone := *c
			i.client = &clone
		}
	}
}

// WithTimeout sets the per-request timeout. Zero or negative keeps the
// client's own timeout, or DefaultTimeout when it has none.
func WithTimeout(d time.Duration) Option {
	return func(i *Invoker) {
		if d > 0 {
			i.timeout = d
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(i *Invoker) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithTracer sets the tracer used for client spans.
// Defaults to the global otel tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(i *Invoker) {
		if t != nil {
			i.tracer = t
		}
	}
}

// New creates an Invoker with its own connection pool.
// Redirects are never followed: a 3xx is returned like any other status.
func New(opts ...Option) *Invoker {
	i := &Invoker{
		client: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.timeout > 0 {
		i.client.Timeout = i.timeout
	} else if i.client.Timeout <= 0 {
		i.client.Timeout = DefaultTimeout
	}
	i.client.CheckRedirect = noRedirect
	return i
}

func noRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// Close releases idle connections held by the invoker.
func (i *Invoker) Close() {
	i.client.CloseIdleConnections()
}

// Do executes req once and returns the response, whatever its status.
// Failure to obtain a response returns a *Error.
func (i *Invoker) Do(ctx context.Context, req envelope.Request) (*Response, error) {
	ctx, span := i.tracer.Start(ctx, "HTTP "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL),
		),
	)
	defer span.End()

	var body io.Reader
	if req.HasBody() {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, i.fail(span, req, fmt.Errorf("failed to create request: %w", err))
	}
	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}

	i.logger.Debug("sending request", "method", req.Method, "url", req.URL, "body_bytes", len(req.Body))

	start := time.Now()
	resp, err := i.client.Do(httpReq)
	if err != nil {
		return nil, i.fail(span, req, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, i.fail(span, req, fmt.Errorf("failed to read response body: %w", err))
	}
	elapsed := time.Since(start)

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= 500 {
		span.SetStatus(codes.Error, resp.Status)
	}

	i.logger.Debug("received response",
		"method", req.Method,
		"url", req.URL,
		"status", resp.StatusCode,
		"body_bytes", len(respBody),
		"duration", elapsed,
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
		Header:     resp.Header,
		Duration:   elapsed,
	}, nil
}

func (i *Invoker) fail(span trace.Span, req envelope.Request, err error) *Error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	i.logger.Debug("request failed", "method", req.Method, "url", req.URL, "error", err)
	return &Error{Method: req.Method, URL: req.URL, Err: err}
}

// Error reports that no response was obtained for a request.
type Error struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request failed because a deadline expired.
func (e *Error) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(e.Err, &te) && te.Timeout()
}

// IsTransportError returns true if err is or wraps a *Error.
func IsTransportError(err error) bool {
	var te *Error
	return errors.As(err, &te)
}
