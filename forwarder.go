package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/caradhras-io/commerce-mcp-gateway/mcp"
	"github.com/caradhras-io/commerce-mcp-gateway/observability"
)

const defaultBackendTimeout = 15 * time.Second

// errNoCredential rejects a forwarded call before it leaves the gateway when
// the caller supplied no bearer token. It surfaces as a tool error result
// rather than a protocol error.
var errNoCredential = errors.New("no JWT provided, not authorized")

// Forwarder sends authenticated HTTP calls to one backend family. Every call
// carries the caller's bearer token and request id, and is bounded by the
// configured timeout independently of the surrounding request context.
type Forwarder struct {
	name    string
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  observability.Logger
}

// ForwarderOption configures a Forwarder.
type ForwarderOption func(*Forwarder)

// WithForwarderTimeout sets the per-call deadline.
func WithForwarderTimeout(d time.Duration) ForwarderOption {
	return func(f *Forwarder) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithForwarderLogger sets the logger used for backend call failures.
func WithForwarderLogger(l observability.Logger) ForwarderOption {
	return func(f *Forwarder) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithForwarderClient replaces the underlying HTTP client.
func WithForwarderClient(c *http.Client) ForwarderOption {
	return func(f *Forwarder) {
		if c != nil {
			f.client = c
		}
	}
}

// NewForwarder creates a forwarder for one backend family. The name appears
// in error messages so a client can tell which backend failed.
func NewForwarder(name, baseURL string, opts ...ForwarderOption) *Forwarder {
	f := &Forwarder{
		name:    name,
		baseURL: baseURL,
		client:  &http.Client{},
		timeout: defaultBackendTimeout,
		logger:  observability.NewDefaultLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get forwards a GET request to path.
func (f *Forwarder) Get(ctx context.Context, path string, cc mcp.CallContext) (json.RawMessage, error) {
	return f.invoke(ctx, http.MethodGet, path, nil, cc)
}

// Post forwards a POST request with a JSON payload to path.
func (f *Forwarder) Post(ctx context.Context, path string, payload interface{}, cc mcp.CallContext) (json.RawMessage, error) {
	return f.invoke(ctx, http.MethodPost, path, payload, cc)
}

// Put forwards a PUT request with a JSON payload to path.
func (f *Forwarder) Put(ctx context.Context, path string, payload interface{}, cc mcp.CallContext) (json.RawMessage, error) {
	return f.invoke(ctx, http.MethodPut, path, payload, cc)
}

func (f *Forwarder) invoke(ctx context.Context, method, path string, payload interface{}, cc mcp.CallContext) (json.RawMessage, error) {
	if cc.Token == "" {
		return nil, errNoCredential
	}

	ctx, span := observability.StartSpan(ctx, "Forwarder."+f.name)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("backend.path", path),
		attribute.String("request.id", cc.RequestID),
	)

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", f.name, err)
		}
		body = bytes.NewReader(encoded)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, f.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", f.name, err)
	}
	req.Header.Set("Authorization", "Bearer "+cc.Token)
	req.Header.Set(mcp.HeaderRequestID, cc.RequestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		mapped := f.mapTransportError(err)
		span.RecordError(mapped)
		span.SetStatus(codes.Error, mapped.Error())
		f.logger.WithFields(map[string]interface{}{
			"backend":    f.name,
			"method":     method,
			"path":       path,
			"request_id": cc.RequestID,
		}).WithErr(mapped).Error("backend call failed")
		return nil, mapped
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, mcp.ErrBackendUnavailable(f.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, mcp.ErrBackendRejected(f.name, resp.StatusCode)
	}
	return data, nil
}

func (f *Forwarder) mapTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return mcp.ErrBackendTimeout(f.name)
	}
	return mcp.ErrBackendUnavailable(f.name, err)
}
