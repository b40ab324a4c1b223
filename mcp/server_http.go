package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tmaxmax/go-sse"
	"golang.org/x/sync/errgroup"

	"github.com/caradhras-io/commerce-mcp-gateway/observability"
)

// Transport headers of the streamable HTTP binding.
const (
	HeaderSessionID       = "Mcp-Session-Id"
	HeaderProtocolVersion = "MCP-Protocol-Version"
	HeaderRequestID       = "X-Request-Id"
)

const (
	contentTypeJSON        = "application/json"
	contentTypeEventStream = "text/event-stream"

	defaultEndpointPath = "/mcp"
	maxRequestBody      = 4 << 20
)

// HTTPServerOption configures an HTTPServer.
type HTTPServerOption func(*HTTPServer)

// WithEndpointPath overrides the single endpoint path, default /mcp.
func WithEndpointPath(path string) HTTPServerOption {
	return func(s *HTTPServer) {
		s.path = path
	}
}

// WithHTTPLogger sets the server's logger.
func WithHTTPLogger(logger observability.Logger) HTTPServerOption {
	return func(s *HTTPServer) {
		s.logger = logger
	}
}

// HTTPServer is the streamable HTTP transport: one endpoint path, JSON-RPC
// 2.0 envelopes over POST, with the response mode negotiated between buffered
// JSON and a single-event SSE stream via the Accept header.
type HTTPServer struct {
	dispatcher *Dispatcher
	store      *SessionStore
	addr       string
	path       string
	logger     observability.Logger

	httpServer *http.Server
}

// NewHTTPServer creates the transport bound to addr. The store is consulted
// only for DELETE-based session close; everything else goes through the
// dispatcher.
func NewHTTPServer(addr string, dispatcher *Dispatcher, store *SessionStore, opts ...HTTPServerOption) *HTTPServer {
	s := &HTTPServer{
		dispatcher: dispatcher,
		store:      store,
		addr:       addr,
		path:       defaultEndpointPath,
		logger:     observability.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the http.Handler serving the gateway endpoint plus the
// liveness probe.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.path, http.HandlerFunc(s.serveEndpoint))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeJSON)
		fmt.Fprint(w, `{"message":"true"}`)
	})
	return mux
}

// Run serves until ctx is cancelled, then drains with a graceful shutdown.
// The session store's reaper is stopped on the way out.
func (s *HTTPServer) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.WithFields(map[string]interface{}{"addr": s.addr, "path": s.path}).Info("gateway listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("listen on %s: %w", s.addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.store.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *HTTPServer) serveEndpoint(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+HeaderSessionID+", "+HeaderProtocolVersion)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		s.serveClose(w, r)
	case http.MethodPost:
		s.servePost(w, r)
	default:
		w.Header().Set("Allow", "POST, DELETE, OPTIONS")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// serveClose handles explicit session termination.
func (s *HTTPServer) serveClose(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(HeaderSessionID)
	if id == "" {
		http.Error(w, "DELETE requires a "+HeaderSessionID+" header", http.StatusBadRequest)
		return
	}
	s.store.Close(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) servePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	meta := RequestMeta{
		SessionID:       r.Header.Get(HeaderSessionID),
		ProtocolVersion: r.Header.Get(HeaderProtocolVersion),
		BearerToken:     bearerToken(r),
		RequestID:       r.Header.Get(HeaderRequestID),
	}

	outcome := s.dispatcher.Dispatch(r.Context(), meta, body)

	// Notifications are acknowledged with no body.
	if outcome.Response == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if outcome.OpenedSessionID != "" {
		w.Header().Set(HeaderSessionID, outcome.OpenedSessionID)
	}

	if acceptsEventStream(r) {
		s.writeEventStream(w, r, outcome.Response)
		return
	}
	s.writeJSON(w, outcome.Response)
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, resp *Response) {
	w.Header().Set("Content-Type", contentTypeJSON)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.WithErr(err).Error("failed to write response")
	}
}

// writeEventStream answers with a single `message` event on an SSE stream,
// the streamed flavour of the streamable HTTP binding.
func (s *HTTPServer) writeEventStream(w http.ResponseWriter, r *http.Request, resp *Response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		s.logger.WithErr(err).Error("failed to marshal response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	sess, err := sse.Upgrade(w, r)
	if err != nil {
		s.logger.WithErr(err).Error("failed to upgrade to event stream")
		http.Error(w, "failed to open event stream", http.StatusInternalServerError)
		return
	}

	msg := &sse.Message{Type: sse.Type("message")}
	msg.AppendData(string(payload))
	if err := sess.Send(msg); err != nil {
		s.logger.WithErr(err).Error("failed to send event")
		return
	}
	if err := sess.Flush(); err != nil {
		s.logger.WithErr(err).Error("failed to flush event stream")
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

func acceptsEventStream(r *http.Request) bool {
	for _, header := range r.Header.Values("Accept") {
		for _, part := range strings.Split(header, ",") {
			mediaType := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
			if mediaType == contentTypeEventStream {
				return true
			}
		}
	}
	return false
}
