package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/caradhras-io/commerce-mcp-gateway/observability"
)

// RequestMeta carries the transport-level facts about an inbound call: the
// session header, the declared protocol version and the credential material
// a CallContext is derived from.
type RequestMeta struct {
	SessionID       string
	ProtocolVersion string
	BearerToken     string
	RequestID       string
}

// Outcome is what the transport writes back. Response is nil exactly when the
// envelope was a notification. OpenedSessionID is set only by sessions/open
// so the transport can mirror the id into a response header.
type Outcome struct {
	Response        *Response
	OpenedSessionID string
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the dispatcher's logger.
func WithDispatcherLogger(logger observability.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithServerInfoResult overrides the payload served for server_info. Defaults
// to the handshake's ServerInfo.
func WithServerInfoResult(v interface{}) DispatcherOption {
	return func(d *Dispatcher) {
		d.serverInfo = v
	}
}

// Dispatcher parses JSON-RPC envelopes and routes them to the handshake, the
// tool registry or the introspection handlers. Every request is answered with
// exactly one response correlated by id; notifications are answered with
// none. All errors are recovered here; nothing escapes without a correlated
// response or a logged dropped notification.
type Dispatcher struct {
	store      *SessionStore
	tools      *ToolManager
	handshake  *Handshake
	serverInfo interface{}
	logger     observability.Logger
}

// NewDispatcher wires a dispatcher over the given store, registry and
// handshake.
func NewDispatcher(store *SessionStore, tools *ToolManager, handshake *Handshake, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:      store,
		tools:      tools,
		handshake:  handshake,
		serverInfo: handshake.serverInfo,
		logger:     observability.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch processes one raw envelope. Malformed envelopes are rejected
// before any session state is touched.
func (d *Dispatcher) Dispatch(ctx context.Context, meta RequestMeta, raw []byte) Outcome {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Outcome{Response: NewErrorResponse(nil, ErrParse(err))}
	}

	if req.JSONRPC != JSONRPCVersion {
		return Outcome{Response: NewErrorResponse(req.ID, ErrInvalidRequest("jsonrpc must be \"2.0\""))}
	}
	if req.Method == "" {
		return Outcome{Response: NewErrorResponse(req.ID, ErrInvalidRequest("method is required"))}
	}

	ctx, span := observability.StartSpan(ctx, "Dispatcher.Dispatch")
	span.SetAttributes(
		attribute.String("rpc.method", req.Method),
		attribute.String("mcp.session_id", meta.SessionID),
	)
	defer span.End()

	if req.IsNotification() {
		d.handleNotification(ctx, meta, &req)
		return Outcome{}
	}

	outcome := d.handleRequest(ctx, meta, &req)
	if resp := outcome.Response; resp != nil && resp.Error != nil {
		span.SetStatus(codes.Error, resp.Error.Message)
		span.SetAttributes(attribute.Int("rpc.jsonrpc.error_code", resp.Error.Code))
		d.logger.WithFields(map[string]interface{}{
			"method":    req.Method,
			"sessionID": meta.SessionID,
			"code":      resp.Error.Code,
		}).Warn(resp.Error.Message)
	}
	return outcome
}

func (d *Dispatcher) handleRequest(ctx context.Context, meta RequestMeta, req *Request) Outcome {
	if req.Method == MethodSessionsOpen {
		id := d.store.Open()
		d.logger.WithFields(map[string]interface{}{"sessionID": id}).Info("session opened")
		return Outcome{
			Response:        NewResponse(req.ID, map[string]string{"sessionId": id}),
			OpenedSessionID: id,
		}
	}

	// Every other method runs against a live session.
	if meta.SessionID == "" {
		return Outcome{Response: NewErrorResponse(req.ID, ErrSessionRequired())}
	}
	sess, gwErr := d.store.Get(meta.SessionID)
	if gwErr != nil {
		return Outcome{Response: NewErrorResponse(req.ID, gwErr)}
	}
	if !sess.allow() {
		return Outcome{Response: NewErrorResponse(req.ID, ErrTooManyRequests())}
	}

	var resp *Response
	switch req.Method {
	case MethodInitialize:
		result, err := d.handshake.Initialize(sess, req.Params)
		if err != nil {
			resp = NewErrorResponse(req.ID, err)
			break
		}
		d.logger.WithFields(map[string]interface{}{
			"sessionID":       sess.ID(),
			"protocolVersion": result.ProtocolVersion,
			"client":          sess.ClientInfo().Name,
		}).Info("session initialized")
		resp = NewResponse(req.ID, result)

	case MethodPing:
		resp = NewResponse(req.ID, map[string]interface{}{})

	case MethodServerInfo:
		resp = NewResponse(req.ID, d.serverInfo)

	case MethodToolsList:
		if sess.State() != SessionReady {
			resp = NewErrorResponse(req.ID, ErrSessionNotReady(sess.State()))
			break
		}
		resp = NewResponse(req.ID, d.tools.ListTools())

	case MethodToolsCall:
		resp = d.callTool(ctx, meta, sess, req)

	default:
		// Registered tools are also reachable directly by method name, with
		// the params acting as the arguments object.
		if _, ok := d.tools.Resolve(req.Method); ok {
			resp = d.callNamedTool(ctx, meta, sess, req, req.Method, req.Params)
			break
		}
		resp = NewErrorResponse(req.ID, ErrMethodNotFound(req.Method))
	}

	if resp != nil && resp.Error == nil {
		d.store.Touch(sess.ID())
	}
	return Outcome{Response: resp}
}

func (d *Dispatcher) callTool(ctx context.Context, meta RequestMeta, sess *Session, req *Request) *Response {
	var params CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return NewErrorResponse(req.ID, ErrInvalidParams(err))
	}
	return d.callNamedTool(ctx, meta, sess, req, params.Name, params.Arguments)
}

func (d *Dispatcher) callNamedTool(
	ctx context.Context,
	meta RequestMeta,
	sess *Session,
	req *Request,
	name string,
	args json.RawMessage,
) *Response {
	if sess.State() != SessionReady {
		return NewErrorResponse(req.ID, ErrSessionNotReady(sess.State()))
	}

	cc := NewCallContext(args, meta.BearerToken, meta.RequestID)

	ctx, span := observability.StartSpan(ctx, "Dispatcher.CallTool")
	span.SetAttributes(
		attribute.String("mcp.tool", name),
		attribute.String("request.id", cc.RequestID),
	)
	defer span.End()

	result, gwErr := d.tools.CallTool(ctx, CallToolParams{Name: name, Arguments: args}, cc)
	if gwErr != nil {
		span.SetStatus(codes.Error, gwErr.Message)
		// Backend failures still count as session activity.
		d.store.Touch(sess.ID())
		return NewErrorResponse(req.ID, gwErr)
	}
	span.SetAttributes(attribute.Bool("mcp.tool.is_error", result.IsError))
	return NewResponse(req.ID, result)
}

func (d *Dispatcher) handleNotification(ctx context.Context, meta RequestMeta, req *Request) {
	logger := d.logger.WithFields(map[string]interface{}{
		"method":    req.Method,
		"sessionID": meta.SessionID,
	})

	// Notifications never produce responses, so every failure path here ends
	// in a dropped-notification log entry.
	if req.Method != MethodNotificationsInitialized {
		if strings.HasPrefix(req.Method, "notifications/") {
			logger.Debug("unhandled notification dropped")
		} else {
			logger.Warn("notification for non-notification method dropped")
		}
		return
	}

	if meta.SessionID == "" {
		logger.Warn("notifications/initialized without session dropped")
		return
	}
	sess, gwErr := d.store.Get(meta.SessionID)
	if gwErr != nil {
		logger.Warn("notifications/initialized for unknown session dropped")
		return
	}

	_, span := observability.StartSpan(ctx, "Handshake.ConfirmInitialized")
	defer span.End()

	if !d.handshake.ConfirmInitialized(sess) {
		span.SetStatus(codes.Error, "out of order")
		logger.WithFields(map[string]interface{}{"state": sess.State().String()}).
			Warn("out-of-order notifications/initialized dropped")
		return
	}

	d.store.Touch(sess.ID())
	logger.Info("session ready")
}
