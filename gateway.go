package gateway

import (
	"context"

	"github.com/caradhras-io/commerce-mcp-gateway/mcp"
	"github.com/caradhras-io/commerce-mcp-gateway/observability"
)

// Gateway bundles the session store, tool registry, dispatcher and HTTP
// transport of one running gateway instance.
type Gateway struct {
	Store      *mcp.SessionStore
	Tools      *mcp.ToolManager
	Dispatcher *mcp.Dispatcher
	Server     *mcp.HTTPServer
}

// New assembles a gateway from cfg. The returned Gateway owns its session
// store; Run stops it on shutdown.
func New(cfg Config, logger observability.Logger) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = observability.NewDefaultLogger()
	}

	storeOpts := []mcp.SessionStoreOption{mcp.WithSessionLogger(logger)}
	if cfg.SessionRequestsPerSecond > 0 {
		storeOpts = append(storeOpts,
			mcp.WithSessionRateLimit(cfg.SessionRequestsPerSecond, cfg.SessionRequestBurst))
	}
	store := mcp.NewSessionStore(cfg.SessionTimeout, storeOpts...)

	inventory := NewForwarder("inventory", cfg.InventoryURL,
		WithForwarderTimeout(cfg.BackendTimeout),
		WithForwarderLogger(logger))
	orders := NewForwarder("order", cfg.OrderURL,
		WithForwarderTimeout(cfg.BackendTimeout),
		WithForwarderLogger(logger))

	info := NewInfo(cfg)
	toolSet := []mcp.Tool{PingTool(), InfoTool(info)}
	toolSet = append(toolSet, InventoryTools(inventory)...)
	toolSet = append(toolSet, OrderTools(orders)...)

	tools, err := mcp.NewToolManager(toolSet...)
	if err != nil {
		store.Stop()
		return nil, err
	}

	versions := cfg.SupportedProtocolVersions
	if len(versions) == 0 {
		versions = mcp.DefaultProtocolVersions
	}
	handshake := mcp.NewHandshake(versions, mcp.ServerInfo{
		Name:    cfg.AppName,
		Version: cfg.Version,
	})

	dispatcher := mcp.NewDispatcher(store, tools, handshake,
		mcp.WithDispatcherLogger(logger),
		mcp.WithServerInfoResult(info))

	server := mcp.NewHTTPServer(cfg.ListenAddr(), dispatcher, store,
		mcp.WithHTTPLogger(logger))

	return &Gateway{
		Store:      store,
		Tools:      tools,
		Dispatcher: dispatcher,
		Server:     server,
	}, nil
}

// Run serves HTTP traffic until ctx is cancelled, then shuts down gracefully.
func (g *Gateway) Run(ctx context.Context) error {
	return g.Server.Run(ctx)
}
