package gateway

import (
	"fmt"
	"time"
)

// Config carries everything the gateway needs to run. It is plain data so
// callers can populate it from flags, environment variables or a file.
type Config struct {
	// AppName, Version and Account identify this deployment in server_info
	// and mcp_info responses.
	AppName string
	Version string
	Account string

	// Host and Port form the listen address of the HTTP transport.
	Host string
	Port int

	// SessionTimeout is the sliding idle window after which a session is
	// eligible for expiry.
	SessionTimeout time.Duration

	// InventoryURL and OrderURL are the base URLs of the two backend
	// services the tool set forwards to.
	InventoryURL string
	OrderURL     string

	// BackendTimeout bounds each individual forwarded backend call.
	BackendTimeout time.Duration

	// SupportedProtocolVersions overrides the protocol versions offered
	// during the handshake. Empty means the built-in defaults.
	SupportedProtocolVersions []string

	// SessionRequestsPerSecond enables per-session rate limiting when
	// positive. SessionRequestBurst defaults to the rate when zero.
	SessionRequestsPerSecond float64
	SessionRequestBurst      int

	LogLevel string
}

// DefaultConfig returns a Config with the defaults used when no explicit
// values are provided.
func DefaultConfig() Config {
	return Config{
		AppName:        "commerce-mcp-gateway",
		Version:        "0.0.1",
		Account:        "local",
		Host:           "0.0.0.0",
		Port:           9090,
		SessionTimeout: 30 * time.Minute,
		InventoryURL:   "http://localhost:8080",
		OrderURL:       "http://localhost:8081",
		BackendTimeout: 15 * time.Second,
		LogLevel:       "info",
	}
}

// ListenAddr returns the host:port pair the HTTP transport binds to.
func (c Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks the parts of the configuration that would otherwise fail
// at an awkward moment deep inside a request.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("session timeout must be positive, got %s", c.SessionTimeout)
	}
	if c.InventoryURL == "" {
		return fmt.Errorf("inventory backend URL is required")
	}
	if c.OrderURL == "" {
		return fmt.Errorf("order backend URL is required")
	}
	return nil
}
