package mcp

import (
	"encoding/json"
)

// Protocol versions the gateway speaks, newest first. The set is
// configuration-enumerated; these are only the defaults.
var DefaultProtocolVersions = []string{"2025-06-18", "2025-03-26", "2024-11-05"}

// ClientInfo identifies the connecting client.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerInfo identifies the gateway to clients.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeParams represents the parameters of the initialize request.
type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      ClientInfo     `json:"clientInfo"`
}

// InitializeResult represents the result of a successful initialize.
type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      ServerInfo     `json:"serverInfo"`
}

// Handshake validates protocol negotiation and drives the session state
// machine from opened through initialized to ready. It is the only component
// besides the SessionStore allowed to mutate a session.
type Handshake struct {
	supportedVersions []string
	serverInfo        ServerInfo
	capabilities      map[string]any
}

// NewHandshake creates a Handshake advertising the given versions and server
// identity. An empty version set falls back to DefaultProtocolVersions.
func NewHandshake(versions []string, info ServerInfo) *Handshake {
	if len(versions) == 0 {
		versions = DefaultProtocolVersions
	}
	return &Handshake{
		supportedVersions: versions,
		serverInfo:        info,
		capabilities: map[string]any{
			"tools": map[string]any{
				"listChanged": false,
			},
		},
	}
}

// SupportedVersions returns the advertised protocol versions.
func (h *Handshake) SupportedVersions() []string {
	out := make([]string, len(h.supportedVersions))
	copy(out, h.supportedVersions)
	return out
}

// Initialize processes an initialize request against the session. The
// requested version must be in the supported set, and the session must not
// have been initialized before; on failure the session state is left exactly
// as it was.
func (h *Handshake) Initialize(sess *Session, raw json.RawMessage) (InitializeResult, *Error) {
	var params InitializeParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return InitializeResult{}, ErrInvalidParams(err)
	}

	if !h.supports(params.ProtocolVersion) {
		return InitializeResult{}, ErrUnsupportedProtocolVersion(params.ProtocolVersion, h.SupportedVersions())
	}

	if err := sess.beginInitialize(params.ProtocolVersion, params.Capabilities, params.ClientInfo); err != nil {
		return InitializeResult{}, err
	}

	return InitializeResult{
		ProtocolVersion: params.ProtocolVersion,
		Capabilities:    h.capabilities,
		ServerInfo:      h.serverInfo,
	}, nil
}

// ConfirmInitialized processes notifications/initialized. Returns false when
// the notification arrived out of order, in which case it is dropped; per the
// wire protocol a notification never produces an error response.
func (h *Handshake) ConfirmInitialized(sess *Session) bool {
	return sess.confirmInitialized()
}

func (h *Handshake) supports(version string) bool {
	for _, v := range h.supportedVersions {
		if v == version {
			return true
		}
	}
	return false
}
