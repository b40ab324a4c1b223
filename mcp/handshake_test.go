package mcp

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandshakeSession(t *testing.T) *Session {
	t.Helper()
	st := newTestStore(t, time.Minute)
	sess, gwErr := st.Get(st.Open())
	require.Nil(t, gwErr)
	return sess
}

func initializeParams(version string) json.RawMessage {
	raw, _ := json.Marshal(InitializeParams{
		ProtocolVersion: version,
		Capabilities:    map[string]any{},
		ClientInfo:      ClientInfo{Name: "test-client", Version: "1.0.0"},
	})
	return raw
}

func TestHandshakeDefaultVersions(t *testing.T) {
	h := NewHandshake(nil, ServerInfo{Name: "gw", Version: "0.0.1"})
	assert.Equal(t, DefaultProtocolVersions, h.SupportedVersions())
}

func TestHandshakeInitialize(t *testing.T) {
	h := NewHandshake(nil, ServerInfo{Name: "gw", Version: "0.0.1"})
	sess := newHandshakeSession(t)

	result, gwErr := h.Initialize(sess, initializeParams("2025-06-18"))
	require.Nil(t, gwErr)

	assert.Equal(t, "2025-06-18", result.ProtocolVersion)
	assert.Equal(t, "gw", result.ServerInfo.Name)
	tools, ok := result.Capabilities["tools"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, tools["listChanged"])

	assert.Equal(t, SessionInitialized, sess.State())
	assert.Equal(t, "2025-06-18", sess.ProtocolVersion())
	assert.Equal(t, "test-client", sess.ClientInfo().Name)
}

func TestHandshakeOlderSupportedVersion(t *testing.T) {
	h := NewHandshake(nil, ServerInfo{Name: "gw", Version: "0.0.1"})
	sess := newHandshakeSession(t)

	result, gwErr := h.Initialize(sess, initializeParams("2024-11-05"))
	require.Nil(t, gwErr)
	assert.Equal(t, "2024-11-05", result.ProtocolVersion)
}

func TestHandshakeUnsupportedVersion(t *testing.T) {
	h := NewHandshake([]string{"2025-06-18"}, ServerInfo{Name: "gw", Version: "0.0.1"})
	sess := newHandshakeSession(t)

	_, gwErr := h.Initialize(sess, initializeParams("1999-01-01"))
	require.NotNil(t, gwErr)
	assert.Equal(t, ErrorCodeUnsupportedProtocol, gwErr.Code)
	assert.Contains(t, gwErr.Message, "1999-01-01")

	// The rejection must leave the session untouched and retryable.
	assert.Equal(t, SessionOpened, sess.State())
	assert.Empty(t, sess.ProtocolVersion())

	_, gwErr = h.Initialize(sess, initializeParams("2025-06-18"))
	assert.Nil(t, gwErr)
}

func TestHandshakeAlreadyInitialized(t *testing.T) {
	h := NewHandshake(nil, ServerInfo{Name: "gw", Version: "0.0.1"})
	sess := newHandshakeSession(t)

	_, gwErr := h.Initialize(sess, initializeParams("2025-06-18"))
	require.Nil(t, gwErr)

	_, gwErr = h.Initialize(sess, initializeParams("2025-03-26"))
	require.NotNil(t, gwErr)
	assert.Equal(t, ErrorCodeAlreadyInitialized, gwErr.Code)
	assert.Equal(t, "2025-06-18", sess.ProtocolVersion())
}

func TestHandshakeInvalidParams(t *testing.T) {
	h := NewHandshake(nil, ServerInfo{Name: "gw", Version: "0.0.1"})
	sess := newHandshakeSession(t)

	_, gwErr := h.Initialize(sess, json.RawMessage(`{"protocolVersion":`))
	require.NotNil(t, gwErr)
	assert.Equal(t, ErrorCodeInvalidParams, gwErr.Code)
	assert.Equal(t, SessionOpened, sess.State())
}

func TestHandshakeConfirmInitialized(t *testing.T) {
	h := NewHandshake(nil, ServerInfo{Name: "gw", Version: "0.0.1"})
	sess := newHandshakeSession(t)

	// Out of order: the session has not seen initialize yet.
	assert.False(t, h.ConfirmInitialized(sess))

	_, gwErr := h.Initialize(sess, initializeParams("2025-06-18"))
	require.Nil(t, gwErr)

	assert.True(t, h.ConfirmInitialized(sess))
	assert.Equal(t, SessionReady, sess.State())

	// Duplicate confirmation is dropped.
	assert.False(t, h.ConfirmInitialized(sess))
	assert.Equal(t, SessionReady, sess.State())
}
