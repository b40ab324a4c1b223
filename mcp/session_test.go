package mcp

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, timeout time.Duration, opts ...SessionStoreOption) *SessionStore {
	t.Helper()
	st := NewSessionStore(timeout, opts...)
	t.Cleanup(st.Stop)
	return st
}

func TestSessionStateString(t *testing.T) {
	assert.Equal(t, "opened", SessionOpened.String())
	assert.Equal(t, "initialized", SessionInitialized.String())
	assert.Equal(t, "ready", SessionReady.String())
	assert.Equal(t, "closed", SessionClosed.String())
	assert.Equal(t, "unknown", SessionState(42).String())
}

func TestSessionStoreOpenAndGet(t *testing.T) {
	st := newTestStore(t, time.Minute)

	id := st.Open()
	require.NotEmpty(t, id)

	sess, gwErr := st.Get(id)
	require.Nil(t, gwErr)
	assert.Equal(t, id, sess.ID())
	assert.Equal(t, SessionOpened, sess.State())
	assert.Empty(t, sess.ProtocolVersion())
	assert.Equal(t, 1, st.Count())
}

func TestSessionStoreIdentifiersAreUnique(t *testing.T) {
	st := newTestStore(t, time.Minute)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := st.Open()
		require.False(t, seen[id], "identifier %s handed out twice", id)
		seen[id] = true
	}
}

func TestSessionStoreGetUnknown(t *testing.T) {
	st := newTestStore(t, time.Minute)

	sess, gwErr := st.Get("no-such-session")
	assert.Nil(t, sess)
	require.NotNil(t, gwErr)
	assert.Equal(t, ErrorCodeSessionNotFound, gwErr.Code)
}

func TestSessionStoreReaperEvictsExpired(t *testing.T) {
	st := newTestStore(t, 50*time.Millisecond, WithReaperInterval(10*time.Millisecond))

	id := st.Open()
	assert.Eventually(t, func() bool {
		return st.Count() == 0
	}, time.Second, 10*time.Millisecond)

	_, gwErr := st.Get(id)
	require.NotNil(t, gwErr)
	assert.Equal(t, ErrorCodeSessionNotFound, gwErr.Code)
}

func TestSessionStoreLazyEviction(t *testing.T) {
	// Reaper effectively disabled: expiry must still be observed on lookup.
	st := newTestStore(t, 20*time.Millisecond, WithReaperInterval(time.Hour))

	id := st.Open()
	time.Sleep(50 * time.Millisecond)

	_, gwErr := st.Get(id)
	require.NotNil(t, gwErr)
	assert.Equal(t, ErrorCodeSessionNotFound, gwErr.Code)
	assert.Equal(t, 0, st.Count())
}

func TestSessionStoreTouchSlidesDeadline(t *testing.T) {
	st := newTestStore(t, 200*time.Millisecond, WithReaperInterval(time.Hour))

	id := st.Open()
	for i := 0; i < 3; i++ {
		time.Sleep(100 * time.Millisecond)
		st.Touch(id)
	}

	// Total elapsed well past the idle timeout, but activity kept it alive.
	_, gwErr := st.Get(id)
	assert.Nil(t, gwErr)

	time.Sleep(300 * time.Millisecond)
	_, gwErr = st.Get(id)
	require.NotNil(t, gwErr)
	assert.Equal(t, ErrorCodeSessionNotFound, gwErr.Code)
}

func TestSessionStoreTouchUnknownIsNoop(t *testing.T) {
	st := newTestStore(t, time.Minute)
	st.Touch("no-such-session")
	assert.Equal(t, 0, st.Count())
}

func TestSessionStoreClose(t *testing.T) {
	st := newTestStore(t, time.Minute)

	id := st.Open()
	st.Close(id)

	_, gwErr := st.Get(id)
	require.NotNil(t, gwErr)
	assert.Equal(t, ErrorCodeSessionNotFound, gwErr.Code)
	assert.Equal(t, 0, st.Count())

	// Closing again is a no-op.
	st.Close(id)
}

func TestSessionStoreStopIdempotent(t *testing.T) {
	st := NewSessionStore(time.Minute)
	st.Stop()
	st.Stop()
}

func TestSessionLifecycleTransitions(t *testing.T) {
	st := newTestStore(t, time.Minute)
	sess, gwErr := st.Get(st.Open())
	require.Nil(t, gwErr)

	// Confirmation before initialize is out of order.
	assert.False(t, sess.confirmInitialized())
	assert.Equal(t, SessionOpened, sess.State())

	require.Nil(t, sess.beginInitialize("2025-06-18", nil, ClientInfo{Name: "cli", Version: "1.0"}))
	assert.Equal(t, SessionInitialized, sess.State())
	assert.Equal(t, "2025-06-18", sess.ProtocolVersion())
	assert.Equal(t, "cli", sess.ClientInfo().Name)

	gwErr = sess.beginInitialize("2025-03-26", nil, ClientInfo{})
	require.NotNil(t, gwErr)
	assert.Equal(t, ErrorCodeAlreadyInitialized, gwErr.Code)
	// The original negotiation survives the rejected retry.
	assert.Equal(t, "2025-06-18", sess.ProtocolVersion())

	assert.True(t, sess.confirmInitialized())
	assert.Equal(t, SessionReady, sess.State())
	assert.False(t, sess.confirmInitialized())
}

func TestSessionRateLimit(t *testing.T) {
	st := newTestStore(t, time.Minute, WithSessionRateLimit(1, 1))
	sess, gwErr := st.Get(st.Open())
	require.Nil(t, gwErr)

	assert.True(t, sess.allow())
	assert.False(t, sess.allow())
}

func TestSessionRateLimitDisabledByDefault(t *testing.T) {
	st := newTestStore(t, time.Minute)
	sess, gwErr := st.Get(st.Open())
	require.Nil(t, gwErr)

	for i := 0; i < 100; i++ {
		assert.True(t, sess.allow())
	}
}

func TestSessionStoreConcurrentAccess(t *testing.T) {
	st := newTestStore(t, time.Minute, WithReaperInterval(time.Millisecond))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := st.Open()
				if _, gwErr := st.Get(id); gwErr != nil {
					t.Errorf("freshly opened session %s not found", id)
					return
				}
				st.Touch(id)
				st.Close(id)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, st.Count())
}
