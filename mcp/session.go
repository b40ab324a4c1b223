package mcp

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/caradhras-io/commerce-mcp-gateway/observability"
)

// SessionState enumerates the session lifecycle. Transitions are validated on
// every request; an illegal transition is rejected, never silently applied.
type SessionState int

const (
	// SessionOpened - allocated, waiting for initialize.
	SessionOpened SessionState = iota
	// SessionInitialized - initialize accepted, waiting for the
	// notifications/initialized confirmation.
	SessionInitialized
	// SessionReady - handshake complete, tool calls accepted.
	SessionReady
	// SessionClosed - explicitly closed, terminal.
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionOpened:
		return "opened"
	case SessionInitialized:
		return "initialized"
	case SessionReady:
		return "ready"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one client's handshake context. All mutation goes through the
// SessionStore and the Handshake; everything else reads snapshots.
type Session struct {
	id string

	mu              sync.Mutex
	state           SessionState
	protocolVersion string
	capabilities    map[string]any
	clientInfo      ClientInfo
	createdAt       time.Time
	lastActivity    time.Time
	deadline        time.Time
	limiter         *rate.Limiter
}

// ID returns the session's opaque identifier. Identifiers are never reused.
func (s *Session) ID() string { return s.id }

// State returns the session's current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ProtocolVersion returns the version negotiated at initialize, or the empty
// string before that.
func (s *Session) ProtocolVersion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.protocolVersion
}

// ClientInfo returns the client identity recorded at initialize.
func (s *Session) ClientInfo() ClientInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientInfo
}

// CreatedAt returns the time the session was opened.
func (s *Session) CreatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createdAt
}

// Deadline returns the current expiry deadline.
func (s *Session) Deadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadline
}

// allow consumes one token from the session's inbound rate limiter. Always
// true when no limit is configured.
func (s *Session) allow() bool {
	if s.limiter == nil {
		return true
	}
	return s.limiter.Allow()
}

func (s *Session) expiredAt(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == SessionClosed || !now.Before(s.deadline)
}

// beginInitialize moves opened -> initialized, recording the negotiated
// version and client identity. Only the Handshake calls this.
func (s *Session) beginInitialize(version string, caps map[string]any, info ClientInfo) *Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionOpened {
		return ErrAlreadyInitialized()
	}
	s.state = SessionInitialized
	s.protocolVersion = version
	s.capabilities = caps
	s.clientInfo = info
	return nil
}

// confirmInitialized moves initialized -> ready. Returns false when the
// session is in any other state; the caller drops the notification.
func (s *Session) confirmInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionInitialized {
		return false
	}
	s.state = SessionReady
	return true
}

// SessionStoreOption configures a SessionStore.
type SessionStoreOption func(*SessionStore)

// WithSessionLogger sets the store's logger.
func WithSessionLogger(logger observability.Logger) SessionStoreOption {
	return func(st *SessionStore) {
		st.logger = logger
	}
}

// WithReaperInterval overrides how often the background reaper scans for
// expired sessions.
func WithReaperInterval(interval time.Duration) SessionStoreOption {
	return func(st *SessionStore) {
		st.reaperInterval = interval
	}
}

// WithSessionRateLimit caps how many requests per second a single session may
// issue, with the given burst. A zero rps disables limiting.
func WithSessionRateLimit(rps float64, burst int) SessionStoreOption {
	return func(st *SessionStore) {
		st.limitRPS = rps
		st.limitBurst = burst
	}
}

// SessionStore owns every session record. It is the only component that
// creates, mutates the lifetime of, or evicts sessions. Lookups across
// different sessions proceed concurrently; mutation of a single record is
// serialized by that record's own lock.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	timeout        time.Duration
	reaperInterval time.Duration
	limitRPS       float64
	limitBurst     int
	logger         observability.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// NewSessionStore creates a store with the given idle timeout and starts its
// background reaper. Call Stop to halt the reaper.
func NewSessionStore(timeout time.Duration, opts ...SessionStoreOption) *SessionStore {
	st := &SessionStore{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		logger:   observability.NewNullLogger(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(st)
	}
	if st.reaperInterval <= 0 {
		st.reaperInterval = timeout / 4
		if st.reaperInterval < time.Second {
			st.reaperInterval = time.Second
		}
	}

	go st.reap()

	return st
}

// Open allocates a new session in state opened with a fresh identifier and
// schedules its expiry. It always succeeds.
func (st *SessionStore) Open() string {
	now := time.Now()
	sess := &Session{
		id:           uuid.New().String(),
		state:        SessionOpened,
		createdAt:    now,
		lastActivity: now,
		deadline:     now.Add(st.timeout),
	}
	if st.limitRPS > 0 {
		sess.limiter = rate.NewLimiter(rate.Limit(st.limitRPS), st.limitBurst)
	}

	st.mu.Lock()
	st.sessions[sess.id] = sess
	st.mu.Unlock()

	st.logger.WithFields(map[string]interface{}{"sessionID": sess.id}).Debug("session opened")
	return sess.id
}

// Get resolves a live session. Expired and closed sessions are evicted on the
// way and reported as not found; a lookup racing an eviction observes one or
// the other, never a torn record.
func (st *SessionStore) Get(id string) (*Session, *Error) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound(id)
	}
	if sess.expiredAt(time.Now()) {
		st.evict(id)
		return nil, ErrSessionNotFound(id)
	}
	return sess, nil
}

// Touch refreshes the session's last-activity time and slides its expiry
// deadline forward. Unknown ids are ignored.
func (st *SessionStore) Touch(id string) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return
	}

	now := time.Now()
	sess.mu.Lock()
	if sess.state != SessionClosed && now.Before(sess.deadline) {
		sess.lastActivity = now
		sess.deadline = now.Add(st.timeout)
	}
	sess.mu.Unlock()
}

// Close transitions the session to closed and releases the record. Closing an
// unknown or already-closed session is a no-op.
func (st *SessionStore) Close(id string) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return
	}

	sess.mu.Lock()
	sess.state = SessionClosed
	sess.mu.Unlock()

	st.evict(id)
	st.logger.WithFields(map[string]interface{}{"sessionID": id}).Debug("session closed")
}

// Count reports how many records the store currently holds, including ones
// the reaper has not collected yet.
func (st *SessionStore) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Stop halts the background reaper. Idempotent.
func (st *SessionStore) Stop() {
	st.stopOnce.Do(func() { close(st.done) })
}

// evict removes a record from the map. Idempotent and safe under concurrent
// lookups: the record pointer stays valid for holders, but the id resolves to
// not-found from here on.
func (st *SessionStore) evict(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

func (st *SessionStore) reap() {
	ticker := time.NewTicker(st.reaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-st.done:
			return
		case <-ticker.C:
			now := time.Now()

			st.mu.RLock()
			var expired []string
			for id, sess := range st.sessions {
				if sess.expiredAt(now) {
					expired = append(expired, id)
				}
			}
			st.mu.RUnlock()

			for _, id := range expired {
				st.evict(id)
				st.logger.WithFields(map[string]interface{}{"sessionID": id}).Debug("session expired")
			}
		}
	}
}
