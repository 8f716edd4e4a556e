package sessionkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofinances/sessionkit/storage"
	"github.com/google/uuid"
)

type listenerEntry struct {
	id uint64
	fn Listener
}

// Store owns the signed-in user for the running process and mediates every
// read and write of its durable record. Build one with [New].
//
// Methods are safe for concurrent use. The remote lookup is never
// serialized; the durable write and the in-memory update of a mutation are,
// so racing sign-ins settle on the last one to commit in both places.
type Store struct {
	config  Config
	key     string
	storage storage.Storage
	lookup  Lookup
	logger  *slog.Logger
	metrics *Metrics
	audit   *auditDispatcher
	now     func() time.Time

	commitMu sync.Mutex

	mu           sync.RWMutex
	state        State
	version      uint64
	delivered    uint64
	listeners    []listenerEntry
	nextListener uint64

	initOnce sync.Once
	ready    chan struct{}
}

// Start runs [Store.Initialize] on its own goroutine and returns at once.
// Use [Store.Wait] or [Store.Ready] to learn when loading has finished.
func (s *Store) Start(ctx context.Context) {
	if s == nil {
		return
	}
	go s.Initialize(ctx)
}

// Initialize reads the persisted user, if any, and clears Loading. It runs
// once per Store; later calls return immediately.
//
// Missing, unreadable, and malformed records all leave the store signed out.
// They are logged and counted, never returned.
func (s *Store) Initialize(ctx context.Context) {
	if s == nil {
		return
	}
	s.initOnce.Do(func() {
		s.load(ctx)
	})
}

// Ready returns a channel closed once initialization has completed.
func (s *Store) Ready() <-chan struct{} {
	if s == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.ready
}

// Wait blocks until initialization completes or ctx ends.
func (s *Store) Wait(ctx context.Context) error {
	if s == nil {
		return ErrStoreNotReady
	}
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) load(ctx context.Context) {
	s.mu.RLock()
	startVersion := s.version
	s.mu.RUnlock()

	user, found := s.readRecord(ctx)

	s.mu.Lock()
	prev := s.state.clone()
	// A sign-in or sign-out that committed while we were reading is newer.
	applied := found && s.version == startVersion
	if applied {
		s.state.User = &user
	}
	s.state.Loading = false
	s.version++
	ver := s.version
	next := s.state.clone()
	s.mu.Unlock()

	close(s.ready)

	if applied {
		s.emitAudit(AuditEvent{EventType: AuditSessionRestored, UserID: user.ID, Success: true})
	}
	s.notify(prev, next, ver)
}

func (s *Store) readRecord(ctx context.Context) (User, bool) {
	data, err := s.storage.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.metrics.Inc(MetricRestoreMiss)
			s.logger.Debug("no persisted session", "key", s.key)
			return User{}, false
		}
		s.metrics.Inc(MetricStorageFailure)
		s.metrics.Inc(MetricRestoreMiss)
		s.logger.Warn("persisted session unreadable, starting signed out", "key", s.key, "error", err)
		return User{}, false
	}

	user, err := decodeUser(data)
	if err != nil {
		s.metrics.Inc(MetricRestoreCorrupt)
		s.logger.Warn("persisted session malformed, starting signed out", "key", s.key, "error", err)
		return User{}, false
	}

	s.metrics.Inc(MetricRestoreHit)
	s.logger.Info("session restored", "user_id", user.ID)
	return user, true
}

// SignIn looks creds.Email up remotely, persists the returned user, and
// makes it current. It returns only after both writes have happened.
//
// Lookup failures wrap [ErrNetwork] or [ErrRemoteRejection]; a storage
// failure wraps [ErrStorageUnavailable]. In every failure case the previous
// state is kept. ctx bounds the lookup; once the durable write starts it is
// not cancelled. An already-ended ctx returns its error before any lookup.
func (s *Store) SignIn(ctx context.Context, creds Credentials) error {
	if s == nil {
		return ErrStoreNotReady
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	creds = creds.normalized()
	if creds.Email == "" {
		s.metrics.Inc(MetricSignInFailure)
		s.emitAudit(AuditEvent{EventType: AuditSignIn, Success: false, Error: ErrInvalidCredentials.Error()})
		return ErrInvalidCredentials
	}

	start := s.now()
	user, err := s.lookup.LookupSession(ctx, creds)
	s.metrics.Observe(MetricSignInLatency, s.now().Sub(start))
	if err != nil {
		err = classifyLookupError(err)
		s.recordSignInFailure(err)
		return err
	}
	if user.ID == "" {
		err = fmt.Errorf("%w: lookup returned a user without id", ErrRemoteRejection)
		s.recordSignInFailure(err)
		return err
	}

	payload, err := encodeUser(user)
	if err != nil {
		s.recordSignInFailure(err)
		return err
	}

	prev, next, ver, err := s.commit(context.WithoutCancel(ctx), func(st *State) {
		u := user
		st.User = &u
	}, func(wctx context.Context) error {
		return s.storage.Set(wctx, s.key, payload)
	})
	if err != nil {
		s.recordSignInFailure(err)
		return err
	}

	s.metrics.Inc(MetricSignInSuccess)
	s.logger.Info("signed in", "user_id", user.ID)
	s.emitAudit(AuditEvent{EventType: AuditSignIn, UserID: user.ID, Success: true})
	s.notify(prev, next, ver)
	return nil
}

// SignOut removes the durable record and clears the current user. Calling
// it with no session is a no-op that still succeeds.
func (s *Store) SignOut(ctx context.Context) error {
	if s == nil {
		return ErrStoreNotReady
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	prev, next, ver, err := s.commit(context.WithoutCancel(ctx), func(st *State) {
		st.User = nil
	}, func(wctx context.Context) error {
		return s.storage.Remove(wctx, s.key)
	})
	if err != nil {
		s.emitAudit(AuditEvent{EventType: AuditSignOut, Success: false, Error: err.Error()})
		s.logger.Warn("sign out failed", "error", err)
		return err
	}

	if prev.User != nil {
		s.metrics.Inc(MetricSignOut)
		s.logger.Info("signed out", "user_id", prev.User.ID)
		s.emitAudit(AuditEvent{EventType: AuditSignOut, UserID: prev.User.ID, Success: true})
	}
	s.notify(prev, next, ver)
	return nil
}

// commit performs the durable write and then the in-memory mutation under
// commitMu. The in-memory state is untouched when write fails. The returned
// version orders the change against every other one.
func (s *Store) commit(ctx context.Context, mutate func(*State), write func(context.Context) error) (State, State, uint64, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	if err := write(ctx); err != nil {
		s.metrics.Inc(MetricStorageFailure)
		return State{}, State{}, 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state.clone()
	mutate(&s.state)
	s.version++
	return prev, s.state.clone(), s.version, nil
}

// State returns a snapshot of the current session.
func (s *Store) State() State {
	if s == nil {
		return State{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// User returns the current user, or nil when none is cached.
func (s *Store) User() *User {
	return s.State().User
}

// Loading reports whether initialization is still pending.
func (s *Store) Loading() bool {
	return s.State().Loading
}

// Subscribe registers fn to be called with the new state whenever the user
// or the loading flag changes. fn runs synchronously on the goroutine that
// made the change, after the store's locks are released, so it may call back
// into the store. The returned func unregisters fn.
func (s *Store) Subscribe(fn Listener) func() {
	if s == nil || fn == nil {
		return func() {}
	}

	s.mu.Lock()
	s.nextListener++
	id := s.nextListener
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// notify delivers next, the state committed at ver. Delivery stops once a
// newer version has started delivering, so no listener ends on a state older
// than one it already saw. A listener that mutates the store re-entrantly
// cuts the older delivery short.
func (s *Store) notify(prev, next State, ver uint64) {
	if prev.equal(next) {
		return
	}

	s.mu.Lock()
	if ver < s.delivered {
		s.mu.Unlock()
		return
	}
	s.delivered = ver
	listeners := make([]Listener, len(s.listeners))
	for i, l := range s.listeners {
		listeners[i] = l.fn
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		if s.superseded(ver) {
			return
		}
		fn(next.clone())
	}
}

func (s *Store) superseded(ver uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.delivered > ver
}

func classifyLookupError(err error) error {
	if errors.Is(err, ErrNetwork) || errors.Is(err, ErrRemoteRejection) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

func (s *Store) recordSignInFailure(err error) {
	switch {
	case errors.Is(err, ErrNetwork):
		s.metrics.Inc(MetricSignInNetworkError)
	case errors.Is(err, ErrRemoteRejection):
		s.metrics.Inc(MetricSignInRejected)
	default:
		s.metrics.Inc(MetricSignInFailure)
	}
	s.logger.Warn("sign in failed", "error", err)
	s.emitAudit(AuditEvent{EventType: AuditSignIn, Success: false, Error: err.Error()})
}

func (s *Store) emitAudit(event AuditEvent) {
	if s.audit == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = s.now().UTC()
	s.audit.Enqueue(event)
}

// Config returns the configuration the store was built with.
func (s *Store) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

// MetricsSnapshot returns the current counters; empty when metrics are off.
func (s *Store) MetricsSnapshot() MetricsSnapshot {
	if s == nil || s.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return s.metrics.Snapshot()
}

// AuditDropped reports audit events lost to a full buffer.
func (s *Store) AuditDropped() uint64 {
	if s == nil || s.audit == nil {
		return 0
	}
	return s.audit.Dropped()
}

// Close flushes and stops the audit dispatcher. It does not close storage;
// whoever opened the backend owns it.
func (s *Store) Close() {
	if s == nil {
		return
	}
	if s.audit != nil {
		s.audit.Close()
		if n := s.audit.Failed(); n > 0 {
			s.logger.Warn("audit sink panicked", "events", n)
		}
	}
}
