package goSession

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/bootstrap"
	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/storage"
	"github.com/MrEthical07/goSession/token"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager owns the authentication session: it logs in and out, hands out usable
// access tokens, refreshes them through a single-flight coordinator, and runs the
// dependent data loads once authenticated.
//
// Manager methods are safe for concurrent use.
type Manager struct {
	config    Config
	auth      Authenticator
	store     storage.Storage
	logger    *zap.Logger
	now       Clock
	refresher *refresh.Coordinator
	bootstrap *bootstrap.Coordinator
	audit     *internalaudit.Dispatcher
	metrics   *Metrics

	// transMu serializes transitions so storage writes land in the same order as
	// the in-memory changes they mirror. It is never held across a backend call.
	transMu sync.Mutex

	mu         sync.RWMutex
	sess       session
	epoch      uint64
	lastReport bootstrap.Report

	obsMu     sync.Mutex
	observers map[uint64]chan SessionState
	nextObs   uint64

	closed atomic.Bool
}

func (m *Manager) initRefresher() {
	m.refresher = refresh.NewCoordinator(
		func(ctx context.Context, rt string) (string, error) {
			return m.auth.Refresh(ctx, rt)
		},
		refresh.Hooks{
			Current:   m.currentAccess,
			OnSuccess: m.applyRefresh,
			OnFailure: m.failRefresh,
		},
		m.now,
	)
}

// Close stops the audit dispatcher and every subscription.
func (m *Manager) Close() {
	if m == nil || !m.closed.CompareAndSwap(false, true) {
		return
	}
	m.audit.Close()

	m.obsMu.Lock()
	for id, ch := range m.observers {
		close(ch)
		delete(m.observers, id)
	}
	m.obsMu.Unlock()
}

// State returns a snapshot of the observable session state.
func (m *Manager) State() SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sess.snapshot()
}

// IsAuthenticated reports whether a session is established. It does not check
// whether the access token is still fresh; AccessToken handles that.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sess.authenticated
}

// Login authenticates against the backend. On failure the previous session is left
// untouched, State().Error records the diagnostic, and a *LoginError is returned.
// On success the tokens are persisted and, when configured, the dependent data loads
// run before Login returns. Load failures never fail Login.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}

	res := flows.RunLogin(ctx, username, password, flows.LoginDeps{
		Authenticate: func(ctx context.Context, u, p string) (flows.LoginPair, error) {
			pair, err := m.auth.Login(ctx, u, p)
			return flows.LoginPair{Access: pair.Access, Refresh: pair.Refresh, Email: pair.Email}, err
		},
		DecodeExpiration: token.DecodeExpiration,
		IsExpired:        token.IsExpired,
		Now:              m.now,
	})

	if res.Failure != flows.LoginFailureNone {
		lerr := &LoginError{Kind: loginErrorKind(res), Err: res.Err}

		m.mu.Lock()
		m.sess.err = lerr.Error()
		m.mu.Unlock()

		m.metrics.Inc(MetricLoginFailure)
		m.emit(ctx, AuditEvent{EventType: AuditLoginFailure, Username: res.Username, Error: lerr.Kind.String()})
		m.logger.Warn("login failed", zap.String("username", res.Username), zap.Stringer("kind", lerr.Kind), zap.Error(res.Err))
		m.notify()
		return lerr
	}

	m.transMu.Lock()
	m.mu.Lock()
	m.epoch++
	m.sess = session{
		id:            uuid.NewString(),
		access:        res.Access,
		refresh:       res.Refresh,
		exp:           res.Expiration,
		authenticated: true,
		user:          User{Username: res.Username, Email: res.Email},
	}
	sid := m.sess.id
	m.mu.Unlock()
	if err := flows.PersistTokens(ctx, m.store, res.Access, res.Refresh, res.Expiration); err != nil {
		m.logger.Warn("persisting login tokens failed", zap.String("session_id", sid), zap.Error(err))
	}
	m.transMu.Unlock()

	m.metrics.Inc(MetricLoginSuccess)
	m.emit(ctx, AuditEvent{EventType: AuditLoginSuccess, Username: res.Username, SessionID: sid, Success: true})
	m.logger.Info("login succeeded", zap.String("username", res.Username), zap.String("session_id", sid), zap.Time("access_expires", res.Expiration))
	m.notify()

	if m.config.Bootstrap.RunOnLogin {
		m.runBootstrap(ctx)
	}
	return nil
}

func loginErrorKind(res flows.LoginResult) LoginErrorKind {
	switch res.Failure {
	case flows.LoginFailureInput:
		return LoginInvalidInput
	case flows.LoginFailureMalformedToken, flows.LoginFailureExpiredToken, flows.LoginFailureMissingRefresh:
		return LoginMalformedToken
	}
	if errors.Is(res.Err, ErrInvalidCredentials) || errors.Is(res.Err, ErrTokenRejected) {
		return LoginRejected
	}
	return LoginUnavailable
}

// Logout clears the session and durable storage. It is idempotent; calling it on a
// logged-out Manager is a no-op that only re-clears storage.
func (m *Manager) Logout(ctx context.Context) error {
	m.transMu.Lock()
	prev, err := m.clearLocked(ctx)
	m.transMu.Unlock()

	if prev.authenticated || prev.refresh != "" {
		m.metrics.Inc(MetricLogout)
		m.emit(ctx, AuditEvent{EventType: AuditLogout, Username: prev.user.Username, SessionID: prev.id, Success: err == nil})
		m.logger.Info("logged out", zap.String("session_id", prev.id))
		m.notify()
	}
	if err != nil {
		m.logger.Warn("clearing stored tokens failed", zap.Error(err))
	}
	return err
}

// clearLocked resets the session and storage. Callers hold transMu.
func (m *Manager) clearLocked(ctx context.Context) (session, error) {
	m.mu.Lock()
	prev := m.sess
	m.epoch++
	m.sess = session{}
	m.mu.Unlock()

	return prev, flows.ClearTokens(ctx, m.store)
}

// AccessToken returns an access token that is usable now. A fresh token is returned
// without any I/O. A stale one is refreshed; concurrent callers share one backend
// refresh. The second result is false when there is no session or the refresh
// failed, in which case the session has been logged out and the caller should send
// the user to the login screen.
func (m *Manager) AccessToken(ctx context.Context) (string, bool) {
	if access, ok := m.currentAccess(); ok {
		return access, true
	}

	m.mu.RLock()
	rt, epoch := m.sess.refresh, m.epoch
	m.mu.RUnlock()
	if rt == "" || m.closed.Load() {
		return "", false
	}

	start := time.Now()
	out := m.refresher.Refresh(ctx, refresh.Request{RefreshToken: rt, Epoch: epoch})
	if out.Network {
		m.metrics.Observe(MetricRefreshLatency, time.Since(start))
	}
	if out.Shared {
		m.metrics.Inc(MetricRefreshShared)
	}
	return out.Access, out.OK
}

// currentAccess returns the access token when it is present and not expired.
func (m *Manager) currentAccess() (string, bool) {
	m.mu.RLock()
	access, exp := m.sess.access, m.sess.exp
	m.mu.RUnlock()

	if access == "" || token.IsExpired(exp, m.now()) {
		return "", false
	}
	return access, true
}

func (m *Manager) applyRefresh(ctx context.Context, req refresh.Request, access string, exp time.Time) error {
	m.transMu.Lock()
	m.mu.Lock()
	if m.epoch != req.Epoch {
		m.mu.Unlock()
		m.transMu.Unlock()
		m.metrics.Inc(MetricRefreshDiscarded)
		m.logger.Debug("discarding refresh for a replaced session")
		return ErrSessionReplaced
	}
	if m.sess.id == "" {
		m.sess.id = uuid.NewString()
	}
	m.sess.access = access
	m.sess.exp = exp
	m.sess.authenticated = true
	m.sess.err = ""
	sid := m.sess.id
	m.mu.Unlock()
	if err := flows.PersistTokens(ctx, m.store, access, "", exp); err != nil {
		m.logger.Warn("persisting refreshed token failed", zap.String("session_id", sid), zap.Error(err))
	}
	m.transMu.Unlock()

	m.metrics.Inc(MetricRefreshSuccess)
	m.emit(ctx, AuditEvent{EventType: AuditRefreshSuccess, SessionID: sid, Success: true})
	m.logger.Debug("access token refreshed", zap.String("session_id", sid), zap.Time("access_expires", exp))
	m.notify()
	return nil
}

// failRefresh is the fail-closed policy: any refresh failure logs the session out.
// A failure for a session that was already replaced is ignored.
func (m *Manager) failRefresh(ctx context.Context, req refresh.Request, cause error) {
	m.transMu.Lock()
	m.mu.RLock()
	stale := m.epoch != req.Epoch
	m.mu.RUnlock()
	if stale {
		m.transMu.Unlock()
		m.metrics.Inc(MetricRefreshDiscarded)
		return
	}
	prev, err := m.clearLocked(ctx)
	m.transMu.Unlock()

	rerr := &RefreshError{Err: cause}
	m.metrics.Inc(MetricRefreshFailure)
	m.metrics.Inc(MetricForcedLogout)
	m.emit(ctx, AuditEvent{EventType: AuditRefreshFailure, SessionID: prev.id, Error: rerr.Error()})
	m.emit(ctx, AuditEvent{EventType: AuditForcedLogout, Username: prev.user.Username, SessionID: prev.id, Success: err == nil})
	m.logger.Warn("refresh failed, session logged out", zap.String("session_id", prev.id), zap.Error(rerr))
	if err != nil {
		m.logger.Warn("clearing stored tokens failed", zap.Error(err))
	}
	m.notify()
}

// Hydrate restores a session from durable storage at startup. It returns false
// without any network call when no refresh token is stored or the stored one has
// visibly expired (storage is cleared in that case). Otherwise it performs one
// refresh and reports whether it succeeded. On an already authenticated Manager it
// returns true and does nothing.
func (m *Manager) Hydrate(ctx context.Context) bool {
	if m.closed.Load() {
		return false
	}
	if m.IsAuthenticated() {
		return true
	}

	res := flows.RunHydrate(ctx, flows.HydrateDeps{
		Storage:          m.store,
		DecodeExpiration: token.DecodeExpiration,
		IsExpired:        token.IsExpired,
		Now:              m.now,
	})

	switch res.Outcome {
	case flows.HydrateNoToken:
		m.metrics.Inc(MetricHydrateSkipped)
		m.logger.Debug("no stored session")
		return false
	case flows.HydrateStorageError:
		m.metrics.Inc(MetricHydrateFailure)
		m.logger.Warn("reading stored session failed", zap.Error(res.Err))
		return false
	case flows.HydrateStale:
		m.transMu.Lock()
		_, err := m.clearLocked(ctx)
		m.transMu.Unlock()
		m.metrics.Inc(MetricHydrateSkipped)
		m.metrics.Inc(MetricForcedLogout)
		m.emit(ctx, AuditEvent{EventType: AuditHydrate, Error: refresh.ErrRefreshTokenExpired.Error()})
		m.logger.Info("stored refresh token expired, session cleared")
		if err != nil {
			m.logger.Warn("clearing stored tokens failed", zap.Error(err))
		}
		return false
	}

	m.transMu.Lock()
	m.mu.Lock()
	m.epoch++
	m.sess = session{refresh: res.RefreshToken}
	epoch := m.epoch
	m.mu.Unlock()
	m.transMu.Unlock()

	out := m.refresher.Refresh(ctx, refresh.Request{RefreshToken: res.RefreshToken, Epoch: epoch})
	if !out.OK {
		m.metrics.Inc(MetricHydrateFailure)
		m.emit(ctx, AuditEvent{EventType: AuditHydrate, Error: errString(out.Err)})
		return false
	}

	m.metrics.Inc(MetricHydrateSuccess)
	m.emit(ctx, AuditEvent{EventType: AuditHydrate, SessionID: m.State().SessionID, Success: true})
	if m.config.Bootstrap.RunOnHydrate {
		m.runBootstrap(ctx)
	}
	return true
}

// InitializeAfterAuth loads settings and then every registered collection. Login
// and Hydrate call it when configured; it can also be called directly, for example
// to reload after reconnecting.
func (m *Manager) InitializeAfterAuth(ctx context.Context) (bootstrap.Report, error) {
	if !m.IsAuthenticated() {
		return bootstrap.Report{}, ErrNotAuthenticated
	}
	return m.runBootstrap(ctx), nil
}

func (m *Manager) runBootstrap(ctx context.Context) bootstrap.Report {
	report := m.bootstrap.Run(ctx)

	m.mu.Lock()
	m.lastReport = report
	sid := m.sess.id
	m.mu.Unlock()

	m.metrics.Inc(MetricBootstrapRun)
	m.metrics.Add(MetricBootstrapCollectionFailure, uint64(len(report.Failures)))

	ev := AuditEvent{EventType: AuditBootstrap, SessionID: sid, Success: report.OK()}
	if !report.OK() {
		ev.Metadata = make(map[string]string, len(report.Failures))
		for _, f := range report.Failures {
			ev.Metadata[f.Collection] = errString(f.Err)
		}
	}
	m.emit(ctx, ev)
	return report
}

// LastBootstrapReport returns the report of the most recent load sequence.
func (m *Manager) LastBootstrapReport() bootstrap.Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastReport
}

// Subscribe returns a channel receiving a snapshot after every transition and a
// function that cancels the subscription. Slow subscribers miss snapshots rather
// than block transitions.
func (m *Manager) Subscribe() (<-chan SessionState, func()) {
	ch := make(chan SessionState, m.config.Observer.BufferSize)

	m.obsMu.Lock()
	if m.closed.Load() {
		m.obsMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := m.nextObs
	m.nextObs++
	m.observers[id] = ch
	m.obsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.obsMu.Lock()
			if c, ok := m.observers[id]; ok {
				close(c)
				delete(m.observers, id)
			}
			m.obsMu.Unlock()
		})
	}
}

func (m *Manager) notify() {
	state := m.State()

	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	for _, ch := range m.observers {
		select {
		case ch <- state:
		default:
		}
	}
}

func (m *Manager) emit(ctx context.Context, ev AuditEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = m.now().UTC()
	}
	m.audit.Emit(ctx, ev)
}

// AuditDropped reports audit events dropped because the dispatcher buffer was full.
func (m *Manager) AuditDropped() uint64 {
	if m == nil {
		return 0
	}
	return m.audit.Dropped()
}

// MetricsSnapshot returns a copy of the Manager's counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil {
		return NewMetrics(MetricsConfig{}).Snapshot()
	}
	return m.metrics.Snapshot()
}

// RefreshFlights reports how many backend refresh calls have been made.
func (m *Manager) RefreshFlights() uint64 {
	return m.refresher.Flights()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
