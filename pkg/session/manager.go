// Package session owns per-client browser sessions: lazy construction,
// warm restore from the encrypted store, per-client construction locking,
// and expiry sweeping.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/playwright-community/playwright-go"

	"github.com/evanramirez88/toast-automation/pkg/config"
	"github.com/evanramirez88/toast-automation/pkg/logging"
)

// Session is one client tenant's live browsing session.
type Session struct {
	ID            string
	ClientID      string
	Context       playwright.BrowserContext
	Page          playwright.Page
	CreatedAt     time.Time
	LastAccessed  time.Time
	Authenticated bool
	ToastGUID     string
	Metadata      map[string]any
}

// Info is a read-only snapshot of a live session for observability.
type Info struct {
	ID            string    `json:"id"`
	ClientID      string    `json:"clientId"`
	CreatedAt     time.Time `json:"createdAt"`
	LastAccessed  time.Time `json:"lastAccessed"`
	Authenticated bool      `json:"authenticated"`
	ToastGUID     string    `json:"toastGuid,omitempty"`
}

// Diagnostics receives non-fatal cleanup and persistence errors. It lets
// callers observe best-effort failures without those failures masking the
// primary result.
type Diagnostics func(stage string, err error)

// ContextOpener creates isolated browsing contexts. playwright.Browser
// satisfies it.
type ContextOpener interface {
	NewContext(options ...playwright.BrowserNewContextOptions) (playwright.BrowserContext, error)
}

// Options configures a Manager.
type Options struct {
	Browser     config.BrowserConfig
	Diagnostics config.DiagnosticsConfig
	LockTimeout time.Duration
}

type buildFunc func(ctx context.Context, clientID string, browser ContextOpener, seed json.RawMessage) (*Session, error)

// Manager owns the in-memory session table for one controller instance.
// All mutation goes through its methods; nothing else touches the table.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	store  *Store
	locks  *keyLock
	opts   Options
	logger *logging.Logger
	diag   Diagnostics

	watch []glob.Glob

	// build and validate are indirected so tests can substitute session
	// construction without a browser process.
	build    buildFunc
	validate func(*Session) bool
}

// NewManager creates a Manager over the given store. diag may be nil.
func NewManager(store *Store, opts Options, logger *logging.Logger, diag Diagnostics) *Manager {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 30 * time.Second
	}

	m := &Manager{
		sessions: make(map[string]*Session),
		store:    store,
		locks:    newKeyLock(),
		opts:     opts,
		logger:   logger,
		diag:     diag,
	}
	m.build = m.buildSession
	m.validate = m.validateSession

	for _, pattern := range opts.Diagnostics.WatchDomains {
		g, err := glob.Compile(pattern)
		if err != nil {
			m.warnf("invalid watch domain pattern %q: %v", pattern, err)
			continue
		}
		m.watch = append(m.watch, g)
	}
	return m
}

// Initialize prepares the on-disk store and runs an expiry sweep. It fails
// with a StorageError if the directory cannot be created.
func (m *Manager) Initialize() error {
	return m.store.Initialize()
}

// GetSession returns a usable session for the client, restoring or creating
// one as needed. It never returns a session whose page is not currently
// valid. Construction for the same client is serialized; different clients
// proceed concurrently.
func (m *Manager) GetSession(ctx context.Context, clientID string, browser ContextOpener) (*Session, error) {
	if s := m.live(clientID); s != nil {
		if m.validate(s) {
			m.touch(s)
			return s, nil
		}
		m.warnf("session for %s failed validation, rebuilding", clientID)
		m.DestroySession(clientID)
	}

	release, err := m.locks.Acquire(ctx, clientID, m.opts.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	// A concurrent caller may have finished construction while we waited.
	if s := m.live(clientID); s != nil && m.validate(s) {
		m.touch(s)
		return s, nil
	}

	var seed json.RawMessage
	rec, err := m.store.Load(clientID)
	switch {
	case err == nil:
		seed = rec.StorageState
		m.infof("restoring session for %s from persisted state", clientID)
	case errors.Is(err, ErrNoRecord):
		// Cold start for this client.
	case errors.Is(err, ErrCorruptRecord):
		m.warnf("persisted session for %s was corrupt and has been discarded", clientID)
		rec = nil
	default:
		return nil, err
	}

	s, err := m.build(ctx, clientID, browser, seed)
	if err != nil {
		return nil, fmt.Errorf("build session for %s: %w", clientID, err)
	}

	if rec != nil {
		s.Authenticated = rec.Authenticated
		s.ToastGUID = rec.ToastGUID
		if rec.Metadata != nil {
			s.Metadata = rec.Metadata
		}
	}

	m.mu.Lock()
	m.sessions[clientID] = s
	m.mu.Unlock()

	return s, nil
}

// PersistSession serializes the live session's storage state and writes an
// encrypted record. It fails with ErrNoActiveSession when the client has no
// live session.
func (m *Manager) PersistSession(clientID string) error {
	s := m.live(clientID)
	if s == nil {
		return fmt.Errorf("persist session for %s: %w", clientID, ErrNoActiveSession)
	}

	var raw json.RawMessage
	if s.Context != nil {
		state, err := s.Context.StorageState()
		if err != nil {
			// Persist what we know even if the snapshot failed.
			m.report("persist:storage-state", err)
		} else if data, err := json.Marshal(state); err == nil {
			raw = data
		}
	}

	rec := &PersistedRecord{
		ClientID:      clientID,
		StorageState:  raw,
		Authenticated: s.Authenticated,
		ToastGUID:     s.ToastGUID,
		Metadata:      s.Metadata,
		PersistedAt:   time.Now(),
	}
	return m.store.Save(rec)
}

// DestroySession closes the session's page and context best-effort and
// removes both the in-memory entry and the on-disk record. It is idempotent.
func (m *Manager) DestroySession(clientID string) {
	m.mu.Lock()
	s := m.sessions[clientID]
	delete(m.sessions, clientID)
	m.mu.Unlock()

	if s != nil {
		if s.Page != nil {
			if err := s.Page.Close(); err != nil {
				m.report("destroy:page", err)
			}
		}
		if s.Context != nil {
			if err := s.Context.Close(); err != nil {
				m.report("destroy:context", err)
			}
		}
	}

	if err := m.store.Delete(clientID); err != nil {
		m.report("destroy:record", err)
	}
}

// DestroyAll tears down every live session. Used at shutdown.
func (m *Manager) DestroyAll() {
	m.mu.Lock()
	clients := make([]string, 0, len(m.sessions))
	for clientID := range m.sessions {
		clients = append(clients, clientID)
	}
	m.mu.Unlock()

	for _, clientID := range clients {
		m.DestroySession(clientID)
	}
}

// MarkAuthenticated records a successful login and persists immediately.
func (m *Manager) MarkAuthenticated(clientID, toastGUID string) error {
	s := m.live(clientID)
	if s == nil {
		return fmt.Errorf("mark authenticated for %s: %w", clientID, ErrNoActiveSession)
	}

	m.mu.Lock()
	s.Authenticated = true
	s.ToastGUID = toastGUID
	s.LastAccessed = time.Now()
	m.mu.Unlock()

	return m.PersistSession(clientID)
}

// IsAuthenticated reports whether the client's live session has logged in.
// It returns false when there is no live session.
func (m *Manager) IsAuthenticated(clientID string) bool {
	s := m.live(clientID)
	return s != nil && s.Authenticated
}

// ActiveSessions returns a snapshot of all live sessions.
func (m *Manager) ActiveSessions() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, Info{
			ID:            s.ID,
			ClientID:      s.ClientID,
			CreatedAt:     s.CreatedAt,
			LastAccessed:  s.LastAccessed,
			Authenticated: s.Authenticated,
			ToastGUID:     s.ToastGUID,
		})
	}
	return infos
}

// SwitchClient persists the source session and annotates its metadata with
// the handover. The source session stays live and resumable.
func (m *Manager) SwitchClient(fromID, toID string) error {
	s := m.live(fromID)
	if s == nil {
		return fmt.Errorf("switch from %s: %w", fromID, ErrNoActiveSession)
	}

	m.mu.Lock()
	if s.Metadata == nil {
		s.Metadata = make(map[string]any)
	}
	history, _ := s.Metadata["switchHistory"].([]any)
	history = append(history, map[string]any{
		"to": toID,
		"at": time.Now().Format(time.RFC3339),
	})
	s.Metadata["switchHistory"] = history
	m.mu.Unlock()

	return m.PersistSession(fromID)
}

func (m *Manager) live(clientID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[clientID]
}

func (m *Manager) touch(s *Session) {
	m.mu.Lock()
	s.LastAccessed = time.Now()
	m.mu.Unlock()
}

// validateSession cheaply checks that the session's page still answers.
func (m *Manager) validateSession(s *Session) bool {
	if s.Page == nil || s.Page.IsClosed() {
		return false
	}
	if _, err := s.Page.Evaluate("() => document.readyState"); err != nil {
		return false
	}
	return true
}

// buildSession creates a fresh isolated context and page, optionally seeded
// with restored storage state. Context parameters are fixed so behavior is
// reproducible run to run.
func (m *Manager) buildSession(_ context.Context, clientID string, browser ContextOpener, seed json.RawMessage) (*Session, error) {
	opts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  m.opts.Browser.ViewportWidth,
			Height: m.opts.Browser.ViewportHeight,
		},
		Locale:     playwright.String(m.opts.Browser.Locale),
		TimezoneId: playwright.String(m.opts.Browser.Timezone),
		UserAgent:  playwright.String(m.opts.Browser.UserAgent),
	}

	if len(seed) > 0 {
		var state playwright.OptionalStorageState
		if err := json.Unmarshal(seed, &state); err != nil {
			m.warnf("ignoring unreadable storage state for %s: %v", clientID, err)
		} else {
			opts.StorageState = &state
		}
	}

	bctx, err := browser.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}

	if m.opts.Browser.ActionTimeout > 0 {
		page.SetDefaultTimeout(float64(m.opts.Browser.ActionTimeout.Milliseconds()))
	}
	if m.opts.Browser.NavigationTimeout > 0 {
		page.SetDefaultNavigationTimeout(float64(m.opts.Browser.NavigationTimeout.Milliseconds()))
	}

	m.observePage(clientID, page)

	now := time.Now()
	return &Session{
		ID:           SessionID(clientID),
		ClientID:     clientID,
		Context:      bctx,
		Page:         page,
		CreatedAt:    now,
		LastAccessed: now,
		Metadata:     make(map[string]any),
	}, nil
}

// observePage attaches passive request/response logging, filtered to the
// watched domains, with auth-related responses logged in more detail.
func (m *Manager) observePage(clientID string, page playwright.Page) {
	page.OnRequest(func(req playwright.Request) {
		if !m.watched(req.URL()) {
			return
		}
		m.debugf("[%s] -> %s %s", clientID, req.Method(), req.URL())
	})

	page.OnResponse(func(resp playwright.Response) {
		if !m.watched(resp.URL()) {
			return
		}
		if m.authRelated(resp.URL()) {
			m.infof("[%s] auth response %d from %s", clientID, resp.Status(), resp.URL())
			return
		}
		m.debugf("[%s] <- %d %s", clientID, resp.Status(), resp.URL())
	})
}

func (m *Manager) watched(rawURL string) bool {
	if len(m.watch) == 0 {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	for _, g := range m.watch {
		if g.Match(u.Host) {
			return true
		}
	}
	return false
}

func (m *Manager) authRelated(rawURL string) bool {
	for _, marker := range m.opts.Diagnostics.AuthPaths {
		if strings.Contains(rawURL, marker) {
			return true
		}
	}
	return false
}

func (m *Manager) report(stage string, err error) {
	m.warnf("%s: %v", stage, err)
	if m.diag != nil {
		m.diag(stage, err)
	}
}

func (m *Manager) infof(format string, v ...interface{}) {
	if m.logger != nil {
		m.logger.Infof(format, v...)
	}
}

func (m *Manager) warnf(format string, v ...interface{}) {
	if m.logger != nil {
		m.logger.Warnf(format, v...)
	}
}

func (m *Manager) debugf(format string, v ...interface{}) {
	if m.logger != nil {
		m.logger.Debugf(format, v...)
	}
}
