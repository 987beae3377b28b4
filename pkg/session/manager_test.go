package session

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanramirez88/toast-automation/pkg/config"
)

func newTestManager(t *testing.T, secret string) *Manager {
	t.Helper()

	store, err := NewStore(t.TempDir(), secret, 24*time.Hour, nil)
	require.NoError(t, err)

	m := NewManager(store, Options{
		Browser: config.BrowserConfig{
			ViewportWidth:  1280,
			ViewportHeight: 720,
			Locale:         "en-US",
			Timezone:       "America/New_York",
		},
		LockTimeout: 5 * time.Second,
	}, nil, nil)

	// Tests substitute construction so no browser process is needed. The
	// fake sessions have no page, so validation is stubbed out too.
	m.build = func(_ context.Context, clientID string, _ ContextOpener, seed json.RawMessage) (*Session, error) {
		now := time.Now()
		return &Session{
			ID:           SessionID(clientID),
			ClientID:     clientID,
			CreatedAt:    now,
			LastAccessed: now,
			Metadata:     make(map[string]any),
		}, nil
	}
	m.validate = func(*Session) bool { return true }

	require.NoError(t, m.Initialize())
	return m
}

func TestGetSessionCreatesLazily(t *testing.T) {
	m := newTestManager(t, "secret")

	s, err := m.GetSession(context.Background(), "client-1", nil)
	require.NoError(t, err)

	assert.Equal(t, "client-1", s.ClientID)
	assert.Equal(t, SessionID("client-1"), s.ID)
	assert.False(t, s.Authenticated)
	assert.Len(t, m.ActiveSessions(), 1)
}

func TestGetSessionReturnsExistingLiveSession(t *testing.T) {
	m := newTestManager(t, "secret")
	ctx := context.Background()

	first, err := m.GetSession(ctx, "client-1", nil)
	require.NoError(t, err)

	second, err := m.GetSession(ctx, "client-1", nil)
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestConcurrentGetSessionConstructsOnce(t *testing.T) {
	m := newTestManager(t, "secret")

	var constructions atomic.Int32
	base := m.build
	m.build = func(ctx context.Context, clientID string, browser ContextOpener, seed json.RawMessage) (*Session, error) {
		constructions.Add(1)
		time.Sleep(10 * time.Millisecond) // widen the race window
		return base(ctx, clientID, browser, seed)
	}

	var wg sync.WaitGroup
	sessions := make([]*Session, 8)
	for i := 0; i < len(sessions); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.GetSession(context.Background(), "client-1", nil)
			require.NoError(t, err)
			sessions[i] = s
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), constructions.Load(), "construction must run once per client")
	for _, s := range sessions {
		assert.Same(t, sessions[0], s)
	}
}

func TestConcurrentGetSessionDifferentClients(t *testing.T) {
	m := newTestManager(t, "secret")

	var wg sync.WaitGroup
	for _, clientID := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := m.GetSession(context.Background(), id, nil)
			require.NoError(t, err)
		}(clientID)
	}
	wg.Wait()

	assert.Len(t, m.ActiveSessions(), 4)
}

func TestInvalidSessionIsRebuilt(t *testing.T) {
	m := newTestManager(t, "secret")
	ctx := context.Background()

	first, err := m.GetSession(ctx, "client-1", nil)
	require.NoError(t, err)

	calls := 0
	m.validate = func(*Session) bool {
		calls++
		return calls > 1 // first validation fails, the rebuilt session passes
	}

	second, err := m.GetSession(ctx, "client-1", nil)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestPersistAndRestoreAcrossProcesses(t *testing.T) {
	for _, secret := range []string{"with-key", ""} {
		name := "encrypted"
		if secret == "" {
			name = "degraded"
		}
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			ctx := context.Background()

			store, err := NewStore(dir, secret, 24*time.Hour, nil)
			require.NoError(t, err)
			first := managerOverStore(t, store)

			s, err := first.GetSession(ctx, "client-1", nil)
			require.NoError(t, err)
			s.Metadata["region"] = "northeast"

			require.NoError(t, first.MarkAuthenticated("client-1", "guid-42"))

			// Fresh manager over the same directory simulates a restart.
			store2, err := NewStore(dir, secret, 24*time.Hour, nil)
			require.NoError(t, err)
			second := managerOverStore(t, store2)

			restored, err := second.GetSession(ctx, "client-1", nil)
			require.NoError(t, err)

			assert.True(t, restored.Authenticated)
			assert.Equal(t, "guid-42", restored.ToastGUID)
			assert.Equal(t, "northeast", restored.Metadata["region"])
		})
	}
}

func managerOverStore(t *testing.T, store *Store) *Manager {
	t.Helper()

	m := NewManager(store, Options{LockTimeout: 5 * time.Second}, nil, nil)
	m.build = func(_ context.Context, clientID string, _ ContextOpener, _ json.RawMessage) (*Session, error) {
		now := time.Now()
		return &Session{
			ID:           SessionID(clientID),
			ClientID:     clientID,
			CreatedAt:    now,
			LastAccessed: now,
			Metadata:     make(map[string]any),
		}, nil
	}
	m.validate = func(*Session) bool { return true }
	require.NoError(t, m.Initialize())
	return m
}

func TestPersistSessionWithoutLiveSession(t *testing.T) {
	m := newTestManager(t, "secret")
	err := m.PersistSession("ghost")
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestMarkAuthenticatedWithoutLiveSession(t *testing.T) {
	m := newTestManager(t, "secret")
	err := m.MarkAuthenticated("ghost", "guid")
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestIsAuthenticated(t *testing.T) {
	m := newTestManager(t, "secret")
	ctx := context.Background()

	assert.False(t, m.IsAuthenticated("client-1"), "no session means not authenticated")

	_, err := m.GetSession(ctx, "client-1", nil)
	require.NoError(t, err)
	assert.False(t, m.IsAuthenticated("client-1"))

	require.NoError(t, m.MarkAuthenticated("client-1", "guid-1"))
	assert.True(t, m.IsAuthenticated("client-1"))
}

func TestDestroySessionIsIdempotent(t *testing.T) {
	m := newTestManager(t, "secret")
	ctx := context.Background()

	_, err := m.GetSession(ctx, "client-1", nil)
	require.NoError(t, err)
	require.NoError(t, m.PersistSession("client-1"))

	assert.NotPanics(t, func() {
		m.DestroySession("client-1")
		m.DestroySession("client-1")
		m.DestroySession("never-existed")
	})

	assert.Empty(t, m.ActiveSessions())
	_, err = m.store.Load("client-1")
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestSwitchClientAnnotatesAndKeepsSource(t *testing.T) {
	m := newTestManager(t, "secret")
	ctx := context.Background()

	_, err := m.GetSession(ctx, "client-a", nil)
	require.NoError(t, err)

	require.NoError(t, m.SwitchClient("client-a", "client-b"))

	// Source stays live and resumable.
	s, err := m.GetSession(ctx, "client-a", nil)
	require.NoError(t, err)

	history, ok := s.Metadata["switchHistory"].([]any)
	require.True(t, ok, "switch history should be recorded")
	require.Len(t, history, 1)

	entry := history[0].(map[string]any)
	assert.Equal(t, "client-b", entry["to"])

	// And the handover was persisted.
	rec, err := m.store.Load("client-a")
	require.NoError(t, err)
	assert.Contains(t, rec.Metadata, "switchHistory")
}

func TestSwitchClientWithoutSource(t *testing.T) {
	m := newTestManager(t, "secret")
	err := m.SwitchClient("ghost", "client-b")
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestDestroyAll(t *testing.T) {
	m := newTestManager(t, "secret")
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := m.GetSession(ctx, id, nil)
		require.NoError(t, err)
	}

	m.DestroyAll()
	assert.Empty(t, m.ActiveSessions())
}
