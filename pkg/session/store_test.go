package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, secret string, maxAge time.Duration) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir(), secret, maxAge, nil)
	require.NoError(t, err)
	require.NoError(t, store.Initialize())
	return store
}

func sampleRecord(clientID string) *PersistedRecord {
	return &PersistedRecord{
		ClientID:      clientID,
		StorageState:  json.RawMessage(`{"cookies":[{"name":"tsession","value":"abc123","domain":".toasttab.com"}],"origins":[]}`),
		Authenticated: true,
		ToastGUID:     "guid-8841",
		Metadata:      map[string]any{"note": "warm"},
		PersistedAt:   time.Now(),
	}
}

func TestSessionIDIsStableAndPseudonymous(t *testing.T) {
	a := SessionID("client-1")
	b := SessionID("client-1")
	c := SessionID("client-2")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
	assert.NotContains(t, a, "client")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{name: "encrypted", secret: "correct-horse-battery-staple"},
		{name: "degraded no-key", secret: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t, tt.secret, 24*time.Hour)

			rec := sampleRecord("client-1")
			require.NoError(t, store.Save(rec))

			// A second store over the same directory simulates a fresh process.
			reopened, err := NewStore(store.dir, tt.secret, 24*time.Hour, nil)
			require.NoError(t, err)

			got, err := reopened.Load("client-1")
			require.NoError(t, err)

			assert.Equal(t, rec.ClientID, got.ClientID)
			assert.Equal(t, rec.Authenticated, got.Authenticated)
			assert.Equal(t, rec.ToastGUID, got.ToastGUID)
			assert.Equal(t, rec.Metadata, got.Metadata)
			assert.JSONEq(t, string(rec.StorageState), string(got.StorageState))
		})
	}
}

func TestEncryptedRecordIsNotPlaintext(t *testing.T) {
	store := newTestStore(t, "secret-key", 24*time.Hour)
	require.NoError(t, store.Save(sampleRecord("client-1")))

	data, err := os.ReadFile(store.path("client-1"))
	require.NoError(t, err)

	assert.NotContains(t, string(data), "guid-8841")
	assert.NotContains(t, string(data), "tsession")
	assert.Contains(t, string(data), modeAESGCM)
}

func TestDegradedModeIsReversibleEncoding(t *testing.T) {
	store := newTestStore(t, "", 24*time.Hour)
	require.NoError(t, store.Save(sampleRecord("client-1")))

	data, err := os.ReadFile(store.path("client-1"))
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, modeBase64, env.Mode)
	assert.Empty(t, env.Nonce)
}

func TestExpiredRecordTreatedAsAbsentAndDeleted(t *testing.T) {
	store := newTestStore(t, "k", time.Hour)

	rec := sampleRecord("client-1")
	rec.PersistedAt = time.Now().Add(-2 * time.Hour)
	require.NoError(t, store.Save(rec))

	_, err := store.Load("client-1")
	assert.ErrorIs(t, err, ErrNoRecord)

	_, statErr := os.Stat(store.path("client-1"))
	assert.True(t, os.IsNotExist(statErr), "expired record should be removed from storage")
}

func TestCorruptRecordTreatedAsUntrusted(t *testing.T) {
	store := newTestStore(t, "k", 24*time.Hour)

	path := store.path("client-1")
	require.NoError(t, os.WriteFile(path, []byte("not json at all"), 0600))

	_, err := store.Load("client-1")
	assert.ErrorIs(t, err, ErrCorruptRecord)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "corrupt record should be removed")
}

func TestWrongKeyYieldsCorruptRecord(t *testing.T) {
	dir := t.TempDir()

	writer, err := NewStore(dir, "key-one", 24*time.Hour, nil)
	require.NoError(t, err)
	require.NoError(t, writer.Initialize())
	require.NoError(t, writer.Save(sampleRecord("client-1")))

	reader, err := NewStore(dir, "key-two", 24*time.Hour, nil)
	require.NoError(t, err)

	_, err = reader.Load("client-1")
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestLoadMissingRecord(t *testing.T) {
	store := newTestStore(t, "k", 24*time.Hour)
	_, err := store.Load("nobody")
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t, "k", 24*time.Hour)
	require.NoError(t, store.Save(sampleRecord("client-1")))

	assert.NoError(t, store.Delete("client-1"))
	assert.NoError(t, store.Delete("client-1"))
	assert.NoError(t, store.Delete("never-existed"))
}

func TestSweepRemovesOnlyExpiredRecords(t *testing.T) {
	store := newTestStore(t, "k", time.Hour)

	fresh := sampleRecord("fresh")
	require.NoError(t, store.Save(fresh))

	stale := sampleRecord("stale")
	stale.PersistedAt = time.Now().Add(-3 * time.Hour)
	require.NoError(t, store.Save(stale))

	// A foreign file in the directory is left alone.
	foreign := filepath.Join(store.dir, "notes.json")
	require.NoError(t, os.WriteFile(foreign, []byte(`{"unrelated":true}`), 0600))

	removed, err := store.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.Load("fresh")
	assert.NoError(t, err)
	_, err = store.Load("stale")
	assert.ErrorIs(t, err, ErrNoRecord)

	_, statErr := os.Stat(foreign)
	assert.NoError(t, statErr)
}

func TestInitializeFailsOnUnusableDirectory(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte("file, not dir"), 0600))

	store, err := NewStore(filepath.Join(blocker, "sessions"), "k", time.Hour, nil)
	require.NoError(t, err)

	err = store.Initialize()
	require.Error(t, err)

	var storageErr *StorageError
	assert.ErrorAs(t, err, &storageErr)
	assert.True(t, strings.Contains(storageErr.Op, "mkdir"))
}

func TestRecordFileUsesSessionSuffix(t *testing.T) {
	store := newTestStore(t, "k", 24*time.Hour)
	require.NoError(t, store.Save(sampleRecord("client-1")))

	assert.True(t, strings.HasSuffix(store.path("client-1"), recordSuffix))
	_, err := os.Stat(store.path("client-1"))
	assert.NoError(t, err)
}
