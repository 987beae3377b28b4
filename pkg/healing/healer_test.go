package healing

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "healing.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func alwaysVisible(_ playwright.Page, _ string) (playwright.Locator, error) {
	return nil, nil
}

func neverVisible(_ playwright.Page, selector string) (playwright.Locator, error) {
	return nil, errors.New("selector " + selector + " matched nothing visible")
}

func TestStoreLearnAndLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.Lookup(ctx, "#save-btn")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Learn(ctx, "#save-btn", "button[data-test=save]"))

	m, ok, err := store.Lookup(ctx, "#save-btn")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "button[data-test=save]", m.Selector)
	assert.Zero(t, m.SuccessCount)
	assert.Zero(t, m.FailureCount)
}

func TestStoreRelearnResetsCounters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Learn(ctx, "#save-btn", "#old"))
	require.NoError(t, store.RecordSuccess(ctx, "#save-btn", "#old", "https://example.com/menus"))
	require.NoError(t, store.RecordFailure(ctx, "#save-btn", "https://example.com/menus", "timeout"))

	require.NoError(t, store.Learn(ctx, "#save-btn", "#new"))

	m, ok, err := store.Lookup(ctx, "#save-btn")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "#new", m.Selector)
	assert.Zero(t, m.SuccessCount)
	assert.Zero(t, m.FailureCount)
}

func TestStoreOutcomeCounters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Never explicitly learned, history still accumulates.
	require.NoError(t, store.RecordSuccess(ctx, "#qty", "#qty", "https://example.com/items"))
	require.NoError(t, store.RecordSuccess(ctx, "#qty", "#qty", "https://example.com/items"))
	require.NoError(t, store.RecordFailure(ctx, "#qty", "https://example.com/items", "detached"))

	m, ok, err := store.Lookup(ctx, "#qty")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, m.SuccessCount)
	assert.Equal(t, 1, m.FailureCount)
	assert.Equal(t, "https://example.com/items", m.LastSeenURL)
	assert.InDelta(t, 2.0/3.0, m.SuccessRate(), 0.001)
}

func TestStoreHealth(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Learn(ctx, "#untouched", "#never-used"))
	require.NoError(t, store.RecordSuccess(ctx, "#good", "#good", ""))
	require.NoError(t, store.RecordFailure(ctx, "#bad", "", "gone"))

	health, err := store.Health(ctx)
	require.NoError(t, err)

	assert.NotContains(t, health, "#untouched", "mappings without history stay out of the report")
	assert.Equal(t, 1.0, health["#good"])
	assert.Equal(t, 0.0, health["#bad"])
}

func TestHealerOffersLearnedSelector(t *testing.T) {
	store := newTestStore(t)
	h := NewHealer(store, nil)
	h.probe = alwaysVisible

	require.NoError(t, h.LearnSelector("#save-btn", "button[data-test=save]"))

	cand, err := h.FindElement(nil, "#save-btn")
	require.NoError(t, err)
	require.NotNil(t, cand)
	assert.Equal(t, "button[data-test=save]", cand.Selector)
}

func TestHealerSilentWhenNothingLearned(t *testing.T) {
	h := NewHealer(newTestStore(t), nil)
	h.probe = alwaysVisible

	cand, err := h.FindElement(nil, "#unknown")
	require.NoError(t, err)
	assert.Nil(t, cand)
}

func TestHealerSkipsInvisibleSelector(t *testing.T) {
	h := NewHealer(newTestStore(t), nil)
	h.probe = neverVisible

	require.NoError(t, h.LearnSelector("#save-btn", "#stale"))

	cand, err := h.FindElement(nil, "#save-btn")
	require.NoError(t, err)
	assert.Nil(t, cand, "an invisible learned selector must not be offered")
}

func TestHealerDemotesUnreliableMapping(t *testing.T) {
	store := newTestStore(t)
	h := NewHealer(store, nil)
	h.probe = alwaysVisible

	require.NoError(t, h.LearnSelector("#flaky", "#learned"))
	for i := 0; i < minHistory; i++ {
		require.NoError(t, h.RecordFailure("#flaky", "", "timeout"))
	}

	cand, err := h.FindElement(nil, "#flaky")
	require.NoError(t, err)
	assert.Nil(t, cand, "a mapping that keeps failing must be demoted")
}
