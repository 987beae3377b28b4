package semantic

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFinder(t *testing.T) *Finder {
	t.Helper()
	f, err := NewFinder("test-key", nil)
	require.NoError(t, err)
	f.snapshot = func(playwright.Page) (string, error) {
		return "button #save-btn text=\"Save\"\ninput #item-name name=itemName", nil
	}
	f.probe = func(_ playwright.Page, _ string) (playwright.Locator, error) {
		return nil, nil
	}
	return f
}

func TestNewFinderRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewFinder("", nil)
	assert.Error(t, err)
}

func TestParseSelectorAnswer(t *testing.T) {
	tests := []struct {
		name     string
		answer   string
		selector string
		wantErr  bool
	}{
		{
			name:     "plain json",
			answer:   `{"selector": "#save-btn"}`,
			selector: "#save-btn",
		},
		{
			name:     "fenced json block",
			answer:   "```json\n{\"selector\": \"#save-btn\"}\n```",
			selector: "#save-btn",
		},
		{
			name:     "fenced block with prose around it",
			answer:   "The best match is:\n```json\n{\"selector\": \"input[name=itemName]\"}\n```\nHope that helps.",
			selector: "input[name=itemName]",
		},
		{
			name:     "declined",
			answer:   `{"selector": null}`,
			selector: "",
		},
		{
			name:    "not json at all",
			answer:  "I could not find the element.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selector, err := parseSelectorAnswer(tt.answer)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.selector, selector)
		})
	}
}

func TestFindElementReturnsVerifiedCandidate(t *testing.T) {
	f := newTestFinder(t)

	var gotUser string
	f.complete = func(_ context.Context, _, user string) (string, error) {
		gotUser = user
		return `{"selector": "#save-btn"}`, nil
	}

	cand, err := f.FindElement(context.Background(), nil, "the save button")
	require.NoError(t, err)
	require.NotNil(t, cand)
	assert.Equal(t, "#save-btn", cand.Selector)
	assert.Contains(t, gotUser, "the save button")
	assert.Contains(t, gotUser, "#save-btn", "digest must reach the model")
}

func TestFindElementModelDeclines(t *testing.T) {
	f := newTestFinder(t)
	f.complete = func(context.Context, string, string) (string, error) {
		return `{"selector": null}`, nil
	}

	cand, err := f.FindElement(context.Background(), nil, "a nonexistent widget")
	require.NoError(t, err)
	assert.Nil(t, cand)
}

func TestFindElementRejectsInvisibleSuggestion(t *testing.T) {
	f := newTestFinder(t)
	f.complete = func(context.Context, string, string) (string, error) {
		return `{"selector": "#hidden"}`, nil
	}
	f.probe = func(_ playwright.Page, selector string) (playwright.Locator, error) {
		return nil, fmt.Errorf("selector %q matched nothing visible", selector)
	}

	cand, err := f.FindElement(context.Background(), nil, "something hidden")
	require.NoError(t, err)
	assert.Nil(t, cand, "unverifiable suggestions must not be offered")
}

func TestFindElementSurfacesAPIError(t *testing.T) {
	f := newTestFinder(t)
	f.complete = func(context.Context, string, string) (string, error) {
		return "", errors.New("API request failed with status 429")
	}

	_, err := f.FindElement(context.Background(), nil, "anything")
	assert.ErrorContains(t, err, "semantic lookup")
}
