// Package semantic locates page elements from natural-language descriptions.
// It digests the page's interactive elements, asks an OpenAI-compatible
// model to pick a selector, and verifies the answer against the live page
// before offering it to the resolver.
package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/playwright-community/playwright-go"

	"github.com/evanramirez88/toast-automation/pkg/logging"
	"github.com/evanramirez88/toast-automation/pkg/resolver"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"

	systemPrompt = `You locate elements in a restaurant back-office web page.
Given a description of an element and a digest of the page's interactive
elements, answer with a JSON object of the form {"selector": "<css>"} using
the most specific selector from the digest that matches the description.
If nothing matches, answer {"selector": null}. Answer with JSON only.`
)

// Finder implements semantic element lookup against an OpenAI-compatible
// chat completions API.
type Finder struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	logger     *logging.Logger

	// complete, snapshot and probe are swapped out in tests.
	complete func(ctx context.Context, system, user string) (string, error)
	snapshot func(page playwright.Page) (string, error)
	probe    func(page playwright.Page, selector string) (playwright.Locator, error)
}

// FinderOption is a function that configures a Finder.
type FinderOption func(*Finder)

// WithModel sets the model used for lookups.
func WithModel(model string) FinderOption {
	return func(f *Finder) {
		f.model = model
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
func WithBaseURL(baseURL string) FinderOption {
	return func(f *Finder) {
		f.baseURL = baseURL
	}
}

// NewFinder creates a semantic finder. An empty apiKey falls back to the
// OPENAI_API_KEY environment variable; without either the finder cannot be
// constructed, since every lookup needs the API.
func NewFinder(apiKey string, logger *logging.Logger, opts ...FinderOption) (*Finder, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (provide via parameter or OPENAI_API_KEY environment variable)")
	}

	f := &Finder{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      "gpt-4o",
		logger:     logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			f.baseURL = envBaseURL
		}
	}

	f.complete = f.completeChat
	f.snapshot = snapshotInteractive
	f.probe = probeVisible
	return f, nil
}

// FindElement asks the model to pick a selector for description from the
// page's interactive-element digest. A nil candidate with no error means
// the model declined or its answer did not survive verification.
func (f *Finder) FindElement(ctx context.Context, page playwright.Page, description string) (*resolver.Candidate, error) {
	digest, err := f.snapshot(page)
	if err != nil {
		return nil, fmt.Errorf("snapshot page elements: %w", err)
	}

	user := fmt.Sprintf("Element description: %s\n\nPage elements:\n%s", description, digest)
	answer, err := f.complete(ctx, systemPrompt, user)
	if err != nil {
		return nil, fmt.Errorf("semantic lookup: %w", err)
	}

	selector, err := parseSelectorAnswer(answer)
	if err != nil {
		return nil, err
	}
	if selector == "" {
		f.debugf("model found no match for %q", description)
		return nil, nil
	}

	loc, err := f.probe(page, selector)
	if err != nil {
		f.debugf("model suggested %q for %q but it is not visible: %v", selector, description, err)
		return nil, nil
	}

	f.debugf("resolved %q semantically to %q", description, selector)
	return &resolver.Candidate{Locator: loc, Selector: selector}, nil
}

// completeChat performs a non-streaming chat completion request.
func (f *Finder) completeChat(ctx context.Context, system, user string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(system),
		openai.UserMessage(user),
	}

	reqBody := map[string]interface{}{
		"model":       f.model,
		"messages":    messages,
		"temperature": 0,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := f.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.apiKey)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return "", fmt.Errorf("API request failed with status %d (failed to read error body: %w)", resp.StatusCode, readErr)
		}
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("API response contained no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// parseSelectorAnswer extracts the selector from the model's JSON answer,
// tolerating a fenced code block around it. An empty selector means the
// model declined.
func parseSelectorAnswer(answer string) (string, error) {
	cleaned := strings.TrimSpace(answer)
	if idx := strings.Index(cleaned, "```"); idx != -1 {
		cleaned = cleaned[idx+3:]
		cleaned = strings.TrimPrefix(cleaned, "json")
		if end := strings.Index(cleaned, "```"); end != -1 {
			cleaned = cleaned[:end]
		}
		cleaned = strings.TrimSpace(cleaned)
	}

	var parsed struct {
		Selector *string `json:"selector"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return "", fmt.Errorf("unparseable model answer %q: %w", answer, err)
	}
	if parsed.Selector == nil {
		return "", nil
	}
	return strings.TrimSpace(*parsed.Selector), nil
}

// snapshotInteractive digests the page's interactive elements into one line
// per element: tag, identifying attributes, and trimmed text.
func snapshotInteractive(page playwright.Page) (string, error) {
	const script = `() => {
		const picks = document.querySelectorAll(
			'button, input, select, textarea, a[href], [role=button], [role=tab], [role=menuitem]');
		const lines = [];
		for (const el of picks) {
			const rect = el.getBoundingClientRect();
			if (rect.width === 0 || rect.height === 0) continue;
			const parts = [el.tagName.toLowerCase()];
			if (el.id) parts.push('#' + el.id);
			if (el.name) parts.push('name=' + el.name);
			for (const attr of el.attributes) {
				if (attr.name.startsWith('data-test') || attr.name === 'aria-label') {
					parts.push(attr.name + '=' + attr.value);
				}
			}
			const text = (el.innerText || el.value || el.placeholder || '').trim().slice(0, 60);
			if (text) parts.push('text=' + JSON.stringify(text));
			lines.push(parts.join(' '));
			if (lines.length >= 200) break;
		}
		return lines.join('\n');
	}`
	result, err := page.Evaluate(script)
	if err != nil {
		return "", err
	}
	digest, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("unexpected snapshot result type %T", result)
	}
	if digest == "" {
		return "", fmt.Errorf("no interactive elements on page")
	}
	return digest, nil
}

func probeVisible(page playwright.Page, selector string) (playwright.Locator, error) {
	loc := page.Locator(selector).First()
	visible, err := loc.IsVisible()
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, fmt.Errorf("selector %q matched nothing visible", selector)
	}
	return loc, nil
}

func (f *Finder) debugf(format string, v ...interface{}) {
	if f.logger != nil {
		f.logger.Debugf(format, v...)
	}
}
