// Package goldencopy detects meaningful UI drift by comparing a page's
// structural fingerprint against a previously captured baseline. The
// fingerprint is a multiset of element signatures (tag plus identifying
// attributes, qualified by the parent tag) so cosmetic text changes do not
// register while markup restructuring does.
package goldencopy

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/net/html"

	"github.com/evanramirez88/toast-automation/pkg/logging"
	"github.com/evanramirez88/toast-automation/pkg/security/datadir"
)

const baselineSuffix = ".baseline.json"

// DefaultThreshold is the significance above which a page no longer
// matches its baseline.
const DefaultThreshold = 0.1

// Fingerprint is the structural multiset captured from one page.
type Fingerprint struct {
	CapturedAt time.Time      `json:"capturedAt"`
	Signatures map[string]int `json:"signatures"`
}

// Comparison is the outcome of checking a page against a baseline.
type Comparison struct {
	Match        bool    `json:"match"`
	Significance float64 `json:"significance"`
}

// Comparator captures and compares page baselines, one file per page name.
type Comparator struct {
	guard     *datadir.Guard
	threshold float64
	logger    *logging.Logger

	// content fetches the page's HTML; swapped out in tests.
	content func(page playwright.Page) (string, error)
}

// Option configures a Comparator.
type Option func(*Comparator)

// WithThreshold overrides the drift significance threshold.
func WithThreshold(threshold float64) Option {
	return func(c *Comparator) {
		c.threshold = threshold
	}
}

func NewComparator(dir string, logger *logging.Logger, opts ...Option) (*Comparator, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create baseline dir: %w", err)
	}
	guard, err := datadir.NewGuard(dir)
	if err != nil {
		return nil, err
	}
	c := &Comparator{
		guard:     guard,
		threshold: DefaultThreshold,
		logger:    logger,
		content:   pageContent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CaptureBaseline fingerprints the page and stores it under name,
// replacing any earlier baseline of the same name.
func (c *Comparator) CaptureBaseline(page playwright.Page, name string) error {
	path, err := c.baselinePath(name)
	if err != nil {
		return err
	}
	raw, err := c.content(page)
	if err != nil {
		return fmt.Errorf("read page content: %w", err)
	}
	fp, err := FingerprintHTML(raw)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(fp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode baseline %q: %w", name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write baseline %q: %w", name, err)
	}
	c.infof("captured baseline %q (%d signatures)", name, len(fp.Signatures))
	return nil
}

// CompareToBaseline fingerprints the page and scores its drift from the
// stored baseline. A missing baseline is an error; capture one first.
func (c *Comparator) CompareToBaseline(page playwright.Page, name string) (Comparison, error) {
	path, err := c.baselinePath(name)
	if err != nil {
		return Comparison{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Comparison{}, fmt.Errorf("read baseline %q: %w", name, err)
	}
	var baseline Fingerprint
	if err := json.Unmarshal(data, &baseline); err != nil {
		return Comparison{}, fmt.Errorf("decode baseline %q: %w", name, err)
	}

	raw, err := c.content(page)
	if err != nil {
		return Comparison{}, fmt.Errorf("read page content: %w", err)
	}
	current, err := FingerprintHTML(raw)
	if err != nil {
		return Comparison{}, err
	}

	significance := Drift(baseline, current)
	cmp := Comparison{
		Match:        significance <= c.threshold,
		Significance: significance,
	}
	if !cmp.Match {
		c.warnf("page %q drifted from baseline (significance %.3f)", name, significance)
	}
	return cmp, nil
}

// HasBaseline reports whether a baseline exists for name.
func (c *Comparator) HasBaseline(name string) bool {
	path, err := c.baselinePath(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// baselinePath resolves the baseline file for name through the directory
// guard; registry-supplied names cannot escape the baseline directory.
func (c *Comparator) baselinePath(name string) (string, error) {
	return c.guard.Join(name + baselineSuffix)
}

// FingerprintHTML parses raw HTML into its structural fingerprint.
func FingerprintHTML(raw string) (Fingerprint, error) {
	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return Fingerprint{}, fmt.Errorf("parse page html: %w", err)
	}

	signatures := make(map[string]int)
	var walk func(n *html.Node, parentTag string)
	walk = func(n *html.Node, parentTag string) {
		tag := parentTag
		if n.Type == html.ElementNode {
			signatures[signature(n, parentTag)]++
			tag = n.Data
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child, tag)
		}
	}
	walk(root, "")

	return Fingerprint{CapturedAt: time.Now().UTC(), Signatures: signatures}, nil
}

// signature distills one element into a stable structural identity. Only
// attributes that identify the element's purpose participate; styling and
// free text do not.
func signature(n *html.Node, parentTag string) string {
	parts := []string{n.Data}
	var attrs []string
	for _, a := range n.Attr {
		switch {
		case a.Key == "id", a.Key == "name", a.Key == "role", a.Key == "type",
			strings.HasPrefix(a.Key, "data-test"):
			attrs = append(attrs, a.Key+"="+a.Val)
		}
	}
	sort.Strings(attrs)
	parts = append(parts, attrs...)
	return parentTag + ">" + strings.Join(parts, " ")
}

// Drift scores how far current has moved from baseline: 0 means
// structurally identical, 1 means nothing in common.
func Drift(baseline, current Fingerprint) float64 {
	baseTotal := total(baseline.Signatures)
	curTotal := total(current.Signatures)
	if baseTotal == 0 && curTotal == 0 {
		return 0
	}

	shared := 0
	for sig, n := range baseline.Signatures {
		if m, ok := current.Signatures[sig]; ok {
			shared += min(n, m)
		}
	}

	largest := baseTotal
	if curTotal > largest {
		largest = curTotal
	}
	return 1 - float64(shared)/float64(largest)
}

func total(signatures map[string]int) int {
	sum := 0
	for _, n := range signatures {
		sum += n
	}
	return sum
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func pageContent(page playwright.Page) (string, error) {
	return page.Content()
}

func (c *Comparator) infof(format string, v ...interface{}) {
	if c.logger != nil {
		c.logger.Infof(format, v...)
	}
}

func (c *Comparator) warnf(format string, v ...interface{}) {
	if c.logger != nil {
		c.logger.Warnf(format, v...)
	}
}
