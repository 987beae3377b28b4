package automation

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evanramirez88/toast-automation/pkg/resolver"
)

// HealthStatus is the folded overall outcome of a health check.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthWarning   HealthStatus = "warning"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// HealthReport is the result of one back-office health check.
type HealthReport struct {
	Status            HealthStatus       `json:"status"`
	LoginSuccess      bool               `json:"loginSuccess"`
	MenuAccessible    bool               `json:"menuAccessible"`
	UIChangesDetected bool               `json:"uiChangesDetected"`
	ResponseTimeMs    int64              `json:"responseTimeMs"`
	SelectorHealth    map[string]float64 `json:"selectorHealth,omitempty"`
	ProbeFailures     []string           `json:"probeFailures,omitempty"`
	CheckedAt         time.Time          `json:"checkedAt"`
}

// CriticalPage lists the targets that must be visible for a page to count
// as working, plus the golden-copy baseline it is compared against.
type CriticalPage struct {
	Name        string            `yaml:"name"`
	Destination string            `yaml:"destination"`
	Baseline    string            `yaml:"baseline,omitempty"`
	Targets     []resolver.Target `yaml:"targets"`
}

// Registry is the set of pages a health check walks.
type Registry struct {
	Pages []CriticalPage `yaml:"pages"`
}

// LoadRegistry reads a registry from a YAML file. An empty path returns
// the built-in default registry.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return defaultRegistry(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	if len(reg.Pages) == 0 {
		return nil, fmt.Errorf("registry %s lists no pages", path)
	}
	return &reg, nil
}

// defaultRegistry covers the two pages every tenant depends on.
func defaultRegistry() *Registry {
	return &Registry{
		Pages: []CriticalPage{
			{
				Name:        "home",
				Destination: "home",
				Baseline:    "home",
				Targets: []resolver.Target{
					{Selector: "[data-testid=restaurant-name]", Description: "the restaurant name header", Fallbacks: []string{"header h1"}},
					{Selector: "[data-testid=nav-menus]", Description: "the Menus navigation entry", Fallbacks: []string{"nav a[href*='menus']"}},
				},
			},
			{
				Name:        "menus",
				Destination: "menus",
				Baseline:    "menus",
				Targets: []resolver.Target{
					{Selector: "[data-testid=menu-list]", Description: "the list of menus", Fallbacks: []string{"[class*='menu-list']", "table"}},
					{Selector: "[data-testid=add-menu-btn]", Description: "the button that adds a menu", Fallbacks: []string{"button[class*='add']"}},
				},
			},
		},
	}
}

// foldHealth reduces the individual health signals into one status.
// Login failure dominates everything; a page or probe failure degrades;
// UI drift alone is a warning.
func foldHealth(report *HealthReport) HealthStatus {
	switch {
	case !report.LoginSuccess:
		return HealthUnhealthy
	case !report.MenuAccessible || len(report.ProbeFailures) > 0:
		return HealthDegraded
	case report.UIChangesDetected:
		return HealthWarning
	default:
		return HealthHealthy
	}
}
