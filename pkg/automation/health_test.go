package automation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldHealth(t *testing.T) {
	tests := []struct {
		name   string
		report HealthReport
		want   HealthStatus
	}{
		{
			name:   "everything fine",
			report: HealthReport{LoginSuccess: true, MenuAccessible: true},
			want:   HealthHealthy,
		},
		{
			name:   "login failed dominates",
			report: HealthReport{LoginSuccess: false, MenuAccessible: true, UIChangesDetected: true},
			want:   HealthUnhealthy,
		},
		{
			name:   "menus unreachable",
			report: HealthReport{LoginSuccess: true, MenuAccessible: false},
			want:   HealthDegraded,
		},
		{
			name: "probe failures degrade",
			report: HealthReport{
				LoginSuccess:   true,
				MenuAccessible: true,
				ProbeFailures:  []string{"menus: target \"#add\" not resolvable"},
			},
			want: HealthDegraded,
		},
		{
			name:   "ui drift alone warns",
			report: HealthReport{LoginSuccess: true, MenuAccessible: true, UIChangesDetected: true},
			want:   HealthWarning,
		},
		{
			name: "probe failure outranks drift",
			report: HealthReport{
				LoginSuccess:      true,
				MenuAccessible:    true,
				UIChangesDetected: true,
				ProbeFailures:     []string{"home: gone"},
			},
			want: HealthDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, foldHealth(&tt.report))
		})
	}
}

func TestLoadRegistryDefault(t *testing.T) {
	reg, err := LoadRegistry("")
	require.NoError(t, err)

	require.NotEmpty(t, reg.Pages)
	names := make([]string, 0, len(reg.Pages))
	for _, p := range reg.Pages {
		names = append(names, p.Name)
		assert.NotEmpty(t, p.Targets, "page %s needs at least one probe target", p.Name)
	}
	assert.Contains(t, names, "home")
	assert.Contains(t, names, "menus")
}

func TestLoadRegistryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pages:
  - name: reports
    destination: reports
    baseline: reports
    targets:
      - selector: "[data-testid=sales-summary]"
        description: the sales summary widget
        fallbacks:
          - "#sales-summary"
`), 0o644))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)

	require.Len(t, reg.Pages, 1)
	page := reg.Pages[0]
	assert.Equal(t, "reports", page.Name)
	assert.Equal(t, "reports", page.Baseline)
	require.Len(t, page.Targets, 1)
	assert.Equal(t, "[data-testid=sales-summary]", page.Targets[0].Selector)
	assert.Equal(t, []string{"#sales-summary"}, page.Targets[0].Fallbacks)
}

func TestLoadRegistryRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pages: []\n"), 0o644))

	_, err := LoadRegistry(path)
	assert.ErrorContains(t, err, "no pages")
}

func TestLoadRegistryMissingFile(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
