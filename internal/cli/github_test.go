package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reillywatson/reviewstats/internal/config"
	"github.com/reillywatson/reviewstats/internal/latency"
	"github.com/reillywatson/reviewstats/internal/logger"
	"github.com/reillywatson/reviewstats/internal/metrics"
	"github.com/reillywatson/reviewstats/internal/report"
)

func TestParseRepo(t *testing.T) {
	owner, repo, err := parseRepo("octo/widgets")
	require.NoError(t, err)
	assert.Equal(t, "octo", owner)
	assert.Equal(t, "widgets", repo)

	for _, bad := range []string{"octo", "octo/", "/widgets", "a/b/c"} {
		_, _, err := parseRepo(bad)
		assert.Error(t, err, bad)
	}
}

func TestGitHubDateRange(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

	opts := &GitHubOptions{}
	start, end, err := opts.dateRange(now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -30), start)
	assert.Equal(t, now, end)

	opts = &GitHubOptions{Since: "2024-01-01", Until: "2024-02-01"}
	start, end, err = opts.dateRange(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), end)

	_, _, err = (&GitHubOptions{Since: "2024-02-01", Until: "2024-01-01"}).dateRange(now)
	assert.Error(t, err)

	_, _, err = (&GitHubOptions{Since: "01/02/2024"}).dateRange(now)
	assert.Error(t, err)
}

func TestGitHubDenylist(t *testing.T) {
	opts := &GitHubOptions{AnalysisOptions: AnalysisOptions{RootOptions: &RootOptions{}}, Exclude: "bot, ,ci-user"}
	opts.Config.GitHub.Denylist = []string{"renovate"}

	assert.Equal(t, []string{"renovate", "bot", "ci-user"}, opts.denylist())
}

func TestGitHubResultsReachMetrics(t *testing.T) {
	metricsPath := filepath.Join(t.TempDir(), "github.prom")
	opts := &GitHubOptions{AnalysisOptions: AnalysisOptions{
		RootOptions: &RootOptions{Format: "text", Config: config.Default(), Log: logger.Nop()},
		MetricsFile: metricsPath,
	}}

	waiting := 3 * time.Hour
	results := []latency.Result{{
		RevisionID:     42,
		PendingLatency: &waiting,
		State:          latency.StateExcluded,
		Diagnostics: []latency.Diagnostic{{
			Kind:       latency.KindInconsistentTimeline,
			RevisionID: 42,
			Message:    "Revision #42 is still a draft.",
		}},
	}}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	var out bytes.Buffer
	ctx := context.Background()
	err := opts.run(ctx, &out, now, metrics.NewMetrics(), func(a *report.Analyzer) (report.Batch, error) {
		return a.Collect(ctx, "#", results, now), nil
	})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "#42: waiting for 3h0m0s")
	assert.Contains(t, out.String(), "InconsistentTimeline: Revision #42 is still a draft.")

	exported, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(exported), `review_latency_diagnostics_total{kind="InconsistentTimeline"} 1`)
	assert.Contains(t, string(exported), `review_latency_revisions_total{outcome="computed"} 1`)
}

func TestGitHub_RequiresToken(t *testing.T) {
	configPath, _ := writeConfig(t, "")

	_, err := execute(t, "--config", configPath, "github", "octo/widgets")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDiagnostics_RequiresProject(t *testing.T) {
	configPath, _ := writeConfig(t, "")

	_, err := execute(t, "--config", configPath, "diagnostics")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCachePurge(t *testing.T) {
	configPath, _ := writeConfig(t, "")

	out, err := execute(t, "--config", configPath, "cache", "purge")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 cache entries")
}
