package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/reillywatson/reviewstats/internal/cache"
	"github.com/reillywatson/reviewstats/internal/github"
	"github.com/reillywatson/reviewstats/internal/metrics"
	"github.com/reillywatson/reviewstats/internal/report"
)

// GitHubOptions holds flags for the github command.
type GitHubOptions struct {
	AnalysisOptions
	Since   string
	Until   string
	Exclude string
}

// NewGitHubCommand creates the github command.
func NewGitHubCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GitHubOptions{AnalysisOptions: AnalysisOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "github owner/repo",
		Short: "Compute review latency for GitHub pull requests",
		Long: `Compute review latency for pull requests created in a date range.

Draft time counts like "changes planned": it is excluded from time to first
review when the pull request was marked ready before the review.

Examples:
  review-latency github octo/widgets
  review-latency github octo/widgets --since 2024-01-01 --until 2024-02-01 --exclude dependabot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGitHub(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Since, "since", "", "start date in YYYY-MM-DD format (defaults to 30 days ago)")
	cmd.Flags().StringVar(&opts.Until, "until", "", "end date in YYYY-MM-DD format (defaults to now)")
	cmd.Flags().StringVar(&opts.Exclude, "exclude", "", "comma-separated list of GitHub usernames to ignore")
	opts.addFlags(cmd)

	return cmd
}

func parseRepo(arg string) (owner, repo string, err error) {
	parts := strings.Split(arg, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q, use 'owner/repo'", arg)
	}
	return parts[0], parts[1], nil
}

// dateRange resolves --since/--until against now
func (o *GitHubOptions) dateRange(now time.Time) (time.Time, time.Time, error) {
	startDate := now.AddDate(0, 0, -30)
	if o.Since != "" {
		parsed, err := time.Parse("2006-01-02", o.Since)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --since, use YYYY-MM-DD: %w", err)
		}
		startDate = parsed
	}

	endDate := now
	if o.Until != "" {
		parsed, err := time.Parse("2006-01-02", o.Until)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --until, use YYYY-MM-DD: %w", err)
		}
		endDate = parsed
	}

	if startDate.After(endDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("start date cannot be after end date")
	}
	return startDate, endDate, nil
}

func (o *GitHubOptions) denylist() []string {
	denylist := append([]string(nil), o.Config.GitHub.Denylist...)
	for _, login := range strings.Split(o.Exclude, ",") {
		if login = strings.TrimSpace(login); login != "" {
			denylist = append(denylist, login)
		}
	}
	return denylist
}

func runGitHub(opts *GitHubOptions, cmd *cobra.Command, repoArg string) error {
	ctx := cmd.Context()

	owner, repo, err := parseRepo(repoArg)
	if err != nil {
		return WrapExitError(ExitCommandError, "bad arguments", err)
	}
	now, err := opts.parseNow(opts.Now)
	if err != nil {
		return WrapExitError(ExitCommandError, "bad arguments", err)
	}
	startDate, endDate, err := opts.dateRange(now)
	if err != nil {
		return WrapExitError(ExitCommandError, "bad arguments", err)
	}

	if opts.Config.GitHub.Token == "" {
		return NewExitError(ExitCommandError, "GITHUB_TOKEN environment variable not set")
	}

	// With caching disabled entries live for this run only
	var cacheImpl cache.Cache = cache.NewMemoryCache()
	if !opts.Config.Cache.Disabled {
		fileCache, err := cache.NewDefaultCache(opts.Config.Cache.Dir)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create cache", err)
		}
		cacheImpl = fileCache
	}

	log := opts.component("github")
	client := github.NewCachedGitHubClient(opts.Config.GitHub.Token, cacheImpl, log)
	defer client.Close()

	log.Info().Str("repo", repoArg).Time("since", startDate).Time("until", endDate).Msg("fetching pull requests")
	prs, err := client.FetchPullRequests(ctx, owner, repo, startDate, endDate)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to fetch pull requests", err)
	}
	log.Info().Int("pull_requests", len(prs)).Msg("found pull requests")

	results := github.ProcessPullRequests(ctx, client, prs, owner, repo, opts.denylist(), now, log)

	if opts.Format == "text" {
		printPullRequests(cmd.OutOrStdout(), results)
	}
	return opts.run(ctx, cmd.OutOrStdout(), now, metrics.NewMetrics(), func(a *report.Analyzer) (report.Batch, error) {
		return a.Collect(ctx, "#", github.Results(results), now), nil
	})
}

// printPullRequests lists who reviewed and approved each pull request
func printPullRequests(w io.Writer, results []github.PullRequestMetric) {
	fmt.Fprintln(w, "Pull Requests:")
	fmt.Fprintln(w, "--------------")
	if len(results) == 0 {
		fmt.Fprintln(w, "  None found")
	}
	for _, r := range results {
		fmt.Fprintf(w, "PR #%d: %s (by %s)\n", r.PRNumber, r.PRTitle, r.Author)
		if r.HasReview {
			fmt.Fprintf(w, "  First review by %s - %s\n", r.FirstReviewer, r.FirstReviewState)
		}
		if r.Approver != "" {
			fmt.Fprintf(w, "  Approved by %s after %v\n", r.Approver, r.TimeToApproval.Truncate(time.Second))
		}
	}
	fmt.Fprintln(w)
}
