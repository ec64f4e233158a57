package github

import (
	"context"
	"errors"
	"time"

	"github.com/google/go-github/v39/github"
	"github.com/rs/zerolog"

	"github.com/reillywatson/reviewstats/internal/latency"
)

// ProcessPullRequests runs the latency engine over each pull request's
// reviews and events. now is the instant pending latency is measured at.
func ProcessPullRequests(ctx context.Context, client GitHubClientInterface, prs []*github.PullRequest, owner, repo string, denylist []string, now time.Time, log zerolog.Logger) []PullRequestMetric {
	var results []PullRequestMetric

	for _, pr := range prs {
		// Skip closed PRs that weren't merged
		if pr.GetState() == "closed" && pr.MergedAt == nil {
			continue
		}

		prAuthorLogin := pr.GetUser().GetLogin()
		if isDenylisted(denylist, prAuthorLogin) {
			continue
		}

		prLog := log.With().Int("pr", pr.GetNumber()).Logger()

		reviews, err := client.FetchPullRequestReviews(ctx, owner, repo, pr.GetNumber())
		if err != nil {
			prLog.Error().Err(err).Msg("error fetching reviews")
			continue
		}
		events, err := client.FetchIssueEvents(ctx, owner, repo, pr.GetNumber())
		if err != nil {
			prLog.Error().Err(err).Msg("error fetching events")
			continue
		}

		metric := PullRequestMetric{
			PRTitle:     pr.GetTitle(),
			PRNumber:    pr.GetNumber(),
			Author:      prAuthorLogin,
			NeedsReview: NeedsReview(pr, reviews, denylist),
		}
		summarizeReviews(&metric, pr, reviews, denylist)

		rev := latency.Revision{
			ID:           pr.GetNumber(),
			NeedsReview:  metric.NeedsReview,
			Transactions: BuildTransactions(pr, reviews, events, denylist),
		}
		metric.Result, err = latency.Compute(rev, now)
		if err != nil {
			if !errors.Is(err, latency.ErrMalformedTimeline) {
				prLog.Error().Err(err).Msg("error computing latency")
				continue
			}
			prLog.Warn().Err(err).Msg("malformed timeline")
		}

		results = append(results, metric)
	}

	return results
}

// summarizeReviews records the first review and the first approval
func summarizeReviews(metric *PullRequestMetric, pr *github.PullRequest, reviews []*github.PullRequestReview, denylist []string) {
	var firstReviewTime, firstApprovalTime *time.Time

	for _, review := range reviews {
		if review.SubmittedAt == nil {
			continue
		}
		submittedAt := review.GetSubmittedAt()
		reviewerUser := review.GetUser().GetLogin()
		reviewState := review.GetState()

		// Skip pending reviews and self-reviews
		if reviewState == reviewPending || reviewerUser == metric.Author {
			continue
		}
		if isDenylisted(denylist, reviewerUser) {
			continue
		}

		metric.HasReview = true

		if firstReviewTime == nil || submittedAt.Before(*firstReviewTime) {
			firstReviewTime = &submittedAt
			metric.FirstReviewer = reviewerUser
			metric.FirstReviewState = reviewState
		}

		if reviewState == reviewApproved {
			if firstApprovalTime == nil || submittedAt.Before(*firstApprovalTime) {
				firstApprovalTime = &submittedAt
				metric.Approver = reviewerUser
			}
		}
	}

	if firstApprovalTime != nil {
		metric.TimeToApproval = firstApprovalTime.Sub(pr.GetCreatedAt())
	}
}

// Results extracts the engine results in input order
func Results(metrics []PullRequestMetric) []latency.Result {
	results := make([]latency.Result, 0, len(metrics))
	for _, m := range metrics {
		results = append(results, m.Result)
	}
	return results
}
