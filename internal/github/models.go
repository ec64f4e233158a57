package github

import (
	"time"

	"github.com/reillywatson/reviewstats/internal/latency"
)

// PullRequestMetric is the review-latency analysis of one pull request.
// Result.RevisionID carries the pull request number.
type PullRequestMetric struct {
	PRNumber int
	PRTitle  string
	Author   string

	FirstReviewer    string
	FirstReviewState string
	Approver         string
	TimeToApproval   time.Duration
	HasReview        bool
	NeedsReview      bool

	Result latency.Result
}

// Review states as reported by the pull request reviews API
const (
	reviewApproved         = "APPROVED"
	reviewChangesRequested = "CHANGES_REQUESTED"
	reviewDismissed        = "DISMISSED"
	reviewPending          = "PENDING"
)
