package github

import (
	"sort"
	"strings"
	"time"

	"github.com/google/go-github/v39/github"

	"github.com/reillywatson/reviewstats/internal/latency"
)

// eventTypes maps issue event names onto revision transaction types
var eventTypes = map[string]string{
	"convert_to_draft":      latency.TypePlanChanges,
	"closed":                latency.TypeClose,
	"ready_for_review":      latency.TypeRequestReview,
	"review_requested":      latency.TypeRequestReview,
	"reopened":              latency.TypeReopen,
	"head_ref_force_pushed": latency.TypeUpdate,
}

// BuildTransactions converts a pull request's history into the transaction
// log the latency engine consumes. Reviews by the author or by denylisted
// users don't count, and neither do reviews that carry no decision.
func BuildTransactions(pr *github.PullRequest, reviews []*github.PullRequestReview, events []*github.IssueEvent, denylist []string) []latency.Transaction {
	author := pr.GetUser().GetLogin()
	var txs []latency.Transaction

	if pr.CreatedAt != nil {
		txs = append(txs, transaction(latency.TypeCreate, pr.GetCreatedAt()))
		if createdAsDraft(pr, events) {
			txs = append(txs, transaction(latency.TypePlanChanges, pr.GetCreatedAt()))
		}
	}

	for _, review := range reviews {
		if review.SubmittedAt == nil {
			continue
		}
		reviewer := review.GetUser().GetLogin()
		if reviewer == author || isDenylisted(denylist, reviewer) {
			continue
		}

		switch review.GetState() {
		case reviewApproved:
			txs = append(txs, transaction(latency.TypeAccept, review.GetSubmittedAt()))
		case reviewChangesRequested:
			txs = append(txs, transaction(latency.TypeRequestChanges, review.GetSubmittedAt()))
		}
	}

	for _, event := range events {
		typ, ok := eventTypes[event.GetEvent()]
		if !ok || event.CreatedAt == nil {
			continue
		}
		txs = append(txs, transaction(typ, event.GetCreatedAt()))
	}

	return txs
}

// createdAsDraft reports whether the pull request started life as a draft.
// GitHub emits no event for that, so it's inferred from the first draft
// transition, or from the current draft flag when there is none.
func createdAsDraft(pr *github.PullRequest, events []*github.IssueEvent) bool {
	var transitions []*github.IssueEvent
	for _, event := range events {
		switch event.GetEvent() {
		case "convert_to_draft", "ready_for_review":
			if event.CreatedAt != nil {
				transitions = append(transitions, event)
			}
		}
	}

	if len(transitions) == 0 {
		return pr.GetDraft()
	}

	sort.SliceStable(transitions, func(i, j int) bool {
		return transitions[i].GetCreatedAt().Before(transitions[j].GetCreatedAt())
	})
	return transitions[0].GetEvent() == "ready_for_review"
}

// NeedsReview reports whether an open, non-draft pull request is still
// waiting on reviewers: nobody other than the author or a denylisted user has
// a standing approval or change request.
func NeedsReview(pr *github.PullRequest, reviews []*github.PullRequestReview, denylist []string) bool {
	if pr.GetState() != "open" || pr.GetDraft() {
		return false
	}

	author := pr.GetUser().GetLogin()
	sorted := make([]*github.PullRequestReview, 0, len(reviews))
	for _, review := range reviews {
		reviewer := review.GetUser().GetLogin()
		if review.SubmittedAt != nil && reviewer != author && !isDenylisted(denylist, reviewer) {
			sorted = append(sorted, review)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].GetSubmittedAt().Before(sorted[j].GetSubmittedAt())
	})

	standing := make(map[string]string)
	for _, review := range sorted {
		reviewer := review.GetUser().GetLogin()
		switch review.GetState() {
		case reviewApproved, reviewChangesRequested:
			standing[reviewer] = review.GetState()
		case reviewDismissed:
			delete(standing, reviewer)
		}
	}

	return len(standing) == 0
}

func transaction(typ string, at time.Time) latency.Transaction {
	return latency.Transaction{
		Type:         typ,
		DateCreated:  at.Unix(),
		DateModified: at.Unix(),
	}
}

func isDenylisted(denylist []string, login string) bool {
	for _, denied := range denylist {
		if denied != "" && strings.EqualFold(denied, login) {
			return true
		}
	}
	return false
}
