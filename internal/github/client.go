package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v39/github"
	"golang.org/x/oauth2"
)

// GitHubClientInterface defines the interface for GitHub operations
type GitHubClientInterface interface {
	FetchPullRequests(ctx context.Context, owner, repo string, startDate, endDate time.Time) ([]*github.PullRequest, error)
	FetchPullRequestReviews(ctx context.Context, owner, repo string, prNumber int) ([]*github.PullRequestReview, error)
	FetchIssueEvents(ctx context.Context, owner, repo string, prNumber int) ([]*github.IssueEvent, error)
}

type GitHubClient struct {
	client *github.Client
}

func NewGitHubClient(token string) *GitHubClient {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	return &GitHubClient{
		client: github.NewClient(tc),
	}
}

// newGitHubClientWithBaseURL points the client at another API root, such as
// a GitHub Enterprise instance or a test server
func newGitHubClientWithBaseURL(httpClient *http.Client, baseURL string) (*GitHubClient, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	client := github.NewClient(httpClient)
	client.BaseURL = u
	return &GitHubClient{client: client}, nil
}

func (c *GitHubClient) FetchPullRequests(ctx context.Context, owner, repo string, startDate, endDate time.Time) ([]*github.PullRequest, error) {
	var allPRs []*github.PullRequest
	opts := &github.PullRequestListOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		prs, resp, err := c.client.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch pull requests: %w", err)
		}

		for _, pr := range prs {
			if !pr.GetCreatedAt().Before(startDate) && !pr.GetCreatedAt().After(endDate) {
				allPRs = append(allPRs, pr)
			}
		}

		if resp.NextPage == 0 || len(prs) == 0 {
			break
		}

		// Pages are newest first, so once a page ends before the range we're done
		lastPR := prs[len(prs)-1]
		if lastPR.GetCreatedAt().Before(startDate) {
			break
		}
		opts.Page = resp.NextPage
	}

	return allPRs, nil
}

func (c *GitHubClient) FetchPullRequestReviews(ctx context.Context, owner, repo string, prNumber int) ([]*github.PullRequestReview, error) {
	var allReviews []*github.PullRequestReview
	opts := &github.ListOptions{PerPage: 100}

	for {
		reviews, resp, err := c.client.PullRequests.ListReviews(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch pull request reviews: %w", err)
		}
		allReviews = append(allReviews, reviews...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allReviews, nil
}

// FetchIssueEvents fetches the issue events of a pull request, which carry
// its draft and review-request history
func (c *GitHubClient) FetchIssueEvents(ctx context.Context, owner, repo string, prNumber int) ([]*github.IssueEvent, error) {
	var allEvents []*github.IssueEvent
	opts := &github.ListOptions{PerPage: 100}

	for {
		events, resp, err := c.client.Issues.ListIssueEvents(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch events for PR #%d: %w", prNumber, err)
		}
		allEvents = append(allEvents, events...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allEvents, nil
}
