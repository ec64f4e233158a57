package github

import (
	"context"
	"errors"
	"time"

	"github.com/google/go-github/v39/github"
	"github.com/rs/zerolog"

	"github.com/reillywatson/reviewstats/internal/cache"
)

// CachedGitHubClient wraps GitHubClient with caching capabilities
type CachedGitHubClient struct {
	client GitHubClientInterface
	cache  cache.Cache
	kb     *cache.CacheKeyBuilder
	log    zerolog.Logger
	now    func() time.Time
}

// NewCachedGitHubClient creates a new GitHub client with caching
func NewCachedGitHubClient(token string, cacheImpl cache.Cache, log zerolog.Logger) *CachedGitHubClient {
	return newCachedGitHubClient(NewGitHubClient(token), cacheImpl, log)
}

func newCachedGitHubClient(client GitHubClientInterface, cacheImpl cache.Cache, log zerolog.Logger) *CachedGitHubClient {
	return &CachedGitHubClient{
		client: client,
		cache:  cacheImpl,
		kb:     cache.NewCacheKeyBuilder("github"),
		log:    log,
		now:    time.Now,
	}
}

// FetchPullRequests fetches pull requests with caching
func (c *CachedGitHubClient) FetchPullRequests(ctx context.Context, owner, repo string, startDate, endDate time.Time) ([]*github.PullRequest, error) {
	cacheKey := c.kb.PRsListKey(owner, repo, startDate, endDate)
	var cachedPRs []*github.PullRequest
	if err := c.cache.Get(cacheKey, &cachedPRs); err == nil {
		return cachedPRs, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		c.log.Warn().Err(err).Msg("cache error for PRs list")
	}

	prs, err := c.client.FetchPullRequests(ctx, owner, repo, startDate, endDate)
	if err != nil {
		return nil, err
	}

	// Use longer TTL for historical data, shorter for recent data
	ttl := c.calculatePRListTTL(endDate)
	if err := c.cache.Set(cacheKey, prs, ttl); err != nil {
		c.log.Warn().Err(err).Msg("failed to cache PRs list")
	}

	// Also cache individual PRs if they're in a cacheable state
	for _, pr := range prs {
		if c.isPRCacheable(pr) {
			prKey := c.kb.PRKey(owner, repo, pr.GetNumber())
			if err := c.cache.Set(prKey, pr, 24*time.Hour); err != nil {
				c.log.Warn().Err(err).Int("pr", pr.GetNumber()).Msg("failed to cache individual PR")
			}
		}
	}

	return prs, nil
}

// FetchPullRequestReviews fetches PR reviews with caching
func (c *CachedGitHubClient) FetchPullRequestReviews(ctx context.Context, owner, repo string, prNumber int) ([]*github.PullRequestReview, error) {
	cacheKey := c.kb.PRReviewsKey(owner, repo, prNumber)
	var cachedReviews []*github.PullRequestReview
	if err := c.cache.Get(cacheKey, &cachedReviews); err == nil {
		return cachedReviews, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		c.log.Warn().Err(err).Int("pr", prNumber).Msg("cache error for PR reviews")
	}

	reviews, err := c.client.FetchPullRequestReviews(ctx, owner, repo, prNumber)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(cacheKey, reviews, c.historyTTL(owner, repo, prNumber)); err != nil {
		c.log.Warn().Err(err).Int("pr", prNumber).Msg("failed to cache PR reviews")
	}
	return reviews, nil
}

// FetchIssueEvents fetches PR events with caching
func (c *CachedGitHubClient) FetchIssueEvents(ctx context.Context, owner, repo string, prNumber int) ([]*github.IssueEvent, error) {
	cacheKey := c.kb.PREventsKey(owner, repo, prNumber)
	var cachedEvents []*github.IssueEvent
	if err := c.cache.Get(cacheKey, &cachedEvents); err == nil {
		return cachedEvents, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		c.log.Warn().Err(err).Int("pr", prNumber).Msg("cache error for PR events")
	}

	events, err := c.client.FetchIssueEvents(ctx, owner, repo, prNumber)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(cacheKey, events, c.historyTTL(owner, repo, prNumber)); err != nil {
		c.log.Warn().Err(err).Int("pr", prNumber).Msg("failed to cache PR events")
	}
	return events, nil
}

// historyTTL keeps the history of a closed PR for a day; an open PR may
// still change, so its history is only kept for an hour
func (c *CachedGitHubClient) historyTTL(owner, repo string, prNumber int) time.Duration {
	var pr *github.PullRequest
	if err := c.cache.Get(c.kb.PRKey(owner, repo, prNumber), &pr); err == nil && c.isPRCacheable(pr) {
		return 24 * time.Hour
	}
	return 1 * time.Hour
}

// isPRCacheable determines if a PR is in a state that can be cached long-term
func (c *CachedGitHubClient) isPRCacheable(pr *github.PullRequest) bool {
	if pr == nil {
		return false
	}
	return pr.GetState() == "closed"
}

// calculatePRListTTL calculates TTL for PR list cache based on how recent the data is
func (c *CachedGitHubClient) calculatePRListTTL(endDate time.Time) time.Duration {
	daysSinceEnd := c.now().Sub(endDate).Hours() / 24

	// Historical data (older than 7 days): cache for 24 hours
	if daysSinceEnd > 7 {
		return 24 * time.Hour
	}

	// Recent data (last 7 days): cache for 1 hour
	return 1 * time.Hour
}

// Close cleans up the client
func (c *CachedGitHubClient) Close() error {
	return c.cache.Close()
}
