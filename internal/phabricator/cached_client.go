package phabricator

import (
	"context"
	"errors"
	"time"

	"github.com/reillywatson/reviewstats/internal/cache"
)

// Fetcher is implemented by both the raw and the caching Conduit client
type Fetcher interface {
	SearchRevisions(ctx context.Context, q Constraints) ([]Revision, error)
	SearchTransactions(ctx context.Context, objectPHID string) ([]Transaction, error)
	Fetch(ctx context.Context, q Constraints) ([]Revision, error)
}

// CachedClient wraps Client with caching of transaction logs. Revision
// searches always go to the server since they carry the modification time
// that decides whether a cached log is still current.
type CachedClient struct {
	client *Client
	cache  cache.Cache
	kb     *cache.CacheKeyBuilder
}

// cachedTransactions is the cache payload for one revision's log
type cachedTransactions struct {
	DateModified int64         `json:"date_modified"`
	Transactions []Transaction `json:"transactions"`
}

// NewCachedClient creates a new Conduit client with caching
func NewCachedClient(client *Client, cacheImpl cache.Cache) *CachedClient {
	return &CachedClient{
		client: client,
		cache:  cacheImpl,
		kb:     cache.NewCacheKeyBuilder("phabricator"),
	}
}

func (c *CachedClient) SearchRevisions(ctx context.Context, q Constraints) ([]Revision, error) {
	return c.client.SearchRevisions(ctx, q)
}

// SearchTransactions fetches a log with caching. Without a revision at hand
// there is no modification time to check, so entries are short-lived.
func (c *CachedClient) SearchTransactions(ctx context.Context, objectPHID string) ([]Transaction, error) {
	key := c.kb.TransactionsKey(objectPHID)

	var cached cachedTransactions
	if err := c.cache.Get(key, &cached); err == nil {
		return cached.Transactions, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		c.client.log.Warn().Err(err).Str("phid", objectPHID).Msg("cache error for transactions")
	}

	txs, err := c.client.SearchTransactions(ctx, objectPHID)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(key, cachedTransactions{Transactions: txs}, 1*time.Hour); err != nil {
		c.client.log.Warn().Err(err).Str("phid", objectPHID).Msg("failed to cache transactions")
	}
	return txs, nil
}

// Fetch returns revisions with transactions, reusing a cached log when the
// revision has not been modified since it was stored
func (c *CachedClient) Fetch(ctx context.Context, q Constraints) ([]Revision, error) {
	revs, err := c.client.SearchRevisions(ctx, q)
	if err != nil {
		return nil, err
	}

	hits := 0
	for i := range revs {
		rev := &revs[i]
		key := c.kb.TransactionsKey(rev.PHID)

		var cached cachedTransactions
		if err := c.cache.Get(key, &cached); err == nil && cached.DateModified == rev.Fields.DateModified {
			rev.Transactions = cached.Transactions
			hits++
			continue
		} else if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.client.log.Warn().Err(err).Int("revision", rev.ID).Msg("cache error for transactions")
		}

		txs, err := c.client.SearchTransactions(ctx, rev.PHID)
		if err != nil {
			return nil, err
		}
		rev.Transactions = txs

		entry := cachedTransactions{DateModified: rev.Fields.DateModified, Transactions: txs}
		if err := c.cache.Set(key, entry, c.transactionsTTL(*rev)); err != nil {
			c.client.log.Warn().Err(err).Int("revision", rev.ID).Msg("failed to cache transactions")
		}
	}

	c.client.log.Debug().Int("revisions", len(revs)).Int("cache_hits", hits).Msg("fetched revisions")
	return revs, nil
}

// transactionsTTL keeps logs of closed revisions longer; they rarely change
func (c *CachedClient) transactionsTTL(rev Revision) time.Duration {
	if rev.Closed() {
		return 24 * time.Hour
	}
	return 1 * time.Hour
}

// Close cleans up the client
func (c *CachedClient) Close() error {
	return c.cache.Close()
}
