package phabricator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout        = 30 * time.Second
	transactionsPageLimit = 1000

	maxRetryAttempts  = 9
	initialRetryDelay = 2 * time.Second
	maxRetryDelay     = 5 * time.Minute
)

// ErrConduit matches every error reported by the Conduit API itself
var ErrConduit = errors.New("conduit error")

// ConduitError is an application-level error returned in a Conduit response envelope
type ConduitError struct {
	Method string
	Code   string
	Info   string
}

func (e *ConduitError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Method, e.Code, e.Info)
}

func (e *ConduitError) Unwrap() error {
	return ErrConduit
}

// retryableError marks failures worth another attempt: transport errors,
// rate limiting and server errors
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Recorder receives one observation per Conduit HTTP attempt
type Recorder interface {
	ConduitRequest(method, status string, duration time.Duration)
}

// Client talks to a Phabricator instance's Conduit API
type Client struct {
	httpClient *http.Client
	token      string
	baseURL    string
	log        zerolog.Logger
	recorder   Recorder

	attempts   uint
	retryDelay time.Duration
}

// NewClient creates a Conduit client for baseURL authenticated with an API token
func NewClient(baseURL, token string, log zerolog.Logger, recorder Recorder) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		token:      token,
		baseURL:    strings.TrimRight(baseURL, "/"),
		log:        log,
		recorder:   recorder,
		attempts:   maxRetryAttempts,
		retryDelay: initialRetryDelay,
	}
}

type envelope struct {
	Result    json.RawMessage `json:"result"`
	ErrorCode *string         `json:"error_code"`
	ErrorInfo *string         `json:"error_info"`
}

type cursor struct {
	After *string `json:"after"`
}

type searchPage[T any] struct {
	Data   []T    `json:"data"`
	Cursor cursor `json:"cursor"`
}

// call invokes a Conduit method, retrying transient failures with exponential backoff
func (c *Client) call(ctx context.Context, method string, params map[string]interface{}, result interface{}) error {
	payload := make(map[string]interface{}, len(params)+1)
	for k, v := range params {
		payload[k] = v
	}
	payload["__conduit__"] = map[string]string{"token": c.token}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s params: %w", method, err)
	}

	form := url.Values{}
	form.Set("params", string(encoded))
	form.Set("output", "json")
	form.Set("__conduit__", "1")

	var body []byte
	err = retry.Do(
		func() error {
			var err error
			body, err = c.post(ctx, method, form)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn().Str("method", method).Uint("attempt", n+1).Uint("max_attempts", c.attempts).Err(err).Msg("conduit request failed, retrying")
		}),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var re *retryableError
			return errors.As(err, &re)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", method, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if env.ErrorCode != nil {
		info := ""
		if env.ErrorInfo != nil {
			info = *env.ErrorInfo
		}
		return &ConduitError{Method: method, Code: *env.ErrorCode, Info: info}
	}

	if err := json.Unmarshal(env.Result, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, method string, form url.Values) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/api/%s", c.baseURL, method)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, "error", start)
		return nil, &retryableError{fmt.Errorf("failed to make request to %s: %w", endpoint, err)}
	}
	defer resp.Body.Close()

	c.observe(method, fmt.Sprintf("%d", resp.StatusCode), start)

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("API returned status %d for %s: %s", resp.StatusCode, endpoint, resp.Status)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &retryableError{err}
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retryableError{fmt.Errorf("failed to read response from %s: %w", endpoint, err)}
	}
	return body, nil
}

func (c *Client) observe(method, status string, start time.Time) {
	if c.recorder != nil {
		c.recorder.ConduitRequest(method, status, time.Since(start))
	}
}

// searchAll follows a *.search method's cursor until the last page
func searchAll[T any](ctx context.Context, c *Client, method string, params map[string]interface{}) ([]T, error) {
	var all []T
	var after *string

	for {
		pageParams := make(map[string]interface{}, len(params)+1)
		for k, v := range params {
			pageParams[k] = v
		}
		if after != nil {
			pageParams["after"] = *after
		}

		var page searchPage[T]
		if err := c.call(ctx, method, pageParams, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Data...)

		if page.Cursor.After == nil || *page.Cursor.After == "" {
			break
		}
		after = page.Cursor.After
	}

	return all, nil
}

// SearchTransactions returns the complete transaction log of one object
func (c *Client) SearchTransactions(ctx context.Context, objectPHID string) ([]Transaction, error) {
	txs, err := searchAll[Transaction](ctx, c, "transaction.search", map[string]interface{}{
		"objectIdentifier": objectPHID,
		"limit":            transactionsPageLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions for %s: %w", objectPHID, err)
	}
	return txs, nil
}

// Constraints selects revisions for SearchRevisions. Exactly one of IDs and
// ModifiedStart must be set.
type Constraints struct {
	IDs           []int
	ModifiedStart time.Time
}

func (q Constraints) params() (map[string]interface{}, error) {
	hasIDs := len(q.IDs) > 0
	hasModified := !q.ModifiedStart.IsZero()
	if hasIDs == hasModified {
		return nil, errors.New("exactly one of revision ids or modified start must be given")
	}

	if hasIDs {
		return map[string]interface{}{"ids": q.IDs}, nil
	}
	return map[string]interface{}{"modifiedStart": q.ModifiedStart.Unix()}, nil
}

// SearchRevisions returns revisions matching q, without transactions
func (c *Client) SearchRevisions(ctx context.Context, q Constraints) ([]Revision, error) {
	constraints, err := q.params()
	if err != nil {
		return nil, err
	}

	revs, err := searchAll[Revision](ctx, c, "differential.revision.search", map[string]interface{}{
		"constraints": constraints,
		"attachments": map[string]bool{"projects": true, "reviewers": true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search revisions: %w", err)
	}
	return revs, nil
}

// Fetch returns the revisions matching q with their transaction logs attached
func (c *Client) Fetch(ctx context.Context, q Constraints) ([]Revision, error) {
	revs, err := c.SearchRevisions(ctx, q)
	if err != nil {
		return nil, err
	}

	for i := range revs {
		txs, err := c.SearchTransactions(ctx, revs[i].PHID)
		if err != nil {
			return nil, err
		}
		revs[i].Transactions = txs
	}

	c.log.Debug().Int("revisions", len(revs)).Msg("fetched revisions")
	return revs, nil
}
