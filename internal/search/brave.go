package search

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/agenthands/truthseeker/internal/cache"
	"github.com/agenthands/truthseeker/internal/core/model"
	"github.com/agenthands/truthseeker/internal/logging"
	"github.com/agenthands/truthseeker/internal/metrics"
	"github.com/cenkalti/backoff/v5"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	DefaultEndpoint = "https://api.search.brave.com/res/v1/web/search"
	DefaultCount    = 5
	MaxCount        = 10

	placeholderTitle       = "Test Result"
	placeholderDescription = "This is a test web search result. Please provide a Brave API key to get real search results."
	placeholderURL         = "https://example.com"
)

type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialInterval: time.Second, MaxInterval: 10 * time.Second}
}

type Options struct {
	// APIKey empty switches the client into placeholder mode.
	APIKey     string
	Endpoint   string
	HTTPClient *http.Client
	Cache      *cache.EvidenceCache
	Retry      RetryPolicy
	// RateLimit caps outbound requests per second. Zero means unlimited.
	RateLimit float64
	Logger    logrus.FieldLogger
	Metrics   *metrics.Metrics
}

// BraveClient fronts the Brave web search API with the evidence cache.
type BraveClient struct {
	apiKey   string
	endpoint string
	http     *http.Client
	cache    *cache.EvidenceCache
	retry    RetryPolicy
	limiter  *rate.Limiter
	strip    *bluemonday.Policy
	group    singleflight.Group
	flights  flights
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
}

func NewBraveClient(opts Options) *BraveClient {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 20 * time.Second}
	}
	if opts.Cache == nil {
		opts.Cache = cache.New(context.Background(), cache.Options{TTL: 300 * time.Second})
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry = DefaultRetryPolicy()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &BraveClient{
		apiKey:   opts.APIKey,
		endpoint: opts.Endpoint,
		http:     opts.HTTPClient,
		cache:    opts.Cache,
		retry:    opts.Retry,
		limiter:  limiter,
		strip:    bluemonday.StrictPolicy(),
		log:      logging.Component(opts.Logger, "search"),
		metrics:  opts.Metrics,
	}
}

// Search returns web results for query. count is clamped to [1, 10]. Results come from the cache
// when a fresh entry exists; concurrent misses on the same key share one upstream request, and a
// caller that gives up does not fail the others.
func (c *BraveClient) Search(ctx context.Context, query string, count int, lang string) ([]model.SearchResult, error) {
	count = clampCount(count)
	if lang == "" {
		lang = "en"
	}
	key := cache.Key(query, count, lang)

	if results, ok := c.cache.Get(key); ok {
		c.log.WithFields(logrus.Fields{"query": query, "count": count, "lang": lang}).Debug("Cache hit")
		c.metrics.SearchOutcome("hit")
		return results, nil
	}

	for {
		fl := c.flights.join(key, c.detach(ctx))
		ch := c.group.DoChan(key, func() (any, error) {
			if results, ok := c.cache.Get(key); ok {
				c.metrics.SearchOutcome("hit")
				return results, nil
			}

			if c.apiKey == "" {
				placeholder := []model.SearchResult{{
					Title:       placeholderTitle,
					Description: placeholderDescription,
					URL:         placeholderURL,
				}}
				c.cache.Set(key, placeholder)
				c.metrics.SearchOutcome("placeholder")
				return placeholder, nil
			}

			results, err := c.fetch(fl.ctx, query, count, lang)
			if err != nil {
				c.metrics.SearchOutcome("error")
				return nil, err
			}
			c.cache.Set(key, results)
			c.metrics.SearchOutcome("miss")
			return results, nil
		})

		select {
		case res := <-ch:
			c.flights.leave(key, fl)
			// Joined a fetch that every earlier caller abandoned. Start a fresh one.
			if errors.Is(res.Err, context.Canceled) && ctx.Err() == nil {
				continue
			}
			if res.Err != nil {
				return nil, res.Err
			}
			return slices.Clone(res.Val.([]model.SearchResult)), nil
		case <-ctx.Done():
			c.flights.leave(key, fl)
			c.metrics.SearchOutcome("cancelled")
			return nil, fmt.Errorf("brave search %q: %w", query, ctx.Err())
		}
	}
}

// detach keeps ctx values but not its cancellation. The shared fetch is bounded by the retry
// budget: every attempt may take the full client timeout plus the longest backoff wait.
func (c *BraveClient) detach(ctx context.Context) func() (context.Context, context.CancelFunc) {
	return func() (context.Context, context.CancelFunc) {
		ctx := context.WithoutCancel(ctx)
		if c.http.Timeout <= 0 {
			return context.WithCancel(ctx)
		}
		budget := time.Duration(c.retry.MaxAttempts) * (c.http.Timeout + c.retry.MaxInterval)
		return context.WithTimeout(ctx, budget)
	}
}

func (c *BraveClient) fetch(ctx context.Context, query string, count int, lang string) ([]model.SearchResult, error) {
	start := time.Now()

	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		return c.do(ctx, query, count, lang)
	},
		backoff.WithBackOff(&backoff.ExponentialBackOff{
			InitialInterval:     c.retry.InitialInterval,
			RandomizationFactor: 0,
			Multiplier:          2,
			MaxInterval:         c.retry.MaxInterval,
		}),
		backoff.WithMaxTries(uint(c.retry.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.log.WithError(err).WithField("retry_in", next).Warn("Brave search failed, retrying")
		}),
	)
	elapsed := time.Since(start)
	c.metrics.ObserveSearch(elapsed)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Unwrap()
		}
		c.log.WithError(err).WithField("query", query).Error("Brave search failed")
		return nil, fmt.Errorf("brave search %q: %w", query, err)
	}

	return c.mapResults(body, elapsed.Seconds()), nil
}

func (c *BraveClient) do(ctx context.Context, query string, count int, lang string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, backoff.Permanent(err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))
	params.Set("text_decorations", "true")
	params.Set("search_lang", lang)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("X-Subscription-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
		if !statusErr.Retryable() {
			return nil, backoff.Permanent(statusErr)
		}
		return nil, statusErr
	}

	if !gjson.ValidBytes(body) {
		return nil, backoff.Permanent(errors.New("brave search returned invalid JSON"))
	}
	return body, nil
}

// mapResults converts web.results[]. Missing fields get sentinel values and items
// that still do not validate are skipped.
func (c *BraveClient) mapResults(body []byte, queryTime float64) []model.SearchResult {
	results := []model.SearchResult{}

	gjson.GetBytes(body, "web.results").ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			c.log.WithField("item", item.Raw).Warn("Skipping malformed search result item")
			return true
		}

		r, err := model.NewSearchResult(
			c.clean(field(item, "title", "No title")),
			c.clean(field(item, "description", "No description available")),
			field(item, "url", placeholderURL),
			queryTime,
		)
		if err != nil {
			c.log.WithError(err).WithField("item", item.Raw).Warn("Skipping malformed search result item")
			return true
		}
		results = append(results, r)
		return true
	})
	return results
}

// clean removes the <strong> highlighting Brave adds with text_decorations.
func (c *BraveClient) clean(s string) string {
	return html.UnescapeString(c.strip.Sanitize(s))
}

func field(item gjson.Result, name, fallback string) string {
	v := item.Get(name)
	if !v.Exists() || v.Type == gjson.Null {
		return fallback
	}
	return v.String()
}

func clampCount(count int) int {
	switch {
	case count < 1:
		return 1
	case count > MaxCount:
		return MaxCount
	default:
		return count
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
