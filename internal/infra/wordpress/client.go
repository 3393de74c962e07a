// Package wordpress implements domain.SourceClient against WordPress-like
// paginated REST listing APIs.
package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"component-catalog-service/internal/domain"
	"component-catalog-service/internal/infra/breaker"
)

// DefaultNamespace is the REST route prefix of a standard WordPress install.
const DefaultNamespace = "wp-json/wp/v2"

// Pagination headers sent by WordPress. The header-based count is
// authoritative for next-page detection; the page-full heuristic
// (len(items) == perPage) applies only when a source omits both headers,
// since the heuristic misfires when the last page is exactly full.
const (
	headerTotal      = "X-WP-Total"
	headerTotalPages = "X-WP-TotalPages"
)

const (
	categoriesPerPage = 100
	defaultPerPage    = 50

	// maxListingPages caps FetchAll so a source reporting bogus totals
	// cannot keep the crawl going forever.
	maxListingPages = 50
)

// ClientConfig holds configuration shared by all source requests.
type ClientConfig struct {
	Timeout   time.Duration
	Retry     RetryConfig
	PageDelay time.Duration // politeness delay between page requests within one source
	UserAgent string
}

// RetryConfig holds transport-level retry configuration.
type RetryConfig struct {
	MaxAttempts int
	WaitTime    time.Duration
	MaxWaitTime time.Duration
}

// Client implements domain.SourceClient. One client serves every configured
// source; per-source isolation happens in the breaker registry.
type Client struct {
	http      *resty.Client
	breakers  *breaker.Registry[*resty.Response]
	pageDelay time.Duration
	logger    *zap.Logger
}

// NewClient creates a source client with retry configuration.
func NewClient(cfg ClientConfig, breakers *breaker.Registry[*resty.Response], logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retry.MaxAttempts).
		SetRetryWaitTime(cfg.Retry.WaitTime).
		SetRetryMaxWaitTime(cfg.Retry.MaxWaitTime).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Retry on network errors or 5xx status codes
			if err != nil {
				return true
			}

			return r.StatusCode() >= 500
		})

	if cfg.UserAgent != "" {
		httpClient.SetHeader("User-Agent", cfg.UserAgent)
	}

	pageDelay := cfg.PageDelay
	if pageDelay == 0 {
		pageDelay = 750 * time.Millisecond
	}

	return &Client{
		http:      httpClient,
		breakers:  breakers,
		pageDelay: pageDelay,
		logger:    logger,
	}
}

// HTTPClient exposes the underlying resty client for transport mocking in
// tests.
func (c *Client) HTTPClient() *resty.Client {
	return c.http
}

// FetchPage retrieves one listing page from a source. Every failure comes
// back as a classified *domain.SourceError; the circuit breaker counts
// rejections, timeouts, and malformed payloads alike.
func (c *Client) FetchPage(ctx context.Context, source *domain.Source, req domain.PageRequest) (*domain.PageResult, error) {
	if req.PerPage <= 0 {
		req.PerPage = defaultPerPage
	}
	if req.Page <= 0 {
		req.Page = 1
	}

	cb := c.breakers.For(source.ID)

	var page domain.PageResult
	_, err := cb.Execute(func() (*resty.Response, error) {
		resp, err := c.doListing(ctx, source, req)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return resp, domain.NewRejected(source.ID, resp.StatusCode())
		}

		components, err := decodeComponents(source, resp.Body())
		if err != nil {
			return resp, domain.NewBadPayload(source.ID, err)
		}

		page.Components = components
		page.TotalCount, page.HasNextPage = pagination(resp, req, len(components))

		return resp, nil
	})
	if err != nil {
		classified := c.classify(source, err)
		c.logger.Warn("source page fetch failed",
			zap.String("source_id", source.ID),
			zap.String("kind", string(domain.KindOf(classified))),
			zap.Int("page", req.Page),
			zap.Error(classified),
		)

		return nil, classified
	}

	c.logger.Debug("source page fetched",
		zap.String("source_id", source.ID),
		zap.Int("page", req.Page),
		zap.Int("count", len(page.Components)),
		zap.Bool("has_next", page.HasNextPage),
	)

	return &page, nil
}

// FetchAll paginates through the full listing of one source, waiting
// pageDelay between page requests so a remote site is never hammered.
func (c *Client) FetchAll(ctx context.Context, source *domain.Source, categoryIDs []int64) ([]*domain.Component, error) {
	var components []*domain.Component

	for page := 1; page <= maxListingPages; page++ {
		result, err := c.FetchPage(ctx, source, domain.PageRequest{
			Page:        page,
			PerPage:     defaultPerPage,
			CategoryIDs: categoryIDs,
		})
		if err != nil {
			return nil, err
		}

		components = append(components, result.Components...)
		if !result.HasNextPage {
			break
		}

		if err := c.wait(ctx, source); err != nil {
			return nil, err
		}
	}

	return components, nil
}

// FetchCategories retrieves the source's taxonomy.
func (c *Client) FetchCategories(ctx context.Context, source *domain.Source) ([]*domain.Category, error) {
	cb := c.breakers.For(source.ID)

	var categories []*domain.Category
	_, err := cb.Execute(func() (*resty.Response, error) {
		r := c.http.R().
			SetContext(ctx).
			SetQueryParam("per_page", strconv.Itoa(categoriesPerPage))
		if source.HasCredentials() {
			r.SetBasicAuth(source.Credentials.Username, source.Credentials.AppPassword)
		}

		resp, err := r.Get(endpoint(source, "categories"))
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return resp, domain.NewRejected(source.ID, resp.StatusCode())
		}

		var terms []term
		if err := json.Unmarshal(resp.Body(), &terms); err != nil {
			return resp, domain.NewBadPayload(source.ID, fmt.Errorf("decoding categories: %w", err))
		}

		categories = make([]*domain.Category, len(terms))
		for i := range terms {
			categories[i] = terms[i].toDomain(source.ID)
		}

		return resp, nil
	})
	if err != nil {
		return nil, c.classify(source, err)
	}

	return categories, nil
}

// doListing issues one listing request with pagination parameters and, when
// the source has credentials, HTTP Basic auth.
func (c *Client) doListing(ctx context.Context, source *domain.Source, req domain.PageRequest) (*resty.Response, error) {
	r := c.http.R().
		SetContext(ctx).
		SetQueryParam("page", strconv.Itoa(req.Page)).
		SetQueryParam("per_page", strconv.Itoa(req.PerPage))

	if len(req.CategoryIDs) > 0 {
		ids := make([]string, len(req.CategoryIDs))
		for i, id := range req.CategoryIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		r.SetQueryParam("categories", strings.Join(ids, ","))
	}

	if source.HasCredentials() {
		r.SetBasicAuth(source.Credentials.Username, source.Credentials.AppPassword)
	}

	return r.Get(endpoint(source, source.CollectionType))
}

// wait sleeps for the politeness delay, aborting early on context
// cancellation.
func (c *Client) wait(ctx context.Context, source *domain.Source) error {
	timer := time.NewTimer(c.pageDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return c.classify(source, ctx.Err())
	case <-timer.C:
		return nil
	}
}

// classify maps a raw failure to the source-error taxonomy. Breaker
// short-circuits become CircuitOpen with the remaining cooldown attached, so
// the UI can show "temporarily unavailable" instead of a hard error.
func (c *Client) classify(source *domain.Source, err error) error {
	var se *domain.SourceError
	if errors.As(err, &se) {
		return se
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.NewCircuitOpen(source.ID, c.breakers.CooldownRemaining(source.ID))
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewTimeout(source.ID, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewTimeout(source.ID, err)
	}

	return domain.NewUnreachable(source.ID, err)
}

// endpoint builds the collection URL for a source.
func endpoint(source *domain.Source, collection string) string {
	return strings.TrimRight(source.BaseURL, "/") + "/" + DefaultNamespace + "/" + collection
}

// decodeComponents parses a listing body. The body must be a JSON array of
// objects with at least an id; anything else fails structural validation.
func decodeComponents(source *domain.Source, body []byte) ([]*domain.Component, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("expected a JSON array: %w", err)
	}

	components := make([]*domain.Component, 0, len(raws))
	for i, raw := range raws {
		var it listItem
		if err := json.Unmarshal(raw, &it); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if it.ID == 0 {
			return nil, fmt.Errorf("item %d: missing id", i)
		}
		components = append(components, it.toDomain(source, raw))
	}

	return components, nil
}

// pagination resolves TotalCount and HasNextPage from the response headers,
// falling back to the page-full heuristic when both headers are absent.
func pagination(resp *resty.Response, req domain.PageRequest, got int) (total int, hasNext bool) {
	if pages, err := strconv.Atoi(resp.Header().Get(headerTotalPages)); err == nil && pages > 0 {
		total, _ = strconv.Atoi(resp.Header().Get(headerTotal))

		return total, req.Page < pages
	}
	if t, err := strconv.Atoi(resp.Header().Get(headerTotal)); err == nil && t > 0 {
		return t, req.Page*req.PerPage < t
	}

	return 0, got == req.PerPage
}
