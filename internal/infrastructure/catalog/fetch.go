package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pricecheck/backend/internal/domain"
)

// FetchProducts issues one search request for term and extracts the raw
// products in the response. It never returns an error: every outcome is
// reported through the FetchResult tag.
func (c *Client) FetchProducts(ctx context.Context, term, credential string) domain.FetchResult {
	log := c.logger.With("term", term)

	resp, err := c.get(ctx, searchPath, url.Values{"term": {term}}, c.cfg.SearchRouteID, credential, c.cfg.RequestTimeout)
	if err != nil {
		if errors.Is(err, domain.ErrResponseTooLarge) {
			log.Warn("response exceeds size bound", "error", err)
			return domain.FetchResult{Outcome: domain.OutcomeNoMatch, Err: err}
		}
		if isTimeout(err) {
			log.Warn("request timed out", "timeout", c.cfg.RequestTimeout)
		} else {
			log.Warn("request failed", "error", err)
		}
		return domain.FetchResult{Outcome: domain.OutcomeFailed, Err: err}
	}

	if resp.status != http.StatusOK {
		log.Warn("unexpected status", "status", resp.status)
		return domain.FetchResult{
			Outcome: domain.OutcomeFailed,
			Err:     fmt.Errorf("%w: %d", domain.ErrUpstreamStatus, resp.status),
		}
	}

	products, err := c.extractor.Extract(resp.body, term)
	if err != nil {
		log.Warn("response too complex to extract", "error", err)
		return domain.FetchResult{Outcome: domain.OutcomeNoMatch, Err: err}
	}

	if products.Len() == 0 {
		log.Debug("no products found")
		return domain.FetchResult{Outcome: domain.OutcomeNoMatch}
	}

	log.Debug("products found", "count", products.Len())
	return domain.FetchResult{Outcome: domain.OutcomeFound, Products: products}
}
