package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pricecheck/backend/internal/domain"
	"github.com/pricecheck/backend/internal/infrastructure/catalog"
	"github.com/pricecheck/backend/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Result caps for non-article searches
const (
	DefaultResultLimit = 10
	AllResultLimit     = 50
)

// Search types accepted from callers
const (
	SearchTypeArticle = "article"
	SearchTypeText    = "text"
)

// ParseLimit resolves a caller-supplied limit: "all", a number, or a numeric
// string. Anything else falls back to DefaultResultLimit. Negative limits
// clamp to zero.
func ParseLimit(v any) int {
	var n int
	switch limit := v.(type) {
	case nil:
		return AllResultLimit
	case string:
		s := strings.TrimSpace(limit)
		if strings.EqualFold(s, "all") {
			return AllResultLimit
		}
		parsed, err := strconv.Atoi(s)
		if err != nil {
			return DefaultResultLimit
		}
		n = parsed
	case float64:
		if math.IsNaN(limit) || math.IsInf(limit, 0) {
			return DefaultResultLimit
		}
		n = int(limit)
	case int:
		n = limit
	default:
		return DefaultResultLimit
	}
	return max(n, 0)
}

// ChunkRequest is one batch of terms submitted for a session
type ChunkRequest struct {
	SessionID       string
	Credential      string
	ChunkIndex      int
	Terms           []string
	Limit           int
	IsArticleSearch bool
}

// ChunkResult reports the counters of a processed chunk
type ChunkResult struct {
	ChunkIndex     int `json:"chunk_index"`
	ProcessedCount int `json:"processed_count"`
	ProductsFound  int `json:"products_found"`
	TotalFound     int `json:"total_found"`
}

// ChunkProcessorConfig holds configuration for the chunk processor
type ChunkProcessorConfig struct {
	MaxWorkers int
}

// ChunkProcessor fans a chunk of terms out to a bounded worker pool and
// stores one batch of records per chunk.
type ChunkProcessor struct {
	fetcher    domain.ProductFetcher
	repo       domain.SessionRepository
	maxWorkers int
	logger     *slog.Logger
}

// NewChunkProcessor creates a chunk processor with dependencies
func NewChunkProcessor(
	fetcher domain.ProductFetcher,
	repo domain.SessionRepository,
	config ChunkProcessorConfig,
	logger *slog.Logger,
) *ChunkProcessor {
	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 3
	}

	return &ChunkProcessor{
		fetcher:    fetcher,
		repo:       repo,
		maxWorkers: maxWorkers,
		logger:     logging.OrDefault(logger).With("component", "chunk_processor"),
	}
}

// termOutcome holds the records produced for one term
type termOutcome struct {
	records    []domain.ProductRecord
	totalFound int
}

// ProcessChunk resolves every term of the chunk and persists the records.
// Upstream failures degrade single terms to placeholders; only repository
// failures are returned.
func (p *ChunkProcessor) ProcessChunk(ctx context.Context, req ChunkRequest) (*ChunkResult, error) {
	if req.SessionID == "" || req.Credential == "" || len(req.Terms) == 0 {
		return nil, fmt.Errorf("%w: session id, credential and terms are required", domain.ErrInvalidRequest)
	}

	if _, err := p.repo.GetSession(ctx, req.SessionID); err != nil {
		return nil, err
	}

	start := time.Now()
	outcomes := make([]termOutcome, len(req.Terms))

	var g errgroup.Group
	g.SetLimit(p.maxWorkers)
	for i, term := range req.Terms {
		g.Go(func() error {
			outcomes[i] = p.processTerm(ctx, term, req)
			return nil
		})
	}
	_ = g.Wait()

	result := &ChunkResult{
		ChunkIndex:     req.ChunkIndex,
		ProcessedCount: len(req.Terms),
	}
	records := make([]domain.ProductRecord, 0, len(req.Terms))
	for _, o := range outcomes {
		records = append(records, o.records...)
		result.TotalFound += o.totalFound
	}
	result.ProductsFound = len(records)

	if err := p.repo.AppendProducts(ctx, req.SessionID, records); err != nil {
		p.logger.Error("failed to store chunk", "session_id", req.SessionID, "chunk", req.ChunkIndex, "error", err)
		return nil, err
	}
	if err := p.repo.UpdateProgress(ctx, req.SessionID, len(req.Terms), len(records)); err != nil {
		p.logger.Error("failed to update progress", "session_id", req.SessionID, "chunk", req.ChunkIndex, "error", err)
		return nil, err
	}

	p.logger.Info("chunk processed",
		"session_id", req.SessionID,
		"chunk", req.ChunkIndex,
		"terms", result.ProcessedCount,
		"records", result.ProductsFound,
		"total_found", result.TotalFound,
		"duration", time.Since(start),
	)

	return result, nil
}

// processTerm fetches and normalizes one term. It always yields at least one record.
func (p *ChunkProcessor) processTerm(ctx context.Context, term string, req ChunkRequest) (out termOutcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("term processing panicked", "term", term, "panic", r)
			out = termOutcome{records: []domain.ProductRecord{domain.ErrorRecord(term)}}
		}
	}()

	res := p.fetcher.FetchProducts(ctx, term, req.Credential)

	switch res.Outcome {
	case domain.OutcomeFound:
		limit := req.Limit
		if req.IsArticleSearch {
			limit = 1
		}

		total := res.Products.Len()
		raws := res.Products.First(limit)
		if len(raws) == 0 {
			return termOutcome{records: []domain.ProductRecord{domain.NotFoundRecord(term)}, totalFound: total}
		}

		records := make([]domain.ProductRecord, 0, len(raws))
		for _, raw := range raws {
			records = append(records, catalog.Normalize(raw, term))
		}
		return termOutcome{records: records, totalFound: total}

	case domain.OutcomeNoMatch:
		return termOutcome{records: []domain.ProductRecord{domain.NotFoundRecord(term)}}

	default:
		return termOutcome{records: []domain.ProductRecord{domain.ErrorRecord(term)}}
	}
}
