package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pricecheck/backend/internal/domain"
	"github.com/pricecheck/backend/internal/logging"
)

// SearchServiceConfig holds configuration for the search service
type SearchServiceConfig struct {
	ChunkSize      int
	RegionCacheTTL time.Duration
}

// StartSearchRequest carries raw caller input for a new session
type StartSearchRequest struct {
	SearchTerm string
	Credential string
	SearchType string
}

// StartSearchResult describes the created session and its parsed work list
type StartSearchResult struct {
	SessionID          string            `json:"session_id"`
	RegionInfo         domain.RegionInfo `json:"region_info"`
	ParsedTerms        []string          `json:"parsed_terms"`
	DuplicateCount     int               `json:"duplicate_count"`
	Duplicates         []string          `json:"duplicates"`
	ContainsDenseCodes bool              `json:"contains_ea_codes"`
	SearchType         string            `json:"search_type"`
	TotalTerms         int               `json:"total_terms"`
	TotalChunks        int               `json:"total_chunks"`
	ChunkSize          int               `json:"chunk_size"`
}

// SearchService starts bulk-lookup sessions
type SearchService struct {
	resolver  domain.RegionResolver
	cache     domain.RegionCache
	repo      domain.SessionRepository
	janitor   *Janitor
	chunkSize int
	cacheTTL  time.Duration
	logger    *slog.Logger
}

// NewSearchService creates a new search service. cache and janitor may be nil.
func NewSearchService(
	resolver domain.RegionResolver,
	cache domain.RegionCache,
	repo domain.SessionRepository,
	janitor *Janitor,
	config SearchServiceConfig,
	logger *slog.Logger,
) *SearchService {
	chunkSize := config.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 500
	}

	cacheTTL := config.RegionCacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}

	return &SearchService{
		resolver:  resolver,
		cache:     cache,
		repo:      repo,
		janitor:   janitor,
		chunkSize: chunkSize,
		cacheTTL:  cacheTTL,
		logger:    logging.OrDefault(logger).With("component", "search_service"),
	}
}

// StartSearch validates the input, resolves the caller's region, parses the
// terms and creates a session sized to the parsed work list.
// Flow: sweep expired -> region (cache, upstream) -> parse -> create session
func (s *SearchService) StartSearch(ctx context.Context, req StartSearchRequest) (*StartSearchResult, error) {
	if req.SearchTerm == "" {
		return nil, fmt.Errorf("%w: search term is required", domain.ErrInvalidRequest)
	}
	if req.Credential == "" {
		return nil, fmt.Errorf("%w: session ID is required", domain.ErrInvalidRequest)
	}

	searchType := req.SearchType
	if searchType == "" {
		searchType = SearchTypeArticle
	}

	if s.janitor != nil {
		// sweep failures are logged by the janitor and never block a new search
		_, _ = s.janitor.Sweep(ctx)
	}

	region := s.resolveRegion(ctx, req.Credential)
	if region.RegionID == "" {
		return nil, domain.ErrRegionUnresolved
	}

	parsed := ParseTerms(req.SearchTerm)

	sessionID, err := s.repo.CreateSession(ctx, len(parsed.Terms))
	if err != nil {
		s.logger.Error("failed to create session", "error", err)
		return nil, err
	}

	s.logger.Info("search started",
		"session_id", sessionID,
		"region_id", region.RegionID,
		"terms", len(parsed.Terms),
		"duplicates", parsed.DuplicateCount,
	)

	return &StartSearchResult{
		SessionID:          sessionID,
		RegionInfo:         region,
		ParsedTerms:        parsed.Terms,
		DuplicateCount:     parsed.DuplicateCount,
		Duplicates:         parsed.Duplicates,
		ContainsDenseCodes: parsed.ContainsDenseCodes,
		SearchType:         searchType,
		TotalTerms:         len(parsed.Terms),
		TotalChunks:        (len(parsed.Terms) + s.chunkSize - 1) / s.chunkSize,
		ChunkSize:          s.chunkSize,
	}, nil
}

// resolveRegion checks the cache first; only resolved regions are cached.
func (s *SearchService) resolveRegion(ctx context.Context, credential string) domain.RegionInfo {
	if s.cache != nil {
		if region, err := s.cache.Get(ctx, credential); err == nil {
			return region
		}
	}

	region := s.resolver.ResolveRegion(ctx, credential)

	if s.cache != nil && region.Resolved() {
		if err := s.cache.Set(ctx, credential, region, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache region", "error", err)
		}
	}
	return region
}
