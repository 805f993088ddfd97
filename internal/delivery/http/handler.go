package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pricecheck/backend/config"
	"github.com/pricecheck/backend/internal/domain"
	"github.com/pricecheck/backend/internal/logging"
	"github.com/pricecheck/backend/internal/usecase"
)

// HandlerConfig holds settings the handlers need beyond their services
type HandlerConfig struct {
	Processing       config.ProcessingConfig
	ProgressInterval time.Duration
	AllowedOrigins   []string
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	search           *usecase.SearchService
	chunks           *usecase.ChunkProcessor
	sessions         *usecase.SessionService
	processing       config.ProcessingConfig
	progressInterval time.Duration
	allowedOrigins   []string
	logger           *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	search *usecase.SearchService,
	chunks *usecase.ChunkProcessor,
	sessions *usecase.SessionService,
	cfg HandlerConfig,
	logger *slog.Logger,
) *Handler {
	interval := cfg.ProgressInterval
	if interval <= 0 {
		interval = time.Second
	}

	return &Handler{
		search:           search,
		chunks:           chunks,
		sessions:         sessions,
		processing:       cfg.Processing,
		progressInterval: interval,
		allowedOrigins:   cfg.AllowedOrigins,
		logger:           logging.OrDefault(logger).With("component", "http"),
	}
}

// startSearchRequest is the body of POST /search/start
type startSearchRequest struct {
	SearchTerm string `json:"searchTerm"`
	SessionID  string `json:"sessionId"`
	SearchType string `json:"searchType"`
}

// processChunkRequest is the body of POST /search/chunk
type processChunkRequest struct {
	SessionID      string   `json:"sessionId"`
	VoilaSessionID string   `json:"voilaSessionId"`
	ChunkIndex     int      `json:"chunkIndex"`
	SearchTerms    []string `json:"searchTerms"`
	Limit          any      `json:"limit"`
	SearchType     string   `json:"searchType"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricecheck-backend",
		"version": "1.0.0",
	})
}

// StartSearch parses raw input and opens a new session
func (h *Handler) StartSearch(c *gin.Context) {
	var req startSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No request data provided"})
		return
	}

	result, err := h.search.StartSearch(c.Request.Context(), usecase.StartSearchRequest{
		SearchTerm: req.SearchTerm,
		Credential: req.SessionID,
		SearchType: req.SearchType,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ProcessChunk resolves one chunk of terms for a session
func (h *Handler) ProcessChunk(c *gin.Context) {
	var req processChunkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters"})
		return
	}

	searchType := req.SearchType
	if searchType == "" {
		searchType = usecase.SearchTypeArticle
	}

	result, err := h.chunks.ProcessChunk(c.Request.Context(), usecase.ChunkRequest{
		SessionID:       req.SessionID,
		Credential:      req.VoilaSessionID,
		ChunkIndex:      req.ChunkIndex,
		Terms:           req.SearchTerms,
		Limit:           usecase.ParseLimit(req.Limit),
		IsArticleSearch: searchType == usecase.SearchTypeArticle,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetResults returns every record accumulated for a session
func (h *Handler) GetResults(c *gin.Context) {
	results, err := h.sessions.GetResults(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetProgress returns the progress counters of a session
func (h *Handler) GetProgress(c *gin.Context) {
	progress, err := h.sessions.GetProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// DeleteSession removes a session and its records
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.sessions.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Estimate forecasts processing time for a number of articles
func (h *Handler) Estimate(c *gin.Context) {
	n, err := strconv.Atoi(c.Query("articles"))
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "articles must be a non-negative integer"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":    h.processing.Profile,
		"chunk_size": h.processing.ChunkSize,
		"workers":    h.processing.MaxWorkers,
		"estimate":   config.EstimatePerformance(n, h.processing),
	})
}

// writeError maps domain errors to HTTP status codes
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrRegionUnresolved):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
