package usecase

import (
	"context"
	"fmt"

	"github.com/pricecheck/backend/internal/domain"
)

// SessionResults is every record stored for a session plus its summary
type SessionResults struct {
	Products []domain.ProductRecord `json:"products"`
	Stats    domain.SessionStats    `json:"stats"`
}

// SessionService exposes session progress, results and cleanup
type SessionService struct {
	repo domain.SessionRepository
}

// NewSessionService creates a new session service
func NewSessionService(repo domain.SessionRepository) *SessionService {
	return &SessionService{repo: repo}
}

// GetResults returns the accumulated records of a session in insertion order
func (s *SessionService) GetResults(ctx context.Context, sessionID string) (*SessionResults, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrInvalidRequest)
	}
	if _, err := s.repo.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	products, err := s.repo.GetProducts(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	stats, err := s.repo.GetStats(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if products == nil {
		products = []domain.ProductRecord{}
	}
	return &SessionResults{Products: products, Stats: stats}, nil
}

// GetProgress returns the polling view of a session
func (s *SessionService) GetProgress(ctx context.Context, sessionID string) (domain.Progress, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Progress{}, err
	}
	return domain.ProgressOf(*session), nil
}

// DeleteSession removes a session and its records. Deleting an unknown
// session is not an error.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session id is required", domain.ErrInvalidRequest)
	}
	return s.repo.DeleteSession(ctx, sessionID)
}
