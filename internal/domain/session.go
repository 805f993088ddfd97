package domain

import "time"

// Session lifecycle states. The status is derived from the counters and never stored.
const (
	SessionCreated    = "created"
	SessionInProgress = "in_progress"
	SessionCompleted  = "completed"
)

// Session is one bulk-lookup run.
type Session struct {
	ID             string    `json:"sessionId"`
	CreatedAt      time.Time `json:"createdAt"`
	LastAccessed   time.Time `json:"lastAccessed"`
	TotalTerms     int       `json:"totalTerms"`
	ProcessedTerms int       `json:"processedTerms"`
	TotalProducts  int       `json:"totalProducts"`
}

// Status derives the lifecycle state from the progress counters.
func (s Session) Status() string {
	switch {
	case s.ProcessedTerms == 0:
		return SessionCreated
	case s.TotalTerms > 0 && s.ProcessedTerms >= s.TotalTerms:
		return SessionCompleted
	default:
		return SessionInProgress
	}
}

// Progress is the polling view of a session.
type Progress struct {
	TotalTerms         int     `json:"total_terms"`
	ProcessedTerms     int     `json:"processed_terms"`
	TotalProducts      int     `json:"total_products"`
	ProgressPercentage float64 `json:"progress_percentage"`
	Status             string  `json:"status"`
}

// ProgressOf computes the polling view of s.
func ProgressOf(s Session) Progress {
	p := Progress{
		TotalTerms:     s.TotalTerms,
		ProcessedTerms: s.ProcessedTerms,
		TotalProducts:  s.TotalProducts,
		Status:         s.Status(),
	}
	if s.TotalTerms > 0 {
		p.ProgressPercentage = float64(s.ProcessedTerms) / float64(s.TotalTerms) * 100
	}
	return p
}

// SessionStats summarizes the records stored for a session.
type SessionStats struct {
	Total    int `json:"total_products"`
	Found    int `json:"found_products"`
	NotFound int `json:"not_found_products"`
}
