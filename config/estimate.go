package config

import "math"

// Estimate is a rough processing forecast for a batch of articles.
type Estimate struct {
	ChunksNeeded      int     `json:"chunks_needed"`
	EstimatedSeconds  int     `json:"estimated_seconds"`
	EstimatedMinutes  float64 `json:"estimated_minutes"`
	EstimatedMemoryMB float64 `json:"estimated_memory_mb"`
	ParallelFactor    float64 `json:"parallel_factor"`
}

// EstimatePerformance forecasts run time and memory for articleCount terms
// using observed per-chunk timings.
func EstimatePerformance(articleCount int, p ProcessingConfig) Estimate {
	if articleCount < 0 {
		articleCount = 0
	}
	chunkSize := p.ChunkSize
	if chunkSize <= 0 {
		chunkSize = Profiles[DefaultProfile].ChunkSize
	}

	chunks := (articleCount + chunkSize - 1) / chunkSize
	avgChunkSeconds := 30 + float64(chunkSize)*0.1

	parallel := 1.0
	if chunks > 0 {
		parallel = float64(min(p.MaxWorkers, chunks)) / float64(chunks)
	}

	seconds := float64(chunks) * avgChunkSeconds * parallel

	return Estimate{
		ChunksNeeded:      chunks,
		EstimatedSeconds:  int(seconds),
		EstimatedMinutes:  math.Round(seconds/60*10) / 10,
		EstimatedMemoryMB: float64(articleCount)*0.05 + 100,
		ParallelFactor:    parallel,
	}
}
