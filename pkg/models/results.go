package models

// SimilarityResult is one scored candidate of a catalog search.
type SimilarityResult struct {
	Name  string  `json:"name"`
	Path  string  `json:"path"`
	Score float64 `json:"score"`
}

// Percent returns the score as a percentage, the way match bars display it.
func (r SimilarityResult) Percent() float64 {
	return r.Score * 100
}

// SkippedFile records a candidate that could not be fingerprinted.
type SkippedFile struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// SearchReport is the outcome of one catalog search, sorted by descending score.
type SearchReport struct {
	RunID   string             `json:"run_id"`
	Query   string             `json:"query"`
	Results []SimilarityResult `json:"results"`
	Skipped []SkippedFile      `json:"skipped"`
}

// Top returns the first k results; k <= 0 returns all of them.
func (r *SearchReport) Top(k int) []SimilarityResult {
	if k <= 0 || k >= len(r.Results) {
		return r.Results
	}
	return r.Results[:k]
}

// PrecomputeReport summarises a catalog precompute run.
type PrecomputeReport struct {
	Added   []string      `json:"added"`
	Cached  []string      `json:"cached"`
	Skipped []SkippedFile `json:"skipped"`
}

// ScoreBreakdown exposes each weighted sub-score of a comparison.
type ScoreBreakdown struct {
	WeightsVersion     string  `json:"weights_version"`
	MFCC               float64 `json:"mfcc"`
	Chroma             float64 `json:"chroma"`
	Tempo              float64 `json:"tempo"`
	Onset              float64 `json:"onset"`
	SpectralContrast   float64 `json:"spectral_contrast"`
	HarmonicPercussive float64 `json:"harmonic_percussive"`
	Hash               float64 `json:"hash"`
	Total              float64 `json:"total"`
}
