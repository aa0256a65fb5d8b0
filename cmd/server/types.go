package main

import (
	"fmt"

	"github.com/himanishpuri/SoundAlike/pkg/models"
)

// SearchRequest is the request body for POST /api/search
type SearchRequest struct {
	// Query is the path of the recording to match, readable by the server
	Query string `json:"query"`

	// Catalog is the folder to search; empty means the configured catalog
	Catalog string `json:"catalog,omitempty"`

	// Top limits the number of results; 0 returns all of them
	Top int `json:"top,omitempty"`
}

// Validate checks if the request is valid
func (r *SearchRequest) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("query is required")
	}
	if r.Top < 0 {
		return fmt.Errorf("top must not be negative, got %d", r.Top)
	}
	return nil
}

// SearchResponse is the response for POST /api/search
type SearchResponse struct {
	RunID   string               `json:"run_id"`
	Query   string               `json:"query"`
	Results []SimilarityDTO      `json:"results"`
	Skipped []models.SkippedFile `json:"skipped"`
	Count   int                  `json:"count"`
}

// SimilarityDTO is one ranked catalog file
type SimilarityDTO struct {
	Rank    int     `json:"rank"`
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
	Percent float64 `json:"percent"`
}

func newSearchResponse(report *models.SearchReport, top int) SearchResponse {
	shown := report.Top(top)
	results := make([]SimilarityDTO, len(shown))
	for i, r := range shown {
		results[i] = SimilarityDTO{
			Rank:    i + 1,
			Name:    r.Name,
			Score:   r.Score,
			Percent: r.Percent(),
		}
	}
	skipped := report.Skipped
	if skipped == nil {
		skipped = []models.SkippedFile{}
	}
	return SearchResponse{
		RunID:   report.RunID,
		Query:   report.Query,
		Results: results,
		Skipped: skipped,
		Count:   len(results),
	}
}

// CompareRequest is the request body for POST /api/compare
type CompareRequest struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Validate checks if the request is valid
func (r *CompareRequest) Validate() error {
	if r.A == "" || r.B == "" {
		return fmt.Errorf("both a and b are required")
	}
	return nil
}

// PrecomputeRequest is the request body for POST /api/precompute
type PrecomputeRequest struct {
	Catalog string `json:"catalog,omitempty"`
}

// ListFingerprintsResponse is the response for GET /api/fingerprints
type ListFingerprintsResponse struct {
	Names []string `json:"names"`
	Count int      `json:"count"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
