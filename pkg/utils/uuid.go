package utils

import "github.com/google/uuid"

// NewRunID returns a random identifier used to correlate the log lines of one search.
func NewRunID() string {
	return uuid.NewString()
}
