package soundalike

import (
	"context"

	"github.com/himanishpuri/SoundAlike/pkg/models"
)

// Progress receives the number of catalog files processed and the total.
type Progress func(done, total int)

type Service interface {
	// FindSimilar ranks every audio file in catalogDir by similarity to queryPath.
	FindSimilar(ctx context.Context, queryPath, catalogDir string, progress Progress) (*models.SearchReport, error)
	// Precompute caches fingerprints for every audio file in catalogDir.
	Precompute(ctx context.Context, catalogDir string, progress Progress) (*models.PrecomputeReport, error)
	Compare(ctx context.Context, pathA, pathB string) (*models.ScoreBreakdown, error)
	Fingerprint(ctx context.Context, path string) (*models.Fingerprint, error)
	// Mix writes a weighted blend of two recordings to outPath as 16-bit WAV.
	Mix(ctx context.Context, pathA, pathB string, weightA, weightB float64, outPath string) error
	ListFingerprints() []string
	GetFingerprint(name string) (*models.Fingerprint, bool)
	Close() error
}
