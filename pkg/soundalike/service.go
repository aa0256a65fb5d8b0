package soundalike

import (
	"context"
	"errors"
	"fmt"

	"github.com/himanishpuri/SoundAlike/internal/audio"
	"github.com/himanishpuri/SoundAlike/internal/cache"
	"github.com/himanishpuri/SoundAlike/internal/catalog"
	"github.com/himanishpuri/SoundAlike/internal/features"
	"github.com/himanishpuri/SoundAlike/internal/fingerprint"
	"github.com/himanishpuri/SoundAlike/internal/similarity"
	"github.com/himanishpuri/SoundAlike/internal/storage"
	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/himanishpuri/SoundAlike/pkg/models"
)

// Re-exported so callers can match failures without importing internal packages.
var (
	ErrQueryFingerprint = catalog.ErrQueryFingerprint
	ErrDecode           = fingerprint.ErrDecode
	ErrExtraction       = fingerprint.ErrExtraction
)

// soundalikeService is the default implementation of the Service interface.
type soundalikeService struct {
	config  *Config
	log     *logger.Logger
	decoder audio.Decoder
	builder *fingerprint.Builder
	scorer  *similarity.Scorer
	cache   *cache.FingerprintCache
}

func NewService(ctx context.Context, opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	// Set default logger if none provided
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.Decoder == nil {
		cfg.Decoder = audio.NewFileDecoder(cfg.SampleRate)
	}

	scorer, err := similarity.NewScorer(cfg.Weights)
	if err != nil {
		return nil, err
	}

	// Create or use provided storage
	store := cfg.Storage
	if store == nil {
		store, err = storage.Open(cfg.StoreBackend, cfg.StorePath, cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open fingerprint store: %w", err)
		}
	}

	fc := cache.New(store, cfg.Logger)
	if err := fc.Load(ctx); err != nil {
		store.Close()
		return nil, err
	}

	ex := features.NewExtractor(features.DefaultConfig(), cfg.Logger)
	return &soundalikeService{
		config:  cfg,
		log:     cfg.Logger,
		decoder: cfg.Decoder,
		builder: fingerprint.NewBuilder(cfg.Decoder, ex, cfg.MaxDuration, cfg.Logger),
		scorer:  scorer,
		cache:   fc,
	}, nil
}

func (s *soundalikeService) catalog() *catalog.Catalog {
	return catalog.New(s.builder, s.scorer, s.cache, catalog.Options{Workers: s.config.Workers, Refresh: s.config.Refresh}, s.log)
}

func (s *soundalikeService) FindSimilar(ctx context.Context, queryPath, catalogDir string, progress Progress) (*models.SearchReport, error) {
	return s.catalog().Search(ctx, queryPath, catalogDir, catalog.Progress(progress))
}

func (s *soundalikeService) Precompute(ctx context.Context, catalogDir string, progress Progress) (*models.PrecomputeReport, error) {
	return s.catalog().Precompute(ctx, catalogDir, catalog.Progress(progress))
}

// Compare fingerprints both files fresh and scores them.
func (s *soundalikeService) Compare(ctx context.Context, pathA, pathB string) (*models.ScoreBreakdown, error) {
	a, err := s.builder.Build(ctx, pathA)
	if err != nil {
		return nil, err
	}
	b, err := s.builder.Build(ctx, pathB)
	if err != nil {
		return nil, err
	}
	bd := s.scorer.Breakdown(a, b)
	s.log.Infof("Compared %s and %s: %.4f", a.Name, b.Name, bd.Total)
	return &bd, nil
}

func (s *soundalikeService) Fingerprint(ctx context.Context, path string) (*models.Fingerprint, error) {
	return s.builder.Build(ctx, path)
}

func (s *soundalikeService) Mix(ctx context.Context, pathA, pathB string, weightA, weightB float64, outPath string) error {
	if weightA < 0 || weightB < 0 || weightA+weightB == 0 {
		return errors.New("mix weights must be non-negative and not both zero")
	}

	// 1. Decode both inputs in full
	a, err := s.decoder.Decode(ctx, pathA, 0)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", pathA, err)
	}
	b, err := s.decoder.Decode(ctx, pathB, 0)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", pathB, err)
	}

	// 2. Blend and write
	mixed, err := audio.Mix(a, b, weightA, weightB)
	if err != nil {
		return fmt.Errorf("mixing: %w", err)
	}
	if err := audio.WriteWAV(outPath, mixed.Samples, mixed.SampleRate); err != nil {
		return err
	}

	s.log.Infof("Mixed %.0f%% / %.0f%% into %s (%.1fs)", weightA, weightB, outPath, mixed.Duration())
	return nil
}

func (s *soundalikeService) ListFingerprints() []string {
	return s.cache.Names()
}

func (s *soundalikeService) GetFingerprint(name string) (*models.Fingerprint, bool) {
	return s.cache.Get(name)
}

// Close flushes pending fingerprints and releases the store.
func (s *soundalikeService) Close() error {
	flushErr := s.cache.Flush(context.Background())
	return errors.Join(flushErr, s.cache.Close())
}
