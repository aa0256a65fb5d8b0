package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/himanishpuri/SoundAlike/internal/cache"
	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/himanishpuri/SoundAlike/pkg/models"
	"github.com/himanishpuri/SoundAlike/pkg/utils"
	"golang.org/x/sync/errgroup"
)

// ErrQueryFingerprint means the query recording itself could not be fingerprinted.
var ErrQueryFingerprint = errors.New("cannot fingerprint query")

// Builder produces a fingerprint for one file.
type Builder interface {
	Build(ctx context.Context, path string) (*models.Fingerprint, error)
}

// Scorer rates the similarity of two fingerprints in [0, 1].
type Scorer interface {
	Score(a, b *models.Fingerprint) float64
}

// Progress is called after each candidate with the number processed so far
// and the total. Calls never overlap.
type Progress func(done, total int)

type Options struct {
	// Workers is the number of candidates fingerprinted at once; <= 1 is sequential.
	Workers int
	// Refresh rebuilds candidates even when the cache holds them.
	Refresh bool
}

// Catalog scores a query recording against every audio file in a directory.
type Catalog struct {
	builder Builder
	scorer  Scorer
	cache   *cache.FingerprintCache
	opts    Options
	log     *logger.Logger
}

func New(b Builder, s Scorer, c *cache.FingerprintCache, opts Options, log *logger.Logger) *Catalog {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Catalog{builder: b, scorer: s, cache: c, opts: opts, log: log.Named("catalog")}
}

// outcome is the per-candidate result, kept at the candidate's listing index.
type outcome struct {
	fp     *models.Fingerprint
	cached bool
	err    error
}

// Search fingerprints queryPath, then scores it against every .mp3 and .wav
// directly inside dir. Candidates that fail to fingerprint are skipped and
// reported. Results are sorted by descending score; equal scores keep the
// directory listing order. The query is always built fresh.
func (c *Catalog) Search(ctx context.Context, queryPath, dir string, progress Progress) (*models.SearchReport, error) {
	runID := utils.NewRunID()
	log := c.log.Named(runID[:8])

	query, err := c.builder.Build(ctx, queryPath)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w %s: %w", ErrQueryFingerprint, filepath.Base(queryPath), err)
	}

	paths, err := utils.ListAudioFiles(dir)
	if err != nil {
		return nil, err
	}
	log.Infof("Searching %d candidates in %s for %s", len(paths), dir, query.Name)

	outcomes, err := c.fingerprintAll(ctx, paths, progress)
	if err != nil {
		return nil, err
	}

	report := &models.SearchReport{
		RunID:   runID,
		Query:   query.Name,
		Results: make([]models.SimilarityResult, 0, len(paths)),
	}
	for i, o := range outcomes {
		if o.err != nil {
			report.Skipped = append(report.Skipped, skipped(paths[i], o.err))
			continue
		}
		report.Results = append(report.Results, models.SimilarityResult{
			Name:  o.fp.Name,
			Path:  paths[i],
			Score: c.scorer.Score(query, o.fp),
		})
	}
	sort.SliceStable(report.Results, func(i, j int) bool {
		return report.Results[i].Score > report.Results[j].Score
	})

	if err := c.cache.Flush(ctx); err != nil {
		log.Warnf("Could not persist new fingerprints: %v", err)
	}
	log.Infof("Scored %d candidates, skipped %d", len(report.Results), len(report.Skipped))
	return report, nil
}

// Precompute fingerprints every catalog file missing from the cache and
// flushes the cache once at the end.
func (c *Catalog) Precompute(ctx context.Context, dir string, progress Progress) (*models.PrecomputeReport, error) {
	paths, err := utils.ListAudioFiles(dir)
	if err != nil {
		return nil, err
	}
	c.log.Infof("Precomputing %d files in %s", len(paths), dir)

	outcomes, err := c.fingerprintAll(ctx, paths, progress)
	if err != nil {
		return nil, err
	}

	report := &models.PrecomputeReport{}
	for i, o := range outcomes {
		name := filepath.Base(paths[i])
		switch {
		case o.err != nil:
			report.Skipped = append(report.Skipped, skipped(paths[i], o.err))
		case o.cached:
			report.Cached = append(report.Cached, name)
		default:
			report.Added = append(report.Added, name)
		}
	}

	if err := c.cache.Flush(ctx); err != nil {
		return report, err
	}
	c.log.Infof("Added %d, cached %d, skipped %d", len(report.Added), len(report.Cached), len(report.Skipped))
	return report, nil
}

// fingerprintAll resolves every path through the cache, building misses.
// Cancellation is checked before each candidate; a cancelled run returns the
// context error and leaves already-built fingerprints in the cache.
func (c *Catalog) fingerprintAll(ctx context.Context, paths []string, progress Progress) ([]outcome, error) {
	outcomes := make([]outcome, len(paths))

	var mu sync.Mutex
	done := 0
	report := func() {
		if progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		done++
		progress(done, len(paths))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, c.opts.Workers))
	for i, path := range paths {
		if err := gctx.Err(); err != nil {
			break
		}
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = c.resolve(gctx, path)
			if errors.Is(outcomes[i].err, context.Canceled) || errors.Is(outcomes[i].err, context.DeadlineExceeded) {
				return outcomes[i].err
			}
			report()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (c *Catalog) resolve(ctx context.Context, path string) outcome {
	name := filepath.Base(path)
	if !c.opts.Refresh {
		if fp, ok := c.cache.Get(name); ok {
			return outcome{fp: fp, cached: true}
		}
	}

	fp, err := c.builder.Build(ctx, path)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Warnf("Skipping %s: %v", name, err)
		}
		return outcome{err: err}
	}
	c.cache.Put(name, fp)
	return outcome{fp: fp}
}

func skipped(path string, err error) models.SkippedFile {
	return models.SkippedFile{Name: filepath.Base(path), Path: path, Reason: err.Error()}
}
