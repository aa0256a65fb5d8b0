package catalog

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/himanishpuri/SoundAlike/internal/audio"
	"github.com/himanishpuri/SoundAlike/internal/cache"
	"github.com/himanishpuri/SoundAlike/internal/features"
	"github.com/himanishpuri/SoundAlike/internal/fingerprint"
	"github.com/himanishpuri/SoundAlike/internal/similarity"
	"github.com/himanishpuri/SoundAlike/internal/storage"
	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/himanishpuri/SoundAlike/pkg/models"
)

var errBroken = errors.New("broken file")

// fakeBuilder returns an empty fingerprint named after the file, or errBroken
// for names listed in broken.
type fakeBuilder struct {
	broken map[string]bool
	calls  atomic.Int32
}

func (b *fakeBuilder) Build(ctx context.Context, path string) (*models.Fingerprint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.calls.Add(1)
	name := filepath.Base(path)
	if b.broken[name] {
		return nil, errBroken
	}
	return &models.Fingerprint{Name: name}, nil
}

// fakeScorer scores a candidate by a fixed table keyed on its name.
type fakeScorer map[string]float64

func (s fakeScorer) Score(_, b *models.Fingerprint) float64 { return s[b.Name] }

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatalf("Failed to create %s: %v", n, err)
		}
	}
}

func newCache(t *testing.T) (*cache.FingerprintCache, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fingerprints_db.json")
	c := cache.New(storage.NewJSONStore(path, logger.Discard()), logger.Discard())
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("cache load failed: %v", err)
	}
	return c, path
}

func TestSearchOrdersByScore(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.wav", "b.mp3", "c.WAV", "notes.txt")
	query := filepath.Join(t.TempDir(), "query.wav")

	c, _ := newCache(t)
	cat := New(&fakeBuilder{}, fakeScorer{"a.wav": 0.9, "b.mp3": 0.5, "c.WAV": 0.7}, c, Options{}, logger.Discard())

	report, err := cat.Search(context.Background(), query, dir, nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	want := []float64{0.9, 0.7, 0.5}
	if len(report.Results) != len(want) {
		t.Fatalf("Expected %d results, got %d", len(want), len(report.Results))
	}
	for i, w := range want {
		if report.Results[i].Score != w {
			t.Errorf("Result %d: expected %.1f, got %.1f (%s)", i, w, report.Results[i].Score, report.Results[i].Name)
		}
	}
	if report.Query != "query.wav" || report.RunID == "" {
		t.Errorf("Expected query name and run id, got %q %q", report.Query, report.RunID)
	}
}

func TestSearchTiesKeepListingOrder(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "d.wav", "a.wav", "c.wav", "b.wav")
	c, _ := newCache(t)
	cat := New(&fakeBuilder{}, fakeScorer{"a.wav": 0.4, "b.wav": 0.4, "c.wav": 0.8, "d.wav": 0.4}, c, Options{Workers: 3}, logger.Discard())

	report, err := cat.Search(context.Background(), "q.wav", dir, nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	got := make([]string, len(report.Results))
	for i, r := range report.Results {
		got[i] = r.Name
	}
	want := []string{"c.wav", "a.wav", "b.wav", "d.wav"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func TestSearchSkipsBrokenCandidates(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "good1.wav", "bad1.mp3", "good2.wav", "bad2.wav", "good3.mp3")
	c, _ := newCache(t)
	b := &fakeBuilder{broken: map[string]bool{"bad1.mp3": true, "bad2.wav": true}}
	cat := New(b, fakeScorer{}, c, Options{}, logger.Discard())

	report, err := cat.Search(context.Background(), "q.wav", dir, nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(report.Results) != 3 {
		t.Errorf("Expected 3 results, got %d", len(report.Results))
	}
	if len(report.Skipped) != 2 {
		t.Fatalf("Expected 2 skipped files, got %d", len(report.Skipped))
	}
	for _, s := range report.Skipped {
		if s.Reason == "" || (s.Name != "bad1.mp3" && s.Name != "bad2.wav") {
			t.Errorf("Unexpected skip entry %+v", s)
		}
	}
}

func TestSearchQueryFailure(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.wav")
	c, _ := newCache(t)
	b := &fakeBuilder{broken: map[string]bool{"query.mp3": true}}
	cat := New(b, fakeScorer{}, c, Options{}, logger.Discard())

	report, err := cat.Search(context.Background(), "query.mp3", dir, nil)
	if report != nil {
		t.Error("Expected no report when the query fails")
	}
	if !errors.Is(err, ErrQueryFingerprint) || !errors.Is(err, errBroken) {
		t.Errorf("Expected ErrQueryFingerprint wrapping the cause, got %v", err)
	}
}

func TestSearchMissingDirectory(t *testing.T) {
	c, _ := newCache(t)
	cat := New(&fakeBuilder{}, fakeScorer{}, c, Options{}, logger.Discard())
	if _, err := cat.Search(context.Background(), "q.wav", filepath.Join(t.TempDir(), "nope"), nil); err == nil {
		t.Error("Expected error for missing catalog")
	}
}

func TestSearchProgress(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "1.wav", "2.wav", "3.wav", "4.wav", "5.wav", "6.mp3")
	c, _ := newCache(t)
	b := &fakeBuilder{broken: map[string]bool{"3.wav": true}}
	cat := New(b, fakeScorer{}, c, Options{Workers: 4}, logger.Discard())

	var (
		mu    sync.Mutex
		calls [][2]int
	)
	_, err := cat.Search(context.Background(), "q.wav", dir, func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, [2]int{done, total})
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(calls) != 6 {
		t.Fatalf("Expected 6 progress calls, got %d", len(calls))
	}
	for i, c := range calls {
		if c[0] != i+1 || c[1] != 6 {
			t.Errorf("Progress call %d = %v, expected [%d 6]", i, c, i+1)
		}
	}
}

func TestSearchCancelled(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "1.wav", "2.wav", "3.wav", "4.wav")
	c, _ := newCache(t)
	cat := New(&fakeBuilder{}, fakeScorer{}, c, Options{}, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := cat.Search(ctx, "q.wav", dir, func(done, _ int) {
		if done == 2 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if n := c.Len(); n != 2 {
		t.Errorf("Expected the 2 finished candidates to stay cached, got %d", n)
	}
}

func TestSearchUsesCache(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.wav", "b.wav")
	c, storePath := newCache(t)
	b := &fakeBuilder{}
	cat := New(b, fakeScorer{}, c, Options{}, logger.Discard())

	for i := 0; i < 2; i++ {
		if _, err := cat.Search(context.Background(), "q.wav", dir, nil); err != nil {
			t.Fatalf("Search %d failed: %v", i, err)
		}
	}
	// query twice, candidates once
	if got := b.calls.Load(); got != 4 {
		t.Errorf("Expected 4 builds, got %d", got)
	}
	if _, err := os.Stat(storePath); err != nil {
		t.Errorf("Expected the cache to be flushed to %s: %v", storePath, err)
	}

	refresh := New(b, fakeScorer{}, c, Options{Refresh: true}, logger.Discard())
	if _, err := refresh.Search(context.Background(), "q.wav", dir, nil); err != nil {
		t.Fatalf("Refresh search failed: %v", err)
	}
	if got := b.calls.Load(); got != 7 {
		t.Errorf("Expected refresh to rebuild every candidate (7 builds), got %d", got)
	}
}

func TestPrecompute(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.wav", "b.wav", "broken.mp3")
	c, _ := newCache(t)
	c.Put("a.wav", &models.Fingerprint{Name: "a.wav"})
	b := &fakeBuilder{broken: map[string]bool{"broken.mp3": true}}
	cat := New(b, fakeScorer{}, c, Options{}, logger.Discard())

	report, err := cat.Precompute(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Precompute failed: %v", err)
	}
	if len(report.Added) != 1 || report.Added[0] != "b.wav" {
		t.Errorf("Expected b.wav added, got %v", report.Added)
	}
	if len(report.Cached) != 1 || report.Cached[0] != "a.wav" {
		t.Errorf("Expected a.wav cached, got %v", report.Cached)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].Name != "broken.mp3" {
		t.Errorf("Expected broken.mp3 skipped, got %v", report.Skipped)
	}
}

func writeTone(t *testing.T, path string, freq float64) {
	t.Helper()
	samples := make([]float64, audio.DefaultSampleRate)
	for i := range samples {
		samples[i] = 0.5*math.Sin(2*math.Pi*freq*float64(i)/audio.DefaultSampleRate) +
			0.2*math.Sin(2*math.Pi*3*freq*float64(i)/audio.DefaultSampleRate)
	}
	if err := audio.WriteWAV(path, samples, audio.DefaultSampleRate); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestSearchEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeTone(t, filepath.Join(dir, "a440.wav"), 440)
	writeTone(t, filepath.Join(dir, "e330.wav"), 330)
	touch(t, dir, "corrupt.wav", "corrupt.mp3")
	query := filepath.Join(t.TempDir(), "query.wav")
	writeTone(t, query, 440)

	log := logger.Discard()
	builder := fingerprint.NewBuilder(
		audio.NewFileDecoder(audio.DefaultSampleRate),
		features.NewExtractor(features.DefaultConfig(), log),
		audio.DefaultMaxDuration,
		log,
	)
	scorer, err := similarity.NewScorer(similarity.V1)
	if err != nil {
		t.Fatalf("NewScorer failed: %v", err)
	}
	c, _ := newCache(t)

	report, err := New(builder, scorer, c, Options{Workers: 2}, log).Search(context.Background(), query, dir, nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(report.Results) != 2 || len(report.Skipped) != 2 {
		t.Fatalf("Expected 2 results and 2 skipped, got %d and %d", len(report.Results), len(report.Skipped))
	}
	if report.Results[0].Name != "a440.wav" {
		t.Errorf("Expected the identical tone first, got %+v", report.Results)
	}
	if math.Abs(report.Results[0].Score-1) > 1e-9 {
		t.Errorf("Expected an identical recording to score 1, got %.12f", report.Results[0].Score)
	}
	for _, r := range report.Results {
		if r.Score < 0 || r.Score > 1 {
			t.Errorf("Score %f for %s outside [0,1]", r.Score, r.Name)
		}
	}
}
