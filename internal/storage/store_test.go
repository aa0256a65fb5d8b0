package storage

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/himanishpuri/SoundAlike/pkg/models"
)

func sampleFingerprint(name string, frames int) *models.Fingerprint {
	grid := func(width int) [][]float64 {
		g := make([][]float64, frames)
		for t := range g {
			g[t] = make([]float64, width)
			for i := range g[t] {
				g[t][i] = float64(t*width+i)/7 - 3.25
			}
		}
		return g
	}
	onset := make([]float64, frames)
	for i := range onset {
		onset[i] = 0.1 * float64(i)
	}
	return &models.Fingerprint{
		Name: name,
		Features: models.FeatureSet{
			Tempo:            123.046875,
			MFCCs:            grid(models.NumMFCC),
			MFCCDeltas:       grid(models.NumMFCC),
			Chroma:           grid(models.NumChroma),
			OnsetPattern:     onset,
			SpectralContrast: grid(models.NumContrastBands),
			HarmonicRatio:    0.8123456789,
			PercussiveRatio:  0.2987654321,
		},
		Hashes: models.HashSet{
			Average:    "ffff0000ffff0000",
			Perceptual: "0123456789abcdef",
			Difference: "fedcba9876543210",
			Wavelet:    "0f0f0f0f0f0f0f0f",
			Segment0:   "8000000000000001",
			Segment1:   "0000000000000000",
			Segment2:   "ffffffffffffffff",
		},
	}
}

func assertSameFingerprint(t *testing.T, want, got *models.Fingerprint) {
	t.Helper()
	if got.Name != want.Name {
		t.Errorf("name: expected %s, got %s", want.Name, got.Name)
	}
	if got.Hashes != want.Hashes {
		t.Errorf("hashes differ:\nexpected %+v\n     got %+v", want.Hashes, got.Hashes)
	}
	if math.Abs(got.Features.Tempo-want.Features.Tempo) > 1e-12 {
		t.Errorf("tempo: expected %v, got %v", want.Features.Tempo, got.Features.Tempo)
	}
	if math.Abs(got.Features.HarmonicRatio-want.Features.HarmonicRatio) > 1e-12 {
		t.Errorf("harmonic ratio: expected %v, got %v", want.Features.HarmonicRatio, got.Features.HarmonicRatio)
	}
	for i, frame := range want.Features.MFCCs {
		for j, v := range frame {
			if math.Abs(got.Features.MFCCs[i][j]-v) > 1e-12 {
				t.Fatalf("mfcc[%d][%d]: expected %v, got %v", i, j, v, got.Features.MFCCs[i][j])
			}
		}
	}
	if len(got.Features.OnsetPattern) != len(want.Features.OnsetPattern) {
		t.Errorf("onset: expected %d values, got %d", len(want.Features.OnsetPattern), len(got.Features.OnsetPattern))
	}
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	log := logger.Discard()

	sq, err := NewSQLiteStore(filepath.Join(dir, "fp.sqlite3"), log)
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { sq.Close() })

	return map[string]Store{
		"json":   NewJSONStore(filepath.Join(dir, "fp.json"), log),
		"sqlite": sq,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			fps := map[string]*models.Fingerprint{
				"a.wav": sampleFingerprint("a.wav", 5),
				"b.mp3": sampleFingerprint("b.mp3", 9),
			}
			if err := store.Save(ctx, fps); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			loaded, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if len(loaded) != len(fps) {
				t.Fatalf("Expected %d fingerprints, got %d", len(fps), len(loaded))
			}
			for k, want := range fps {
				got, ok := loaded[k]
				if !ok {
					t.Fatalf("Missing %s after reload", k)
				}
				assertSameFingerprint(t, want, got)
			}

			// Save replaces wholesale
			if err := store.Save(ctx, map[string]*models.Fingerprint{"a.wav": fps["a.wav"]}); err != nil {
				t.Fatalf("Second save failed: %v", err)
			}
			loaded, err = store.Load(ctx)
			if err != nil {
				t.Fatalf("Reload failed: %v", err)
			}
			if _, ok := loaded["b.mp3"]; ok || len(loaded) != 1 {
				t.Errorf("Expected only a.wav after replacing, got %d entries", len(loaded))
			}
		})
	}
}

func TestJSONStoreMissingFile(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "absent.json"), logger.Discard())
	fps, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Missing store should not be an error: %v", err)
	}
	if len(fps) != 0 {
		t.Errorf("Expected empty store, got %d entries", len(fps))
	}
}

func TestJSONStoreCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"garbage", "{not json"},
		{"array", "[1,2,3]"},
		{"future version", `{"version": 99, "fingerprints": {}}`},
		{"bad envelope", `{"version": 1, "fingerprints": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "db.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("Failed to write store: %v", err)
			}
			if _, err := NewJSONStore(path, logger.Discard()).Load(context.Background()); !errors.Is(err, ErrCorrupt) {
				t.Errorf("Expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestJSONStoreDropsInvalidEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	store := NewJSONStore(path, logger.Discard())

	good := sampleFingerprint("good.wav", 4)
	bad := sampleFingerprint("bad.wav", 4)
	bad.Features.Chroma[2] = []float64{1, 2, 3}
	if err := store.Save(context.Background(), map[string]*models.Fingerprint{"good.wav": good, "bad.wav": bad}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := loaded["bad.wav"]; ok {
		t.Error("Invalid fingerprint should have been dropped")
	}
	if _, ok := loaded["good.wav"]; !ok {
		t.Error("Valid fingerprint should survive")
	}
}

func TestJSONStoreReadsUnversionedFile(t *testing.T) {
	// band-major layout: 20 coefficient rows of 3 frames each
	mfcc := make([][]float64, models.NumMFCC)
	for i := range mfcc {
		mfcc[i] = []float64{float64(i), float64(i) + 0.5, float64(i) + 0.25}
	}
	fp := sampleFingerprint("", 3)
	fp.Features.MFCCs = mfcc

	doc := `{"old.wav": {"features": {"tempo": 99.5, "mfccs": ` + mustJSON(t, mfcc) +
		`, "mfcc_deltas": ` + mustJSON(t, fp.Features.MFCCDeltas) +
		`, "chroma": ` + mustJSON(t, fp.Features.Chroma) +
		`, "onset_pattern": [0, 0.5, 1]` +
		`, "spectral_contrast": ` + mustJSON(t, fp.Features.SpectralContrast) +
		`, "harmonic_ratio": 0.7, "percussive_ratio": 0.3}, "hashes": ` + mustJSON(t, fp.Hashes) + `}}`

	path := filepath.Join(t.TempDir(), "fingerprints_db.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("Failed to write store: %v", err)
	}

	loaded, err := NewJSONStore(path, logger.Discard()).Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got, ok := loaded["old.wav"]
	if !ok {
		t.Fatal("Expected old.wav to be imported")
	}
	if got.Name != "old.wav" {
		t.Errorf("Expected name from key, got %q", got.Name)
	}
	if len(got.Features.MFCCs) != 3 || got.Features.MFCCs[1][4] != 4.5 {
		t.Errorf("Expected MFCCs transposed to 3 frames, got %v", got.Features.MFCCs)
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal fixture: %v", err)
	}
	return string(b)
}

func TestBackendFor(t *testing.T) {
	tests := map[string]Backend{
		"fingerprints_db.json": BackendJSON,
		"cache.SQLITE3":        BackendSQLite,
		"data/fp.db":           BackendSQLite,
		"noext":                BackendJSON,
	}
	for path, want := range tests {
		if got := BackendFor(path); got != want {
			t.Errorf("BackendFor(%q) = %s, expected %s", path, got, want)
		}
	}
}
