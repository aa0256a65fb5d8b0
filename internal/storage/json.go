package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/himanishpuri/SoundAlike/pkg/models"
	"github.com/himanishpuri/SoundAlike/pkg/utils"
)

// DefaultJSONFile is the store file used when none is configured.
const DefaultJSONFile = "fingerprints_db.json"

type envelope struct {
	Version      int                        `json:"version"`
	Fingerprints map[string]json.RawMessage `json:"fingerprints"`
}

// JSONStore keeps every fingerprint in one JSON document keyed by file name.
type JSONStore struct {
	path string
	log  *logger.Logger
}

func NewJSONStore(path string, log *logger.Logger) *JSONStore {
	if path == "" {
		path = DefaultJSONFile
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &JSONStore{path: path, log: log.Named("store")}
}

func (s *JSONStore) Path() string { return s.path }

// Load reads the store. A missing file is an empty store. Malformed content
// or an unknown version returns ErrCorrupt. Entries that fail validation are
// dropped with a warning. Files written without a version tag are read as a
// plain name-to-fingerprint mapping.
func (s *JSONStore) Load(ctx context.Context) (map[string]*models.Fingerprint, error) {
	out := make(map[string]*models.Fingerprint)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}

	var entries map[string]json.RawMessage
	legacy := false
	if _, tagged := probe["version"]; tagged {
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
		}
		if env.Version != FormatVersion {
			return nil, fmt.Errorf("%w: %s: unsupported version %d", ErrCorrupt, s.path, env.Version)
		}
		entries = env.Fingerprints
	} else {
		entries, legacy = probe, true
	}

	for name, raw := range entries {
		var fp models.Fingerprint
		if err := json.Unmarshal(raw, &fp); err != nil {
			s.log.Warnf("Dropping stored fingerprint %s: %v", name, err)
			continue
		}
		if legacy {
			bandMajorToFrameMajor(&fp.Features)
		}
		keep(out, name, &fp, s.log)
	}

	s.log.Debugf("Loaded %d fingerprints from %s", len(out), s.path)
	return out, nil
}

// Save replaces the file atomically with every fingerprint in fps.
func (s *JSONStore) Save(ctx context.Context, fps map[string]*models.Fingerprint) error {
	env := envelope{
		Version:      FormatVersion,
		Fingerprints: make(map[string]json.RawMessage, len(fps)),
	}
	for name, fp := range fps {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := json.Marshal(fp)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		env.Fingerprints[name] = raw
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}
	if err := utils.WriteFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	s.log.Debugf("Saved %d fingerprints to %s", len(fps), s.path)
	return nil
}

func (s *JSONStore) Close() error { return nil }

// bandMajorToFrameMajor transposes feature grids stored one row per band
// into one row per frame. Grids already frame-major are left alone.
func bandMajorToFrameMajor(f *models.FeatureSet) {
	f.MFCCs = transposeIfBandMajor(f.MFCCs, models.NumMFCC)
	f.MFCCDeltas = transposeIfBandMajor(f.MFCCDeltas, models.NumMFCC)
	f.Chroma = transposeIfBandMajor(f.Chroma, models.NumChroma)
	f.SpectralContrast = transposeIfBandMajor(f.SpectralContrast, models.NumContrastBands)
}

func transposeIfBandMajor(grid [][]float64, bands int) [][]float64 {
	if len(grid) != bands || len(grid[0]) == bands {
		return grid
	}
	frames := len(grid[0])
	out := make([][]float64, frames)
	for t := range out {
		out[t] = make([]float64, bands)
		for b := 0; b < bands; b++ {
			if t < len(grid[b]) {
				out[t][b] = grid[b][t]
			}
		}
	}
	return out
}
