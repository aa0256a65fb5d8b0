package similarity

import (
	"errors"
	"fmt"
	"math"
)

// Weights sets how much each sub-score contributes to the total. A set is
// identified by Version so stored results can be traced to the scheme used.
type Weights struct {
	Version            string  `json:"version"`
	MFCC               float64 `json:"mfcc"`
	Chroma             float64 `json:"chroma"`
	Tempo              float64 `json:"tempo"`
	Onset              float64 `json:"onset"`
	SpectralContrast   float64 `json:"spectral_contrast"`
	HarmonicPercussive float64 `json:"harmonic_percussive"`
	Hash               float64 `json:"hash"`
}

// V1 is the canonical weighting.
var V1 = Weights{
	Version:            "v1",
	MFCC:               0.30,
	Chroma:             0.20,
	Tempo:              0.10,
	Onset:              0.10,
	SpectralContrast:   0.10,
	HarmonicPercussive: 0.10,
	Hash:               0.10,
}

var ErrInvalidWeights = errors.New("invalid weights")

func (w Weights) values() []float64 {
	return []float64{w.MFCC, w.Chroma, w.Tempo, w.Onset, w.SpectralContrast, w.HarmonicPercussive, w.Hash}
}

// Validate requires finite non-negative weights with a positive sum.
func (w Weights) Validate() error {
	if w.Version == "" {
		return fmt.Errorf("%w: missing version", ErrInvalidWeights)
	}
	var sum float64
	for _, v := range w.values() {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s has weight %v", ErrInvalidWeights, w.Version, v)
		}
		sum += v
	}
	if sum <= 0 {
		return fmt.Errorf("%w: %s weights sum to zero", ErrInvalidWeights, w.Version)
	}
	return nil
}
