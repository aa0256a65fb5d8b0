package similarity

import (
	"math"

	"github.com/himanishpuri/SoundAlike/pkg/models"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Scorer compares two fingerprints under one weighting scheme.
type Scorer struct {
	weights Weights
}

func NewScorer(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: w}, nil
}

func (s *Scorer) Weights() Weights { return s.weights }

// Score returns the weighted similarity of a and b in [0, 1].
func (s *Scorer) Score(a, b *models.Fingerprint) float64 {
	return s.Breakdown(a, b).Total
}

// Breakdown returns every sub-score alongside the weighted total. Sub-scores
// that cannot be computed, such as a cosine against a zero vector, are 0.
func (s *Scorer) Breakdown(a, b *models.Fingerprint) models.ScoreBreakdown {
	fa, fb := &a.Features, &b.Features

	mfcc := (sequenceCosine(fa.MFCCs, fb.MFCCs) + sequenceCosine(fa.MFCCDeltas, fb.MFCCDeltas)) / 2
	hp := (closeness(fa.HarmonicRatio, fb.HarmonicRatio) + closeness(fa.PercussiveRatio, fb.PercussiveRatio)) / 2

	bd := models.ScoreBreakdown{
		WeightsVersion:     s.weights.Version,
		MFCC:               unit(mfcc),
		Chroma:             sequenceCosine(fa.Chroma, fb.Chroma),
		Tempo:              tempoSimilarity(fa.Tempo, fb.Tempo),
		Onset:              cosine(truncate(fa.OnsetPattern, fb.OnsetPattern)),
		SpectralContrast:   sequenceCosine(fa.SpectralContrast, fb.SpectralContrast),
		HarmonicPercussive: unit(hp),
		Hash:               hashAgreement(a.Hashes, b.Hashes),
	}

	scores := []float64{bd.MFCC, bd.Chroma, bd.Tempo, bd.Onset, bd.SpectralContrast, bd.HarmonicPercussive, bd.Hash}
	bd.Total = unit(stat.Mean(scores, s.weights.values()))
	return bd
}

// sequenceCosine truncates both frame sequences to the shorter one, flattens
// them frame by frame and returns their cosine similarity.
func sequenceCosine(a, b [][]float64) float64 {
	n := min(len(a), len(b))
	return cosine(flatten(a[:n]), flatten(b[:n]))
}

func flatten(frames [][]float64) []float64 {
	var size int
	for _, f := range frames {
		size += len(f)
	}
	out := make([]float64, 0, size)
	for _, f := range frames {
		out = append(out, f...)
	}
	return out
}

func truncate(a, b []float64) ([]float64, []float64) {
	n := min(len(a), len(b))
	return a[:n], b[:n]
}

func cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return unit(floats.Dot(a, b) / (na * nb))
}

func tempoSimilarity(a, b float64) float64 {
	hi := math.Max(a, b)
	if hi <= 0 {
		return 0
	}
	return unit(1 - math.Abs(a-b)/hi)
}

func closeness(a, b float64) float64 {
	return 1 - math.Abs(a-b)
}

func hashAgreement(a, b models.HashSet) float64 {
	av, bv := a.Values(), b.Values()
	same := 0
	for i := range av {
		if av[i] == bv[i] {
			same++
		}
	}
	return float64(same) / float64(len(av))
}

// unit clamps v to [0, 1]; NaN maps to 0.
func unit(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
