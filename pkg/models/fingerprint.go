package models

import (
	"errors"
	"fmt"
	"math"
)

// Fixed arities shared by every fingerprint.
const (
	NumMFCC          = 20
	NumChroma        = 12
	NumContrastBands = 7
	NumHashes        = 7
	HashHexLen       = 16
)

// ErrInvalidFingerprint is returned by Validate for structurally broken records.
var ErrInvalidFingerprint = errors.New("invalid fingerprint")

// Waveform is a decoded mono signal.
type Waveform struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the length of the waveform in seconds.
func (w *Waveform) Duration() float64 {
	if w == nil || w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// FeatureSet holds the spectral, rhythmic and timbral descriptors of one recording.
// Per-frame sequences are frame-major: MFCCs[frame][coefficient].
type FeatureSet struct {
	Tempo            float64     `json:"tempo"`
	MFCCs            [][]float64 `json:"mfccs"`
	MFCCDeltas       [][]float64 `json:"mfcc_deltas"`
	Chroma           [][]float64 `json:"chroma"`
	OnsetPattern     []float64   `json:"onset_pattern"`
	SpectralContrast [][]float64 `json:"spectral_contrast"`
	HarmonicRatio    float64     `json:"harmonic_ratio"`
	PercussiveRatio  float64     `json:"percussive_ratio"`
}

// HashSet holds the seven perceptual hashes of a spectrogram image as hex strings.
type HashSet struct {
	Average    string `json:"average_hash"`
	Perceptual string `json:"phash"`
	Difference string `json:"dhash"`
	Wavelet    string `json:"whash"`
	Segment0   string `json:"segment_0_hash"`
	Segment1   string `json:"segment_1_hash"`
	Segment2   string `json:"segment_2_hash"`
}

// HashNames lists the hash keys in positional order.
var HashNames = [NumHashes]string{
	"average_hash",
	"phash",
	"dhash",
	"whash",
	"segment_0_hash",
	"segment_1_hash",
	"segment_2_hash",
}

// Values returns the hashes in the order of HashNames.
func (h HashSet) Values() [NumHashes]string {
	return [NumHashes]string{
		h.Average,
		h.Perceptual,
		h.Difference,
		h.Wavelet,
		h.Segment0,
		h.Segment1,
		h.Segment2,
	}
}

// Fingerprint is the stored summary of one audio file.
type Fingerprint struct {
	Name     string     `json:"name"`
	Features FeatureSet `json:"features"`
	Hashes   HashSet    `json:"hashes"`
}

// Validate rejects records that would fail deep inside the scorer.
func (fp *Fingerprint) Validate() error {
	if fp == nil {
		return fmt.Errorf("%w: nil", ErrInvalidFingerprint)
	}
	if fp.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidFingerprint)
	}
	f := &fp.Features
	if !finite(f.Tempo) || f.Tempo < 0 {
		return fmt.Errorf("%w: %s: tempo %v", ErrInvalidFingerprint, fp.Name, f.Tempo)
	}
	if !finite(f.HarmonicRatio) || !finite(f.PercussiveRatio) || f.HarmonicRatio < 0 || f.PercussiveRatio < 0 {
		return fmt.Errorf("%w: %s: harmonic/percussive ratio", ErrInvalidFingerprint, fp.Name)
	}
	if err := checkFrames(f.MFCCs, NumMFCC); err != nil {
		return fmt.Errorf("%w: %s: mfccs: %v", ErrInvalidFingerprint, fp.Name, err)
	}
	if err := checkFrames(f.MFCCDeltas, NumMFCC); err != nil {
		return fmt.Errorf("%w: %s: mfcc_deltas: %v", ErrInvalidFingerprint, fp.Name, err)
	}
	if len(f.MFCCDeltas) != len(f.MFCCs) {
		return fmt.Errorf("%w: %s: %d mfcc frames but %d delta frames",
			ErrInvalidFingerprint, fp.Name, len(f.MFCCs), len(f.MFCCDeltas))
	}
	if err := checkFrames(f.Chroma, NumChroma); err != nil {
		return fmt.Errorf("%w: %s: chroma: %v", ErrInvalidFingerprint, fp.Name, err)
	}
	if err := checkFrames(f.SpectralContrast, NumContrastBands); err != nil {
		return fmt.Errorf("%w: %s: spectral_contrast: %v", ErrInvalidFingerprint, fp.Name, err)
	}
	for i, v := range f.OnsetPattern {
		if !finite(v) {
			return fmt.Errorf("%w: %s: onset_pattern[%d] not finite", ErrInvalidFingerprint, fp.Name, i)
		}
	}
	for i, h := range fp.Hashes.Values() {
		if len(h) != HashHexLen || !isHex(h) {
			return fmt.Errorf("%w: %s: %s %q", ErrInvalidFingerprint, fp.Name, HashNames[i], h)
		}
	}
	return nil
}

func checkFrames(frames [][]float64, width int) error {
	for i, row := range frames {
		if len(row) != width {
			return fmt.Errorf("frame %d has %d values, want %d", i, len(row), width)
		}
		for _, v := range row {
			if !finite(v) {
				return fmt.Errorf("frame %d holds a non-finite value", i)
			}
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}
