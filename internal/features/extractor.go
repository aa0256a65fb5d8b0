package features

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/himanishpuri/SoundAlike/pkg/models"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// dB conversion defaults.
const (
	amin  = 1e-10
	topDB = 80.0
)

var (
	ErrEmptySignal  = errors.New("empty signal")
	ErrSilentSignal = errors.New("silent signal")
)

// Config holds the analysis parameters. Every per-frame feature shares
// NFFT and HopLength, so frame counts agree within one waveform.
type Config struct {
	NFFT       int
	HopLength  int
	NMels      int
	MelFMax    float64 // upper edge of the hashed mel grid
	DeltaWidth int
	HPSSKernel int
}

func DefaultConfig() Config {
	return Config{
		NFFT:       2048,
		HopLength:  512,
		NMels:      128,
		MelFMax:    8000,
		DeltaWidth: 9,
		HPSSKernel: 31,
	}
}

// Result carries the feature set and the dB mel grid (one row per band,
// one column per frame) that the spectrogram hasher consumes.
type Result struct {
	Features models.FeatureSet
	MelDB    [][]float64
}

type Extractor struct {
	cfg Config
	log *logger.Logger
}

func NewExtractor(cfg Config, log *logger.Logger) *Extractor {
	def := DefaultConfig()
	if cfg.NFFT <= 0 {
		cfg.NFFT = def.NFFT
	}
	if cfg.HopLength <= 0 {
		cfg.HopLength = def.HopLength
	}
	if cfg.NMels <= 0 {
		cfg.NMels = def.NMels
	}
	if cfg.MelFMax <= 0 {
		cfg.MelFMax = def.MelFMax
	}
	if cfg.DeltaWidth <= 0 {
		cfg.DeltaWidth = def.DeltaWidth
	}
	if cfg.HPSSKernel <= 0 {
		cfg.HPSSKernel = def.HPSSKernel
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Extractor{cfg: cfg, log: log.Named("features")}
}

func (e *Extractor) Config() Config { return e.cfg }

// Extract computes every descriptor of wf. The context is checked between stages.
func (e *Extractor) Extract(ctx context.Context, wf *models.Waveform) (*Result, error) {
	if wf == nil || len(wf.Samples) == 0 {
		return nil, ErrEmptySignal
	}
	if wf.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", wf.SampleRate)
	}
	sr, nFFT, hop := wf.SampleRate, e.cfg.NFFT, e.cfg.HopLength

	win := periodicHann(nFFT)
	spec := stft(wf.Samples, nFFT, hop, win)
	mag := magnitude(spec)
	power := framesToDense(squared(mag))

	// hashed grid: capped band, referenced to its own peak
	fMax := math.Min(e.cfg.MelFMax, float64(sr)/2)
	melPow := project(melFilterbank(sr, nFFT, e.cfg.NMels, 0, fMax), power)
	melDB := powerToDB(melPow, max(amin, mat.Max(melPow)), amin, topDB)

	// cepstral and onset analysis use the full band with an absolute reference
	fullPow := project(melFilterbank(sr, nFFT, e.cfg.NMels, 0, float64(sr)/2), power)
	fullDB := powerToDB(fullPow, 1, amin, topDB)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var fs models.FeatureSet
	fs.OnsetPattern = onsetStrength(fullDB, nFFT, hop)
	fs.Tempo = estimateTempo(fs.OnsetPattern, sr, hop)
	fs.MFCCs = mfcc(fullDB, models.NumMFCC)
	fs.MFCCDeltas = delta(fs.MFCCs, e.cfg.DeltaWidth)
	fs.Chroma = chromagram(constantQFilterbank(sr, nFFT), power)

	contrast, err := spectralContrast(mag, sr, nFFT)
	if err != nil {
		return nil, err
	}
	fs.SpectralContrast = contrast

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fs.HarmonicRatio, fs.PercussiveRatio, err = e.hpssRatios(wf.Samples, spec, mag, win)
	if err != nil {
		return nil, err
	}

	e.log.Debugf("extracted %d frames at %d Hz, tempo %.1f BPM", len(spec), sr, fs.Tempo)
	return &Result{Features: fs, MelDB: rows(melDB)}, nil
}

// hpssRatios splits the signal into harmonic and percussive parts and
// returns the mean absolute amplitude of each relative to the input.
func (e *Extractor) hpssRatios(samples []float64, spec [][]complex128, mag [][]float64, win []float64) (float64, float64, error) {
	ref := meanAbs(samples)
	if ref == 0 {
		return 0, 0, ErrSilentSignal
	}

	hMask, pMask := hpssMasks(mag, e.cfg.HPSSKernel)
	yh := istft(applyMask(spec, hMask), e.cfg.NFFT, e.cfg.HopLength, win, len(samples))
	yp := istft(applyMask(spec, pMask), e.cfg.NFFT, e.cfg.HopLength, win, len(samples))

	h, p := meanAbs(yh)/ref, meanAbs(yp)/ref
	if math.IsNaN(h) || math.IsNaN(p) {
		return 0, 0, fmt.Errorf("harmonic/percussive split: %w", ErrSilentSignal)
	}
	return h, p, nil
}

func meanAbs(x []float64) float64 {
	abs := make([]float64, len(x))
	for i, v := range x {
		abs[i] = math.Abs(v)
	}
	return stat.Mean(abs, nil)
}
