package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Constant-Q analysis covers seven octaves of semitones starting at C1.
const (
	cqtFMin          = 32.70319566257483
	cqtBinsPerOctave = 12
	cqtBins          = 7 * cqtBinsPerOctave
	cqtSigma         = 0.5 // semitones
)

// constantQFilterbank maps STFT power onto log-spaced semitone bins. Each
// row is a Gaussian in log frequency centred on one semitone, normalised to
// unit sum so bins in sparsely resolved low octaves are not starved.
func constantQFilterbank(sampleRate, nFFT int) *mat.Dense {
	freqs := fftFrequencies(sampleRate, nFFT)
	fb := mat.NewDense(cqtBins, len(freqs), nil)
	row := make([]float64, len(freqs))
	for b := 0; b < cqtBins; b++ {
		centre := cqtFMin * math.Pow(2, float64(b)/cqtBinsPerOctave)
		for k, f := range freqs {
			row[k] = 0
			if f <= 0 {
				continue
			}
			dist := cqtBinsPerOctave * math.Log2(f/centre) / cqtSigma
			row[k] = math.Exp(-0.5 * dist * dist)
		}
		if sum := floats.Sum(row); sum > 0 {
			floats.Scale(1/sum, row)
		}
		fb.SetRow(b, row)
	}
	return fb
}

// chromagram folds constant-Q magnitudes into 12 pitch classes (C first)
// and scales every frame so its strongest class is 1.
func chromagram(fb *mat.Dense, power *mat.Dense) [][]float64 {
	cq := project(fb, power)
	_, nFrames := cq.Dims()

	out := make([][]float64, nFrames)
	for t := range out {
		frame := make([]float64, cqtBinsPerOctave)
		for b := 0; b < cqtBins; b++ {
			frame[b%cqtBinsPerOctave] += math.Sqrt(cq.At(b, t))
		}
		if peak := floats.Max(frame); peak > 0 {
			for i := range frame {
				frame[i] /= peak
			}
		}
		out[t] = frame
	}
	return out
}
