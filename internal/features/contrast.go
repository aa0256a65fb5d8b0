package features

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	contrastBands    = 6 // octave bands above the sub-band below fMin
	contrastFMin     = 200.0
	contrastQuantile = 0.02
)

var ErrBandAboveNyquist = errors.New("spectral contrast band above nyquist")

// bandRange is an inclusive-exclusive range of STFT bins.
type bandRange struct {
	start, end int
	count      int // bins used to size the quantile
}

// contrastBandRanges splits the spectrum into [0, fMin] followed by octave bands.
// Each band after the first borrows the bin just below its edge; the last band
// runs to Nyquist. All but the last band drop their top bin.
func contrastBandRanges(sampleRate, nFFT int) ([]bandRange, error) {
	freqs := fftFrequencies(sampleRate, nFFT)
	edges := make([]float64, contrastBands+2)
	for i := 1; i < len(edges); i++ {
		edges[i] = contrastFMin * math.Pow(2, float64(i-1))
	}

	bands := make([]bandRange, 0, contrastBands+1)
	for k := 0; k <= contrastBands; k++ {
		lo, hi := -1, -1
		for i, f := range freqs {
			if f >= edges[k] && f <= edges[k+1] {
				if lo < 0 {
					lo = i
				}
				hi = i
			}
		}
		if lo < 0 {
			return nil, fmt.Errorf("%w: %.0f-%.0f Hz at %d Hz", ErrBandAboveNyquist, edges[k], edges[k+1], sampleRate)
		}
		if k > 0 && lo > 0 {
			lo--
		}
		if k == contrastBands {
			hi = len(freqs) - 1
		}
		b := bandRange{start: lo, end: hi + 1, count: hi - lo + 1}
		if k < contrastBands && b.end-b.start > 1 {
			b.end--
		}
		bands = append(bands, b)
	}
	return bands, nil
}

// spectralContrast returns, per frame, the dB difference between the mean of
// the top and bottom quantile of magnitudes in each band.
func spectralContrast(mag [][]float64, sampleRate, nFFT int) ([][]float64, error) {
	bands, err := contrastBandRanges(sampleRate, nFFT)
	if err != nil {
		return nil, err
	}

	nFrames := len(mag)
	peak := mat.NewDense(len(bands), nFrames, nil)
	valley := mat.NewDense(len(bands), nFrames, nil)
	var sorted []float64

	for b, band := range bands {
		q := int(math.RoundToEven(contrastQuantile * float64(band.count)))
		q = max(1, min(q, band.end-band.start))
		for t, frame := range mag {
			sorted = append(sorted[:0], frame[band.start:band.end]...)
			slices.Sort(sorted)
			valley.Set(b, t, stat.Mean(sorted[:q], nil))
			peak.Set(b, t, stat.Mean(sorted[len(sorted)-q:], nil))
		}
	}

	var contrast mat.Dense
	contrast.Sub(powerToDB(peak, 1, amin, topDB), powerToDB(valley, 1, amin, topDB))
	return columns(&contrast), nil
}
