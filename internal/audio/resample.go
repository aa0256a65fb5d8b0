package audio

import (
	"math"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
)

const (
	// lowPassTaps is the length of the anti-aliasing filter applied before downsampling.
	lowPassTaps = 63
	// lowPassCutoff places the filter edge just below the target Nyquist frequency.
	lowPassCutoff = 0.475
)

// Resample converts samples between rates using linear interpolation.
// Downsampling low-pass filters first so content above the target Nyquist
// frequency does not fold back into the band.
func Resample(samples []float64, fromRate, toRate int) []float64 {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 || len(samples) == 0 {
		return samples
	}
	if fromRate > toRate {
		samples = convolve(samples, lowPass(lowPassCutoff*float64(toRate)/float64(fromRate), lowPassTaps))
	}

	ratio := float64(fromRate) / float64(toRate)
	newLength := int(float64(len(samples)) / ratio)
	resampled := make([]float64, newLength)

	for i := 0; i < newLength; i++ {
		pos := float64(i) * ratio
		index := int(pos)
		frac := pos - float64(index)

		switch {
		case index+1 < len(samples):
			resampled[i] = samples[index]*(1-frac) + samples[index+1]*frac
		case index < len(samples):
			resampled[i] = samples[index]
		default:
			resampled[i] = samples[len(samples)-1]
		}
	}
	return resampled
}

// lowPass returns a Hamming-windowed sinc filter with unit DC gain. cutoff is
// a fraction of the sample rate.
func lowPass(cutoff float64, taps int) []float64 {
	win := window.Hamming(taps)
	h := make([]float64, taps)
	mid := taps / 2
	for i := range h {
		x := float64(i - mid)
		if x == 0 {
			h[i] = 2 * cutoff
		} else {
			h[i] = math.Sin(2*math.Pi*cutoff*x) / (math.Pi * x)
		}
		h[i] *= win[i]
	}
	floats.Scale(1/floats.Sum(h), h)
	return h
}

// convolve applies a centred FIR filter, holding the edge samples beyond either end.
func convolve(samples, h []float64) []float64 {
	n := len(samples)
	mid := len(h) / 2
	out := make([]float64, n)
	for i := range out {
		var acc float64
		for k, c := range h {
			j := min(max(i+k-mid, 0), n-1)
			acc += c * samples[j]
		}
		out[i] = acc
	}
	return out
}
