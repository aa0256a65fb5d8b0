package features

import (
	"math"
	"slices"
)

// reflectIndex mirrors i into [0, n) including the edge sample (d c b a | a b c d).
func reflectIndex(i, n int) int {
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// medianFilter writes the running median of src over a window of kernel samples into dst.
func medianFilter(src, dst []float64, kernel int, scratch []float64) {
	r := kernel / 2
	n := len(src)
	for i := range src {
		for j := -r; j <= r; j++ {
			scratch[j+r] = src[reflectIndex(i+j, n)]
		}
		slices.Sort(scratch)
		dst[i] = scratch[r]
	}
}

// hpssMasks separates a frame-major magnitude spectrogram into harmonic
// (smooth in time) and percussive (smooth in frequency) soft masks.
func hpssMasks(mag [][]float64, kernel int) (harmonic, percussive [][]float64) {
	nFrames := len(mag)
	nBins := len(mag[0])
	kernel |= 1
	scratch := make([]float64, kernel)

	harm := make([][]float64, nFrames)
	perc := make([][]float64, nFrames)
	for t := range mag {
		harm[t] = make([]float64, nBins)
		perc[t] = make([]float64, nBins)
		medianFilter(mag[t], perc[t], kernel, scratch)
	}

	col := make([]float64, nFrames)
	filtered := make([]float64, nFrames)
	for k := 0; k < nBins; k++ {
		for t := range mag {
			col[t] = mag[t][k]
		}
		medianFilter(col, filtered, kernel, scratch)
		for t := range mag {
			harm[t][k] = filtered[t]
		}
	}

	harmonic = make([][]float64, nFrames)
	percussive = make([][]float64, nFrames)
	for t := range mag {
		harmonic[t] = make([]float64, nBins)
		percussive[t] = make([]float64, nBins)
		for k := range mag[t] {
			harmonic[t][k], percussive[t][k] = softMask(harm[t][k], perc[t][k])
		}
	}
	return harmonic, percussive
}

// softMask returns the Wiener-style pair of masks with power 2. Bins where
// both estimates vanish go to neither component.
func softMask(h, p float64) (float64, float64) {
	z := math.Max(h, p)
	if z < 1e-300 {
		return 0, 0
	}
	h, p = (h/z)*(h/z), (p/z)*(p/z)
	return h / (h + p), p / (h + p)
}

func applyMask(spec [][]complex128, mask [][]float64) [][]complex128 {
	out := make([][]complex128, len(spec))
	for t, frame := range spec {
		row := make([]complex128, len(frame))
		for k, c := range frame {
			row[k] = c * complex(mask[t][k], 0)
		}
		out[t] = row
	}
	return out
}
