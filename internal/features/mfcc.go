package features

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// dctBasis returns the first nOut rows of the orthonormal DCT-II matrix of size n.
func dctBasis(nOut, n int) *mat.Dense {
	basis := mat.NewDense(nOut, n, nil)
	for k := 0; k < nOut; k++ {
		scale := math.Sqrt(2 / float64(n))
		if k == 0 {
			scale = math.Sqrt(1 / float64(n))
		}
		for i := 0; i < n; i++ {
			basis.Set(k, i, scale*math.Cos(math.Pi*float64(k)*(2*float64(i)+1)/(2*float64(n))))
		}
	}
	return basis
}

// mfcc projects a bands x frames dB mel grid onto the cepstral basis and
// returns nCoeff coefficients per frame, frame-major.
func mfcc(melDB *mat.Dense, nCoeff int) [][]float64 {
	nMels, _ := melDB.Dims()
	var cep mat.Dense
	cep.Mul(dctBasis(nCoeff, nMels), melDB)
	return columns(&cep)
}

// delta estimates the first time derivative of each coefficient with a
// first-order Savitzky-Golay filter. Edge frames take the slope fitted over
// the first or last full window. The window shrinks to the largest odd size
// that fits short inputs; with fewer than three frames every delta is zero.
func delta(frames [][]float64, width int) [][]float64 {
	n := len(frames)
	out := make([][]float64, n)
	if n == 0 {
		return out
	}
	dims := len(frames[0])
	for t := range out {
		out[t] = make([]float64, dims)
	}

	if width > n {
		width = n
	}
	if width%2 == 0 {
		width--
	}
	if width < 3 {
		return out
	}

	half := width / 2
	var denom float64
	for j := -half; j <= half; j++ {
		denom += float64(j * j)
	}

	slope := func(start, d int) float64 {
		var s float64
		for j := -half; j <= half; j++ {
			s += float64(j) * frames[start+half+j][d]
		}
		return s / denom
	}

	for t := 0; t < n; t++ {
		start := t - half
		switch {
		case start < 0:
			start = 0
		case start > n-width:
			start = n - width
		}
		for d := 0; d < dims; d++ {
			out[t][d] = slope(start, d)
		}
	}
	return out
}
