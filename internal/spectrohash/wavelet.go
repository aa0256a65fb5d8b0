package spectrohash

import (
	"image"
	"image/color"
	"slices"

	"github.com/nfnt/resize"
)

const (
	waveletScale  = 64
	waveletLevels = 3 // 64 -> 8
)

// WaveletHash scales img to 64x64, keeps the 8x8 Haar approximation band and
// sets one bit per coefficient above the median, row-major, most significant first.
func WaveletHash(img image.Image) uint64 {
	scaled := resize.Resize(waveletScale, waveletScale, img, resize.Bilinear)

	n := waveletScale
	coef := make([]float64, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			g := color.GrayModel.Convert(scaled.At(x+scaled.Bounds().Min.X, y+scaled.Bounds().Min.Y)).(color.Gray)
			coef[y*n+x] = float64(g.Y) / 255
		}
	}

	for level := 0; level < waveletLevels; level++ {
		coef = haarApprox(coef, n)
		n /= 2
	}

	sorted := slices.Clone(coef)
	slices.Sort(sorted)
	median := (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2

	var bits uint64
	for i, v := range coef {
		if v > median {
			bits |= 1 << uint(len(coef)-i-1)
		}
	}
	return bits
}

// haarApprox returns the LL band of one orthonormal 2D Haar step over an n x n block.
func haarApprox(src []float64, n int) []float64 {
	half := n / 2
	out := make([]float64, half*half)
	for y := 0; y < half; y++ {
		for x := 0; x < half; x++ {
			i := 2*y*n + 2*x
			out[y*half+x] = (src[i] + src[i+1] + src[i+n] + src[i+n+1]) / 2
		}
	}
	return out
}
