package features

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// periodicHann returns an n-point Hann window with the last (repeated) sample dropped.
func periodicHann(n int) []float64 {
	return window.Hann(n + 1)[:n]
}

// stft computes a centred short-time Fourier transform. The signal is zero padded
// by nFFT/2 on both sides, so there are 1+len(samples)/hop frames of nFFT/2+1 bins.
// The result is frame-major: spec[frame][bin].
func stft(samples []float64, nFFT, hop int, win []float64) [][]complex128 {
	pad := nFFT / 2
	padded := make([]float64, len(samples)+2*pad)
	copy(padded[pad:], samples)

	nFrames := 1 + len(samples)/hop
	bins := nFFT/2 + 1
	spec := make([][]complex128, nFrames)
	frame := make([]float64, nFFT)
	for t := range spec {
		start := t * hop
		for i := range frame {
			frame[i] = padded[start+i] * win[i]
		}
		full := fft.FFTReal(frame)
		spec[t] = append([]complex128(nil), full[:bins]...)
	}
	return spec
}

// istft inverts a centred STFT by windowed overlap-add and trims the result to length samples.
func istft(spec [][]complex128, nFFT, hop int, win []float64, length int) []float64 {
	pad := nFFT / 2
	total := nFFT + hop*(len(spec)-1)
	out := make([]float64, total)
	norm := make([]float64, total)

	full := make([]complex128, nFFT)
	for t, half := range spec {
		for k := 0; k < len(half); k++ {
			full[k] = half[k]
		}
		for k := 1; k < nFFT/2; k++ {
			full[nFFT-k] = cmplx.Conj(half[k])
		}
		frame := fft.IFFT(full)
		start := t * hop
		for i := 0; i < nFFT; i++ {
			out[start+i] += real(frame[i]) * win[i]
			norm[start+i] += win[i] * win[i]
		}
	}

	for i := range out {
		if norm[i] > 1e-10 {
			out[i] /= norm[i]
		}
	}

	y := make([]float64, length)
	if pad < total {
		copy(y, out[pad:])
	}
	return y
}

func magnitude(spec [][]complex128) [][]float64 {
	mag := make([][]float64, len(spec))
	for t, frame := range spec {
		row := make([]float64, len(frame))
		for k, c := range frame {
			row[k] = cmplx.Abs(c)
		}
		mag[t] = row
	}
	return mag
}

func squared(mag [][]float64) [][]float64 {
	pow := make([][]float64, len(mag))
	for t, frame := range mag {
		row := make([]float64, len(frame))
		for k, v := range frame {
			row[k] = v * v
		}
		pow[t] = row
	}
	return pow
}
