package features

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Slaney-style mel scale: linear below 1 kHz, logarithmic above.
const (
	melFSp      = 200.0 / 3
	melMinLogHz = 1000.0
	melLogStep  = 0.06875177742094912 // ln(6.4) / 27
)

var melMinLog = melMinLogHz / melFSp

func hzToMel(f float64) float64 {
	if f < melMinLogHz {
		return f / melFSp
	}
	return melMinLog + math.Log(f/melMinLogHz)/melLogStep
}

func melToHz(m float64) float64 {
	if m < melMinLog {
		return m * melFSp
	}
	return melMinLogHz * math.Exp(melLogStep*(m-melMinLog))
}

// fftFrequencies returns the centre frequency of each of the nFFT/2+1 bins.
func fftFrequencies(sampleRate, nFFT int) []float64 {
	freqs := make([]float64, nFFT/2+1)
	for k := range freqs {
		freqs[k] = float64(k) * float64(sampleRate) / float64(nFFT)
	}
	return freqs
}

// melFilterbank builds an nMels x (nFFT/2+1) matrix of area-normalised triangular filters.
func melFilterbank(sampleRate, nFFT, nMels int, fMin, fMax float64) *mat.Dense {
	fftFreqs := fftFrequencies(sampleRate, nFFT)

	lo, hi := hzToMel(fMin), hzToMel(fMax)
	melF := make([]float64, nMels+2)
	for i := range melF {
		melF[i] = melToHz(lo + (hi-lo)*float64(i)/float64(nMels+1))
	}

	fb := mat.NewDense(nMels, len(fftFreqs), nil)
	for m := 0; m < nMels; m++ {
		left, centre, right := melF[m], melF[m+1], melF[m+2]
		enorm := 2.0 / (right - left)
		for k, f := range fftFreqs {
			lower := (f - left) / (centre - left)
			upper := (right - f) / (right - centre)
			if w := math.Min(lower, upper); w > 0 {
				fb.Set(m, k, w*enorm)
			}
		}
	}
	return fb
}

// framesToDense packs a frame-major grid into a frames x bins matrix.
func framesToDense(frames [][]float64) *mat.Dense {
	cols := len(frames[0])
	data := make([]float64, 0, len(frames)*cols)
	for _, row := range frames {
		data = append(data, row...)
	}
	return mat.NewDense(len(frames), cols, data)
}

// project applies a bands x bins filterbank to a frames x bins spectrogram,
// returning a bands x frames matrix.
func project(fb *mat.Dense, spec *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Mul(fb, spec.T())
	return &out
}

// powerToDB converts a power grid to decibels relative to ref and floors it
// topDB below its peak. amin guards the logarithm.
func powerToDB(s *mat.Dense, ref, amin, topDB float64) *mat.Dense {
	refDB := 10 * math.Log10(math.Max(amin, ref))
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		return 10*math.Log10(math.Max(amin, v)) - refDB
	}, s)

	if topDB > 0 {
		floor := mat.Max(&out) - topDB
		out.Apply(func(_, _ int, v float64) float64 {
			return math.Max(v, floor)
		}, &out)
	}
	return &out
}

// rows copies a matrix into row slices.
func rows(m mat.Matrix) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}

// columns copies a matrix into column slices, i.e. frame-major for a bands x frames grid.
func columns(m mat.Matrix) [][]float64 {
	_, c := m.Dims()
	out := make([][]float64, c)
	for j := range out {
		out[j] = mat.Col(nil, j, m)
	}
	return out
}
