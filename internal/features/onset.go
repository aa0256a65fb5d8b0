package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// onsetStrength is the mean positive first difference across mel bands of a
// bands x frames dB grid. The envelope is delayed by lag plus half a window
// (in hops) to line up with the centred frames, and cut to the frame count.
func onsetStrength(melDB *mat.Dense, nFFT, hop int) []float64 {
	const lag = 1
	nMels, nFrames := melDB.Dims()
	env := make([]float64, nFrames)
	offset := lag + nFFT/(2*hop)

	for t := lag; t < nFrames; t++ {
		pos := t - lag + offset
		if pos >= nFrames {
			break
		}
		var sum float64
		for m := 0; m < nMels; m++ {
			sum += math.Max(0, melDB.At(m, t)-melDB.At(m, t-lag))
		}
		env[pos] = sum / float64(nMels)
	}
	return env
}

// Tempo search range and log-normal prior, in BPM.
const (
	tempoMin        = 30.0
	tempoMax        = 320.0
	tempoStart      = 120.0
	tempoStdOctaves = 1.0
	tempoACWindow   = 8.0 // seconds of lag considered
)

// estimateTempo picks the autocorrelation lag of the onset envelope that
// best agrees with a log-normal prior around 120 BPM. A flat envelope has
// no periodicity and yields 0.
func estimateTempo(env []float64, sampleRate, hop int) float64 {
	energy := floats.Dot(env, env)
	if energy <= 0 {
		return 0
	}

	maxLag := int(tempoACWindow * float64(sampleRate) / float64(hop))
	if maxLag > len(env)-1 {
		maxLag = len(env) - 1
	}

	best, bestScore := 0.0, math.Inf(-1)
	for lag := 1; lag <= maxLag; lag++ {
		bpm := 60 * float64(sampleRate) / (float64(hop) * float64(lag))
		if bpm < tempoMin || bpm > tempoMax {
			continue
		}
		ac := floats.Dot(env[:len(env)-lag], env[lag:]) / energy
		z := (math.Log2(bpm) - math.Log2(tempoStart)) / tempoStdOctaves
		score := math.Log1p(1e6*math.Max(ac, 0)) - 0.5*z*z
		if score > bestScore {
			best, bestScore = bpm, score
		}
	}
	return best
}
