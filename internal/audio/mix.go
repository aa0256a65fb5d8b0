package audio

import (
	"errors"
	"math"

	"github.com/himanishpuri/SoundAlike/pkg/models"
)

// Mix combines two waveforms as w1*a + w2*b, with weights given in percent.
// The longer input is trimmed and the result is peak-normalised.
func Mix(a, b *models.Waveform, w1, w2 float64) (*models.Waveform, error) {
	if a == nil || b == nil {
		return nil, errors.New("mix needs two waveforms")
	}
	if a.SampleRate != b.SampleRate {
		return nil, errors.New("mix inputs must share a sample rate")
	}

	n := min(len(a.Samples), len(b.Samples))
	if n == 0 {
		return nil, ErrNoSamples
	}

	out := make([]float64, n)
	peak := 0.0
	for i := 0; i < n; i++ {
		out[i] = w1/100*a.Samples[i] + w2/100*b.Samples[i]
		peak = math.Max(peak, math.Abs(out[i]))
	}
	if peak > 0 {
		for i := range out {
			out[i] /= peak
		}
	}

	return &models.Waveform{Samples: out, SampleRate: a.SampleRate}, nil
}
