package audio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/himanishpuri/SoundAlike/pkg/models"
)

const (
	// DefaultSampleRate matches the analysis rate the feature extractor is tuned for.
	DefaultSampleRate = 22050
	// DefaultMaxDuration bounds how much of each file is decoded.
	DefaultMaxDuration = 30 * time.Second
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrNoSamples         = errors.New("no audio samples decoded")
)

// Decoder turns a file into a mono waveform at a fixed sample rate.
type Decoder interface {
	Decode(ctx context.Context, path string, maxDuration time.Duration) (*models.Waveform, error)
}

// FileDecoder decodes WAV and MP3 files from disk. Multi-channel audio is
// averaged to mono and resampled to SampleRate.
type FileDecoder struct {
	SampleRate int
}

func NewFileDecoder(sampleRate int) *FileDecoder {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &FileDecoder{SampleRate: sampleRate}
}

// Decode reads at most maxDuration of audio from path. A non-positive
// maxDuration decodes the whole file.
func (d *FileDecoder) Decode(ctx context.Context, path string, maxDuration time.Duration) (*models.Waveform, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		samples    []float64
		sourceRate int
		err        error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		samples, sourceRate, err = readWAV(ctx, path, maxDuration)
	case ".mp3":
		samples, sourceRate, err = readMP3(ctx, path, maxDuration)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), ErrNoSamples)
	}

	return &models.Waveform{
		Samples:    Resample(samples, sourceRate, d.SampleRate),
		SampleRate: d.SampleRate,
	}, nil
}

// maxFrames converts a duration bound into a frame count at rate; 0 means unbounded.
func maxFrames(rate int, maxDuration time.Duration) int {
	if maxDuration <= 0 || rate <= 0 {
		return 0
	}
	return int(maxDuration.Seconds() * float64(rate))
}
