package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavChunkFrames = 4096

// WAV format tags from the fmt chunk.
const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// readWAV decodes an integer PCM WAV file into mono samples in [-1, 1].
// Float and compressed encodings are rejected with ErrUnsupportedFormat.
func readWAV(ctx context.Context, path string, maxDuration time.Duration) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("not a valid WAV file")
	}

	channels := int(dec.NumChans)
	rate := int(dec.SampleRate)
	if channels <= 0 || rate <= 0 || dec.BitDepth == 0 {
		return nil, 0, fmt.Errorf("invalid WAV header: %d channels, %d Hz, %d bits", channels, rate, dec.BitDepth)
	}

	if err := checkWAVFormat(dec.WavAudioFormat, int(dec.BitDepth)); err != nil {
		return nil, 0, err
	}

	// 8-bit WAV is unsigned with silence at 128.
	var offset int
	if dec.BitDepth == 8 {
		offset = 128
	}
	scale := 1.0 / float64(int64(1)<<(dec.BitDepth-1))
	limit := maxFrames(rate, maxDuration)

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           make([]int, wavChunkFrames*channels),
		SourceBitDepth: int(dec.BitDepth),
	}

	var mono []float64
	for limit == 0 || len(mono) < limit {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		n, err := dec.PCMBuffer(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("reading PCM data: %w", err)
		}
		if n == 0 {
			break
		}
		mono = appendMono(mono, buf.Data[:n], channels, offset, scale)
		if err != nil {
			break
		}
	}

	if limit > 0 && len(mono) > limit {
		mono = mono[:limit]
	}
	return mono, rate, nil
}

// checkWAVFormat accepts integer PCM. Extensible headers are read as PCM up
// to 24 bits; wider extensible files are almost always float.
func checkWAVFormat(format uint16, bitDepth int) error {
	switch {
	case format == wavFormatPCM && bitDepth <= 32:
		return nil
	case format == wavFormatExtensible && bitDepth <= 24:
		return nil
	}
	return fmt.Errorf("%w: WAV format tag %#x, %d bits", ErrUnsupportedFormat, format, bitDepth)
}

// appendMono averages interleaved integer frames into mono floats.
func appendMono(dst []float64, interleaved []int, channels, offset int, scale float64) []float64 {
	frames := len(interleaved) / channels
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(interleaved[i*channels+c] - offset)
		}
		dst = append(dst, sum/float64(channels)*scale)
	}
	return dst
}
