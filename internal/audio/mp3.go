package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always yields 16-bit little-endian stereo.
const (
	mp3Channels      = 2
	mp3BytesPerFrame = 4
	mp3ChunkBytes    = 4096 * mp3BytesPerFrame
)

func readMP3(ctx context.Context, path string, maxDuration time.Duration) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode MP3: %w", err)
	}

	rate := dec.SampleRate()
	if rate <= 0 {
		return nil, 0, fmt.Errorf("invalid MP3 sample rate %d", rate)
	}
	limit := maxFrames(rate, maxDuration)

	const scale = 1.0 / 32768.0
	raw := make([]byte, mp3ChunkBytes)
	pcm := make([]int, 0, mp3ChunkBytes/2)

	var mono []float64
	for limit == 0 || len(mono) < limit {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		n, err := io.ReadFull(dec, raw)
		n -= n % mp3BytesPerFrame

		pcm = pcm[:0]
		for i := 0; i+1 < n; i += 2 {
			pcm = append(pcm, int(int16(uint16(raw[i])|uint16(raw[i+1])<<8)))
		}
		mono = appendMono(mono, pcm, mp3Channels, 0, scale)

		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read MP3 data: %w", err)
		}
	}

	if limit > 0 && len(mono) > limit {
		mono = mono[:limit]
	}
	return mono, rate, nil
}
