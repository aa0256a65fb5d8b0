package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/himanishpuri/SoundAlike/internal/audio"
	"github.com/himanishpuri/SoundAlike/internal/features"
	"github.com/himanishpuri/SoundAlike/internal/spectrohash"
	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/himanishpuri/SoundAlike/pkg/models"
)

// Kind classifies a per-file fingerprinting failure.
type Kind string

const (
	KindDecode     Kind = "decode"
	KindExtraction Kind = "extraction"
)

var (
	ErrDecode     = errors.New("decode failed")
	ErrExtraction = errors.New("feature extraction failed")
)

// Error reports why one file could not be fingerprinted. It matches
// ErrDecode or ErrExtraction with errors.Is.
type Error struct {
	Path string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, filepath.Base(e.Path), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrDecode:
		return e.Kind == KindDecode
	case ErrExtraction:
		return e.Kind == KindExtraction
	}
	return false
}

// Builder turns an audio file into a Fingerprint. It keeps no state between calls.
type Builder struct {
	decoder     audio.Decoder
	extractor   *features.Extractor
	hasher      *spectrohash.Hasher
	maxDuration time.Duration
	log         *logger.Logger
}

func NewBuilder(dec audio.Decoder, ex *features.Extractor, maxDuration time.Duration, log *logger.Logger) *Builder {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Builder{
		decoder:     dec,
		extractor:   ex,
		hasher:      spectrohash.NewHasher(),
		maxDuration: maxDuration,
		log:         log.Named("fingerprint"),
	}
}

// Build decodes at most the configured duration of path and fingerprints it.
// The fingerprint is named after the file's base name.
func (b *Builder) Build(ctx context.Context, path string) (*models.Fingerprint, error) {
	// 1. Decode to mono at the analysis rate
	wf, err := b.decoder.Decode(ctx, path, b.maxDuration)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &Error{Path: path, Kind: KindDecode, Err: err}
	}

	// 2. Spectral, rhythmic and timbral features
	res, err := b.extractor.Extract(ctx, wf)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &Error{Path: path, Kind: KindExtraction, Err: err}
	}

	// 3. Perceptual hashes of the mel grid
	hashes, err := b.hasher.Hash(res.MelDB)
	if err != nil {
		return nil, &Error{Path: path, Kind: KindExtraction, Err: err}
	}

	fp := &models.Fingerprint{
		Name:     filepath.Base(path),
		Features: res.Features,
		Hashes:   hashes,
	}
	if err := fp.Validate(); err != nil {
		return nil, &Error{Path: path, Kind: KindExtraction, Err: err}
	}

	b.log.Debugf("Fingerprinted %s (%.1fs, %d frames)", fp.Name, wf.Duration(), len(fp.Features.MFCCs))
	return fp, nil
}
