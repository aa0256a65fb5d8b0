package spectrohash

import (
	"errors"
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
	"github.com/himanishpuri/SoundAlike/pkg/models"
)

// NumSegments is the number of time slices hashed separately.
const NumSegments = 3

var ErrGridTooNarrow = errors.New("spectrogram narrower than segment count")

// Hasher turns a dB mel grid into a HashSet.
type Hasher struct{}

func NewHasher() *Hasher { return &Hasher{} }

// Hash normalises grid (rows are frequency bands, columns are frames) to
// 8-bit intensities and computes the whole-image and per-segment hashes.
func (h *Hasher) Hash(grid [][]float64) (models.HashSet, error) {
	img, err := Normalize(grid)
	if err != nil {
		return models.HashSet{}, err
	}
	width := img.Bounds().Dx()
	if width < NumSegments {
		return models.HashSet{}, fmt.Errorf("%w: %d frames", ErrGridTooNarrow, width)
	}

	var hs models.HashSet
	if hs.Average, err = average(img); err != nil {
		return hs, err
	}
	if hs.Perceptual, err = hexHash(goimagehash.PerceptionHash(img)); err != nil {
		return hs, fmt.Errorf("phash: %w", err)
	}
	if hs.Difference, err = hexHash(goimagehash.DifferenceHash(img)); err != nil {
		return hs, fmt.Errorf("dhash: %w", err)
	}
	hs.Wavelet = hexBits(WaveletHash(img))

	segments := [NumSegments]*string{&hs.Segment0, &hs.Segment1, &hs.Segment2}
	for i, b := range SegmentBounds(width, NumSegments) {
		sub := img.SubImage(image.Rect(b[0], 0, b[1], img.Bounds().Dy()))
		if *segments[i], err = average(sub); err != nil {
			return hs, fmt.Errorf("segment %d: %w", i, err)
		}
	}
	return hs, nil
}

// SegmentBounds splits width columns into n contiguous [start, end) ranges of
// width/n columns each, the last range absorbing the remainder.
func SegmentBounds(width, n int) [][2]int {
	size := width / n
	bounds := make([][2]int, n)
	for i := range bounds {
		bounds[i] = [2]int{i * size, (i + 1) * size}
	}
	bounds[n-1][1] = width
	return bounds
}

// Normalize maps grid onto 0..255 using its own range, truncating toward zero.
// A constant grid maps to black.
func Normalize(grid [][]float64) (*image.Gray, error) {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return nil, errors.New("empty spectrogram")
	}
	height, width := len(grid), len(grid[0])

	lo, hi := grid[0][0], grid[0][0]
	for _, row := range grid {
		if len(row) != width {
			return nil, errors.New("ragged spectrogram")
		}
		for _, v := range row {
			lo, hi = min(lo, v), max(hi, v)
		}
	}

	img := image.NewGray(image.Rect(0, 0, width, height))
	if hi == lo {
		return img, nil
	}
	for y, row := range grid {
		for x, v := range row {
			img.Pix[y*img.Stride+x] = uint8((v - lo) * 255 / (hi - lo))
		}
	}
	return img, nil
}

func average(img image.Image) (string, error) {
	s, err := hexHash(goimagehash.AverageHash(img))
	if err != nil {
		return "", fmt.Errorf("average hash: %w", err)
	}
	return s, nil
}

func hexHash(h *goimagehash.ImageHash, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return hexBits(h.GetHash()), nil
}

func hexBits(bits uint64) string {
	return fmt.Sprintf("%016x", bits)
}
