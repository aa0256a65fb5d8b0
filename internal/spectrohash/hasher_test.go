package spectrohash

import (
	"errors"
	"math/rand"
	"regexp"
	"testing"

	"github.com/himanishpuri/SoundAlike/pkg/models"
)

var hexPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)

func noiseGrid(seed int64, height, width int) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	grid := make([][]float64, height)
	for y := range grid {
		grid[y] = make([]float64, width)
		for x := range grid[y] {
			grid[y][x] = -80 + 80*rng.Float64()
		}
	}
	return grid
}

func constGrid(height, width int, v float64) [][]float64 {
	grid := make([][]float64, height)
	for y := range grid {
		grid[y] = make([]float64, width)
		for x := range grid[y] {
			grid[y][x] = v
		}
	}
	return grid
}

func TestSegmentBounds(t *testing.T) {
	tests := []struct {
		width int
		want  [][2]int
	}{
		{100, [][2]int{{0, 33}, {33, 66}, {66, 100}}},
		{99, [][2]int{{0, 33}, {33, 66}, {66, 99}}},
		{3, [][2]int{{0, 1}, {1, 2}, {2, 3}}},
		{5, [][2]int{{0, 1}, {1, 2}, {2, 5}}},
	}

	for _, tt := range tests {
		got := SegmentBounds(tt.width, NumSegments)
		if len(got) != len(tt.want) {
			t.Fatalf("width %d: expected %d segments, got %d", tt.width, len(tt.want), len(got))
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("width %d: segment %d = %v, expected %v", tt.width, i, got[i], tt.want[i])
			}
		}
	}
}

func TestHashShape(t *testing.T) {
	hs, err := NewHasher().Hash(noiseGrid(1, 128, 100))
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	values := hs.Values()
	if len(values) != models.NumHashes {
		t.Fatalf("Expected %d hashes, got %d", models.NumHashes, len(values))
	}
	for i, v := range values {
		if !hexPattern.MatchString(v) {
			t.Errorf("%s = %q is not 16 lowercase hex digits", models.HashNames[i], v)
		}
	}
}

func TestHashDeterministic(t *testing.T) {
	h := NewHasher()
	a, err := h.Hash(noiseGrid(42, 128, 60))
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	b, err := h.Hash(noiseGrid(42, 128, 60))
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if a != b {
		t.Errorf("Same grid hashed differently:\n%+v\n%+v", a, b)
	}
}

func TestSilenceAndNoiseDiffer(t *testing.T) {
	h := NewHasher()
	silence, err := h.Hash(constGrid(128, 90, -100))
	if err != nil {
		t.Fatalf("Hash silence failed: %v", err)
	}
	noise, err := h.Hash(noiseGrid(3, 128, 90))
	if err != nil {
		t.Fatalf("Hash noise failed: %v", err)
	}

	sv, nv := silence.Values(), noise.Values()
	same := 0
	for i := range sv {
		if sv[i] == nv[i] {
			same++
		}
	}
	if same == models.NumHashes {
		t.Error("Silence and white noise should not share every hash")
	}
	if silence.Average != "0000000000000000" {
		t.Errorf("Expected an all-zero average hash for a flat image, got %s", silence.Average)
	}
}

func TestNormalize(t *testing.T) {
	img, err := Normalize([][]float64{{-80, -40, 0}, {-20, -60, -80}})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	want := []uint8{0, 127, 255, 191, 63, 0}
	got := []uint8{
		img.GrayAt(0, 0).Y, img.GrayAt(1, 0).Y, img.GrayAt(2, 0).Y,
		img.GrayAt(0, 1).Y, img.GrayAt(1, 1).Y, img.GrayAt(2, 1).Y,
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pixel %d = %d, expected %d", i, got[i], want[i])
		}
	}

	flat, err := Normalize(constGrid(2, 2, 5))
	if err != nil {
		t.Fatalf("Normalize flat failed: %v", err)
	}
	for _, p := range flat.Pix {
		if p != 0 {
			t.Fatalf("Expected flat grid to map to 0, got %d", p)
		}
	}

	if _, err := Normalize(nil); err == nil {
		t.Error("Expected error for empty grid")
	}
	if _, err := Normalize([][]float64{{1, 2}, {3}}); err == nil {
		t.Error("Expected error for ragged grid")
	}
}

func TestHashTooNarrow(t *testing.T) {
	if _, err := NewHasher().Hash(noiseGrid(1, 128, 2)); !errors.Is(err, ErrGridTooNarrow) {
		t.Errorf("Expected ErrGridTooNarrow, got %v", err)
	}
}

func TestWaveletHashSplitsHalves(t *testing.T) {
	// left half dark, right half bright
	grid := make([][]float64, 64)
	for y := range grid {
		grid[y] = make([]float64, 64)
		for x := 32; x < 64; x++ {
			grid[y][x] = 1
		}
	}
	img, err := Normalize(grid)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if got := WaveletHash(img); got != 0x0f0f0f0f0f0f0f0f {
		t.Errorf("Expected 0f0f0f0f0f0f0f0f, got %016x", got)
	}
}
