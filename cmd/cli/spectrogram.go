package main

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"path/filepath"
	"strings"
	"time"

	"github.com/eligwz/spectrogram"
	"github.com/himanishpuri/SoundAlike/internal/audio"
	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/himanishpuri/SoundAlike/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	specOut    string
	specWidth  int
	specHeight int
)

var spectrogramCmd = &cobra.Command{
	Use:   "spectrogram <audio_file>",
	Short: "Render a recording's spectrogram to PNG",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		out := specOut
		if out == "" {
			base := filepath.Base(args[0])
			out = strings.TrimSuffix(base, filepath.Ext(base)) + ".png"
		}
		runSpectrogram(args[0], out)
	},
}

func init() {
	flags := spectrogramCmd.Flags()
	flags.StringVarP(&specOut, "output", "o", "", "Output PNG (default: <name>.png)")
	flags.IntVar(&specWidth, "width", 2048, "Image width in pixels")
	flags.IntVar(&specHeight, "height", 512, "Image height in pixels (frequency bins)")
	rootCmd.AddCommand(spectrogramCmd)
}

func runSpectrogram(path, out string) {
	log := logger.GetLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	wf, err := audio.NewFileDecoder(sampleRate).Decode(ctx, path, audio.DefaultMaxDuration)
	if err != nil {
		fail("Failed to decode audio", err)
	}
	log.Infof("Read %d samples at %d Hz from %s", len(wf.Samples), wf.SampleRate, path)

	img := spectrogram.NewImage128(image.Rect(0, 0, specWidth, specHeight))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	// Hamming window, FFT, magnitude, linear scale
	spectrogram.Drawfft(
		img,
		wf.Samples,
		uint32(wf.SampleRate),
		uint32(specHeight),
		false,
		false,
		true,
		false,
	)

	if dir := filepath.Dir(out); dir != "." {
		if err := utils.MakeDir(dir); err != nil {
			fail("Failed to create output directory", err)
		}
	}
	if err := spectrogram.SavePng(img, out); err != nil {
		fail("Failed to save PNG", err)
	}
	fmt.Printf("✅ Saved spectrogram to %s\n", out)
}
