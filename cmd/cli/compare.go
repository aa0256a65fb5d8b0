package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare <file_a> <file_b>",
	Short: "Score two recordings and show every weighted sub-score",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runCompare(args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

func runCompare(a, b string) {
	log := logger.GetLogger()
	log.Infof("Comparing %s with %s", a, b)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	svc, err := createService(ctx)
	if err != nil {
		fail("Failed to create service", err)
	}
	defer svc.Close()

	bd, err := svc.Compare(ctx, a, b)
	if err != nil {
		closeAndFail(svc, "Compare failed", err)
	}

	fmt.Printf("\n📊 Similarity breakdown (weights %s)\n\n", bd.WeightsVersion)
	rows := []struct {
		name  string
		value float64
	}{
		{"MFCC + delta", bd.MFCC},
		{"Chroma", bd.Chroma},
		{"Tempo", bd.Tempo},
		{"Onset pattern", bd.Onset},
		{"Spectral contrast", bd.SpectralContrast},
		{"Harmonic/percussive", bd.HarmonicPercussive},
		{"Spectrogram hashes", bd.Hash},
	}
	for _, r := range rows {
		fmt.Printf("   %-22s %6.3f\n", r.name, r.value)
	}
	color.New(color.Bold).Printf("\n   %-22s %6.3f (%.1f%%)\n", "Total", bd.Total, bd.Total*100)
}
