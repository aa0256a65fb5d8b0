package main

import (
	"context"
	"fmt"

	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached fingerprints",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runList()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList() {
	log := logger.GetLogger()

	svc, err := createService(context.Background())
	if err != nil {
		fail("Failed to create service", err)
	}
	defer svc.Close()

	names := svc.ListFingerprints()
	if len(names) == 0 {
		fmt.Println("\n📭 No fingerprints in", storePath)
		log.Info("No fingerprints cached")
		return
	}

	fmt.Printf("\n📚 Found %d fingerprint(s):\n\n", len(names))
	for i, name := range names {
		fp, ok := svc.GetFingerprint(name)
		if !ok {
			continue
		}
		fmt.Printf("%d. %s\n", i+1, name)
		fmt.Printf("   Tempo: %.1f BPM | Frames: %d | H/P: %.3f/%.3f\n",
			fp.Features.Tempo, len(fp.Features.MFCCs), fp.Features.HarmonicRatio, fp.Features.PercussiveRatio)
	}
	log.Infof("Listed %d fingerprints", len(names))
}
