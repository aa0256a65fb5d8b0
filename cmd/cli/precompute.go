package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/himanishpuri/SoundAlike/pkg/soundalike"
	"github.com/spf13/cobra"
)

var precomputeCmd = &cobra.Command{
	Use:   "precompute [catalog_dir]",
	Short: "Fingerprint and cache every audio file in a catalog",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := soundalike.CatalogDir()
		if len(args) == 1 {
			dir = args[0]
		}
		runPrecompute(dir)
	},
}

func init() {
	rootCmd.AddCommand(precomputeCmd)
}

func runPrecompute(dir string) {
	log := logger.GetLogger()
	log.Infof("Precomputing fingerprints for %s into %s", dir, storePath)

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	fmt.Println("\n🔧 Initializing service...")
	svc, err := createService(ctx)
	if err != nil {
		fail("Failed to create service", err)
	}
	defer svc.Close()

	fmt.Println("🎵 Fingerprinting catalog...")
	progress, wait := newProgress("Indexing: ")
	report, err := svc.Precompute(ctx, dir, progress)
	wait()
	if err != nil {
		closeAndFail(svc, "Precompute failed", err)
	}

	color.New(color.FgGreen).Printf("\n✅ Added %d fingerprint(s)", len(report.Added))
	fmt.Printf(", %d already cached\n", len(report.Cached))
	for _, s := range report.Skipped {
		color.New(color.FgYellow).Printf("   skipped %s: %s\n", s.Name, s.Reason)
	}
	log.Infof("Precompute complete: added=%d cached=%d skipped=%d",
		len(report.Added), len(report.Cached), len(report.Skipped))
}
