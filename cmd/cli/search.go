package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/himanishpuri/SoundAlike/pkg/models"
	"github.com/himanishpuri/SoundAlike/pkg/soundalike"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Matches shown by search unless --top says otherwise.
const defaultTopK = 8

var searchTop int

var searchCmd = &cobra.Command{
	Use:   "search <query> [catalog_dir]",
	Short: "Rank catalog files by similarity to a query recording",
	Long: `Fingerprints the query and every .mp3/.wav file directly inside the catalog
directory (default: $SOUNDALIKE_CATALOG_DIR or Weiner_Data), reusing cached
fingerprints, and prints the best matches.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		dir := soundalike.CatalogDir()
		if len(args) == 2 {
			dir = args[1]
		}
		runSearch(args[0], dir, searchTop)
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchTop, "top", defaultTopK, "Number of matches to show (0 = all)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(queryPath, dir string, top int) {
	log := logger.GetLogger()
	log.Infof("Searching %s for files similar to %s", dir, queryPath)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	fmt.Println("\n🔧 Initializing service...")
	svc, err := createService(ctx)
	if err != nil {
		fail("Failed to create service", err)
	}
	defer svc.Close()

	fmt.Println("🔍 Analyzing query and catalog...")
	progress, wait := newProgress("Scanning: ")
	report, err := svc.FindSimilar(ctx, queryPath, dir, progress)
	wait()
	if err != nil {
		if errors.Is(err, soundalike.ErrQueryFingerprint) {
			fmt.Printf("\n❌ Could not fingerprint the query %s; check that it is a readable .mp3/.wav file\n", queryPath)
		}
		closeAndFail(svc, "Search failed", err)
	}

	log.Infof("Search %s complete: %d results, %d skipped", report.RunID, len(report.Results), len(report.Skipped))
	printResults(report, top)
}

// newProgress returns an "N / M" bar driven by catalog progress callbacks,
// and a wait func that flushes it once the run is over.
func newProgress(label string) (soundalike.Progress, func()) {
	p := mpb.New(mpb.WithWidth(64))
	var bar *mpb.Bar
	wait := func() {
		if bar != nil && !bar.Completed() {
			bar.Abort(false)
		}
		p.Wait()
	}
	return func(done, total int) {
		if bar == nil {
			bar = p.AddBar(int64(total),
				mpb.PrependDecorators(
					decor.Name(label),
					decor.CountersNoUnit("%d / %d"),
				),
				mpb.AppendDecorators(
					decor.Percentage(),
					decor.Elapsed(decor.ET_STYLE_GO),
				),
			)
		}
		bar.SetCurrent(int64(done))
		if done == total {
			bar.SetTotal(int64(total), true)
		}
	}, wait
}

func printResults(report *models.SearchReport, top int) {
	if len(report.Results) == 0 {
		fmt.Println("\n📭 No comparable files in the catalog")
	} else {
		shown := report.Top(top)
		fmt.Printf("\n✅ Top %d of %d match(es) for %s:\n\n", len(shown), len(report.Results), filepath.Base(report.Query))

		header := color.New(color.Bold)
		header.Printf("%-4s %-48s %8s\n", "#", "File", "Match")
		for i, r := range shown {
			fmt.Printf("%-4d %-48s %s\n", i+1, r.Name, percentColor(r.Score).Sprintf("%7.2f%%", r.Percent()))
		}
		if len(report.Results) > len(shown) {
			fmt.Printf("\n... and %d more\n", len(report.Results)-len(shown))
		}
	}

	if len(report.Skipped) > 0 {
		warn := color.New(color.FgYellow)
		warn.Printf("\n⚠️  Skipped %d file(s):\n", len(report.Skipped))
		for _, s := range report.Skipped {
			fmt.Printf("   %s: %s\n", s.Name, s.Reason)
		}
	}
}

func percentColor(score float64) *color.Color {
	switch {
	case score >= 0.75:
		return color.New(color.FgGreen)
	case score >= 0.5:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}
