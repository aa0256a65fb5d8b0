package main

import (
	"context"
	"fmt"
	"time"

	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	mixW1     float64
	mixW2     float64
	mixOut    string
	mixSearch string
)

var mixCmd = &cobra.Command{
	Use:   "mix <file_a> <file_b>",
	Short: "Blend two recordings into a WAV, optionally searching with the result",
	Long: `Weights two recordings by --w1 and --w2, trims the blend to the shorter one,
peak-normalises it and writes 16-bit WAV. With --search the mix is then used
as the query for a catalog search.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runMix(args[0], args[1])
	},
}

func init() {
	flags := mixCmd.Flags()
	flags.Float64Var(&mixW1, "w1", 50, "Weight of the first recording")
	flags.Float64Var(&mixW2, "w2", 50, "Weight of the second recording")
	flags.StringVarP(&mixOut, "output", "o", "mixed.wav", "Output WAV file")
	flags.StringVar(&mixSearch, "search", "", "Catalog directory to search with the mix")
	rootCmd.AddCommand(mixCmd)
}

func runMix(a, b string) {
	log := logger.GetLogger()
	log.Infof("Mixing %s (%.0f) with %s (%.0f) into %s", a, mixW1, b, mixW2, mixOut)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	svc, err := createService(ctx)
	if err != nil {
		cancel()
		fail("Failed to create service", err)
	}

	err = svc.Mix(ctx, a, b, mixW1, mixW2, mixOut)
	svc.Close()
	cancel()
	if err != nil {
		fail("Mix failed", err)
	}
	fmt.Printf("✅ Wrote mix to %s\n", mixOut)

	if mixSearch != "" {
		runSearch(mixOut, mixSearch, searchTop)
	}
}
