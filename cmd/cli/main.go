package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/himanishpuri/SoundAlike/pkg/soundalike"
	"github.com/joho/godotenv"
	"github.com/mdobak/go-xerrors"
	"github.com/spf13/cobra"
)

// Global flags
var (
	storePath  string
	backend    string
	workers    int
	sampleRate int
	refresh    bool
)

var rootCmd = &cobra.Command{
	Use:   "soundalike",
	Short: "Find catalog recordings that sound like a query",
	Long: `SoundAlike fingerprints audio files (spectral, rhythmic and timbral
features plus perceptual spectrogram hashes) and ranks a folder of .mp3/.wav
files by similarity to a query recording.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.GetLogger().Debugf("Executing command: %s", cmd.Name())
	},
}

func init() {
	// .env must be loaded before the flag defaults read the environment
	_ = godotenv.Load()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&storePath, "store", getEnvOrDefault(soundalike.EnvStorePath, soundalike.DefaultStorePath), "Fingerprint store file (.json or .db)")
	flags.StringVar(&backend, "backend", "", "Store backend: json or sqlite (default: from the store extension)")
	flags.IntVar(&workers, "workers", 1, "Catalog files fingerprinted in parallel")
	flags.IntVar(&sampleRate, "rate", 22050, "Analysis sample rate in Hz")
	flags.BoolVar(&refresh, "refresh", false, "Rebuild catalog fingerprints even when cached")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// createService creates a SoundAlike service with the global flags applied
func createService(ctx context.Context) (soundalike.Service, error) {
	opts := []soundalike.Option{
		soundalike.WithStorePath(storePath),
		soundalike.WithSampleRate(sampleRate),
		soundalike.WithLogger(logger.GetLogger()),
		soundalike.WithRefresh(refresh),
	}
	if backend != "" {
		opts = append(opts, soundalike.WithStoreBackend(backend))
	}
	if workers > 0 {
		opts = append(opts, soundalike.WithWorkers(workers))
	}
	return soundalike.NewService(ctx, opts...)
}

// exit is swapped out in tests.
var exit = os.Exit

// fail logs err with a stack trace and exits.
func fail(msg string, err error) {
	fmt.Printf("\n❌ %s: %v\n", msg, err)
	logger.GetLogger().Errorf("%s: %+v", msg, xerrors.New(err))
	exit(1)
}

// closeAndFail closes svc before exiting so fingerprints built before the
// failure are flushed to the store.
func closeAndFail(svc io.Closer, msg string, err error) {
	if cerr := svc.Close(); cerr != nil {
		logger.GetLogger().Errorf("Failed to flush fingerprints: %v", cerr)
	}
	fail(msg, err)
}

func main() {
	printBanner()
	cobra.CheckErr(rootCmd.Execute())
}

func printBanner() {
	banner := `
 ____                        _    _    _ _ _        
/ ___|  ___  _   _ _ __   __| |  / \  | (_) | _____ 
\___ \ / _ \| | | | '_ \ / _' | / _ \ | | | |/ / _ \
 ___) | (_) | |_| | | | | (_| |/ ___ \| | |   <  __/
|____/ \___/ \__,_|_| |_|\__,_/_/   \_\_|_|_|\_\___|

           Audio Similarity CLI Tool
`
	fmt.Println(banner)
}
