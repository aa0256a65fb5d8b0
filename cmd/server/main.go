package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/himanishpuri/SoundAlike/pkg/soundalike"
	"github.com/joho/godotenv"
	"github.com/mdobak/go-xerrors"
)

var (
	port           int
	storePath      string
	catalogDir     string
	tempDir        string
	sampleRate     int
	workers        int
	allowedOrigins string
)

func init() {
	_ = godotenv.Load()

	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&storePath, "store", getEnvOrDefault(soundalike.EnvStorePath, soundalike.DefaultStorePath), "Fingerprint store file (.json or .db)")
	flag.StringVar(&catalogDir, "catalog", soundalike.CatalogDir(), "Default catalog directory")
	flag.StringVar(&tempDir, "temp", os.TempDir(), "Temporary directory for uploads")
	flag.IntVar(&sampleRate, "rate", 22050, "Analysis sample rate")
	flag.IntVar(&workers, "workers", 1, "Catalog files fingerprinted in parallel")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	flag.Parse()
	log := logger.GetLogger()

	// Parse allowed origins
	origins := strings.Split(allowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	service, err := soundalike.NewService(context.Background(),
		soundalike.WithStorePath(storePath),
		soundalike.WithSampleRate(sampleRate),
		soundalike.WithWorkers(workers),
		soundalike.WithLogger(log),
	)
	if err != nil {
		log.Fatalf("Failed to create service: %+v", xerrors.New(err))
	}

	config := &ServerConfig{
		Port:           port,
		StorePath:      storePath,
		CatalogDir:     catalogDir,
		TempDir:        tempDir,
		SampleRate:     sampleRate,
		AllowedOrigins: origins,
	}

	server := NewServer(service, config, log)
	if err := server.Start(); err != nil {
		log.Errorf("Server failed: %+v", xerrors.New(err))
		if err := service.Close(); err != nil {
			log.Errorf("Failed to flush fingerprints: %v", err)
		}
		os.Exit(1)
	}
}
