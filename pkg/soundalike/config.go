package soundalike

import (
	"os"
	"strconv"
	"time"

	"github.com/himanishpuri/SoundAlike/internal/audio"
	"github.com/himanishpuri/SoundAlike/internal/similarity"
	"github.com/himanishpuri/SoundAlike/internal/storage"
	"github.com/himanishpuri/SoundAlike/pkg/logger"
)

// Environment variables read by the default configuration.
const (
	EnvStorePath  = "SOUNDALIKE_STORE_PATH"
	EnvCatalogDir = "SOUNDALIKE_CATALOG_DIR"
	EnvWorkers    = "SOUNDALIKE_WORKERS"
)

const (
	DefaultStorePath  = storage.DefaultJSONFile
	DefaultCatalogDir = "Weiner_Data"
)

type Config struct {
	StorePath    string
	StoreBackend storage.Backend
	SampleRate   int
	MaxDuration  time.Duration
	Workers      int
	Refresh      bool
	Weights      similarity.Weights
	Logger       *logger.Logger
	Storage      storage.Store
	Decoder      audio.Decoder
}

type Option func(*Config)

func WithStorePath(path string) Option {
	return func(c *Config) {
		c.StorePath = path
	}
}

// WithStoreBackend forces "json" or "sqlite"; by default the backend follows the store path extension.
func WithStoreBackend(backend string) Option {
	return func(c *Config) {
		c.StoreBackend = storage.Backend(backend)
	}
}

// WithSampleRate sets the analysis rate. Rates below 12.8 kHz cannot resolve
// the top spectral contrast band and every file will fail extraction.
func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithMaxDuration(d time.Duration) Option {
	return func(c *Config) {
		c.MaxDuration = d
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithRefresh rebuilds catalog fingerprints instead of reusing cached ones.
func WithRefresh(refresh bool) Option {
	return func(c *Config) {
		c.Refresh = refresh
	}
}

func WithWeights(w similarity.Weights) Option {
	return func(c *Config) {
		c.Weights = w
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithStorage overrides the fingerprint store; StorePath and StoreBackend are then ignored.
func WithStorage(s storage.Store) Option {
	return func(c *Config) {
		c.Storage = s
	}
}

func WithDecoder(d audio.Decoder) Option {
	return func(c *Config) {
		c.Decoder = d
	}
}

func defaultConfig() *Config {
	return &Config{
		StorePath:   getEnvOrDefault(EnvStorePath, DefaultStorePath),
		SampleRate:  audio.DefaultSampleRate,
		MaxDuration: audio.DefaultMaxDuration,
		Workers:     getEnvIntOrDefault(EnvWorkers, 1),
		Weights:     similarity.V1,
	}
}

// CatalogDir returns the catalog directory from the environment, or the default.
func CatalogDir() string {
	return getEnvOrDefault(EnvCatalogDir, DefaultCatalogDir)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return defaultValue
}
