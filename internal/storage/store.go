package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/himanishpuri/SoundAlike/pkg/models"
)

// FormatVersion tags every persisted fingerprint.
const FormatVersion = 1

// ErrCorrupt means the store exists but cannot be read back.
var ErrCorrupt = errors.New("fingerprint store corrupt")

// Store persists the fingerprint catalogue as a whole: Load reads every
// record and Save replaces them all.
type Store interface {
	Load(ctx context.Context) (map[string]*models.Fingerprint, error)
	Save(ctx context.Context, fps map[string]*models.Fingerprint) error
	Close() error
}

// Backend names a Store implementation.
type Backend string

const (
	BackendJSON   Backend = "json"
	BackendSQLite Backend = "sqlite"
)

// BackendFor picks a backend from the file extension: .db, .sqlite and
// .sqlite3 use SQLite, anything else JSON.
func BackendFor(path string) Backend {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return BackendSQLite
	}
	return BackendJSON
}

// Open returns the store for backend at path. An empty backend is inferred from path.
func Open(backend Backend, path string, log *logger.Logger) (Store, error) {
	if backend == "" {
		backend = BackendFor(path)
	}
	switch backend {
	case BackendJSON:
		return NewJSONStore(path, log), nil
	case BackendSQLite:
		return NewSQLiteStore(path, log)
	}
	return nil, errors.New("unknown store backend " + string(backend))
}

// keep validates fp and files it under name, logging and dropping it otherwise.
func keep(out map[string]*models.Fingerprint, name string, fp *models.Fingerprint, log *logger.Logger) {
	if fp.Name == "" {
		fp.Name = name
	}
	if err := fp.Validate(); err != nil {
		log.Warnf("Dropping stored fingerprint %s: %v", name, err)
		return
	}
	out[name] = fp
}
