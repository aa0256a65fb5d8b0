package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	customlogger "github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/himanishpuri/SoundAlike/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultSQLiteFile = "fingerprints.sqlite3"

// FingerprintRow is one stored fingerprint. Payload holds the JSON encoding
// of models.Fingerprint.
type FingerprintRow struct {
	Name      string `gorm:"primaryKey"`
	Version   int    `gorm:"not null"`
	Payload   []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (FingerprintRow) TableName() string { return "fingerprints" }

// SQLiteStore keeps fingerprints in a SQLite database through gorm.
type SQLiteStore struct {
	DB  *gorm.DB
	log *customlogger.Logger
}

func NewSQLiteStore(dbPath string, log *customlogger.Logger) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = DefaultSQLiteFile
	}
	if log == nil {
		log = customlogger.GetLogger()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&FingerprintRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: auto migrate %s: %v", ErrCorrupt, dbPath, err)
	}

	return &SQLiteStore{DB: db, log: log.Named("store")}, nil
}

// Load returns every stored fingerprint. Rows with another format version
// or an invalid payload are skipped with a warning.
func (s *SQLiteStore) Load(ctx context.Context) (map[string]*models.Fingerprint, error) {
	var rows []FingerprintRow
	if err := s.DB.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: querying fingerprints: %v", ErrCorrupt, err)
	}

	out := make(map[string]*models.Fingerprint, len(rows))
	for _, r := range rows {
		if r.Version != FormatVersion {
			s.log.Warnf("Skipping %s: format version %d", r.Name, r.Version)
			continue
		}
		var fp models.Fingerprint
		if err := json.Unmarshal(r.Payload, &fp); err != nil {
			s.log.Warnf("Dropping stored fingerprint %s: %v", r.Name, err)
			continue
		}
		keep(out, r.Name, &fp, s.log)
	}
	return out, nil
}

// Save replaces the table contents with fps in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, fps map[string]*models.Fingerprint) error {
	rows := make([]FingerprintRow, 0, len(fps))
	now := time.Now()
	for name, fp := range fps {
		payload, err := json.Marshal(fp)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		rows = append(rows, FingerprintRow{Name: name, Version: FormatVersion, Payload: payload, UpdatedAt: now})
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&FingerprintRow{}).Error; err != nil {
			return fmt.Errorf("clearing fingerprints: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, 100).Error; err != nil {
			return fmt.Errorf("batch insert fingerprints: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
