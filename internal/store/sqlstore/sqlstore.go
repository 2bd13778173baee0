// Package sqlstore keeps each collection as one JSON document row in a
// SQLite or MySQL database through gorm.
package sqlstore

import (
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/logger"
	"github.com/learnforge/trainingportal/internal/observability/metrics"
	"github.com/learnforge/trainingportal/internal/store"
)

const slowQueryThreshold = 200 * time.Millisecond

// Document is one persisted collection
type Document struct {
	Collection string `gorm:"primaryKey;size:128"`
	Payload    string `gorm:"type:longtext;not null"`
	UpdatedAt  time.Time
}

// TableName pins the table name independent of gorm naming strategy
func (Document) TableName() string { return "collections" }

// Store is a gorm-backed store.Store
type Store struct {
	db      *gorm.DB
	dialect string
	metrics *metrics.StoreMetrics

	// gate serializes Load and Save like the file store does
	gate sync.Mutex
}

// Option configures a Store
type Option func(*Store)

// WithMetrics records operation counts and latency
func WithMetrics(m *metrics.StoreMetrics) Option {
	return func(s *Store) { s.metrics = m }
}

// OpenSQLite opens (creating if needed) a SQLite database file
func OpenSQLite(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.New(err).
				Component("sqlstore").
				Category(errors.CategoryFileIO).
				Context("operation", "create_database_dir").
				Build()
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_journal_mode=WAL"), gormConfig())
	if err != nil {
		return nil, errors.New(err).
			Component("sqlstore").
			Category(errors.CategoryDatabase).
			Context("operation", "open_sqlite").
			Context("path", path).
			Build()
	}
	return New(db, conf.BackendSQLite, opts...)
}

// MySQLDSN builds a DSN with parseTime and utf8mb4 enabled
func MySQLDSN(cfg conf.MySQLSettings) string {
	dsn := mysqldriver.NewConfig()
	dsn.User = cfg.Username
	dsn.Passwd = cfg.Password
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	dsn.DBName = cfg.Database
	dsn.ParseTime = true
	dsn.Params = map[string]string{"charset": "utf8mb4"}
	return dsn.FormatDSN()
}

// OpenMySQL connects to the configured MySQL database
func OpenMySQL(cfg conf.MySQLSettings, opts ...Option) (*Store, error) {
	db, err := gorm.Open(mysql.Open(MySQLDSN(cfg)), gormConfig())
	if err != nil {
		GetLogger().Error("failed to open MySQL database",
			logger.String("host", cfg.Host),
			logger.String("port", cfg.Port),
			logger.String("database", cfg.Database),
			logger.Error(err))
		return nil, errors.New(err).
			Component("sqlstore").
			Category(errors.CategoryDatabase).
			Context("operation", "open_mysql").
			Context("host", cfg.Host).
			Build()
	}
	return New(db, conf.BackendMySQL, opts...)
}

// New wraps an open gorm connection and migrates the collections table
func New(db *gorm.DB, dialect string, opts ...Option) (*Store, error) {
	s := &Store{db: db, dialect: dialect}
	for _, opt := range opts {
		opt(s)
	}

	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, errors.New(err).
			Component("sqlstore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migrate").
			Context("dialect", dialect).
			Build()
	}
	GetLogger().Info("sql store ready", logger.String("dialect", dialect))
	return s, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{Logger: logger.NewGormLoggerAdapter(GetLogger(), slowQueryThreshold)}
}

// Name implements store.Store
func (s *Store) Name() string { return s.dialect }

// Load implements store.Store
func (s *Store) Load(collection string) ([]byte, error) {
	if err := store.ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	s.gate.Lock()
	defer s.gate.Unlock()

	start := time.Now()
	var doc Document
	err := s.db.Where("collection = ?", collection).Take(&doc).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.metrics.RecordOperation(s.dialect, metrics.OpLoad, collection, metrics.StatusNotFound, time.Since(start))
		return nil, store.ErrCollectionNotFound
	case err != nil:
		s.metrics.RecordOperation(s.dialect, metrics.OpLoad, collection, metrics.StatusError, time.Since(start))
		return nil, errors.New(err).
			Component("sqlstore").
			Category(errors.CategoryDatabase).
			Context("operation", "load_collection").
			Context("collection", collection).
			Build()
	}

	s.metrics.RecordOperation(s.dialect, metrics.OpLoad, collection, metrics.StatusSuccess, time.Since(start))
	return []byte(doc.Payload), nil
}

// Save implements store.Store as an upsert of the collection row
func (s *Store) Save(collection string, data []byte) error {
	if err := store.ValidateCollectionName(collection); err != nil {
		return err
	}
	s.gate.Lock()
	defer s.gate.Unlock()

	start := time.Now()
	doc := Document{Collection: collection, Payload: string(data), UpdatedAt: time.Now().UTC()}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&doc).Error
	if err != nil {
		s.metrics.RecordOperation(s.dialect, metrics.OpSave, collection, metrics.StatusError, time.Since(start))
		return errors.New(err).
			Component("sqlstore").
			Category(errors.CategoryDatabase).
			Context("operation", "save_collection").
			Context("collection", collection).
			Build()
	}

	s.metrics.RecordOperation(s.dialect, metrics.OpSave, collection, metrics.StatusSuccess, time.Since(start))
	s.metrics.RecordBytesWritten(s.dialect, collection, len(data))
	return nil
}

// Collections lists stored collection names
func (s *Store) Collections() ([]string, error) {
	s.gate.Lock()
	defer s.gate.Unlock()

	var names []string
	if err := s.db.Model(&Document{}).Order("collection").Pluck("collection", &names).Error; err != nil {
		return nil, errors.New(err).
			Component("sqlstore").
			Category(errors.CategoryDatabase).
			Context("operation", "list_collections").
			Build()
	}
	return names, nil
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetLogger returns the sql store module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("store").Module("sql")
}
