package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Log is the SQLite-backed audit log of sweep runs.
type Log struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewLog opens (or creates) the audit database at dbPath.
func NewLog(dbPath string, logger *logrus.Logger) (*Log, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	l := &Log{
		db:     db,
		logger: logger,
	}

	if err := l.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.WithField("path", dbPath).Info("Audit log initialized")
	return l, nil
}

// initSchema initializes the database schema
func (l *Log) initSchema() error {
	if _, err := l.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (l *Log) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// DB returns the underlying database connection (for use in store.go)
func (l *Log) DB() *sql.DB {
	return l.db
}
