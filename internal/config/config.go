package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// CutoffLayout is the accepted format for CUTOFF_DATE.
const CutoffLayout = "2006-01-02"

// Config holds the application configuration
type Config struct {
	// IMAP settings
	IMAPHost     string
	IMAPPort     int
	IMAPUsername string
	IMAPPassword string
	Mailbox      string

	// Sweep settings
	CutoffDate      time.Time
	FetchBatchSize  int
	DeleteBatchSize int

	// Retry bounds
	ConnectRetries int
	SearchRetries  int
	MessageRetries int

	// Audit settings (empty path disables the audit log)
	AuditPath string

	LogLevel string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		IMAPHost:        getEnv("IMAP_HOST", ""),
		IMAPPort:        getEnvInt("IMAP_PORT", 993),
		IMAPUsername:    getEnv("IMAP_USERNAME", ""),
		IMAPPassword:    getEnv("IMAP_PASSWORD", ""),
		Mailbox:         getEnv("MAILBOX", "INBOX"),
		FetchBatchSize:  getEnvInt("FETCH_BATCH_SIZE", 100),
		DeleteBatchSize: getEnvInt("DELETE_BATCH_SIZE", 50),
		ConnectRetries:  getEnvInt("CONNECT_RETRIES", 3),
		SearchRetries:   getEnvInt("SEARCH_RETRIES", 3),
		MessageRetries:  getEnvInt("MESSAGE_RETRIES", 2),
		AuditPath:       getEnv("AUDIT_PATH", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	cutoff, err := loadCutoff()
	if err != nil {
		return nil, err
	}
	cfg.CutoffDate = cutoff

	return cfg, nil
}

// loadCutoff parses CUTOFF_DATE, defaulting to June 1st, 2025
func loadCutoff() (time.Time, error) {
	raw := getEnv("CUTOFF_DATE", "2025-06-01")
	cutoff, err := time.Parse(CutoffLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid CUTOFF_DATE %q (want %s): %w", raw, CutoffLayout, err)
	}
	return cutoff.UTC(), nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.IMAPHost == "" {
		return fmt.Errorf("IMAP_HOST is required")
	}
	if c.IMAPUsername == "" {
		return fmt.Errorf("IMAP_USERNAME is required")
	}
	if c.IMAPPort < 1 || c.IMAPPort > 65535 {
		return fmt.Errorf("invalid IMAP_PORT")
	}
	if c.Mailbox == "" {
		return fmt.Errorf("MAILBOX is required")
	}
	if c.CutoffDate.IsZero() {
		return fmt.Errorf("CUTOFF_DATE is required")
	}
	if c.FetchBatchSize < 1 {
		return fmt.Errorf("FETCH_BATCH_SIZE must be at least 1")
	}
	if c.DeleteBatchSize < 1 {
		return fmt.Errorf("DELETE_BATCH_SIZE must be at least 1")
	}
	if c.ConnectRetries < 1 || c.SearchRetries < 1 || c.MessageRetries < 1 {
		return fmt.Errorf("retry bounds must be at least 1")
	}
	return nil
}

// Addr returns the host:port dial address for the IMAP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.IMAPHost, c.IMAPPort)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
