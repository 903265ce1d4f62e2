package email

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/imap-sweep/internal/config"
)

// ConnectError is the terminal failure returned when authentication or
// mailbox selection exhausts its retry bound. Callers must stop the run.
type ConnectError struct {
	Attempts int
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connection failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Manager owns the single IMAP session. All protocol calls go through the
// client it hands out; the session is not safe for concurrent use.
type Manager struct {
	cfg    *config.Config
	dial   Dialer
	logger *logrus.Logger

	// Retry governs the connect cycle. Exposed so tests can drop the backoff.
	Retry RetryPolicy

	client Client
}

// NewManager creates a connection manager using the TLS dialer.
func NewManager(cfg *config.Config, logger *logrus.Logger) *Manager {
	return NewManagerWithDialer(cfg, DialTLS, logger)
}

// NewManagerWithDialer creates a connection manager with a custom dialer.
func NewManagerWithDialer(cfg *config.Config, dial Dialer, logger *logrus.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		dial:   dial,
		logger: logger,
		Retry: RetryPolicy{
			Attempts: cfg.ConnectRetries,
			Backoff:  2 * time.Second,
		},
	}
}

// Connect establishes an authenticated, mailbox-selected session, retrying
// up to the configured bound. Any prior session is torn down before each
// attempt. Exhausting retries returns a *ConnectError.
func (m *Manager) Connect() error {
	attempt := 0
	err := m.Retry.Do(func() error {
		attempt++
		if attempt > 1 {
			m.logger.WithField("attempt", attempt).Info("Retrying connection")
		}

		m.teardown()

		cl, err := m.dial(m.cfg.Addr())
		if err != nil {
			m.logger.WithError(err).Warn("Connection attempt failed")
			return err
		}
		if err := cl.Login(m.cfg.IMAPUsername, m.cfg.IMAPPassword); err != nil {
			cl.Logout() //nolint:errcheck
			m.logger.WithError(err).Warn("Login attempt failed")
			return err
		}
		if err := cl.Select(m.cfg.Mailbox); err != nil {
			cl.Logout() //nolint:errcheck
			m.logger.WithError(err).Warn("Mailbox selection failed")
			return err
		}

		m.client = cl
		return nil
	})
	if err != nil {
		return &ConnectError{Attempts: m.Retry.Attempts, Err: err}
	}

	m.logger.WithFields(logrus.Fields{
		"host":    m.cfg.IMAPHost,
		"mailbox": m.cfg.Mailbox,
	}).Info("Connected to IMAP server")
	return nil
}

// EnsureLive probes the session and transparently reconnects if it is dead.
// Every network-facing operation must obtain its client through here.
func (m *Manager) EnsureLive() (Client, error) {
	if m.client != nil {
		if err := m.client.Noop(); err == nil {
			return m.client, nil
		}
		m.logger.Warn("Connection lost, attempting to reconnect")
	}

	if err := m.Connect(); err != nil {
		return nil, err
	}
	return m.client, nil
}

// Close logs out the session, best effort. Errors at shutdown are swallowed.
func (m *Manager) Close() {
	m.teardown()
}

func (m *Manager) teardown() {
	if m.client != nil {
		m.client.Logout() //nolint:errcheck
		m.client = nil
	}
}
