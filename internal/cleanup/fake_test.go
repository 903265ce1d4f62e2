package cleanup

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/imap-sweep/internal/config"
	"github.com/brandon/imap-sweep/internal/email"
)

// fakeClient is an in-memory protocol client double.
type fakeClient struct {
	unseen   []uint32
	messages map[uint32][]byte

	searchFailures int
	fetchFailures  map[uint32]int
	markFailures   map[uint32]bool
	noopFailures   int
	expungeErr     error

	marked    []uint32
	expunged  bool
	loggedOut bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		messages:      map[uint32][]byte{},
		fetchFailures: map[uint32]int{},
		markFailures:  map[uint32]bool{},
	}
}

func (c *fakeClient) add(id uint32, from, subject, date string) {
	c.unseen = append(c.unseen, id)
	c.messages[id] = rawHeader(from, subject, date)
}

func (c *fakeClient) Login(username, password string) error { return nil }
func (c *fakeClient) Select(mailbox string) error           { return nil }

func (c *fakeClient) SearchUnseen() ([]uint32, error) {
	if c.searchFailures > 0 {
		c.searchFailures--
		return nil, errors.New("search failed")
	}
	return c.unseen, nil
}

func (c *fakeClient) FetchHeader(id uint32) ([]byte, error) {
	if c.fetchFailures[id] > 0 {
		c.fetchFailures[id]--
		return nil, fmt.Errorf("connection dropped fetching %d", id)
	}
	raw, ok := c.messages[id]
	if !ok {
		return nil, fmt.Errorf("no such message %d", id)
	}
	return raw, nil
}

func (c *fakeClient) MarkDeleted(id uint32) error {
	if c.markFailures[id] {
		return fmt.Errorf("store failed for %d", id)
	}
	c.marked = append(c.marked, id)
	return nil
}

func (c *fakeClient) Expunge() error {
	if c.expungeErr != nil {
		return c.expungeErr
	}
	c.expunged = true
	return nil
}

func (c *fakeClient) Noop() error {
	if c.noopFailures > 0 {
		c.noopFailures--
		return errors.New("connection reset")
	}
	return nil
}

func (c *fakeClient) Logout() error {
	c.loggedOut = true
	return nil
}

func rawHeader(from, subject, date string) []byte {
	var b strings.Builder
	if from != "" {
		fmt.Fprintf(&b, "From: %s\r\n", from)
	}
	if subject != "" {
		fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	}
	if date != "" {
		fmt.Fprintf(&b, "Date: %s\r\n", date)
	}
	b.WriteString("MIME-Version: 1.0\r\n\r\n")
	return []byte(b.String())
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig() *config.Config {
	return &config.Config{
		IMAPHost:        "imap.example.com",
		IMAPPort:        993,
		IMAPUsername:    "user@example.com",
		IMAPPassword:    "secret",
		Mailbox:         "INBOX",
		CutoffDate:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		FetchBatchSize:  100,
		DeleteBatchSize: 50,
		ConnectRetries:  3,
		SearchRetries:   3,
		MessageRetries:  2,
	}
}

func newTestManager(cfg *config.Config, cl email.Client) *email.Manager {
	m := email.NewManagerWithDialer(cfg, func(addr string) (email.Client, error) {
		return cl, nil
	}, testLogger())
	m.Retry.Backoff = 0
	return m
}

func newTestScanner(cfg *config.Config, cl email.Client) *Scanner {
	s := NewScanner(cfg, newTestManager(cfg, cl), DefaultRuleset(), testLogger())
	s.SearchRetry.Backoff = 0
	s.FetchPause = 0
	return s
}
