package email

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/imap-sweep/internal/config"
)

type stubClient struct {
	loginErr  error
	selectErr error
	noopErr   error
	logoutErr error

	noops     int
	loggedOut bool
}

func (c *stubClient) Login(username, password string) error { return c.loginErr }
func (c *stubClient) Select(mailbox string) error           { return c.selectErr }
func (c *stubClient) SearchUnseen() ([]uint32, error)       { return nil, nil }
func (c *stubClient) FetchHeader(id uint32) ([]byte, error) { return nil, nil }
func (c *stubClient) MarkDeleted(id uint32) error           { return nil }
func (c *stubClient) Expunge() error                        { return nil }

func (c *stubClient) Noop() error {
	c.noops++
	return c.noopErr
}

func (c *stubClient) Logout() error {
	c.loggedOut = true
	return c.logoutErr
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func stubConfig() *config.Config {
	return &config.Config{
		IMAPHost:       "imap.example.com",
		IMAPPort:       993,
		IMAPUsername:   "user@example.com",
		IMAPPassword:   "secret",
		Mailbox:        "INBOX",
		ConnectRetries: 3,
	}
}

func newStubManager(dial Dialer) *Manager {
	m := NewManagerWithDialer(stubConfig(), dial, discardLogger())
	m.Retry.Backoff = 0
	return m
}

func TestConnectSucceeds(t *testing.T) {
	cl := &stubClient{}
	m := newStubManager(func(addr string) (Client, error) {
		assert.Equal(t, "imap.example.com:993", addr)
		return cl, nil
	})

	require.NoError(t, m.Connect())

	got, err := m.EnsureLive()
	require.NoError(t, err)
	assert.Same(t, cl, got)
}

func TestConnectRetriesTransientDialFailures(t *testing.T) {
	dials := 0
	m := newStubManager(func(addr string) (Client, error) {
		dials++
		if dials < 3 {
			return nil, errors.New("connection refused")
		}
		return &stubClient{}, nil
	})

	require.NoError(t, m.Connect())
	assert.Equal(t, 3, dials)
}

func TestConnectExhaustionReturnsConnectError(t *testing.T) {
	dials := 0
	m := newStubManager(func(addr string) (Client, error) {
		dials++
		return nil, errors.New("connection refused")
	})

	err := m.Connect()
	require.Error(t, err)
	assert.Equal(t, 3, dials)

	var connectErr *ConnectError
	require.True(t, errors.As(err, &connectErr))
	assert.Equal(t, 3, connectErr.Attempts)
}

func TestConnectLoginFailureTearsDownClient(t *testing.T) {
	var clients []*stubClient
	m := newStubManager(func(addr string) (Client, error) {
		cl := &stubClient{loginErr: errors.New("bad credentials")}
		clients = append(clients, cl)
		return cl, nil
	})

	err := m.Connect()
	require.Error(t, err)
	require.Len(t, clients, 3)
	for _, cl := range clients {
		assert.True(t, cl.loggedOut)
	}
}

func TestConnectSelectFailureRetries(t *testing.T) {
	dials := 0
	m := newStubManager(func(addr string) (Client, error) {
		dials++
		if dials == 1 {
			return &stubClient{selectErr: errors.New("no such mailbox yet")}, nil
		}
		return &stubClient{}, nil
	})

	require.NoError(t, m.Connect())
	assert.Equal(t, 2, dials)
}

func TestConnectReplacesPriorSession(t *testing.T) {
	var clients []*stubClient
	m := newStubManager(func(addr string) (Client, error) {
		cl := &stubClient{}
		clients = append(clients, cl)
		return cl, nil
	})

	require.NoError(t, m.Connect())
	require.NoError(t, m.Connect())

	require.Len(t, clients, 2)
	assert.True(t, clients[0].loggedOut, "prior session must be torn down")
	assert.False(t, clients[1].loggedOut)
}

func TestEnsureLiveReusesHealthySession(t *testing.T) {
	dials := 0
	m := newStubManager(func(addr string) (Client, error) {
		dials++
		return &stubClient{}, nil
	})

	require.NoError(t, m.Connect())
	_, err := m.EnsureLive()
	require.NoError(t, err)
	_, err = m.EnsureLive()
	require.NoError(t, err)

	assert.Equal(t, 1, dials)
}

func TestEnsureLiveReconnectsDeadSession(t *testing.T) {
	dials := 0
	dead := &stubClient{noopErr: errors.New("connection reset")}
	live := &stubClient{}
	m := newStubManager(func(addr string) (Client, error) {
		dials++
		if dials == 1 {
			return dead, nil
		}
		return live, nil
	})

	require.NoError(t, m.Connect())

	got, err := m.EnsureLive()
	require.NoError(t, err)
	assert.Same(t, live, got)
	assert.True(t, dead.loggedOut)
}

func TestEnsureLiveConnectsLazily(t *testing.T) {
	cl := &stubClient{}
	m := newStubManager(func(addr string) (Client, error) { return cl, nil })

	got, err := m.EnsureLive()
	require.NoError(t, err)
	assert.Same(t, cl, got)
}

func TestCloseSwallowsLogoutErrors(t *testing.T) {
	cl := &stubClient{logoutErr: errors.New("bye failed")}
	m := newStubManager(func(addr string) (Client, error) { return cl, nil })

	require.NoError(t, m.Connect())
	m.Close()

	assert.True(t, cl.loggedOut)
}
