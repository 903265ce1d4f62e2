package email

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// imapClient implements Client on top of an emersion go-imap connection.
type imapClient struct {
	cl *client.Client
}

// DialTLS connects to the IMAP server over TLS.
func DialTLS(addr string) (Client, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	cl, err := client.DialTLS(addr, &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	return &imapClient{cl: cl}, nil
}

func (c *imapClient) Login(username, password string) error {
	if err := c.cl.Login(username, password); err != nil {
		return fmt.Errorf("failed to login to IMAP server: %w", err)
	}
	return nil
}

func (c *imapClient) Select(mailbox string) error {
	if _, err := c.cl.Select(mailbox, false); err != nil {
		return fmt.Errorf("failed to select mailbox: %w", err)
	}
	return nil
}

// SearchUnseen returns the sequence numbers of all unread messages in the
// selected mailbox.
func (c *imapClient) SearchUnseen() ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	ids, err := c.cl.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search unread messages: %w", err)
	}
	return ids, nil
}

// FetchHeader fetches the raw header block of one message via
// BODY.PEEK[HEADER]. The body is never transferred.
func (c *imapClient) FetchHeader(id uint32) ([]byte, error) {
	section := &imap.BodySectionName{Peek: true}
	section.Specifier = imap.HeaderSpecifier

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(id)
	items := []imap.FetchItem{section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- c.cl.Fetch(seqSet, items, messages)
	}()

	var raw []byte
	for msg := range messages {
		literal := msg.GetBody(section)
		if literal == nil {
			continue
		}
		data, err := io.ReadAll(literal)
		if err != nil {
			continue
		}
		raw = data
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch headers for message %d: %w", id, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("no header data returned for message %d", id)
	}
	return raw, nil
}

func (c *imapClient) MarkDeleted(id uint32) error {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(id)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.DeletedFlag}

	if err := c.cl.Store(seqSet, item, flags, nil); err != nil {
		return fmt.Errorf("failed to flag message %d as deleted: %w", id, err)
	}
	return nil
}

func (c *imapClient) Expunge() error {
	if err := c.cl.Expunge(nil); err != nil {
		return fmt.Errorf("failed to expunge mailbox: %w", err)
	}
	return nil
}

func (c *imapClient) Noop() error {
	return c.cl.Noop()
}

func (c *imapClient) Logout() error {
	return c.cl.Logout()
}
