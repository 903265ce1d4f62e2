package email

// Client is the narrow IMAP surface the sweep pipeline needs. Message ids
// are the sequence numbers reported by the selected mailbox and are treated
// as opaque tokens scoped to one session.
type Client interface {
	Login(username, password string) error
	Select(mailbox string) error
	SearchUnseen() ([]uint32, error)
	FetchHeader(id uint32) ([]byte, error)
	MarkDeleted(id uint32) error
	Expunge() error
	Noop() error
	Logout() error
}

// Dialer establishes a transport-level connection to the IMAP server,
// returning an unauthenticated client. Injectable so tests can substitute a
// fake protocol client.
type Dialer func(addr string) (Client, error)
