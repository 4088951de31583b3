package pop3client

import (
	"strings"
	"time"

	"github.com/knadh/go-pop3"
	"github.com/pkg/errors"
)

// DefaultTimeout bounds the TCP/TLS dial; the protocol has no cancellation
// once a session is open.
const DefaultTimeout = 60 * time.Second

// DefaultPort is the standard POP3-over-TLS port.
const DefaultPort = 995

// Client encapsulates one POP3-over-TLS session.
type Client struct {
	Host    string
	Port    int
	Timeout time.Duration

	conn *pop3.Conn
}

// Connect dials the server and establishes the TLS session. It does not
// authenticate; call Login next.
func (c *Client) Connect() error {
	if strings.TrimSpace(c.Host) == "" {
		return errors.New("POP3 server host is required")
	}
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	p := pop3.New(pop3.Opt{
		Host:        c.Host,
		Port:        port,
		TLSEnabled:  true,
		DialTimeout: timeout,
	})
	conn, err := p.NewConn()
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

// Login authenticates with USER/PASS.
func (c *Client) Login(user, password string) error {
	if c.conn == nil {
		return errors.New("POP3 client is not connected")
	}
	return c.conn.Auth(user, password)
}

// Count returns the number of messages pending in the mailbox via STAT.
func (c *Client) Count() (int, error) {
	if c.conn == nil {
		return 0, errors.New("POP3 client is not connected")
	}
	count, _, err := c.conn.Stat()
	return count, err
}

// Delete marks the message at the given 1-based index for deletion. The mark
// is not permanent until Quit.
func (c *Client) Delete(msg int) error {
	if c.conn == nil {
		return errors.New("POP3 client is not connected")
	}
	return c.conn.Dele(msg)
}

// Quit ends the session. This is the commit point: the server only removes
// marked messages on a clean QUIT, so a Quit error after deletes means the
// outcome is ambiguous.
func (c *Client) Quit() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Quit()
	c.conn = nil
	return err
}
