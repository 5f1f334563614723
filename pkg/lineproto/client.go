package lineproto

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/resilience"
)

// ClientOptions tune a Client. Zero values select the defaults.
type ClientOptions struct {
	// Timeout bounds one query: dial, write and read. Default 10s.
	Timeout time.Duration
	// DialAttempts is the number of connection attempts per query. Default 1.
	DialAttempts int
	// DialBackoff is the delay before the second attempt. Default 200ms.
	DialBackoff time.Duration
}

// Client opens one connection per query.
type Client struct {
	addr   string
	opts   ClientOptions
	dialer net.Dialer
}

func NewClient(addr string, opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.DialAttempts <= 0 {
		opts.DialAttempts = 1
	}
	if opts.DialBackoff <= 0 {
		opts.DialBackoff = 200 * time.Millisecond
	}
	return &Client{addr: addr, opts: opts}
}

// Query sends word as a single line and returns the raw response. The word
// is sent as given; it must not contain a line break.
func (c *Client) Query(ctx context.Context, word string) ([]byte, error) {
	if strings.ContainsAny(word, "\r\n") {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "query must be a single line")
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := io.WriteString(conn, word+"\n"); err != nil {
		return nil, fmt.Errorf("sending query: %w", err)
	}
	resp, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return resp, nil
}

// Lines returns the response split into lines, without terminators.
func (c *Client) Lines(ctx context.Context, word string) ([]string, error) {
	resp, err := c.Query(ctx, word)
	if err != nil {
		return nil, err
	}
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(resp))
	scanner.Buffer(make([]byte, 0, 64*1024), len(resp)+1)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// Lookup decodes the response into records.
func Lookup[T any](ctx context.Context, c *Client, word string) ([]T, error) {
	resp, err := c.Query(ctx, word)
	if err != nil {
		return nil, err
	}
	return Decode[T](resp)
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	var conn net.Conn
	err := resilience.Retry(ctx, "dial "+c.addr, resilience.RetryConfig{
		MaxAttempts:  c.opts.DialAttempts,
		InitialDelay: c.opts.DialBackoff,
		MaxDelay:     5 * c.opts.DialBackoff,
	}, func() error {
		var err error
		conn, err = c.dialer.DialContext(ctx, "tcp", c.addr)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", c.addr, err)
	}
	return conn, nil
}
