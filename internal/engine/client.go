package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/mandelctl/internal/observability"
	"github.com/danmuck/mandelctl/internal/protocol"
	"github.com/danmuck/mandelctl/internal/protocol/session"
)

// Client owns one handshaken connection to the engine. Exchanges are
// serialized; a failed exchange marks the Client broken for good.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
	cfg    session.Config

	mu     sync.Mutex
	broken error

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

// Dial connects to addr and waits for the engine greeting. Connect failures
// are retried up to cfg.MaxConnectAttempts with cfg.ConnectBackoff between
// attempts; a bad greeting is fatal.
func Dial(ctx context.Context, addr string, cfg session.Config) (*Client, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, ErrAddressRequired
	}
	cfg = cfg.WithDefaults()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var attempt int
	for {
		attempt++
		dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			log.Debug().Msgf("engine.Client connected addr=%q attempt=%d", addr, attempt)
			return NewClient(ctx, conn, cfg)
		}
		log.Warn().Msgf("engine.Client dial attempt=%d addr=%q err=%v", attempt, addr, err)
		if attempt >= cfg.MaxConnectAttempts || ctx.Err() != nil {
			return nil, fmt.Errorf("%w: addr=%q attempts=%d: %w", ErrConnect, addr, attempt, err)
		}
		delay := cfg.ConnectBackoff.Delay(attempt, rng)
		if err := session.Sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("%w: addr=%q attempts=%d: %w", ErrConnect, addr, attempt, err)
		}
	}
}

// NewClient takes ownership of conn and performs the handshake on it. conn is
// closed when the handshake fails.
func NewClient(ctx context.Context, conn net.Conn, cfg session.Config) (*Client, error) {
	cfg = cfg.WithDefaults()
	c := &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
		cfg:    cfg,
		closed: make(chan struct{}),
	}
	if err := c.handshake(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) handshake(ctx context.Context) error {
	deadline := time.Now().Add(c.cfg.HandshakeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = c.conn.SetReadDeadline(deadline)
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("%w: read greeting: %w", ErrHandshake, err)
	}
	greeting := strings.TrimRight(line, "\r\n")
	if greeting != protocol.Greeting {
		return fmt.Errorf("%w: greeting=%q", ErrHandshake, greeting)
	}
	_ = c.conn.SetReadDeadline(time.Time{})
	return nil
}

// SendAndReceive writes line and blocks for exactly one reply line, returned
// without its terminator. Any I/O failure, including one caused by ctx, breaks
// the Client since the stream can no longer be trusted to be in step.
func (c *Client) SendAndReceive(ctx context.Context, line string) (string, error) {
	if strings.ContainsAny(line, "\r\n") {
		return "", fmt.Errorf("%w: request contains a line break", ErrProtocol)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.closed:
		return "", fmt.Errorf("%w: %w", ErrTransport, ErrClientClosed)
	default:
	}
	if c.broken != nil {
		return "", fmt.Errorf("%w: %w: %w", ErrTransport, ErrClientBroken, c.broken)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// Unblock I/O when ctx is cancelled without a deadline.
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
	defer stop()

	command := commandOf(line)
	if err := c.setWriteDeadline(ctx); err != nil {
		return "", c.fail(ctx, command, err)
	}
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		return "", c.fail(ctx, command, err)
	}
	if err := c.setReadDeadline(ctx); err != nil {
		return "", c.fail(ctx, command, err)
	}
	reply, err := c.reader.ReadString('\n')
	if err != nil {
		return "", c.fail(ctx, command, err)
	}
	observability.RecordExchange(command)
	reply = strings.TrimRight(reply, "\r\n")
	log.Trace().Msgf("engine.Client exchange command=%s reply=%q", command, reply)
	return reply, nil
}

// fail marks the client broken. Caller holds c.mu.
func (c *Client) fail(ctx context.Context, command string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	c.broken = err
	log.Warn().Msgf("engine.Client exchange failed command=%s err=%v", command, err)
	return fmt.Errorf("%w: command=%s: %w", ErrTransport, command, err)
}

func (c *Client) setWriteDeadline(ctx context.Context) error {
	deadline := time.Now().Add(c.cfg.WriteTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	return c.conn.SetWriteDeadline(deadline)
}

func (c *Client) setReadDeadline(ctx context.Context) error {
	deadline := time.Now().Add(c.cfg.ReadTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	return c.conn.SetReadDeadline(deadline)
}

// Broken reports the fault that made the Client unusable, if any.
func (c *Client) Broken() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.broken
}

func (c *Client) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Close is safe to call concurrently with an in-flight exchange, which then
// fails with ErrTransport.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.closeErr = c.conn.Close()
		if errors.Is(c.closeErr, net.ErrClosed) {
			c.closeErr = nil
		}
	})
	return c.closeErr
}

func commandOf(line string) string {
	if i := strings.IndexByte(line, ' '); i >= 0 {
		return line[:i]
	}
	return line
}
