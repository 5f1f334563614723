// Package lineproto implements the one-query-per-connection line protocol.
//
// A client connects, writes a single newline-terminated query and reads the
// response until the server closes the connection. The response is an
// indented JSON array; an unknown word, an empty line or a malformed line all
// produce an empty array. There is no framing beyond the newline, no
// versioning and no keep-alive.
//
// Example server:
//
//	s := lineproto.NewServer(handler, lineproto.Options{MaxLineBytes: 4096}, m)
//	s.ListenAndServe(":8989")
//
// Example client:
//
//	c := lineproto.NewClient("localhost:8989", lineproto.ClientOptions{})
//	lines, err := c.Lines(ctx, "cat")
package lineproto

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	apperrors "github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/metrics"
)

// Handler computes the encoded response for one query.
type Handler interface {
	ServeQuery(ctx context.Context, query string) ([]byte, error)
}

type HandlerFunc func(ctx context.Context, query string) ([]byte, error)

func (f HandlerFunc) ServeQuery(ctx context.Context, query string) ([]byte, error) {
	return f(ctx, query)
}

// Limiter decides whether a client host may run another query.
type Limiter interface {
	Allow(key string) bool
}

// Options bound each connection. Zero timeouts disable the deadline; a nil
// Limiter admits every query. MaxConnections caps concurrently served
// connections; once reached, accepting pauses until one finishes. Zero means
// no cap.
type Options struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxLineBytes   int
	MaxConnections int
	Limiter        Limiter
}

// Server accepts connections and serves each one on its own goroutine.
type Server struct {
	handler  Handler
	opts     Options
	metrics  *metrics.Metrics
	logger   *slog.Logger
	mu       sync.Mutex
	listener net.Listener
	pool     *ants.Pool
	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

func NewServer(handler Handler, opts Options, m *metrics.Metrics) *Server {
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = 4096
	}
	return &Server{
		handler: handler,
		opts:    opts,
		metrics: m,
		logger:  slog.Default().With("component", "line-server"),
		done:    make(chan struct{}),
	}
}

// ListenAndServe listens on addr and blocks in Serve.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop is called. It returns nil after
// Stop and the accept error otherwise.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		ln.Close()
		return nil
	default:
	}
	if s.opts.MaxConnections > 0 && s.pool == nil {
		pool, err := ants.NewPool(s.opts.MaxConnections)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("creating connection pool: %w", err)
		}
		s.pool = pool
	}
	s.listener = ln
	s.mu.Unlock()
	s.logger.Info("line server listening",
		"addr", ln.Addr().String(),
		"max_connections", s.opts.MaxConnections,
	)

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("accepting connections: %w", err)
			}
			backoff = nextBackoff(backoff)
			s.logger.Error("accept error", "error", err, "retry_in", backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0
		s.wg.Add(1)
		if err := s.dispatch(conn); err != nil {
			s.wg.Done()
			conn.Close()
			s.logger.Warn("connection dropped", "remote", conn.RemoteAddr().String(), "error", err)
		}
	}
}

// dispatch serves conn on its own goroutine, taken from the pool when
// MaxConnections is set. Submit blocks while the pool is saturated.
func (s *Server) dispatch(conn net.Conn) error {
	if s.pool == nil {
		go s.handleConn(conn)
		return nil
	}
	return s.pool.Submit(func() { s.handleConn(conn) })
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}

// Addr returns the listening address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()
	s.metrics.ConnectionsInFlight.Inc()
	defer s.metrics.ConnectionsInFlight.Dec()

	ctx := logger.WithConnID(context.Background(), uuid.NewString())
	log := logger.FromContext(ctx)

	if s.opts.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	}
	reader := bufio.NewReaderSize(conn, s.opts.MaxLineBytes+2)
	query, err := ReadQuery(reader, s.opts.MaxLineBytes)

	outcome := "ok"
	var resp []byte
	switch {
	case errors.Is(err, apperrors.ErrProtocol):
		outcome = "protocol_error"
		log.Warn("rejecting malformed query", "remote", conn.RemoteAddr().String(), "error", err)
		resp = EmptyResult
	case isTimeout(err):
		outcome = "timeout"
		log.Warn("no query before read deadline", "remote", conn.RemoteAddr().String())
		resp = EmptyResult
	case err != nil:
		s.metrics.ConnectionsTotal.WithLabelValues("io_error").Inc()
		log.Warn("reading query failed", "remote", conn.RemoteAddr().String(), "error", err)
		return
	case s.opts.Limiter != nil && !s.opts.Limiter.Allow(remoteHost(conn)):
		outcome = "rate_limited"
		log.Warn("query rate limited", "remote", conn.RemoteAddr().String())
		resp = EmptyResult
	default:
		resp, err = s.handler.ServeQuery(ctx, query)
		if err != nil {
			log.Error("query failed", "query", query, "error", err)
			resp = EmptyResult
		}
	}

	if s.opts.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	}
	if _, err := conn.Write(resp); err != nil {
		s.metrics.ConnectionsTotal.WithLabelValues("io_error").Inc()
		log.Warn("writing response failed", "error", err)
		return
	}
	if outcome == "protocol_error" {
		discardInput(conn, reader)
	}
	s.metrics.ConnectionsTotal.WithLabelValues(outcome).Inc()
}

// discardInput consumes what the client is still sending so that closing
// the socket does not reset the connection before the response is read.
func discardInput(conn net.Conn, r io.Reader) {
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.CloseWrite()
	}
	conn.SetReadDeadline(time.Now().Add(250 * time.Millisecond))
	io.Copy(io.Discard, io.LimitReader(r, 1<<20))
}

func remoteHost(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Stop closes the listener and waits for in-flight connections until ctx is
// done.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()
	})

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		s.mu.Lock()
		if s.pool != nil {
			s.pool.Release()
		}
		s.mu.Unlock()
		s.logger.Info("line server stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for connections to drain: %w", ctx.Err())
	}
}
