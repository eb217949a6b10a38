package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	txsocks5 "github.com/txthinking/socks5"
	"go.uber.org/zap"

	"github.com/die-net/socksrelay/internal/socks5"
)

// ErrUpstreamConnect wraps a failed dial to the requested destination.
var ErrUpstreamConnect = errors.New("upstream connect failed")

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// connState is where a connection is in the SOCKS5 exchange. States only move
// forward.
type connState int

const (
	stateAwaitGreeting connState = iota
	stateAwaitRequest
	stateConnecting
	stateRelaying
)

func (s connState) String() string {
	switch s {
	case stateAwaitGreeting:
		return "await greeting"
	case stateAwaitRequest:
		return "await request"
	case stateConnecting:
		return "connecting"
	case stateRelaying:
		return "relaying"
	default:
		return fmt.Sprintf("connState(%d)", int(s))
	}
}

// SOCKS5Server accepts SOCKS5 clients and relays their CONNECT requests.
//
// Only the no-auth method and the CONNECT command are supported. A client
// that sends anything else, or whose destination cannot be reached, is
// disconnected without an error reply.
type SOCKS5Server struct {
	ctx   context.Context
	cfg   Config
	log   *zap.Logger
	stats Stats
}

func NewSOCKS5Server(ctx context.Context, cfg Config, logger *zap.Logger) *SOCKS5Server {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SOCKS5Server{ctx: ctx, cfg: cfg, log: logger}
}

// Stats returns the server's counters.
func (s *SOCKS5Server) Stats() *Stats {
	return &s.stats
}

// Serve accepts connections on ln and handles each in its own goroutine.
//
// Accept errors are logged and retried with a short backoff. Serve returns
// nil once ln is closed.
func (s *SOCKS5Server) Serve(ln net.Listener) error {
	var backoff time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			backoff = nextBackoff(backoff)
			s.log.Error("accept error", zap.Error(err), zap.Duration("retry_in", backoff))
			s.sleep(backoff)
			continue
		}
		backoff = 0

		s.stats.accepted.Inc()
		go s.serveConn(c)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptBackoff
	}
	return min(2*d, maxAcceptBackoff)
}

func (s *SOCKS5Server) sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-s.ctx.Done():
	}
}

func (s *SOCKS5Server) serveConn(conn net.Conn) {
	s.stats.active.Inc()
	defer s.stats.active.Dec()

	log := s.log.With(zap.Stringer("client", conn.RemoteAddr()))
	if err := s.handleConn(conn, log); err != nil {
		log.Warn("connection error", zap.Error(err))
	}
}

func (s *SOCKS5Server) handleConn(conn net.Conn, log *zap.Logger) error {
	defer conn.Close()

	ctx := s.ctx
	if t := s.cfg.NegotiationTimeout; t > 0 {
		_ = conn.SetDeadline(time.Now().Add(t))

		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	req, err := s.negotiate(conn)
	if err != nil {
		s.stats.handshakeFailures.Inc()
		return err
	}

	target := req.Target()
	log = log.With(zap.String("target", target))

	up, err := s.cfg.Dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		s.stats.dialFailures.Inc()
		return fmt.Errorf("%s: %w: %w", stateConnecting, ErrUpstreamConnect, err)
	}
	defer up.Close()

	if _, err := conn.Write(socks5.SuccessReply()); err != nil {
		return fmt.Errorf("%s: success reply: %w", stateConnecting, err)
	}

	if s.cfg.NegotiationTimeout > 0 {
		_ = conn.SetDeadline(time.Time{})
	}

	log.Debug("relaying")
	res, err := CopyBidirectional(conn, up)
	s.stats.addRelay(res)
	if err != nil {
		log.Debug("copy error", zap.Error(fmt.Errorf("%s: %w", stateRelaying, err)))
	}
	log.Debug("closed", zap.Int64("sent", res.Sent), zap.Int64("received", res.Received))

	return nil
}

// negotiate runs the greeting and request exchange and returns the validated
// CONNECT request. Nothing is written back on failure.
func (s *SOCKS5Server) negotiate(conn net.Conn) (*socks5.Request, error) {
	if _, err := socks5.ReadGreeting(conn); err != nil {
		return nil, fmt.Errorf("%s: %w", stateAwaitGreeting, err)
	}
	if _, err := conn.Write(socks5.MethodSelection()); err != nil {
		return nil, fmt.Errorf("%s: method selection: %w", stateAwaitGreeting, err)
	}

	req, err := socks5.ReadRequest(conn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", stateAwaitRequest, err)
	}
	if req.Cmd != txsocks5.CmdConnect {
		return nil, fmt.Errorf("%s: command %d: %w", stateAwaitRequest, req.Cmd, socks5.ErrUnsupportedCommand)
	}

	return req, nil
}
