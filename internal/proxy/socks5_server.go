package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/die-net/socksd/internal/admission"
	"github.com/die-net/socksd/internal/dialer"
	"github.com/die-net/socksd/internal/socks5"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

type SOCKS5Server struct {
	ctx  context.Context
	cfg  *Config
	log  *zap.Logger
	adm  *admission.Controller
	pool *BufferPool
}

// NewSOCKS5Server returns a server whose connections live no longer than ctx.
func NewSOCKS5Server(ctx context.Context, cfg *Config, log *zap.Logger) *SOCKS5Server {
	if log == nil {
		log = zap.NewNop()
	}

	capacity := cfg.MaxConnections
	if capacity <= 0 {
		capacity = DefaultMaxConnections
	}

	if cfg.Dialer == nil {
		c := *cfg
		c.Dialer = dialer.NewDirectDialer(dialer.Config{
			DialTimeout: cfg.ConnectTimeout,
			KeepAlive:   cfg.TCP.KeepAlive,
			NoDelay:     cfg.TCP.NoDelay,
		})
		cfg = &c
	}

	return &SOCKS5Server{
		ctx:  ctx,
		cfg:  cfg,
		log:  log,
		adm:  admission.New(capacity),
		pool: NewBufferPool(cfg.BufferSize),
	}
}

// Active returns the number of connections currently holding an admission
// slot.
func (s *SOCKS5Server) Active() int {
	return s.adm.Active()
}

// Max returns the admission capacity in effect.
func (s *SOCKS5Server) Max() int {
	return s.adm.Max()
}

// Serve accepts connections until ln is closed or the server's context is
// done, in which case it returns nil. Other accept errors are logged and
// retried with backoff.
func (s *SOCKS5Server) Serve(ln net.Listener) error {
	var backoff time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || s.ctx.Err() != nil {
				return nil
			}

			backoff = min(max(2*backoff, minAcceptBackoff), maxAcceptBackoff)
			s.log.Warn("accept failed", zap.Error(err), zap.Duration("retry_in", backoff))

			select {
			case <-time.After(backoff):
			case <-s.ctx.Done():
				return nil
			}
			continue
		}
		backoff = 0

		connectionsAccepted.Add(1)
		go s.handleConn(c)
	}
}

func (s *SOCKS5Server) handleConn(conn net.Conn) {
	defer conn.Close()

	log := s.log.With(zap.Stringer("remote", conn.RemoteAddr()))

	defer func() {
		if r := recover(); r != nil {
			connectionsFailed.Add(1)
			log.Error("connection handler panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	// Shutdown unblocks whatever stage the connection is in.
	stop := context.AfterFunc(s.ctx, func() { _ = conn.Close() })
	defer stop()

	admitCtx := s.ctx
	if s.cfg.AdmissionTimeout > 0 {
		var cancel context.CancelFunc
		admitCtx, cancel = context.WithTimeout(s.ctx, s.cfg.AdmissionTimeout)
		defer cancel()
	}

	admitted := false
	err := s.adm.Do(admitCtx, func() error {
		admitted = true
		return s.serveConn(conn, log)
	})

	switch {
	case err == nil:
	case !admitted:
		if s.ctx.Err() == nil {
			admissionTimeouts.Add(1)
			log.Warn("admission wait timed out", zap.Duration("timeout", s.cfg.AdmissionTimeout))
		}
	default:
		connectionsFailed.Add(1)
		s.logConnError(log, err)
	}
}

// stageError records which step of the connection failed, and what was known
// about the connection at that point.
type stageError struct {
	stage  string
	user   string
	target string
	err    error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

// session is the per-connection state passed through the stages.
type session struct {
	conn   net.Conn
	log    *zap.Logger
	user   string
	target string
}

func (c *session) fail(stage string, err error) error {
	return &stageError{stage: stage, user: c.user, target: c.target, err: err}
}

func (s *SOCKS5Server) serveConn(conn net.Conn, log *zap.Logger) error {
	c := &session{conn: conn, log: log}

	s.cfg.TCP.Apply(conn)

	if s.cfg.NegotiationTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.cfg.NegotiationTimeout))
	}

	method, err := socks5.Negotiate(conn, s.cfg.AuthRequired)
	if err != nil {
		return c.fail("handshake", err)
	}

	if method == socks5.MethodUsernamePassword {
		c.user, err = socks5.Authenticate(conn, s.cfg.Credentials)
		if err != nil {
			return c.fail("auth", err)
		}
		c.log = c.log.With(zap.String("user", c.user))
	}

	req, err := socks5.ReadRequest(conn)
	if err != nil {
		if rep, ok := socks5.ReplyFor(err); ok {
			_ = socks5.WriteReply(conn, rep)
		}
		return c.fail("request", err)
	}

	_ = conn.SetDeadline(time.Time{})

	c.target = req.Address.String()
	c.log = c.log.With(zap.String("target", c.target))

	switch req.Command {
	case socks5.CommandConnect:
		return s.connect(c)
	default:
		_ = socks5.WriteReply(conn, socks5.ReplyCommandNotSupported)
		return c.fail("request", &socks5.UnsupportedCommandError{Command: byte(req.Command)})
	}
}

func (s *SOCKS5Server) connect(c *session) error {
	dialCtx := s.ctx
	if s.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(s.ctx, s.cfg.ConnectTimeout)
		defer cancel()
	}

	target, err := s.cfg.Dialer.DialContext(dialCtx, "tcp", c.target)
	if err != nil {
		if s.ctx.Err() != nil {
			return c.fail("connect", s.ctx.Err())
		}
		err = connectError(err)
		if rep, ok := socks5.ReplyFor(err); ok {
			_ = socks5.WriteReply(c.conn, rep)
		}
		return c.fail("connect", err)
	}
	defer target.Close()

	if err := socks5.WriteReply(c.conn, socks5.ReplySucceeded); err != nil {
		return c.fail("reply", err)
	}
	c.log.Debug("connected")

	traffic, err := CopyBidirectional(s.ctx, c.conn, target, s.pool)
	bytesUp.Add(traffic.Up)
	bytesDown.Add(traffic.Down)
	c.log.Debug("relay finished", zap.Int64("bytes_up", traffic.Up), zap.Int64("bytes_down", traffic.Down))

	if err != nil && s.ctx.Err() == nil {
		return c.fail("relay", err)
	}
	return nil
}

// connectError tags a dial error with the socks5 error for its category.
func connectError(err error) error {
	var kind error
	switch dialer.Classify(err) {
	case dialer.FailureRefused:
		kind = socks5.ErrConnectionRefused
	case dialer.FailureTimeout:
		kind = socks5.ErrConnectTimeout
	case dialer.FailureNetworkUnreachable:
		kind = socks5.ErrNetworkUnreachable
	default:
		kind = socks5.ErrHostUnreachable
	}
	return fmt.Errorf("%w: %w", kind, err)
}

func (s *SOCKS5Server) logConnError(log *zap.Logger, err error) {
	var se *stageError
	if errors.As(err, &se) {
		log = log.With(zap.String("stage", se.stage))
		if se.user != "" {
			log = log.With(zap.String("user", se.user))
		}
		if se.target != "" {
			log = log.With(zap.String("target", se.target))
		}
	}

	if isClientGone(err) {
		log.Debug("connection closed", zap.Error(err))
		return
	}
	log.Warn("connection failed", zap.Error(err))
}

// isClientGone reports errors that only mean the client went away.
func isClientGone(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, context.Canceled)
}
