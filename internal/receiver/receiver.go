package receiver

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/photodrop/internal/observability"
	"github.com/danmuck/photodrop/internal/protocol"
	"github.com/danmuck/photodrop/internal/storage"
)

var ErrNotListening = errors.New("receiver: server is not listening")

// SessionState tracks where a transfer session is in its lifecycle. Any
// failure in a non-terminal state moves straight to closed without an
// acknowledgement.
type SessionState string

const (
	StateAccepted       SessionState = "accepted"
	StateReadingLength  SessionState = "reading_length"
	StateReadingPayload SessionState = "reading_payload"
	StatePersisted      SessionState = "persisted"
	StateAcked          SessionState = "acked"
	StateClosed         SessionState = "closed"
)

// StoredPhoto describes one persisted transfer, handed to the display
// collaborator after the file is durably written.
type StoredPhoto struct {
	Path       string
	Bytes      int
	From       string
	ReceivedAt time.Time
}

// Notifier is the display collaborator boundary. Implementations must not
// block the accept loop for long; decoding for display happens on their side.
type Notifier interface {
	PhotoStored(photo StoredPhoto)
}

// Server accepts one TCP connection at a time and fully processes each
// transfer session before accepting the next. Session failures never stop
// the loop.
type Server struct {
	Addr        string
	Store       *storage.Store
	Limits      protocol.Limits
	ReadTimeout time.Duration
	Notify      Notifier

	mu     sync.Mutex
	ln     net.Listener
	closed bool
}

func New(addr string, store *storage.Store) *Server {
	return &Server{
		Addr:        addr,
		Store:       store,
		Limits:      protocol.DefaultLimits(),
		ReadTimeout: 30 * time.Second,
	}
}

// Listen binds the TCP listener. Serve may be called after a nil return.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("receiver: listen %s: %w", s.Addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.closed = false
	s.mu.Unlock()
	return nil
}

// ListenAddr reports the bound address, useful when Addr requested port 0.
func (s *Server) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve runs the accept loop until Close. Each connection is handled to
// completion before the next accept, which is the one-client-at-a-time
// guarantee the transfer contract promises.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return ErrNotListening
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("receiver listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("receiver: accept: %w", err)
		}
		s.handle(conn)
	}
}

// Close stops the accept loop. In-flight sessions finish via handle's own
// deadline.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil || s.closed {
		return nil
	}
	s.closed = true
	return s.ln.Close()
}

// handle runs one session through the state machine. The connection is
// always closed on return; an acknowledgement goes out only after the store
// reports the file durably written.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	observability.RecordSessionAccepted()

	state := StateAccepted
	logger := log.With().Str("remote", remote).Logger()
	logger.Debug().Msg("session accepted")

	if s.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(s.ReadTimeout)); err != nil {
			s.fail(logger, state, err)
			return
		}
	}

	state = StateReadingLength
	length, err := protocol.ReadLength(conn, s.Limits)
	if err != nil {
		s.fail(logger, state, err)
		return
	}

	// Once the length is in, the session commits to reading the full
	// declared payload or failing via EOF. A partial buffer is discarded
	// and never reaches the store.
	state = StateReadingPayload
	payload, err := protocol.ReadPayload(conn, length)
	if err != nil {
		s.fail(logger, state, err)
		return
	}

	receivedAt := time.Now()
	path, err := s.Store.Save(payload, receivedAt)
	if err != nil {
		s.fail(logger, state, err)
		return
	}
	state = StatePersisted

	if err := protocol.WriteAck(conn); err != nil {
		s.fail(logger, state, err)
		return
	}

	observability.RecordPhotoStored(len(payload))
	logger.Info().
		Str("path", path).
		Int("bytes", len(payload)).
		Msg("photo stored")

	if s.Notify != nil {
		s.Notify.PhotoStored(StoredPhoto{
			Path:       path,
			Bytes:      len(payload),
			From:       remote,
			ReceivedAt: receivedAt,
		})
	}
}

func (s *Server) fail(logger zerolog.Logger, state SessionState, err error) {
	observability.RecordSessionFailure(failureReason(err))
	logger.Warn().
		Str("state", string(state)).
		Err(err).
		Msg("session closed without ack")
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, protocol.ErrTransferIncomplete):
		return "incomplete"
	case errors.Is(err, protocol.ErrEmptyFrame), errors.Is(err, protocol.ErrFrameTooLarge):
		return "protocol_violation"
	case errors.Is(err, storage.ErrEmptyPayload):
		return "protocol_violation"
	default:
		return "io"
	}
}
