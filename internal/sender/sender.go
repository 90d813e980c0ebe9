package sender

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/photodrop/internal/config"
	"github.com/danmuck/photodrop/internal/protocol"
)

var (
	ErrNoHost  = errors.New("sender: destination host is empty")
	ErrConnect = errors.New("sender: connect failed")
)

// StatusFunc observes transfer progress at fixed checkpoints. It exists for
// UI surfaces only and never influences the protocol outcome.
type StatusFunc func(status string)

// Sender delivers one framed photo per call to a fixed destination. It does
// not serialize calls; the owner keeps at most one transfer in flight.
type Sender struct {
	Addr        string
	DialTimeout time.Duration
	Limits      protocol.Limits
	Status      StatusFunc
}

func New(addr string) *Sender {
	return &Sender{
		Addr:        addr,
		DialTimeout: 10 * time.Second,
		Limits:      protocol.DefaultLimits(),
	}
}

// HostPort builds a dial address from user-supplied host and port text. The
// port falls back to the default when absent or unparsable; an empty host is
// rejected before any network action.
func HostPort(host, portText string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", ErrNoHost
	}
	port := config.DefaultPort
	if p, err := strconv.Atoi(strings.TrimSpace(portText)); err == nil && p > 0 && p <= 65535 {
		port = p
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// Send writes one length-prefixed frame and waits for the 2-byte
// acknowledgement. On nil return the photo was fully written and the
// receiver acknowledged; the connection is closed on every path.
func (s *Sender) Send(ctx context.Context, payload []byte) error {
	if strings.TrimSpace(s.Addr) == "" {
		return ErrNoHost
	}

	s.report("connecting to " + s.Addr)
	dialer := net.Dialer{Timeout: s.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("sender: set deadline: %w", err)
		}
	}

	s.report(fmt.Sprintf("sending %d bytes", len(payload)))
	w := bufio.NewWriter(conn)
	if err := protocol.WriteFrame(w, payload, s.Limits); err != nil {
		return fmt.Errorf("sender: write frame: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("sender: flush: %w", err)
	}

	s.report("waiting for acknowledgement")
	if err := protocol.ReadAck(conn); err != nil {
		return fmt.Errorf("sender: %w", err)
	}

	s.report("transfer complete")
	log.Debug().Str("addr", s.Addr).Int("bytes", len(payload)).Msg("photo acknowledged")
	return nil
}

func (s *Sender) report(status string) {
	if s.Status != nil {
		s.Status(status)
	}
}
