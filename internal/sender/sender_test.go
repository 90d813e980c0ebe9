package sender

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/danmuck/photodrop/internal/protocol"
)

// fakeReceiver accepts one connection and runs handler on it.
func fakeReceiver(t *testing.T, handler func(conn net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}()
	return ln.Addr().String()
}

func TestSendDeliversFrameAndReadsAck(t *testing.T) {
	payload := bytes.Repeat([]byte{0xD8, 0xFF}, 25_000)
	received := make(chan []byte, 1)
	addr := fakeReceiver(t, func(conn net.Conn) {
		frame, err := protocol.ReadFrame(conn, protocol.DefaultLimits())
		if err != nil {
			t.Errorf("receiver read frame: %v", err)
			return
		}
		received <- frame
		protocol.WriteAck(conn)
	})

	var statuses []string
	s := New(addr)
	s.Status = func(st string) { statuses = append(statuses, st) }

	if err := s.Send(context.Background(), payload); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := <-received; !bytes.Equal(got, payload) {
		t.Fatalf("receiver saw different bytes")
	}
	if len(statuses) != 4 {
		t.Fatalf("expected 4 status checkpoints, got %v", statuses)
	}
	if !strings.HasPrefix(statuses[0], "connecting") || statuses[len(statuses)-1] != "transfer complete" {
		t.Fatalf("unexpected status sequence: %v", statuses)
	}
}

func TestSendNoListenerIsConnectError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	s := New(addr)
	err = s.Send(context.Background(), []byte("photo"))
	if !errors.Is(err, ErrConnect) {
		t.Fatalf("expected ErrConnect, got %v", err)
	}
}

func TestSendEmptyAddrRejectedBeforeDial(t *testing.T) {
	s := New("  ")
	if err := s.Send(context.Background(), []byte("photo")); !errors.Is(err, ErrNoHost) {
		t.Fatalf("expected ErrNoHost, got %v", err)
	}
}

func TestSendAbsentAckIsIncomplete(t *testing.T) {
	addr := fakeReceiver(t, func(conn net.Conn) {
		protocol.ReadFrame(conn, protocol.DefaultLimits())
		// close without acknowledging, as if the receiver crashed after accept
	})
	s := New(addr)
	err := s.Send(context.Background(), []byte("photo"))
	if !errors.Is(err, protocol.ErrTransferIncomplete) {
		t.Fatalf("expected ErrTransferIncomplete, got %v", err)
	}
}

func TestSendShortAckIsIncomplete(t *testing.T) {
	addr := fakeReceiver(t, func(conn net.Conn) {
		protocol.ReadFrame(conn, protocol.DefaultLimits())
		conn.Write([]byte{'O'})
	})
	s := New(addr)
	err := s.Send(context.Background(), []byte("photo"))
	if !errors.Is(err, protocol.ErrTransferIncomplete) {
		t.Fatalf("expected ErrTransferIncomplete on 1-byte ack, got %v", err)
	}
}

func TestSendWrongAckBytes(t *testing.T) {
	addr := fakeReceiver(t, func(conn net.Conn) {
		protocol.ReadFrame(conn, protocol.DefaultLimits())
		conn.Write([]byte("NO"))
	})
	s := New(addr)
	err := s.Send(context.Background(), []byte("photo"))
	if !errors.Is(err, protocol.ErrBadAck) {
		t.Fatalf("expected ErrBadAck, got %v", err)
	}
}

func TestHostPort(t *testing.T) {
	if _, err := HostPort("", "5001"); !errors.Is(err, ErrNoHost) {
		t.Fatalf("expected ErrNoHost for empty host, got %v", err)
	}
	addr, err := HostPort("server.local", "not-a-port")
	if err != nil || addr != "server.local:5001" {
		t.Fatalf("expected default port fallback, got %q err=%v", addr, err)
	}
	addr, err = HostPort("10.0.0.2", " 6001 ")
	if err != nil || addr != "10.0.0.2:6001" {
		t.Fatalf("expected parsed port, got %q err=%v", addr, err)
	}
}
