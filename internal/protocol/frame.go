package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

// LengthFieldSize is the wire size of the frame length prefix.
const LengthFieldSize = 4

// Ack is the fixed acknowledgement sent receiver->sender after the photo
// has been durably written.
var Ack = [2]byte{'O', 'K'}

var (
	ErrEmptyFrame         = errors.New("protocol: zero-length frame")
	ErrFrameTooLarge      = errors.New("protocol: declared length exceeds limit")
	ErrTransferIncomplete = errors.New("protocol: stream ended before declared bytes arrived")
	ErrBadAck             = errors.New("protocol: unexpected acknowledgement bytes")
)

// Limits constrains frame decode memory use. A hostile or corrupt length
// field must never drive an allocation.
type Limits struct {
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: 32 * 1024 * 1024}
}

// WriteFrame writes the 4-byte big-endian length of payload followed by the
// payload itself.
func WriteFrame(w io.Writer, payload []byte, limits Limits) error {
	if len(payload) == 0 {
		return ErrEmptyFrame
	}
	if uint64(len(payload)) > uint64(limits.MaxPayloadBytes) {
		return ErrFrameTooLarge
	}
	var prefix [LengthFieldSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))
	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	return nil
}

// ReadLength reads the 4-byte length prefix and validates it against limits
// before any payload allocation happens.
func ReadLength(r io.Reader, limits Limits) (uint32, error) {
	var prefix [LengthFieldSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, ErrTransferIncomplete
		}
		return 0, err
	}
	length := binary.BigEndian.Uint32(prefix[:])
	if length == 0 {
		return 0, ErrEmptyFrame
	}
	if length > limits.MaxPayloadBytes {
		return 0, ErrFrameTooLarge
	}
	return length, nil
}

// ReadPayload reads exactly length bytes, looping until they have all
// accumulated. TCP gives no message boundaries, so a single read returning
// fewer bytes than declared is normal, not an error; only EOF before the
// declared count is.
func ReadPayload(r io.Reader, length uint32) ([]byte, error) {
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTransferIncomplete
		}
		return nil, err
	}
	return payload, nil
}

// ReadFrame reads one complete length-prefixed frame.
func ReadFrame(r io.Reader, limits Limits) ([]byte, error) {
	length, err := ReadLength(r, limits)
	if err != nil {
		return nil, err
	}
	return ReadPayload(r, length)
}

// WriteAck writes the fixed 2-byte acknowledgement.
func WriteAck(w io.Writer) error {
	_, err := w.Write(Ack[:])
	return err
}

// ReadAck reads the full 2-byte acknowledgement. The read loops to two bytes
// so an ack split across segments is not mistaken for a failed transfer, and
// a short read before EOF is never silently accepted as success.
func ReadAck(r io.Reader) error {
	var got [2]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrTransferIncomplete
		}
		return err
	}
	if got != Ack {
		return ErrBadAck
	}
	return nil
}
