package frame

import (
	"errors"
	"fmt"
	"io"

	"github.com/quic-go/quic-go/quicvarint"
)

// Type is an HTTP/3 frame type (RFC 9114 §7.2).
type Type uint64

const (
	TypeData        Type = 0x00
	TypeHeaders     Type = 0x01
	TypeCancelPush  Type = 0x03
	TypeSettings    Type = 0x04
	TypePushPromise Type = 0x05
	TypeGoAway      Type = 0x07
	TypeMaxPushID   Type = 0x0d
)

func (t Type) String() string {
	switch t {
	case TypeData:
		return "DATA"
	case TypeHeaders:
		return "HEADERS"
	case TypeCancelPush:
		return "CANCEL_PUSH"
	case TypeSettings:
		return "SETTINGS"
	case TypePushPromise:
		return "PUSH_PROMISE"
	case TypeGoAway:
		return "GOAWAY"
	case TypeMaxPushID:
		return "MAX_PUSH_ID"
	default:
		return fmt.Sprintf("UNKNOWN(0x%x)", uint64(t))
	}
}

// ErrFrameTooLarge is returned when a frame payload exceeds the caller's limit.
var ErrFrameTooLarge = errors.New("h3: frame too large")

/*
 * HTTP/3 Frame {
 *   Type (i),
 *   Length (i),
 *   Frame Payload (..),
 * }
 */

// Header is the type and length prefix of a frame.
type Header struct {
	Type   Type
	Length uint64
}

func (h Header) Encode(w io.Writer) error {
	b := quicvarint.Append(nil, uint64(h.Type))
	b = quicvarint.Append(b, h.Length)
	_, err := w.Write(b)
	return err
}

// Decode reads a frame header without consuming any of the payload.
func (h *Header) Decode(r io.Reader) error {
	vr := quicvarint.NewReader(r)

	typ, err := quicvarint.Read(vr)
	if err != nil {
		return err
	}
	length, err := quicvarint.Read(vr)
	if err != nil {
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		return err
	}

	h.Type = Type(typ)
	h.Length = length
	return nil
}

// ReadPayload reads the payload that follows h. It fails with ErrFrameTooLarge
// before reading anything when the declared length exceeds max.
func ReadPayload(r io.Reader, h Header, max uint64) ([]byte, error) {
	if h.Length > max {
		return nil, ErrFrameTooLarge
	}
	payload := make([]byte, h.Length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// AppendFrame appends a complete frame to b.
func AppendFrame(b []byte, typ Type, payload []byte) []byte {
	b = quicvarint.Append(b, uint64(typ))
	b = quicvarint.Append(b, uint64(len(payload)))
	return append(b, payload...)
}

// Known reports whether t is defined by RFC 9114.
// Frames of other types are reserved or extensions and must be skipped.
func (t Type) Known() bool {
	switch t {
	case TypeData, TypeHeaders, TypeCancelPush, TypeSettings, TypePushPromise, TypeGoAway, TypeMaxPushID:
		return true
	default:
		return false
	}
}
