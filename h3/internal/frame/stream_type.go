package frame

import (
	"fmt"
	"io"

	"github.com/quic-go/quic-go/quicvarint"
)

// StreamType is the type prefix of a unidirectional HTTP/3 stream (RFC 9114 §6.2).
type StreamType uint64

const (
	StreamTypeControl      StreamType = 0x00
	StreamTypePush         StreamType = 0x01
	StreamTypeQPACKEncoder StreamType = 0x02
	StreamTypeQPACKDecoder StreamType = 0x03
)

// Known reports whether the type is one the server understands.
// Peers may open streams of reserved or extension types which must be ignored.
func (t StreamType) Known() bool {
	switch t {
	case StreamTypeControl, StreamTypePush, StreamTypeQPACKEncoder, StreamTypeQPACKDecoder:
		return true
	default:
		return false
	}
}

func (t StreamType) String() string {
	switch t {
	case StreamTypeControl:
		return "control"
	case StreamTypePush:
		return "push"
	case StreamTypeQPACKEncoder:
		return "qpack_encoder"
	case StreamTypeQPACKDecoder:
		return "qpack_decoder"
	default:
		return fmt.Sprintf("unknown(0x%x)", uint64(t))
	}
}

/*
 * Serialize the stream type in the following format
 *
 * Unidirectional Stream Header {
 *   Stream Type (i),
 * }
 */

func (t StreamType) Encode(w io.Writer) error {
	_, err := w.Write(quicvarint.Append(nil, uint64(t)))
	return err
}

// Decode reads exactly the bytes of one variable-length integer from r.
func (t *StreamType) Decode(r io.Reader) error {
	num, err := quicvarint.Read(quicvarint.NewReader(r))
	if err != nil {
		return err
	}
	*t = StreamType(num)
	return nil
}
