package h3

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/OkutaniDaichi0106/goh3/quic"
	"github.com/quic-go/qpack"
)

// Request is a request whose HEADERS frame has been read in full.
// The stream has already started when the Handler sees it.
type Request struct {
	StreamID quic.StreamID

	Method    string
	Scheme    string
	Authority string
	Path      string
	Protocol  string

	// Header holds the regular header fields. Pseudo-header fields are
	// exposed through the fields above.
	Header http.Header

	// Body reads the frames following the HEADERS frame.
	Body io.Reader

	stream quic.Stream
}

// Stream returns the request stream, for handlers that write a response.
func (r *Request) Stream() quic.Stream {
	return r.stream
}

// Handler serves requests that started within the request headers timeout.
type Handler interface {
	ServeRequest(r *Request)
}

// HandlerFunc is an adapter to allow the use of ordinary functions as a Handler.
type HandlerFunc func(r *Request)

func (f HandlerFunc) ServeRequest(r *Request) {
	f(r)
}

var (
	errMissingPseudoHeader = errors.New("missing pseudo-header field")
	errUnknownPseudoHeader = errors.New("unknown pseudo-header field")
)

// newRequest builds a request from a decoded field section (RFC 9114 §4.3.1).
func newRequest(stream quic.Stream, fields []qpack.HeaderField) (*Request, error) {
	r := &Request{
		StreamID: stream.StreamID(),
		Header:   make(http.Header, len(fields)),
		Body:     stream,
		stream:   stream,
	}

	for _, f := range fields {
		if !strings.HasPrefix(f.Name, ":") {
			r.Header.Add(f.Name, f.Value)
			continue
		}

		switch f.Name {
		case ":method":
			r.Method = f.Value
		case ":scheme":
			r.Scheme = f.Value
		case ":authority":
			r.Authority = f.Value
		case ":path":
			r.Path = f.Value
		case ":protocol":
			r.Protocol = f.Value
		default:
			return nil, fmt.Errorf("%w: %s", errUnknownPseudoHeader, f.Name)
		}
	}

	if r.Method == "" {
		return nil, fmt.Errorf("%w: :method", errMissingPseudoHeader)
	}
	if r.Method != http.MethodConnect && (r.Scheme == "" || r.Path == "") {
		return nil, fmt.Errorf("%w: :scheme or :path", errMissingPseudoHeader)
	}

	return r, nil
}
