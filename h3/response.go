package h3

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/OkutaniDaichi0106/goh3/h3/internal/frame"
	"github.com/quic-go/qpack"
)

// WriteResponse writes a HEADERS frame carrying status and header, followed
// by a DATA frame with body if body is not empty. It does not close w.
func WriteResponse(w io.Writer, status int, header http.Header, body []byte) error {
	var fields bytes.Buffer
	enc := qpack.NewEncoder(&fields)

	if err := enc.WriteField(qpack.HeaderField{Name: ":status", Value: strconv.Itoa(status)}); err != nil {
		return err
	}
	for name, values := range header {
		// Field names must be lowercase in HTTP/3 (RFC 9114 §4.2)
		name = strings.ToLower(name)
		for _, v := range values {
			if err := enc.WriteField(qpack.HeaderField{Name: name, Value: v}); err != nil {
				return err
			}
		}
	}
	if err := enc.Close(); err != nil {
		return err
	}

	b := frame.AppendFrame(nil, frame.TypeHeaders, fields.Bytes())
	if len(body) > 0 {
		b = frame.AppendFrame(b, frame.TypeData, body)
	}

	_, err := w.Write(b)
	return err
}
