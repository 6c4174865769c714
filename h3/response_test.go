package h3

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"testing"

	"github.com/OkutaniDaichi0106/goh3/h3/internal/frame"
	"github.com/quic-go/qpack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("stream reset")
}

func TestWriteResponse(t *testing.T) {
	tests := map[string]struct {
		status   int
		header   http.Header
		body     []byte
		wantData bool
	}{
		"status only": {
			status: http.StatusNoContent,
		},
		"with header and body": {
			status:   http.StatusOK,
			header:   http.Header{"Content-Type": {"text/plain"}},
			body:     []byte("hello"),
			wantData: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteResponse(&buf, tt.status, tt.header, tt.body))

			r := bytes.NewReader(buf.Bytes())

			var h frame.Header
			require.NoError(t, h.Decode(r))
			require.Equal(t, frame.TypeHeaders, h.Type)
			payload, err := frame.ReadPayload(r, h, DefaultMaxRequestHeaderBytes)
			require.NoError(t, err)

			fields, err := qpack.NewDecoder(nil).DecodeFull(payload)
			require.NoError(t, err)
			require.NotEmpty(t, fields)
			assert.Equal(t, ":status", fields[0].Name)
			assert.Equal(t, strconv.Itoa(tt.status), fields[0].Value)
			for _, f := range fields[1:] {
				assert.Equal(t, tt.header.Get(f.Name), f.Value)
			}

			if !tt.wantData {
				assert.Zero(t, r.Len())
				return
			}

			require.NoError(t, h.Decode(r))
			require.Equal(t, frame.TypeData, h.Type)
			body, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, tt.body, body)
		})
	}
}

func TestWriteResponse_WriteError(t *testing.T) {
	err := WriteResponse(failingWriter{}, http.StatusOK, nil, nil)
	assert.EqualError(t, err, "stream reset")
}
