package quicgo

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListenAddrEarly_InvalidAddress(t *testing.T) {
	ln, err := ListenAddrEarly("not-an-address", &tls.Config{}, nil)
	assert.Error(t, err)
	assert.Nil(t, ln)
}

func TestWrapConnection_Nil(t *testing.T) {
	assert.Nil(t, wrapConnection(nil))
}
