package krb5

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanHandleSPNEGOToken(t *testing.T) {
	p := &Provider{}
	token := append([]byte{0x60, 0x1e}, spnegoOID...)
	assert.True(t, p.CanHandle(token))
}

func TestCanHandleRawKerberosAPREQ(t *testing.T) {
	p := &Provider{}
	assert.True(t, p.CanHandle([]byte{0x6e, 0x00}))
}

func TestCanHandleRejectsShortOrUnrecognizedToken(t *testing.T) {
	p := &Provider{}
	assert.False(t, p.CanHandle([]byte{0x01}))
	assert.False(t, p.CanHandle([]byte{0x99, 0x00}))
}

func TestNewProviderRequiresKeytabPath(t *testing.T) {
	_, err := NewProvider(Config{ServicePrincipal: "iscsi/host@REALM"})
	assert.Error(t, err)
}

func TestNewProviderRequiresServicePrincipal(t *testing.T) {
	_, err := NewProvider(Config{KeytabPath: "/nonexistent/keytab"})
	assert.Error(t, err)
}
