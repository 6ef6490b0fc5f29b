package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEcorePayClientConfig(t *testing.T) {
	cfg := EcorePayClientConfig()

	assert.Equal(t, 60*time.Second, cfg.DialTimeout)
	assert.False(t, cfg.InsecureSkipVerify, "TLS verification must be on by default")
}

func TestNewHTTPClient(t *testing.T) {
	cfg := EcorePayClientConfig()
	cfg.InsecureSkipVerify = true

	client := NewHTTPClient(cfg, 40*time.Second)

	assert.Equal(t, 40*time.Second, client.Timeout)
	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.True(t, transport.TLSClientConfig.InsecureSkipVerify)
	assert.True(t, transport.DisableCompression)
}
