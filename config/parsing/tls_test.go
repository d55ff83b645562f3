package parsing

import (
	"crypto/tls"
	"testing"

	"github.com/fwdask/fwdask/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildServerTLSConfig(t *testing.T) {
	cfg, err := BuildServerTLSConfig(nil)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	cfg, err = BuildServerTLSConfig(&config.TLSConfig{CommonName: "controller.local"})
	require.NoError(t, err)
	require.Len(t, cfg.Certificates, 1)
	assert.Equal(t, tls.NoClientCert, cfg.ClientAuth)

	assert.Equal(t, "controller.local", cfg.Certificates[0].Leaf.Subject.CommonName)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)

	_, err = BuildServerTLSConfig(&config.TLSConfig{CAFile: "/nonexistent/ca.pem"})
	assert.Error(t, err)

	_, err = BuildServerTLSConfig(&config.TLSConfig{CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"})
	assert.Error(t, err)
}

func TestBuildClientTLSConfig(t *testing.T) {
	cfg, err := BuildClientTLSConfig(nil)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	cfg, err = BuildClientTLSConfig(&config.TLSConfig{ServerName: "plugin.local"})
	require.NoError(t, err)
	assert.Equal(t, "plugin.local", cfg.ServerName)
	assert.True(t, cfg.InsecureSkipVerify)

	cfg, err = BuildClientTLSConfig(&config.TLSConfig{Secure: true})
	require.NoError(t, err)
	assert.False(t, cfg.InsecureSkipVerify)
}
