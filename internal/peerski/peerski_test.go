package peerski

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selfSignedRSACert(t *testing.T) *x509.Certificate {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

func TestFromCertificate_ProducesStableLowercaseHex(t *testing.T) {
	cert := selfSignedRSACert(t)

	ski, err := FromCertificate(cert)
	require.NoError(t, err)
	assert.Len(t, ski, 40) // SHA-1 -> 20 bytes -> 40 hex chars
	for _, r := range ski {
		assert.False(t, r >= 'A' && r <= 'Z', "SKI must be lowercase hex")
	}

	again, err := FromCertificate(cert)
	require.NoError(t, err)
	assert.Equal(t, ski, again)
}

func TestFromConnectionState_NoPeerCertificatesErrors(t *testing.T) {
	_, err := FromConnectionState(tls.ConnectionState{})
	assert.Error(t, err)
}

func TestFromConnectionState_UsesFirstCertificate(t *testing.T) {
	cert := selfSignedRSACert(t)
	ski, err := FromConnectionState(tls.ConnectionState{PeerCertificates: []*x509.Certificate{cert}})
	require.NoError(t, err)

	direct, err := FromCertificate(cert)
	require.NoError(t, err)
	assert.Equal(t, direct, ski)
}
