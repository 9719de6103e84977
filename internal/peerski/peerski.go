// Package peerski derives a remote peer's SKI (Subject Key Identifier) from
// its TLS certificate, the value the connection driver uses to look up and
// record trust decisions. This lives outside pkg/ship because the core
// handshake stack never touches TLS itself — it only ever sees the string.
package peerski

import (
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // protocol-mandated digest, not a security boundary
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"fmt"
)

// FromConnectionState derives the SKI of the first peer certificate
// presented in a completed TLS handshake. The SKI is the SHA-1 digest of the
// certificate's RSA public key, PKCS#1 DER encoded, rendered as lowercase
// hex with no separators.
func FromConnectionState(state tls.ConnectionState) (string, error) {
	if len(state.PeerCertificates) == 0 {
		return "", fmt.Errorf("peerski: no peer certificate presented")
	}
	return FromCertificate(state.PeerCertificates[0])
}

// FromCertificate derives the SKI of a single certificate.
func FromCertificate(cert *x509.Certificate) (string, error) {
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return "", fmt.Errorf("peerski: unsupported public key type %T, expected RSA", cert.PublicKey)
	}
	der := x509.MarshalPKCS1PublicKey(pub)
	digest := sha1.Sum(der)
	return hex.EncodeToString(digest[:]), nil
}
