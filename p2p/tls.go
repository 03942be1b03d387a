//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/markkurossi/otpsi/env"
)

// ClientTLS creates a client TLS configuration trusting the root CA
// certificates in the PEM file rootCA. Missing or unloadable files
// are credential errors.
func ClientTLS(rootCA, serverName string) (*tls.Config, error) {
	if _, err := os.Stat(rootCA); err != nil {
		return nil, env.CredentialErrorf("root CA %q: %v", rootCA, err)
	}
	data, err := os.ReadFile(rootCA)
	if err != nil {
		return nil, env.CredentialErrorf("root CA %q: %v", rootCA, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, env.CredentialErrorf("root CA %q: no certificates",
			rootCA)
	}
	return &tls.Config{
		RootCAs:    pool,
		ServerName: serverName,
		MinVersion: tls.VersionTLS12,
	}, nil
}

// ServerTLS creates a server TLS configuration from the PEM encoded
// certificate and private key files.
func ServerTLS(certFile, keyFile string) (*tls.Config, error) {
	if _, err := os.Stat(certFile); err != nil {
		return nil, env.CredentialErrorf("server certificate %q: %v",
			certFile, err)
	}
	if _, err := os.Stat(keyFile); err != nil {
		return nil, env.CredentialErrorf("server key %q: %v", keyFile, err)
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, env.CredentialErrorf("server key pair: %v", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// SessionTLS creates the TLS configuration for the session mode.
// Server sessions load the key pair and client sessions the root CA.
func SessionTLS(mode Mode, rootCA, certFile, keyFile string) (
	*tls.Config, error) {

	if mode == Server {
		return ServerTLS(certFile, keyFile)
	}
	return ClientTLS(rootCA, "")
}
