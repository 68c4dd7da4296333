package config

import "crypto/tls"

// CertLoader abstracts reading a TLS certificate/key pair off disk, so
// the streamwrap TLS decorator never touches the filesystem directly and
// stays testable with in-memory certs.
type CertLoader interface {
	LoadX509KeyPair(certFile, keyFile string) (tls.Certificate, error)
}

// DefaultCertLoader loads certificates straight off disk via the stdlib.
type DefaultCertLoader struct{}

func (DefaultCertLoader) LoadX509KeyPair(certFile, keyFile string) (tls.Certificate, error) {
	return tls.LoadX509KeyPair(certFile, keyFile)
}

var _ CertLoader = DefaultCertLoader{}
