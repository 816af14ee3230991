package tlsconf

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

var (
	ErrNoKey             = errors.New("no PKCS#8 private key found")
	ErrMultipleKeys      = errors.New("expected a single private key")
	ErrNoCertificates    = errors.New("no certificates found")
	ErrKeyMismatch       = errors.New("private key does not match the leaf certificate")
	ErrIncompleteKeyPair = errors.New("certificate and key must be given together")
)

// ConfigError is a bad or missing certificate, key or root file. It is
// reported at startup and never retried.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("tls config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Material is the certificate chain, private key and optional client trust
// roots for one listener. It is read-only once handed to a listener.
type Material struct {
	// Chain holds DER certificates, leaf first.
	Chain [][]byte
	Key   crypto.PrivateKey
	Leaf  *x509.Certificate

	// Roots enables client authentication when non-nil.
	Roots *x509.CertPool
}

// LoadMaterial reads a certificate chain and its key, plus an optional roots
// file for authenticating peers.
func LoadMaterial(certPath, keyPath, rootsPath string) (*Material, error) {
	chain, err := LoadCertificates(certPath)
	if err != nil {
		return nil, err
	}
	key, err := LoadKey(keyPath)
	if err != nil {
		return nil, err
	}

	m, err := NewMaterial(chain, key)
	if err != nil {
		return nil, &ConfigError{Path: keyPath, Err: err}
	}

	if rootsPath != "" {
		m.Roots, err = LoadRoots(rootsPath)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewMaterial checks that key belongs to the first certificate in chain.
func NewMaterial(chain [][]byte, key crypto.PrivateKey) (*Material, error) {
	if len(chain) == 0 {
		return nil, ErrNoCertificates
	}
	leaf, err := x509.ParseCertificate(chain[0])
	if err != nil {
		return nil, fmt.Errorf("parse leaf certificate: %w", err)
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("unsupported private key type %T", key)
	}
	pub, ok := signer.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !pub.Equal(leaf.PublicKey) {
		return nil, ErrKeyMismatch
	}

	return &Material{
		Chain: append([][]byte(nil), chain...),
		Key:   key,
		Leaf:  leaf,
	}, nil
}

// Certificate returns the chain and key as a tls.Certificate.
func (m *Material) Certificate() tls.Certificate {
	return tls.Certificate{
		Certificate: append([][]byte(nil), m.Chain...),
		PrivateKey:  m.Key,
		Leaf:        m.Leaf,
	}
}

// LoadKey reads a PEM file that must contain exactly one PKCS#8 private key.
func LoadKey(path string) (crypto.PrivateKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	key, err := ParseKey(b)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return key, nil
}

// ParseKey decodes exactly one "PRIVATE KEY" block. Other PEM blocks are
// ignored.
func ParseKey(pemBytes []byte) (crypto.PrivateKey, error) {
	var keys []crypto.PrivateKey
	for block, rest := pem.Decode(pemBytes); block != nil; block, rest = pem.Decode(rest) {
		if block.Type != "PRIVATE KEY" {
			continue
		}
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse pkcs8 key: %w", err)
		}
		keys = append(keys, key)
	}

	switch len(keys) {
	case 0:
		return nil, ErrNoKey
	case 1:
		return keys[0], nil
	default:
		return nil, ErrMultipleKeys
	}
}

// LoadCertificates reads a PEM file holding one or more certificates, leaf
// first, and returns them as DER.
func LoadCertificates(path string) ([][]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	chain, err := ParseCertificates(b)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return chain, nil
}

func ParseCertificates(pemBytes []byte) ([][]byte, error) {
	var chain [][]byte
	for block, rest := pem.Decode(pemBytes); block != nil; block, rest = pem.Decode(rest) {
		if block.Type != "CERTIFICATE" {
			continue
		}
		if _, err := x509.ParseCertificate(block.Bytes); err != nil {
			return nil, fmt.Errorf("parse certificate: %w", err)
		}
		chain = append(chain, block.Bytes)
	}
	if len(chain) == 0 {
		return nil, ErrNoCertificates
	}
	return chain, nil
}

// LoadRoots reads a PEM file of trusted root certificates into a pool.
func LoadRoots(path string) (*x509.CertPool, error) {
	chain, err := LoadCertificates(path)
	if err != nil {
		return nil, err
	}

	pool := x509.NewCertPool()
	for _, der := range chain {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
		pool.AddCert(cert)
	}
	return pool, nil
}
