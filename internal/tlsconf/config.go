package tlsconf

import (
	"crypto/tls"
)

// ServerConfig builds the listener's tls.Config. Client certificates are
// required and verified against m.Roots when roots are configured, and not
// requested otherwise.
func ServerConfig(m *Material) *tls.Config {
	cfg := &tls.Config{
		Certificates: []tls.Certificate{m.Certificate()},
		MinVersion:   tls.VersionTLS12,
		ClientAuth:   tls.NoClientCert,
	}
	if m.Roots != nil {
		cfg.ClientCAs = m.Roots.Clone()
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return cfg
}

// ClientConfig builds a client tls.Config trusting the roots in rootsPath.
// certPath and keyPath are optional, but must be given together; they are
// presented to servers that require client authentication.
func ClientConfig(rootsPath, certPath, keyPath string) (*tls.Config, error) {
	roots, err := LoadRoots(rootsPath)
	if err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		RootCAs:            roots,
		MinVersion:         tls.VersionTLS12,
		ClientSessionCache: tls.NewLRUClientSessionCache(0),
	}

	if (certPath == "") != (keyPath == "") {
		return nil, &ConfigError{Path: certPath + keyPath, Err: ErrIncompleteKeyPair}
	}
	if certPath != "" {
		m, err := LoadMaterial(certPath, keyPath, "")
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{m.Certificate()}
	}

	return cfg, nil
}
