package tlsconf

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/die-net/tlsrelay/internal/testutil"
)

func TestDomain(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{address: "localhost:1729", want: "localhost"},
		{address: "localhost", want: "localhost"},
		{address: "127.0.0.1:443", want: "127.0.0.1"},
		{address: "[::1]:443", want: "::1"},
		{address: "[::1]", want: "::1"},
	}

	for _, tt := range tests {
		if got := Domain(tt.address); got != tt.want {
			t.Errorf("Domain(%q) = %q, want %q", tt.address, got, tt.want)
		}
	}
}

type handshakeResult struct {
	conn *tls.Conn
	err  error
}

// handshake runs Accept and Connect against each other over loopback TCP.
func handshake(t *testing.T, serverCfg, clientCfg *tls.Config, address string) (server, client handshakeResult) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	serverc := make(chan handshakeResult, 1)
	go func() {
		raw, err := ln.Accept()
		if err != nil {
			serverc <- handshakeResult{err: err}
			return
		}
		conn, err := Accept(ctx, raw, serverCfg)
		serverc <- handshakeResult{conn: conn, err: err}
	}()

	raw, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	conn, err := Connect(ctx, raw, clientCfg, address)
	client = handshakeResult{conn: conn, err: err}
	if err != nil {
		// Unblock the server side; the client already closed raw.
		_ = raw.Close()
	}

	server = <-serverc
	t.Cleanup(func() {
		for _, c := range []*tls.Conn{server.conn, client.conn} {
			if c != nil {
				_ = c.Close()
			}
		}
	})
	return server, client
}

func loadServerConfig(t *testing.T, pair testutil.Pair, rootsPath string) *tls.Config {
	t.Helper()

	m, err := LoadMaterial(pair.CertPath, pair.KeyPath, rootsPath)
	if err != nil {
		t.Fatal(err)
	}
	return ServerConfig(m)
}

func TestHandshake(t *testing.T) {
	ca := testutil.NewCA(t, "root")
	serverPair := ca.Issue(t, "server")

	clientCfg, err := ClientConfig(ca.CertPath, "", "")
	if err != nil {
		t.Fatal(err)
	}

	server, client := handshake(t, loadServerConfig(t, serverPair, ""), clientCfg, "localhost:1729")
	if server.err != nil {
		t.Fatalf("server handshake: %v", server.err)
	}
	if client.err != nil {
		t.Fatalf("client handshake: %v", client.err)
	}

	go func() { _, _ = client.conn.Write([]byte("hello")) }()
	buf := make([]byte, 5)
	if _, err := io.ReadFull(server.conn, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "hello" {
		t.Fatalf("expected hello, got %q", buf)
	}
}

func TestClientRejectsUntrustedServer(t *testing.T) {
	ca := testutil.NewCA(t, "root")
	otherCA := testutil.NewCA(t, "other")
	serverPair := otherCA.Issue(t, "server")

	clientCfg, err := ClientConfig(ca.CertPath, "", "")
	if err != nil {
		t.Fatal(err)
	}

	_, client := handshake(t, loadServerConfig(t, serverPair, ""), clientCfg, "localhost:1729")

	var he *HandshakeError
	if !errors.As(client.err, &he) {
		t.Fatalf("expected *HandshakeError, got %v", client.err)
	}
	var unknown x509.UnknownAuthorityError
	if !errors.As(client.err, &unknown) {
		t.Fatalf("expected unknown authority, got %v", client.err)
	}
}

func TestClientRejectsWrongName(t *testing.T) {
	ca := testutil.NewCA(t, "root")
	serverPair := ca.Issue(t, "server")

	clientCfg, err := ClientConfig(ca.CertPath, "", "")
	if err != nil {
		t.Fatal(err)
	}

	_, client := handshake(t, loadServerConfig(t, serverPair, ""), clientCfg, "elsewhere.example:1729")
	if client.err == nil {
		t.Fatal("expected hostname mismatch")
	}
}

func TestServerClientAuthentication(t *testing.T) {
	ca := testutil.NewCA(t, "root")
	otherCA := testutil.NewCA(t, "other")
	serverPair := ca.Issue(t, "server")
	goodClient := ca.Issue(t, "client")
	badClient := otherCA.Issue(t, "client")

	tests := []struct {
		name       string
		clientPair *testutil.Pair
		wantErr    bool
	}{
		{name: "trusted client", clientPair: &goodClient},
		{name: "no client certificate", wantErr: true},
		{name: "client from other ca", clientPair: &badClient, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var certPath, keyPath string
			if tt.clientPair != nil {
				certPath, keyPath = tt.clientPair.CertPath, tt.clientPair.KeyPath
			}
			clientCfg, err := ClientConfig(ca.CertPath, certPath, keyPath)
			if err != nil {
				t.Fatal(err)
			}

			server, _ := handshake(t, loadServerConfig(t, serverPair, ca.CertPath), clientCfg, "localhost:1729")
			if tt.wantErr {
				var he *HandshakeError
				if !errors.As(server.err, &he) {
					t.Fatalf("expected server *HandshakeError, got %v", server.err)
				}
				return
			}
			if server.err != nil {
				t.Fatalf("server handshake: %v", server.err)
			}
			if len(server.conn.ConnectionState().PeerCertificates) == 0 {
				t.Fatal("expected peer certificate")
			}
		})
	}
}

// Trust is fixed when the listener config is built; later changes to the
// material's pool do not reach it.
func TestServerConfigCopiesRoots(t *testing.T) {
	ca := testutil.NewCA(t, "root")
	otherCA := testutil.NewCA(t, "other")
	serverPair := ca.Issue(t, "server")
	badClient := otherCA.Issue(t, "client")

	m, err := LoadMaterial(serverPair.CertPath, serverPair.KeyPath, ca.CertPath)
	if err != nil {
		t.Fatal(err)
	}
	serverCfg := ServerConfig(m)
	before := m.Roots.Clone()

	ders, err := LoadCertificates(otherCA.CertPath)
	if err != nil {
		t.Fatal(err)
	}
	otherCert, err := x509.ParseCertificate(ders[0])
	if err != nil {
		t.Fatal(err)
	}
	m.Roots.AddCert(otherCert)

	if !serverCfg.ClientCAs.Equal(before) {
		t.Fatal("ClientCAs changed with the material's pool")
	}

	clientCfg, err := ClientConfig(ca.CertPath, badClient.CertPath, badClient.KeyPath)
	if err != nil {
		t.Fatal(err)
	}
	server, _ := handshake(t, serverCfg, clientCfg, "localhost:1729")
	var he *HandshakeError
	if !errors.As(server.err, &he) {
		t.Fatalf("expected server *HandshakeError, got %v", server.err)
	}
}

func TestClientConfigIncompletePair(t *testing.T) {
	ca := testutil.NewCA(t, "root")
	pair := ca.Issue(t, "client")

	_, err := ClientConfig(ca.CertPath, pair.CertPath, "")
	if !errors.Is(err, ErrIncompleteKeyPair) {
		t.Fatalf("expected ErrIncompleteKeyPair, got %v", err)
	}
}
