package socks5

import (
	"errors"
	"fmt"
	"net"
	"slices"

	txsocks5 "github.com/txthinking/socks5"
)

// RFC 1928: no acceptable methods.
const methodNoAcceptable = 0xff

// ServerNegotiate reads the client's method selection and, when auth has a
// username, checks its credentials.
func ServerNegotiate(conn net.Conn, auth Auth) error {
	neg, err := txsocks5.NewNegotiationRequestFrom(conn)
	if err != nil {
		return fmt.Errorf("socks5: read negotiation: %w", err)
	}

	want := byte(txsocks5.MethodNone)
	if auth.Username != "" {
		want = txsocks5.MethodUsernamePassword
	}
	if !slices.Contains(neg.Methods, want) {
		_, _ = txsocks5.NewNegotiationReply(methodNoAcceptable).WriteTo(conn)
		return ErrNoAcceptableMethod
	}
	if _, err := txsocks5.NewNegotiationReply(want).WriteTo(conn); err != nil {
		return fmt.Errorf("socks5: write negotiation: %w", err)
	}
	if want == txsocks5.MethodNone {
		return nil
	}

	urq, err := txsocks5.NewUserPassNegotiationRequestFrom(conn)
	if err != nil {
		return fmt.Errorf("socks5: read credentials: %w", err)
	}
	if string(urq.Uname) != auth.Username || string(urq.Passwd) != auth.Password {
		_, _ = txsocks5.NewUserPassNegotiationReply(txsocks5.UserPassStatusFailure).WriteTo(conn)
		return ErrAuthFailed
	}
	if _, err := txsocks5.NewUserPassNegotiationReply(txsocks5.UserPassStatusSuccess).WriteTo(conn); err != nil {
		return fmt.Errorf("socks5: write credentials reply: %w", err)
	}
	return nil
}

// ServerReadConnect reads the request and returns its destination. Anything
// but CONNECT is answered with "command not supported".
func ServerReadConnect(conn net.Conn) (string, error) {
	req, err := txsocks5.NewRequestFrom(conn)
	if err != nil {
		return "", fmt.Errorf("socks5: read request: %w", err)
	}
	if req.Cmd != txsocks5.CmdConnect {
		_ = WriteReply(conn, txsocks5.RepCommandNotSupported, nil)
		return "", errors.New("socks5: only CONNECT is supported")
	}
	return req.Address(), nil
}

// WriteReply answers a CONNECT. bound is the server's local address for the
// outbound connection, or nil on failure.
func WriteReply(conn net.Conn, rep byte, bound net.Addr) error {
	atyp, addr, port := byte(txsocks5.ATYPIPv4), []byte{0, 0, 0, 0}, []byte{0, 0}
	if bound != nil {
		var err error
		atyp, addr, port, err = txsocks5.ParseAddress(bound.String())
		if err != nil {
			return fmt.Errorf("socks5: parse bound address %q: %w", bound, err)
		}
		if atyp == txsocks5.ATYPDomain {
			addr = addr[1:]
		}
	}
	if _, err := txsocks5.NewReply(rep, atyp, addr, port).WriteTo(conn); err != nil {
		return fmt.Errorf("socks5: write reply: %w", err)
	}
	return nil
}
