package testutil

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"

	txsocks5 "github.com/txthinking/socks5"

	"github.com/die-net/tlsrelay/internal/socks5"
)

// StartSingleAcceptServer serves exactly one connection with handler. The
// returned func closes the listener and waits for handler to return.
func StartSingleAcceptServer(t *testing.T, ctx context.Context, handler func(net.Conn)) (net.Listener, func()) {
	t.Helper()

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Go(func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		handler(c)
	})

	wait := func() {
		_ = ln.Close()
		wg.Wait()
	}

	return ln, wait
}

// ServeSOCKS5Connect answers one SOCKS5 CONNECT on c, optionally requiring
// user/pass, then splices c to the requested destination until either side
// closes.
func ServeSOCKS5Connect(ctx context.Context, c net.Conn, user, pass string) error {
	if err := socks5.ServerNegotiate(c, socks5.Auth{Username: user, Password: pass}); err != nil {
		return err
	}

	address, err := socks5.ServerReadConnect(c)
	if err != nil {
		return err
	}

	d := net.Dialer{}
	dst, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		_ = socks5.WriteReply(c, txsocks5.RepHostUnreachable, nil)
		return nil
	}
	defer dst.Close()

	if err := socks5.WriteReply(c, txsocks5.RepSuccess, dst.LocalAddr()); err != nil {
		return err
	}

	go func() {
		_, _ = io.Copy(dst, c)
		_ = dst.Close()
	}()
	_, _ = io.Copy(c, dst)

	return nil
}
