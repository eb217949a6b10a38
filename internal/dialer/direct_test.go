package dialer

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/die-net/socksrelay/internal/testutil"
)

func TestDirectDialerDial(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoTCPServer(t, ctx)
	defer echoLn.Close()

	d := NewDirectDialer(Config{DialTimeout: 2 * time.Second})

	conn, err := d.DialContext(ctx, "tcp", echoLn.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	testutil.AssertEcho(t, conn, conn, []byte("hello"))
}

func TestDirectDialerDialFail(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	addr := testutil.ClosedTCPAddr(t, ctx)

	d := NewDirectDialer(Config{DialTimeout: 2 * time.Second})

	_, err := d.DialContext(ctx, "tcp", addr)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), addr) {
		t.Fatalf("error %q does not name %s", err, addr)
	}
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected *net.OpError in chain, got %T", err)
	}
}

func TestDirectDialerContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDirectDialer(Config{})

	if _, err := d.DialContext(ctx, "tcp", "127.0.0.1:1"); err == nil {
		t.Fatal("expected error")
	}
}
