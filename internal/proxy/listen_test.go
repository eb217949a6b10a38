package proxy

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestListenTCP(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	tests := []struct {
		name string
		opts ListenOptions
	}{
		{name: "keepalive_off"},
		{name: "keepalive_on", opts: ListenOptions{KeepAlive: net.KeepAliveConfig{Enable: true, Idle: 45 * time.Second, Interval: 45 * time.Second, Count: 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ln, err := ListenTCP(ctx, "tcp", "127.0.0.1:0", tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			defer ln.Close()

			accepted := make(chan net.Conn, 1)
			go func() {
				c, _ := ln.Accept()
				accepted <- c
			}()

			d := net.Dialer{}
			c, err := d.DialContext(ctx, "tcp", ln.Addr().String())
			if err != nil {
				t.Fatal(err)
			}
			defer c.Close()

			s := <-accepted
			if s == nil {
				t.Fatal("accept failed")
			}
			_ = s.Close()
		})
	}
}

func TestListenTCPReusePort(t *testing.T) {
	if !ReusePortSupported {
		t.Skip("SO_REUSEPORT not supported")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	opts := ListenOptions{ReusePort: true}
	ln1, err := ListenTCP(ctx, "tcp", "127.0.0.1:0", opts)
	if err != nil {
		t.Fatal(err)
	}
	defer ln1.Close()

	ln2, err := ListenTCP(ctx, "tcp", ln1.Addr().String(), opts)
	if err != nil {
		t.Fatalf("second listener on %s: %v", ln1.Addr(), err)
	}
	_ = ln2.Close()
}

func TestListenTCPAddrInUse(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ln, err := ListenTCP(ctx, "tcp", "127.0.0.1:0", ListenOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	if ln2, err := ListenTCP(ctx, "tcp", ln.Addr().String(), ListenOptions{}); err == nil {
		_ = ln2.Close()
		t.Fatal("expected error")
	}
}
