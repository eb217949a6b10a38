package proxy

import (
	"context"
	"fmt"
	"net"
)

// ListenOptions tune the listening socket.
type ListenOptions struct {
	// KeepAlive is applied to every accepted connection.
	KeepAlive net.KeepAliveConfig

	// ReusePort sets SO_REUSEPORT so several processes can share the
	// listen address. See ReusePortSupported.
	ReusePort bool
}

// ListenTCP listens on the given network/address with opts applied.
func ListenTCP(ctx context.Context, network, addr string, opts ListenOptions) (net.Listener, error) {
	lc := net.ListenConfig{KeepAliveConfig: opts.KeepAlive}
	if !opts.KeepAlive.Enable {
		lc.KeepAlive = -1
	}
	if opts.ReusePort {
		lc.Control = reusePortControl
	}

	ln, err := lc.Listen(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s %s: %w", network, addr, err)
	}
	return ln, nil
}
