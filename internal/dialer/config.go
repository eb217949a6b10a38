package dialer

import (
	"net"
	"time"
)

type Config struct {
	// DialTimeout bounds DNS lookup plus TCP connect. Zero leaves it to
	// the operating system.
	DialTimeout time.Duration

	KeepAlive net.KeepAliveConfig
}
