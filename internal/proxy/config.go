package proxy

import (
	"time"

	"github.com/die-net/socksrelay/internal/dialer"
)

type Config struct {
	// NegotiationTimeout bounds everything before the relay starts: the
	// greeting, the request and the upstream connect. Zero means no
	// deadline.
	NegotiationTimeout time.Duration

	Dialer dialer.Dialer
}
