package proxy

import (
	"encoding/json"
	"net/http"

	"go.uber.org/atomic"
)

// Stats holds process-wide connection counters. The zero value is ready to
// use and safe for concurrent updates.
type Stats struct {
	accepted          atomic.Int64
	active            atomic.Int64
	handshakeFailures atomic.Int64
	dialFailures      atomic.Int64
	sent              atomic.Int64
	received          atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Accepted          int64 `json:"accepted"`
	Active            int64 `json:"active"`
	HandshakeFailures int64 `json:"handshake_failures"`
	DialFailures      int64 `json:"dial_failures"`
	BytesSent         int64 `json:"bytes_sent"`
	BytesReceived     int64 `json:"bytes_received"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Accepted:          s.accepted.Load(),
		Active:            s.active.Load(),
		HandshakeFailures: s.handshakeFailures.Load(),
		DialFailures:      s.dialFailures.Load(),
		BytesSent:         s.sent.Load(),
		BytesReceived:     s.received.Load(),
	}
}

func (s *Stats) addRelay(r Result) {
	s.sent.Add(r.Sent)
	s.received.Add(r.Received)
}

// ServeHTTP writes the current snapshot as JSON.
func (s *Stats) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Snapshot())
}
