package proxy

import (
	"errors"
	"fmt"
	"io"
	"net"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// ErrRelayIO wraps a read or write failure in one relay direction.
var ErrRelayIO = errors.New("relay i/o error")

const (
	dirClientToUpstream = "client->upstream"
	dirUpstreamToClient = "upstream->client"
)

// Result counts the bytes relayed in each direction.
type Result struct {
	Sent     int64 // client to upstream
	Received int64 // upstream to client
}

// CopyBidirectional relays bytes between client and upstream until both
// directions have finished, then closes both connections.
//
// Each direction runs until its source reaches EOF or fails, independently
// of the other. When a direction finishes, its destination's write side is
// shut down (if the connection supports it) so the peer sees EOF while the
// opposite direction keeps flowing. Errors from both directions are combined
// and returned, but the relay itself always completes.
func CopyBidirectional(client, upstream net.Conn) (Result, error) {
	defer client.Close()
	defer upstream.Close()

	var (
		res              Result
		errSent, errRecv error
		g                errgroup.Group
	)

	g.Go(func() error {
		res.Sent, errSent = copyHalf(upstream, client, dirClientToUpstream)
		return nil
	})

	g.Go(func() error {
		res.Received, errRecv = copyHalf(client, upstream, dirUpstreamToClient)
		return nil
	})

	_ = g.Wait()

	return res, multierr.Append(errSent, errRecv)
}

func copyHalf(dst, src net.Conn, dir string) (int64, error) {
	buf := relayBuffers.Get()
	defer relayBuffers.Put(buf)

	n, err := io.CopyBuffer(dst, src, *buf)
	closeWrite(dst)
	if err != nil {
		return n, fmt.Errorf("%s: %w: %w", dir, ErrRelayIO, err)
	}
	return n, nil
}

type closeWriter interface {
	CloseWrite() error
}

func closeWrite(c net.Conn) {
	if cw, ok := c.(closeWriter); ok {
		_ = cw.CloseWrite()
	}
}
