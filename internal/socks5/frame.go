package socks5

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	txsocks5 "github.com/txthinking/socks5"
)

// Greeting is the first message a client sends: VER NMETHODS METHODS.
type Greeting struct {
	Version byte
	Methods []byte
}

// Request is a client request: VER CMD RSV ATYP DST.ADDR DST.PORT.
type Request struct {
	Version byte
	Cmd     byte
	Rsv     byte
	Addr    Address
	Port    uint16
}

// Target returns the host:port the request asks to be connected to.
func (r *Request) Target() string {
	return r.Addr.Target(r.Port)
}

// methodSelection selects "no authentication required".
var methodSelection = []byte{txsocks5.Ver, txsocks5.MethodNone}

// successReply is sent once the upstream connection is up.
//
// BND.ADDR and BND.PORT always claim 0.0.0.0:80, whatever the upstream
// connection's local address is. Clients only need a well-formed reply, and
// existing deployments expect these exact bytes, so the bound address is
// deliberately not reported truthfully.
var successReply = []byte{
	txsocks5.Ver, txsocks5.RepSuccess, 0x00, txsocks5.ATYPIPv4,
	0x00, 0x00, 0x00, 0x00, // BND.ADDR
	0x00, 0x50, // BND.PORT
}

// MethodSelection returns the method selection message, VER=5 METHOD=0x00.
func MethodSelection() []byte {
	return append([]byte(nil), methodSelection...)
}

// SuccessReply returns the fixed 10-byte success reply.
func SuccessReply() []byte {
	return append([]byte(nil), successReply...)
}

// ReadGreeting reads a client greeting from r.
//
// The method list is read in full; a client that announces n methods and
// sends fewer gets ErrIncompleteFrame rather than a truncated list.
func ReadGreeting(r io.Reader) (*Greeting, error) {
	var hdr [2]byte
	if err := readFull(r, hdr[:], "greeting header"); err != nil {
		return nil, err
	}
	if hdr[0] != txsocks5.Ver {
		return nil, fmt.Errorf("greeting version %d: %w", hdr[0], ErrUnsupportedVersion)
	}

	methods := make([]byte, int(hdr[1]))
	if err := readFull(r, methods, "greeting methods"); err != nil {
		return nil, err
	}

	return &Greeting{Version: hdr[0], Methods: methods}, nil
}

// ReadRequest reads a client request from r.
//
// The command is returned as sent; rejecting anything but CONNECT is left to
// the caller.
func ReadRequest(r io.Reader) (*Request, error) {
	var hdr [4]byte
	if err := readFull(r, hdr[:], "request header"); err != nil {
		return nil, err
	}
	if hdr[0] != txsocks5.Ver {
		return nil, fmt.Errorf("request version %d: %w", hdr[0], ErrUnsupportedVersion)
	}

	req := &Request{Version: hdr[0], Cmd: hdr[1], Rsv: hdr[2]}

	addr, err := readAddress(r, hdr[3])
	if err != nil {
		return nil, err
	}
	req.Addr = addr

	var port [2]byte
	if err := readFull(r, port[:], "request port"); err != nil {
		return nil, err
	}
	req.Port = binary.BigEndian.Uint16(port[:])

	return req, nil
}

func readAddress(r io.Reader, atyp byte) (Address, error) {
	switch atyp {
	case txsocks5.ATYPIPv4:
		a := Address{Type: atyp}
		if err := readFull(r, a.IP[:], "ipv4 address"); err != nil {
			return Address{}, err
		}
		return a, nil

	case txsocks5.ATYPDomain:
		var n [1]byte
		if err := readFull(r, n[:], "domain length"); err != nil {
			return Address{}, err
		}
		if n[0] == 0 {
			return Address{}, fmt.Errorf("empty domain: %w", ErrMalformedHostname)
		}
		b := make([]byte, int(n[0]))
		if err := readFull(r, b, "domain"); err != nil {
			return Address{}, err
		}
		if !utf8.Valid(b) {
			return Address{}, fmt.Errorf("domain %q: %w", b, ErrMalformedHostname)
		}
		return Address{Type: atyp, Host: string(b)}, nil

	default:
		return Address{}, fmt.Errorf("address type %d: %w", atyp, ErrUnsupportedAddressType)
	}
}

// readFull fills buf from r, mapping a short read to ErrIncompleteFrame.
// Errors other than EOF are wrapped alongside it so callers can still see
// timeouts and resets.
func readFull(r io.Reader, buf []byte, field string) error {
	_, err := io.ReadFull(r, buf)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("read %s: %w", field, ErrIncompleteFrame)
	default:
		return fmt.Errorf("read %s: %w: %w", field, ErrIncompleteFrame, err)
	}
}
