package socks5

import "errors"

var (
	// ErrIncompleteFrame is returned when a fixed-size field could not be
	// read in full.
	ErrIncompleteFrame = errors.New("socks5: incomplete frame")

	// ErrUnsupportedVersion is returned when a frame does not carry
	// protocol version 5.
	ErrUnsupportedVersion = errors.New("socks5: unsupported version")

	// ErrUnsupportedCommand is returned for any command other than CONNECT.
	ErrUnsupportedCommand = errors.New("socks5: unsupported command")

	// ErrUnsupportedAddressType is returned for any address type other than
	// IPv4 or domain name.
	ErrUnsupportedAddressType = errors.New("socks5: unsupported address type")

	// ErrMalformedHostname is returned when a domain name is empty or is not
	// valid UTF-8.
	ErrMalformedHostname = errors.New("socks5: malformed hostname")
)
