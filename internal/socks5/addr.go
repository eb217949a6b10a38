package socks5

import (
	"net"
	"strconv"

	txsocks5 "github.com/txthinking/socks5"
)

// Address is a request destination: either four IPv4 octets or a domain name,
// selected by Type (ATYP).
type Address struct {
	Type byte
	IP   [4]byte
	Host string
}

// IPv4Address returns an IPv4 destination.
func IPv4Address(a, b, c, d byte) Address {
	return Address{Type: txsocks5.ATYPIPv4, IP: [4]byte{a, b, c, d}}
}

// DomainAddress returns a domain name destination.
func DomainAddress(host string) Address {
	return Address{Type: txsocks5.ATYPDomain, Host: host}
}

// String returns the host part: dotted decimal for IPv4, the name as sent
// for a domain.
func (a Address) String() string {
	if a.Type == txsocks5.ATYPIPv4 {
		return net.IPv4(a.IP[0], a.IP[1], a.IP[2], a.IP[3]).String()
	}
	return a.Host
}

// Target joins the address and port into a dialable "host:port".
//
// Domain names are used as-is; resolving them is left to the dialer.
func (a Address) Target(port uint16) string {
	return a.String() + ":" + strconv.Itoa(int(port))
}
