// Package socks5 implements the SOCKS5 frames socksrelay speaks: the client
// greeting, the no-auth method selection, the CONNECT request and the success
// reply.
//
// Only the no-auth method, the CONNECT command and the IPv4 and domain name
// address types are supported. Protocol constants come from
// github.com/txthinking/socks5 so the byte values stay in one place; the
// framing itself is done here because socksrelay needs exact-length reads and
// typed errors for every short or unsupported frame.
package socks5
