// Package dialer provides the outbound connect primitive used by socksrelay.
//
// The relay never chains through another proxy: a request for host:port is a
// plain TCP connect to host:port, with name resolution done by the dial.
package dialer
