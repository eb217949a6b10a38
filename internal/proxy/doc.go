// Package proxy implements the socksrelay SOCKS5 server: the per-connection
// handshake, the upstream connect and the bidirectional relay, along with
// the listener and process-wide counters.
package proxy
