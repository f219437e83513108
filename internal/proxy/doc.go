// Package proxy implements the SOCKS5 server side of socksd.
//
// It contains the accept loop and per-connection state machine
// ([SOCKS5Server]), and the connection plumbing they share: listener and TCP
// option helpers, relay buffers and the bidirectional copy.
package proxy
