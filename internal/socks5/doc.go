// Package socks5 implements the SOCKS5 wire protocol used by socksd.
//
// The server side is split into one function per protocol stage:
// [Negotiate] (method selection), [Authenticate] (RFC 1929
// username/password), [ReadRequest] and [WriteReply]. Each stage reads exactly
// the bytes it owns from the connection, so the caller can hand the same
// net.Conn to the relay once the request has been answered.
//
// Outgoing handshake messages are encoded with the message types in
// github.com/txthinking/socks5. Incoming messages are parsed here so that
// failures carry the raw offending byte (see [InvalidVersionError],
// [UnsupportedCommandError] and [UnsupportedAddressTypeError]).
//
// The package also carries a small client ([ClientDial]) used by tests and
// tooling to talk to a SOCKS5 server.
package socks5
