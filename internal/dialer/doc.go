// Package dialer opens outbound connections for the SOCKS5 CONNECT command.
//
// Dialers implement a small interface (DialContext). [Classify] sorts dial
// failures into the categories a SOCKS5 server reports to its client
// (refused, timed out, network or host unreachable) using the platform's
// errno values.
package dialer
