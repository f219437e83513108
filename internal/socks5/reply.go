package socks5

import (
	"io"

	"github.com/pkg/errors"
	txsocks5 "github.com/txthinking/socks5"
)

// The bound address in every reply is the 0.0.0.0:0 placeholder; the local
// address of the outbound connection is not reported.
var (
	placeholderAddr = []byte{0x00, 0x00, 0x00, 0x00}
	placeholderPort = []byte{0x00, 0x00}
)

// WriteReply writes VER REP RSV ATYP BND.ADDR BND.PORT for rep.
func WriteReply(w io.Writer, rep Reply) error {
	msg := txsocks5.NewReply(byte(rep), byte(AddrTypeIPv4), placeholderAddr, placeholderPort)
	if _, err := msg.WriteTo(w); err != nil {
		return errors.Wrapf(err, "write %s reply", rep)
	}
	return nil
}
