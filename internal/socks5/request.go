package socks5

import (
	"encoding/binary"
	"io"
	"net/netip"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// ReadRequest reads VER CMD RSV ATYP DST.ADDR DST.PORT.
func ReadRequest(r io.Reader) (*Request, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, errors.Wrap(err, "read request header")
	}
	if hdr[0] != Version {
		return nil, &InvalidVersionError{Version: hdr[0]}
	}
	cmd, err := ParseCommand(hdr[1])
	if err != nil {
		return nil, err
	}
	// hdr[2] is RSV and ignored.

	addr, err := readAddress(r, hdr[3])
	if err != nil {
		return nil, err
	}
	return &Request{Command: cmd, Address: addr}, nil
}

func readAddress(r io.Reader, atyp byte) (Address, error) {
	var addr Address
	switch AddrType(atyp) {
	case AddrTypeIPv4:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return addr, errors.Wrap(err, "read IPv4 address")
		}
		addr = Address{Type: AddrTypeIPv4, IP: netip.AddrFrom4(b)}
	case AddrTypeIPv6:
		var b [16]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return addr, errors.Wrap(err, "read IPv6 address")
		}
		addr = Address{Type: AddrTypeIPv6, IP: netip.AddrFrom16(b)}
	case AddrTypeDomain:
		name, err := readLengthPrefixed(r)
		if err != nil {
			return addr, errors.Wrap(err, "read domain")
		}
		if len(name) == 0 || !utf8.Valid(name) {
			return addr, ErrInvalidAddress
		}
		addr = Address{Type: AddrTypeDomain, Name: string(name)}
	default:
		return addr, &UnsupportedAddressTypeError{Type: atyp}
	}

	var port [2]byte
	if _, err := io.ReadFull(r, port[:]); err != nil {
		return addr, errors.Wrap(err, "read port")
	}
	addr.Port = binary.BigEndian.Uint16(port[:])
	return addr, nil
}

// MarshalBinary encodes the request in wire format.
func (req *Request) MarshalBinary() ([]byte, error) {
	b := []byte{Version, byte(req.Command), 0x00, byte(req.Address.Type)}
	switch req.Address.Type {
	case AddrTypeIPv4:
		if !req.Address.IP.Is4() {
			return nil, errors.Wrapf(ErrInvalidAddress, "%s is not IPv4", req.Address.IP)
		}
		ip := req.Address.IP.As4()
		b = append(b, ip[:]...)
	case AddrTypeIPv6:
		if !req.Address.IP.Is6() {
			return nil, errors.Wrapf(ErrInvalidAddress, "%s is not IPv6", req.Address.IP)
		}
		ip := req.Address.IP.As16()
		b = append(b, ip[:]...)
	case AddrTypeDomain:
		name := req.Address.Name
		if len(name) == 0 || len(name) > maxDomainLen {
			return nil, errors.Wrapf(ErrInvalidAddress, "domain length %d", len(name))
		}
		b = append(b, byte(len(name)))
		b = append(b, name...)
	default:
		return nil, &UnsupportedAddressTypeError{Type: byte(req.Address.Type)}
	}
	return binary.BigEndian.AppendUint16(b, req.Address.Port), nil
}

// WriteTo writes the encoded request to w.
func (req *Request) WriteTo(w io.Writer) (int64, error) {
	b, err := req.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}
