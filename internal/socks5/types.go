package socks5

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const (
	// Version is the SOCKS protocol version byte.
	Version byte = 0x05

	// UserPassVersion is the RFC 1929 subnegotiation version byte.
	UserPassVersion byte = 0x01

	userPassStatusSuccess byte = 0x00
	userPassStatusFailure byte = 0x01

	maxDomainLen = 255
)

// AuthMethod is a method identifier from the SOCKS5 handshake.
type AuthMethod byte

const (
	MethodNoAuth           AuthMethod = 0x00
	MethodUsernamePassword AuthMethod = 0x02
	MethodNoAcceptable     AuthMethod = 0xFF
)

func (m AuthMethod) String() string {
	switch m {
	case MethodNoAuth:
		return "no-auth"
	case MethodUsernamePassword:
		return "username/password"
	case MethodNoAcceptable:
		return "no-acceptable"
	default:
		return fmt.Sprintf("method(0x%02x)", byte(m))
	}
}

// Command is the CMD field of a SOCKS5 request.
type Command byte

const (
	CommandConnect      Command = 0x01
	CommandBind         Command = 0x02
	CommandUDPAssociate Command = 0x03
)

// ParseCommand maps a raw CMD byte to a Command.
func ParseCommand(b byte) (Command, error) {
	switch c := Command(b); c {
	case CommandConnect, CommandBind, CommandUDPAssociate:
		return c, nil
	default:
		return 0, &UnsupportedCommandError{Command: b}
	}
}

func (c Command) String() string {
	switch c {
	case CommandConnect:
		return "CONNECT"
	case CommandBind:
		return "BIND"
	case CommandUDPAssociate:
		return "UDP ASSOCIATE"
	default:
		return fmt.Sprintf("command(0x%02x)", byte(c))
	}
}

// AddrType is the ATYP field of a SOCKS5 request or reply.
type AddrType byte

const (
	AddrTypeIPv4   AddrType = 0x01
	AddrTypeDomain AddrType = 0x03
	AddrTypeIPv6   AddrType = 0x04
)

// Address is a request destination: an IPv4 or IPv6 address, or a domain
// name, plus a port.
type Address struct {
	Type AddrType
	IP   netip.Addr
	Name string
	Port uint16
}

// AddressFromIP returns an IPv4 or IPv6 Address for ip. IPv4-mapped IPv6
// addresses are treated as IPv4.
func AddressFromIP(ip netip.Addr, port uint16) Address {
	ip = ip.Unmap()
	if ip.Is4() {
		return Address{Type: AddrTypeIPv4, IP: ip, Port: port}
	}
	return Address{Type: AddrTypeIPv6, IP: ip, Port: port}
}

// DomainAddress returns a domain Address. The name must be 1-255 bytes of
// valid UTF-8.
func DomainAddress(name string, port uint16) (Address, error) {
	if len(name) == 0 || len(name) > maxDomainLen || !utf8.ValidString(name) {
		return Address{}, errors.Wrapf(ErrInvalidAddress, "domain %q", name)
	}
	return Address{Type: AddrTypeDomain, Name: name, Port: port}, nil
}

// ParseAddress parses a "host:port" string. Hosts that are IP literals
// produce IP addresses; anything else is a domain.
func ParseAddress(hostport string) (Address, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return Address{}, errors.Wrap(err, "split host/port")
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Address{}, errors.Wrapf(err, "parse port %q", portStr)
	}
	if ip, err := netip.ParseAddr(host); err == nil {
		return AddressFromIP(ip, uint16(port)), nil
	}
	return DomainAddress(host, uint16(port))
}

// String returns the address in a form accepted by net.Dial.
func (a Address) String() string {
	port := strconv.FormatUint(uint64(a.Port), 10)
	if a.Type == AddrTypeDomain {
		return net.JoinHostPort(a.Name, port)
	}
	return net.JoinHostPort(a.IP.String(), port)
}

// Request is a parsed SOCKS5 request.
type Request struct {
	Command Command
	Address Address
}

// Reply is the REP field of a SOCKS5 reply.
type Reply byte

const (
	ReplySucceeded               Reply = 0x00
	ReplyGeneralFailure          Reply = 0x01
	ReplyConnectionNotAllowed    Reply = 0x02
	ReplyNetworkUnreachable      Reply = 0x03
	ReplyHostUnreachable         Reply = 0x04
	ReplyConnectionRefused       Reply = 0x05
	ReplyTTLExpired              Reply = 0x06
	ReplyCommandNotSupported     Reply = 0x07
	ReplyAddressTypeNotSupported Reply = 0x08
)

func (r Reply) String() string {
	switch r {
	case ReplySucceeded:
		return "succeeded"
	case ReplyGeneralFailure:
		return "general SOCKS server failure"
	case ReplyConnectionNotAllowed:
		return "connection not allowed by ruleset"
	case ReplyNetworkUnreachable:
		return "network unreachable"
	case ReplyHostUnreachable:
		return "host unreachable"
	case ReplyConnectionRefused:
		return "connection refused"
	case ReplyTTLExpired:
		return "TTL expired"
	case ReplyCommandNotSupported:
		return "command not supported"
	case ReplyAddressTypeNotSupported:
		return "address type not supported"
	default:
		return fmt.Sprintf("reply(0x%02x)", byte(r))
	}
}
