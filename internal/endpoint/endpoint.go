// Package endpoint implements the address codec shared by SOCKS5,
// Shadowsocks and Trojan: a tagged {type, host, port} value
// and its ATYP-style wire serialization.
package endpoint

import (
	"fmt"
	"net"
	"strconv"

	"github.com/pichi-router/pichi-go/internal/adaerr"
	"github.com/pichi-router/pichi-go/internal/buffer"
)

// Type is the endpoint's address family tag.
type Type uint8

const (
	DomainName Type = iota
	IPv4
	IPv6
)

func (t Type) String() string {
	switch t {
	case DomainName:
		return "domain"
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	default:
		return "unknown"
	}
}

// ATYP tag values from the SOCKS5/Shadowsocks wire format.
const (
	atypIPv4   = 0x01
	atypDomain = 0x03
	atypIPv6   = 0x04
)

const (
	maxDomainLen = 255
	maxPort      = 65535
)

// Endpoint is a (type, host, port) triple identifying a destination before
// resolution. Port is kept as a decimal string because it is
// frequently relayed textually and parsed to uint16 only at the edges.
type Endpoint struct {
	Type Type
	Host string
	Port string
}

// New builds an Endpoint, auto-detecting Type from host's literal form.
func New(host, port string) Endpoint {
	return Endpoint{Type: DetectType(host), Host: host, Port: port}
}

// NewWithPort builds an Endpoint from a numeric port.
func NewWithPort(host string, port uint16) Endpoint {
	return New(host, strconv.Itoa(int(port)))
}

// DetectType classifies host as IPv4, IPv6, or (if it doesn't parse as an
// IP literal) DomainName.
func DetectType(host string) Type {
	ip := net.ParseIP(host)
	if ip == nil {
		return DomainName
	}
	if ip4 := ip.To4(); ip4 != nil {
		return IPv4
	}
	return IPv6
}

// PortNum parses Port as a uint16, per the invariant port in [1,65535].
func (e Endpoint) PortNum() (uint16, error) {
	n, err := strconv.Atoi(e.Port)
	if err != nil {
		return 0, adaerr.Wrap(adaerr.Misc, "port is not numeric", err)
	}
	if n <= 0 || n > maxPort {
		return 0, adaerr.New(adaerr.Misc, "port out of range")
	}
	return uint16(n), nil
}

// String renders host:port for logging and net.Dial.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, e.Port)
}

// Validate checks the endpoint invariants: host and port non-empty,
// port in [1,65535], and (when Type != DomainName) host parses as an IP
// literal of the matching family.
func (e Endpoint) Validate() error {
	if e.Host == "" {
		return adaerr.New(adaerr.Misc, "empty host")
	}
	if e.Port == "" {
		return adaerr.New(adaerr.Misc, "empty port")
	}
	if _, err := e.PortNum(); err != nil {
		return err
	}
	switch e.Type {
	case IPv4:
		ip := net.ParseIP(e.Host)
		if ip == nil || ip.To4() == nil {
			return adaerr.New(adaerr.Misc, "host is not an IPv4 literal")
		}
	case IPv6:
		ip := net.ParseIP(e.Host)
		if ip == nil || ip.To4() != nil {
			return adaerr.New(adaerr.Misc, "host is not an IPv6 literal")
		}
	case DomainName:
		if len(e.Host) > maxDomainLen {
			return adaerr.New(adaerr.Misc, "domain name too long")
		}
	default:
		return adaerr.New(adaerr.Misc, "unknown endpoint type")
	}
	return nil
}

// Serialize writes e's wire representation into dst and returns the number
// of bytes written. It fails with adaerr.Misc on any invariant
// violation.
func Serialize(e Endpoint, dst []byte) (int, error) {
	if e.Host == "" {
		return 0, adaerr.New(adaerr.Misc, "empty host")
	}
	if e.Port == "" {
		return 0, adaerr.New(adaerr.Misc, "empty port")
	}
	port, err := e.PortNum()
	if err != nil {
		return 0, err
	}

	switch e.Type {
	case IPv4:
		ip4 := net.ParseIP(e.Host).To4()
		if ip4 == nil {
			return 0, adaerr.New(adaerr.Misc, "host/type family mismatch")
		}
		if len(dst) < 7 {
			return 0, adaerr.New(adaerr.Misc, "buffer too small")
		}
		dst[0] = atypIPv4
		copy(dst[1:5], ip4)
		buffer.PutUint16(dst[5:7], port)
		return 7, nil

	case IPv6:
		parsed := net.ParseIP(e.Host)
		if parsed == nil || parsed.To4() != nil {
			return 0, adaerr.New(adaerr.Misc, "host/type family mismatch")
		}
		ip16 := parsed.To16()
		if len(dst) < 19 {
			return 0, adaerr.New(adaerr.Misc, "buffer too small")
		}
		dst[0] = atypIPv6
		copy(dst[1:17], ip16)
		buffer.PutUint16(dst[17:19], port)
		return 19, nil

	case DomainName:
		if len(e.Host) == 0 || len(e.Host) > maxDomainLen {
			return 0, adaerr.New(adaerr.Misc, "domain name length out of range")
		}
		need := 4 + len(e.Host)
		if len(dst) < need {
			return 0, adaerr.New(adaerr.Misc, "buffer too small")
		}
		dst[0] = atypDomain
		dst[1] = byte(len(e.Host))
		n := copy(dst[2:], e.Host)
		buffer.PutUint16(dst[2+n:4+n], port)
		return need, nil

	default:
		return 0, adaerr.New(adaerr.Misc, "unknown endpoint type")
	}
}

// Reader is the single-call-per-chunk callback Parse uses to pull bytes
// from the wire: it reads exactly len(p) bytes into p or returns an error.
type Reader func(p []byte) error

// Parse reads one endpoint from read: a single tag byte, then the
// remainder in one further call for IPv4/IPv6, or in two for a domain
// (the length byte, then the name and port together). Fails with adaerr.BadProto on an unknown
// tag or a zero-length domain.
func Parse(read Reader) (Endpoint, error) {
	var tag [1]byte
	if err := read(tag[:]); err != nil {
		return Endpoint{}, err
	}

	switch tag[0] {
	case atypIPv4:
		var buf [6]byte
		if err := read(buf[:]); err != nil {
			return Endpoint{}, err
		}
		host := net.IP(buf[0:4]).String()
		port := buffer.Uint16(buf[4:6])
		return Endpoint{Type: IPv4, Host: host, Port: strconv.Itoa(int(port))}, nil

	case atypIPv6:
		var buf [18]byte
		if err := read(buf[:]); err != nil {
			return Endpoint{}, err
		}
		host := net.IP(buf[0:16]).String()
		port := buffer.Uint16(buf[16:18])
		return Endpoint{Type: IPv6, Host: host, Port: strconv.Itoa(int(port))}, nil

	case atypDomain:
		var lenBuf [1]byte
		if err := read(lenBuf[:]); err != nil {
			return Endpoint{}, err
		}
		l := int(lenBuf[0])
		if l == 0 {
			return Endpoint{}, adaerr.New(adaerr.BadProto, "zero-length domain")
		}
		buf := make([]byte, l+2)
		if err := read(buf); err != nil {
			return Endpoint{}, err
		}
		host := string(buf[:l])
		port := buffer.Uint16(buf[l : l+2])
		return Endpoint{Type: DomainName, Host: host, Port: strconv.Itoa(int(port))}, nil

	default:
		return Endpoint{}, adaerr.New(adaerr.BadProto, fmt.Sprintf("unknown ATYP 0x%02x", tag[0]))
	}
}
