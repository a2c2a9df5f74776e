package domain

import (
	"fmt"
	"net"
	"strconv"
)

// DefaultPort is the IANA-assigned Modbus TCP port.
const DefaultPort = 502

// Endpoint identifies a logical slave device reached over a TCP connection.
// A single TCP peer may front several unit IDs when acting as a gateway.
// Immutable once the client is constructed.
type Endpoint struct {
	Host   string
	Port   int
	UnitID uint8
}

// Addr returns the host:port dial address for the endpoint.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// String returns a human-readable form including the unit ID.
func (e Endpoint) String() string {
	return fmt.Sprintf("%s (unit %d)", e.Addr(), e.UnitID)
}

// Validate checks the endpoint fields.
func (e Endpoint) Validate() error {
	if e.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidArgument)
	}
	if e.Port <= 0 || e.Port > 65535 {
		return fmt.Errorf("%w: invalid port %d", ErrInvalidArgument, e.Port)
	}
	return nil
}
