// Package transport owns the TCP connection to a Modbus device and the
// single-slot transaction discipline layered on top of it.
package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/nexus-edge/modbuscli/internal/domain"
	"github.com/nexus-edge/modbuscli/internal/metrics"
	"github.com/nexus-edge/modbuscli/internal/protocol"
	"github.com/rs/zerolog"
)

// Conn owns the TCP socket for one endpoint. It connects lazily, reads
// complete MBAP-framed responses, and is closed on any detected failure
// so the next operation reconnects rather than reusing a broken socket.
type Conn struct {
	endpoint    domain.Endpoint
	dialTimeout time.Duration
	logger      zerolog.Logger
	metrics     *metrics.Registry // nil disables instrumentation

	mu   sync.Mutex
	sock net.Conn
}

// NewConn creates an unconnected Conn for the endpoint. metricsReg may
// be nil.
func NewConn(endpoint domain.Endpoint, dialTimeout time.Duration, logger zerolog.Logger, metricsReg *metrics.Registry) *Conn {
	if dialTimeout == 0 {
		dialTimeout = 5 * time.Second
	}
	return &Conn{
		endpoint:    endpoint,
		dialTimeout: dialTimeout,
		logger:      logger.With().Str("component", "conn").Str("address", endpoint.Addr()).Logger(),
		metrics:     metricsReg,
	}
}

// Connect dials the endpoint if no socket is open. The dial observes
// both the configured dial timeout and the context, whichever expires
// or is canceled first.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sock != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}

	c.logger.Debug().Msg("Connecting to Modbus device")
	if c.metrics != nil {
		c.metrics.ConnectionsTotal.Inc()
	}
	dialer := net.Dialer{Timeout: c.dialTimeout}
	sock, err := dialer.DialContext(ctx, "tcp", c.endpoint.Addr())
	if err != nil {
		if c.metrics != nil {
			c.metrics.ConnectionErrors.Inc()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %v", domain.ErrTimeout, ctxErr)
		}
		return fmt.Errorf("%w: %v", domain.ErrConnectionFailed, err)
	}
	c.sock = sock
	c.logger.Debug().Msg("Connected to Modbus device")
	return nil
}

// Connected reports whether a socket is currently open.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sock != nil
}

// WriteFrame writes a complete ADU before the deadline.
func (c *Conn) WriteFrame(frame []byte, deadline time.Time) error {
	sock := c.socket()
	if sock == nil {
		return fmt.Errorf("%w: not connected", domain.ErrConnectionFailed)
	}

	if err := sock.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConnectionFailed, err)
	}
	if _, err := sock.Write(frame); err != nil {
		return c.ioError("write", err)
	}
	return nil
}

// ReadFrame reads one complete response frame before the deadline:
// the 7-byte MBAP header first, then exactly header.length-1 PDU bytes.
// Partial reads from the transport are accumulated by io.ReadFull.
func (c *Conn) ReadFrame(deadline time.Time) (protocol.MBAPHeader, []byte, error) {
	sock := c.socket()
	if sock == nil {
		return protocol.MBAPHeader{}, nil, fmt.Errorf("%w: not connected", domain.ErrConnectionFailed)
	}

	if err := sock.SetReadDeadline(deadline); err != nil {
		return protocol.MBAPHeader{}, nil, fmt.Errorf("%w: %v", domain.ErrConnectionFailed, err)
	}

	header := make([]byte, protocol.MBAPHeaderLength)
	if _, err := io.ReadFull(sock, header); err != nil {
		return protocol.MBAPHeader{}, nil, c.ioError("read header", err)
	}

	h, err := protocol.ParseMBAP(header)
	if err != nil {
		return protocol.MBAPHeader{}, nil, err
	}

	pdu := make([]byte, h.PDULength())
	if len(pdu) > 0 {
		if _, err := io.ReadFull(sock, pdu); err != nil {
			return protocol.MBAPHeader{}, nil, c.ioError("read PDU", err)
		}
	}
	return h, pdu, nil
}

// Abort interrupts any blocked read or write by expiring the socket
// deadline. Used to honor context cancellation mid-wait.
func (c *Conn) Abort() {
	if sock := c.socket(); sock != nil {
		_ = sock.SetDeadline(time.Now())
	}
}

// Close tears down the socket. Safe to call repeatedly.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sock == nil {
		return nil
	}
	err := c.sock.Close()
	c.sock = nil
	return err
}

func (c *Conn) socket() net.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sock
}

// ioError maps a socket error to the domain taxonomy: deadline expiry
// is a timeout, everything else is a connection failure.
func (c *Conn) ioError(op string, err error) error {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return fmt.Errorf("%w: %s deadline exceeded", domain.ErrTimeout, op)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrConnectionFailed, op, err)
}
