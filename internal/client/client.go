// Package client provides the Modbus TCP client façade: typed read and
// write operations for the four register classes, input validation,
// write echo verification, and value conversion.
package client

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nexus-edge/modbuscli/internal/domain"
	"github.com/nexus-edge/modbuscli/internal/metrics"
	"github.com/nexus-edge/modbuscli/internal/protocol"
	"github.com/nexus-edge/modbuscli/internal/transport"
	"github.com/rs/zerolog"
)

// Config holds configuration for a Client.
type Config struct {
	// Endpoint identifies the slave device.
	Endpoint domain.Endpoint

	// Timeout is the per-request response deadline. Defaults to 3s.
	Timeout time.Duration

	// DialTimeout bounds connection establishment. Defaults to 5s.
	DialTimeout time.Duration

	// NonBlocking makes concurrent operations on this client fail with
	// ErrBusy instead of waiting for the in-flight request.
	NonBlocking bool

	// Metrics optionally instruments requests, connections, timeouts
	// and discarded frames.
	Metrics *metrics.Registry
}

// Stats tracks client operation counters.
type Stats struct {
	ReadCount    atomic.Uint64
	WriteCount   atomic.Uint64
	ErrorCount   atomic.Uint64
	TimeoutCount atomic.Uint64
}

// Client is a Modbus TCP client for a single endpoint. Operations on
// one client are linearized by the transaction manager's in-flight
// slot; independent clients share no state and run fully in parallel.
type Client struct {
	config Config
	conn   *transport.Conn
	txn    *transport.TransactionManager
	logger zerolog.Logger
	stats  *Stats
	closed atomic.Bool
}

// New creates a client for the endpoint. The connection is established
// lazily on the first operation.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.Endpoint.Port == 0 {
		cfg.Endpoint.Port = domain.DefaultPort
	}
	if err := cfg.Endpoint.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = transport.DefaultTimeout
	}

	logger = logger.With().Str("endpoint", cfg.Endpoint.String()).Logger()
	conn := transport.NewConn(cfg.Endpoint, cfg.DialTimeout, logger, cfg.Metrics)
	txn := transport.NewTransactionManager(conn, cfg.Endpoint.UnitID, transport.Config{
		Timeout:     cfg.Timeout,
		NonBlocking: cfg.NonBlocking,
		Metrics:     cfg.Metrics,
	}, logger)

	return &Client{
		config: cfg,
		conn:   conn,
		txn:    txn,
		logger: logger,
		stats:  &Stats{},
	}, nil
}

// Endpoint returns the endpoint this client addresses.
func (c *Client) Endpoint() domain.Endpoint {
	return c.config.Endpoint
}

// ReadHoldingRegisters reads quantity holding registers starting at
// address (FC 03).
func (c *Client) ReadHoldingRegisters(ctx context.Context, address, quantity uint16) ([]uint16, error) {
	return c.readRegisters(ctx, domain.HoldingRegister, address, quantity)
}

// ReadInputRegisters reads quantity input registers starting at
// address (FC 04).
func (c *Client) ReadInputRegisters(ctx context.Context, address, quantity uint16) ([]uint16, error) {
	return c.readRegisters(ctx, domain.InputRegister, address, quantity)
}

// ReadCoils reads quantity coils starting at address (FC 01).
func (c *Client) ReadCoils(ctx context.Context, address, quantity uint16) ([]bool, error) {
	return c.readBits(ctx, domain.Coil, address, quantity)
}

// ReadDiscreteInputs reads quantity discrete inputs starting at
// address (FC 02).
func (c *Client) ReadDiscreteInputs(ctx context.Context, address, quantity uint16) ([]bool, error) {
	return c.readBits(ctx, domain.DiscreteInput, address, quantity)
}

// WriteSingleRegister writes one holding register (FC 06).
func (c *Client) WriteSingleRegister(ctx context.Context, address, value uint16) error {
	req := &protocol.Request{
		Function: domain.FuncWriteSingleRegister,
		Address:  address,
		Quantity: value,
	}
	return c.executeWrite(ctx, req, address, value)
}

// WriteMultipleRegisters writes consecutive holding registers (FC 16).
func (c *Client) WriteMultipleRegisters(ctx context.Context, address uint16, values []uint16) error {
	if err := validateWriteRange(domain.HoldingRegister, address, len(values)); err != nil {
		return err
	}
	req := &protocol.Request{
		Function: domain.FuncWriteMultipleRegisters,
		Address:  address,
		Quantity: uint16(len(values)),
		Data:     protocol.PackRegisters(values),
	}
	return c.executeWrite(ctx, req, address, uint16(len(values)))
}

// WriteSingleCoil writes one coil (FC 05). The on-wire value is 0xFF00
// for on and 0x0000 for off.
func (c *Client) WriteSingleCoil(ctx context.Context, address uint16, value bool) error {
	wire := protocol.CoilOff
	if value {
		wire = protocol.CoilOn
	}
	req := &protocol.Request{
		Function: domain.FuncWriteSingleCoil,
		Address:  address,
		Quantity: wire,
	}
	return c.executeWrite(ctx, req, address, wire)
}

// WriteMultipleCoils writes consecutive coils (FC 15), bit-packed
// LSB-first with zero padding.
func (c *Client) WriteMultipleCoils(ctx context.Context, address uint16, values []bool) error {
	if err := validateWriteRange(domain.Coil, address, len(values)); err != nil {
		return err
	}
	req := &protocol.Request{
		Function: domain.FuncWriteMultipleCoils,
		Address:  address,
		Quantity: uint16(len(values)),
		Data:     protocol.PackBits(values),
	}
	return c.executeWrite(ctx, req, address, uint16(len(values)))
}

// WriteRegisters writes one or more holding registers, selecting the
// single-value function code (FC 06) for exactly one value and the
// multiple-value code (FC 16) otherwise.
func (c *Client) WriteRegisters(ctx context.Context, address uint16, values []uint16) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: no values to write", domain.ErrInvalidArgument)
	}
	if len(values) == 1 {
		return c.WriteSingleRegister(ctx, address, values[0])
	}
	return c.WriteMultipleRegisters(ctx, address, values)
}

// WriteCoils writes one or more coils, selecting FC 05 for exactly one
// value and FC 15 otherwise.
func (c *Client) WriteCoils(ctx context.Context, address uint16, values []bool) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: no values to write", domain.ErrInvalidArgument)
	}
	if len(values) == 1 {
		return c.WriteSingleCoil(ctx, address, values[0])
	}
	return c.WriteMultipleCoils(ctx, address, values)
}

// HealthCheck probes device reachability by establishing the TCP
// connection if necessary.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.closed.Load() {
		return domain.ErrClientClosed
	}
	return c.conn.Connect(ctx)
}

// Stats returns the operation counters.
func (c *Client) Stats() map[string]uint64 {
	return map[string]uint64{
		"read_count":    c.stats.ReadCount.Load(),
		"write_count":   c.stats.WriteCount.Load(),
		"error_count":   c.stats.ErrorCount.Load(),
		"timeout_count": c.stats.TimeoutCount.Load(),
	}
}

// Close tears down the connection. Subsequent operations fail with
// ErrClientClosed.
func (c *Client) Close() error {
	c.closed.Store(true)
	return c.conn.Close()
}

func (c *Client) readRegisters(ctx context.Context, class domain.RegisterClass, address, quantity uint16) ([]uint16, error) {
	resp, err := c.executeRead(ctx, class, address, quantity)
	if err != nil {
		return nil, err
	}
	data := resp.ReadValues()
	if len(data) != 2*int(quantity) {
		c.stats.ErrorCount.Add(1)
		return nil, fmt.Errorf("%w: expected %d register bytes, got %d", domain.ErrProtocolFraming, 2*quantity, len(data))
	}
	c.stats.ReadCount.Add(1)
	return protocol.UnpackRegisters(data), nil
}

func (c *Client) readBits(ctx context.Context, class domain.RegisterClass, address, quantity uint16) ([]bool, error) {
	resp, err := c.executeRead(ctx, class, address, quantity)
	if err != nil {
		return nil, err
	}
	data := resp.ReadValues()
	if len(data) != (int(quantity)+7)/8 {
		c.stats.ErrorCount.Add(1)
		return nil, fmt.Errorf("%w: expected %d packed coil bytes, got %d", domain.ErrProtocolFraming, (quantity+7)/8, len(data))
	}
	c.stats.ReadCount.Add(1)
	// Truncate to exactly quantity values, discarding pad bits.
	return protocol.UnpackBits(data, int(quantity)), nil
}

// executeRead validates the range, runs the transaction and decodes the
// response, wrapping device exceptions with operation context.
func (c *Client) executeRead(ctx context.Context, class domain.RegisterClass, address, quantity uint16) (*protocol.Response, error) {
	if c.closed.Load() {
		return nil, domain.ErrClientClosed
	}
	if err := validateReadRange(class, address, quantity); err != nil {
		return nil, err
	}

	req := &protocol.Request{
		Function: class.ReadFunction(),
		Address:  address,
		Quantity: quantity,
	}
	c.logger.Debug().
		Str("class", class.String()).
		Uint16("address", address).
		Uint16("quantity", quantity).
		Msg("Reading")

	start := time.Now()
	respPDU, err := c.txn.Execute(ctx, req.Encode())
	if err != nil {
		c.recordError(err)
		c.observe(req.Function, err, start)
		return nil, err
	}
	resp, err := protocol.DecodeResponse(respPDU, req.Function)
	c.observe(req.Function, err, start)
	if err != nil {
		c.recordError(err)
		return nil, c.wrapDeviceError(err, "read", class, address)
	}
	return resp, nil
}

// executeWrite runs a write transaction and verifies the echoed address
// and value/quantity. An echo mismatch indicates a desynchronized
// exchange and is reported as ErrUnexpectedResponse.
func (c *Client) executeWrite(ctx context.Context, req *protocol.Request, wantAddress, wantValue uint16) error {
	if c.closed.Load() {
		return domain.ErrClientClosed
	}

	c.logger.Debug().
		Uint8("function", req.Function).
		Uint16("address", req.Address).
		Uint16("quantity", req.Quantity).
		Msg("Writing")

	start := time.Now()
	respPDU, err := c.txn.Execute(ctx, req.Encode())
	if err != nil {
		c.recordError(err)
		c.observe(req.Function, err, start)
		return err
	}
	resp, err := protocol.DecodeResponse(respPDU, req.Function)
	c.observe(req.Function, err, start)
	if err != nil {
		c.recordError(err)
		if _, ok := domain.IsDeviceError(err); ok {
			return fmt.Errorf("write function 0x%02X at address %d: %w", req.Function, wantAddress, err)
		}
		return err
	}

	if resp.EchoAddress() != wantAddress || resp.EchoValue() != wantValue {
		c.stats.ErrorCount.Add(1)
		return fmt.Errorf("%w: write function 0x%02X echoed address=%d value=%d, sent address=%d value=%d",
			domain.ErrUnexpectedResponse, req.Function, resp.EchoAddress(), resp.EchoValue(), wantAddress, wantValue)
	}
	c.stats.WriteCount.Add(1)
	return nil
}

func (c *Client) recordError(err error) {
	c.stats.ErrorCount.Add(1)
	if errorsIsTimeout(err) {
		c.stats.TimeoutCount.Add(1)
	}
}

// observe records the request outcome in the metrics registry, if any.
func (c *Client) observe(function byte, err error, start time.Time) {
	if c.config.Metrics == nil {
		return
	}
	c.config.Metrics.RecordRequest(functionName(function), err, time.Since(start).Seconds())
}

func functionName(function byte) string {
	switch function {
	case domain.FuncReadCoils:
		return "read_coils"
	case domain.FuncReadDiscreteInputs:
		return "read_discrete_inputs"
	case domain.FuncReadHoldingRegisters:
		return "read_holding_registers"
	case domain.FuncReadInputRegisters:
		return "read_input_registers"
	case domain.FuncWriteSingleCoil:
		return "write_single_coil"
	case domain.FuncWriteSingleRegister:
		return "write_single_register"
	case domain.FuncWriteMultipleCoils:
		return "write_multiple_coils"
	case domain.FuncWriteMultipleRegisters:
		return "write_multiple_registers"
	default:
		return fmt.Sprintf("0x%02X", function)
	}
}

// wrapDeviceError adds operation context to device exceptions only;
// connection, framing and timeout errors pass through unmodified.
func (c *Client) wrapDeviceError(err error, op string, class domain.RegisterClass, address uint16) error {
	if _, ok := domain.IsDeviceError(err); ok {
		return fmt.Errorf("%s %s at address %d: %w", op, class, address, err)
	}
	return err
}
