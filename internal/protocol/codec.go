package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/nexus-edge/modbuscli/internal/domain"
)

// Request is a protocol data unit in its typed form. It is constructed
// by the client after range validation and never mutated afterwards.
type Request struct {
	// Function is the Modbus function code.
	Function byte

	// Address is the 0-based starting address.
	Address uint16

	// Quantity holds the count for reads and multiple writes, or the
	// raw wire value for single writes (0xFF00/0x0000 for coils).
	Quantity uint16

	// Data carries the packed values for multiple writes, nil otherwise.
	Data []byte
}

// Encode serializes the request PDU: function code followed by
// big-endian address and quantity/value, plus byte count and packed
// data for the multiple-write function codes.
func (r *Request) Encode() []byte {
	switch r.Function {
	case domain.FuncWriteMultipleCoils, domain.FuncWriteMultipleRegisters:
		pdu := make([]byte, 6+len(r.Data))
		pdu[0] = r.Function
		binary.BigEndian.PutUint16(pdu[1:3], r.Address)
		binary.BigEndian.PutUint16(pdu[3:5], r.Quantity)
		pdu[5] = byte(len(r.Data))
		copy(pdu[6:], r.Data)
		return pdu
	default:
		pdu := make([]byte, 5)
		pdu[0] = r.Function
		binary.BigEndian.PutUint16(pdu[1:3], r.Address)
		binary.BigEndian.PutUint16(pdu[3:5], r.Quantity)
		return pdu
	}
}

// Response is a decoded response PDU. Payload excludes the function code.
type Response struct {
	Function byte
	Payload  []byte
}

// DecodeResponse validates a response PDU against the request function
// code. A function code with the exception bit set carries exactly one
// payload byte, the exception code, and yields a domain.DeviceError.
// Any function code that is neither the request echo nor its exception
// form is a framing violation.
func DecodeResponse(pdu []byte, requestFunction byte) (*Response, error) {
	if len(pdu) == 0 {
		return nil, fmt.Errorf("%w: empty response PDU", domain.ErrProtocolFraming)
	}

	fc := pdu[0]
	if fc == requestFunction|exceptionBit {
		if len(pdu) != 2 {
			return nil, fmt.Errorf("%w: exception response with %d payload bytes", domain.ErrProtocolFraming, len(pdu)-1)
		}
		return nil, domain.ExceptionError(pdu[1])
	}
	if fc != requestFunction {
		return nil, fmt.Errorf("%w: function code 0x%02X in response to 0x%02X", domain.ErrProtocolFraming, fc, requestFunction)
	}

	payload := pdu[1:]
	switch fc {
	case domain.FuncReadCoils, domain.FuncReadDiscreteInputs,
		domain.FuncReadHoldingRegisters, domain.FuncReadInputRegisters:
		// Read responses carry a byte count followed by packed values.
		if len(payload) < 1 {
			return nil, fmt.Errorf("%w: read response missing byte count", domain.ErrProtocolFraming)
		}
		if int(payload[0]) != len(payload)-1 {
			return nil, fmt.Errorf("%w: byte count %d does not match %d payload bytes", domain.ErrProtocolFraming, payload[0], len(payload)-1)
		}
	case domain.FuncWriteSingleCoil, domain.FuncWriteSingleRegister,
		domain.FuncWriteMultipleCoils, domain.FuncWriteMultipleRegisters:
		// Write responses echo address and value/quantity.
		if len(payload) != 4 {
			return nil, fmt.Errorf("%w: write response with %d payload bytes", domain.ErrProtocolFraming, len(payload))
		}
	default:
		return nil, fmt.Errorf("%w: unsupported function code 0x%02X", domain.ErrProtocolFraming, fc)
	}

	return &Response{Function: fc, Payload: payload}, nil
}

// ReadValues extracts the packed values from a read response payload
// (the bytes after the byte count).
func (r *Response) ReadValues() []byte {
	return r.Payload[1:]
}

// EchoAddress returns the echoed address of a write response.
func (r *Response) EchoAddress() uint16 {
	return binary.BigEndian.Uint16(r.Payload[0:2])
}

// EchoValue returns the echoed value (single writes) or quantity
// (multiple writes) of a write response.
func (r *Response) EchoValue() uint16 {
	return binary.BigEndian.Uint16(r.Payload[2:4])
}

// CoilOn and CoilOff are the wire encodings of a single-coil write value.
const (
	CoilOn  uint16 = 0xFF00
	CoilOff uint16 = 0x0000
)

// PackRegisters serializes 16-bit register values big-endian.
func PackRegisters(values []uint16) []byte {
	data := make([]byte, 2*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint16(data[2*i:], v)
	}
	return data
}

// UnpackRegisters deserializes big-endian 16-bit register values.
func UnpackRegisters(data []byte) []uint16 {
	values := make([]uint16, len(data)/2)
	for i := range values {
		values[i] = binary.BigEndian.Uint16(data[2*i:])
	}
	return values
}

// PackBits packs coil values into bytes, LSB-first within each byte,
// padding the final byte with zero bits.
func PackBits(values []bool) []byte {
	data := make([]byte, (len(values)+7)/8)
	for i, v := range values {
		if v {
			data[i/8] |= 1 << (i % 8)
		}
	}
	return data
}

// UnpackBits extracts count coil values from bit-packed data, masking
// any trailing pad bits in the final byte.
func UnpackBits(data []byte, count int) []bool {
	values := make([]bool, count)
	for i := range values {
		values[i] = data[i/8]&(1<<(i%8)) != 0
	}
	return values
}
