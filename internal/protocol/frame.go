// Package protocol implements the Modbus TCP frame codec: MBAP header
// packing, PDU encoding per function code, and response decoding
// including device exception responses.
package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/nexus-edge/modbuscli/internal/domain"
)

// Frame layout constants.
const (
	// MBAPHeaderLength is the fixed MBAP prefix size: transaction ID (2),
	// protocol ID (2), length (2), unit ID (1).
	MBAPHeaderLength = 7

	// MaxPDULength is the largest PDU allowed by the Modbus spec.
	MaxPDULength = 253

	// MaxFrameLength is the largest complete ADU.
	MaxFrameLength = MBAPHeaderLength + MaxPDULength

	// protocolID is always zero for Modbus TCP.
	protocolID = 0

	// exceptionBit is set on the echoed function code of an exception response.
	exceptionBit = 0x80
)

// MBAPHeader is the decoded Modbus Application Protocol header.
type MBAPHeader struct {
	TransactionID uint16
	Length        uint16 // unit ID byte + PDU length
	UnitID        uint8
}

// PDULength returns the number of PDU bytes that follow the header.
func (h MBAPHeader) PDULength() int {
	return int(h.Length) - 1
}

// PackFrame prepends an MBAP header to pdu, producing a complete ADU.
func PackFrame(transactionID uint16, unitID uint8, pdu []byte) ([]byte, error) {
	if len(pdu) == 0 {
		return nil, fmt.Errorf("%w: empty PDU", domain.ErrProtocolFraming)
	}
	if len(pdu) > MaxPDULength {
		return nil, fmt.Errorf("%w: PDU length %d exceeds maximum %d", domain.ErrProtocolFraming, len(pdu), MaxPDULength)
	}

	frame := make([]byte, MBAPHeaderLength+len(pdu))
	binary.BigEndian.PutUint16(frame[0:2], transactionID)
	binary.BigEndian.PutUint16(frame[2:4], protocolID)
	binary.BigEndian.PutUint16(frame[4:6], uint16(len(pdu)+1))
	frame[6] = unitID
	copy(frame[7:], pdu)
	return frame, nil
}

// ParseMBAP decodes and validates a 7-byte MBAP header. The length field
// tells the transport exactly how many PDU bytes to consume next.
func ParseMBAP(header []byte) (MBAPHeader, error) {
	if len(header) < MBAPHeaderLength {
		return MBAPHeader{}, fmt.Errorf("%w: short MBAP header (%d bytes)", domain.ErrProtocolFraming, len(header))
	}
	if pid := binary.BigEndian.Uint16(header[2:4]); pid != protocolID {
		return MBAPHeader{}, fmt.Errorf("%w: unexpected protocol ID 0x%04X", domain.ErrProtocolFraming, pid)
	}
	h := MBAPHeader{
		TransactionID: binary.BigEndian.Uint16(header[0:2]),
		Length:        binary.BigEndian.Uint16(header[4:6]),
		UnitID:        header[6],
	}
	if h.Length == 0 {
		return MBAPHeader{}, fmt.Errorf("%w: zero MBAP length", domain.ErrProtocolFraming)
	}
	if h.PDULength() > MaxPDULength {
		return MBAPHeader{}, fmt.Errorf("%w: MBAP length %d exceeds maximum PDU size", domain.ErrProtocolFraming, h.Length)
	}
	return h, nil
}
