package protocol

import (
	"bytes"
	"errors"
	"testing"

	"github.com/nexus-edge/modbuscli/internal/domain"
)

func TestPackFrame(t *testing.T) {
	tests := []struct {
		name          string
		transactionID uint16
		unitID        uint8
		pdu           []byte
		want          []byte
	}{
		{
			name:          "read holding request",
			transactionID: 0x0001,
			unitID:        0x11,
			pdu:           []byte{0x03, 0x00, 0x6B, 0x00, 0x03},
			want:          []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x11, 0x03, 0x00, 0x6B, 0x00, 0x03},
		},
		{
			name:          "max transaction id",
			transactionID: 0xFFFF,
			unitID:        0,
			pdu:           []byte{0x01, 0x00, 0x00, 0x00, 0x01},
			want:          []byte{0xFF, 0xFF, 0x00, 0x00, 0x00, 0x06, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := PackFrame(tt.transactionID, tt.unitID, tt.pdu)
			if err != nil {
				t.Fatalf("PackFrame() error = %v", err)
			}
			if !bytes.Equal(frame, tt.want) {
				t.Errorf("PackFrame() = % X, want % X", frame, tt.want)
			}
		})
	}
}

func TestPackFrameRejectsBadPDU(t *testing.T) {
	if _, err := PackFrame(1, 1, nil); !errors.Is(err, domain.ErrProtocolFraming) {
		t.Errorf("empty PDU: error = %v, want ErrProtocolFraming", err)
	}
	if _, err := PackFrame(1, 1, make([]byte, MaxPDULength+1)); !errors.Is(err, domain.ErrProtocolFraming) {
		t.Errorf("oversized PDU: error = %v, want ErrProtocolFraming", err)
	}
}

func TestParseMBAP(t *testing.T) {
	header := []byte{0x12, 0x34, 0x00, 0x00, 0x00, 0x06, 0x05}
	h, err := ParseMBAP(header)
	if err != nil {
		t.Fatalf("ParseMBAP() error = %v", err)
	}
	if h.TransactionID != 0x1234 {
		t.Errorf("TransactionID = 0x%04X, want 0x1234", h.TransactionID)
	}
	if h.UnitID != 5 {
		t.Errorf("UnitID = %d, want 5", h.UnitID)
	}
	if h.PDULength() != 5 {
		t.Errorf("PDULength() = %d, want 5", h.PDULength())
	}
}

func TestParseMBAPErrors(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
	}{
		{"short header", []byte{0x00, 0x01, 0x00}},
		{"nonzero protocol id", []byte{0x00, 0x01, 0x00, 0x01, 0x00, 0x06, 0x01}},
		{"zero length", []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x01}},
		{"oversized length", []byte{0x00, 0x01, 0x00, 0x00, 0x01, 0x00, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMBAP(tt.header); !errors.Is(err, domain.ErrProtocolFraming) {
				t.Errorf("ParseMBAP(% X) error = %v, want ErrProtocolFraming", tt.header, err)
			}
		})
	}
}

func TestFrameRoundTrip(t *testing.T) {
	pdu := []byte{0x10, 0x00, 0x01, 0x00, 0x02, 0x04, 0x00, 0x0A, 0x01, 0x02}
	frame, err := PackFrame(0xBEEF, 0xF7, pdu)
	if err != nil {
		t.Fatalf("PackFrame() error = %v", err)
	}

	h, err := ParseMBAP(frame[:MBAPHeaderLength])
	if err != nil {
		t.Fatalf("ParseMBAP() error = %v", err)
	}
	if h.TransactionID != 0xBEEF || h.UnitID != 0xF7 {
		t.Errorf("header = %+v", h)
	}
	if h.PDULength() != len(pdu) {
		t.Errorf("PDULength() = %d, want %d", h.PDULength(), len(pdu))
	}
	if !bytes.Equal(frame[MBAPHeaderLength:], pdu) {
		t.Errorf("PDU bytes = % X, want % X", frame[MBAPHeaderLength:], pdu)
	}
}
