package domain

import (
	"errors"
	"testing"
)

func TestRegisterClassTable(t *testing.T) {
	tests := []struct {
		class         RegisterClass
		name          string
		readFunc      byte
		writeSingle   byte
		writeMultiple byte
		isBit         bool
		maxRead       uint16
		maxWrite      uint16
	}{
		{HoldingRegister, "holding", 0x03, 0x06, 0x10, false, 125, 123},
		{InputRegister, "input", 0x04, 0, 0, false, 125, 0},
		{Coil, "coil", 0x01, 0x05, 0x0F, true, 2000, 1968},
		{DiscreteInput, "discrete", 0x02, 0, 0, true, 2000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.class.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
			if got := tt.class.ReadFunction(); got != tt.readFunc {
				t.Errorf("ReadFunction() = 0x%02X, want 0x%02X", got, tt.readFunc)
			}
			if got := tt.class.WriteSingleFunction(); got != tt.writeSingle {
				t.Errorf("WriteSingleFunction() = 0x%02X, want 0x%02X", got, tt.writeSingle)
			}
			if got := tt.class.WriteMultipleFunction(); got != tt.writeMultiple {
				t.Errorf("WriteMultipleFunction() = 0x%02X, want 0x%02X", got, tt.writeMultiple)
			}
			if got := tt.class.IsBit(); got != tt.isBit {
				t.Errorf("IsBit() = %v, want %v", got, tt.isBit)
			}
			if got := tt.class.Writable(); got != (tt.writeSingle != 0) {
				t.Errorf("Writable() = %v", got)
			}
			if got := tt.class.MaxReadQuantity(); got != tt.maxRead {
				t.Errorf("MaxReadQuantity() = %d, want %d", got, tt.maxRead)
			}
			if got := tt.class.MaxWriteQuantity(); got != tt.maxWrite {
				t.Errorf("MaxWriteQuantity() = %d, want %d", got, tt.maxWrite)
			}
		})
	}
}

func TestParseRegisterClass(t *testing.T) {
	tests := []struct {
		input string
		want  RegisterClass
	}{
		{"holding", HoldingRegister},
		{"input", InputRegister},
		{"coil", Coil},
		{"discrete", DiscreteInput},
		{"HOLDING", HoldingRegister},
		{" coil ", Coil},
	}
	for _, tt := range tests {
		got, err := ParseRegisterClass(tt.input)
		if err != nil {
			t.Errorf("ParseRegisterClass(%q) error = %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRegisterClass(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}

	if _, err := ParseRegisterClass("analog"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("ParseRegisterClass(\"analog\") error = %v, want ErrInvalidArgument", err)
	}
}

func TestEndpoint(t *testing.T) {
	e := Endpoint{Host: "192.168.1.10", Port: 502, UnitID: 3}
	if got := e.Addr(); got != "192.168.1.10:502" {
		t.Errorf("Addr() = %q", got)
	}
	if got := e.String(); got != "192.168.1.10:502 (unit 3)" {
		t.Errorf("String() = %q", got)
	}
	if err := e.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	if err := (Endpoint{Port: 502}).Validate(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("missing host: error = %v, want ErrInvalidArgument", err)
	}
	if err := (Endpoint{Host: "h", Port: 70000}).Validate(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bad port: error = %v, want ErrInvalidArgument", err)
	}
}
