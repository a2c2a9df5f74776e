package domain

import (
	"fmt"
	"strings"
)

// Modbus function codes.
const (
	FuncReadCoils              byte = 0x01
	FuncReadDiscreteInputs     byte = 0x02
	FuncReadHoldingRegisters   byte = 0x03
	FuncReadInputRegisters     byte = 0x04
	FuncWriteSingleCoil        byte = 0x05
	FuncWriteSingleRegister    byte = 0x06
	FuncWriteMultipleCoils     byte = 0x0F
	FuncWriteMultipleRegisters byte = 0x10
)

// RegisterClass identifies one of the four Modbus register classes.
type RegisterClass int

const (
	HoldingRegister RegisterClass = iota
	InputRegister
	Coil
	DiscreteInput
)

// classInfo is the per-class protocol table: applicable function codes,
// bit width, quantity limits and access mode. Keeping the dispatch table
// in one place makes the protocol behavior auditable at a glance.
type classInfo struct {
	name          string
	readFunc      byte
	writeSingle   byte // 0 if read-only
	writeMultiple byte // 0 if read-only
	bitWidth      int
	maxRead       uint16
	maxWrite      uint16
}

var classTable = [...]classInfo{
	HoldingRegister: {"holding", FuncReadHoldingRegisters, FuncWriteSingleRegister, FuncWriteMultipleRegisters, 16, 125, 123},
	InputRegister:   {"input", FuncReadInputRegisters, 0, 0, 16, 125, 0},
	Coil:            {"coil", FuncReadCoils, FuncWriteSingleCoil, FuncWriteMultipleCoils, 1, 2000, 1968},
	DiscreteInput:   {"discrete", FuncReadDiscreteInputs, 0, 0, 1, 2000, 0},
}

func (c RegisterClass) info() classInfo {
	if c < HoldingRegister || c > DiscreteInput {
		return classInfo{name: "unknown"}
	}
	return classTable[c]
}

// String returns the CLI-facing name of the register class.
func (c RegisterClass) String() string { return c.info().name }

// ReadFunction returns the read function code for the class.
func (c RegisterClass) ReadFunction() byte { return c.info().readFunc }

// WriteSingleFunction returns the single-value write function code,
// or 0 for read-only classes.
func (c RegisterClass) WriteSingleFunction() byte { return c.info().writeSingle }

// WriteMultipleFunction returns the multiple-value write function code,
// or 0 for read-only classes.
func (c RegisterClass) WriteMultipleFunction() byte { return c.info().writeMultiple }

// IsBit reports whether values of this class are single bits
// (coils and discrete inputs) rather than 16-bit registers.
func (c RegisterClass) IsBit() bool { return c.info().bitWidth == 1 }

// Writable reports whether the class accepts writes.
func (c RegisterClass) Writable() bool { return c.info().writeSingle != 0 }

// MaxReadQuantity returns the protocol limit on values per read.
func (c RegisterClass) MaxReadQuantity() uint16 { return c.info().maxRead }

// MaxWriteQuantity returns the protocol limit on values per multiple write.
func (c RegisterClass) MaxWriteQuantity() uint16 { return c.info().maxWrite }

// ParseRegisterClass maps a CLI name (holding, input, coil, discrete)
// to its RegisterClass.
func ParseRegisterClass(s string) (RegisterClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "holding":
		return HoldingRegister, nil
	case "input":
		return InputRegister, nil
	case "coil":
		return Coil, nil
	case "discrete":
		return DiscreteInput, nil
	default:
		return 0, fmt.Errorf("%w: unknown register type %q (expected holding, input, coil or discrete)", ErrInvalidArgument, s)
	}
}
