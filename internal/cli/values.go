package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nexus-edge/modbuscli/internal/domain"
)

// ParseRegisterValues parses a comma-separated list of register values.
// Unsigned values must fit in 0..65535. With signed set, values in
// -32768..32767 are accepted and encoded as two's complement.
func ParseRegisterValues(s string, signed bool) ([]uint16, error) {
	parts := splitValues(s)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: no values given", domain.ErrInvalidArgument)
	}
	out := make([]uint16, 0, len(parts))
	for _, p := range parts {
		v, err := parseRegisterValue(p, signed)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseRegisterValue(s string, signed bool) (uint16, error) {
	if signed {
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a valid register value", domain.ErrInvalidArgument, s)
		}
		if v < -32768 || v > 32767 {
			return 0, fmt.Errorf("%w: value %d out of range -32768..32767", domain.ErrInvalidArgument, v)
		}
		return uint16(v), nil
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a valid register value", domain.ErrInvalidArgument, s)
	}
	if v > 0xFFFF {
		return 0, fmt.Errorf("%w: value %d out of range 0..65535", domain.ErrInvalidArgument, v)
	}
	return uint16(v), nil
}

// ParseCoilValues parses a comma-separated list of coil states. Each
// element must be one of 0, 1, on, off, true, false.
func ParseCoilValues(s string) ([]bool, error) {
	parts := splitValues(s)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: no values given", domain.ErrInvalidArgument)
	}
	out := make([]bool, 0, len(parts))
	for _, p := range parts {
		switch strings.ToLower(p) {
		case "1", "on", "true":
			out = append(out, true)
		case "0", "off", "false":
			out = append(out, false)
		default:
			return nil, fmt.Errorf("%w: %q is not a valid coil state (use 0/1, on/off)", domain.ErrInvalidArgument, p)
		}
	}
	return out, nil
}

func splitValues(s string) []string {
	var parts []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// FormatRegister renders a register value for display, interpreting it
// as two's complement when signed is set.
func FormatRegister(v uint16, signed bool) string {
	if signed {
		return strconv.FormatInt(int64(int16(v)), 10)
	}
	return strconv.FormatUint(uint64(v), 10)
}
