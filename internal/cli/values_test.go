package cli

import (
	"errors"
	"testing"

	"github.com/nexus-edge/modbuscli/internal/domain"
)

func TestParseRegisterValues(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		signed bool
		want   []uint16
	}{
		{"single value", "1500", false, []uint16{1500}},
		{"multiple values", "10, 20,30", false, []uint16{10, 20, 30}},
		{"hex values", "0xFF00,0x0001", false, []uint16{0xFF00, 0x0001}},
		{"max unsigned", "65535", false, []uint16{65535}},
		{"signed negative", "-125", true, []uint16{0xFF83}},
		{"signed min", "-32768", true, []uint16{0x8000}},
		{"signed positive", "32767", true, []uint16{0x7FFF}},
		{"trailing comma", "1,2,", false, []uint16{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRegisterValues(tt.input, tt.signed)
			if err != nil {
				t.Fatalf("ParseRegisterValues(%q) error = %v", tt.input, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d values, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("value %d = 0x%04X, want 0x%04X", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseRegisterValuesErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		signed bool
	}{
		{"empty", "", false},
		{"only commas", ",,", false},
		{"not a number", "abc", false},
		{"unsigned overflow", "70000", false},
		{"negative without signed", "-1", false},
		{"signed overflow", "32768", true},
		{"signed underflow", "-32769", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRegisterValues(tt.input, tt.signed); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("ParseRegisterValues(%q) error = %v, want ErrInvalidArgument", tt.input, err)
			}
		})
	}
}

func TestParseCoilValues(t *testing.T) {
	got, err := ParseCoilValues("1,0,on,off,true,FALSE")
	if err != nil {
		t.Fatalf("ParseCoilValues() error = %v", err)
	}
	want := []bool{true, false, true, false, true, false}
	if len(got) != len(want) {
		t.Fatalf("got %d values, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value %d = %v, want %v", i, got[i], want[i])
		}
	}

	for _, bad := range []string{"", "2", "yes,no", "maybe"} {
		if _, err := ParseCoilValues(bad); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("ParseCoilValues(%q) error = %v, want ErrInvalidArgument", bad, err)
		}
	}
}

func TestFormatRegister(t *testing.T) {
	tests := []struct {
		value  uint16
		signed bool
		want   string
	}{
		{1500, false, "1500"},
		{0xFF83, false, "65411"},
		{0xFF83, true, "-125"},
		{0x7FFF, true, "32767"},
		{0x8000, true, "-32768"},
	}
	for _, tt := range tests {
		if got := FormatRegister(tt.value, tt.signed); got != tt.want {
			t.Errorf("FormatRegister(0x%04X, %v) = %q, want %q", tt.value, tt.signed, got, tt.want)
		}
	}
}
