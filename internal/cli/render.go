package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/nexus-edge/modbuscli/internal/domain"
)

// renderRegisters prints a table of register values. Addresses count up
// from start. Hex is always shown because device documentation often
// lists register values in hex.
func renderRegisters(w io.Writer, class domain.RegisterClass, start uint16, values []uint16, signed bool) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ADDRESS\tTYPE\tVALUE\tHEX\n")
	for i, v := range values {
		fmt.Fprintf(tw, "%d\t%s\t%s\t0x%04X\n", int(start)+i, class, FormatRegister(v, signed), v)
	}
	tw.Flush()
}

// renderBits prints a table of coil or discrete input states.
func renderBits(w io.Writer, class domain.RegisterClass, start uint16, values []bool) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ADDRESS\tTYPE\tSTATE\n")
	for i, v := range values {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", int(start)+i, class, bitState(v))
	}
	tw.Flush()
}

func bitState(v bool) string {
	if v {
		return "ON (1)"
	}
	return "OFF (0)"
}

// renderWriteOK confirms a completed write.
func renderWriteOK(w io.Writer, class domain.RegisterClass, start uint16, count int) {
	noun := "register"
	if class.IsBit() {
		noun = "coil"
	}
	if count == 1 {
		fmt.Fprintf(w, "OK: wrote 1 %s at address %d\n", noun, start)
		return
	}
	fmt.Fprintf(w, "OK: wrote %d %ss at addresses %d-%d\n", count, noun, start, int(start)+count-1)
}
