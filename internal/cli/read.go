package cli

import (
	"fmt"

	"github.com/nexus-edge/modbuscli/internal/domain"
	"github.com/spf13/cobra"
)

func newReadCommand(a *app) *cobra.Command {
	var (
		address uint16
		count   uint16
		signed  bool
	)

	cmd := &cobra.Command{
		Use:   "read [holding|input|coil|discrete]",
		Short: "Read registers or bits from the device",
		Example: `  modbus read --host 192.168.1.10 --address 100 --count 4
  modbus read input --host 192.168.1.10 --address 0 --count 2 --signed
  modbus read coil --host plc.local --unit-id 3 --address 16 --count 8`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			class, err := classArg(args)
			if err != nil {
				return err
			}
			if signed && class.IsBit() {
				return fmt.Errorf("%w: --signed only applies to register reads", domain.ErrInvalidArgument)
			}

			c, err := a.newClient(nil)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			switch class {
			case domain.HoldingRegister:
				values, err := c.ReadHoldingRegisters(ctx, address, count)
				if err != nil {
					return err
				}
				renderRegisters(out, class, address, values, signed)
			case domain.InputRegister:
				values, err := c.ReadInputRegisters(ctx, address, count)
				if err != nil {
					return err
				}
				renderRegisters(out, class, address, values, signed)
			case domain.Coil:
				values, err := c.ReadCoils(ctx, address, count)
				if err != nil {
					return err
				}
				renderBits(out, class, address, values)
			case domain.DiscreteInput:
				values, err := c.ReadDiscreteInputs(ctx, address, count)
				if err != nil {
					return err
				}
				renderBits(out, class, address, values)
			}
			return nil
		},
	}

	cmd.Flags().Uint16Var(&address, "address", 0, "starting address (0-based)")
	cmd.Flags().Uint16Var(&count, "count", 1, "number of registers or bits to read")
	cmd.Flags().BoolVar(&signed, "signed", false, "display register values as signed 16-bit integers")
	cmd.MarkFlagRequired("address")

	return cmd
}
