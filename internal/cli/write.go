package cli

import (
	"fmt"

	"github.com/nexus-edge/modbuscli/internal/domain"
	"github.com/spf13/cobra"
)

func newWriteCommand(a *app) *cobra.Command {
	var (
		address uint16
		values  string
		signed  bool
	)

	cmd := &cobra.Command{
		Use:   "write [holding|coil]",
		Short: "Write registers or coils on the device",
		Long: `Write one or more values starting at the given address. A single
value uses the single-write function code (FC06 for registers, FC05
for coils); multiple values use the multi-write code (FC16 / FC15).`,
		Example: `  modbus write --host 192.168.1.10 --address 100 --values 1500
  modbus write --host 192.168.1.10 --address 200 --values 10,20,30
  modbus write coil --host plc.local --address 16 --values on,off,on
  modbus write --host 192.168.1.10 --address 50 --values -125 --signed`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			class, err := classArg(args)
			if err != nil {
				return err
			}
			if !class.Writable() {
				return fmt.Errorf("%w: %s registers are read-only", domain.ErrInvalidArgument, class)
			}

			c, err := a.newClient(nil)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if class.IsBit() {
				states, err := ParseCoilValues(values)
				if err != nil {
					return err
				}
				if err := c.WriteCoils(ctx, address, states); err != nil {
					return err
				}
				renderWriteOK(out, class, address, len(states))
				return nil
			}

			regs, err := ParseRegisterValues(values, signed)
			if err != nil {
				return err
			}
			if err := c.WriteRegisters(ctx, address, regs); err != nil {
				return err
			}
			renderWriteOK(out, class, address, len(regs))
			return nil
		},
	}

	cmd.Flags().Uint16Var(&address, "address", 0, "starting address (0-based)")
	cmd.Flags().StringVar(&values, "values", "", "comma-separated values to write")
	cmd.Flags().BoolVar(&signed, "signed", false, "accept signed 16-bit register values")
	cmd.MarkFlagRequired("address")
	cmd.MarkFlagRequired("values")

	return cmd
}
