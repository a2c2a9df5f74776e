// Package cli implements the modbus command-line interface: argument
// parsing, table rendering, and wiring of the client, poller, and
// publisher. All protocol work happens in the client; this layer only
// validates parameters and renders results.
package cli

import (
	"fmt"
	"time"

	"github.com/nexus-edge/modbuscli/internal/client"
	"github.com/nexus-edge/modbuscli/internal/config"
	"github.com/nexus-edge/modbuscli/internal/domain"
	"github.com/nexus-edge/modbuscli/internal/metrics"
	"github.com/nexus-edge/modbuscli/pkg/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const serviceName = "modbuscli"

// app carries state shared by all subcommands: merged configuration
// and the logger. Populated by the root command's PersistentPreRunE.
type app struct {
	version string
	cfg     *config.Config
	logger  zerolog.Logger

	// Persistent flag values; merged over the config file and
	// environment in mergeConfig.
	host        string
	port        int
	unitID      int
	timeout     time.Duration
	dialTimeout time.Duration
	logLevel    string
	verbose     bool
}

// NewRootCommand builds the root command with all subcommands attached.
func NewRootCommand(version string) *cobra.Command {
	a := &app{version: version}

	root := &cobra.Command{
		Use:   "modbus",
		Short: "Read and write registers on a Modbus TCP slave device",
		Long: `modbus communicates with any Modbus TCP device on the network,
such as a PLC, VFD, sensor, or controller.

Register types:
  holding    Holding registers (FC03/FC06/FC16): read/write 16-bit values
  input      Input registers (FC04): read-only 16-bit values
  coil       Coils (FC01/FC05/FC15): read/write ON/OFF bits
  discrete   Discrete inputs (FC02): read-only ON/OFF bits

Addresses are 0-based wire addresses. If your documentation uses
40001-style notation, subtract 40001 (e.g. 40101 -> address 100).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.host, "host", "", "IP address or hostname of the Modbus device")
	pf.IntVar(&a.port, "port", domain.DefaultPort, "TCP port number")
	pf.IntVar(&a.unitID, "unit-id", 1, "slave unit ID / device address (0-255)")
	pf.DurationVar(&a.timeout, "timeout", 3*time.Second, "response timeout")
	pf.DurationVar(&a.dialTimeout, "dial-timeout", 5*time.Second, "connection establishment timeout")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	pf.BoolVar(&a.verbose, "verbose", false, "log transaction details (shorthand for --log-level debug)")

	root.AddCommand(newReadCommand(a))
	root.AddCommand(newWriteCommand(a))
	root.AddCommand(newPollCommand(a))
	root.AddCommand(newVersionCommand(a))

	return root
}

// setup loads configuration and applies flag overrides. Flags that the
// user did not set fall back to the config file / environment values.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	flags := cmd.Flags()
	if flags.Changed("host") || a.cfg.Device.Host == "" {
		a.cfg.Device.Host = a.host
	}
	if flags.Changed("port") {
		a.cfg.Device.Port = a.port
	}
	if flags.Changed("unit-id") {
		a.cfg.Device.UnitID = a.unitID
	}
	if flags.Changed("timeout") {
		a.cfg.Device.Timeout = a.timeout
	}
	if flags.Changed("dial-timeout") {
		a.cfg.Device.DialTimeout = a.dialTimeout
	}

	// Flags bypass the validation done in config.Load, so the merged
	// result must be checked again. A unit ID above 255 would otherwise
	// be truncated by the uint8 conversion and address a different
	// device.
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}

	level := a.cfg.Logging.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	if a.verbose {
		level = "debug"
	}
	a.logger = logging.New(serviceName, a.version, logging.Config{
		Level:  level,
		Format: a.cfg.Logging.Format,
		Output: a.cfg.Logging.Output,
	})
	return nil
}

// newClient constructs a client for the merged device settings.
// metricsReg may be nil for one-shot commands.
func (a *app) newClient(metricsReg *metrics.Registry) (*client.Client, error) {
	if a.cfg.Device.Host == "" {
		return nil, fmt.Errorf("%w: --host is required", domain.ErrInvalidArgument)
	}
	return client.New(client.Config{
		Endpoint: domain.Endpoint{
			Host:   a.cfg.Device.Host,
			Port:   a.cfg.Device.Port,
			UnitID: uint8(a.cfg.Device.UnitID),
		},
		Timeout:     a.cfg.Device.Timeout,
		DialTimeout: a.cfg.Device.DialTimeout,
		Metrics:     metricsReg,
	}, a.logger)
}

// classArg resolves the optional register-type positional argument,
// defaulting to holding registers.
func classArg(args []string) (domain.RegisterClass, error) {
	if len(args) == 0 {
		return domain.HoldingRegister, nil
	}
	return domain.ParseRegisterClass(args[0])
}
