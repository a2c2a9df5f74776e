package cli

import (
	"context"
	"net/http"
	"time"

	"github.com/nexus-edge/modbuscli/internal/client"
	"github.com/nexus-edge/modbuscli/internal/domain"
	"github.com/nexus-edge/modbuscli/internal/health"
	"github.com/nexus-edge/modbuscli/internal/metrics"
	"github.com/nexus-edge/modbuscli/internal/poller"
	"github.com/nexus-edge/modbuscli/internal/publish"
	"github.com/spf13/cobra"
)

func newPollCommand(a *app) *cobra.Command {
	var (
		address    uint16
		count      uint16
		interval   time.Duration
		listen     string
		mqttBroker string
		mqttTopic  string
	)

	cmd := &cobra.Command{
		Use:   "poll [holding|input|coil|discrete]",
		Short: "Continuously poll a register range",
		Long: `Poll a register range at a fixed interval until interrupted.
Readings are logged, and optionally published to MQTT and exposed as
Prometheus metrics over HTTP.`,
		Example: `  modbus poll --host 192.168.1.10 --address 100 --count 4 --interval 2s
  modbus poll input --host plc.local --address 0 --count 8 \
      --mqtt-broker tcp://broker:1883 --mqtt-topic plant/line1
  modbus poll --host 192.168.1.10 --address 0 --listen :9090`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			class, err := classArg(args)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("interval") && a.cfg.Poll.Interval > 0 {
				interval = a.cfg.Poll.Interval
			}
			if listen == "" {
				listen = a.cfg.Poll.Listen
			}

			metricsReg := metrics.NewRegistry()
			c, err := a.newClient(metricsReg)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx := cmd.Context()

			var pub poller.Publisher
			if broker := firstNonEmpty(mqttBroker, a.cfg.MQTT.BrokerURL); broker != "" {
				mc := a.cfg.MQTT
				mc.BrokerURL = broker
				if mqttTopic != "" {
					mc.Topic = mqttTopic
				}
				p, err := publish.NewPublisher(publish.Config{
					BrokerURL:      mc.BrokerURL,
					Topic:          mc.Topic,
					ClientID:       mc.ClientID,
					Username:       mc.Username,
					Password:       mc.Password,
					QoS:            byte(mc.QoS),
					ConnectTimeout: mc.ConnectTimeout,
					PublishTimeout: mc.PublishTimeout,
				}, a.logger, metricsReg)
				if err != nil {
					return err
				}
				if err := p.Connect(ctx); err != nil {
					return err
				}
				defer p.Close()
				pub = p
			}

			if listen != "" {
				go serveObservability(a, listen, c, metricsReg)
			}

			endpoint := c.Endpoint().String()
			read := func(ctx context.Context) ([]*domain.Reading, error) {
				return pollOnce(ctx, c, endpoint, class, address, count)
			}

			p := poller.New(poller.Config{Interval: interval}, read, pub, a.logger, metricsReg)
			a.logger.Info().
				Str("device", endpoint).
				Str("class", class.String()).
				Uint16("address", address).
				Uint16("count", count).
				Dur("interval", interval).
				Msg("polling started, press Ctrl-C to stop")
			return p.Run(ctx)
		},
	}

	cmd.Flags().Uint16Var(&address, "address", 0, "starting address (0-based)")
	cmd.Flags().Uint16Var(&count, "count", 1, "number of registers or bits to poll")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "delay between poll cycles")
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address for /metrics and /healthz (e.g. :9090)")
	cmd.Flags().StringVar(&mqttBroker, "mqtt-broker", "", "MQTT broker URL (e.g. tcp://broker:1883)")
	cmd.Flags().StringVar(&mqttTopic, "mqtt-topic", "", "MQTT topic prefix for published readings")
	cmd.MarkFlagRequired("address")

	return cmd
}

// pollOnce reads the configured range and converts it to readings. A
// failed read returns one reading per point carrying the error quality
// so downstream consumers see the gap.
func pollOnce(ctx context.Context, c *client.Client, endpoint string, class domain.RegisterClass, address, count uint16) ([]*domain.Reading, error) {
	now := time.Now()
	readings := make([]*domain.Reading, 0, count)

	fill := func(at func(i int) (interface{}, domain.Quality)) {
		for i := 0; i < int(count); i++ {
			v, q := at(i)
			readings = append(readings, &domain.Reading{
				Endpoint:  endpoint,
				Class:     class.String(),
				Address:   address + uint16(i),
				Value:     v,
				Quality:   q,
				Timestamp: now,
			})
		}
	}

	if class.IsBit() {
		var values []bool
		var err error
		if class == domain.Coil {
			values, err = c.ReadCoils(ctx, address, count)
		} else {
			values, err = c.ReadDiscreteInputs(ctx, address, count)
		}
		if err != nil {
			q := domain.QualityForError(err)
			fill(func(int) (interface{}, domain.Quality) { return nil, q })
			return readings, err
		}
		fill(func(i int) (interface{}, domain.Quality) { return values[i], domain.QualityGood })
		return readings, nil
	}

	var values []uint16
	var err error
	if class == domain.HoldingRegister {
		values, err = c.ReadHoldingRegisters(ctx, address, count)
	} else {
		values, err = c.ReadInputRegisters(ctx, address, count)
	}
	if err != nil {
		q := domain.QualityForError(err)
		fill(func(int) (interface{}, domain.Quality) { return nil, q })
		return readings, err
	}
	fill(func(i int) (interface{}, domain.Quality) { return values[i], domain.QualityGood })
	return readings, nil
}

// serveObservability exposes /metrics and /healthz while polling runs.
func serveObservability(a *app, listen string, c *client.Client, metricsReg *metrics.Registry) {
	checker := health.NewChecker(health.Config{
		ServiceName:    serviceName,
		ServiceVersion: a.version,
	})
	checker.AddCheck("device", c)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsReg.Handler())
	mux.Handle("/healthz", checker.Handler())

	a.logger.Info().Str("listen", listen).Msg("observability endpoint started")
	if err := http.ListenAndServe(listen, mux); err != nil {
		a.logger.Error().Err(err).Str("listen", listen).Msg("observability listener failed")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
