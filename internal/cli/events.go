package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"budget/internal/events"
	"budget/internal/log"
)

func newEventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Work with the ledger event stream",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "tail",
		Short: "Consume ledger events and log each one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return err
			}
			if cfg.AMQPURL == "" {
				return fmt.Errorf("AMQP_URL is not set")
			}
			logger := SetupLogger(cfg).WithComponent(log.ComponentEvents)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := events.DialAMQP(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
			if err != nil {
				return err
			}
			defer client.Close()

			err = client.Consume(ctx, events.LogHandler(logger))
			if errors.Is(err, context.Canceled) {
				logger.Info("Event consumer stopped", log.FieldOperation, log.OpShutdown)
				return nil
			}
			return err
		},
	})
	return cmd
}
