package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/ltvrank/internal/adapters/batchio"
	"github.com/okian/ltvrank/internal/eventgen"
	"github.com/okian/ltvrank/pkg/logger"
)

func newGenerateCmd(c *cli) *cobra.Command {
	gen := eventgen.DefaultConfig()
	start := gen.Start.Format(time.RFC3339)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic event batch",
		Long: "Write a reproducible synthetic batch of CUSTOMER, SITE_VISIT and ORDER events\n" +
			"(with occasional ORDER updates and unknown IMAGE events) to --output.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := time.Parse(time.RFC3339, start)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			gen.Start = t

			events, err := eventgen.Generate(ctx, gen)
			if err != nil {
				return err
			}
			// Batches are always JSON: they are the ranker's input format.
			data, err := batchio.Encode(events, batchio.FormatJSON)
			if err != nil {
				return err
			}
			sink := batchio.NewFileSink(c.cfg.Output)
			if err := sink.Write(ctx, data); err != nil {
				return err
			}
			logger.Get().Info(ctx, "generated event batch",
				logger.String("output", sink.Name()),
				logger.Int("customers", gen.Customers),
				logger.Int("events", len(events)),
			)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&gen.Customers, "customers", gen.Customers, "number of customers")
	f.IntVar(&gen.Weeks, "weeks", gen.Weeks, "weeks the events span")
	f.IntVar(&gen.MaxOrders, "max-orders", gen.MaxOrders, "maximum orders per customer")
	f.IntVar(&gen.MaxVisits, "max-visits", gen.MaxVisits, "maximum site visits per customer")
	f.Float64Var(&gen.UpdateRatio, "update-ratio", gen.UpdateRatio, "share of orders that receive an UPDATE")
	f.Float64Var(&gen.ImageRatio, "image-ratio", gen.ImageRatio, "share of customers with an IMAGE event")
	f.Int64Var(&gen.Seed, "seed", gen.Seed, "random seed")
	f.StringVar(&start, "start", start, "earliest event time (RFC 3339)")
	return cmd
}
