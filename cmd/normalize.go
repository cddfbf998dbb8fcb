package main

import (
	"github.com/spf13/cobra"

	"github.com/okian/ltvrank/internal/adapters/batchio"
)

func newNormalizeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize",
		Short: "Write the normalized records of an event batch instead of a ranking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := c.newService().Normalize(cmd.Context(),
				batchio.NewFileSource(c.cfg.Input),
				batchio.NewFileSink(c.cfg.Output),
			)
			return err
		},
	}
}
