package main

import (
	"github.com/spf13/cobra"
)

func newSampleCommand(opts *rootOptions) *cobra.Command {
	keys := flagKeys{}
	cmd := &cobra.Command{
		Use:   "sample [checkpoint]",
		Short: "Sample from a checkpoint (the newest one by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, pipeline, err := opts.setup(cmd, keys)
			if err != nil {
				return err
			}
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			_, err = pipeline.Sample(cmd.Context(), path)
			return err
		},
	}
	sampleFlags(cmd, keys)
	cmd.Flags().Int64("seed", 0, "random seed")
	cmd.Flags().StringP("dir", "o", "", "checkpoint directory searched for the newest checkpoint")
	keys["seed"] = "train.seed"
	keys["dir"] = "checkpoint.dir"
	return cmd
}
