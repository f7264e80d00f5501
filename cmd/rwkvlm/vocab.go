package main

import (
	"github.com/spf13/cobra"
)

func newVocabCommand(opts *rootOptions) *cobra.Command {
	keys := flagKeys{}
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "List the vocabulary a corpus produces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, log, pipeline, err := opts.setup(cmd, keys)
			if err != nil {
				return err
			}
			enc, err := pipeline.Tokenize()
			if err != nil {
				return err
			}
			log.Debug().Int("tokens", len(enc.Data)).Int("vocab", enc.Vocab.Size()).Msg("tokenized")
			return nil
		},
	}
	dataFlags(cmd, keys)
	return cmd
}
