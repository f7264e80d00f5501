package main

import (
	"github.com/spf13/cobra"
)

func newTrainCommand(opts *rootOptions) *cobra.Command {
	keys := flagKeys{}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train on a corpus, write a checkpoint and sample from it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, log, pipeline, err := opts.setup(cmd, keys)
			if err != nil {
				return err
			}
			res, err := pipeline.Train(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().Str("checkpoint", res.CheckpointPath).Int("samples", len(res.Completions)).Msg("done")
			return nil
		},
	}

	dataFlags(cmd, keys)
	sampleFlags(cmd, keys)

	cmd.Flags().String("arch", "", "model architecture: RWKV, RotaryMHA or MHA-Plus")
	cmd.Flags().String("backend", "", "model backend")
	cmd.Flags().Int("layers", 0, "number of layers")
	cmd.Flags().Int("heads", 0, "number of heads")
	cmd.Flags().Int("emb", 0, "embedding width (default heads*64)")
	cmd.Flags().IntP("epochs", "e", 0, "number of epochs")
	cmd.Flags().IntP("batch-size", "b", 0, "batch size")
	cmd.Flags().Int("epoch-length", 0, "windows drawn per epoch")
	cmd.Flags().Float64("lr", 0, "initial learning rate (default derived from the architecture)")
	cmd.Flags().Float64("lr-final", 0, "final learning rate")
	cmd.Flags().Int("workers", 0, "batch prefetch goroutines (0 draws synchronously)")
	cmd.Flags().Int64("seed", 0, "random seed")
	cmd.Flags().StringP("out", "o", "", "checkpoint directory")

	keys["arch"] = "model.architecture"
	keys["backend"] = "model.backend"
	keys["layers"] = "model.layers"
	keys["heads"] = "model.heads"
	keys["emb"] = "model.embeddingWidth"
	keys["epochs"] = "train.epochs"
	keys["batch-size"] = "train.batchSize"
	keys["epoch-length"] = "train.epochLength"
	keys["lr"] = "train.learningRate"
	keys["lr-final"] = "train.finalLearningRate"
	keys["workers"] = "train.workers"
	keys["seed"] = "train.seed"
	keys["out"] = "checkpoint.dir"
	return cmd
}
