package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/0xack13/RWKV-LM/internal/app"
	"github.com/0xack13/RWKV-LM/internal/config"
	"github.com/0xack13/RWKV-LM/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "rwkvlm",
		Short: "Train and sample small RWKV-style language models",
		Long: `
Train a language model on a plain text corpus at character or word level,
write a timestamped checkpoint and print sampled continuations.

Settings come from defaults, an optional YAML file, a .env file, RWKVLM_*
environment variables and flags, in increasing order of precedence.
	`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ./config.yaml or ~/.config/rwkvlm/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(newTrainCommand(opts))
	cmd.AddCommand(newSampleCommand(opts))
	cmd.AddCommand(newVocabCommand(opts))
	return cmd
}

// flagKeys maps command line flags onto configuration keys.
type flagKeys map[string]string

// setup binds the flags of cmd that were set onto their configuration keys,
// then loads, resolves and builds the logger and the pipeline.
func (o *rootOptions) setup(cmd *cobra.Command, keys flagKeys) (*config.Settings, zerolog.Logger, *app.Pipeline, error) {
	v := viper.New()
	var bindErr error
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if key, ok := keys[f.Name]; ok && bindErr == nil {
			bindErr = v.BindPFlag(key, f)
		}
	})
	if bindErr != nil {
		return nil, zerolog.Nop(), nil, bindErr
	}
	if o.logLevel != "" {
		v.Set("log.level", o.logLevel)
	}

	cfg, err := config.Load(v, o.configPath)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	s, err := cfg.Resolve()
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}

	log := logging.New(cmd.ErrOrStderr(), s.Log.Level, s.Log.Pretty)
	if cfg.EnvFile != "" {
		log.Debug().Str("path", cfg.EnvFile).Msg("loaded .env")
	}
	return s, log, app.New(s, cmd.OutOrStdout(), log), nil
}

func dataFlags(cmd *cobra.Command, keys flagKeys) {
	cmd.Flags().StringP("data", "d", "", "corpus file")
	cmd.Flags().String("encoding", "", "corpus encoding (utf-8, utf-16, latin-1, ...)")
	cmd.Flags().StringP("level", "l", "", "tokenization level: character or word")
	cmd.Flags().Int("ctx", 0, "context size in tokens")
	keys["data"] = "data.path"
	keys["encoding"] = "data.encoding"
	keys["level"] = "data.level"
	keys["ctx"] = "model.contextSize"
}

func sampleFlags(cmd *cobra.Command, keys flagKeys) {
	cmd.Flags().String("prompt", "", "text every run starts from")
	cmd.Flags().Int("runs", 0, "number of samples")
	cmd.Flags().Int("length", 0, "tokens generated per sample")
	cmd.Flags().Float64("temperature", 0, "sampling temperature")
	cmd.Flags().String("method", "", "sampling method: min_p, top_k, top_p, multinomial, greedy")
	keys["prompt"] = "sample.seed"
	keys["runs"] = "sample.runs"
	keys["length"] = "sample.length"
	keys["temperature"] = "sample.temperature"
	keys["method"] = "sample.method"
}
