// Package config loads the trainer configuration from defaults, an optional
// YAML file, a .env file and RWKVLM_* environment variables, and resolves it
// into immutable Settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// train.batchSize becomes RWKVLM_TRAIN_BATCHSIZE.
const EnvPrefix = "RWKVLM"

// Config mirrors the on-disk/env configuration. Zero learning rates and a nil
// weight decay mean "derive from the architecture".
type Config struct {
	Data       DataConfig       `mapstructure:"data"`
	Model      ModelConfig      `mapstructure:"model"`
	Train      TrainConfig      `mapstructure:"train"`
	Sample     SampleConfig     `mapstructure:"sample"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Log        LogConfig        `mapstructure:"log"`

	// EnvFile is the .env file that was loaded, if any.
	EnvFile string `mapstructure:"-"`
}

// DataConfig locates the corpus.
type DataConfig struct {
	Path     string `mapstructure:"path"`
	Encoding string `mapstructure:"encoding"`
	Level    string `mapstructure:"level"`
}

// ModelConfig holds the architecture hyperparameters.
type ModelConfig struct {
	Architecture   string `mapstructure:"architecture"`
	ContextSize    int    `mapstructure:"contextSize"`
	Layers         int    `mapstructure:"layers"`
	Heads          int    `mapstructure:"heads"`
	EmbeddingWidth int    `mapstructure:"embeddingWidth"`
	Backend        string `mapstructure:"backend"`
}

// TrainConfig holds the optimizer and loop settings.
type TrainConfig struct {
	Epochs            int      `mapstructure:"epochs"`
	BatchSize         int      `mapstructure:"batchSize"`
	EpochLength       int      `mapstructure:"epochLength"`
	LearningRate      float64  `mapstructure:"learningRate"`
	FinalLearningRate float64  `mapstructure:"finalLearningRate"`
	LRDecay           bool     `mapstructure:"lrDecay"`
	Beta1             float64  `mapstructure:"beta1"`
	Beta2             float64  `mapstructure:"beta2"`
	WeightDecay       *float64 `mapstructure:"weightDecay"`
	WarmupTokens      int64    `mapstructure:"warmupTokens"`
	Workers           int      `mapstructure:"workers"`
	GradClip          float64  `mapstructure:"gradClip"`
	Seed              int64    `mapstructure:"seed"`
}

// SampleConfig controls text generation after training.
type SampleConfig struct {
	Method      string  `mapstructure:"method"`
	Seed        string  `mapstructure:"seed"`
	Runs        int     `mapstructure:"runs"`
	Length      int     `mapstructure:"length"`
	Temperature float64 `mapstructure:"temperature"`
	MinPPow     float64 `mapstructure:"minPPow"`
	MinPRatio   float64 `mapstructure:"minPRatio"`
	ReportEvery int     `mapstructure:"reportEvery"`
	TopK        int     `mapstructure:"topK"`
	TopP        float64 `mapstructure:"topP"`
}

// CheckpointConfig controls where the trained model is written.
type CheckpointConfig struct {
	Dir       string `mapstructure:"dir"`
	Prefix    string `mapstructure:"prefix"`
	Extension string `mapstructure:"extension"`
}

// LogConfig controls the zerolog logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// SetDefaults registers the reference training recipe: a 5 layer, 8 head
// model trained for 50 epochs of 10000 windows.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data.path", "train.txt")
	v.SetDefault("data.encoding", "utf-8")
	v.SetDefault("data.level", "character")

	v.SetDefault("model.architecture", "RWKV")
	v.SetDefault("model.contextSize", 0)
	v.SetDefault("model.layers", 5)
	v.SetDefault("model.heads", 8)
	v.SetDefault("model.embeddingWidth", 0)
	v.SetDefault("model.backend", "reference")

	v.SetDefault("train.epochs", 50)
	v.SetDefault("train.batchSize", 64)
	v.SetDefault("train.epochLength", 10000)
	v.SetDefault("train.learningRate", 0.0)
	v.SetDefault("train.finalLearningRate", 0.0)
	v.SetDefault("train.lrDecay", true)
	v.SetDefault("train.beta1", 0.9)
	v.SetDefault("train.beta2", 0.99)
	v.SetDefault("train.warmupTokens", 0)
	v.SetDefault("train.workers", 0)
	v.SetDefault("train.gradClip", 1.0)
	v.SetDefault("train.seed", 42)

	v.SetDefault("sample.method", "min_p")
	v.SetDefault("sample.seed", "It was")
	v.SetDefault("sample.runs", 5)
	v.SetDefault("sample.length", 300)
	v.SetDefault("sample.temperature", 1.0)
	v.SetDefault("sample.minPPow", 2.0)
	v.SetDefault("sample.minPRatio", 0.02)
	v.SetDefault("sample.reportEvery", 10)
	v.SetDefault("sample.topK", 10)
	v.SetDefault("sample.topP", 0.9)

	v.SetDefault("checkpoint.dir", ".")
	v.SetDefault("checkpoint.prefix", "trained-")
	v.SetDefault("checkpoint.extension", ".ckpt")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}

// Load reads configuration into a Config. An empty configPath searches the
// working directory and $HOME/.config/rwkvlm for config.yaml; a missing file
// is not an error. v may carry flag bindings; nil uses a fresh instance.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	envFile, err := LoadDotEnv()
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "rwkvlm"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// no default, so AutomaticEnv alone would never surface it to Unmarshal
	_ = v.BindEnv("train.weightDecay")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	cfg.EnvFile = envFile
	return &cfg, nil
}

// envSearchDepth bounds how many parent directories are searched for .env.
const envSearchDepth = 5

// LoadDotEnv loads the nearest .env file at or above the working directory
// and returns its path, or "" when there is none. Variables already present in
// the environment keep their values.
func LoadDotEnv() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	path := findUp(wd, ".env", envSearchDepth)
	if path == "" {
		return "", nil
	}
	if err := godotenv.Load(path); err != nil {
		return path, fmt.Errorf("load %s: %w", path, err)
	}
	return path, nil
}

// findUp returns the first regular file called name in dir or one of its
// first depth-1 ancestors.
func findUp(dir, name string, depth int) string {
	for ; depth > 0; depth-- {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}
