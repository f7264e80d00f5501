package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/0xack13/RWKV-LM/internal/domain"
)

// ConfigTestSuite runs every case from an empty temporary working directory
// so no stray config.yaml or .env is picked up.
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	var err error
	suite.origDir, err = os.Getwd()
	require.NoError(suite.T(), err)

	suite.tempDir, err = os.MkdirTemp("", "rwkvlm-config-test-*")
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), os.Chdir(suite.tempDir))
}

func (suite *ConfigTestSuite) TearDownTest() {
	if suite.origDir != "" {
		os.Chdir(suite.origDir)
	}
	if suite.tempDir != "" {
		os.RemoveAll(suite.tempDir)
	}
}

func (suite *ConfigTestSuite) resolve(path string) *Settings {
	cfg, err := Load(viper.New(), path)
	require.NoError(suite.T(), err)
	s, err := cfg.Resolve()
	require.NoError(suite.T(), err)
	return s
}

func (suite *ConfigTestSuite) TestDefaults() {
	s := suite.resolve("")
	t := suite.T()

	assert.Equal(t, "train.txt", s.Data.Path)
	assert.Equal(t, domain.LevelCharacter, s.Data.Level)
	assert.Equal(t, domain.ArchRWKV, s.Model.Architecture)
	assert.Equal(t, 256, s.Model.ContextSize)
	assert.Equal(t, 8*64, s.Model.EmbeddingWidth)
	assert.Equal(t, "reference", s.Model.Backend)

	assert.InDelta(t, 6e-4, s.Train.LearningRate, 1e-12)
	assert.InDelta(t, 2e-4, s.Train.FinalLearningRate, 1e-12)
	assert.Zero(t, s.Train.WeightDecay)
	assert.Equal(t, [2]float64{0.9, 0.99}, s.Train.Betas)
	assert.Equal(t, int64(50*10000*256), s.Train.FinalTokens)
	assert.Zero(t, s.Train.WarmupTokens)
	assert.Equal(t, 64, s.Train.BatchSize)
	assert.Equal(t, int64(42), s.Train.Seed)

	assert.Equal(t, "It was", s.Sample.Seed)
	assert.Equal(t, 5, s.Sample.Runs)
	assert.Equal(t, 300, s.Sample.Length)
	assert.Equal(t, "min_p", s.Sample.Method)
	assert.Equal(t, 2.0, s.Sample.MinPPow)
	assert.Equal(t, 0.02, s.Sample.MinPRatio)

	assert.Equal(t, "trained-", s.Checkpoint.Prefix)
	assert.Equal(t, ".ckpt", s.Checkpoint.Extension)
}

func (suite *ConfigTestSuite) TestConfigFile() {
	content := `
data:
  path: corpus.txt
  level: word
model:
  architecture: RotaryMHA
  layers: 20
  heads: 4
train:
  epochs: 2
  epochLength: 100
`
	path := filepath.Join(suite.tempDir, "custom.yaml")
	require.NoError(suite.T(), os.WriteFile(path, []byte(content), 0o644))

	s := suite.resolve(path)
	t := suite.T()
	assert.Equal(t, "corpus.txt", s.Data.Path)
	assert.Equal(t, domain.LevelWord, s.Data.Level)
	assert.Equal(t, domain.ArchRotaryMHA, s.Model.Architecture)
	assert.Equal(t, 128, s.Model.ContextSize)
	assert.Equal(t, 256, s.Model.EmbeddingWidth)
	assert.InDelta(t, 2e-4, s.Train.LearningRate, 1e-12)
	assert.InDelta(t, 1e-4, s.Train.FinalLearningRate, 1e-12)
	assert.Equal(t, 0.01, s.Train.WeightDecay)
	assert.Equal(t, int64(2*100*128), s.Train.FinalTokens)
}

func (suite *ConfigTestSuite) TestConfigFileInWorkingDirectory() {
	require.NoError(suite.T(), os.WriteFile("config.yaml", []byte("train:\n  batchSize: 7\n"), 0o644))
	s := suite.resolve("")
	assert.Equal(suite.T(), 7, s.Train.BatchSize)
}

func (suite *ConfigTestSuite) TestMissingExplicitFile() {
	_, err := Load(viper.New(), filepath.Join(suite.tempDir, "nope.yaml"))
	assert.Error(suite.T(), err)
}

func (suite *ConfigTestSuite) TestEnvironmentOverrides() {
	suite.T().Setenv("RWKVLM_TRAIN_BATCHSIZE", "16")
	suite.T().Setenv("RWKVLM_MODEL_ARCHITECTURE", "MHA-Plus")
	suite.T().Setenv("RWKVLM_TRAIN_WEIGHTDECAY", "0.05")

	s := suite.resolve("")
	assert.Equal(suite.T(), 16, s.Train.BatchSize)
	assert.Equal(suite.T(), domain.ArchAttentionPlus, s.Model.Architecture)
	assert.Equal(suite.T(), 0.05, s.Train.WeightDecay)
	assert.InDelta(suite.T(), 4e-4, s.Train.LearningRate, 1e-12)
}

func (suite *ConfigTestSuite) TestDotEnv() {
	require.NoError(suite.T(), os.WriteFile(".env", []byte("RWKVLM_SAMPLE_RUNS=2\n"), 0o644))
	suite.T().Cleanup(func() { os.Unsetenv("RWKVLM_SAMPLE_RUNS") })

	cfg, err := Load(viper.New(), "")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), ".env", filepath.Base(cfg.EnvFile))

	s, err := cfg.Resolve()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2, s.Sample.Runs)
}

func TestFindUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", ".env"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "a", "b", ".env"), 0o755))

	assert.Equal(t, filepath.Join(root, "a", ".env"), findUp(nested, ".env", 5))
	assert.Empty(t, findUp(nested, ".env", 2), "search stops before reaching a")
}

func (suite *ConfigTestSuite) TestExplicitRatesWin() {
	v := viper.New()
	v.Set("train.learningRate", 1e-3)
	v.Set("train.weightDecay", 0.2)
	cfg, err := Load(v, "")
	require.NoError(suite.T(), err)
	s, err := cfg.Resolve()
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), 1e-3, s.Train.LearningRate)
	assert.InDelta(suite.T(), 2e-4, s.Train.FinalLearningRate, 1e-12)
	assert.Equal(suite.T(), 0.2, s.Train.WeightDecay)
}

func (suite *ConfigTestSuite) TestEmptyCheckpointDirMeansWorkingDirectory() {
	v := viper.New()
	v.Set("checkpoint.dir", "  ")
	cfg, err := Load(v, "")
	require.NoError(suite.T(), err)
	s, err := cfg.Resolve()
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), ".", s.Checkpoint.Dir)
}

func (suite *ConfigTestSuite) TestInvalidValues() {
	cases := map[string]struct {
		key   string
		value any
	}{
		"data.level":           {"data.level", "sentence"},
		"model.architecture":   {"model.architecture", "lstm"},
		"model.embeddingWidth": {"model.embeddingWidth", 100},
		"train.batchSize":      {"train.batchSize", 0},
		"train.beta2":          {"train.beta2", 1.0},
		"train.learningRate":   {"train.learningRate", -1.0},
		"train.weightDecay":    {"train.weightDecay", -0.1},
		"sample.temperature":   {"sample.temperature", 0.0},
		"sample.method":        {"sample.method", "beam"},
	}
	for field, tc := range cases {
		suite.Run(field, func() {
			v := viper.New()
			v.Set(tc.key, tc.value)
			cfg, err := Load(v, "")
			require.NoError(suite.T(), err)

			_, err = cfg.Resolve()
			var cfgErr *domain.ConfigError
			require.ErrorAs(suite.T(), err, &cfgErr)
			assert.Equal(suite.T(), field, cfgErr.Field)
		})
	}
}

func TestLayerScale(t *testing.T) {
	assert.InDelta(t, 1.0, LayerScale(5), 1e-12)
	assert.InDelta(t, 0.5, LayerScale(20), 1e-12)

	initial, final := LearningRates(domain.ArchRWKV, 20)
	assert.InDelta(t, 3e-4, initial, 1e-12)
	assert.InDelta(t, 1e-4, final, 1e-12)
}

func TestDefaultsByArchitecture(t *testing.T) {
	assert.Zero(t, DefaultWeightDecay(domain.ArchRWKV))
	assert.Equal(t, 0.01, DefaultWeightDecay(domain.ArchRotaryMHA))
	assert.Equal(t, 256, DefaultContextSize(domain.LevelCharacter))
	assert.Equal(t, 128, DefaultContextSize(domain.LevelWord))
	assert.Equal(t, int64(50*10000*256), FinalTokens(50, 10000, 256))
}
