package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xack13/RWKV-LM/internal/domain"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.txt")
	text := strings.Repeat("It was the best of times, it was the worst of times.\n", 10)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestVocabCommand(t *testing.T) {
	out, err := execute(t, "vocab", "--data", writeCorpus(t), "--level", "word", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "data has 150 words, 10 unique.")
}

func TestTrainThenSample(t *testing.T) {
	dir := t.TempDir()
	common := []string{"--log-level", "error", "--runs", "1", "--length", "12", "--prompt", "It was"}

	out, err := execute(t, append([]string{"train",
		"--data", writeCorpus(t), "--ctx", "16", "--layers", "1", "--heads", "2", "--emb", "8",
		"--epochs", "1", "--batch-size", "4", "--epoch-length", "8", "--out", dir}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, strings.Repeat("-", 80)+"\nIt was")

	matches, err := filepath.Glob(filepath.Join(dir, "trained-*.ckpt"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	out, err = execute(t, append([]string{"sample", "--dir", dir}, common...)...)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, strings.Repeat("-", 80)))
}

func TestInvalidLevel(t *testing.T) {
	_, err := execute(t, "vocab", "--data", writeCorpus(t), "--level", "sentence")
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "data.level", cfgErr.Field)
}
