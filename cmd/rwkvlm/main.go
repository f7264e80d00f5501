// Command rwkvlm trains a small language model on a text corpus, writes a
// checkpoint and samples continuations from it.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/0xack13/RWKV-LM/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log := logging.New(os.Stderr, "error", true)
		log.Error().Err(err).Msg("rwkvlm failed")
		stop()
		os.Exit(1)
	}
}
