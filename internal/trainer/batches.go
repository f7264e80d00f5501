package trainer

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"github.com/0xack13/RWKV-LM/internal/domain"
)

type batch struct {
	inputs  [][]int
	targets [][]int
}

// positions counts the target tokens that contribute to the loss.
func (b batch) positions() int64 {
	var n int64
	for _, y := range b.targets {
		n += int64(len(y))
	}
	return n
}

// batcher is implemented by sources that can draw a whole batch at once.
type batcher interface {
	Batch(n int) (inputs, targets [][]int)
}

func drawBatch(src domain.WindowSource, size int) batch {
	if bs, ok := src.(batcher); ok {
		inputs, targets := bs.Batch(size)
		return batch{inputs: inputs, targets: targets}
	}
	b := batch{inputs: make([][]int, size), targets: make([][]int, size)}
	for i := range size {
		w := src.Next()
		b.inputs[i] = w.Input
		b.targets[i] = w.Target
	}
	return b
}

// batchSize returns the size of batch step of an epoch.
func (c Config) batchSize(step int) int {
	if rest := c.EpochLength - step*c.BatchSize; rest < c.BatchSize {
		return rest
	}
	return c.BatchSize
}

// batches yields the epoch's batches. With Workers == 0 every batch is drawn
// on demand, so a seeded source gives a reproducible run; otherwise a pool
// of Workers goroutines keeps up to Workers batches ready. Cancel ctx to
// release the producers early.
func (t *Trainer) batches(ctx context.Context, src domain.WindowSource, steps int) <-chan batch {
	if t.cfg.Workers == 0 {
		out := make(chan batch)
		go func() {
			defer close(out)
			for s := range steps {
				select {
				case out <- drawBatch(src, t.cfg.batchSize(s)):
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}

	out := make(chan batch, t.cfg.Workers)
	p := pool.New().WithMaxGoroutines(t.cfg.Workers).WithContext(ctx)
	go func() {
		defer close(out)
		for s := range steps {
			if ctx.Err() != nil {
				break
			}
			size := t.cfg.batchSize(s)
			p.Go(func(ctx context.Context) error {
				b := drawBatch(src, size)
				select {
				case out <- b:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
		}
		_ = p.Wait()
	}()
	return out
}
