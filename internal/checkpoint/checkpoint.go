// Package checkpoint writes and reads trained models as timestamped files.
package checkpoint

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/0xack13/RWKV-LM/internal/domain"
	"github.com/0xack13/RWKV-LM/internal/model"
)

// TimeLayout is the timestamp embedded in checkpoint file names.
const TimeLayout = "2006-01-02-15-04-05"

// Checkpoint is everything needed to sample from a trained model later.
type Checkpoint struct {
	RunID        string
	Created      time.Time
	Architecture domain.Architecture
	Level        domain.Level
	Model        model.Config
	Vocabulary   []string
	State        model.State
}

// Writer names and writes checkpoint files.
type Writer struct {
	Dir    string
	Prefix string
	Ext    string
	// Now is the clock used for file names; nil means time.Now.
	Now func() time.Time
}

// NewWriter returns a writer using the wall clock.
func NewWriter(dir, prefix, ext string) *Writer {
	return &Writer{Dir: dir, Prefix: prefix, Ext: ext, Now: time.Now}
}

// dir is the directory checkpoints go to; empty means the working directory.
func (w *Writer) dir() string {
	if w.Dir == "" {
		return "."
	}
	return w.Dir
}

func (w *Writer) now() time.Time {
	if w.Now == nil {
		return time.Now()
	}
	return w.Now()
}

// FileName returns the path a checkpoint finished at t is written to, e.g.
// trained-2024-03-01-14-05-09.ckpt.
func (w *Writer) FileName(t time.Time) string {
	return filepath.Join(w.dir(), w.Prefix+t.Format(TimeLayout)+w.Ext)
}

// Write stamps c with the current time (and a run id if it has none) and
// stores it. The file appears atomically.
func (w *Writer) Write(c *Checkpoint) (string, error) {
	c.Created = w.now()
	if c.RunID == "" {
		c.RunID = uuid.NewString()
	}
	path := w.FileName(c.Created)

	dir := w.dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", domain.NewIOError("mkdir", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".checkpoint-*")
	if err != nil {
		return "", domain.NewIOError("create", dir, err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(c); err != nil {
		tmp.Close()
		return "", domain.NewIOError("encode", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", domain.NewIOError("write", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", domain.NewIOError("rename", path, err)
	}
	return path, nil
}

// Load reads the checkpoint at path.
func Load(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.NewIOError("open", path, err)
	}
	defer f.Close()

	var c Checkpoint
	if err := gob.NewDecoder(f).Decode(&c); err != nil {
		return nil, domain.NewIOError("decode", path, err)
	}
	return &c, nil
}

// Latest returns the newest checkpoint file written by w, relying on the
// timestamp sorting lexically. It returns os.ErrNotExist if there is none.
func (w *Writer) Latest() (string, error) {
	matches, err := filepath.Glob(filepath.Join(w.dir(), w.Prefix+"*"+w.Ext))
	if err != nil {
		return "", domain.NewIOError("glob", w.dir(), err)
	}
	var names []string
	for _, m := range matches {
		stamp := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), w.Prefix), w.Ext)
		if _, err := time.Parse(TimeLayout, stamp); err == nil {
			names = append(names, m)
		}
	}
	if len(names) == 0 {
		return "", domain.NewIOError("find", w.dir(), os.ErrNotExist)
	}
	sort.Strings(names)
	return names[len(names)-1], nil
}

// Restore rebuilds the model stored in c.
func (c *Checkpoint) Restore() (domain.Model, error) {
	return model.Restore(c.Model, c.State)
}
