package model

import (
	"fmt"
	"sort"
	"sync"

	"github.com/0xack13/RWKV-LM/internal/domain"
)

// Factory builds a freshly initialised model.
type Factory func(cfg Config, seed int64) (domain.Model, error)

var (
	mu       sync.RWMutex
	backends = map[string]Factory{}
)

// Register makes a backend available under name. Registering a name twice
// replaces the earlier factory.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	backends[name] = f
}

// Backends lists the registered backend names.
func Backends() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New validates cfg and builds a model with the named backend.
func New(backend string, cfg Config, seed int64) (domain.Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mu.RLock()
	f, ok := backends[backend]
	mu.RUnlock()
	if !ok {
		return nil, domain.NewConfigError("model.backend", fmt.Sprintf("unknown backend %q (have %v)", backend, Backends()))
	}
	return f(cfg, seed)
}

func init() {
	Register(ReferenceBackend, func(cfg Config, seed int64) (domain.Model, error) {
		return NewReference(cfg, seed), nil
	})
}
