package llm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/basalt-ai/basalt/config"
)

// Factory constructs a ChatModel from provider configuration. Providers
// register a Factory via init() so importing the provider package alone
// makes it available through New.
type Factory func(cfg config.ProviderConfig) (ChatModel, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register associates name with factory, overwriting any existing
// registration under that name.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New constructs a ChatModel using the factory registered under name.
func New(name string, cfg config.ProviderConfig) (ChatModel, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("llm: unknown provider %q", name)
	}
	return factory(cfg)
}

// List returns every registered provider name, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
