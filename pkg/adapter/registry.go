package adapter

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Factory builds an adapter; a nil logger means discard.
type Factory func(*slog.Logger) Adapter

// ErrNoWarehouseType is returned when warehouse.type is empty.
var ErrNoWarehouseType = errors.New("warehouse type not specified")

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register makes a warehouse available under name. Adapters call it from
// init(); registering the same name twice panics.
func Register(name string, f Factory) {
	key := normalize(name)
	if key == "" || f == nil {
		panic("adapter: Register needs a name and a factory")
	}

	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if _, dup := factories[key]; dup {
		panic("adapter: Register called twice for " + key)
	}
	factories[key] = f
}

// Get returns the factory registered under name.
func Get(name string) (Factory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := factories[normalize(name)]
	return f, ok
}

// NewAdapter builds the adapter named by cfg.Type. It does not connect.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if normalize(cfg.Type) == "" {
		return nil, ErrNoWarehouseType
	}
	f, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	return f(logger), nil
}

// ListAdapters returns the registered warehouse names in sorted order.
func ListAdapters() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	return slices.Sorted(maps.Keys(factories))
}

// IsRegistered reports whether a warehouse type is known.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// UnknownAdapterError names a warehouse type with no registered adapter.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown warehouse type %q (available: %s); check warehouse.type in zillowetl.yaml",
		e.Type, strings.Join(e.Available, ", "))
}
