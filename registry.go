package authorizable

import (
	"fmt"
	"sort"
	"sync"

	"github.com/supremind/authorizable/types"
)

// Registry looks handlers up by name, it is safe for concurrent use
type Registry struct {
	handlers map[string]types.Handler
	sync.RWMutex
}

// NewRegistry creates a registry holding handlers
func NewRegistry(handlers ...types.Handler) (*Registry, error) {
	r := &Registry{handlers: make(map[string]types.Handler, len(handlers))}
	for _, h := range handlers {
		if e := r.Register(h); e != nil {
			return nil, e
		}
	}
	return r, nil
}

// Register adds h, a handler of the same name should not be registered before
func (r *Registry) Register(h types.Handler) error {
	r.Lock()
	defer r.Unlock()

	if _, ok := r.handlers[h.Name()]; ok {
		return fmt.Errorf("%w: handler %s", types.ErrAlreadyExists, h.Name())
	}
	r.handlers[h.Name()] = h
	return nil
}

// Replace swaps all handlers at once, used when reloading declarations
func (r *Registry) Replace(handlers ...types.Handler) {
	next := make(map[string]types.Handler, len(handlers))
	for _, h := range handlers {
		next[h.Name()] = h
	}

	r.Lock()
	r.handlers = next
	r.Unlock()
}

// Lookup returns the handler named name
func (r *Registry) Lookup(name string) (types.Handler, bool) {
	r.RLock()
	defer r.RUnlock()

	h, ok := r.handlers[name]
	return h, ok
}

// Names returns names of all handlers in lexical order
func (r *Registry) Names() []string {
	r.RLock()
	defer r.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
