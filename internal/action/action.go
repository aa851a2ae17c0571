// Package action implements the custom actions the dialogue host can
// invoke through the webhook.
package action

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/snowdesk-io/snowdesk/pkg/rasa"
)

// Action is the interface every custom action implements. Run reads the
// tracker snapshot, may queue messages on the dispatcher, and returns the
// ordered list of events to apply. All per-invocation state is function
// local; the host may invoke actions concurrently for different
// conversations.
type Action interface {
	Name() string
	Run(ctx context.Context, disp *rasa.CollectingDispatcher, req *rasa.ActionRequest) ([]rasa.Event, error)
}

// Registry holds registered actions and dispatches invocations by name.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
}

// NewRegistry creates an empty action registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Action)}
}

// Register adds an action to the registry.
func (r *Registry) Register(a Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[a.Name()] = a
}

// Get returns an action by name.
func (r *Registry) Get(name string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[name]
	return a, ok
}

// List returns the names of all registered actions, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run invokes the named action.
func (r *Registry) Run(ctx context.Context, name string, disp *rasa.CollectingDispatcher, req *rasa.ActionRequest) ([]rasa.Event, error) {
	a, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("action %q not found", name)
	}
	return a.Run(ctx, disp, req)
}
