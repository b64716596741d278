package agent

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rustyeddy/tradeflow/message"
)

// ErrUnknownAgent is returned when a lookup names an unregistered agent.
var ErrUnknownAgent = fmt.Errorf("agent not registered")

// Registry tracks registered agent identities by name.
// Registration is idempotent: re-registering a name replaces its
// declared capability set and leaves nothing else changed.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]message.AgentIdentity
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]message.AgentIdentity)}
}

// Register records an identity. An empty name is rejected.
func (r *Registry) Register(identity message.AgentIdentity) error {
	if identity.Name == "" {
		return fmt.Errorf("register: agent name is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[identity.Name] = identity
	return nil
}

// Lookup returns the identity registered under name.
func (r *Registry) Lookup(name string) (message.AgentIdentity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.agents[name]
	if !ok {
		return message.AgentIdentity{}, fmt.Errorf("lookup %q: %w", name, ErrUnknownAgent)
	}
	return identity, nil
}

// Names returns the registered agent names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
