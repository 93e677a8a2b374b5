package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/authware/go-oidc-rp/oidc"
)

// DefaultProviderName is the slot name used when a configuration does
// not name its provider.
const DefaultProviderName = "default"

// Registry maps provider names to running provider actors. It owns their
// lifecycle: providers are started into the registry and stopped through
// it. All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*Provider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]*Provider)}
}

// Start starts a provider actor for the given configuration and
// registers it under its name. The initial refresh happens synchronously;
// a provider that cannot fetch its metadata is not registered.
func (r *Registry) Start(ctx context.Context, cfg oidc.ProviderConfig, opts ...Option) (*Provider, error) {
	name := cfg.Name
	if name == "" {
		name = DefaultProviderName
		cfg.Name = name
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[name]; ok {
		return nil, fmt.Errorf("provider %q is already registered", name)
	}

	p, err := Start(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not start provider %q: %w", name, err)
	}
	r.providers[name] = p

	return p, nil
}

// Provider returns the running actor registered under name.
func (r *Registry) Provider(name string) (*Provider, error) {
	if name == "" {
		name = DefaultProviderName
	}

	r.mu.RLock()
	p, ok := r.providers[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("provider %q is not registered", name)
	}
	return p, nil
}

// Stop stops and removes the named provider. Stopping an unknown
// provider is an error.
func (r *Registry) Stop(name string) error {
	if name == "" {
		name = DefaultProviderName
	}

	r.mu.Lock()
	p, ok := r.providers[name]
	delete(r.providers, name)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("provider %q is not registered", name)
	}
	p.Stop()
	return nil
}

// StopAll stops every registered provider. Used for graceful shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	providers := r.providers
	r.providers = make(map[string]*Provider)
	r.mu.Unlock()

	for _, p := range providers {
		p.Stop()
	}
}
