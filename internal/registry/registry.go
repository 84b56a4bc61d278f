// ABOUTME: Read-only registry of specialized services callable during a session
// ABOUTME: Built once at startup from static config, fails fast on malformed endpoints

package registry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// ErrNotFound indicates the named agent is not in the registry.
var ErrNotFound = errors.New("agent not found in registry")

// Descriptor describes one specialized service. Immutable after construction.
type Descriptor struct {
	Name        string
	Endpoint    string
	Description string
	// Parameters maps accepted parameter names to a short type/usage note.
	Parameters map[string]string
}

// Card is the capability description a service may publish on its card
// endpoint. Fields present in a fetched card override the static config.
type Card struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  map[string]string `json:"parameters,omitempty"`
}

// CardFetcher fetches a capability card from a service endpoint.
// Implemented by the a2a client.
type CardFetcher interface {
	FetchCard(ctx context.Context, endpoint string) (*Card, error)
}

// Entry is a static configuration entry for one agent.
type Entry struct {
	Name        string
	Endpoint    string
	Description string
	Parameters  map[string]string
}

// Registry holds the fixed set of callable agents for the process lifetime.
// It is safe for concurrent use without locking: no mutation after New.
type Registry struct {
	byName map[string]*Descriptor
	order  []string
}

// Option configures registry construction.
type Option func(*buildOptions)

type buildOptions struct {
	ctx     context.Context
	fetcher CardFetcher
}

// WithCardFetch enriches descriptors from each service's capability card
// during construction. Fetch failures are tolerated; the static config entry
// stands on its own.
func WithCardFetch(ctx context.Context, fetcher CardFetcher) Option {
	return func(o *buildOptions) {
		o.ctx = ctx
		o.fetcher = fetcher
	}
}

// New builds a registry from static entries. It fails if the list is empty,
// a name repeats, or an endpoint is not an absolute http(s) URL.
func New(entries []Entry, opts ...Option) (*Registry, error) {
	if len(entries) == 0 {
		return nil, errors.New("registry requires at least one agent entry")
	}

	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}

	r := &Registry{byName: make(map[string]*Descriptor, len(entries))}
	for _, e := range entries {
		if e.Name == "" {
			return nil, errors.New("agent entry missing name")
		}
		if _, exists := r.byName[e.Name]; exists {
			return nil, fmt.Errorf("duplicate agent name %q", e.Name)
		}
		if err := validateEndpoint(e.Endpoint); err != nil {
			return nil, fmt.Errorf("agent %q: %w", e.Name, err)
		}

		d := &Descriptor{
			Name:        e.Name,
			Endpoint:    e.Endpoint,
			Description: e.Description,
			Parameters:  e.Parameters,
		}
		if bo.fetcher != nil {
			enrichFromCard(bo.ctx, bo.fetcher, d)
		}

		r.byName[e.Name] = d
		r.order = append(r.order, e.Name)
	}
	return r, nil
}

// enrichFromCard overlays card fields onto the descriptor. Errors are ignored:
// a service that is down at startup can still be called later.
func enrichFromCard(ctx context.Context, fetcher CardFetcher, d *Descriptor) {
	card, err := fetcher.FetchCard(ctx, d.Endpoint)
	if err != nil || card == nil {
		return
	}
	if card.Description != "" {
		d.Description = card.Description
	}
	if len(card.Parameters) > 0 {
		d.Parameters = card.Parameters
	}
}

// EnrichCards overlays capability cards onto all descriptors. Startup only:
// it must run before the registry is shared across goroutines.
func (r *Registry) EnrichCards(ctx context.Context, fetcher CardFetcher) {
	for _, name := range r.order {
		enrichFromCard(ctx, fetcher, r.byName[name])
	}
}

func validateEndpoint(endpoint string) error {
	if endpoint == "" {
		return errors.New("missing endpoint")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("malformed endpoint %q: %w", endpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("malformed endpoint %q: expected absolute http(s) URL", endpoint)
	}
	return nil
}

// Resolve returns the descriptor for the named agent.
func (r *Registry) Resolve(name string) (*Descriptor, error) {
	d, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return d, nil
}

// List returns all descriptors in configuration order.
func (r *Registry) List() []*Descriptor {
	out := make([]*Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	return len(r.byName)
}
