package translation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cardflow/internal/services"
)

// Provider converts text between two languages. Implementations wrap external
// services and are treated as capability-equivalent: the pipeline never
// inspects a provider beyond its name.
type Provider interface {
	Name() string
	Translate(ctx context.Context, text, fromLang, toLang string) (string, error)
}

// Registry holds the enabled provider set. It is built once at startup and
// read-only afterwards, so concurrent lookups need no locking.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry indexes the given providers by name.
func NewRegistry(providers ...Provider) *Registry {
	indexed := make(map[string]Provider, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		indexed[strings.ToLower(p.Name())] = p
	}
	return &Registry{providers: indexed}
}

// Get returns the named provider.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "translation", "provider", fmt.Sprintf("provider %q is not enabled", name), nil)
	}
	return p, nil
}

// Names returns the enabled provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
