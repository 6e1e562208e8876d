// Package registry maps logical service names to endpoint base URIs.
//
// A Resolver is passed explicitly to the API facade; there is no process-wide
// registry. The in-memory Registry suits configuration loaded at startup,
// NATSResolver shares registrations through a JetStream key-value bucket, and
// Chain layers several resolvers.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// Static errors for err113 compliance.
var (
	ErrServiceNotRegistered = errors.New("service not registered")
	ErrInvalidServiceName   = errors.New("invalid service name")
	ErrInvalidEndpoint      = errors.New("invalid service endpoint")
)

// Resolver resolves a service name to its endpoint base URI.
type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, name string) (string, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, name string) (string, error) {
	return f(ctx, name)
}

// Registry is an in-memory Resolver safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	services map[string]string
}

var _ Resolver = (*Registry)(nil)

// New returns an empty registry.
func New() *Registry {
	return &Registry{services: make(map[string]string)}
}

// FromMap builds a registry from name → endpoint pairs, rejecting the first invalid one.
func FromMap(services map[string]string) (*Registry, error) {
	registry := New()

	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		err := registry.Register(name, services[name])
		if err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// Register adds or replaces a service endpoint.
func (r *Registry) Register(name, endpoint string) error {
	err := ValidateName(name)
	if err != nil {
		return err
	}

	err = ValidateEndpoint(endpoint)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.services[name] = endpoint

	return nil
}

// Unregister removes a service. Unknown names are ignored.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.services, name)
}

// Resolve implements Resolver.
func (r *Registry) Resolve(_ context.Context, name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	endpoint, ok := r.services[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrServiceNotRegistered, name)
	}

	return endpoint, nil
}

// Services returns a copy of the registrations.
func (r *Registry) Services() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.services))
	for name, endpoint := range r.services {
		out[name] = endpoint
	}

	return out
}

// Names returns the registered service names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// ValidateName accepts names usable as key-value keys: letters, digits, '-', '_' and '.'.
func ValidateName(name string) error {
	if name == "" || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidServiceName, name)
	}

	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidServiceName, name)
		}
	}

	return nil
}

// ValidateEndpoint accepts absolute http and https URLs.
func ValidateEndpoint(endpoint string) error {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
	}

	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}

	return nil
}
