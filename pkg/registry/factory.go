package registry

import (
	"context"
	"errors"
	"fmt"
)

// ResolverType represents the type of registry backend.
type ResolverType string

const (
	// ResolverTypeMemory represents the in-memory registry.
	ResolverTypeMemory ResolverType = "memory"

	// ResolverTypeNATS represents the NATS key-value registry.
	ResolverTypeNATS ResolverType = "nats"
)

// Static errors for err113 compliance.
var (
	ErrNATSConfigRequired      = errors.New("NATS configuration required for NATS registry")
	ErrUnsupportedResolverType = errors.New("unsupported registry type")
)

// Config configures a registry backend.
type Config struct {
	// Type is the registry backend type. Empty means memory.
	Type ResolverType

	// Services seeds the in-memory registry.
	Services map[string]string

	// NATS configures the NATS backend.
	NATS *NATSConfig
}

// NewFromConfig creates a resolver from configuration. With the NATS backend
// the static services still resolve first, so local overrides win.
func NewFromConfig(ctx context.Context, config *Config) (Resolver, error) {
	if config == nil {
		return New(), nil
	}

	static, err := FromMap(config.Services)
	if err != nil {
		return nil, err
	}

	switch config.Type {
	case "", ResolverTypeMemory:
		return static, nil

	case ResolverTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		natsResolver, err := NewNATSResolver(ctx, config.NATS)
		if err != nil {
			return nil, err
		}

		return NewChain(static, natsResolver), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedResolverType, config.Type)
	}
}

// Chain tries resolvers in order and returns the first endpoint found.
type Chain struct {
	resolvers []Resolver
}

var _ Resolver = (*Chain)(nil)

// NewChain creates a new resolver chain.
func NewChain(resolvers ...Resolver) *Chain {
	return &Chain{
		resolvers: resolvers,
	}
}

// Resolve implements Resolver. Only a miss moves on to the next resolver;
// any other failure is returned.
func (c *Chain) Resolve(ctx context.Context, name string) (string, error) {
	for _, resolver := range c.resolvers {
		endpoint, err := resolver.Resolve(ctx, name)
		if err == nil {
			return endpoint, nil
		}

		if !errors.Is(err, ErrServiceNotRegistered) {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: %s", ErrServiceNotRegistered, name)
}

// Close closes every resolver in the chain that holds resources.
func (c *Chain) Close() error {
	var lastErr error

	for _, resolver := range c.resolvers {
		closer, ok := resolver.(interface{ Close() error })
		if !ok {
			continue
		}

		err := closer.Close()
		if err != nil {
			lastErr = err
		}
	}

	return lastErr
}
