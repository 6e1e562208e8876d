package registry_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/clientable/pkg/registry"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	require.NoError(t, reg.Register("orders", "http://orders.local/api"))

	endpoint, err := reg.Resolve(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, "http://orders.local/api", endpoint)

	_, err = reg.Resolve(context.Background(), "billing")
	require.ErrorIs(t, err, registry.ErrServiceNotRegistered)

	require.NoError(t, reg.Register("orders", "https://orders.example.com"))
	endpoint, err = reg.Resolve(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, "https://orders.example.com", endpoint)

	reg.Unregister("orders")
	_, err = reg.Resolve(context.Background(), "orders")
	require.ErrorIs(t, err, registry.ErrServiceNotRegistered)
}

func TestRegistry_Validation(t *testing.T) {
	t.Parallel()

	reg := registry.New()

	for _, endpoint := range []string{"", "orders.local", "ftp://orders.local", "http://", "://bad"} {
		assert.ErrorIs(t, reg.Register("orders", endpoint), registry.ErrInvalidEndpoint, endpoint)
	}

	for _, name := range []string{"", "has space", ".hidden", "a/b", "x*"} {
		assert.ErrorIs(t, reg.Register(name, "http://orders.local"), registry.ErrInvalidServiceName, name)
	}

	assert.Empty(t, reg.Names())
}

func TestFromMap(t *testing.T) {
	t.Parallel()

	reg, err := registry.FromMap(map[string]string{
		"orders":  "http://orders.local",
		"billing": "http://billing.local",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"billing", "orders"}, reg.Names())
	assert.Len(t, reg.Services(), 2)

	_, err = registry.FromMap(map[string]string{"orders": "not-a-url"})
	require.ErrorIs(t, err, registry.ErrInvalidEndpoint)
}

func TestRegistry_Concurrent(t *testing.T) {
	t.Parallel()

	reg := registry.New()

	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			name := fmt.Sprintf("svc-%d", i)
			assert.NoError(t, reg.Register(name, "http://svc.local"))

			_, err := reg.Resolve(context.Background(), name)
			assert.NoError(t, err)
		}(i)
	}

	wg.Wait()
	assert.Len(t, reg.Names(), 20)
}

func TestChain(t *testing.T) {
	t.Parallel()

	local, err := registry.FromMap(map[string]string{"orders": "http://localhost:8080"})
	require.NoError(t, err)

	remote, err := registry.FromMap(map[string]string{
		"orders":  "http://orders.prod",
		"billing": "http://billing.prod",
	})
	require.NoError(t, err)

	chain := registry.NewChain(local, remote)

	endpoint, err := chain.Resolve(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", endpoint)

	endpoint, err = chain.Resolve(context.Background(), "billing")
	require.NoError(t, err)
	assert.Equal(t, "http://billing.prod", endpoint)

	_, err = chain.Resolve(context.Background(), "shipping")
	require.ErrorIs(t, err, registry.ErrServiceNotRegistered)

	boom := errors.New("backend down")
	failing := registry.NewChain(registry.ResolverFunc(func(context.Context, string) (string, error) {
		return "", boom
	}), remote)

	_, err = failing.Resolve(context.Background(), "billing")
	require.ErrorIs(t, err, boom)
	assert.NoError(t, chain.Close())
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	resolver, err := registry.NewFromConfig(context.Background(), &registry.Config{
		Services: map[string]string{"orders": "http://orders.local"},
	})
	require.NoError(t, err)

	endpoint, err := resolver.Resolve(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, "http://orders.local", endpoint)

	_, err = registry.NewFromConfig(context.Background(), &registry.Config{Type: registry.ResolverTypeNATS})
	require.ErrorIs(t, err, registry.ErrNATSConfigRequired)

	_, err = registry.NewFromConfig(context.Background(), &registry.Config{Type: "etcd"})
	require.ErrorIs(t, err, registry.ErrUnsupportedResolverType)
}
