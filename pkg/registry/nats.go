package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/fivetwenty-io/clientable/internal/constants"
)

// NATSConfig configures the NATS key-value resolver.
type NATSConfig struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string

	// Bucket is the key-value bucket holding name → endpoint entries.
	Bucket string

	// Timeout bounds connecting and every bucket operation.
	Timeout time.Duration

	// Options are passed to nats.Connect.
	Options []nats.Option
}

// DefaultNATSConfig returns the default NATS configuration for url.
func DefaultNATSConfig(url string) *NATSConfig {
	return &NATSConfig{
		URL:     url,
		Bucket:  constants.DefaultRegistryBucket,
		Timeout: constants.RegistryLookupTimeout,
	}
}

// NATSResolver resolves services from a JetStream key-value bucket.
type NATSResolver struct {
	conn    *nats.Conn
	kv      jetstream.KeyValue
	timeout time.Duration
}

var _ Resolver = (*NATSResolver)(nil)

// NewNATSResolver connects to NATS and opens, creating when missing, the bucket.
func NewNATSResolver(ctx context.Context, config *NATSConfig) (*NATSResolver, error) {
	if config == nil || config.URL == "" {
		return nil, ErrNATSConfigRequired
	}

	bucket := config.Bucket
	if bucket == "" {
		bucket = constants.DefaultRegistryBucket
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = constants.RegistryLookupTimeout
	}

	opts := append([]nats.Option{nats.Timeout(timeout)}, config.Options...)

	conn, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "service name to endpoint base URI",
	})
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("opening key-value bucket %s: %w", bucket, err)
	}

	return &NATSResolver{conn: conn, kv: kv, timeout: timeout}, nil
}

// Resolve implements Resolver.
func (r *NATSResolver) Resolve(ctx context.Context, name string) (string, error) {
	err := ValidateName(name)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	entry, err := r.kv.Get(ctx, name)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return "", fmt.Errorf("%w: %s", ErrServiceNotRegistered, name)
		}

		return "", fmt.Errorf("resolving service %s: %w", name, err)
	}

	return string(entry.Value()), nil
}

// Register stores a service endpoint in the bucket.
func (r *NATSResolver) Register(ctx context.Context, name, endpoint string) error {
	err := ValidateName(name)
	if err != nil {
		return err
	}

	err = ValidateEndpoint(endpoint)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err = r.kv.Put(ctx, name, []byte(endpoint))
	if err != nil {
		return fmt.Errorf("registering service %s: %w", name, err)
	}

	return nil
}

// Unregister removes a service from the bucket.
func (r *NATSResolver) Unregister(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.kv.Delete(ctx, name)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("unregistering service %s: %w", name, err)
	}

	return nil
}

// Names lists the registered service names in order.
func (r *NATSResolver) Names(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	lister, err := r.kv.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing services: %w", err)
	}

	names := make([]string, 0)
	for name := range lister.Keys() {
		names = append(names, name)
	}

	sort.Strings(names)

	return names, nil
}

// Close drains the NATS connection.
func (r *NATSResolver) Close() error {
	err := r.conn.Drain()
	if err != nil {
		return fmt.Errorf("closing NATS connection: %w", err)
	}

	return nil
}
