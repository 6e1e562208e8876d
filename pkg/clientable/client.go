package clientable

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/url"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/fivetwenty-io/clientable/internal/constants"
)

// Repository is every operation a resource client can perform. Each call
// returns an envelope; the error is reserved for problems detected before
// anything is sent (unsupported operation, missing resource, bad config).
type Repository interface {
	Get(ctx context.Context, id interface{}, query Query) (*Response, error)
	GetByIDs(ctx context.Context, ids []interface{}, query Query) (*Response, error)
	List(ctx context.Context, query Query) (*Response, error)
	GetByQuery(ctx context.Context, query Query) (*Response, error)
	Aggregate(ctx context.Context, query Query) (*Response, error)
	AggregateValue(ctx context.Context, query Query, method, key string) (interface{}, error)
	AggregateValues(ctx context.Context, query Query, method string, keys []string) (map[string]interface{}, error)

	Add(ctx context.Context, resource interface{}) (*Response, error)
	BatchAdd(ctx context.Context, resources interface{}) (*Response, error)
	Update(ctx context.Context, id interface{}, resource interface{}) (*Response, error)
	BatchUpdate(ctx context.Context, resources interface{}) (*Response, error)
	Delete(ctx context.Context, id interface{}) (*Response, error)
	DeleteByIDs(ctx context.Context, ids []interface{}) (*Response, error)

	RestRequest(ctx context.Context, method, uri string, body interface{}) (*Response, error)
	FileRequest(ctx context.Context, method, uri string, body io.Reader) (*Response, error)
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// NoopLogger discards everything.
type NoopLogger struct{}

func (NoopLogger) Debug(string, map[string]interface{}) {}
func (NoopLogger) Info(string, map[string]interface{})  {}
func (NoopLogger) Warn(string, map[string]interface{})  {}
func (NoopLogger) Error(string, map[string]interface{}) {}

// HeaderResolver supplies default headers for a service. Caller-set headers
// take precedence over them.
type HeaderResolver interface {
	Headers(ctx context.Context, service string) map[string]string
}

// HeaderResolverFunc adapts a function to HeaderResolver.
type HeaderResolverFunc func(ctx context.Context, service string) map[string]string

// Headers implements HeaderResolver.
func (f HeaderResolverFunc) Headers(ctx context.Context, service string) map[string]string {
	return f(ctx, service)
}

// StaticHeaders resolves the same headers for every service.
type StaticHeaders map[string]string

// Headers implements HeaderResolver.
func (h StaticHeaders) Headers(context.Context, string) map[string]string {
	return maps.Clone(map[string]string(h))
}

// Config represents the configuration of a resource client.
type Config struct {
	// Service: logical name of the remote service, used for header resolution and logs.
	Service string
	// Resource: name of the remote collection. Required for every operation
	// except RestRequest and FileRequest.
	Resource string
	// BaseURI: absolute endpoint of the service. A trailing slash is added when missing.
	BaseURI string
	// Version: wire convention. Empty means V2.
	Version ProtocolVersion
	// APIVersion: the {apiVersion} URI segment. Empty means "v2".
	APIVersion string

	// ConnectTimeout, ReadTimeout, Timeout: per-request limits. Zero disables a limit.
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Timeout        time.Duration
	// Debug: logs requests and responses, and disables every timeout.
	Debug bool

	// UserAgent, Authorization, ContentType, Accept: sent when non-empty.
	UserAgent     string
	Authorization string
	ContentType   string
	Accept        string
	// Headers: caller-set headers, merged over the resolver defaults.
	Headers map[string]string

	// Logger: optional structured logger.
	Logger Logger
}

// DefaultConfig returns a configuration for service at baseURI with the default
// timeouts and headers.
func DefaultConfig(service, baseURI string) *Config {
	return &Config{
		Service:        service,
		BaseURI:        baseURI,
		Version:        V2,
		APIVersion:     constants.DefaultAPIVersion,
		ConnectTimeout: constants.DefaultConnectTimeout,
		ReadTimeout:    constants.DefaultReadTimeout,
		Timeout:        constants.DefaultTimeout,
		UserAgent:      constants.DefaultUserAgent,
		ContentType:    constants.DefaultContentType,
		Accept:         constants.DefaultAccept,
		Headers:        map[string]string{},
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Headers = maps.Clone(c.Headers)

	if clone.Headers == nil {
		clone.Headers = map[string]string{}
	}

	return &clone
}

// EffectiveVersion returns the protocol version, V2 when unset.
func (c *Config) EffectiveVersion() ProtocolVersion {
	if c.Version == "" {
		return V2
	}

	return c.Version
}

// EffectiveAPIVersion returns the URI version segment, the default when unset.
func (c *Config) EffectiveAPIVersion() string {
	if c.APIVersion == "" {
		return constants.DefaultAPIVersion
	}

	return c.APIVersion
}

// EffectiveTimeouts returns connect, read and total timeouts. Debug mode disables all three.
func (c *Config) EffectiveTimeouts() (time.Duration, time.Duration, time.Duration) {
	if c.Debug {
		return 0, 0, 0
	}

	return c.ConnectTimeout, c.ReadTimeout, c.Timeout
}

// EffectiveLogger returns the configured logger or a no-op one.
func (c *Config) EffectiveLogger() Logger {
	if c.Logger == nil {
		return NoopLogger{}
	}

	return c.Logger
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.BaseURI == "" {
		result = multierror.Append(result, ErrBaseURIRequired)
	} else if parsed, err := url.Parse(c.BaseURI); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		result = multierror.Append(result, fmt.Errorf("%w: %q", ErrInvalidBaseURI, c.BaseURI))
	}

	if c.Version != "" {
		if _, err := ParseProtocolVersion(string(c.Version)); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if c.ConnectTimeout < 0 || c.ReadTimeout < 0 || c.Timeout < 0 {
		result = multierror.Append(result, ErrNegativeTimeout)
	}

	return result.ErrorOrNil()
}
