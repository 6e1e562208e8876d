// Package apiclient is the fluent entry point for calling a REST resource.
//
//	orders, err := apiclient.Resource(ctx, services, "orders", "order")
//	if err != nil {
//		return err
//	}
//
//	order, err := orders.Select("id", "total").With("items").Find(ctx, 42)
//
// Every chain method returns a new *API, so a configured base can be shared
// and extended without affecting other callers.
package apiclient

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/fivetwenty-io/clientable/internal/client"
	"github.com/fivetwenty-io/clientable/internal/constants"
	"github.com/fivetwenty-io/clientable/internal/http"
	"github.com/fivetwenty-io/clientable/pkg/clientable"
	"github.com/fivetwenty-io/clientable/pkg/registry"
)

// API builds calls against one resource of one service. An API and every
// API derived from it share one connection pool.
type API struct {
	config         *clientable.Config
	transport      *http.Client
	query          clientable.Query
	serializer     clientable.QuerySerializer
	headerResolver clientable.HeaderResolver
}

// Option configures an API at construction.
type Option func(*API)

// WithHeaderResolver sets the source of default headers.
func WithHeaderResolver(resolver clientable.HeaderResolver) Option {
	return func(a *API) {
		a.headerResolver = resolver
	}
}

// WithSerializer replaces the default query serializer.
func WithSerializer(serializer clientable.QuerySerializer) Option {
	return func(a *API) {
		a.serializer = serializer
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger clientable.Logger) Option {
	return func(a *API) {
		a.config.Logger = logger
	}
}

// WithConfig adjusts the configuration directly.
func WithConfig(fn func(config *clientable.Config)) Option {
	return func(a *API) {
		fn(a.config)
	}
}

// New resolves service and returns an API with the default configuration.
// An unregistered service is an error.
func New(ctx context.Context, resolver registry.Resolver, service string, opts ...Option) (*API, error) {
	endpoint, err := resolver.Resolve(ctx, service)
	if err != nil {
		return nil, fmt.Errorf("resolving service %s: %w", service, err)
	}

	api := &API{
		config: clientable.DefaultConfig(service, endpoint),
		query:  clientable.NewQuery(),
	}

	for _, opt := range opts {
		opt(api)
	}

	api.transport = http.NewClient(http.WithLogger(api.config.EffectiveLogger()))

	return api, nil
}

// Resource is New followed by Resource(resource).
func Resource(ctx context.Context, resolver registry.Resolver, service, resource string, opts ...Option) (*API, error) {
	api, err := New(ctx, resolver, service, opts...)
	if err != nil {
		return nil, err
	}

	return api.Resource(resource), nil
}

// Clone returns an independent copy.
func (a *API) Clone() *API {
	clone := *a
	clone.config = a.config.Clone()

	return &clone
}

func (a *API) with(fn func(clone *API)) *API {
	clone := a.Clone()
	fn(clone)

	return clone
}

// Config returns a copy of the configuration.
func (a *API) Config() *clientable.Config {
	return a.config.Clone()
}

// Query returns the accumulated query.
func (a *API) Query() clientable.Query {
	return a.query
}

// Repository returns the repository the terminal methods dispatch through,
// for raw envelope access.
func (a *API) Repository() (clientable.Repository, error) {
	return a.repository()
}

// CloseIdleConnections releases idle connections held by the shared pool.
func (a *API) CloseIdleConnections() {
	if a.transport != nil {
		a.transport.CloseIdleConnections()
	}
}

func (a *API) repository() (*client.Repository, error) {
	var opts []client.Option

	if a.transport != nil {
		opts = append(opts, client.WithTransport(a.transport))
	}

	if a.serializer != nil {
		opts = append(opts, client.WithSerializer(a.serializer))
	}

	if a.headerResolver != nil {
		opts = append(opts, client.WithHeaderResolver(a.headerResolver))
	}

	repo, err := client.New(a.config, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating repository: %w", err)
	}

	return repo, nil
}

// Resource selects the remote collection.
func (a *API) Resource(resource string) *API {
	return a.with(func(clone *API) { clone.config.Resource = resource })
}

// Version selects the protocol version.
func (a *API) Version(version clientable.ProtocolVersion) *API {
	return a.with(func(clone *API) { clone.config.Version = version })
}

// APIVersion sets the {apiVersion} URI segment.
func (a *API) APIVersion(apiVersion string) *API {
	return a.with(func(clone *API) { clone.config.APIVersion = apiVersion })
}

// Timeout sets the total request timeout.
func (a *API) Timeout(timeout time.Duration) *API {
	return a.with(func(clone *API) { clone.config.Timeout = timeout })
}

// ConnectTimeout sets the connect timeout.
func (a *API) ConnectTimeout(timeout time.Duration) *API {
	return a.with(func(clone *API) { clone.config.ConnectTimeout = timeout })
}

// ReadTimeout sets the response header timeout.
func (a *API) ReadTimeout(timeout time.Duration) *API {
	return a.with(func(clone *API) { clone.config.ReadTimeout = timeout })
}

// Debug toggles request logging. Debug mode disables every timeout.
func (a *API) Debug(debug bool) *API {
	return a.with(func(clone *API) { clone.config.Debug = debug })
}

// UserAgent sets the User-Agent header.
func (a *API) UserAgent(userAgent string) *API {
	return a.with(func(clone *API) { clone.config.UserAgent = userAgent })
}

// Authorization sets the Authorization header.
func (a *API) Authorization(authorization string) *API {
	return a.with(func(clone *API) { clone.config.Authorization = authorization })
}

// WithHeader sets a caller header, overriding resolver defaults.
func (a *API) WithHeader(key, value string) *API {
	return a.with(func(clone *API) { clone.config.Headers[key] = value })
}

// SetRequestContext sets a request-context header.
func (a *API) SetRequestContext(key, value string) *API {
	return a.WithHeader(key, value)
}

// AsUserID marks requests as made on behalf of a user.
func (a *API) AsUserID(userID string) *API {
	return a.WithHeader(constants.HeaderUserID, userID)
}

// AsConsumer names the consuming client.
func (a *API) AsConsumer(name string) *API {
	return a.WithHeader(constants.HeaderConsumerName, name)
}

// AsApp names the calling application.
func (a *API) AsApp(app string) *API {
	return a.WithHeader(constants.HeaderApp, app)
}

// AsLanguage sets the preferred response language.
func (a *API) AsLanguage(language string) *API {
	return a.WithHeader(constants.HeaderLanguage, language)
}

// WithQuery replaces the accumulated query.
func (a *API) WithQuery(query clientable.Query) *API {
	return a.with(func(clone *API) { clone.query = query })
}

// Select replaces the selected fields. "*" selects everything.
func (a *API) Select(fields ...string) *API {
	return a.WithQuery(a.query.Select(fields...))
}

// With expands related resources.
func (a *API) With(relations ...string) *API {
	return a.WithQuery(a.query.With(relations...))
}

// Where adds a filter.
func (a *API) Where(key, operator string, value interface{}) *API {
	return a.WithQuery(a.query.Where(key, operator, value))
}

// WhereIn adds a membership filter.
func (a *API) WhereIn(key string, values ...interface{}) *API {
	return a.WithQuery(a.query.WhereIn(key, values...))
}

// OrderBy adds an order clause.
func (a *API) OrderBy(key, direction string) *API {
	return a.WithQuery(a.query.OrderBy(key, direction))
}

// Limit caps the number of resources returned.
func (a *API) Limit(limit int) *API {
	return a.WithQuery(a.query.Limit(limit))
}

// Page selects the page for Paginator.
func (a *API) Page(page int) *API {
	return a.WithQuery(a.query.Page(page))
}

// PerPage sets the page size for Paginator.
func (a *API) PerPage(perPage int) *API {
	return a.WithQuery(a.query.PerPage(perPage))
}

// Find fetches one resource. It returns nil, without error, when the
// service reports a failure, so it doubles as an existence check.
func (a *API) Find(ctx context.Context, id interface{}) (clientable.Resource, error) {
	repo, err := a.repository()
	if err != nil {
		return nil, err
	}

	resp, err := repo.Get(ctx, id, a.query)
	if err != nil {
		return nil, err
	}

	return resp.ToResource(), nil
}

// FindMany fetches several resources in one request.
func (a *API) FindMany(ctx context.Context, ids ...interface{}) (*clientable.ResourceCollection, error) {
	repo, err := a.repository()
	if err != nil {
		return nil, err
	}

	resp, err := repo.GetByIDs(ctx, slices.Clone(ids), a.query)
	if err != nil {
		return nil, err
	}

	return resp.ToResourceCollection(), nil
}

// First returns the first resource matching the query, nil when none.
func (a *API) First(ctx context.Context) (clientable.Resource, error) {
	collection, err := a.Limit(1).Get(ctx)
	if err != nil {
		return nil, err
	}

	return collection.First(), nil
}

// Get returns every resource matching the query.
func (a *API) Get(ctx context.Context) (*clientable.ResourceCollection, error) {
	repo, err := a.repository()
	if err != nil {
		return nil, err
	}

	resp, err := repo.GetByQuery(ctx, a.query)
	if err != nil {
		return nil, err
	}

	return resp.ToResourceCollection(), nil
}

// All is Get.
func (a *API) All(ctx context.Context) (*clientable.ResourceCollection, error) {
	return a.Get(ctx)
}

// Pluck maps key to column over every matching resource.
func (a *API) Pluck(ctx context.Context, column, key string) (map[string]interface{}, error) {
	collection, err := a.Select(column, key).Get(ctx)
	if err != nil {
		return nil, err
	}

	return collection.Pluck(column, key), nil
}

// Paginator returns the page selected by Page and PerPage.
func (a *API) Paginator(ctx context.Context) (*clientable.Paginator, error) {
	repo, err := a.repository()
	if err != nil {
		return nil, err
	}

	resp, err := repo.List(ctx, a.query)
	if err != nil {
		return nil, err
	}

	return resp.ToPaginator(), nil
}

// Create adds a resource and returns it as stored. A service failure is
// returned as *clientable.APIError.
func (a *API) Create(ctx context.Context, resource interface{}) (clientable.Resource, error) {
	resp, err := a.write(ctx, func(repo *client.Repository) (*clientable.Response, error) {
		return repo.Add(ctx, resource)
	})
	if err != nil {
		return nil, err
	}

	return resp.ToResource(), nil
}

// CreateMany adds several resources in one request.
func (a *API) CreateMany(ctx context.Context, resources interface{}) (*clientable.ResourceCollection, error) {
	resp, err := a.write(ctx, func(repo *client.Repository) (*clientable.Response, error) {
		return repo.BatchAdd(ctx, resources)
	})
	if err != nil {
		return nil, err
	}

	return resp.ToResourceCollection(), nil
}

// Update changes a resource and returns it as stored.
func (a *API) Update(ctx context.Context, id interface{}, resource interface{}) (clientable.Resource, error) {
	resp, err := a.write(ctx, func(repo *client.Repository) (*clientable.Response, error) {
		return repo.Update(ctx, id, resource)
	})
	if err != nil {
		return nil, err
	}

	return resp.ToResource(), nil
}

// UpdateMany updates several resources with a single batch request.
func (a *API) UpdateMany(ctx context.Context, resources interface{}) (*clientable.ResourceCollection, error) {
	resp, err := a.write(ctx, func(repo *client.Repository) (*clientable.Response, error) {
		return repo.BatchUpdate(ctx, resources)
	})
	if err != nil {
		return nil, err
	}

	return resp.ToResourceCollection(), nil
}

// Destroy deletes a resource.
func (a *API) Destroy(ctx context.Context, id interface{}) error {
	_, err := a.write(ctx, func(repo *client.Repository) (*clientable.Response, error) {
		return repo.Delete(ctx, id)
	})

	return err
}

// DestroyMany deletes several resources in one request.
func (a *API) DestroyMany(ctx context.Context, ids ...interface{}) error {
	_, err := a.write(ctx, func(repo *client.Repository) (*clientable.Response, error) {
		return repo.DeleteByIDs(ctx, slices.Clone(ids))
	})

	return err
}

func (a *API) write(
	ctx context.Context, call func(repo *client.Repository) (*clientable.Response, error),
) (*clientable.Response, error) {
	repo, err := a.repository()
	if err != nil {
		return nil, err
	}

	resp, err := call(repo)
	if err != nil {
		return nil, err
	}

	err = resp.Err()
	if err != nil {
		return nil, err
	}

	return resp, nil
}
