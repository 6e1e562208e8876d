package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"

	"github.com/fivetwenty-io/clientable/internal/constants"
	"github.com/fivetwenty-io/clientable/internal/http"
	"github.com/fivetwenty-io/clientable/internal/query"
	"github.com/fivetwenty-io/clientable/internal/request"
	"github.com/fivetwenty-io/clientable/pkg/clientable"
)

// Transport sends a single request. *http.Client implements it.
type Transport interface {
	Send(ctx context.Context, req *http.Request, opts http.Options) (*http.Response, error)
}

// Repository implements clientable.Repository for one service resource.
type Repository struct {
	config         *clientable.Config
	transport      Transport
	serializer     clientable.QuerySerializer
	headerResolver clientable.HeaderResolver
	logger         clientable.Logger
}

var _ clientable.Repository = (*Repository)(nil)

// Option configures a Repository.
type Option func(*Repository)

// WithTransport replaces the HTTP transport.
func WithTransport(transport Transport) Option {
	return func(r *Repository) {
		r.transport = transport
	}
}

// WithSerializer replaces the query serializer.
func WithSerializer(serializer clientable.QuerySerializer) Option {
	return func(r *Repository) {
		r.serializer = serializer
	}
}

// WithHeaderResolver sets the source of default headers.
func WithHeaderResolver(resolver clientable.HeaderResolver) Option {
	return func(r *Repository) {
		r.headerResolver = resolver
	}
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *clientable.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	return httpOpts
}

// New creates a repository. The configuration is copied.
func New(config *clientable.Config, opts ...Option) (*Repository, error) {
	err := config.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration for service %q: %w", config.Service, err)
	}

	repo := &Repository{
		config:     config.Clone(),
		serializer: query.New(),
		logger:     config.EffectiveLogger(),
	}

	for _, opt := range opts {
		opt(repo)
	}

	if repo.transport == nil {
		repo.transport = http.NewClient(createHTTPClientOptions(repo.config)...)
	}

	return repo, nil
}

// Config returns a copy of the repository configuration.
func (r *Repository) Config() *clientable.Config {
	return r.config.Clone()
}

// Version returns the protocol version.
func (r *Repository) Version() clientable.ProtocolVersion {
	return r.config.EffectiveVersion()
}

// IsVersion reports whether the repository speaks version.
func (r *Repository) IsVersion(version clientable.ProtocolVersion) bool {
	return r.Version() == version
}

// WithHeader sets a caller header. Caller headers override resolver defaults.
func (r *Repository) WithHeader(key, value string) *Repository {
	r.config.Headers[textproto.CanonicalMIMEHeaderKey(key)] = value

	return r
}

// SetRequestContext sets a request-context header.
func (r *Repository) SetRequestContext(key, value string) *Repository {
	return r.WithHeader(key, value)
}

// AsUserID marks requests as made on behalf of a user.
func (r *Repository) AsUserID(userID string) *Repository {
	return r.SetRequestContext(constants.HeaderUserID, userID)
}

// AsConsumer names the consuming client.
func (r *Repository) AsConsumer(name string) *Repository {
	return r.SetRequestContext(constants.HeaderConsumerName, name)
}

// AsApp names the calling application.
func (r *Repository) AsApp(app string) *Repository {
	return r.SetRequestContext(constants.HeaderApp, app)
}

// AsLanguage sets the preferred response language.
func (r *Repository) AsLanguage(language string) *Repository {
	return r.SetRequestContext(constants.HeaderLanguage, language)
}

// Get fetches one resource, sending only the select and with clauses.
func (r *Repository) Get(ctx context.Context, id interface{}, q clientable.Query) (*clientable.Response, error) {
	return r.dispatch(ctx, request.OpGet, request.Target{ID: id, Query: q})
}

// GetByIDs fetches several resources in one request.
func (r *Repository) GetByIDs(ctx context.Context, ids []interface{}, q clientable.Query) (*clientable.Response, error) {
	return r.dispatch(ctx, request.OpGetByIDs, request.Target{IDs: ids, Query: q})
}

// List fetches a page of resources matching the query.
func (r *Repository) List(ctx context.Context, q clientable.Query) (*clientable.Response, error) {
	return r.dispatch(ctx, request.OpList, request.Target{Query: q})
}

// GetByQuery fetches every resource matching the query, unpaginated.
func (r *Repository) GetByQuery(ctx context.Context, q clientable.Query) (*clientable.Response, error) {
	return r.dispatch(ctx, request.OpGetByQuery, request.Target{Query: q})
}

// Aggregate runs the query's aggregates on the service.
func (r *Repository) Aggregate(ctx context.Context, q clientable.Query) (*clientable.Response, error) {
	return r.dispatch(ctx, request.OpAggregate, request.Target{Query: q})
}

// AggregateValue computes method over key. Absent values are 0. A failed
// call also yields 0, together with the service error.
func (r *Repository) AggregateValue(ctx context.Context, q clientable.Query, method, key string) (interface{}, error) {
	values, err := r.aggregateMethod(ctx, q.WithAggregate(method, key), method)
	if err != nil {
		return 0, err
	}

	value, ok := values[key]
	if !ok || value == nil {
		return 0, nil
	}

	return value, nil
}

// AggregateValues computes method over keys. Absent results give an empty map.
func (r *Repository) AggregateValues(
	ctx context.Context, q clientable.Query, method string, keys []string,
) (map[string]interface{}, error) {
	values, err := r.aggregateMethod(ctx, q.WithAggregate(method, keys...), method)
	if err != nil {
		return map[string]interface{}{}, err
	}

	return values, nil
}

func (r *Repository) aggregateMethod(ctx context.Context, q clientable.Query, method string) (map[string]interface{}, error) {
	resp, err := r.Aggregate(ctx, request.NormalizeQuery(q))
	if err != nil {
		return nil, err
	}

	if apiErr := resp.ToError(); apiErr != nil {
		return nil, apiErr
	}

	values, ok := resp.ToResource().Get(method).(map[string]interface{})
	if !ok {
		return map[string]interface{}{}, nil
	}

	return values, nil
}

// Add creates a resource.
func (r *Repository) Add(ctx context.Context, resource interface{}) (*clientable.Response, error) {
	return r.dispatch(ctx, request.OpAdd, request.Target{Body: resource})
}

// BatchAdd creates several resources in one request.
func (r *Repository) BatchAdd(ctx context.Context, resources interface{}) (*clientable.Response, error) {
	return r.dispatch(ctx, request.OpBatchAdd, request.Target{Body: resources})
}

// Update replaces fields of a resource.
func (r *Repository) Update(ctx context.Context, id interface{}, resource interface{}) (*clientable.Response, error) {
	return r.dispatch(ctx, request.OpUpdate, request.Target{ID: id, Body: resource})
}

// BatchUpdate updates several resources in one request.
func (r *Repository) BatchUpdate(ctx context.Context, resources interface{}) (*clientable.Response, error) {
	return r.dispatch(ctx, request.OpBatchUpdate, request.Target{Body: resources})
}

// Delete removes a resource.
func (r *Repository) Delete(ctx context.Context, id interface{}) (*clientable.Response, error) {
	return r.dispatch(ctx, request.OpDelete, request.Target{ID: id})
}

// DeleteByIDs removes several resources in one request.
func (r *Repository) DeleteByIDs(ctx context.Context, ids []interface{}) (*clientable.Response, error) {
	return r.dispatch(ctx, request.OpDeleteByIDs, request.Target{IDs: ids})
}

// RestRequest sends an arbitrary JSON request relative to the service base URI.
func (r *Repository) RestRequest(ctx context.Context, method, uri string, body interface{}) (*clientable.Response, error) {
	return r.send(ctx, "rest", &http.Request{Method: method, URI: uri, Body: body}, false), nil
}

// FileRequest sends body verbatim without JSON content negotiation.
func (r *Repository) FileRequest(ctx context.Context, method, uri string, body io.Reader) (*clientable.Response, error) {
	return r.send(ctx, "file", &http.Request{Method: method, URI: uri, Raw: body}, true), nil
}

func (r *Repository) dispatch(ctx context.Context, op request.Operation, target request.Target) (*clientable.Response, error) {
	target.Resource = r.config.Resource
	target.Version = r.config.EffectiveVersion()
	target.APIVersion = r.config.EffectiveAPIVersion()

	req, err := request.Build(op, target, r.serializer)
	if err != nil {
		return nil, fmt.Errorf("%s %s/%s: %w", op, r.config.Service, r.config.Resource, err)
	}

	return r.send(ctx, op.String(), &http.Request{Method: req.Method, URI: req.URI(), Body: req.Body}, false), nil
}

// send never fails: every transport failure becomes a synthetic envelope.
func (r *Repository) send(ctx context.Context, operation string, req *http.Request, file bool) *clientable.Response {
	version := r.config.EffectiveVersion()

	resp, err := r.transport.Send(ctx, req, r.requestOptions(ctx, file))
	if err != nil {
		return r.collapse(operation, req, err)
	}

	r.logger.Debug("dispatched", map[string]interface{}{
		"service":   r.config.Service,
		"operation": operation,
		"method":    req.Method,
		"uri":       req.URI,
		"status":    resp.StatusCode,
	})

	return clientable.NewResponse(resp.StatusCode, resp.Headers, resp.Body, version)
}

func (r *Repository) collapse(operation string, req *http.Request, err error) *clientable.Response {
	statusCode := constants.HTTPStatusBadRequest

	var (
		requestErr *http.RequestError
		connectErr *http.ConnectError
	)

	if errors.As(err, &requestErr) || errors.As(err, &connectErr) {
		statusCode = constants.HTTPStatusInternalServerError
	}

	r.logger.Warn("request failed", map[string]interface{}{
		"service":   r.config.Service,
		"operation": operation,
		"method":    req.Method,
		"uri":       req.URI,
		"status":    statusCode,
		"error":     err.Error(),
	})

	return clientable.NewFailureResponse(statusCode, statusCode, err.Error(), r.config.EffectiveVersion())
}

// requestOptions merges headers: resolver defaults, then caller headers, then
// the configured content headers when non-empty. Debug disables timeouts.
func (r *Repository) requestOptions(ctx context.Context, file bool) http.Options {
	headers := map[string]string{}

	if r.headerResolver != nil {
		for key, value := range r.headerResolver.Headers(ctx, r.config.Service) {
			headers[textproto.CanonicalMIMEHeaderKey(key)] = value
		}
	}

	for key, value := range r.config.Headers {
		headers[textproto.CanonicalMIMEHeaderKey(key)] = value
	}

	setIfNotEmpty(headers, constants.HeaderContentType, r.config.ContentType)
	setIfNotEmpty(headers, constants.HeaderAccept, r.config.Accept)
	setIfNotEmpty(headers, constants.HeaderUserAgent, r.config.UserAgent)
	setIfNotEmpty(headers, constants.HeaderAuthorization, r.config.Authorization)

	if file {
		delete(headers, constants.HeaderContentType)
		delete(headers, constants.HeaderAccept)
	}

	connect, read, total := r.config.EffectiveTimeouts()

	return http.Options{
		BaseURI:        r.config.BaseURI,
		Headers:        headers,
		ConnectTimeout: connect,
		ReadTimeout:    read,
		Timeout:        total,
		Debug:          r.config.Debug,
	}
}

func setIfNotEmpty(headers map[string]string, key, value string) {
	if value != "" {
		headers[key] = value
	}
}
