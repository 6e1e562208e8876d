package apiclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/clientable/pkg/apiclient"
	"github.com/fivetwenty-io/clientable/pkg/clientable"
	"github.com/fivetwenty-io/clientable/pkg/registry"
)

// recordedRequest is what the fake service saw.
type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   interface{}
}

// fakeService replies with a fixed status and body and records every request.
type fakeService struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	body     string
	server   *httptest.Server
}

func newFakeService(t *testing.T, status int, body string) *fakeService {
	t.Helper()

	service := &fakeService{status: status, body: body}
	service.server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		var payload interface{}

		_ = json.NewDecoder(request.Body).Decode(&payload)

		service.mu.Lock()
		service.requests = append(service.requests, recordedRequest{
			Method: request.Method,
			Path:   request.URL.Path,
			Query:  request.URL.RawQuery,
			Header: request.Header.Clone(),
			Body:   payload,
		})
		service.mu.Unlock()

		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(service.status)
		_, _ = writer.Write([]byte(service.body))
	}))
	t.Cleanup(service.server.Close)

	return service
}

func (s *fakeService) recorded() []recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]recordedRequest(nil), s.requests...)
}

func newAPI(t *testing.T, endpoint string) *apiclient.API {
	t.Helper()

	services, err := registry.FromMap(map[string]string{"orders": endpoint})
	require.NoError(t, err)

	api, err := apiclient.Resource(context.Background(), services, "orders", "order")
	require.NoError(t, err)

	return api
}

func TestNew_UnregisteredService(t *testing.T) {
	t.Parallel()

	_, err := apiclient.New(context.Background(), registry.New(), "orders")
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrServiceNotRegistered)
}

func TestAPI_Find(t *testing.T) {
	t.Parallel()

	service := newFakeService(t, http.StatusOK, `{"code":200,"data":{"id":42,"total":9.5}}`)

	order, err := newAPI(t, service.server.URL).Find(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, clientable.Resource{"id": json.Number("42"), "total": json.Number("9.5")}, order)

	requests := service.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodGet, requests[0].Method)
	assert.Equal(t, "/v2/order/42", requests[0].Path)
}

func TestAPI_FindMissing(t *testing.T) {
	t.Parallel()

	service := newFakeService(t, http.StatusOK, `{"code":404,"msg":"order not found"}`)

	order, err := newAPI(t, service.server.URL).Find(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestAPI_FindManyUnsupportedOnV1(t *testing.T) {
	t.Parallel()

	service := newFakeService(t, http.StatusOK, `{"code":200,"data":[]}`)

	_, err := newAPI(t, service.server.URL).Version(clientable.V1).FindMany(context.Background(), 1, 2, 3)
	require.Error(t, err)
	assert.True(t, clientable.IsUnsupportedOperation(err))
	assert.Empty(t, service.recorded())
}

func TestAPI_FindMany(t *testing.T) {
	t.Parallel()

	service := newFakeService(t, http.StatusOK, `{"code":200,"data":[{"id":1},{"id":2},{"id":3}]}`)

	orders, err := newAPI(t, service.server.URL).Select("id").FindMany(context.Background(), 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, orders.IDs())

	requests := service.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, "/v2/order/1,2,3/_batch", requests[0].Path)
	assert.Equal(t, "select=id", requests[0].Query)
}

func TestAPI_CreateValidationError(t *testing.T) {
	t.Parallel()

	service := newFakeService(t, http.StatusOK, `{"code":422,"msg":"total too low","meta":{"field":"total"}}`)

	order, err := newAPI(t, service.server.URL).Create(context.Background(), map[string]interface{}{"total": 5})
	require.Error(t, err)
	assert.Nil(t, order)

	apiErr := &clientable.APIError{}
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 422, apiErr.Code)
	assert.Equal(t, "total too low", apiErr.Message)
	assert.True(t, apiErr.IsValidationError())
	assert.True(t, clientable.IsValidationError(err))

	requests := service.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodPost, requests[0].Method)
	assert.Equal(t, map[string]interface{}{"total": float64(5)}, requests[0].Body)
}

func TestAPI_Paginator(t *testing.T) {
	t.Parallel()

	body := `{"code":200,"data":[{"id":11},{"id":12}],` +
		`"meta":{"paginator":{"total":100,"per_page":10,"current_page":2,"path":"/orders"}}}`
	service := newFakeService(t, http.StatusOK, body)

	paginator, err := newAPI(t, service.server.URL).Page(2).PerPage(10).Paginator(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, paginator.Total)
	assert.Equal(t, 10, paginator.PerPage)
	assert.Equal(t, 2, paginator.CurrentPage)
	assert.Equal(t, "/orders", paginator.Path)
	assert.Equal(t, []string{"11", "12"}, paginator.Items.IDs())

	requests := service.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, "/v2/order", requests[0].Path)
	assert.Equal(t, "page=2&per_page=10", requests[0].Query)
}

func TestAPI_DeleteConnectionRefused(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := server.URL
	server.Close()

	api := newAPI(t, endpoint)

	repo, err := api.Repository()
	require.NoError(t, err)

	resp, err := repo.Delete(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, resp.IsServiceSuccess())
	assert.Equal(t, 500, resp.ServiceStatus())

	err = api.Destroy(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, clientable.IsServerError(err))
}

func TestAPI_CloneIsolation(t *testing.T) {
	t.Parallel()

	service := newFakeService(t, http.StatusOK, `{"code":200,"data":{"id":1}}`)

	base := newAPI(t, service.server.URL).Select("id").With("items").AsApp("billing")
	derived := base.Select("id", "total").With("customer").WithHeader("X-Extra", "1").Version(clientable.V1)
	clone := base.Clone()

	assert.Equal(t, []string{"id"}, base.Query().Selects())
	assert.Equal(t, []string{"items"}, base.Query().Relations())
	assert.NotContains(t, base.Config().Headers, "X-Extra")
	assert.Equal(t, clientable.V2, base.Config().Version)

	assert.Equal(t, []string{"id", "total"}, derived.Query().Selects())
	assert.Equal(t, []string{"items", "customer"}, derived.Query().Relations())
	assert.Equal(t, clientable.V1, derived.Config().Version)

	assert.Equal(t, base.Query(), clone.Query())
	assert.Equal(t, base.Config().Headers, clone.Config().Headers)

	_, err := base.Find(context.Background(), 1)
	require.NoError(t, err)

	requests := service.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, "billing", requests[0].Header.Get("X-App"))
	assert.Empty(t, requests[0].Header.Get("X-Extra"))
}

func TestAPI_ReusesConnections(t *testing.T) {
	t.Parallel()

	var connections atomic.Int64

	server := httptest.NewUnstartedServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"code":200,"data":{"id":1}}`))
	}))
	server.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			connections.Add(1)
		}
	}
	server.Start()
	t.Cleanup(server.Close)

	api := newAPI(t, server.URL)
	t.Cleanup(api.CloseIdleConnections)

	for i := 1; i <= 25; i++ {
		_, err := api.Find(context.Background(), i)
		require.NoError(t, err)

		_, err = api.Select("id").AsApp("billing").Find(context.Background(), i)
		require.NoError(t, err)
	}

	assert.Equal(t, int64(1), connections.Load())
}

func TestAPI_Reads(t *testing.T) {
	t.Parallel()

	service := newFakeService(t, http.StatusOK, `{"code":200,"data":[{"id":1,"sku":"a"},{"id":2,"sku":"b"}]}`)
	api := newAPI(t, service.server.URL).Where("status", "=", "paid")
	ctx := context.Background()

	first, err := api.First(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", first.ID())

	all, err := api.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Len())

	skus, err := api.Pluck(ctx, "sku", "id")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"1": "a", "2": "b"}, skus)

	requests := service.recorded()
	require.Len(t, requests, 3)
	assert.Equal(t, "/v2/order/_batch", requests[0].Path)
	assert.Equal(t, "filter%5Bstatus%5D%5B%3D%5D=paid&limit=1", requests[0].Query)
	assert.Equal(t, "filter%5Bstatus%5D%5B%3D%5D=paid", requests[1].Query)
	assert.Equal(t, "filter%5Bstatus%5D%5B%3D%5D=paid&select=sku%2Cid", requests[2].Query)

	// the base query never picked up the limit
	assert.Zero(t, api.Query().LimitValue())
}

// The system this client replaces sent a batch-update followed by a
// batch-add for updateMany. A single batch-update is sent here instead.
func TestAPI_UpdateManySendsSingleBatchUpdate(t *testing.T) {
	t.Parallel()

	service := newFakeService(t, http.StatusOK, `{"code":200,"data":[{"id":1,"total":2}]}`)

	updated, err := newAPI(t, service.server.URL).UpdateMany(context.Background(), []map[string]interface{}{{"id": 1, "total": 2}})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Len())

	requests := service.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodPut, requests[0].Method)
	assert.Equal(t, "/v2/order/_batch", requests[0].Path)
}

func TestAPI_Writes(t *testing.T) {
	t.Parallel()

	service := newFakeService(t, http.StatusOK, `{"code":200,"data":{"id":9,"total":5}}`)
	api := newAPI(t, service.server.URL)
	ctx := context.Background()

	created, err := api.Create(ctx, map[string]interface{}{"total": 5})
	require.NoError(t, err)
	assert.Equal(t, "9", created.ID())

	updated, err := api.Update(ctx, 9, map[string]interface{}{"total": 5})
	require.NoError(t, err)
	assert.Equal(t, int64(5), updated.Int("total"))

	_, err = api.CreateMany(ctx, []map[string]interface{}{{"total": 1}})
	require.NoError(t, err)

	require.NoError(t, api.Destroy(ctx, 9))
	require.NoError(t, api.DestroyMany(ctx, 9, 10))

	requests := service.recorded()
	require.Len(t, requests, 5)

	expected := []struct{ method, path string }{
		{http.MethodPost, "/v2/order"},
		{http.MethodPut, "/v2/order/9"},
		{http.MethodPost, "/v2/order/_batch"},
		{http.MethodDelete, "/v2/order/9"},
		{http.MethodDelete, "/v2/order/9,10/_batch"},
	}

	for i, want := range expected {
		assert.Equal(t, want.method, requests[i].Method, i)
		assert.Equal(t, want.path, requests[i].Path, i)
	}
}

func TestAPI_Aggregates(t *testing.T) {
	t.Parallel()

	service := newFakeService(t, http.StatusOK,
		`{"code":200,"data":{"count":{"*":12},"sum":{"total":99.5,"tax":4},"max":{"sku":"z"}}}`)
	api := newAPI(t, service.server.URL).Select("*")
	ctx := context.Background()

	count, err := api.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)

	sum, err := api.Sum(ctx, "total")
	require.NoError(t, err)
	assert.InDelta(t, 99.5, sum, 0)

	avg, err := api.Avg(ctx, "total")
	require.NoError(t, err)
	assert.Zero(t, avg)

	highest, err := api.Max(ctx, "sku")
	require.NoError(t, err)
	assert.Equal(t, "z", highest)

	lowest, err := api.Min(ctx, "sku")
	require.NoError(t, err)
	assert.Equal(t, 0, lowest)

	sums, err := api.AggregateMany(ctx, "sum", "total", "tax")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"total": json.Number("99.5"), "tax": json.Number("4")}, sums)

	none, err := api.AggregateMany(ctx, "avg", "total", "tax")
	require.NoError(t, err)
	assert.Empty(t, none)

	requests := service.recorded()
	require.NotEmpty(t, requests)
	assert.Equal(t, "/v2/order/_aggregate", requests[0].Path)
	assert.Equal(t, "aggregate%5Bcount%5D=%2A", requests[0].Query)
}

func TestAPI_InvalidConfiguration(t *testing.T) {
	t.Parallel()

	services, err := registry.FromMap(map[string]string{"orders": "http://orders.local"})
	require.NoError(t, err)

	api, err := apiclient.Resource(context.Background(), services, "orders", "order")
	require.NoError(t, err)

	_, err = api.Version("v9").Find(context.Background(), 1)
	require.ErrorIs(t, err, clientable.ErrUnknownProtocolVersion)
}
