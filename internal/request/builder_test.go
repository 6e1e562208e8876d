package request_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/clientable/internal/query"
	"github.com/fivetwenty-io/clientable/internal/request"
	"github.com/fivetwenty-io/clientable/pkg/clientable"
)

func TestParseSelect(t *testing.T) {
	t.Parallel()

	assert.Nil(t, request.ParseSelect(nil))
	assert.Equal(t, []string{}, request.ParseSelect([]string{}))
	assert.Equal(t, []string{}, request.ParseSelect([]string{"*"}))
	assert.Equal(t, []string{}, request.ParseSelect([]string{"id", "*", "total"}))
	assert.Equal(t, []string{"id", "total"}, request.ParseSelect([]string{"id", "total"}))
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestBuild(t *testing.T) {
	t.Parallel()

	base := request.Target{
		Resource:   "order",
		Version:    clientable.V2,
		APIVersion: "v2",
		Query: clientable.NewQuery().
			Select("id", "total").
			With("items").
			Where("status", "=", "paid"),
		ID:   42,
		IDs:  []interface{}{1, 2, 3},
		Body: map[string]interface{}{"total": 5},
	}

	tests := []struct {
		op       request.Operation
		method   string
		uri      string
		withBody bool
	}{
		{op: request.OpGet, method: http.MethodGet, uri: "v2/order/42?select=id%2Ctotal&with=items"},
		{op: request.OpGetByIDs, method: http.MethodGet, uri: "v2/order/1,2,3/_batch?select=id%2Ctotal&with=items"},
		{op: request.OpList, method: http.MethodGet, uri: "v2/order?filter%5Bstatus%5D%5B%3D%5D=paid&select=id%2Ctotal&with=items"},
		{op: request.OpGetByQuery, method: http.MethodGet, uri: "v2/order/_batch?filter%5Bstatus%5D%5B%3D%5D=paid&select=id%2Ctotal&with=items"},
		{op: request.OpAggregate, method: http.MethodGet, uri: "v2/order/_aggregate?filter%5Bstatus%5D%5B%3D%5D=paid&select=id%2Ctotal&with=items"},
		{op: request.OpAdd, method: http.MethodPost, uri: "v2/order", withBody: true},
		{op: request.OpBatchAdd, method: http.MethodPost, uri: "v2/order/_batch", withBody: true},
		{op: request.OpUpdate, method: http.MethodPut, uri: "v2/order/42", withBody: true},
		{op: request.OpBatchUpdate, method: http.MethodPut, uri: "v2/order/_batch", withBody: true},
		{op: request.OpDelete, method: http.MethodDelete, uri: "v2/order/42"},
		{op: request.OpDeleteByIDs, method: http.MethodDelete, uri: "v2/order/1,2,3/_batch"},
	}

	for _, testCase := range tests {
		t.Run(testCase.op.String(), func(t *testing.T) {
			t.Parallel()

			req, err := request.Build(testCase.op, base, query.New())
			require.NoError(t, err)
			assert.Equal(t, testCase.method, req.Method)
			assert.Equal(t, testCase.uri, req.URI())

			if testCase.withBody {
				assert.Equal(t, base.Body, req.Body)
			} else {
				assert.Nil(t, req.Body)
			}
		})
	}
}

func TestBuild_VersionGating(t *testing.T) {
	t.Parallel()

	target := request.Target{Resource: "order", Version: clientable.V1, IDs: []interface{}{1, 2}, ID: 1}

	for _, op := range []request.Operation{request.OpGetByIDs, request.OpBatchAdd, request.OpBatchUpdate, request.OpDeleteByIDs} {
		_, err := request.Build(op, target, query.New())
		require.Error(t, err, op.String())
		assert.True(t, errors.Is(err, clientable.ErrUnsupportedOperation), op.String())
	}

	for _, op := range []request.Operation{request.OpGet, request.OpList, request.OpGetByQuery, request.OpAggregate, request.OpAdd, request.OpUpdate, request.OpDelete} {
		_, err := request.Build(op, target, query.New())
		require.NoError(t, err, op.String())
	}
}

func TestBuild_Validation(t *testing.T) {
	t.Parallel()

	_, err := request.Build(request.OpGet, request.Target{ID: 1}, query.New())
	require.ErrorIs(t, err, clientable.ErrResourceRequired)

	_, err = request.Build(request.OpGetByIDs, request.Target{Resource: "order"}, query.New())
	require.ErrorIs(t, err, clientable.ErrEmptyIDs)
}

func TestBuild_Normalization(t *testing.T) {
	t.Parallel()

	target := request.Target{
		Resource: "order",
		Query:    clientable.NewQuery().Select("*").WithAggregate("count", "id"),
	}

	req, err := request.Build(request.OpAggregate, target, query.New())
	require.NoError(t, err)
	assert.Equal(t, "v2/order/_aggregate?aggregate%5Bcount%5D=id", req.URI())

	req, err = request.Build(request.OpList, request.Target{Resource: "order"}, query.New())
	require.NoError(t, err)
	assert.Equal(t, "v2/order", req.URI())
}

func TestBuild_EscapesIDs(t *testing.T) {
	t.Parallel()

	target := request.Target{Resource: "file", ID: "a b", IDs: []interface{}{"x,y", "z/1"}}

	req, err := request.Build(request.OpGet, target, query.New())
	require.NoError(t, err)
	assert.Equal(t, "v2/file/a%20b", req.Path)

	req, err = request.Build(request.OpDeleteByIDs, target, query.New())
	require.NoError(t, err)
	assert.Equal(t, "v2/file/x%2Cy,z%2F1/_batch", req.Path)
}
