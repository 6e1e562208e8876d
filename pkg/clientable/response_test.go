package clientable_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/clientable/pkg/clientable"
)

func TestResponse_ServiceSuccess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		status        int
		body          string
		serviceStatus int
		success       bool
	}{
		{name: "200 with code 200", status: 200, body: `{"code":200}`, serviceStatus: 200, success: true},
		{name: "200 without code", status: 200, body: `{"data":[]}`, serviceStatus: 200, success: true},
		{name: "200 with code 422", status: 200, body: `{"code":422}`, serviceStatus: 422, success: false},
		{name: "200 with string code", status: 200, body: `{"code":"201"}`, serviceStatus: 201, success: true},
		{name: "200 with non numeric code", status: 200, body: `{"code":"ok"}`, serviceStatus: 0, success: false},
		{name: "500 ignores payload", status: 500, body: `{"code":200}`, serviceStatus: 500, success: false},
		{name: "404 without body", status: 404, body: ``, serviceStatus: 404, success: false},
		{name: "200 with html body", status: 200, body: `<html></html>`, serviceStatus: 200, success: true},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			resp := clientable.NewResponse(testCase.status, nil, []byte(testCase.body), clientable.V2)
			assert.Equal(t, testCase.serviceStatus, resp.ServiceStatus())
			assert.Equal(t, testCase.success, resp.IsServiceSuccess())
		})
	}
}

func TestResponse_NeverFails(t *testing.T) {
	t.Parallel()

	for _, body := range []string{``, `null`, `[]`, `"text"`, `{`, `42`, `{"data":"scalar","meta":[1]}`} {
		resp := clientable.NewResponse(200, http.Header{}, []byte(body), clientable.V2)

		assert.NotNil(t, resp.Meta(), body)
		assert.Empty(t, resp.Meta(), body)
		assert.Equal(t, 0, resp.ToResourceCollection().Len(), body)
		assert.NotNil(t, resp.ToPaginator(), body)
		assert.Equal(t, body, string(resp.OriginalContents()))
	}
}

func TestResponse_Message(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a", clientable.NewResponse(400, nil, []byte(`{"msg":"a","message":"b"}`), clientable.V2).Message())
	assert.Equal(t, "b", clientable.NewResponse(400, nil, []byte(`{"message":"b"}`), clientable.V2).Message())
	assert.Empty(t, clientable.NewResponse(400, nil, []byte(`{}`), clientable.V2).Message())

	ok := clientable.NewResponse(200, nil, []byte(`{"code":200,"msg":"done"}`), clientable.V2)
	assert.Equal(t, "done", ok.Message())
	assert.Empty(t, ok.ErrorMessage())
	assert.Nil(t, ok.ToError())
	assert.NoError(t, ok.Err())

	failed := clientable.NewResponse(200, nil, []byte(`{"code":422,"msg":"total too low"}`), clientable.V2)
	assert.Equal(t, "total too low", failed.ErrorMessage())
}

func TestResponse_ToResource(t *testing.T) {
	t.Parallel()

	resp := clientable.NewResponse(200, nil, []byte(`{"code":200,"data":{"id":42,"total":9.5}}`), clientable.V2)
	assert.Equal(t, clientable.Resource{"id": json.Number("42"), "total": json.Number("9.5")}, resp.ToResource())

	empty := clientable.NewResponse(200, nil, []byte(`{"code":200}`), clientable.V2)
	assert.NotNil(t, empty.ToResource())
	assert.Empty(t, empty.ToResource())

	failed := clientable.NewResponse(200, nil, []byte(`{"code":404,"data":[{"id":1}]}`), clientable.V2)
	assert.Nil(t, failed.ToResource())
	assert.Equal(t, 1, failed.ToResourceCollection().Len())
}

func TestResponse_LargeIntegerIDs(t *testing.T) {
	t.Parallel()

	resp := clientable.NewResponse(200, nil, []byte(`{"code":200,"data":{"id":1234567890123456789}}`), clientable.V2)
	assert.Equal(t, "1234567890123456789", resp.ToResource().ID())
	assert.Equal(t, int64(1234567890123456789), resp.ToResource().Int("id"))

	list := clientable.NewResponse(200, nil,
		[]byte(`{"code":200,"data":[{"id":9007199254740993,"sku":"a"},{"id":9007199254740992,"sku":"b"}]}`), clientable.V2)
	collection := list.ToResourceCollection()

	assert.Equal(t, []string{"9007199254740993", "9007199254740992"}, collection.IDs())
	assert.Equal(t, "a", collection.GetResource("9007199254740993").String("sku"))
	assert.Equal(t, "b", collection.GetResource(json.Number("9007199254740992")).String("sku"))
	assert.Equal(t, map[string]interface{}{"9007199254740993": "a", "9007199254740992": "b"}, collection.Pluck("sku", "id"))
}

func TestResponse_ToResourceCollection(t *testing.T) {
	t.Parallel()

	list := clientable.NewResponse(200, nil, []byte(`{"data":[{"id":3},{"id":1},{"id":2}]}`), clientable.V2)
	assert.Equal(t, []string{"3", "1", "2"}, list.ToResourceCollection().IDs())

	keyed := clientable.NewResponse(200, nil, []byte(`{"data":{"z":{"id":"z"},"a":{"id":"a"},"m":{"id":"m"}}}`), clientable.V2)
	assert.Equal(t, []string{"z", "a", "m"}, keyed.ToResourceCollection().IDs())

	mixed := clientable.NewResponse(200, nil, []byte(`{"data":[{"id":1},2,"x",{"id":3}]}`), clientable.V2)
	assert.Equal(t, []string{"1", "3"}, mixed.ToResourceCollection().IDs())
}

func TestResponse_ToPaginator(t *testing.T) {
	t.Parallel()

	t.Run("v2 reads meta.paginator", func(t *testing.T) {
		t.Parallel()

		body := `{"code":200,"data":[{"id":11},{"id":12}],` +
			`"meta":{"paginator":{"total":100,"per_page":10,"current_page":2,"path":"/orders"}}}`

		paginator := clientable.NewResponse(200, nil, []byte(body), clientable.V2).ToPaginator()
		assert.Equal(t, 100, paginator.Total)
		assert.Equal(t, 10, paginator.PerPage)
		assert.Equal(t, 2, paginator.CurrentPage)
		assert.Equal(t, "/orders", paginator.Path)
		assert.Equal(t, []string{"11", "12"}, paginator.Items.IDs())
		assert.Equal(t, 10, paginator.LastPage())
		assert.True(t, paginator.HasMorePages())
	})

	t.Run("v1 reads data", func(t *testing.T) {
		t.Parallel()

		body := `{"code":200,"data":{"data":[{"id":1}],"total":"21","per_page":10,"current_page":3,"path":"/legacy"}}`

		paginator := clientable.NewResponse(200, nil, []byte(body), clientable.V1).ToPaginator()
		assert.Equal(t, 21, paginator.Total)
		assert.Equal(t, 3, paginator.CurrentPage)
		assert.Equal(t, "/legacy", paginator.Path)
		assert.Equal(t, 1, paginator.Items.Len())
		assert.False(t, paginator.HasMorePages())
	})

	t.Run("v1 falls back to page", func(t *testing.T) {
		t.Parallel()

		body := `{"data":{"data":[],"total":5,"page":4}}`

		paginator := clientable.NewResponse(200, nil, []byte(body), clientable.V1).ToPaginator()
		assert.Equal(t, 4, paginator.CurrentPage)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		for _, version := range []clientable.ProtocolVersion{clientable.V1, clientable.V2} {
			paginator := clientable.NewResponse(200, nil, []byte(`{}`), version).ToPaginator()
			assert.Equal(t, 0, paginator.Total)
			assert.Equal(t, 10, paginator.PerPage)
			assert.Equal(t, 1, paginator.CurrentPage)
			assert.Empty(t, paginator.Path)
			assert.Equal(t, 0, paginator.Items.Len())
			assert.Equal(t, 1, paginator.LastPage())
		}
	})

	t.Run("non-numeric fields fall back to defaults", func(t *testing.T) {
		t.Parallel()

		body := `{"code":200,"data":[],"meta":{"paginator":{"total":"many","per_page":"ten","current_page":{}}}}`

		paginator := clientable.NewResponse(200, nil, []byte(body), clientable.V2).ToPaginator()
		assert.Equal(t, 0, paginator.Total)
		assert.Equal(t, 10, paginator.PerPage)
		assert.Equal(t, 1, paginator.CurrentPage)
	})
}

func TestResponse_ToError(t *testing.T) {
	t.Parallel()

	resp := clientable.NewResponse(422, nil, []byte(`{"code":422,"msg":"total too low","meta":{"field":"total"}}`), clientable.V2)

	apiErr := resp.ToError()
	require.NotNil(t, apiErr)
	assert.Equal(t, 422, apiErr.Code)
	assert.Equal(t, "total too low", apiErr.Message)
	assert.Equal(t, map[string]interface{}{"field": "total"}, apiErr.Meta)
	assert.True(t, apiErr.IsValidationError())
	assert.True(t, clientable.IsValidationError(resp.Err()))
	assert.EqualError(t, apiErr, "total too low (code: 422)")

	noCode := clientable.NewResponse(503, nil, []byte(`oops`), clientable.V2).ToError()
	require.NotNil(t, noCode)
	assert.Equal(t, 400, noCode.Code)
}

func TestNewFailureResponse(t *testing.T) {
	t.Parallel()

	resp := clientable.NewFailureResponse(500, 500, "connection refused", clientable.V2)
	assert.Equal(t, 500, resp.StatusCode())
	assert.Equal(t, 500, resp.ServiceStatus())
	assert.False(t, resp.IsServiceSuccess())
	assert.Equal(t, "connection refused", resp.Message())
	assert.Empty(t, resp.Meta())
	assert.Nil(t, resp.ToResource())
	assert.True(t, clientable.IsServerError(resp.Err()))

	empty := clientable.NewFailureResponse(500, 500, "", clientable.V2)
	assert.Empty(t, empty.Message())
}
