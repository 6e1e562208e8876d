package clientable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fivetwenty-io/clientable/pkg/clientable"
)

func TestQuery_Isolation(t *testing.T) {
	t.Parallel()

	base := clientable.NewQuery().Select("id").With("items").Where("status", "=", "paid")

	derived := base.Select("id", "total").With("customer").Where("total", ">", 1).WithAggregate("count", "id")

	assert.Equal(t, []string{"id"}, base.Selects())
	assert.Equal(t, []string{"items"}, base.Relations())
	assert.Len(t, base.Filters(), 1)
	assert.Empty(t, base.Aggregates())

	assert.Equal(t, []string{"id", "total"}, derived.Selects())
	assert.Equal(t, []string{"items", "customer"}, derived.Relations())
	assert.Len(t, derived.Filters(), 2)
	assert.Len(t, derived.Aggregates(), 1)
}

func TestQuery_SiblingsDoNotAlias(t *testing.T) {
	t.Parallel()

	// Enough capacity that a naive append would share the backing array.
	base := clientable.NewQuery().With("a", "b", "c").With("d")

	left := base.With("left")
	right := base.With("right")

	assert.Equal(t, []string{"a", "b", "c", "d", "left"}, left.Relations())
	assert.Equal(t, []string{"a", "b", "c", "d", "right"}, right.Relations())
}

func TestQuery_GettersReturnCopies(t *testing.T) {
	t.Parallel()

	query := clientable.NewQuery().Select("id", "total").WithAggregate("sum", "total")

	selects := query.Selects()
	selects[0] = "mutated"

	aggregates := query.Aggregates()
	aggregates[0].Keys[0] = "mutated"

	assert.Equal(t, []string{"id", "total"}, query.Selects())
	assert.Equal(t, []string{"total"}, query.Aggregates()[0].Keys)
}

func TestQuery_Builders(t *testing.T) {
	t.Parallel()

	query := clientable.NewQuery().
		Where("name", "LIKE", "a%").
		WhereIn("id", 1, 2).
		OrderBy("created_at", "DESC").
		OrderBy("id", "sideways").
		Limit(5).
		Page(2).
		PerPage(20)

	assert.False(t, query.HasSelect())
	assert.Equal(t, []clientable.Filter{
		{Key: "name", Operator: clientable.OpLike, Value: "a%"},
		{Key: "id", Operator: clientable.OpIn, Value: []interface{}{1, 2}},
	}, query.Filters())
	assert.Equal(t, []clientable.Order{
		{Key: "created_at", Direction: clientable.SortDesc},
		{Key: "id", Direction: clientable.SortAsc},
	}, query.Orders())
	assert.Equal(t, 5, query.LimitValue())
	assert.Equal(t, 2, query.PageValue())
	assert.Equal(t, 20, query.PerPageValue())

	assert.True(t, query.SetSelect([]string{}).HasSelect())
	assert.False(t, query.Select("id").SetSelect(nil).HasSelect())
}

func TestParseProtocolVersion(t *testing.T) {
	t.Parallel()

	version, err := clientable.ParseProtocolVersion("")
	assert.NoError(t, err)
	assert.Equal(t, clientable.V2, version)

	version, err = clientable.ParseProtocolVersion(" V1 ")
	assert.NoError(t, err)
	assert.Equal(t, clientable.V1, version)
	assert.False(t, version.SupportsBatch())

	_, err = clientable.ParseProtocolVersion("v3")
	assert.ErrorIs(t, err, clientable.ErrUnknownProtocolVersion)
}
