package clientable

import (
	"slices"
	"strings"
)

// Filter operators understood by the default serializer.
const (
	OpEq   = "="
	OpNe   = "!="
	OpGt   = ">"
	OpGte  = ">="
	OpLt   = "<"
	OpLte  = "<="
	OpLike = "like"
	OpIn   = "in"
)

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// WildcardSelect selects every field. A select list containing it is sent as "all fields".
const WildcardSelect = "*"

// Filter is a single where clause.
type Filter struct {
	Key      string
	Operator string
	Value    interface{}
}

// Order is a single order-by clause.
type Order struct {
	Key       string
	Direction string
}

// Aggregate requests a server-side aggregate method over keys.
type Aggregate struct {
	Method string
	Keys   []string
}

// Query is the accumulated select/with/filter/aggregate state of a call.
//
// Query is an immutable value: every builder method returns a new Query and
// never touches the receiver, so a base query can be shared and extended
// freely.
type Query struct {
	selects    []string
	with       []string
	filters    []Filter
	orders     []Order
	aggregates []Aggregate
	limit      int
	page       int
	perPage    int
}

// NewQuery returns an empty query.
func NewQuery() Query {
	return Query{}
}

// Select replaces the selected fields. No fields means all fields.
func (q Query) Select(fields ...string) Query {
	q.selects = slices.Clone(fields)

	return q
}

// SetSelect replaces the selected fields with a slice. A nil slice clears the select.
func (q Query) SetSelect(fields []string) Query {
	q.selects = slices.Clone(fields)

	return q
}

// With appends related resources to expand, keeping their order.
func (q Query) With(relations ...string) Query {
	q.with = append(slices.Clone(q.with), relations...)

	return q
}

// Where adds a filter clause.
func (q Query) Where(key, operator string, value interface{}) Query {
	q.filters = append(slices.Clone(q.filters), Filter{Key: key, Operator: strings.ToLower(operator), Value: value})

	return q
}

// WhereEq adds an equality filter.
func (q Query) WhereEq(key string, value interface{}) Query {
	return q.Where(key, OpEq, value)
}

// WhereIn adds a membership filter.
func (q Query) WhereIn(key string, values ...interface{}) Query {
	return q.Where(key, OpIn, slices.Clone(values))
}

// OrderBy adds an order clause. Unknown directions sort ascending.
func (q Query) OrderBy(key, direction string) Query {
	direction = strings.ToLower(direction)
	if direction != SortDesc {
		direction = SortAsc
	}

	q.orders = append(slices.Clone(q.orders), Order{Key: key, Direction: direction})

	return q
}

// Limit caps the number of returned resources.
func (q Query) Limit(limit int) Query {
	q.limit = limit

	return q
}

// Page selects the page to fetch.
func (q Query) Page(page int) Query {
	q.page = page

	return q
}

// PerPage sets the page size.
func (q Query) PerPage(perPage int) Query {
	q.perPage = perPage

	return q
}

// WithAggregate attaches an aggregate method over keys.
func (q Query) WithAggregate(method string, keys ...string) Query {
	q.aggregates = append(slices.Clone(q.aggregates), Aggregate{Method: method, Keys: slices.Clone(keys)})

	return q
}

// HasSelect reports whether a select list was set.
func (q Query) HasSelect() bool {
	return q.selects != nil
}

// Selects returns a copy of the selected fields.
func (q Query) Selects() []string {
	return slices.Clone(q.selects)
}

// Relations returns a copy of the relations to expand.
func (q Query) Relations() []string {
	return slices.Clone(q.with)
}

// Filters returns a copy of the filter clauses.
func (q Query) Filters() []Filter {
	return slices.Clone(q.filters)
}

// Orders returns a copy of the order clauses.
func (q Query) Orders() []Order {
	return slices.Clone(q.orders)
}

// Aggregates returns a copy of the aggregate requests.
func (q Query) Aggregates() []Aggregate {
	out := make([]Aggregate, 0, len(q.aggregates))
	for _, aggregate := range q.aggregates {
		out = append(out, Aggregate{Method: aggregate.Method, Keys: slices.Clone(aggregate.Keys)})
	}

	return out
}

// LimitValue returns the limit, zero when unset.
func (q Query) LimitValue() int {
	return q.limit
}

// PageValue returns the page, zero when unset.
func (q Query) PageValue() int {
	return q.page
}

// PerPageValue returns the page size, zero when unset.
func (q Query) PerPageValue() int {
	return q.perPage
}

// QuerySerializer turns a query into a URI query string for a protocol version.
type QuerySerializer interface {
	Serialize(query Query, version ProtocolVersion) string
}

// QuerySerializerFunc adapts a function to QuerySerializer.
type QuerySerializerFunc func(query Query, version ProtocolVersion) string

// Serialize implements QuerySerializer.
func (f QuerySerializerFunc) Serialize(query Query, version ProtocolVersion) string {
	return f(query, version)
}
