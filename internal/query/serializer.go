// Package query encodes clientable queries as URI query strings.
package query

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/clientable/pkg/clientable"
)

// Serializer is the default clientable.QuerySerializer. Output is
// deterministic: keys are sorted by url.Values encoding.
type Serializer struct{}

var _ clientable.QuerySerializer = Serializer{}

// New returns the default serializer.
func New() Serializer {
	return Serializer{}
}

// Serialize implements clientable.QuerySerializer.
func (Serializer) Serialize(query clientable.Query, version clientable.ProtocolVersion) string {
	values := url.Values{}

	if version == clientable.V1 {
		encodeV1(values, query)
	} else {
		encodeV2(values, query)
	}

	encodePaging(values, query)

	return values.Encode()
}

func encodeV2(values url.Values, query clientable.Query) {
	if selects := query.Selects(); len(selects) > 0 {
		values.Set("select", strings.Join(selects, ","))
	}

	if relations := query.Relations(); len(relations) > 0 {
		values.Set("with", strings.Join(relations, ","))
	}

	for _, filter := range query.Filters() {
		values.Add(fmt.Sprintf("filter[%s][%s]", filter.Key, filter.Operator), FormatValue(filter.Value))
	}

	if orders := query.Orders(); len(orders) > 0 {
		values.Set("order_by", joinOrders(orders))
	}

	for _, aggregate := range query.Aggregates() {
		values.Add(fmt.Sprintf("aggregate[%s]", aggregate.Method), strings.Join(aggregate.Keys, ","))
	}
}

func encodeV1(values url.Values, query clientable.Query) {
	if selects := query.Selects(); len(selects) > 0 {
		values.Set("fields", strings.Join(selects, ","))
	}

	if relations := query.Relations(); len(relations) > 0 {
		values.Set("include", strings.Join(relations, ","))
	}

	for _, filter := range query.Filters() {
		key := filter.Key
		if filter.Operator != clientable.OpEq {
			key = filter.Key + "__" + operatorName(filter.Operator)
		}

		values.Add(key, FormatValue(filter.Value))
	}

	if orders := query.Orders(); len(orders) > 0 {
		values.Set("sort", joinOrders(orders))
	}

	for _, aggregate := range query.Aggregates() {
		values.Add("aggregate", aggregate.Method+":"+strings.Join(aggregate.Keys, ","))
	}
}

func encodePaging(values url.Values, query clientable.Query) {
	if page := query.PageValue(); page > 0 {
		values.Set("page", strconv.Itoa(page))
	}

	if perPage := query.PerPageValue(); perPage > 0 {
		values.Set("per_page", strconv.Itoa(perPage))
	}

	if limit := query.LimitValue(); limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
}

func joinOrders(orders []clientable.Order) string {
	parts := make([]string, 0, len(orders))
	for _, order := range orders {
		if order.Direction == clientable.SortDesc {
			parts = append(parts, "-"+order.Key)
		} else {
			parts = append(parts, order.Key)
		}
	}

	return strings.Join(parts, ",")
}

// v1 spells operators as words in the parameter suffix.
var v1Operators = map[string]string{
	clientable.OpNe:   "ne",
	clientable.OpGt:   "gt",
	clientable.OpGte:  "gte",
	clientable.OpLt:   "lt",
	clientable.OpLte:  "lte",
	clientable.OpLike: "like",
	clientable.OpIn:   "in",
}

func operatorName(operator string) string {
	if name, ok := v1Operators[operator]; ok {
		return name
	}

	return operator
}

// FormatValue renders a filter value. Lists become comma separated.
func FormatValue(value interface{}) string {
	switch typed := value.(type) {
	case []interface{}:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			parts = append(parts, clientable.FormatID(item))
		}

		return strings.Join(parts, ",")
	case []string:
		return strings.Join(typed, ",")
	case []int:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			parts = append(parts, strconv.Itoa(item))
		}

		return strings.Join(parts, ",")
	case map[string]interface{}:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}

		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, key+":"+clientable.FormatID(typed[key]))
		}

		return strings.Join(parts, ",")
	default:
		return clientable.FormatID(value)
	}
}
