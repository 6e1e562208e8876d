// Package request maps repository operations to HTTP method, path, query and body.
package request

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/fivetwenty-io/clientable/internal/constants"
	"github.com/fivetwenty-io/clientable/pkg/clientable"
)

// Operation identifies a repository operation.
type Operation int

const (
	OpGet Operation = iota
	OpGetByIDs
	OpList
	OpGetByQuery
	OpAggregate
	OpAdd
	OpBatchAdd
	OpUpdate
	OpBatchUpdate
	OpDelete
	OpDeleteByIDs
)

var operationNames = map[Operation]string{
	OpGet:         "get",
	OpGetByIDs:    "getByIds",
	OpList:        "list",
	OpGetByQuery:  "getByQuery",
	OpAggregate:   "aggregate",
	OpAdd:         "add",
	OpBatchAdd:    "batchAdd",
	OpUpdate:      "update",
	OpBatchUpdate: "batchUpdate",
	OpDelete:      "delete",
	OpDeleteByIDs: "deleteByIds",
}

// String implements fmt.Stringer.
func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}

	return fmt.Sprintf("operation(%d)", int(o))
}

// RequiresBatch reports whether the operation is unavailable on protocol versions
// without batch support. getByQuery shares the _batch path but is not gated.
func (o Operation) RequiresBatch() bool {
	switch o {
	case OpGetByIDs, OpBatchAdd, OpBatchUpdate, OpDeleteByIDs:
		return true
	default:
		return false
	}
}

// Target is what an operation addresses.
type Target struct {
	Resource   string
	Version    clientable.ProtocolVersion
	APIVersion string
	Query      clientable.Query
	ID         interface{}
	IDs        []interface{}
	Body       interface{}
}

// Request is a built operation, relative to the service base URI.
type Request struct {
	Operation Operation
	Method    string
	Path      string
	RawQuery  string
	Body      interface{}
}

// URI joins path and query. No "?" is added for an empty query.
func (r *Request) URI() string {
	if r.RawQuery == "" {
		return r.Path
	}

	return r.Path + "?" + r.RawQuery
}

// ParseSelect normalizes a select list: a list containing the wildcard means
// all fields and collapses to empty. Any other list is returned unchanged.
func ParseSelect(fields []string) []string {
	if len(fields) == 0 {
		return fields
	}

	if slices.Contains(fields, clientable.WildcardSelect) {
		return []string{}
	}

	return fields
}

// NormalizeQuery applies ParseSelect to the query's select list when one is set.
func NormalizeQuery(query clientable.Query) clientable.Query {
	if !query.HasSelect() {
		return query
	}

	return query.SetSelect(ParseSelect(query.Selects()))
}

// Build produces the request for op. Batch-shaped operations fail with
// clientable.ErrUnsupportedOperation on versions without batch support.
func Build(op Operation, target Target, serializer clientable.QuerySerializer) (*Request, error) {
	version := target.Version
	if version == "" {
		version = clientable.V2
	}

	if op.RequiresBatch() && !version.SupportsBatch() {
		return nil, fmt.Errorf("%w: %s on %s", clientable.ErrUnsupportedOperation, op, version)
	}

	if strings.TrimSpace(target.Resource) == "" {
		return nil, fmt.Errorf("%w: %s", clientable.ErrResourceRequired, op)
	}

	apiVersion := target.APIVersion
	if apiVersion == "" {
		apiVersion = constants.DefaultAPIVersion
	}

	base := apiVersion + "/" + target.Resource
	req := &Request{Operation: op}

	switch op {
	case OpGet:
		req.Method = http.MethodGet
		req.Path = base + "/" + escapeID(target.ID)
		req.RawQuery = serializer.Serialize(selectWith(target.Query), version)
	case OpGetByIDs:
		ids, err := joinIDs(target.IDs)
		if err != nil {
			return nil, err
		}

		req.Method = http.MethodGet
		req.Path = base + "/" + ids + "/" + constants.BatchSuffix
		req.RawQuery = serializer.Serialize(selectWith(target.Query), version)
	case OpList:
		req.Method = http.MethodGet
		req.Path = base
		req.RawQuery = serializer.Serialize(NormalizeQuery(target.Query), version)
	case OpGetByQuery:
		req.Method = http.MethodGet
		req.Path = base + "/" + constants.BatchSuffix
		req.RawQuery = serializer.Serialize(NormalizeQuery(target.Query), version)
	case OpAggregate:
		req.Method = http.MethodGet
		req.Path = base + "/" + constants.AggregateSuffix
		req.RawQuery = serializer.Serialize(NormalizeQuery(target.Query), version)
	case OpAdd:
		req.Method = http.MethodPost
		req.Path = base
		req.Body = target.Body
	case OpBatchAdd:
		req.Method = http.MethodPost
		req.Path = base + "/" + constants.BatchSuffix
		req.Body = target.Body
	case OpUpdate:
		req.Method = http.MethodPut
		req.Path = base + "/" + escapeID(target.ID)
		req.Body = target.Body
	case OpBatchUpdate:
		req.Method = http.MethodPut
		req.Path = base + "/" + constants.BatchSuffix
		req.Body = target.Body
	case OpDelete:
		req.Method = http.MethodDelete
		req.Path = base + "/" + escapeID(target.ID)
	case OpDeleteByIDs:
		ids, err := joinIDs(target.IDs)
		if err != nil {
			return nil, err
		}

		req.Method = http.MethodDelete
		req.Path = base + "/" + ids + "/" + constants.BatchSuffix
	default:
		return nil, fmt.Errorf("%w: %s", clientable.ErrUnsupportedOperation, op)
	}

	return req, nil
}

// selectWith keeps only the select and with clauses, as single-resource reads send no filters.
func selectWith(query clientable.Query) clientable.Query {
	return clientable.NewQuery().
		SetSelect(ParseSelect(query.Selects())).
		With(query.Relations()...)
}

func escapeID(id interface{}) string {
	return url.PathEscape(clientable.FormatID(id))
}

func joinIDs(ids []interface{}) (string, error) {
	if len(ids) == 0 {
		return "", clientable.ErrEmptyIDs
	}

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, escapeID(id))
	}

	return strings.Join(parts, constants.IDSeparator), nil
}
