// Package clientable provides the types and capability interfaces of a generic
// REST resource client.
//
// # Overview
//
// A remote service exposes resources under a versioned REST convention:
//
//	{apiVersion}/{resource}                 list, create
//	{apiVersion}/{resource}/{id}            get, update, delete
//	{apiVersion}/{resource}/{id,id}/_batch  batch get, batch delete
//	{apiVersion}/{resource}/_batch          query, batch create, batch update
//	{apiVersion}/{resource}/_aggregate      count, sum, avg, min, max
//
// Every response, whether it is a success, a validation error, a server error
// or a transport failure, is normalized into a single Response envelope. The
// envelope exposes typed projections (Resource, ResourceCollection, Paginator)
// and an APIError when the service reported a failure.
//
// Most consumers construct an apiclient.API, which accumulates a Query and
// forwards terminal calls to a Repository:
//
//	reg := registry.New()
//	_ = reg.Register("orders", "https://orders.example.com/api")
//
//	orders, err := apiclient.Resource(ctx, reg, "orders", "order")
//	if err != nil { log.Fatal(err) }
//
//	order, err := orders.Select("id", "total").Find(ctx, 42)
//
// # Protocol versions
//
// ProtocolVersion selects the query-string shape and the available operations.
// V1 has no batch operations; calling one fails with ErrUnsupportedOperation
// before any request is sent. The API version (the first URI segment) is a
// separate routing concern configured independently.
//
// # Errors
//
// Transport failures never surface as Go errors from a dispatched operation;
// they are collapsed into a Response with a 500 (or 400) status. Service
// failures surface as *APIError from write operations. IsValidationError and
// IsServerError branch on the conventional 422 and 500 codes.
package clientable
