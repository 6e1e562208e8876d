package clientable

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/clientable/internal/constants"
)

// Response is the uniform envelope every dispatched operation produces,
// whether the service answered, rejected the call or was never reached.
// A Response is immutable once built.
type Response struct {
	statusCode int
	header     http.Header
	original   []byte
	version    ProtocolVersion

	contents map[string]json.RawMessage
	code     int
	hasCode  bool
	message  string
}

// NewResponse decodes an HTTP response body. Decoding never fails: a body
// that is not a JSON object yields an envelope with empty data and meta.
func NewResponse(statusCode int, header http.Header, body []byte, version ProtocolVersion) *Response {
	response := &Response{
		statusCode: statusCode,
		header:     header,
		original:   body,
		version:    version,
		contents:   map[string]json.RawMessage{},
	}

	if response.header == nil {
		response.header = http.Header{}
	}

	if len(bytes.TrimSpace(body)) > 0 {
		contents := map[string]json.RawMessage{}
		if err := json.Unmarshal(body, &contents); err == nil && contents != nil {
			response.contents = contents
		}
	}

	response.code, response.hasCode = decodeCode(response.contents["code"])
	response.message = decodeMessage(response.contents)

	return response
}

// NewFailureResponse builds a synthetic envelope for a call that produced no
// usable HTTP response. The body mirrors the wire shape so callers see the
// same fields as for a real service failure.
func NewFailureResponse(statusCode, code int, message string, version ProtocolVersion) *Response {
	body, err := json.Marshal(map[string]interface{}{
		"code": code,
		"msg":  message,
		"data": []interface{}{},
		"meta": []interface{}{},
	})
	if err != nil {
		body = nil
	}

	response := NewResponse(statusCode, nil, body, version)
	response.message = message

	return response
}

func decodeCode(raw json.RawMessage) (int, bool) {
	if isAbsent(raw) {
		return 0, false
	}

	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, true
	}

	switch typed := value.(type) {
	case float64:
		return int(typed), true
	case string:
		return leadingInt(typed), true
	case bool:
		if typed {
			return 1, true
		}

		return 0, true
	default:
		return 0, true
	}
}

// leadingInt parses the leading integer of s, zero when there is none.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)

	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || (end == 0 && (c == '-' || c == '+')) {
			end++

			continue
		}

		break
	}

	number, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}

	return number
}

func decodeMessage(contents map[string]json.RawMessage) string {
	for _, key := range []string{"msg", "message"} {
		raw, ok := contents[key]
		if !ok || isAbsent(raw) {
			continue
		}

		var message string
		if err := json.Unmarshal(raw, &message); err == nil {
			return message
		}

		return strings.TrimSpace(string(raw))
	}

	return ""
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)

	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// StatusCode returns the HTTP status of the underlying response.
func (r *Response) StatusCode() int {
	return r.statusCode
}

// Header returns the response headers.
func (r *Response) Header() http.Header {
	return r.header
}

// Version returns the protocol version the envelope is decoded under.
func (r *Response) Version() ProtocolVersion {
	return r.version
}

// IsStatusSuccess reports whether the HTTP status is 2xx.
func (r *Response) IsStatusSuccess() bool {
	return r.statusCode >= constants.HTTPStatusOK && r.statusCode < constants.HTTPStatusMultipleChoices
}

// ServiceStatus is the payload code for a 2xx response (200 when absent)
// and the HTTP status otherwise.
func (r *Response) ServiceStatus() int {
	if !r.IsStatusSuccess() {
		return r.statusCode
	}

	if !r.hasCode {
		return constants.HTTPStatusOK
	}

	return r.code
}

// IsServiceSuccess reports whether the service status is 2xx.
// Only then is the data meaningful.
func (r *Response) IsServiceSuccess() bool {
	status := r.ServiceStatus()

	return status >= constants.HTTPStatusOK && status < constants.HTTPStatusMultipleChoices
}

// Message returns msg, else message, else "".
func (r *Response) Message() string {
	return r.message
}

// ErrorMessage returns the message when the call failed and "" otherwise.
func (r *Response) ErrorMessage() string {
	if r.IsServiceSuccess() {
		return ""
	}

	return r.message
}

// RawData returns the undecoded data member, nil when absent.
func (r *Response) RawData() json.RawMessage {
	raw := r.contents["data"]
	if isAbsent(raw) {
		return nil
	}

	return raw
}

// Data returns the decoded data member, nil when absent.
func (r *Response) Data() interface{} {
	return decodeValue(r.RawData())
}

// Meta returns the decoded meta member, empty when absent or not an object.
func (r *Response) Meta() map[string]interface{} {
	meta, ok := decodeValue(r.contents["meta"]).(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}

	return meta
}

// Contents returns the whole decoded body, empty when it is not a JSON object.
func (r *Response) Contents() map[string]interface{} {
	out := make(map[string]interface{}, len(r.contents))
	for key, raw := range r.contents {
		out[key] = decodeValue(raw)
	}

	return out
}

// OriginalContents returns the body exactly as received.
func (r *Response) OriginalContents() []byte {
	return r.original
}

// ToResource returns data as a Resource when the call succeeded and nil otherwise.
// A successful response without object data gives an empty Resource.
func (r *Response) ToResource() Resource {
	if !r.IsServiceSuccess() {
		return nil
	}

	resource, ok := decodeValue(r.RawData()).(map[string]interface{})
	if !ok {
		return Resource{}
	}

	return Resource(resource)
}

// ToResourceCollection builds a collection from data regardless of success.
// Data that is neither an array nor an object gives an empty collection.
func (r *Response) ToResourceCollection() *ResourceCollection {
	return makeResourceCollection(r.RawData())
}

// ToPaginator reconstructs pagination. V1 nests the metadata beside
// data.data; V2 carries it in meta.paginator.
func (r *Response) ToPaginator() *Paginator {
	var (
		items    json.RawMessage
		metadata map[string]interface{}
	)

	if r.version == V1 {
		nested := map[string]json.RawMessage{}
		_ = json.Unmarshal(r.RawData(), &nested)

		items = nested["data"]
		metadata = map[string]interface{}{}

		for key, raw := range nested {
			if key != "data" {
				metadata[key] = decodeValue(raw)
			}
		}

		if metadata["current_page"] == nil {
			metadata["current_page"] = metadata["page"]
		}
	} else {
		items = r.RawData()
		metadata, _ = r.Meta()["paginator"].(map[string]interface{})
	}

	return &Paginator{
		Items:       makeResourceCollection(items),
		Total:       intOr(metadata["total"], 0),
		PerPage:     intOr(metadata["per_page"], constants.DefaultPerPage),
		CurrentPage: intOr(metadata["current_page"], constants.DefaultCurrentPage),
		Path:        stringOr(metadata["path"], ""),
	}
}

// ToError returns the service failure as an *APIError, nil when the call succeeded.
func (r *Response) ToError() *APIError {
	if r.IsServiceSuccess() {
		return nil
	}

	code := constants.HTTPStatusBadRequest
	if r.hasCode {
		code = r.code
	}

	return &APIError{
		Code:    code,
		Message: r.message,
		Meta:    r.Meta(),
	}
}

// Err is ToError as a plain error, so a successful response yields a nil interface.
func (r *Response) Err() error {
	if apiErr := r.ToError(); apiErr != nil {
		return apiErr
	}

	return nil
}

// decodeValue keeps numbers as json.Number so integer ids beyond 2^53 stay exact.
func decodeValue(raw json.RawMessage) interface{} {
	if isAbsent(raw) {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return nil
	}

	return value
}

// makeResourceCollection iterates a JSON array, or the values of a JSON
// object in document order. Items that are not objects are skipped.
func makeResourceCollection(raw json.RawMessage) *ResourceCollection {
	collection := NewResourceCollection()
	if isAbsent(raw) {
		return collection
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	token, err := decoder.Token()
	if err != nil {
		return collection
	}

	delim, ok := token.(json.Delim)
	if !ok || (delim != '[' && delim != '{') {
		return collection
	}

	for decoder.More() {
		if delim == '{' {
			if _, err := decoder.Token(); err != nil {
				return collection
			}
		}

		var item interface{}
		if err := decoder.Decode(&item); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return collection
		}

		if resource, ok := item.(map[string]interface{}); ok {
			collection.items = append(collection.items, Resource(resource))
		}
	}

	return collection
}

func intOr(value interface{}, fallback int) int {
	if value == nil {
		return fallback
	}

	number, ok := ToFloat(value)
	if !ok {
		return fallback
	}

	return int(number)
}

func stringOr(value interface{}, fallback string) string {
	if value == nil {
		return fallback
	}

	return formatValue(value)
}
