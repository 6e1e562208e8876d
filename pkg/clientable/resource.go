package clientable

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/fivetwenty-io/clientable/internal/constants"
)

// Resource is a single decoded entity. A nil Resource means "no resource".
type Resource map[string]interface{}

// Get returns the value stored under key.
func (r Resource) Get(key string) interface{} {
	return r[key]
}

// Has reports whether key is present.
func (r Resource) Has(key string) bool {
	_, ok := r[key]

	return ok
}

// ID returns the id field formatted as a string.
func (r Resource) ID() string {
	return formatValue(r[constants.DefaultIDKey])
}

// String returns the value under key formatted as a string.
func (r Resource) String(key string) string {
	return formatValue(r[key])
}

// Int returns the value under key as an int64, zero when absent or not numeric.
func (r Resource) Int(key string) int64 {
	if number, ok := r[key].(json.Number); ok {
		if integer, err := number.Int64(); err == nil {
			return integer
		}
	}

	number, ok := ToFloat(r[key])
	if !ok {
		return 0
	}

	return int64(number)
}

// Float returns the value under key as a float64, zero when absent or not numeric.
func (r Resource) Float(key string) float64 {
	number, _ := ToFloat(r[key])

	return number
}

// Decode copies the resource into out, matching fields by their json tags.
func (r Resource) Decode(out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("creating resource decoder: %w", err)
	}

	err = decoder.Decode(map[string]interface{}(r))
	if err != nil {
		return fmt.Errorf("decoding resource: %w", err)
	}

	return nil
}

// ResourceCollection is an ordered list of resources as returned by the service.
// Lookups are safe for concurrent use.
type ResourceCollection struct {
	items []Resource

	mu    sync.Mutex
	index map[string]map[string]Resource
}

// NewResourceCollection wraps resources, preserving their order.
func NewResourceCollection(items ...Resource) *ResourceCollection {
	return &ResourceCollection{items: items}
}

// Items returns the resources in server order.
func (c *ResourceCollection) Items() []Resource {
	return c.items
}

// Len returns the number of resources.
func (c *ResourceCollection) Len() int {
	return len(c.items)
}

// IsEmpty reports whether the collection holds no resources.
func (c *ResourceCollection) IsEmpty() bool {
	return len(c.items) == 0
}

// First returns the first resource, nil when empty.
func (c *ResourceCollection) First() Resource {
	if len(c.items) == 0 {
		return nil
	}

	return c.items[0]
}

// GetResource looks a resource up by the value of key (default "id").
// The keyed index is built on first use; later duplicates win.
func (c *ResourceCollection) GetResource(value interface{}, key ...string) Resource {
	indexKey := constants.DefaultIDKey
	if len(key) > 0 && key[0] != "" {
		indexKey = key[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index == nil {
		c.index = make(map[string]map[string]Resource)
	}

	keyed, ok := c.index[indexKey]
	if !ok {
		keyed = make(map[string]Resource, len(c.items))
		for _, item := range c.items {
			if item.Has(indexKey) {
				keyed[item.String(indexKey)] = item
			}
		}

		c.index[indexKey] = keyed
	}

	return keyed[formatValue(value)]
}

// Pluck maps the value of key to the value of column for every resource.
func (c *ResourceCollection) Pluck(column, key string) map[string]interface{} {
	out := make(map[string]interface{}, len(c.items))
	for _, item := range c.items {
		out[item.String(key)] = item.Get(column)
	}

	return out
}

// IDs returns the id of every resource in order.
func (c *ResourceCollection) IDs() []string {
	ids := make([]string, 0, len(c.items))
	for _, item := range c.items {
		ids = append(ids, item.ID())
	}

	return ids
}

// MarshalJSON encodes the collection as a JSON array.
func (c *ResourceCollection) MarshalJSON() ([]byte, error) {
	if c.items == nil {
		return []byte("[]"), nil
	}

	return json.Marshal(c.items)
}

// ToFloat converts a decoded JSON scalar to a float64.
func ToFloat(value interface{}) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case json.Number:
		number, err := typed.Float64()

		return number, err == nil
	case string:
		number, err := strconv.ParseFloat(typed, 64)

		return number, err == nil
	case bool:
		if typed {
			return 1, true
		}

		return 0, true
	default:
		return 0, false
	}
}

// formatValue renders ids the way they appear in URIs: integral floats lose their fraction.
func formatValue(value interface{}) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case json.Number:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

// FormatID renders an id for use in a URI path segment.
func FormatID(id interface{}) string {
	return formatValue(id)
}
