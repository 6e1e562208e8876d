package apiclient

import (
	"context"

	"github.com/fivetwenty-io/clientable/pkg/clientable"
)

// Aggregate methods understood by services.
const (
	AggregateCount = "count"
	AggregateSum   = "sum"
	AggregateAvg   = "avg"
	AggregateMin   = "min"
	AggregateMax   = "max"
)

// Count counts matching resources. The key defaults to "*".
func (a *API) Count(ctx context.Context, key ...string) (int64, error) {
	countKey := clientable.WildcardSelect
	if len(key) > 0 && key[0] != "" {
		countKey = key[0]
	}

	value, err := a.Aggregate(ctx, AggregateCount, countKey)
	number, _ := clientable.ToFloat(value)

	return int64(number), err
}

// Sum adds key over matching resources.
func (a *API) Sum(ctx context.Context, key string) (float64, error) {
	return a.numeric(ctx, AggregateSum, key)
}

// Avg averages key over matching resources.
func (a *API) Avg(ctx context.Context, key string) (float64, error) {
	return a.numeric(ctx, AggregateAvg, key)
}

// Min returns the smallest value of key. Values need not be numeric.
func (a *API) Min(ctx context.Context, key string) (interface{}, error) {
	return a.Aggregate(ctx, AggregateMin, key)
}

// Max returns the largest value of key. Values need not be numeric.
func (a *API) Max(ctx context.Context, key string) (interface{}, error) {
	return a.Aggregate(ctx, AggregateMax, key)
}

// Aggregate computes method over a single key, 0 when the service returns none.
func (a *API) Aggregate(ctx context.Context, method, key string) (interface{}, error) {
	repo, err := a.repository()
	if err != nil {
		return 0, err
	}

	return repo.AggregateValue(ctx, a.query, method, key)
}

// AggregateMany computes method over several keys, empty when the service returns none.
func (a *API) AggregateMany(ctx context.Context, method string, keys ...string) (map[string]interface{}, error) {
	repo, err := a.repository()
	if err != nil {
		return map[string]interface{}{}, err
	}

	return repo.AggregateValues(ctx, a.query, method, keys)
}

func (a *API) numeric(ctx context.Context, method, key string) (float64, error) {
	value, err := a.Aggregate(ctx, method, key)
	number, _ := clientable.ToFloat(value)

	return number, err
}
