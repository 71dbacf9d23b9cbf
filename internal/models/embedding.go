package models

import (
	"errors"
	"fmt"
	"math"
)

// Errors returned by ParseEmbedding. All of them mean "skip this vector".
var (
	ErrMissingEmbedding    = errors.New("embedding missing")
	ErrNonNumericEmbedding = errors.New("embedding has non-numeric entries")
	ErrNotFlatEmbedding    = errors.New("embedding is not a flat vector")
	ErrDimensionMismatch   = errors.New("embedding dimension mismatch")
)

// ParseEmbedding converts a stored embedding into a vector of exactly dim
// entries. raw may be []float32, []float64 or []any holding numbers, which is
// what the CBOR decoder produces for an untyped field.
func ParseEmbedding(raw any, dim int) ([]float32, error) {
	var vec []float32

	switch v := raw.(type) {
	case nil:
		return nil, ErrMissingEmbedding
	case []float32:
		vec = v
	case []float64:
		vec = make([]float32, len(v))
		for i, f := range v {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("%w: index %d", ErrNonNumericEmbedding, i)
			}
			vec[i] = float32(f)
		}
	case []any:
		vec = make([]float32, len(v))
		for i, item := range v {
			f, err := toFloat(item)
			if err != nil {
				return nil, fmt.Errorf("%w: index %d", err, i)
			}
			vec[i] = f
		}
	default:
		return nil, fmt.Errorf("%w: got %T", ErrNotFlatEmbedding, raw)
	}

	if len(vec) == 0 {
		return nil, ErrMissingEmbedding
	}
	if len(vec) != dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), dim)
	}
	return vec, nil
}

func toFloat(item any) (float32, error) {
	var f float64
	switch n := item.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case int32:
		f = float64(n)
	case uint32:
		f = float64(n)
	case []any, []float32, []float64:
		return 0, ErrNotFlatEmbedding
	default:
		return 0, ErrNonNumericEmbedding
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrNonNumericEmbedding
	}
	return float32(f), nil
}
