package driver

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// TypeConversionError reports a Neo4j result value of an unexpected type.
type TypeConversionError struct {
	Expected string
	Actual   string
	Field    string
}

func (e *TypeConversionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("type conversion error for field %q: expected %s, got %s", e.Field, e.Expected, e.Actual)
	}
	return fmt.Sprintf("type conversion error: expected %s, got %s", e.Expected, e.Actual)
}

// As asserts a result value to T. A nil value never converts.
func As[T any](v any) (T, bool) {
	t, ok := v.(T)
	return t, ok
}

// Must asserts a result value to T, naming field in the error.
func Must[T any](v any, field string) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, &TypeConversionError{
			Expected: fmt.Sprintf("%T", zero),
			Actual:   fmt.Sprintf("%T", v),
			Field:    field,
		}
	}
	return t, nil
}

// AsTime converts a stored temporal value. Neo4j returns DATETIME properties
// as time.Time; RFC3339 strings are accepted too.
func AsTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case dbtype.LocalDateTime:
		return t.Time(), true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	default:
		return time.Time{}, false
	}
}

// recordString reads a string column, returning "" when absent.
func recordString(record *db.Record, key string) string {
	v, _ := record.Get(key)
	s, _ := As[string](v)
	return s
}

// recordInt reads an integer column, returning 0 when absent.
func recordInt(record *db.Record, key string) int64 {
	v, _ := record.Get(key)
	n, _ := As[int64](v)
	return n
}
