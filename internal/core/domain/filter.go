package domain

// Filter restricts query candidates by their metadata.
// A nil Filter means no restriction. Adapters may compile a Filter to
// their backend's native predicate, but the observable semantics are
// always those of Matches.
type Filter interface {
	Matches(metadata map[string]any) bool
}

// EqualsFilter matches records whose metadata field equals a value.
// A list-valued field matches when any element equals the value.
type EqualsFilter struct {
	Field string
	Value any
}

// Equals builds an equality filter on a single metadata field
func Equals(field string, value any) EqualsFilter {
	return EqualsFilter{Field: field, Value: value}
}

// Matches implements Filter
func (f EqualsFilter) Matches(metadata map[string]any) bool {
	value, ok := metadata[f.Field]
	if !ok {
		return false
	}
	return fieldContains(value, f.Value)
}

// OneOfFilter matches records whose metadata field equals any of the
// listed values.
type OneOfFilter struct {
	Field  string
	Values []any
}

// OneOf builds a membership filter on a single metadata field
func OneOf(field string, values ...any) OneOfFilter {
	return OneOfFilter{Field: field, Values: values}
}

// Matches implements Filter
func (f OneOfFilter) Matches(metadata map[string]any) bool {
	value, ok := metadata[f.Field]
	if !ok {
		return false
	}
	for _, want := range f.Values {
		if fieldContains(value, want) {
			return true
		}
	}
	return false
}

// AndFilter matches records satisfying every child filter.
// An empty AndFilter matches everything.
type AndFilter struct {
	Filters []Filter
}

// And combines filters conjunctively
func And(filters ...Filter) AndFilter {
	return AndFilter{Filters: filters}
}

// Matches implements Filter
func (f AndFilter) Matches(metadata map[string]any) bool {
	for _, child := range f.Filters {
		if child == nil {
			continue
		}
		if !child.Matches(metadata) {
			return false
		}
	}
	return true
}

// fieldContains reports whether a metadata value equals want, treating
// list-valued fields as membership checks.
func fieldContains(value any, want any) bool {
	switch v := value.(type) {
	case []string:
		for _, item := range v {
			if scalarEquals(item, want) {
				return true
			}
		}
		return false
	case []any:
		for _, item := range v {
			if scalarEquals(item, want) {
				return true
			}
		}
		return false
	default:
		return scalarEquals(v, want)
	}
}

// scalarEquals compares two scalar values.
// Numeric values compare by magnitude regardless of Go type, so a
// metadata int matches a filter float64 (JSON decoding produces
// float64 for all numbers).
func scalarEquals(a, b any) bool {
	fa, aIsNum := toFloat64(a)
	fb, bIsNum := toFloat64(b)
	if aIsNum || bIsNum {
		return aIsNum && bIsNum && fa == fb
	}
	return a == b
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
