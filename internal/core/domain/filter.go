package domain

// Matches reports whether chunk metadata satisfies the filter.
//
// Every criterion key must be present in the metadata. A scalar
// criterion matches by equality; a slice criterion matches when the
// metadata value equals any element. A slice metadata value matches
// when any of its elements satisfies the criterion, so a chunk tagged
// with several categories is found by a filter on any one of them.
// Numeric values are compared by value, so an int criterion matches a
// float64 that survived a JSON round trip. An empty filter matches
// everything.
func (f Filter) Matches(metadata map[string]any) bool {
	for key, want := range f {
		got, ok := metadata[key]
		if !ok {
			return false
		}
		if !criterionMatches(want, got) {
			return false
		}
	}
	return true
}

func criterionMatches(want, got any) bool {
	// A list metadata value matches when any element does.
	switch g := got.(type) {
	case []any:
		for _, v := range g {
			if criterionMatches(want, v) {
				return true
			}
		}
		return false
	case []string:
		for _, v := range g {
			if criterionMatches(want, v) {
				return true
			}
		}
		return false
	}

	switch w := want.(type) {
	case []any:
		for _, candidate := range w {
			if scalarEqual(candidate, got) {
				return true
			}
		}
		return false
	case []string:
		for _, candidate := range w {
			if scalarEqual(candidate, got) {
				return true
			}
		}
		return false
	default:
		return scalarEqual(want, got)
	}
}

// scalarEqual compares two scalar values, normalising numeric types.
func scalarEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		return bok && af == bf
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
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
