package enums

import (
	"fmt"
	"slices"
	"strings"
)

// set lists the members of a string enum in declaration order.
type set[T ~string] []T

func (s set[T]) has(v T) bool {
	return slices.Contains(s, v)
}

// parse matches raw against the members after trimming and lowercasing.
func (s set[T]) parse(kind, raw string) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(raw)))
	if s.has(v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
