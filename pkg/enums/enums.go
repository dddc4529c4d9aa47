// Package enums holds the string enums persisted in Postgres text columns.
// Parsing is exact: stored values are always the canonical spelling.
package enums

import (
	"fmt"
	"slices"
)

func parse[T ~string](kind, value string, valid []T) (T, error) {
	if v := T(value); slices.Contains(valid, v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, value)
}
