// Package enums holds the string enums stored in Postgres and carried on the wire.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

// set lists every legal value of one enum, in declaration order.
type set[T ~string] []T

func (s set[T]) has(v T) bool { return slices.Contains(s, v) }

// parse trims raw and matches it exactly, or ignoring case when fold is set.
func (s set[T]) parse(kind, raw string, fold bool) (T, error) {
	raw = strings.TrimSpace(raw)
	for _, v := range s {
		if string(v) == raw || (fold && strings.EqualFold(string(v), raw)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
