package model

import (
	"strconv"
	"strings"
)

// SelectorKind is the strategy used to pick the answers of one factor.
type SelectorKind string

const (
	// SelectPrefix matches every question id starting with Prefix.
	SelectPrefix SelectorKind = "prefix"
	// SelectRange matches ids made of KeyPrefix followed by a number in [Min, Max].
	SelectRange SelectorKind = "range"
)

// Selector picks the question ids that contribute to a factor.
type Selector struct {
	Kind      SelectorKind `json:"type"`
	Prefix    string       `json:"prefix,omitempty"`
	KeyPrefix string       `json:"key_prefix,omitempty"`
	Min       int          `json:"min,omitempty"`
	Max       int          `json:"max,omitempty"`
}

// ByPrefix returns a prefix selector.
func ByPrefix(prefix string) Selector {
	return Selector{Kind: SelectPrefix, Prefix: prefix}
}

// ByRange returns a numeric range selector over keyPrefix<n>, min <= n <= max.
func ByRange(keyPrefix string, min, max int) Selector {
	return Selector{Kind: SelectRange, KeyPrefix: keyPrefix, Min: min, Max: max}
}

// Match reports whether the question id belongs to the selection.
func (s Selector) Match(id string) bool {
	switch s.Kind {
	case SelectPrefix:
		return s.Prefix != "" && strings.HasPrefix(id, s.Prefix)
	case SelectRange:
		rest, ok := strings.CutPrefix(id, s.KeyPrefix)
		if !ok || rest == "" {
			return false
		}
		n, err := strconv.Atoi(rest)
		if err != nil || rest[0] == '+' || rest[0] == '-' {
			return false
		}
		return n >= s.Min && n <= s.Max
	default:
		return false
	}
}

// FactorQuery is a request for one factor sub-score.
type FactorQuery struct {
	Factor   string   `json:"factor_code"`
	Label    string   `json:"label"`
	Selector Selector `json:"selection"`
}
