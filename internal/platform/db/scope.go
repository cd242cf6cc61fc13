package db

import "strings"

// Scope selects which soft-delete state a read path returns. Every list and
// get operation takes one explicitly; there is no implicit global filter.
type Scope int

const (
	ActiveOnly Scope = iota
	DeletedOnly
	All
)

func (s Scope) String() string {
	switch s {
	case ActiveOnly:
		return "active"
	case DeletedOnly:
		return "deleted"
	case All:
		return "all"
	default:
		return "unknown"
	}
}

// ParseScope maps a query parameter to a Scope. Empty input means ActiveOnly.
func ParseScope(s string) (Scope, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "active":
		return ActiveOnly, true
	case "deleted":
		return DeletedOnly, true
	case "all":
		return All, true
	default:
		return ActiveOnly, false
	}
}

// Predicate returns a SQL condition on column for the scope, where
// deletedValue is the state string that marks a soft-deleted row. The value
// is a compile-time constant of the calling repository, never user input.
func (s Scope) Predicate(column, deletedValue string) string {
	switch s {
	case DeletedOnly:
		return column + " = '" + deletedValue + "'"
	case All:
		return "TRUE"
	default:
		return column + " <> '" + deletedValue + "'"
	}
}
