package domain

import (
	"fmt"
	"strings"
)

// List names one of the operator-declared domain sets.
type List string

const (
	ListMain        List = "main"
	ListAlternative List = "alternative"
)

// Lists returns the operator-declared lists in display order.
func Lists() []List { return []List{ListMain, ListAlternative} }

// ParseList converts a string into a List. Accepts "main", "alternative"
// and the short form "alt", case-insensitively.
func ParseList(s string) (List, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "main":
		return ListMain, nil
	case "alternative", "alt":
		return ListAlternative, nil
	default:
		return "", fmt.Errorf("unsupported domain list: %q", s)
	}
}

// Validate reports whether l is one of the known lists.
func (l List) Validate() error {
	switch l {
	case ListMain, ListAlternative:
		return nil
	default:
		return fmt.Errorf("unsupported domain list: %q", string(l))
	}
}
