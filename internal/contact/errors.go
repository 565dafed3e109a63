package contact

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a contact does not exist or is not visible to the
	// caller. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("contact not found")
	// ErrStore is returned when the backing store fails to apply an operation.
	ErrStore = errors.New("operation did not succeed")
)

// ValidationError lists field-level problems keyed by the field's JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid contact: " + strings.Join(parts, "; ")
}
