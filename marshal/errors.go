package marshal

import "fmt"

// RefError is the error Reader returns when a TYPE_REF back-reference
// cannot be resolved against the reference table: either the index is
// out of range, or it names a slot still under construction (a
// self-referential container that reached a child before its own
// placeholder was filled in). spec.md §4.2/§7 classify both as the
// fatal InvalidRef condition — mirroring og-rek's OpcodeError, this is a
// plain exported struct rather than a sentinel, since the index and
// reason are useful to a caller deciding whether to keep going.
type RefError struct {
	Index  int
	Reason string
}

func (e *RefError) Error() string {
	return fmt.Sprintf("marshal: invalid back-reference #%d: %s", e.Index, e.Reason)
}
