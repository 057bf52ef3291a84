// Package schema implements C2, the bidirectional schema translator between
// the canonical model and each source/target format's own schema
// representation.
package schema

// FieldIDCounter assigns the monotonic, canonicalization-scoped field ids
// needed when a source format carries none of its own
// (Delta, Hudi). A counter is created fresh per to_canonical call and
// discarded afterward — ids it assigns are stable only within that single
// canonicalization, never persisted.
type FieldIDCounter struct {
	next int
}

// NewFieldIDCounter starts counting at start (inclusive).
func NewFieldIDCounter(start int) *FieldIDCounter {
	return &FieldIDCounter{next: start}
}

// Next returns the next unused id and advances the counter.
func (c *FieldIDCounter) Next() int {
	id := c.next
	c.next++
	return id
}
