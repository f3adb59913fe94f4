// Package ident issues identifiers for entities created outside the database.
package ident

import "sync/atomic"

// Sequence hands out identifiers that never repeat within the process, even
// after the entities they were issued for are deleted.
type Sequence struct {
	n atomic.Int64
}

// NewSequence returns a sequence starting at 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns an identifier not previously issued by this sequence.
func (s *Sequence) Next() int64 {
	return s.n.Add(1)
}
