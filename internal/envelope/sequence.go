package envelope

import "sync/atomic"

// Sequence assigns invocation request ids.
//
// Ids start at 1 and increase by exactly 1 per call to Next. A Sequence is
// owned by a single run; ids are not meant to be unique across runs or
// processes.
type Sequence struct {
	n atomic.Int64
}

// NewSequence creates a sequence whose first id is 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next request id.
func (s *Sequence) Next() int64 {
	return s.n.Add(1)
}
