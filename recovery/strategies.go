package recovery

import "fmt"

// StrictStrategy fails on the first malformed construct.
type StrictStrategy struct{}

func NewStrictStrategy() *StrictStrategy { return &StrictStrategy{} }

func (s *StrictStrategy) OnError(err error, location Location) Action {
	return ActionFail
}

// LenientStrategy records every malformed construct it sees and asks the
// caller to patch over it and continue. The accumulated diagnostics stay
// observable through Diagnostics.
type LenientStrategy struct {
	errs []error
}

func NewLenientStrategy() *LenientStrategy { return &LenientStrategy{} }

func (s *LenientStrategy) OnError(err error, location Location) Action {
	s.errs = append(s.errs, fmt.Errorf("%s at offset %d (obj %d %d): %w",
		location.Component, location.ByteOffset, location.ObjectNum, location.ObjectGen, err))
	return ActionFix
}

// Diagnostics returns the errors tolerated so far, oldest first.
func (s *LenientStrategy) Diagnostics() []error { return s.errs }
