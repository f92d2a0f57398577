package cheatcodes

import "github.com/ethereum/go-ethereum/common"

// StartPrank installs a prank active until consumed (single=true, the
// `prank(...)` cheatcode) or until StopPrank is called (single=false, the
// `startPrank(...)` cheatcode). depth is the EVM call depth the prank was
// installed at — only calls made from exactly that depth are affected
// (spec.md §3 Prank.depth).
func (s *State) StartPrank(caller, newCaller common.Address, newOrigin *common.Address, depth int, single bool) {
	s.prank = &Prank{
		PrankCaller: caller,
		NewCaller:   newCaller,
		NewOrigin:   newOrigin,
		Depth:       depth,
		SingleCall:  single,
	}
}

// StopPrank clears any active prank.
func (s *State) StopPrank() { s.prank = nil }

// ActivePrank returns the currently installed prank, or nil.
func (s *State) ActivePrank() *Prank { return s.prank }

// ApplyPrank implements spec.md §4.2's "On call entry... Apply active
// prank at its depth: swap caller and optionally tx.origin" step. Returns
// the effective caller/origin to use for this call and whether a prank
// applies at this depth. It never consumes the prank: the caller calls
// ConsumePrank after the call returns — consumption happens at call *end* per
// spec.md, not at entry, so single-call pranks still apply to the call
// that triggered them).
func (s *State) ApplyPrank(depth int, caller common.Address) (effectiveCaller common.Address, effectiveOrigin *common.Address, active bool) {
	if s.prank == nil || s.prank.Depth != depth {
		return caller, nil, false
	}
	return s.prank.NewCaller, s.prank.NewOrigin, true
}

// ConsumePrank implements spec.md §4.2's "On call end... consume
// single-call pranks" step.
func (s *State) ConsumePrank(depth int) {
	if s.prank != nil && s.prank.Depth == depth && s.prank.SingleCall {
		s.prank = nil
	}
}
