package cheatcodes

import (
	"github.com/ethereum/go-ethereum/common"
)

// State is spec.md §3's CheatcodesState: the per-test mutable record every
// handler reads and writes. It is reset between tests (never pooled across
// them — a fresh State per test invocation, the same lifecycle the teacher
// gives its per-block execution scratch state).
type State struct {
	prank *Prank

	expectedRevert *ExpectedRevert
	expectedEmits  []ExpectedEmit
	expectedCalls  map[common.Address][]*ExpectedCall
	mockedCalls    map[common.Address][]*MockedCall

	recording   bool
	recordedLogs []RecordedLog

	// accessStack[i] holds the AccountAccess frames opened at relative call
	// depth i; call end pops the top frame and merges it into i-1 (spec.md
	// §4.2 "Account-access diff recording").
	accessStack [][]AccountAccess
	accessing   bool

	allowedMemWrites map[int][]MemRange

	mappingSlots map[common.Hash]MappingSlotInfo

	deals []DealRecord

	// gasMeteringPaused holds the gas value opcodes are pinned to while
	// paused; nil means metering is not paused (spec.md §3
	// "gas-metering pause state").
	gasMeteringPaused *uint64

	tracingPaused bool

	fsCommit bool

	impure func(signature string)
}

// New returns a freshly reset State. impure is called whenever a handler
// touches something non-reproducible (spec.md §4.2 "Record pure-vs-impure
// status"); pass backend.Backend.RecordImpureCheatcode or a no-op in tests.
func New(impure func(signature string)) *State {
	if impure == nil {
		impure = func(string) {}
	}
	return &State{
		expectedCalls:    make(map[common.Address][]*ExpectedCall),
		mockedCalls:      make(map[common.Address][]*MockedCall),
		allowedMemWrites: make(map[int][]MemRange),
		mappingSlots:     make(map[common.Hash]MappingSlotInfo),
		impure:           impure,
	}
}

// Reset clears every per-test queue, keeping the State value reusable
// across test invocations without reallocating its handler closure.
func (s *State) Reset() {
	s.prank = nil
	s.expectedRevert = nil
	s.expectedEmits = nil
	s.expectedCalls = make(map[common.Address][]*ExpectedCall)
	s.mockedCalls = make(map[common.Address][]*MockedCall)
	s.recording = false
	s.recordedLogs = nil
	s.accessStack = nil
	s.accessing = false
	s.allowedMemWrites = make(map[int][]MemRange)
	s.mappingSlots = make(map[common.Hash]MappingSlotInfo)
	s.deals = nil
	s.gasMeteringPaused = nil
	s.tracingPaused = false
	s.fsCommit = false
}

func (s *State) markImpure(signature string) {
	if s.impure != nil {
		s.impure(signature)
	}
}

// StartRecordingAccesses turns on account-access recording (`record()`).
func (s *State) StartRecordingAccesses() {
	s.accessing = true
	s.accessStack = [][]AccountAccess{{}}
}

// IsRecordingAccesses reports whether `record()` is active.
func (s *State) IsRecordingAccesses() bool { return s.accessing }

// PushAccessFrame opens a new recording frame on call/create entry
// (spec.md §4.2 "On call/create entry, push a new frame").
func (s *State) PushAccessFrame() {
	if !s.accessing {
		return
	}
	s.accessStack = append(s.accessStack, nil)
}

// RecordAccess appends acc to the top recording frame.
func (s *State) RecordAccess(acc AccountAccess) {
	if !s.accessing || len(s.accessStack) == 0 {
		return
	}
	top := len(s.accessStack) - 1
	s.accessStack[top] = append(s.accessStack[top], acc)
}

// PopAccessFrame pops the top recording frame on call/create end, merging
// it into the parent frame and marking every entry reverted when the
// popped frame's call reverted (spec.md §4.2 "on call/create end, pop and
// merge into the previous level, marking all entries reverted if the frame
// reverted").
func (s *State) PopAccessFrame(reverted bool) {
	if !s.accessing || len(s.accessStack) == 0 {
		return
	}
	top := len(s.accessStack) - 1
	frame := s.accessStack[top]
	s.accessStack = s.accessStack[:top]
	if reverted {
		for i := range frame {
			frame[i].Reverted = true
		}
	}
	if len(s.accessStack) == 0 {
		s.accessStack = append(s.accessStack, frame)
		return
	}
	parent := len(s.accessStack) - 1
	s.accessStack[parent] = append(s.accessStack[parent], frame...)
}

// StopRecordingAccesses turns off recording and returns the flattened,
// depth-ordered access list (`getRecordedLogs`-style drain: resets state).
func (s *State) StopRecordingAccesses() []AccountAccess {
	if !s.accessing {
		return nil
	}
	s.accessing = false
	var out []AccountAccess
	if len(s.accessStack) > 0 {
		out = s.accessStack[0]
	}
	s.accessStack = nil
	return out
}

// RecordMappingSlot records the keccak preimage -> slot relationship an
// SSTORE-after-KECCAK256 pattern reveals (spec.md §4.2
// "Mapping-slot tracking").
func (s *State) RecordMappingSlot(slot common.Hash, info MappingSlotInfo) {
	s.mappingSlots[slot] = info
}

// MappingSlot resolves a previously recorded slot, for
// `getMappingKeyAndParentOf`.
func (s *State) MappingSlot(slot common.Hash) (MappingSlotInfo, bool) {
	info, ok := s.mappingSlots[slot]
	return info, ok
}

// AllowMemoryWrites registers the safe ranges expectSafeMemory permits at
// depth.
func (s *State) AllowMemoryWrites(depth int, ranges []MemRange) {
	s.allowedMemWrites[depth] = ranges
}

// AllowedMemoryWrites returns the ranges registered at depth, and whether
// any were registered at all (an empty, non-registered depth has no
// restriction; spec.md §4.2 "If the current call depth has an
// allowed_mem_writes[depth] entry...").
func (s *State) AllowedMemoryWrites(depth int) ([]MemRange, bool) {
	ranges, ok := s.allowedMemWrites[depth]
	return ranges, ok
}

// PauseGasMetering records the gas value to pin opcodes to while metering
// is paused.
func (s *State) PauseGasMetering(gas uint64) { s.gasMeteringPaused = &gas }

// ResumeGasMetering clears the pause.
func (s *State) ResumeGasMetering() { s.gasMeteringPaused = nil }

// GasMeteringPausedAt returns the pinned gas value and whether metering is
// currently paused.
func (s *State) GasMeteringPausedAt() (uint64, bool) {
	if s.gasMeteringPaused == nil {
		return 0, false
	}
	return *s.gasMeteringPaused, true
}

// PauseTracing / ResumeTracing toggle whether the inspector should record
// an ignored span into the trace arena (spec.md §6 "Ignored ranges mark
// cheatcode-suppressed spans").
func (s *State) PauseTracing()     { s.tracingPaused = true }
func (s *State) ResumeTracing()    { s.tracingPaused = false }
func (s *State) TracingPaused() bool { return s.tracingPaused }

// RecordDeal appends a deal record for later state-diff reporting.
func (s *State) RecordDeal(rec DealRecord) { s.deals = append(s.deals, rec) }

// Deals returns every deal recorded this test.
func (s *State) Deals() []DealRecord { return s.deals }
