package cheatcodes

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// SetExpectedRevert registers an expectRevert at depth, with an optional
// reason (nil checks only that *something* reverts).
func (s *State) SetExpectedRevert(reason []byte, depth uint64, kind ExpectedRevertKind) {
	s.expectedRevert = &ExpectedRevert{Reason: reason, Depth: depth, Kind: kind}
}

// ExpectedRevert returns the currently registered expectRevert, or nil.
func (s *State) ExpectedRevert() *ExpectedRevert { return s.expectedRevert }

// ClearExpectedRevert drops the registered expectRevert, called once it has
// been checked against a call's outcome.
func (s *State) ClearExpectedRevert() { s.expectedRevert = nil }

// CheckExpectedRevert implements spec.md §4.2's "On call end... If an
// expectedRevert is registered and applicable at this depth, compare actual
// revert reason and instruction result; on success replace the outcome
// with a synthetic Return; on mismatch replace with a formatted Revert."
// It returns ok=true when the call matched the expectation (the caller
// should synthesize success), and an error describing the mismatch
// otherwise. applicable=false means no expectation was registered at this
// depth and the caller should leave the outcome untouched.
func (s *State) CheckExpectedRevert(depth uint64, reverted bool, returnData []byte) (applicable, ok bool, err error) {
	exp := s.expectedRevert
	if exp == nil || exp.Depth != depth {
		return false, false, nil
	}
	s.expectedRevert = nil
	if !reverted {
		return true, false, ErrNoExpectedRevert
	}
	if exp.Reason == nil {
		return true, true, nil
	}
	if bytes.Equal(exp.Reason, returnData) {
		return true, true, nil
	}
	return true, false, ErrUnexpectedRevert
}

// RegisterExpectedEmit pushes a queued expectEmit (spec.md §4.2 "Expected-
// emit matching").
func (s *State) RegisterExpectedEmit(emitter common.Address, topicsMask [4]bool, dataMask bool, depth int) {
	s.expectedEmits = append(s.expectedEmits, ExpectedEmit{
		TopicsMask: topicsMask,
		DataMask:   dataMask,
		Emitter:    emitter,
		Depth:      depth,
	})
}

// SetExpectedEmitContent fills in the topics/data the most recently queued
// expectEmit must match, supplied by the test's own emit statement
// immediately following the expectEmit(...) call (the two-statement
// Foundry idiom).
func (s *State) SetExpectedEmitContent(topics [4]common.Hash, data []byte) {
	if len(s.expectedEmits) == 0 {
		return
	}
	last := &s.expectedEmits[len(s.expectedEmits)-1]
	last.Topics = topics
	last.Data = data
}

// MatchEmit implements spec.md §4.2: "On every LOG* at the declared depth,
// the stack scans the queue for the first unmet entry matching the masked
// topics and data; match -> found = true." Returns true if some queued
// entry was matched by this log.
func (s *State) MatchEmit(emitter common.Address, topics []common.Hash, data []byte, depth int) bool {
	for i := range s.expectedEmits {
		e := &s.expectedEmits[i]
		if e.Found || e.Depth != depth || e.Emitter != emitter {
			continue
		}
		if !matchTopics(e, topics) {
			continue
		}
		if e.DataMask && !bytes.Equal(e.Data, data) {
			continue
		}
		e.Found = true
		return true
	}
	return false
}

func matchTopics(e *ExpectedEmit, actual []common.Hash) bool {
	for i := 0; i < 4; i++ {
		if !e.TopicsMask[i] {
			continue
		}
		if i >= len(actual) || actual[i] != e.Topics[i] {
			return false
		}
	}
	return true
}

// UnmetExpectedEmits returns every queued expectEmit never matched, used at
// root-call end (spec.md §4.2 "At the end of the root call, queue entries
// with found = false cause a revert").
func (s *State) UnmetExpectedEmits() []ExpectedEmit {
	var unmet []ExpectedEmit
	for _, e := range s.expectedEmits {
		if !e.Found {
			unmet = append(unmet, e)
		}
	}
	return unmet
}

// RegisterExpectedCall adds an expected-call entry (spec.md §3
// ExpectedCall, §4.2 expectCall).
func (s *State) RegisterExpectedCall(target common.Address, calldataPfx []byte, value *uint256.Int, gas, minGas *uint64, count uint64) {
	s.expectedCalls[target] = append(s.expectedCalls[target], &ExpectedCall{
		Target:      target,
		CalldataPfx: calldataPfx,
		Value:       value,
		Gas:         gas,
		MinGas:      minGas,
		Count:       count,
	})
}

// MatchExpectedCall implements spec.md §4.2's "On call entry... Match
// expected-call table: for each (calldata prefix, expected{value?, gas?,
// min_gas?}) under this target, increment actual_count when prefix matches
// and constraints hold."
func (s *State) MatchExpectedCall(target common.Address, calldata []byte, value *uint256.Int, gasLimit uint64) {
	for _, exp := range s.expectedCalls[target] {
		if !bytes.HasPrefix(calldata, exp.CalldataPfx) {
			continue
		}
		if exp.Value != nil && (value == nil || !exp.Value.Eq(value)) {
			continue
		}
		if exp.Gas != nil && *exp.Gas != gasLimit {
			continue
		}
		if exp.MinGas != nil && gasLimit < *exp.MinGas {
			continue
		}
		exp.ActualCount++
	}
}

// UnmetExpectedCalls returns every expected-call entry whose ActualCount
// fell short of Count (spec.md §4.2 "check unmet expected calls...and
// force a revert").
func (s *State) UnmetExpectedCalls() []*ExpectedCall {
	var unmet []*ExpectedCall
	for _, entries := range s.expectedCalls {
		for _, exp := range entries {
			if exp.ActualCount < exp.Count {
				unmet = append(unmet, exp)
			}
		}
	}
	return unmet
}

// RegisterMockCall adds a mocked-call entry (spec.md §3 mocked-calls map).
func (s *State) RegisterMockCall(target common.Address, calldata []byte, value *uint256.Int, hasValue bool, returnData []byte, reverts bool) {
	var selector [4]byte
	if len(calldata) >= 4 {
		copy(selector[:], calldata[:4])
	}
	if len(calldata) == 4 {
		// A bare selector registers a selector-only mock.
		calldata = nil
	}
	s.mockedCalls[target] = append(s.mockedCalls[target], &MockedCall{
		Target:     target,
		Calldata:   calldata,
		Selector:   selector,
		HasValue:   hasValue,
		Value:      value,
		ReturnData: returnData,
		Reverts:    reverts,
	})
}

// ClearMockedCalls drops every registered mock.
func (s *State) ClearMockedCalls() { s.mockedCalls = make(map[common.Address][]*MockedCall) }

// MatchMockedCall implements spec.md §4.2's "On call entry... Match mocked
// calls: if (target, calldata, value?) matches an entry, short-circuit with
// the stored return data and return code." Exact-calldata matches are
// preferred over selector-only matches; the most recently registered entry
// wins ties, matching the "last mock wins" behavior Foundry users expect.
func (s *State) MatchMockedCall(target common.Address, calldata []byte, value *uint256.Int) (MockedCall, bool) {
	entries := s.mockedCalls[target]
	var selOnly *MockedCall
	for i := len(entries) - 1; i >= 0; i-- {
		m := entries[i]
		if m.HasValue && (value == nil || !m.Value.Eq(value)) {
			continue
		}
		if m.Calldata != nil {
			if bytes.Equal(m.Calldata, calldata) {
				return *m, true
			}
			continue
		}
		if selOnly == nil && len(calldata) >= 4 && m.Selector == [4]byte{calldata[0], calldata[1], calldata[2], calldata[3]} {
			selOnly = m
		}
	}
	if selOnly != nil {
		return *selOnly, true
	}
	return MockedCall{}, false
}

// StartRecordingLogs turns on `record()` log capture.
func (s *State) StartRecordingLogs() { s.recording = true; s.recordedLogs = nil }

// RecordLog appends a log while recording is active.
func (s *State) RecordLog(log RecordedLog) {
	if s.recording {
		s.recordedLogs = append(s.recordedLogs, log)
	}
}

// DrainRecordedLogs returns and clears the recorded logs, the
// `getRecordedLogs` cheatcode's contract.
func (s *State) DrainRecordedLogs() []RecordedLog {
	logs := s.recordedLogs
	s.recording = false
	s.recordedLogs = nil
	return logs
}
