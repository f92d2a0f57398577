package inspector

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/soltrace/forge-evm/backend"
	"github.com/soltrace/forge-evm/cheatcodes"
	corevm "github.com/soltrace/forge-evm/core/vm"
	"github.com/soltrace/forge-evm/trace"
)

// CallKind mirrors the handful of call-like opcodes the inspector treats
// distinctly: plain CALL, STATICCALL, DELEGATECALL, CALLCODE.
type CallKind int

const (
	CallKindCall CallKind = iota
	CallKindStaticCall
	CallKindDelegateCall
	CallKindCallCode
)

// CallRequest is what the driving EVM hands the inspector stack on call
// entry — the boundary spec.md §1 draws around "the low-level EVM
// interpreter... the core drives it via an inspector interface but does
// not implement opcodes."
type CallRequest struct {
	Depth    int
	Caller   common.Address
	Origin   common.Address
	Target   common.Address
	Input    []byte
	Value    *uint256.Int
	GasLimit uint64
	Kind     CallKind
}

// CallOutcome is the inspector's verdict on a call: either nil (proceed
// with ordinary execution) or a concrete override the driving EVM should
// use instead (spec.md §4.2 "the first that returns a non-default result
// short-circuits that hook").
type CallOutcome struct {
	Success    bool
	ReturnData []byte
	GasUsed    uint64
}

// CallHooks is the minimal seam an external fuzzer sub-inspector plugs
// into (spec.md §4.2's composition lists "fuzzer" first in the fan-out,
// ahead of tracer/coverage/cheatcodes). Not implemented by this package;
// Stack.Fuzzer is nil unless a host wires one in.
type CallHooks interface {
	BeforeCall(req *CallRequest) (*CallOutcome, bool)
}

// BeforeCall implements spec.md §4.2's "On call entry" steps 1-6 (isolation,
// step 7, is handled separately by isolation.go since it needs to actually
// re-enter the EVM). Returns a non-nil CallOutcome when some sub-inspector
// wants to short-circuit ordinary execution.
func (st *Stack) BeforeCall(req *CallRequest) (*CallOutcome, error) {
	if st.Fuzzer != nil {
		if out, overridden := st.Fuzzer.BeforeCall(req); overridden {
			return out, nil
		}
	}

	// Tracer: open the frame.
	node := &trace.Node{
		Kind:         trace.KindCall,
		From:         req.Caller,
		To:           req.Target,
		Value:        req.Value,
		Input:        req.Input,
		GasLimit:     req.GasLimit,
		IsStaticCall: req.Kind == CallKindStaticCall,
		Depth:        req.Depth,
	}
	st.builder.Enter(node)

	// Step 1: depth-0 nonce decrement, skipped for the canonical sender.
	if req.Depth == 0 && req.Caller != backend.DefaultTestSender {
		if j, err := st.Backend.ActiveJournal(); err == nil {
			acc := j.JournaledAccount(req.Caller)
			if acc.Nonce > 0 {
				acc.Nonce--
			}
		}
	}

	// Step 2: cheatcode dispatch.
	if req.Target == backend.CheatcodeAddress {
		if !st.Backend.CheatcodeAccess().IsAllowed(req.Caller) {
			return &CallOutcome{Success: false, ReturnData: cheatcodes.EncodeError(cheatcodes.ErrAccessDenied.Error())}, nil
		}
		if err := st.gateCheatcodeHardfork(req.Input); err != nil {
			return &CallOutcome{Success: false, ReturnData: cheatcodes.EncodeError(err.Error())}, nil
		}
		ctx := &cheatcodes.Context{
			Backend: st.Backend,
			Meta:    cheatcodes.CallMetadata{Caller: req.Caller, Depth: req.Depth},
			FS:      st.FS,
		}
		out, err := cheatcodes.Dispatch(st.Cheats, ctx, req.Input)
		if err != nil {
			return &CallOutcome{Success: false, ReturnData: cheatcodes.EncodeError(err.Error())}, nil
		}
		return &CallOutcome{Success: true, ReturnData: out}, nil
	}

	// Step 3: expected-call bookkeeping.
	st.Cheats.MatchExpectedCall(req.Target, req.Input, req.Value, req.GasLimit)

	// Step 4: mocked calls short-circuit.
	if mock, ok := st.Cheats.MatchMockedCall(req.Target, req.Input, req.Value); ok {
		return &CallOutcome{Success: !mock.Reverts, ReturnData: mock.ReturnData}, nil
	}

	// Step 5: active prank.
	if eff, _, active := st.Cheats.ApplyPrank(req.Depth, req.Caller); active {
		req.Caller = eff
		node.From = eff
	}

	// Step 6: open a state-diff recording frame.
	st.Cheats.PushAccessFrame()
	st.Cheats.RecordAccess(cheatcodes.AccountAccess{
		Accessor: req.Caller,
		Account:  req.Target,
		Kind:     callKindToAccessKind(req.Kind),
		Value:    req.Value,
		Calldata: req.Input,
		Depth:    req.Depth,
	})

	return nil, nil
}

func callKindToAccessKind(k CallKind) cheatcodes.AccountAccessKind {
	switch k {
	case CallKindStaticCall:
		return cheatcodes.AccessStaticCall
	case CallKindDelegateCall:
		return cheatcodes.AccessDelegateCall
	case CallKindCallCode:
		return cheatcodes.AccessCallCode
	default:
		return cheatcodes.AccessCall
	}
}

// AfterCall implements spec.md §4.2's "On call end" steps.
func (st *Stack) AfterCall(req *CallRequest, reverted bool, returnData []byte, gasUsed uint64) *CallOutcome {
	// Step 1: restore/consume prank.
	st.Cheats.ConsumePrank(req.Depth)

	// Step 2: expectRevert comparison.
	if applicable, ok, err := st.Cheats.CheckExpectedRevert(uint64(req.Depth), reverted, returnData); applicable {
		if ok {
			st.builder.Exit(true, false, false, nil, gasUsed)
			return &CallOutcome{Success: true, GasUsed: gasUsed}
		}
		msg := "expectRevert: call did not revert as expected"
		if err != nil {
			msg = err.Error()
		}
		st.builder.Exit(false, true, false, cheatcodes.EncodeError(msg), gasUsed)
		return &CallOutcome{Success: false, ReturnData: cheatcodes.EncodeError(msg), GasUsed: gasUsed}
	}

	// Step 3: close the recorded access frame.
	st.Cheats.PopAccessFrame(reverted)

	// Step 4: record lastCallGas.
	st.lastCallGas = gasUsed

	// Step 5 (root call only): check unmet expectations.
	if req.Depth == 0 && !reverted {
		if unmetCalls := st.Cheats.UnmetExpectedCalls(); len(unmetCalls) > 0 {
			reverted = true
			returnData = cheatcodes.EncodeError("expected call was never made")
		} else if unmetEmits := st.Cheats.UnmetExpectedEmits(); len(unmetEmits) > 0 {
			reverted = true
			returnData = cheatcodes.EncodeError("expected emit was never matched")
		}
	}

	// Step 6: capture first reverter.
	if reverted && st.firstReverter == nil {
		target := req.Target
		st.firstReverter = &target
	}

	st.builder.Exit(!reverted, reverted, false, returnData, gasUsed)
	if req.Depth == 0 {
		st.rootReverted = reverted
	}
	return nil
}

// gateCheatcodeHardfork implements the hardfork-gating half of spec.md
// §4.2's dispatch table: cheatcodes only meaningful after a given fork
// (blobhashes, blobBaseFee are post-Cancun concepts) refuse to run before
// it rather than silently no-op.
func (st *Stack) gateCheatcodeHardfork(calldata []byte) error {
	if len(calldata) < 4 {
		return nil
	}
	var sel [4]byte
	copy(sel[:], calldata[:4])
	sig, ok := cheatcodes.LookupSignature(sel)
	if !ok {
		return nil
	}
	switch sig {
	case "blobhashes(bytes32[])", "blobBaseFee(uint256)":
		if !st.Hardfork.AtLeast(corevm.Cancun) {
			return cheatcodes.ErrHardforkPrecondition
		}
	}
	return nil
}
