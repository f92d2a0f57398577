package inferrer

import (
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/soltrace/forge-evm/backend"
	"github.com/soltrace/forge-evm/trace"
)

func TestBeforeTracingCallMessageDirectLibraryCall(t *testing.T) {
	meta := &ContractMetadata{Name: "Lib", Kind: ContractKindLibrary}
	msg := &trace.Node{Kind: trace.KindCall, Depth: 0, Value: uint256.NewInt(0)}

	frames, err := BeforeTracingCallMessage(msg, meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected one frame, got %d", len(frames))
	}
	if _, ok := frames[0].(DirectLibraryCallError); !ok {
		t.Fatalf("expected DirectLibraryCallError, got %T", frames[0])
	}
}

func TestBeforeTracingCallMessageMissingFallbackOrReceive(t *testing.T) {
	meta := &ContractMetadata{Name: "C", CompilerVersion: "0.8.19"}
	msg := &trace.Node{Kind: trace.KindCall, Depth: 1, Value: uint256.NewInt(0), Input: nil}

	frames, err := BeforeTracingCallMessage(msg, meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected one frame, got %d", len(frames))
	}
	if _, ok := frames[0].(MissingFallbackOrReceiveError); !ok {
		t.Fatalf("expected MissingFallbackOrReceiveError, got %T", frames[0])
	}
}

func TestBeforeTracingCallMessageUnrecognizedSelectorPreCompiler06(t *testing.T) {
	meta := &ContractMetadata{Name: "C", CompilerVersion: "0.5.16"}
	msg := &trace.Node{Kind: trace.KindCall, Depth: 1, Value: uint256.NewInt(0), Input: []byte{0x01, 0x02, 0x03, 0x04}}

	frames, err := BeforeTracingCallMessage(msg, meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := frames[0].(UnrecognizedFunctionWithoutFallbackError); !ok {
		t.Fatalf("expected UnrecognizedFunctionWithoutFallbackError, got %T", frames[0])
	}
}

func TestBeforeTracingCallMessageFunctionNotPayable(t *testing.T) {
	meta := &ContractMetadata{
		Name: "C",
		Functions: []ContractFunction{
			{Name: "deposit", Type: FunctionTypeFunction, Selector: [4]byte{0xd0, 0xe3, 0x0d, 0xb0}, Payable: false},
		},
	}
	msg := &trace.Node{Kind: trace.KindCall, Depth: 1, Value: uint256.NewInt(1), Input: []byte{0xd0, 0xe3, 0x0d, 0xb0}}

	frames, err := BeforeTracingCallMessage(msg, meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected one frame, got %d", len(frames))
	}
	if _, ok := frames[0].(FunctionNotPayableError); !ok {
		t.Fatalf("expected FunctionNotPayableError, got %T", frames[0])
	}
}

func TestAfterTracingDecodesPanic(t *testing.T) {
	returnData := make([]byte, 36)
	copy(returnData[:4], []byte{panicSelector0, panicSelector1, panicSelector2, panicSelector3})
	returnData[35] = 0x11 // arithmetic overflow

	msg := &trace.Node{
		Kind:       trace.KindCall,
		ReturnData: returnData,
		ExitRevert: true,
		Steps:      []trace.Step{{IsEvm: true, PC: 5, Opcode: 0xfd}},
	}
	meta := &ContractMetadata{Name: "C"}

	frames, err := AfterTracing(msg, meta, nil, true, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected one frame, got %d", len(frames))
	}
	panicErr, ok := frames[0].(PanicError)
	if !ok {
		t.Fatalf("expected PanicError, got %T", frames[0])
	}
	if panicErr.Code != 0x11 {
		t.Fatalf("expected panic code 0x11, got 0x%x", panicErr.Code)
	}
}

func TestAfterTracingContractTooLarge(t *testing.T) {
	msg := &trace.Node{
		Kind:       trace.KindCreate,
		ExitRevert: true,
		ReturnData: nil,
	}
	frames, err := AfterTracing(msg, nil, nil, false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected one frame, got %d", len(frames))
	}
	if _, ok := frames[0].(ContractTooLargeError); !ok {
		t.Fatalf("expected ContractTooLargeError, got %T", frames[0])
	}
}

func TestCheckLastSubmessageDetectsCheatcodeError(t *testing.T) {
	strType, err := abi.NewType("string", "", nil)
	if err != nil {
		t.Fatalf("abi.NewType: %v", err)
	}
	packed, err := abi.Arguments{{Type: strType}}.Pack("cheatcode 'foo()' is not supported")
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	sel := crypto.Keccak256([]byte("Error(string)"))[:4]
	returnData := append(append([]byte{}, sel...), packed...)

	sub := &trace.Node{To: backend.CheatcodeAddress, Success: false, ReturnData: returnData}
	outer := &trace.Node{Steps: []trace.Step{{Child: sub}}}

	res, err := checkLastSubmessage(outer, nil, &SubmessageData{Message: sub})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.hit {
		t.Fatalf("expected heuristic 1 to hit")
	}
	if len(res.frames) != 1 {
		t.Fatalf("expected one frame, got %d", len(res.frames))
	}
	cheatErr, ok := res.frames[0].(CheatCodeError)
	if !ok {
		t.Fatalf("expected CheatCodeError, got %T", res.frames[0])
	}
	if cheatErr.Message != "cheatcode 'foo()' is not supported" {
		t.Fatalf("unexpected decoded message: %q", cheatErr.Message)
	}
}

func TestFilterRedundantFramesDropsContainedRange(t *testing.T) {
	outer := CallstackEntry{baseEntry{&SourceReference{RangeStart: 0, RangeEnd: 100, Line: 1}}, FunctionTypeFunction}
	inner := CallstackEntry{baseEntry{&SourceReference{RangeStart: 10, RangeEnd: 20, Line: 2}}, FunctionTypeFunction}

	filtered := FilterRedundantFrames([]StackTraceEntry{outer, inner})
	if len(filtered) != 1 {
		t.Fatalf("expected outer frame to be dropped, got %d frames", len(filtered))
	}
	if filtered[0] != inner {
		t.Fatalf("expected the inner frame to survive, got %#v", filtered[0])
	}
}

func TestFilterRedundantFramesDropsRecursiveCallDuplicate(t *testing.T) {
	a := CallstackEntry{baseEntry{&SourceReference{RangeStart: 30, RangeEnd: 40, Line: 3}}, FunctionTypeFunction}
	b := CallstackEntry{baseEntry{&SourceReference{RangeStart: 30, RangeEnd: 40, Line: 3}}, FunctionTypeFunction}

	filtered := FilterRedundantFrames([]StackTraceEntry{a, b})
	if len(filtered) != 1 {
		t.Fatalf("expected the recursive-call duplicate to be dropped, got %d frames", len(filtered))
	}
	if filtered[0] != b {
		t.Fatalf("expected the later occurrence to survive, got %#v", filtered[0])
	}
}

func TestFilterRedundantFramesKeepsConstructorBoundary(t *testing.T) {
	ctorName := ConstructorFunctionName
	ctor := CallstackEntry{baseEntry{&SourceReference{RangeStart: 0, RangeEnd: 50, Line: 1, Function: &ctorName}}, FunctionTypeConstructor}
	other := CallstackEntry{baseEntry{&SourceReference{RangeStart: 60, RangeEnd: 70, Line: 5}}, FunctionTypeFunction}

	filtered := FilterRedundantFrames([]StackTraceEntry{ctor, other})
	if len(filtered) != 2 {
		t.Fatalf("expected both frames retained across the constructor boundary, got %d", len(filtered))
	}
}
