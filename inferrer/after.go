package inferrer

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/soltrace/forge-evm/backend"
	"github.com/soltrace/forge-evm/trace"
)

// heuristicResult is the Go rendering of the Rust Heuristic enum: Hit
// terminates the cascade with a final stacktrace, Miss carries the
// (possibly unchanged) stacktrace forward to the next heuristic.
type heuristicResult struct {
	frames []StackTraceEntry
	hit    bool
}

func hit(frames []StackTraceEntry) heuristicResult  { return heuristicResult{frames: frames, hit: true} }
func miss(frames []StackTraceEntry) heuristicResult { return heuristicResult{frames: frames, hit: false} }

// SubmessageData carries the already-inferred stack trace of the
// immediately preceding submessage into check_last_submessage.
type SubmessageData struct {
	Message    *trace.Node
	Stacktrace []StackTraceEntry
}

const panicSelector0 = 0x4e
const panicSelector1 = 0x48
const panicSelector2 = 0x7b
const panicSelector3 = 0x71 // Panic(uint256) selector bytes, keccak256("Panic(uint256)")[:4]

func isPanicReturnData(data []byte) bool {
	return len(data) >= 4 && data[0] == panicSelector0 && data[1] == panicSelector1 && data[2] == panicSelector2 && data[3] == panicSelector3
}

func decodePanicCode(data []byte) byte {
	if len(data) < 36 {
		return 0
	}
	return data[35] // right-most byte of the abi-encoded uint256 code
}

var errorStringSelector = func() [4]byte {
	h := crypto.Keccak256([]byte("Error(string)"))
	var sel [4]byte
	copy(sel[:], h[:4])
	return sel
}()

// decodeErrorString decodes data as a standard Solidity Error(string) revert
// payload, returning ("", false) if data isn't shaped that way.
func decodeErrorString(data []byte) (string, bool) {
	if len(data) < 4 {
		return "", false
	}
	var sel [4]byte
	copy(sel[:], data[:4])
	if sel != errorStringSelector {
		return "", false
	}
	strType, err := abi.NewType("string", "", nil)
	if err != nil {
		return "", false
	}
	args := abi.Arguments{{Type: strType}}
	vals, err := args.Unpack(data[4:])
	if err != nil || len(vals) != 1 {
		return "", false
	}
	msg, ok := vals[0].(string)
	return msg, ok
}

// AfterTracing implements spec.md §4.3's ordered after-tracing cascade. meta
// may be nil for a message whose contract metadata is unavailable, in which
// case only the heuristics that don't need it (last-submessage,
// failed-last-call, non-contract-called, contract-too-large, fallback) can
// fire.
func AfterTracing(msg *trace.Node, meta *ContractMetadata, functionJumpdests []*Instruction, jumpedIntoFunction bool, lastSubmessage *SubmessageData) ([]StackTraceEntry, error) {
	stacktrace := []StackTraceEntry{}

	res, err := checkLastSubmessage(msg, stacktrace, lastSubmessage)
	if err != nil {
		return nil, err
	}
	if res.hit {
		return applyInitialModifierFixup(res.frames, msg, meta), nil
	}
	stacktrace = res.frames

	res = checkFailedLastCall(msg, meta, stacktrace)
	if res.hit {
		return applyInitialModifierFixup(res.frames, msg, meta), nil
	}
	stacktrace = res.frames

	if jumpedIntoFunction || msg.Kind == trace.KindCreate {
		res, err = checkLastInstruction(msg, meta, stacktrace, functionJumpdests)
		if err != nil {
			return nil, err
		}
		if res.hit {
			return applyInitialModifierFixup(res.frames, msg, meta), nil
		}
		stacktrace = res.frames
	}

	res = checkNonContractCalled(msg, stacktrace)
	if res.hit {
		return applyInitialModifierFixup(res.frames, msg, meta), nil
	}
	stacktrace = res.frames

	res = checkSolc063UnmappedRevert(msg, meta, stacktrace)
	if res.hit {
		return applyInitialModifierFixup(res.frames, msg, meta), nil
	}
	stacktrace = res.frames

	if frames := checkContractTooLarge(msg, meta); frames != nil {
		return frames, nil
	}

	return append(stacktrace, otherExecutionError(msg, meta)), nil
}

// checkLastSubmessage is heuristic 1 (spec.md §4.3).
func checkLastSubmessage(msg *trace.Node, stacktrace []StackTraceEntry, sub *SubmessageData) (heuristicResult, error) {
	if sub == nil {
		return miss(stacktrace), nil
	}

	callSite, ok := lastCallStep(msg)
	if !ok {
		return miss(stacktrace), nil
	}

	if sub.Message.Success {
		// Submessage succeeded; if the outer fails immediately after it with
		// no further progress, that's a returndata-decoding failure.
		if isImmediatelyAfter(msg, callSite) {
			return hit(append(append([]StackTraceEntry{}, stacktrace...), ReturndataSizeError{baseEntry{nil}})), nil
		}
		return miss(stacktrace), nil
	}

	// Spec.md §4.3 heuristic 1: a reverted call out of the cheatcode
	// precompile is reported as CheatCodeError rather than a generic
	// CallstackEntry/revert frame, whether the payload decodes as a plain
	// Error(string) or carries an unrecognized shape (the message is still
	// surfaced verbatim when decodable, empty otherwise).
	if sub.Message.To == backend.CheatcodeAddress {
		msgText, _ := decodeErrorString(sub.Message.ReturnData)
		return hit(append(append([]StackTraceEntry{}, stacktrace...), CheatCodeError{baseEntry{nil}, msgText})), nil
	}

	frames := append(append([]StackTraceEntry{}, stacktrace...), CallstackEntry{baseEntry{nil}, FunctionTypeFunction})

	sameReturnData := string(sub.Message.ReturnData) == string(msg.ReturnData)
	bothEmptyAndOOG := len(sub.Message.ReturnData) == 0 && len(msg.ReturnData) == 0 && sub.Message.ExitOutOfGas

	if sameReturnData || bothEmptyAndOOG {
		frames = append(frames, sub.Stacktrace...)
	}

	if len(msg.ReturnData) == 0 && sub.Message.ExitOutOfGas && isImmediatelyAfter(msg, callSite) {
		frames = append(append([]StackTraceEntry{}, stacktrace...), ContractCallRunOutOfGasError{baseEntry{nil}})
	}

	return hit(frames), nil
}

// lastCallStep returns the last CALL/CREATE step recorded in msg, or nil if
// msg made no submessages.
func lastCallStep(msg *trace.Node) (*trace.Step, bool) {
	for i := len(msg.Steps) - 1; i >= 0; i-- {
		if msg.Steps[i].Child != nil {
			return &msg.Steps[i], true
		}
	}
	return nil, false
}

// isImmediatelyAfter reports whether the outer message's last recorded
// step is the one right after callSite with no EVM progress in between.
func isImmediatelyAfter(msg *trace.Node, callSite *trace.Step) bool {
	for i, s := range msg.Steps {
		if s.Child == callSite.Child {
			return i == len(msg.Steps)-2
		}
	}
	return false
}

// checkFailedLastCall is heuristic 2.
func checkFailedLastCall(msg *trace.Node, meta *ContractMetadata, stacktrace []StackTraceEntry) heuristicResult {
	for i := len(msg.Steps) - 1; i >= 1; i-- {
		if msg.Steps[i].Child != nil && i+1 < len(msg.Steps) && msg.Steps[i+1].IsEvm {
			return hit(append(append([]StackTraceEntry{}, stacktrace...), CallFailedError{baseEntry{nil}}))
		}
	}
	return miss(stacktrace)
}

// checkLastInstruction is heuristic 3: panic / custom error / plain revert.
func checkLastInstruction(msg *trace.Node, meta *ContractMetadata, stacktrace []StackTraceEntry, functionJumpdests []*Instruction) (heuristicResult, error) {
	if meta == nil || len(msg.Steps) == 0 {
		return miss(stacktrace), nil
	}
	last, ok := msg.LastStep()
	if !ok {
		return miss(stacktrace), nil
	}

	if isPanicReturnData(msg.ReturnData) {
		code := decodePanicCode(msg.ReturnData)
		frames := append([]StackTraceEntry{}, stacktrace...)
		if n := len(frames); n > 0 {
			if _, ok := frames[n-1].(InternalFunctionCallstackEntry); ok {
				frames = frames[:n-1]
				if code == 0x51 && len(frames) > 0 {
					frames = frames[:len(frames)-1]
				}
			}
		}
		return hit(append(frames, PanicError{baseEntry{lastInstructionRef(msg, meta, last)}, code})), nil
	}

	if ce := meta.CustomErrorBySelector(selectorOf(msg.ReturnData)); ce != nil {
		return hit(append(append([]StackTraceEntry{}, stacktrace...),
			CustomError{baseEntry{lastInstructionRef(msg, meta, last)}, fmt.Sprintf("reverted with custom error '%s(...)'", ce.Name)})), nil
	}
	if len(msg.ReturnData) >= 4 {
		return hit(append(append([]StackTraceEntry{}, stacktrace...),
			CustomError{baseEntry{lastInstructionRef(msg, meta, last)}, fmt.Sprintf("reverted with an unrecognized custom error (return data: 0x%x)", msg.ReturnData)})), nil
	}

	ref := lastInstructionRef(msg, meta, last)
	frames := append([]StackTraceEntry{}, stacktrace...)
	if n := len(frames); n > 0 {
		if ce, ok := frames[n-1].(CallstackEntry); ok && ce.FunctionType == FunctionTypeModifier {
			frames = append(frames, RevertError{baseEntry{ref}, ""})
			return hit(frames), nil
		}
	}
	if ref == nil {
		if fn := meta.FunctionBySelector(selectorOf(msg.Input)); fn == nil {
			return hit(append(frames, InvalidParamsError{baseEntry{contractStartRef(meta)}})), nil
		}
	}
	return hit(append(frames, RevertError{baseEntry{ref}, ""})), nil
}

func selectorOf(data []byte) []byte {
	if len(data) < 4 {
		return nil
	}
	return data[:4]
}

func lastInstructionRef(msg *trace.Node, meta *ContractMetadata, last trace.Step) *SourceReference {
	if meta == nil {
		return nil
	}
	for i := len(meta.Instructions) - 1; i >= 0; i-- {
		inst := meta.Instructions[i]
		if inst.PC == last.PC && inst.Location != nil {
			return &SourceReference{
				SourceName: inst.Location.File,
				Contract:   meta.Name,
				RangeStart: inst.Location.Offset,
				RangeEnd:   inst.Location.Offset + inst.Location.Length,
			}
		}
	}
	return nil
}

// checkNonContractCalled is heuristic 4.
func checkNonContractCalled(msg *trace.Node, stacktrace []StackTraceEntry) heuristicResult {
	steps := msg.Steps
	for i := len(steps) - 1; i >= 1; i-- {
		if steps[i].IsEvm && steps[i].Opcode == opISZERO && steps[i-1].IsEvm && steps[i-1].Opcode == opEXTCODESIZE {
			return hit(append(append([]StackTraceEntry{}, stacktrace...), NoncontractAccountCalledError{baseEntry{nil}}))
		}
	}
	return miss(stacktrace)
}

// checkSolc063UnmappedRevert is heuristic 5.
func checkSolc063UnmappedRevert(msg *trace.Node, meta *ContractMetadata, stacktrace []StackTraceEntry) heuristicResult {
	if meta == nil || meta.CompilerVersion != "0.6.3" {
		return miss(stacktrace)
	}
	last, ok := msg.LastStep()
	if !ok || !last.IsEvm || last.Opcode != opREVERT {
		return miss(stacktrace)
	}
	return hit(append(append([]StackTraceEntry{}, stacktrace...), UnmappedSolc0_6_3RevertError{baseEntry{nil}}))
}

// checkContractTooLarge is heuristic 6: a CREATE that reverted with no
// return data despite not running out of gas has exceeded the protocol
// code-size limit (spec.md §4.3 "contract too large").
func checkContractTooLarge(msg *trace.Node, meta *ContractMetadata) []StackTraceEntry {
	if msg.Kind != trace.KindCreate || !msg.ExitRevert || msg.ExitOutOfGas {
		return nil
	}
	if len(msg.ReturnData) != 0 {
		return nil
	}
	var ref *SourceReference
	if meta != nil {
		ref = contractStartRef(meta)
	}
	return []StackTraceEntry{ContractTooLargeError{baseEntry{ref}}}
}

// otherExecutionError is heuristic 7, the unconditional fallback.
func otherExecutionError(msg *trace.Node, meta *ContractMetadata) StackTraceEntry {
	last, ok := msg.LastStep()
	if !ok {
		return OtherExecutionError{baseEntry{nil}}
	}
	return OtherExecutionError{baseEntry{lastInstructionRef(msg, meta, last)}}
}

// applyInitialModifierFixup implements spec.md §4.3's "initial-modifier
// fixup": if the frame list starts with a Modifier CallstackEntry, prepend
// a frame for the function/constructor/fallback that invoked it.
func applyInitialModifierFixup(frames []StackTraceEntry, msg *trace.Node, meta *ContractMetadata) []StackTraceEntry {
	if len(frames) == 0 || meta == nil {
		return frames
	}
	first, ok := frames[0].(CallstackEntry)
	if !ok || first.FunctionType != FunctionTypeModifier {
		return frames
	}

	var fn *ContractFunction
	switch {
	case len(msg.Input) == 0:
		fn = meta.FunctionNamed(ReceiveFunctionName)
	default:
		fn = meta.FunctionBySelector(selectorOf(msg.Input))
	}
	if fn == nil {
		fn = meta.FunctionNamed(FallbackFunctionName)
	}
	if fn == nil {
		return frames
	}
	prefix := CallstackEntry{baseEntry{functionStartRef(meta, fn)}, fn.Type}
	return append([]StackTraceEntry{prefix}, frames...)
}
