package inferrer

import (
	"strconv"
	"strings"

	"github.com/soltrace/forge-evm/trace"
)

// compilerAtLeast reports whether version (e.g. "0.8.19") is >= major.minor,
// the coarse comparison every before-tracing gate needs. Solidity compiler
// strings are always well-formed dotted triples, so a tiny manual compare
// is enough — no need to pull in a general-purpose semver package for one
// two-field comparison.
func compilerAtLeast(version string, major, minor int) bool {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return false
	}
	vMajor, err1 := strconv.Atoi(parts[0])
	vMinor, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return false
	}
	if vMajor != major {
		return vMajor > major
	}
	return vMinor >= minor
}

func strPtr(s string) *string { return &s }

func functionStartRef(meta *ContractMetadata, fn *ContractFunction) *SourceReference {
	if fn == nil || fn.Location == nil {
		return nil
	}
	return &SourceReference{
		SourceName: fn.Location.File,
		Contract:   meta.Name,
		Function:   strPtr(fn.Name),
		RangeStart: fn.Location.Offset,
		RangeEnd:   fn.Location.Offset + fn.Location.Length,
	}
}

func contractStartRef(meta *ContractMetadata) *SourceReference {
	if meta.Location == nil {
		return &SourceReference{Contract: meta.Name}
	}
	return &SourceReference{
		SourceName: meta.Location.File,
		Contract:   meta.Name,
		RangeStart: meta.Location.Offset,
		RangeEnd:   meta.Location.Offset + meta.Location.Length,
	}
}

// BeforeTracingCallMessage implements spec.md §4.3's before-tracing call
// checks: direct library calls, non-payable functions called with value,
// and missing selector/fallback combinations. A non-nil, non-empty result
// means the cascade in after.go is skipped entirely.
func BeforeTracingCallMessage(msg *trace.Node, meta *ContractMetadata) ([]StackTraceEntry, error) {
	if meta == nil {
		return nil, ErrMissingContract
	}

	if msg.Depth == 0 && meta.Kind == ContractKindLibrary {
		return []StackTraceEntry{DirectLibraryCallError{baseEntry{contractStartRef(meta)}}}, nil
	}

	selector := msg.Input
	if len(selector) > 4 {
		selector = selector[:4]
	}
	called := meta.FunctionBySelector(selector)

	if called != nil && called.Type != FunctionTypeReceive {
		if isNonPayable(meta, called) && msg.Value != nil && !msg.Value.IsZero() {
			return []StackTraceEntry{FunctionNotPayableError{baseEntry{functionStartRef(meta, called)}, msg.Value}}, nil
		}
		return nil, nil
	}

	fallback := meta.FunctionNamed(FallbackFunctionName)
	receive := meta.FunctionNamed(ReceiveFunctionName)
	emptyCalldata := len(msg.Input) == 0

	if fallback == nil {
		ref := contractStartRef(meta)
		if compilerAtLeast(meta.CompilerVersion, 0, 6) && emptyCalldata && receive == nil {
			return []StackTraceEntry{MissingFallbackOrReceiveError{baseEntry{ref}}}, nil
		}
		return []StackTraceEntry{UnrecognizedFunctionWithoutFallbackError{baseEntry{ref}}}, nil
	}

	if isNonPayable(meta, fallback) && msg.Value != nil && !msg.Value.IsZero() {
		ref := functionStartRef(meta, fallback)
		if emptyCalldata && receive == nil {
			return []StackTraceEntry{FallbackNotPayableAndNoReceiveError{baseEntry{ref}, msg.Value}}, nil
		}
		return []StackTraceEntry{FallbackNotPayableError{baseEntry{ref}, msg.Value}}, nil
	}

	return nil, nil
}

func isNonPayable(meta *ContractMetadata, fn *ContractFunction) bool {
	return fn != nil && !fn.Payable
}

// BeforeTracingCreateMessage implements spec.md §4.3's before-tracing
// create checks: non-payable constructor called with value, and the
// solc>=0.5.9 invalid-constructor-arguments heuristic.
func BeforeTracingCreateMessage(msg *trace.Node, meta *ContractMetadata) ([]StackTraceEntry, error) {
	if meta == nil {
		return nil, ErrMissingContract
	}
	ctor := meta.FunctionNamed(ConstructorFunctionName)
	if isNonPayable(meta, ctor) && msg.Value != nil && !msg.Value.IsZero() {
		return []StackTraceEntry{FunctionNotPayableError{baseEntry{contractStartRef(meta)}, msg.Value}}, nil
	}

	atLeast059 := compilerAtLeast(meta.CompilerVersion, 0, 6)
	if !atLeast059 && compilerAtLeast(meta.CompilerVersion, 0, 5) {
		// 0.5.x: compare the leading digits of the patch component.
		if parts := strings.SplitN(meta.CompilerVersion, ".", 3); len(parts) == 3 {
			patch := 0
			for _, c := range parts[2] {
				if c < '0' || c > '9' {
					break
				}
				patch = patch*10 + int(c-'0')
			}
			atLeast059 = patch >= 9
		}
	}
	if atLeast059 && isConstructorInvalidArguments(msg, meta) {
		return []StackTraceEntry{InvalidParamsError{baseEntry{contractStartRef(meta)}}}, nil
	}
	return nil, nil
}

// isConstructorInvalidArguments applies a reduced form of the heuristic from
// spec.md §4.3: the last recorded step is a REVERT and at least one CODESIZE
// was read — the signature solc leaves behind when constructor args fail ABI
// decoding before any user code runs. It does not check whether the REVERT
// is unmapped or whether the mapped instructions lie inside the
// contract/constructor region; meta is not consulted.
func isConstructorInvalidArguments(msg *trace.Node, meta *ContractMetadata) bool {
	last, ok := msg.LastStep()
	if !ok || !last.IsEvm || last.Opcode != opREVERT {
		return false
	}
	sawCodesize := false
	for _, step := range msg.Steps {
		if !step.IsEvm {
			continue
		}
		if step.Opcode == opCODESIZE {
			sawCodesize = true
		}
	}
	return sawCodesize
}

const (
	opCODESIZE    = 0x38
	opREVERT      = 0xfd
	opISZERO      = 0x15
	opEXTCODESIZE = 0x3b
)
