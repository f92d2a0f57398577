// Package inferrer reconstructs a human-readable Solidity call stack from a
// nested EVM trace and compiler metadata, the way the before/after tracing
// passes of edr_solidity's error inferrer do — classifying a revert as a
// panic, custom error, missing-payable-function, unmapped compiler revert,
// or a handful of other well-known shapes instead of leaving the caller
// with a bare return-data blob.
package inferrer

import "github.com/holiman/uint256"

// ContractKind distinguishes a library from an ordinary contract, the one
// distinction the direct-library-call and payable-function checks need.
type ContractKind int

const (
	ContractKindContract ContractKind = iota
	ContractKindLibrary
)

// FunctionType classifies a ContractFunction for CallstackEntry's
// function_type field and the modifier/constructor fixups.
type FunctionType int

const (
	FunctionTypeFunction FunctionType = iota
	FunctionTypeModifier
	FunctionTypeConstructor
	FunctionTypeFallback
	FunctionTypeReceive
	FunctionTypeFreeFunction
)

const (
	ConstructorFunctionName = "constructor"
	FallbackFunctionName    = "fallback"
	ReceiveFunctionName     = "receive"
)

// SourceLocation resolves to a file/offset/length range, and on demand to a
// starting line number and an enclosing function.
type SourceLocation struct {
	File   string
	Offset int
	Length int
}

// JumpType distinguishes a plain jump from one that enters or leaves a
// function, the signal instruction_to_callstack_stack_trace_entry uses to
// decide whether a step even maps onto Solidity source.
type JumpType int

const (
	JumpRegular JumpType = iota
	JumpIntoFunction
	JumpOutOfFunction
)

// Instruction is one decoded bytecode instruction plus its (possibly
// absent) Solidity source mapping.
type Instruction struct {
	PC       uint64
	Opcode   byte
	Location *SourceLocation
	Jump     JumpType
}

// ContractFunction describes one function/modifier/constructor of a
// contract: its name, type, selector, source location and payability.
type ContractFunction struct {
	Name     string
	Type     FunctionType
	Selector [4]byte
	Location *SourceLocation
	Payable  bool
}

// ContractMetadata is the compiler output the inferrer reasons against:
// the contract's name/kind, its functions (for selector resolution), its
// custom errors (for CustomError decoding), and the full instruction list
// (for location-based lookups).
type ContractMetadata struct {
	Name            string
	Kind            ContractKind
	CompilerVersion string
	Functions       []ContractFunction
	CustomErrors    []ContractFunction // selector + name, reused from ContractFunction
	Instructions    []Instruction
	Location        *SourceLocation // location of the contract as a whole, used for contract-level frames
}

// FunctionBySelector resolves the function a 4-byte call selector dispatches
// to, or nil if unrecognized. Empty calldata (<4 bytes) always misses.
func (c *ContractMetadata) FunctionBySelector(selector []byte) *ContractFunction {
	if len(selector) < 4 {
		return nil
	}
	for i := range c.Functions {
		f := &c.Functions[i]
		if f.Selector[0] == selector[0] && f.Selector[1] == selector[1] && f.Selector[2] == selector[2] && f.Selector[3] == selector[3] {
			return f
		}
	}
	return nil
}

// CustomErrorBySelector resolves a 4-byte revert-data selector to a
// declared custom error, or nil.
func (c *ContractMetadata) CustomErrorBySelector(selector []byte) *ContractFunction {
	if len(selector) < 4 {
		return nil
	}
	for i := range c.CustomErrors {
		e := &c.CustomErrors[i]
		if e.Selector[0] == selector[0] && e.Selector[1] == selector[1] && e.Selector[2] == selector[2] && e.Selector[3] == selector[3] {
			return e
		}
	}
	return nil
}

// FunctionNamed finds a function by exact name, used to resolve fallback,
// receive and constructor entries which have no selector.
func (c *ContractMetadata) FunctionNamed(name string) *ContractFunction {
	for i := range c.Functions {
		if c.Functions[i].Name == name {
			return &c.Functions[i]
		}
	}
	return nil
}

// SourceReference is the location + naming context attached to most
// StackTraceEntry variants: which file, which line, which contract and
// function the frame points at.
type SourceReference struct {
	SourceName    string
	SourceContent string
	Contract      string
	Function      *string
	Line          int
	RangeStart    int
	RangeEnd      int
}

// StackTraceEntry is the Go rendering of the Rust sum type: one interface
// plus one struct per variant, each reporting its own SourceReference (or
// none, for the handful of variants that don't carry one).
type StackTraceEntry interface {
	isStackTraceEntry()
	// SourceRef returns the entry's source reference, or nil if it has none
	// (e.g. NoncontractAccountCalledError).
	SourceRef() *SourceReference
}

type baseEntry struct{ Ref *SourceReference }

func (b baseEntry) SourceRef() *SourceReference { return b.Ref }

// CallstackEntry is an ordinary stack frame: some function or modifier was
// executing when the failure happened.
type CallstackEntry struct {
	baseEntry
	FunctionType FunctionType
}

func (CallstackEntry) isStackTraceEntry() {}

// InternalFunctionCallstackEntry is a frame for a jump made from internal
// (yul-generated) code that doesn't map to a user-written Solidity function.
type InternalFunctionCallstackEntry struct {
	baseEntry
	PC uint64
}

func (InternalFunctionCallstackEntry) isStackTraceEntry() {}

// RevertError is a plain `revert()`/`require()` failure with no decodable
// reason data.
type RevertError struct {
	baseEntry
	Message string
}

func (RevertError) isStackTraceEntry() {}

// PanicError is a decoded Panic(uint256) revert, carrying the 1-byte panic
// code (0x01 assert, 0x11 overflow, 0x51 uninitialized internal function,
// etc).
type PanicError struct {
	baseEntry
	Code byte
}

func (PanicError) isStackTraceEntry() {}

// CustomError is a decoded user-defined Solidity error.
type CustomError struct {
	baseEntry
	Message string
}

func (CustomError) isStackTraceEntry() {}

// FunctionNotPayableError reports a non-payable function called with
// value > 0.
type FunctionNotPayableError struct {
	baseEntry
	Value *uint256.Int
}

func (FunctionNotPayableError) isStackTraceEntry() {}

// FallbackNotPayableError reports the fallback function called with
// value > 0.
type FallbackNotPayableError struct {
	baseEntry
	Value *uint256.Int
}

func (FallbackNotPayableError) isStackTraceEntry() {}

// FallbackNotPayableAndNoReceiveError is FallbackNotPayableError's variant
// for a plain-ether transfer (empty calldata) with no receive function.
type FallbackNotPayableAndNoReceiveError struct {
	baseEntry
	Value *uint256.Int
}

func (FallbackNotPayableAndNoReceiveError) isStackTraceEntry() {}

// MissingFallbackOrReceiveError reports a plain-ether transfer to a
// contract with neither fallback nor receive.
type MissingFallbackOrReceiveError struct{ baseEntry }

func (MissingFallbackOrReceiveError) isStackTraceEntry() {}

// UnrecognizedFunctionWithoutFallbackError reports an unknown selector
// called against a contract with no fallback.
type UnrecognizedFunctionWithoutFallbackError struct{ baseEntry }

func (UnrecognizedFunctionWithoutFallbackError) isStackTraceEntry() {}

// InvalidParamsError reports constructor/function arguments that fail to
// decode against the ABI.
type InvalidParamsError struct{ baseEntry }

func (InvalidParamsError) isStackTraceEntry() {}

// NoncontractAccountCalledError reports a CALL target with no code.
type NoncontractAccountCalledError struct{ baseEntry }

func (NoncontractAccountCalledError) isStackTraceEntry() {}

// CallFailedError reports a call that returned from the callee and then
// immediately failed at the call site with no further progress.
type CallFailedError struct{ baseEntry }

func (CallFailedError) isStackTraceEntry() {}

// ReturndataSizeError reports a successful submessage whose return data the
// outer message failed to decode against its expected ABI shape.
type ReturndataSizeError struct{ baseEntry }

func (ReturndataSizeError) isStackTraceEntry() {}

// ContractCallRunOutOfGasError reports an out-of-gas submessage whose
// failure propagated as an empty-data revert at the call site.
type ContractCallRunOutOfGasError struct{ baseEntry }

func (ContractCallRunOutOfGasError) isStackTraceEntry() {}

// DirectLibraryCallError reports a library called directly (not via
// DELEGATECALL from a consumer contract).
type DirectLibraryCallError struct{ baseEntry }

func (DirectLibraryCallError) isStackTraceEntry() {}

// ContractTooLargeError reports a CREATE whose resulting code exceeds the
// protocol size limit.
type ContractTooLargeError struct{ baseEntry }

func (ContractTooLargeError) isStackTraceEntry() {}

// UnmappedSolc0_6_3RevertError reports a synthesized frame for solc 0.6.3's
// known unmapped-revert compiler bug.
type UnmappedSolc0_6_3RevertError struct{ baseEntry }

func (UnmappedSolc0_6_3RevertError) isStackTraceEntry() {}

// OtherExecutionError is the fallback variant: nothing more specific could
// be inferred, so the last seen source reference (if any) is reported as-is.
type OtherExecutionError struct{ baseEntry }

func (OtherExecutionError) isStackTraceEntry() {}

// CheatCodeError reports a revert originating from the cheatcode
// precompile (an Error(string) or a structured unsupported/missing
// cheatcode payload).
type CheatCodeError struct {
	baseEntry
	Message string
}

func (CheatCodeError) isStackTraceEntry() {}
