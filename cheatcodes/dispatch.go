package cheatcodes

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Handler is a cheatcode ABI handler: given the current State, the calling
// context and the ABI-encoded argument tuple (calldata with the 4-byte
// selector already stripped), it returns the ABI-encoded result or an
// error (spec.md §4.2 "Each cheatcode is an ABI selector mapped to a
// handler with signature (state, ctx) -> Result<Bytes, Error>").
type Handler func(s *State, ctx *Context, args []byte) ([]byte, error)

var dispatchTable = map[[4]byte]Handler{
	selector("warp(uint256)"):        handleWarp,
	selector("roll(uint256)"):        handleRoll,
	selector("fee(uint256)"):         handleFee,
	selector("coinbase(address)"):    handleCoinbase,
	selector("chainId(uint256)"):     handleChainID,
	selector("difficulty(uint256)"):  handleDifficulty,
	selector("prevrandao(bytes32)"):  handlePrevrandao,
	selector("blobhashes(bytes32[])"): handleBlobhashes,
	selector("blobBaseFee(uint256)"): handleBlobBaseFee,
	selector("txGasPrice(uint256)"):  handleTxGasPrice,
	selector("deal(address,uint256)"): handleDeal,

	selector("prank(address)"):               handlePrank1,
	selector("prank(address,address)"):       handlePrank2,
	selector("startPrank(address)"):          handleStartPrank1,
	selector("startPrank(address,address)"):  handleStartPrank2,
	selector("stopPrank()"):                  handleStopPrank,

	selector("expectRevert()"):       handleExpectRevert0,
	selector("expectRevert(bytes)"):  handleExpectRevertBytes,
	selector("expectRevert(bytes4)"): handleExpectRevertSelector,

	selector("expectEmit(bool,bool,bool,bool)"):         handleExpectEmit4,
	selector("expectEmit(bool,bool,bool,bool,address)"): handleExpectEmit5,

	selector("expectCall(address,bytes)"):         handleExpectCall2,
	selector("expectCall(address,uint256,bytes)"): handleExpectCall3,

	selector("mockCall(address,bytes,bytes)"):         handleMockCall3,
	selector("mockCall(address,uint256,bytes,bytes)"): handleMockCall4,
	selector("clearMockedCalls()"):                    handleClearMockedCalls,

	selector("record()"):           handleRecord,
	selector("getRecordedLogs()"):  handleGetRecordedLogs,
	selector("getMappingKeyAndParentOf(address,bytes32)"): handleGetMappingKeyAndParentOf,

	selector("pauseTracing()"):       handlePauseTracing,
	selector("resumeTracing()"):      handleResumeTracing,
	selector("pauseGasMetering()"):   handlePauseGasMetering,
	selector("resumeGasMetering()"):  handleResumeGasMetering,

	selector("loadAllocs(string)"):     handleLoadAllocs,
	selector("dumpState(string)"):      handleDumpState,
	selector("getStateDiffJson()"):     handleGetStateDiffJSON,

	selector("snapshotState()"):              handleSnapshotState,
	selector("revertToState(uint256)"):       handleRevertToState,
	selector("revertToStateAndDelete(uint256)"): handleRevertToStateAndDelete,

	selector("createFork(string)"):               handleCreateFork1,
	selector("createFork(string,uint256)"):       handleCreateFork2,
	selector("createSelectFork(string)"):         handleCreateSelectFork1,
	selector("createSelectFork(string,uint256)"): handleCreateSelectFork2,
	selector("selectFork(uint256)"):              handleSelectFork,
	selector("rollFork(uint256)"):                handleRollFork1,
	selector("rollFork(uint256,uint256)"):        handleRollFork2,
}

// Dispatch implements spec.md §4.2's cheatcode dispatch contract and §6's
// unknown-selector fallback: "Unknown selector -> look up upstream
// cheatcode signatures and produce 'cheatcode is not supported' if found,
// else 'unknown cheatcode with selector'." A handler error is returned
// unchanged; the caller (the inspector's cheatcode call handler) turns it
// into the ABI-encoded Error(string) revert payload with EncodeError.
// Dispatch itself never panics on malformed calldata.
func Dispatch(s *State, ctx *Context, calldata []byte) ([]byte, error) {
	if len(calldata) < 4 {
		return nil, fmt.Errorf("%w: calldata shorter than a selector", ErrInvalidInput)
	}
	var sel [4]byte
	copy(sel[:], calldata[:4])
	args := calldata[4:]

	handler, ok := dispatchTable[sel]
	if !ok {
		sig, known := LookupSignature(sel)
		return nil, &UnsupportedCheatcodeError{Selector: sel, Signature: sig, Supported: known}
	}
	out, err := handler(s, ctx, args)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EncodeError ABI-encodes msg as Solidity's standard Error(string) revert
// payload, the shape Dispatch's caller (the inspector's cheatcode call
// handler) wraps every handler error in (spec.md §4.2 "Cheatcode handler
// error -> EVM revert with abi.encode(Error(string)) payload").
func EncodeError(msg string) []byte {
	packed, err := pack([]string{"string"}, msg)
	if err != nil {
		// string packing cannot fail; this would only trip on a logic bug.
		return nil
	}
	out := make([]byte, 4+len(packed))
	copy(out, errorSelector[:])
	copy(out[4:], packed)
	return out
}

var errorSelector = selector("Error(string)")

func newABIType(t string) (abi.Type, error) {
	return abi.NewType(t, "", nil)
}

func unpack(data []byte, types ...string) ([]interface{}, error) {
	args := make(abi.Arguments, len(types))
	for i, t := range types {
		typ, err := newABIType(t)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		args[i] = abi.Argument{Type: typ}
	}
	vals, err := args.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return vals, nil
}

func pack(types []string, vals ...interface{}) ([]byte, error) {
	args := make(abi.Arguments, len(types))
	for i, t := range types {
		typ, err := newABIType(t)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		args[i] = abi.Argument{Type: typ}
	}
	return args.Pack(vals...)
}
