package cheatcodes

import "github.com/ethereum/go-ethereum/crypto"

// signatures is the set of cheatcode function signatures this package
// recognizes, split between implemented (dispatchTable in dispatch.go) and
// merely recognized-but-unsupported (everything else in this list). The
// unsupported half feeds the "upstream compatibility" lookup spec.md §4.2
// describes: "Unknown selector -> look up upstream cheatcode signatures and
// produce 'cheatcode is not supported' if found."
var signatures = []string{
	"warp(uint256)",
	"roll(uint256)",
	"fee(uint256)",
	"coinbase(address)",
	"chainId(uint256)",
	"difficulty(uint256)",
	"prevrandao(bytes32)",
	"blobhashes(bytes32[])",
	"blobBaseFee(uint256)",
	"txGasPrice(uint256)",
	"deal(address,uint256)",
	"prank(address)",
	"prank(address,address)",
	"startPrank(address)",
	"startPrank(address,address)",
	"stopPrank()",
	"expectRevert()",
	"expectRevert(bytes)",
	"expectRevert(bytes4)",
	"expectEmit(bool,bool,bool,bool)",
	"expectEmit(bool,bool,bool,bool,address)",
	"expectCall(address,bytes)",
	"expectCall(address,uint256,bytes)",
	"mockCall(address,bytes,bytes)",
	"mockCall(address,uint256,bytes,bytes)",
	"clearMockedCalls()",
	"record()",
	"getRecordedLogs()",
	"getMappingKeyAndParentOf(address,bytes32)",
	"pauseTracing()",
	"resumeTracing()",
	"pauseGasMetering()",
	"resumeGasMetering()",
	"loadAllocs(string)",
	"dumpState(string)",
	"getStateDiffJson()",
	"snapshotState()",
	"revertToState(uint256)",
	"revertToStateAndDelete(uint256)",
	"createFork(string)",
	"createFork(string,uint256)",
	"createSelectFork(string)",
	"createSelectFork(string,uint256)",
	"selectFork(uint256)",
	"rollFork(uint256)",
	"rollFork(uint256,uint256)",
	// Recognized from the upstream framework but not implemented here —
	// present only so the "is not supported" branch has real entries to hit.
	"sign(uint256,bytes32)",
	"ffi(string[])",
	"setEnv(string,string)",
	"rpcUrl(string)",
}

// selector computes the 4-byte function selector for sig the same way the
// EVM does: the first four bytes of keccak256(sig). Computed at call time
// rather than hardcoded, so the table can never drift from the signature
// list above.
func selector(sig string) [4]byte {
	h := crypto.Keccak256([]byte(sig))
	var sel [4]byte
	copy(sel[:], h[:4])
	return sel
}

var signatureBySelector = func() map[[4]byte]string {
	m := make(map[[4]byte]string, len(signatures))
	for _, sig := range signatures {
		m[selector(sig)] = sig
	}
	return m
}()

// LookupSignature resolves sel to its known signature string, for the
// "recognized upstream but unsupported" branch of unknown-selector
// handling.
func LookupSignature(sel [4]byte) (string, bool) {
	sig, ok := signatureBySelector[sel]
	return sig, ok
}
