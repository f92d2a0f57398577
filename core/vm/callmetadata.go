package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// CallMetadata is a shape of "the call currently under way" for
// expectCall/mockCall-style matching (spec.md §4.2 mockCall/expectCall). The
// inspector and cheatcodes packages do not use it; they pass
// inspector.CallRequest and cheatcodes.CallMetadata. It carries only what a matcher needs —
// not the full EVM call frame — the same minimal-surface boundary the
// teacher struck between its execution adapters and the FFI layer.
type CallMetadata struct {
	From     common.Address
	To       common.Address
	Data     []byte
	Value    *uint256.Int
	GasLimit uint64
	Depth    int
	IsStatic bool
}

// MatchesSelector reports whether Data begins with the given 4-byte
// function selector, the granularity mockCall/expectCall match at when no
// full calldata was supplied.
func (m CallMetadata) MatchesSelector(selector [4]byte) bool {
	if len(m.Data) < 4 {
		return false
	}
	return m.Data[0] == selector[0] && m.Data[1] == selector[1] && m.Data[2] == selector[2] && m.Data[3] == selector[3]
}
