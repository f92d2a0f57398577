// Package vm holds a few EVM-adjacent value types: the hardfork enumeration
// the inspector uses to gate hardfork-specific cheatcodes, and a standalone
// call metadata shape for expectCall/mockCall-style matching.
package vm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/params"
)

// Hardfork is a total order over the forks a cheatcode gate cares about,
// derived from params.ChainConfig the same way go-ethereum's own opcode
// tables are gated internally.
type Hardfork uint8

const (
	Frontier Hardfork = iota
	Homestead
	Tangerine
	SpuriousDragon
	Byzantium
	Constantinople
	Petersburg
	Istanbul
	Berlin
	London
	ArrowGlacier
	GrayGlacier
	Shanghai
	Cancun
	Prague
	Osaka
)

// SpecFor resolves the active Hardfork for (num, ts) under cfg. Nothing in
// this module calls it: the inspector gates post-Cancun cheatcodes
// (blobhashes, blobBaseFee) on inspector.Stack.Hardfork, which a host can set
// from SpecFor's result instead of hardcoding a block number.
func SpecFor(cfg *params.ChainConfig, num uint64, ts uint64) Hardfork {
	bn := new(big.Int).SetUint64(num)
	switch {
	case cfg.IsOsaka(bn, ts):
		return Osaka
	case cfg.IsPrague(bn, ts):
		return Prague
	case cfg.IsCancun(bn, ts):
		return Cancun
	case cfg.IsShanghai(bn, ts):
		return Shanghai
	case cfg.IsLondon(bn):
		if cfg.IsGrayGlacier(bn) {
			return GrayGlacier
		}
		if cfg.IsArrowGlacier(bn) {
			return ArrowGlacier
		}
		return London
	case cfg.IsBerlin(bn):
		return Berlin
	case cfg.IsIstanbul(bn):
		return Istanbul
	case cfg.IsPetersburg(bn):
		return Petersburg
	case cfg.IsConstantinople(bn):
		return Constantinople
	case cfg.IsByzantium(bn):
		return Byzantium
	case cfg.IsEIP158(bn):
		return SpuriousDragon
	case cfg.IsEIP150(bn):
		return Tangerine
	case cfg.IsHomestead(bn):
		return Homestead
	default:
		return Frontier
	}
}

// AtLeast reports whether h is at or after target in fork order.
func (h Hardfork) AtLeast(target Hardfork) bool { return h >= target }
