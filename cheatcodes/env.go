package cheatcodes

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/soltrace/forge-evm/backend"
)

// Context bundles what a handler needs beyond the State itself: the
// backend to mutate and the metadata of the call currently invoking the
// cheatcode address (spec.md §4.2 "Mutate EvmContext.env" /
// "Mutate JournalInner state via helper journaled_account(addr)").
type Context struct {
	Backend *backend.Backend
	Meta    CallMetadata
	FS      FileSystem
}

// CallMetadata is the minimal shape of "the call dispatching this
// cheatcode" a handler needs: who is calling, at what depth.
type CallMetadata struct {
	Caller common.Address
	Depth  int
}

func handleWarp(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "uint256")
	if err != nil {
		return nil, err
	}
	ts := vals[0].(*big.Int)
	ctx.Backend.Env().Timestamp = ts.Uint64()
	return nil, nil
}

func handleRoll(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "uint256")
	if err != nil {
		return nil, err
	}
	ctx.Backend.Env().Number = vals[0].(*big.Int).Uint64()
	return nil, nil
}

func handleFee(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "uint256")
	if err != nil {
		return nil, err
	}
	u, overflow := uint256.FromBig(vals[0].(*big.Int))
	if overflow {
		return nil, ErrValueBounds
	}
	ctx.Backend.Env().BaseFee = u
	return nil, nil
}

func handleCoinbase(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "address")
	if err != nil {
		return nil, err
	}
	ctx.Backend.Env().Coinbase = vals[0].(common.Address)
	return nil, nil
}

func handleChainID(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "uint256")
	if err != nil {
		return nil, err
	}
	ctx.Backend.Env().ChainID = new(big.Int).Set(vals[0].(*big.Int))
	return nil, nil
}

func handleDifficulty(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "uint256")
	if err != nil {
		return nil, err
	}
	ctx.Backend.Env().Difficulty = new(big.Int).Set(vals[0].(*big.Int))
	return nil, nil
}

func handlePrevrandao(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "bytes32")
	if err != nil {
		return nil, err
	}
	raw := vals[0].([32]byte)
	ctx.Backend.Env().PrevRandao = common.Hash(raw)
	return nil, nil
}

func handleBlobhashes(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "bytes32[]")
	if err != nil {
		return nil, err
	}
	raw := vals[0].([][32]byte)
	hashes := make([]common.Hash, len(raw))
	for i, h := range raw {
		hashes[i] = common.Hash(h)
	}
	ctx.Backend.Env().BlobHashes = hashes
	return nil, nil
}

func handleBlobBaseFee(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "uint256")
	if err != nil {
		return nil, err
	}
	u, overflow := uint256.FromBig(vals[0].(*big.Int))
	if overflow {
		return nil, ErrValueBounds
	}
	ctx.Backend.Env().BlobBaseFee = u
	return nil, nil
}

func handleTxGasPrice(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "uint256")
	if err != nil {
		return nil, err
	}
	u, overflow := uint256.FromBig(vals[0].(*big.Int))
	if overflow {
		return nil, ErrValueBounds
	}
	ctx.Backend.Env().TxGasPrice = u
	return nil, nil
}

func handleDeal(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "address", "uint256")
	if err != nil {
		return nil, err
	}
	addr := vals[0].(common.Address)
	newBal, overflow := uint256.FromBig(vals[1].(*big.Int))
	if overflow {
		return nil, ErrValueBounds
	}
	j, err := ctx.Backend.ActiveJournal()
	if err != nil {
		return nil, err
	}
	acc := j.JournaledAccount(addr)
	old := acc.Balance
	acc.Balance = newBal
	s.RecordDeal(DealRecord{Account: addr, OldBalance: old, NewBalance: newBal})
	return nil, nil
}

func handlePrank1(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "address")
	if err != nil {
		return nil, err
	}
	s.StartPrank(ctx.Meta.Caller, vals[0].(common.Address), nil, ctx.Meta.Depth, true)
	return nil, nil
}

func handlePrank2(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "address", "address")
	if err != nil {
		return nil, err
	}
	origin := vals[1].(common.Address)
	s.StartPrank(ctx.Meta.Caller, vals[0].(common.Address), &origin, ctx.Meta.Depth, true)
	return nil, nil
}

func handleStartPrank1(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "address")
	if err != nil {
		return nil, err
	}
	s.StartPrank(ctx.Meta.Caller, vals[0].(common.Address), nil, ctx.Meta.Depth, false)
	return nil, nil
}

func handleStartPrank2(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "address", "address")
	if err != nil {
		return nil, err
	}
	origin := vals[1].(common.Address)
	s.StartPrank(ctx.Meta.Caller, vals[0].(common.Address), &origin, ctx.Meta.Depth, false)
	return nil, nil
}

func handleStopPrank(s *State, ctx *Context, args []byte) ([]byte, error) {
	s.StopPrank()
	return nil, nil
}

func handleExpectRevert0(s *State, ctx *Context, args []byte) ([]byte, error) {
	s.SetExpectedRevert(nil, uint64(ctx.Meta.Depth), ExpectedRevertDefault)
	return nil, nil
}

func handleExpectRevertBytes(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "bytes")
	if err != nil {
		return nil, err
	}
	s.SetExpectedRevert(vals[0].([]byte), uint64(ctx.Meta.Depth), ExpectedRevertDefault)
	return nil, nil
}

func handleExpectRevertSelector(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "bytes4")
	if err != nil {
		return nil, err
	}
	sel := vals[0].([4]byte)
	s.SetExpectedRevert(sel[:], uint64(ctx.Meta.Depth), ExpectedRevertDefault)
	return nil, nil
}

func handleExpectEmit4(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "bool", "bool", "bool", "bool")
	if err != nil {
		return nil, err
	}
	mask := [4]bool{vals[0].(bool), vals[1].(bool), vals[2].(bool), vals[3].(bool)}
	s.RegisterExpectedEmit(common.Address{}, mask, true, ctx.Meta.Depth)
	return nil, nil
}

func handleExpectEmit5(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "bool", "bool", "bool", "bool", "address")
	if err != nil {
		return nil, err
	}
	mask := [4]bool{vals[0].(bool), vals[1].(bool), vals[2].(bool), vals[3].(bool)}
	s.RegisterExpectedEmit(vals[4].(common.Address), mask, true, ctx.Meta.Depth)
	return nil, nil
}

func handleExpectCall2(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "address", "bytes")
	if err != nil {
		return nil, err
	}
	s.RegisterExpectedCall(vals[0].(common.Address), vals[1].([]byte), nil, nil, nil, 1)
	return nil, nil
}

func handleExpectCall3(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "address", "uint256", "bytes")
	if err != nil {
		return nil, err
	}
	value, overflow := uint256.FromBig(vals[1].(*big.Int))
	if overflow {
		return nil, ErrValueBounds
	}
	s.RegisterExpectedCall(vals[0].(common.Address), vals[2].([]byte), value, nil, nil, 1)
	return nil, nil
}

func handleMockCall3(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "address", "bytes", "bytes")
	if err != nil {
		return nil, err
	}
	s.RegisterMockCall(vals[0].(common.Address), vals[1].([]byte), nil, false, vals[2].([]byte), false)
	return nil, nil
}

func handleMockCall4(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "address", "uint256", "bytes", "bytes")
	if err != nil {
		return nil, err
	}
	value, overflow := uint256.FromBig(vals[1].(*big.Int))
	if overflow {
		return nil, ErrValueBounds
	}
	s.RegisterMockCall(vals[0].(common.Address), vals[2].([]byte), value, true, vals[3].([]byte), false)
	return nil, nil
}

func handleClearMockedCalls(s *State, ctx *Context, args []byte) ([]byte, error) {
	s.ClearMockedCalls()
	return nil, nil
}

func handleRecord(s *State, ctx *Context, args []byte) ([]byte, error) {
	s.StartRecordingAccesses()
	s.StartRecordingLogs()
	return nil, nil
}

// handleGetRecordedLogs returns the drained logs JSON-encoded as a single
// ABI string rather than a nested array-of-arrays tuple — the caller
// (forge-std's Vm binding) decodes the JSON on its side, the same
// indirection getStateDiffJson uses for its own structured result.
func handleGetRecordedLogs(s *State, ctx *Context, args []byte) ([]byte, error) {
	logs := s.DrainRecordedLogs()
	raw, err := json.Marshal(logs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return pack([]string{"string"}, string(raw))
}

func handleGetMappingKeyAndParentOf(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "address", "bytes32")
	if err != nil {
		return nil, err
	}
	slot := common.Hash(vals[1].([32]byte))
	info, ok := s.MappingSlot(slot)
	if !ok {
		return nil, ErrSlotNotPresent
	}
	return pack([]string{"bool", "bytes32", "bytes32"}, true, [32]byte(info.Key), [32]byte(info.ParentSlot))
}

func handlePauseTracing(s *State, ctx *Context, args []byte) ([]byte, error) {
	s.PauseTracing()
	return nil, nil
}

func handleResumeTracing(s *State, ctx *Context, args []byte) ([]byte, error) {
	s.ResumeTracing()
	return nil, nil
}

func handlePauseGasMetering(s *State, ctx *Context, args []byte) ([]byte, error) {
	s.PauseGasMetering(0)
	return nil, nil
}

func handleResumeGasMetering(s *State, ctx *Context, args []byte) ([]byte, error) {
	s.ResumeGasMetering()
	return nil, nil
}
