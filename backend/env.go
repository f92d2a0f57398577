package backend

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Env is the block/tx environment the cheatcode handlers mutate in place
// (spec.md §4.2 "Mutate EvmContext.env (warp, roll, fee, coinbase, chainId,
// prevrandao, blobhashes, blobBaseFee, txGasPrice)"). One Env is shared by
// every fork: a fork switch or roll only sets Number from the target fork's
// block number, and every other field carries over unchanged. Only
// RevertState replaces it wholesale, from the snapshot.
type Env struct {
	Number     uint64
	Timestamp  uint64
	BaseFee    *uint256.Int
	GasLimit   uint64
	Coinbase   common.Address
	Difficulty *big.Int
	PrevRandao common.Hash
	ChainID    *big.Int

	BlobBaseFee *uint256.Int
	BlobHashes  []common.Hash

	TxGasPrice *uint256.Int
	TxOrigin   common.Address
}

// Clone returns a deep-enough copy for snapshotting: every field that is a
// pointer or slice is duplicated so later mutation of one Env cannot alias
// the other.
func (e *Env) Clone() *Env {
	if e == nil {
		return nil
	}
	cp := *e
	if e.BaseFee != nil {
		cp.BaseFee = new(uint256.Int).Set(e.BaseFee)
	}
	if e.Difficulty != nil {
		cp.Difficulty = new(big.Int).Set(e.Difficulty)
	}
	if e.ChainID != nil {
		cp.ChainID = new(big.Int).Set(e.ChainID)
	}
	if e.BlobBaseFee != nil {
		cp.BlobBaseFee = new(uint256.Int).Set(e.BlobBaseFee)
	}
	if e.TxGasPrice != nil {
		cp.TxGasPrice = new(uint256.Int).Set(e.TxGasPrice)
	}
	if e.BlobHashes != nil {
		cp.BlobHashes = append([]common.Hash(nil), e.BlobHashes...)
	}
	return &cp
}

// DefaultEnv returns a minimal, self-consistent environment for a fresh
// in-memory backend (mainnet chain id, empty genesis-like block).
func DefaultEnv() *Env {
	return &Env{
		Number:     0,
		Timestamp:  0,
		BaseFee:    uint256.NewInt(0),
		GasLimit:   30_000_000,
		ChainID:    big.NewInt(1),
		Difficulty: new(big.Int),
	}
}
