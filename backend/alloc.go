package backend

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// GenesisAccount is the minimal shape load_allocs needs out of a genesis.json
// style allocation entry (spec.md §4.1 load_allocs).
type GenesisAccount struct {
	Balance *uint256.Int
	Nonce   uint64
	Code    []byte
	Storage map[common.Hash]common.Hash
}

// LoadAllocs writes every entry of allocs into the active journal, touching
// each account so the write survives a subsequent fork switch the same way
// a cheatcode-driven mutation would (spec.md §4.1 load_allocs).
func (b *Backend) LoadAllocs(allocs map[common.Address]GenesisAccount) error {
	j, err := b.ActiveJournal()
	if err != nil {
		return err
	}
	for addr, alloc := range allocs {
		acc := j.JournaledAccount(addr)
		if alloc.Balance != nil {
			acc.Balance = new(uint256.Int).Set(alloc.Balance)
		}
		acc.Nonce = alloc.Nonce
		if alloc.Code != nil {
			acc.Code = append([]byte(nil), alloc.Code...)
			acc.CodeHash = crypto.Keccak256Hash(acc.Code)
		}
		j.MarkCreated(addr)
		for slot, val := range alloc.Storage {
			j.SetStorage(addr, slot, val)
		}
	}
	return nil
}

// CloneAccount copies genesis's balance, nonce, code and storage onto
// target in the active journal, touching target so the clone persists
// across fork switches like any other local mutation (spec.md §4.1
// clone_account).
func (b *Backend) CloneAccount(genesis, target common.Address) error {
	j, err := b.ActiveJournal()
	if err != nil {
		return err
	}
	src := j.Account(genesis)
	dst := j.JournaledAccount(target)
	if src.Balance != nil {
		dst.Balance = new(uint256.Int).Set(src.Balance)
	} else {
		dst.Balance = new(uint256.Int)
	}
	dst.Nonce = src.Nonce
	if src.Code != nil {
		dst.Code = append([]byte(nil), src.Code...)
		dst.CodeHash = src.CodeHash
	}
	j.MarkCreated(target)
	for slot, val := range j.StorageMap(genesis) {
		j.SetStorage(target, slot, val)
	}
	return nil
}
