package cheatcodes

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/soltrace/forge-evm/backend"
)

// FileSystem is the host collaborator loadAllocs/dumpState read and write
// through. Actual file IO is out of this package's scope (spec.md §1 lists
// "persistent on-disk caches" among the external collaborators); injecting
// the interface keeps the cheatcode handlers testable without touching a
// real filesystem, the same seam the teacher draws around its RPC store.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
}

// jsonGenesisAccount is the on-disk shape of one genesis.json allocation
// entry: hex-string fields, decoded into backend.GenesisAccount.
type jsonGenesisAccount struct {
	Balance string            `json:"balance"`
	Nonce   string            `json:"nonce,omitempty"`
	Code    string            `json:"code,omitempty"`
	Storage map[string]string `json:"storage,omitempty"`
}

// jsonGenesis is the full genesis.json shape; loadAllocs accepts either
// this or a bare map<address, account> (spec.md §6 "loadAllocs(path) reads
// either a bare map<Address, GenesisAccount> or a full genesis (then
// extracts alloc)").
type jsonGenesis struct {
	Alloc map[string]jsonGenesisAccount `json:"alloc"`
}

func decodeGenesisAccount(j jsonGenesisAccount) (backend.GenesisAccount, error) {
	var acc backend.GenesisAccount
	if j.Balance != "" {
		bal, err := hexutil.DecodeBig(j.Balance)
		if err != nil {
			return acc, fmt.Errorf("%w: bad balance %q", ErrInvalidInput, j.Balance)
		}
		u, overflow := uint256.FromBig(bal)
		if overflow {
			return acc, ErrValueBounds
		}
		acc.Balance = u
	}
	if j.Nonce != "" {
		n, err := hexutil.DecodeUint64(j.Nonce)
		if err != nil {
			return acc, fmt.Errorf("%w: bad nonce %q", ErrInvalidInput, j.Nonce)
		}
		acc.Nonce = n
	}
	if j.Code != "" {
		code, err := hexutil.Decode(j.Code)
		if err != nil {
			return acc, fmt.Errorf("%w: bad code %q", ErrInvalidInput, j.Code)
		}
		acc.Code = code
	}
	if len(j.Storage) > 0 {
		acc.Storage = make(map[common.Hash]common.Hash, len(j.Storage))
		for k, v := range j.Storage {
			slot, err := hexutil.Decode(k)
			if err != nil {
				return acc, fmt.Errorf("%w: bad storage key %q", ErrInvalidInput, k)
			}
			val, err := hexutil.Decode(v)
			if err != nil {
				return acc, fmt.Errorf("%w: bad storage value %q", ErrInvalidInput, v)
			}
			acc.Storage[common.BytesToHash(slot)] = common.BytesToHash(val)
		}
	}
	return acc, nil
}

// LoadAllocsFromJSON parses raw as either a bare allocation map or a full
// genesis and applies it through backend.Backend.LoadAllocs.
func LoadAllocsFromJSON(b *backend.Backend, raw []byte) error {
	allocs := make(map[common.Address]backend.GenesisAccount)

	var bare map[string]jsonGenesisAccount
	if err := json.Unmarshal(raw, &bare); err == nil && len(bare) > 0 {
		for addrStr, ja := range bare {
			acc, err := decodeGenesisAccount(ja)
			if err != nil {
				return err
			}
			allocs[common.HexToAddress(addrStr)] = acc
		}
		return b.LoadAllocs(allocs)
	}

	var full jsonGenesis
	if err := json.Unmarshal(raw, &full); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	for addrStr, ja := range full.Alloc {
		acc, err := decodeGenesisAccount(ja)
		if err != nil {
			return err
		}
		allocs[common.HexToAddress(addrStr)] = acc
	}
	return b.LoadAllocs(allocs)
}

func handleLoadAllocs(s *State, ctx *Context, args []byte) ([]byte, error) {
	if ctx.FS == nil {
		return nil, ErrFilesystemDenied
	}
	vals, err := unpack(args, "string")
	if err != nil {
		return nil, err
	}
	path := vals[0].(string)
	raw, err := ctx.FS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFilesystemDenied, err)
	}
	s.markImpure("loadAllocs(string)")
	return nil, LoadAllocsFromJSON(ctx.Backend, raw)
}

// excludedFromDump are addresses dumpState never writes out: the cheatcode
// precompile, the CREATE2 deployer and the default test sender. The console
// address and the test contract's address are not in this set and are
// written out like any other account.
var excludedFromDump = map[common.Address]bool{
	backend.CheatcodeAddress:  true,
	backend.Create2Deployer:   true,
	backend.DefaultTestSender: true,
}

func handleDumpState(s *State, ctx *Context, args []byte) ([]byte, error) {
	if ctx.FS == nil {
		return nil, ErrFilesystemDenied
	}
	vals, err := unpack(args, "string")
	if err != nil {
		return nil, err
	}
	path := vals[0].(string)

	j, err := ctx.Backend.ActiveJournal()
	if err != nil {
		return nil, err
	}
	out := make(map[string]jsonGenesisAccount)
	for addr, acc := range j.Accounts() {
		if excludedFromDump[addr] {
			continue
		}
		if acc.Balance != nil && acc.Balance.IsZero() && acc.Nonce == 0 && len(acc.Code) == 0 {
			continue
		}
		ja := jsonGenesisAccount{Nonce: hexutil.EncodeUint64(acc.Nonce)}
		if acc.Balance != nil {
			ja.Balance = hexutil.EncodeBig(acc.Balance.ToBig())
		}
		if len(acc.Code) > 0 {
			ja.Code = hexutil.Encode(acc.Code)
		}
		if slots := j.StorageMap(addr); len(slots) > 0 {
			ja.Storage = make(map[string]string, len(slots))
			for slot, val := range slots {
				ja.Storage[slot.Hex()] = val.Hex()
			}
		}
		out[addr.Hex()] = ja
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := ctx.FS.WriteFile(path, raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFilesystemDenied, err)
	}
	return nil, nil
}

func handleGetStateDiffJSON(s *State, ctx *Context, args []byte) ([]byte, error) {
	accesses := s.StopRecordingAccesses()
	raw, err := json.Marshal(accesses)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return pack([]string{"string"}, string(raw))
}
