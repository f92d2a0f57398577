package cheatcodes

import (
	"context"
	"math/big"

	"github.com/soltrace/forge-evm/backend"
)

func handleSnapshotState(s *State, ctx *Context, args []byte) ([]byte, error) {
	id := ctx.Backend.SnapshotState()
	return pack([]string{"uint256"}, new(big.Int).SetUint64(uint64(id)))
}

func handleRevertToState(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "uint256")
	if err != nil {
		return nil, err
	}
	_, err = ctx.Backend.RevertState(backend.SnapshotID(vals[0].(*big.Int).Uint64()), backend.RevertActionKeep)
	if err != nil {
		return pack([]string{"bool"}, false)
	}
	return pack([]string{"bool"}, true)
}

func handleRevertToStateAndDelete(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "uint256")
	if err != nil {
		return nil, err
	}
	_, err = ctx.Backend.RevertState(backend.SnapshotID(vals[0].(*big.Int).Uint64()), backend.RevertActionRemove)
	if err != nil {
		return pack([]string{"bool"}, false)
	}
	return pack([]string{"bool"}, true)
}

func handleCreateFork1(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "string")
	if err != nil {
		return nil, err
	}
	s.markImpure("createFork(string)")
	id, err := ctx.Backend.CreateFork(context.Background(), backend.ForkConfig{Endpoint: vals[0].(string)})
	if err != nil {
		return nil, err
	}
	return pack([]string{"uint256"}, new(big.Int).SetUint64(uint64(id)))
}

func handleCreateFork2(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "string", "uint256")
	if err != nil {
		return nil, err
	}
	block := vals[1].(*big.Int).Uint64()
	id, err := ctx.Backend.CreateFork(context.Background(), backend.ForkConfig{Endpoint: vals[0].(string), BlockNumber: &block})
	if err != nil {
		return nil, err
	}
	return pack([]string{"uint256"}, new(big.Int).SetUint64(uint64(id)))
}

func handleCreateSelectFork1(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "string")
	if err != nil {
		return nil, err
	}
	s.markImpure("createSelectFork(string)")
	id, err := ctx.Backend.CreateSelectFork(context.Background(), backend.ForkConfig{Endpoint: vals[0].(string)})
	if err != nil {
		return nil, err
	}
	return pack([]string{"uint256"}, new(big.Int).SetUint64(uint64(id)))
}

func handleCreateSelectFork2(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "string", "uint256")
	if err != nil {
		return nil, err
	}
	block := vals[1].(*big.Int).Uint64()
	id, err := ctx.Backend.CreateSelectFork(context.Background(), backend.ForkConfig{Endpoint: vals[0].(string), BlockNumber: &block})
	if err != nil {
		return nil, err
	}
	return pack([]string{"uint256"}, new(big.Int).SetUint64(uint64(id)))
}

func handleSelectFork(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "uint256")
	if err != nil {
		return nil, err
	}
	id := backend.LocalForkID(vals[0].(*big.Int).Uint64())
	return nil, ctx.Backend.SelectFork(context.Background(), id)
}

func handleRollFork1(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "uint256")
	if err != nil {
		return nil, err
	}
	block := vals[0].(*big.Int).Uint64()
	return nil, ctx.Backend.RollFork(context.Background(), nil, block)
}

func handleRollFork2(s *State, ctx *Context, args []byte) ([]byte, error) {
	vals, err := unpack(args, "uint256", "uint256")
	if err != nil {
		return nil, err
	}
	id := backend.LocalForkID(vals[0].(*big.Int).Uint64())
	block := vals[1].(*big.Int).Uint64()
	return nil, ctx.Backend.RollFork(context.Background(), &id, block)
}
