package inspector

import "github.com/ethereum/go-ethereum/common"

// OnOpcode is the per-instruction hook spec.md §4.2's composition fans every
// step through: coverage records the hit, the tracer records the step, and
// a pending memory write is checked against expectSafeMemory's registered
// ranges for the current depth.
//
// codeHash identifies the executing contract for coverage bucketing. depth
// is the current call depth, used to resolve which safe-memory ranges (if
// any) apply. memDest/memSize describe the memory region op is about to
// write, both zero for opcodes that do not touch memory.
func (st *Stack) OnOpcode(codeHash common.Hash, pc uint64, op byte, depth int, memDest, memSize uint64) error {
	st.Coverage.RecordOpcode(codeHash, pc)
	st.builder.Step(pc, op)

	if !OpcodeWritesMemory(op) || memSize == 0 {
		return nil
	}
	ranges, restricted := st.Cheats.AllowedMemoryWrites(depth)
	if !restricted {
		return nil
	}
	if !CheckSafeMemoryWrite(ranges, memDest, memSize) {
		return ErrUnsafeMemoryWrite
	}
	return nil
}
