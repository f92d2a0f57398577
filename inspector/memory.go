package inspector

import (
	"errors"

	"github.com/soltrace/forge-evm/cheatcodes"
)

// ErrUnsafeMemoryWrite is returned by OnOpcode when an instruction writes
// outside the ranges expectSafeMemory registered for the current depth.
var ErrUnsafeMemoryWrite = errors.New("inspector: memory write outside expectSafeMemory range")

// Opcode bytes this package needs to recognize for the safe-memory-write
// check (spec.md §4.2 "expectSafeMemory"). Kept local rather than importing
// go-ethereum's core/vm package for a handful of well-known EVM opcode
// values.
const (
	opMSTORE         byte = 0x52
	opMSTORE8        byte = 0x53
	opMLOAD          byte = 0x51
	opCALLDATACOPY   byte = 0x37
	opCODECOPY       byte = 0x39
	opRETURNDATACOPY byte = 0x3e
	opEXTCODECOPY    byte = 0x3c
	opCALL           byte = 0xf1
	opCALLCODE       byte = 0xf2
	opSTATICCALL     byte = 0xfa
	opDELEGATECALL   byte = 0xf4
	opKECCAK256      byte = 0x20
	opLOG0           byte = 0xa0
	opLOG1           byte = 0xa1
	opLOG2           byte = 0xa2
	opLOG3           byte = 0xa3
	opLOG4           byte = 0xa4
	opCREATE         byte = 0xf0
	opCREATE2        byte = 0xf5
	opRETURN         byte = 0xf3
	opREVERT         byte = 0xfd
)

// OpcodeWritesMemory reports whether op is one of the opcodes
// expectSafeMemory must police — spec.md §4.2's enumerated list of
// "instructions capable of expanding or mutating memory."
func OpcodeWritesMemory(op byte) bool {
	switch op {
	case opMSTORE, opMSTORE8, opMLOAD,
		opCALLDATACOPY, opCODECOPY, opRETURNDATACOPY, opEXTCODECOPY,
		opCALL, opCALLCODE, opSTATICCALL, opDELEGATECALL,
		opKECCAK256,
		opLOG0, opLOG1, opLOG2, opLOG3, opLOG4,
		opCREATE, opCREATE2, opRETURN, opREVERT:
		return true
	default:
		return false
	}
}

// CheckSafeMemoryWrite reports whether a memory write spanning
// [dest, dest+size) stays within one of the allowed ranges, the
// expectSafeMemory invariant spec.md §4.2 describes: "every write outside
// the registered ranges at the current depth is a violation."
func CheckSafeMemoryWrite(ranges []cheatcodes.MemRange, dest, size uint64) bool {
	if size == 0 {
		return true
	}
	end := dest + size
	for _, r := range ranges {
		if dest >= r.Start && end <= r.End {
			return true
		}
	}
	return false
}
