package inspector

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/soltrace/forge-evm/cheatcodes"
)

func TestOpcodeWritesMemoryRecognizesMstore(t *testing.T) {
	if !OpcodeWritesMemory(opMSTORE) {
		t.Fatal("expected MSTORE to be flagged as a memory-writing opcode")
	}
	if OpcodeWritesMemory(0x01) { // ADD
		t.Fatal("did not expect ADD to be flagged as a memory-writing opcode")
	}
}

func TestCheckSafeMemoryWriteWithinRange(t *testing.T) {
	ranges := []cheatcodes.MemRange{{Start: 0x40, End: 0x80}}
	if !CheckSafeMemoryWrite(ranges, 0x40, 0x20) {
		t.Fatal("expected write fully inside the allowed range to be safe")
	}
	if CheckSafeMemoryWrite(ranges, 0x70, 0x20) {
		t.Fatal("expected write spanning past the allowed range to be unsafe")
	}
}

func TestCheckSafeMemoryWriteZeroSizeAlwaysSafe(t *testing.T) {
	if !CheckSafeMemoryWrite(nil, 1000, 0) {
		t.Fatal("expected a zero-size write to always be safe")
	}
}

func TestOnOpcodeRejectsUnsafeWrite(t *testing.T) {
	st := newTestStack()
	st.Cheats.AllowMemoryWrites(0, []cheatcodes.MemRange{{Start: 0, End: 0x20}})

	if err := st.OnOpcode(common.Hash{}, 10, opMSTORE, 0, 0, 0x20); err != nil {
		t.Fatalf("expected in-range write to pass, got %v", err)
	}
	if err := st.OnOpcode(common.Hash{}, 11, opMSTORE, 0, 0x40, 0x20); err != ErrUnsafeMemoryWrite {
		t.Fatalf("expected ErrUnsafeMemoryWrite, got %v", err)
	}
}

func TestOnOpcodeUnrestrictedDepthAlwaysPasses(t *testing.T) {
	st := newTestStack()
	if err := st.OnOpcode(common.Hash{}, 0, opMSTORE, 5, 0x1000, 0x20); err != nil {
		t.Fatalf("expected no restriction at an unregistered depth, got %v", err)
	}
}
