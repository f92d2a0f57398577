package inspector

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/soltrace/forge-evm/backend"
)

func TestBeforeAfterCreateRecordsDeployedAddress(t *testing.T) {
	st := newTestStack()
	req := &CreateRequest{Depth: 0, Caller: backend.DefaultTestSender, Init: []byte{0x60, 0x00}, GasLimit: 100000}

	st.BeforeCreate(req)
	if st.builder.Current() == nil {
		t.Fatal("expected an open trace frame after BeforeCreate")
	}

	deployed := common.HexToAddress("0xdeadbeef")
	st.AfterCreate(req, deployed, []byte{0x60, 0x00}, false, nil, 50000)

	if st.builder.Current() != nil {
		t.Fatal("expected the create frame to be closed after AfterCreate")
	}
	if st.Trace() == nil || st.Trace().To != deployed {
		t.Fatalf("expected trace root's To to be the deployed address, got %v", st.Trace())
	}
}

func TestCheatcodeAddressCreatedByRecognizesSentinel(t *testing.T) {
	if !CheatcodeAddressCreatedBy(backend.CheatcodeAddress) {
		t.Fatal("expected the cheatcode address to be recognized")
	}
	if CheatcodeAddressCreatedBy(common.HexToAddress("0x01")) {
		t.Fatal("expected an ordinary address not to be recognized")
	}
}
