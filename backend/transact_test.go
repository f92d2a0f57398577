package backend

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestBuildReceiptSuccessStatus(t *testing.T) {
	tx := types.NewTx(&types.LegacyTx{Nonce: 0, Gas: 21000})
	res := &ExecutionResult{Success: true, GasUsed: 21000}

	receipt, err := BuildReceipt(res, tx, 0)
	if err != nil {
		t.Fatalf("BuildReceipt: %v", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		t.Fatalf("expected successful status, got %d", receipt.Status)
	}
	if receipt.GasUsed != 21000 {
		t.Fatalf("expected gas used 21000, got %d", receipt.GasUsed)
	}
	if receipt.TxHash != tx.Hash() {
		t.Fatalf("expected tx hash %s, got %s", tx.Hash(), receipt.TxHash)
	}
}

func TestBuildReceiptFailureStatus(t *testing.T) {
	tx := types.NewTx(&types.LegacyTx{Nonce: 0, Gas: 21000})
	res := &ExecutionResult{Success: false, GasUsed: 12000}

	receipt, err := BuildReceipt(res, tx, 5000)
	if err != nil {
		t.Fatalf("BuildReceipt: %v", err)
	}
	if receipt.Status != types.ReceiptStatusFailed {
		t.Fatalf("expected failed status, got %d", receipt.Status)
	}
	if receipt.CumulativeGasUsed != 17000 {
		t.Fatalf("expected cumulative gas 17000, got %d", receipt.CumulativeGasUsed)
	}
}

func TestBuildReceiptRejectsNilResult(t *testing.T) {
	if _, err := BuildReceipt(nil, nil, 0); err == nil {
		t.Fatal("expected an error for a nil execution result")
	}
}

func TestIsSystemSenderRecognizesKnownSenders(t *testing.T) {
	if !isSystemSender(ArbitrumSystemSender) {
		t.Fatal("expected Arbitrum system sender to be recognized")
	}
	if !isSystemSender(OptimismSystemSender) {
		t.Fatal("expected Optimism system sender to be recognized")
	}
	if isSystemSender(common.HexToAddress("0x1234")) {
		t.Fatal("did not expect an arbitrary address to be recognized as a system sender")
	}
}
