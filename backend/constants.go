package backend

import "github.com/ethereum/go-ethereum/common"

// Well-known addresses shared with Foundry's own cheatcode core: the
// pseudo-precompile cheatcode address, the canonical CREATE2 deployer and
// the default test-sender. spec.md §3 requires these three always be
// members of PersistentAccountSet.
var (
	CheatcodeAddress  = common.HexToAddress("0x7109709ECfa91a80626fF3989D68f67F5b1DD12D")
	Create2Deployer   = common.HexToAddress("0x4e59b44847b379578588920cA78FbF26c0B4956C")
	DefaultTestSender = common.HexToAddress("0x1804c8AB1F12E6bbf3894d4083f33e07309d1f38")
)

// GlobalFailSlot is the storage slot at CheatcodeAddress that a failed
// assertion sets to 1 (spec.md §4.1 revert_state: "if any currently-stored
// 'global failure' marker is set").
var GlobalFailSlot = common.HexToHash("0x6661696c65640000000000000000000000000000000000000000000000000000")

// Known system senders skipped by transaction replay (spec.md §4.1
// create_fork_at_transaction / roll_fork_to_transaction).
var (
	ArbitrumSystemSender = common.HexToAddress("0x00000000000000000000000000000000a4b05")
	OptimismSystemSender = common.HexToAddress("0xdeaddeaddeaddeaddeaddeaddeaddeaddead0001")
)

// DepositTxType is the tx-type value (126) that both roll_fork_to_transaction
// and create_fork_at_transaction skip during replay.
const DepositTxType = 126
