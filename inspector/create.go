package inspector

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/soltrace/forge-evm/backend"
	"github.com/soltrace/forge-evm/cheatcodes"
	"github.com/soltrace/forge-evm/trace"
)

// CreateRequest mirrors CallRequest for the CREATE/CREATE2 entry path
// (spec.md §4.2 "On create, apply the same prank, record, and
// expected-revert machinery as calls").
type CreateRequest struct {
	Depth    int
	Caller   common.Address
	Init     []byte
	GasLimit uint64
	Salt     *common.Hash // non-nil for CREATE2
}

// BeforeCreate applies the same prank/record bookkeeping BeforeCall does,
// minus the parts only meaningful for an existing target (cheatcode
// dispatch, expectCall/mockCall matching cannot apply to a not-yet-deployed
// address).
func (st *Stack) BeforeCreate(req *CreateRequest) {
	node := &trace.Node{
		Kind:     trace.KindCreate,
		From:     req.Caller,
		Input:    req.Init,
		GasLimit: req.GasLimit,
		Depth:    req.Depth,
	}
	st.builder.Enter(node)

	if eff, _, active := st.Cheats.ApplyPrank(req.Depth, req.Caller); active {
		req.Caller = eff
		node.From = eff
	}

	st.Cheats.PushAccessFrame()
	st.Cheats.RecordAccess(cheatcodes.AccountAccess{
		Accessor: req.Caller,
		Kind:     cheatcodes.AccessCreate,
		Calldata: req.Init,
		Depth:    req.Depth,
	})
}

// AfterCreate closes out a create the way AfterCall closes out a call,
// additionally recording the deployed address and code once known.
func (st *Stack) AfterCreate(req *CreateRequest, deployed common.Address, deployedCode []byte, reverted bool, returnData []byte, gasUsed uint64) {
	st.Cheats.ConsumePrank(req.Depth)
	st.Cheats.PopAccessFrame(reverted)
	st.lastCallGas = gasUsed

	if reverted && st.firstReverter == nil {
		target := deployed
		st.firstReverter = &target
	}

	cur := st.builder.Current()
	if cur != nil {
		cur.To = deployed
		cur.Code = deployedCode
	}
	st.builder.Exit(!reverted, reverted, false, returnData, gasUsed)
	if req.Depth == 0 {
		st.rootReverted = reverted
	}
}

// CheatcodeAddressCreatedBy reports whether addr is the well-known
// cheatcode address. BeforeCreate and AfterCreate do not call it.
func CheatcodeAddressCreatedBy(addr common.Address) bool {
	return addr == backend.CheatcodeAddress
}
