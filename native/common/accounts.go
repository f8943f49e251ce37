package common

import "github.com/ethereum/go-ethereum/common"

// Module treasury accounts. Pool holds supplier liquidity and flash-loan
// balances; Escrow holds collateral on behalf of borrowers. Both are derived
// from fixed tags so they are stable across deployments and can never collide
// with externally owned accounts recovered from signatures.
var (
	PoolAccount   = common.BytesToAddress([]byte("arclend/module/pool"))
	EscrowAccount = common.BytesToAddress([]byte("arclend/module/escrow"))
)
