package yieldpool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// poolABI covers the read-only views of the staking pool used by this
// service.
const poolABI = `[
	{
		"inputs": [],
		"name": "getActivePositions",
		"outputs": [
			{
				"components": [
					{"internalType": "uint256", "name": "id", "type": "uint256"},
					{"internalType": "address", "name": "positionAddress", "type": "address"},
					{"internalType": "uint256", "name": "amount", "type": "uint256"},
					{"internalType": "uint256", "name": "lockDuration", "type": "uint256"},
					{"internalType": "uint256", "name": "startTime", "type": "uint256"}
				],
				"internalType": "struct YieldPool.Position[]",
				"name": "",
				"type": "tuple[]"
			}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

const methodActivePositions = "getActivePositions"

// positionTuple mirrors the contract's Position struct. Field names follow
// the ABI component names in CamelCase so abi.ConvertType can fill it.
type positionTuple struct {
	Id              *big.Int
	PositionAddress common.Address
	Amount          *big.Int
	LockDuration    *big.Int
	StartTime       *big.Int
}
