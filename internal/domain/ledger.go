package domain

import "context"

// PositionLedger is the read-only view of the on-chain yield pool.
type PositionLedger interface {
	ActivePositions(ctx context.Context) ([]RawPosition, error)
}
