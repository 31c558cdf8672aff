package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrRateLimited        = errors.New("rate limited")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidTransaction = errors.New("invalid transaction record")
	ErrBadSignature       = errors.New("signature does not match owner")
	ErrNoLedgerData       = errors.New("no ledger data")
	ErrLockHeld           = errors.New("lock already held")
)
