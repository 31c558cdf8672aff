package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/fixedyield/internal/crypto"
	"github.com/alanyoungcy/fixedyield/internal/domain"
)

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// RecordRequest is a stake transaction reported by the frontend after the
// deposit was mined.
type RecordRequest struct {
	Owner           string `json:"owner"`
	Amount          string `json:"amount"`
	LockDuration    *int64 `json:"lockDuration,omitempty"`
	TransactionHash string `json:"transactionHash"`
	Signature       string `json:"signature,omitempty"`
}

// TransactionService validates and records stake transactions.
type TransactionService struct {
	store            domain.TransactionStore
	bus              domain.SignalBus
	audit            domain.AuditStore
	requireSignature bool
	now              func() time.Time
	logger           *slog.Logger
}

// NewTransactionService creates a TransactionService. bus and audit may be
// nil.
func NewTransactionService(
	store domain.TransactionStore,
	bus domain.SignalBus,
	audit domain.AuditStore,
	requireSignature bool,
	logger *slog.Logger,
) *TransactionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransactionService{
		store:            store,
		bus:              bus,
		audit:            audit,
		requireSignature: requireSignature,
		now:              time.Now,
		logger:           logger.With(slog.String("component", "transaction_service")),
	}
}

// Record validates req, inserts it into the log and announces it so the
// refreshing replica reconciles it.
func (s *TransactionService) Record(ctx context.Context, req RecordRequest) (domain.TransactionRecord, error) {
	rec, err := s.validate(req)
	if err != nil {
		return domain.TransactionRecord{}, err
	}

	saved, err := s.store.Insert(ctx, rec)
	if err != nil {
		return domain.TransactionRecord{}, fmt.Errorf("transaction_service: insert: %w", err)
	}

	s.logger.InfoContext(ctx, "transaction recorded",
		slog.String("owner", saved.Owner),
		slog.String("hash", saved.TransactionHash),
	)

	if s.audit != nil {
		if err := s.audit.Log(ctx, "transaction.recorded", map[string]any{
			"owner":  saved.Owner,
			"hash":   saved.TransactionHash,
			"amount": saved.Amount.String(),
		}); err != nil {
			s.logger.WarnContext(ctx, "audit transaction failed", slog.String("error", err.Error()))
		}
	}
	if s.bus != nil {
		payload, _ := json.Marshal(map[string]string{"transactionHash": saved.TransactionHash})
		if err := s.bus.Publish(ctx, domain.ChannelTransactions, payload); err != nil {
			s.logger.WarnContext(ctx, "publish transaction failed", slog.String("error", err.Error()))
		}
	}
	return saved, nil
}

func (s *TransactionService) validate(req RecordRequest) (domain.TransactionRecord, error) {
	if !common.IsHexAddress(req.Owner) {
		return domain.TransactionRecord{}, fmt.Errorf("%w: owner %q is not an address", domain.ErrInvalidTransaction, req.Owner)
	}
	if !txHashPattern.MatchString(req.TransactionHash) {
		return domain.TransactionRecord{}, fmt.Errorf("%w: malformed transaction hash", domain.ErrInvalidTransaction)
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(req.Amount), 10)
	if !ok || amount.Sign() <= 0 {
		return domain.TransactionRecord{}, fmt.Errorf("%w: amount must be a positive base-unit integer", domain.ErrInvalidTransaction)
	}
	if req.LockDuration != nil && *req.LockDuration < 0 {
		return domain.TransactionRecord{}, fmt.Errorf("%w: negative lock duration", domain.ErrInvalidTransaction)
	}

	if s.requireSignature || req.Signature != "" {
		if req.Signature == "" {
			return domain.TransactionRecord{}, fmt.Errorf("%w: signature required", domain.ErrBadSignature)
		}
		err := crypto.VerifyPersonalSign(req.Owner, crypto.RecordMessage(req.TransactionHash), req.Signature)
		if err != nil && !errors.Is(err, domain.ErrBadSignature) {
			err = fmt.Errorf("%w: %v", domain.ErrBadSignature, err)
		}
		if err != nil {
			return domain.TransactionRecord{}, err
		}
	}

	return domain.TransactionRecord{
		Owner:           strings.ToLower(req.Owner),
		Amount:          amount,
		LockDuration:    req.LockDuration,
		CreatedAt:       s.now().UTC(),
		TransactionHash: strings.ToLower(req.TransactionHash),
	}, nil
}
