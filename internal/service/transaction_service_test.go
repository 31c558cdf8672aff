package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/alanyoungcy/fixedyield/internal/crypto"
	"github.com/alanyoungcy/fixedyield/internal/domain"
	"github.com/alanyoungcy/fixedyield/internal/service"
)

var validHash = "0x" + strings.Repeat("ab", 32)

func TestRecordValidation(t *testing.T) {
	neg := int64(-1)
	cases := []struct {
		name string
		req  service.RecordRequest
	}{
		{"bad owner", service.RecordRequest{Owner: "alice", Amount: "1", TransactionHash: validHash}},
		{"short hash", service.RecordRequest{Owner: alice, Amount: "1", TransactionHash: "0xabc"}},
		{"zero amount", service.RecordRequest{Owner: alice, Amount: "0", TransactionHash: validHash}},
		{"decimal amount", service.RecordRequest{Owner: alice, Amount: "1.5", TransactionHash: validHash}},
		{"negative lock", service.RecordRequest{Owner: alice, Amount: "1", TransactionHash: validHash, LockDuration: &neg}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := service.NewTransactionService(&fakeTxStore{}, nil, nil, false, quietLogger())
			if _, err := svc.Record(context.Background(), tc.req); !errors.Is(err, domain.ErrInvalidTransaction) {
				t.Errorf("error: got %v, want ErrInvalidTransaction", err)
			}
		})
	}
}

func TestRecordStoresAndAnnounces(t *testing.T) {
	store := &fakeTxStore{}
	bus := newFakeBus()
	audit := &fakeAudit{}
	svc := service.NewTransactionService(store, bus, audit, false, quietLogger())

	lock := int64(2592000)
	rec, err := svc.Record(context.Background(), service.RecordRequest{
		Owner:           strings.ToUpper(alice[:2]) + alice[2:],
		Amount:          "123456789012345678901234567890",
		LockDuration:    &lock,
		TransactionHash: validHash[:2] + strings.ToUpper(validHash[2:4]) + validHash[4:],
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.Amount.String() != "123456789012345678901234567890" {
		t.Errorf("amount: got %s", rec.Amount)
	}
	if rec.Owner != alice {
		t.Errorf("owner: got %s, want %s", rec.Owner, alice)
	}
	if len(store.records) != 1 || bus.count(domain.ChannelTransactions) != 1 {
		t.Errorf("stored=%d announced=%d, want 1 and 1", len(store.records), bus.count(domain.ChannelTransactions))
	}
	if len(audit.events) != 1 || audit.events[0] != "transaction.recorded" {
		t.Errorf("audit: got %v", audit.events)
	}
}

func TestRecordDuplicate(t *testing.T) {
	svc := service.NewTransactionService(&fakeTxStore{}, nil, nil, false, quietLogger())
	req := service.RecordRequest{Owner: alice, Amount: "1", TransactionHash: validHash}
	if _, err := svc.Record(context.Background(), req); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if _, err := svc.Record(context.Background(), req); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("second record: got %v, want ErrAlreadyExists", err)
	}
}

func TestRecordSignature(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	owner := ethcrypto.PubkeyToAddress(key.PublicKey).Hex()
	sig, err := ethcrypto.Sign(accounts.TextHash([]byte(crypto.RecordMessage(validHash))), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sig[64] += 27

	svc := service.NewTransactionService(&fakeTxStore{}, nil, nil, true, quietLogger())
	ctx := context.Background()

	if _, err := svc.Record(ctx, service.RecordRequest{Owner: owner, Amount: "1", TransactionHash: validHash}); !errors.Is(err, domain.ErrBadSignature) {
		t.Errorf("missing signature: got %v, want ErrBadSignature", err)
	}
	if _, err := svc.Record(ctx, service.RecordRequest{Owner: alice, Amount: "1", TransactionHash: validHash, Signature: hexutil.Encode(sig)}); !errors.Is(err, domain.ErrBadSignature) {
		t.Errorf("wrong owner: got %v, want ErrBadSignature", err)
	}
	if _, err := svc.Record(ctx, service.RecordRequest{Owner: owner, Amount: "1", TransactionHash: validHash, Signature: "0x1234"}); !errors.Is(err, domain.ErrBadSignature) {
		t.Errorf("malformed signature: got %v, want ErrBadSignature", err)
	}
	if _, err := svc.Record(ctx, service.RecordRequest{Owner: owner, Amount: "1", TransactionHash: validHash, Signature: hexutil.Encode(sig)}); err != nil {
		t.Errorf("valid signature: %v", err)
	}
}
