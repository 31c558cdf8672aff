package service_test

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/alanyoungcy/fixedyield/internal/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeLedger struct {
	mu        sync.Mutex
	positions []domain.RawPosition
	err       error
}

func (f *fakeLedger) ActivePositions(context.Context) ([]domain.RawPosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.RawPosition(nil), f.positions...), nil
}

func (f *fakeLedger) set(err error, positions ...domain.RawPosition) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
	if positions != nil {
		f.positions = positions
	}
}

type fakeTxStore struct {
	mu      sync.Mutex
	records []domain.TransactionRecord
	err     error
	links   []map[string]string
}

func (f *fakeTxStore) List(context.Context) ([]domain.TransactionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.TransactionRecord(nil), f.records...), nil
}

func (f *fakeTxStore) Insert(_ context.Context, rec domain.TransactionRecord) (domain.TransactionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.TransactionHash == rec.TransactionHash {
			return domain.TransactionRecord{}, domain.ErrAlreadyExists
		}
	}
	rec.ID = int64(len(f.records) + 1)
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeTxStore) LinkPositions(_ context.Context, links map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links = append(f.links, links)
	return nil
}

type published struct {
	channel string
	payload []byte
}

type fakeBus struct {
	mu       sync.Mutex
	messages []published
	subs     map[string][]chan []byte
}

func newFakeBus() *fakeBus { return &fakeBus{subs: map[string][]chan []byte{}} }

func (b *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, published{channel, payload})
	for _, ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (b *fakeBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan []byte, 16)
	b.subs[channel] = append(b.subs[channel], ch)
	return ch, nil
}

func (b *fakeBus) count(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, m := range b.messages {
		if m.channel == channel {
			n++
		}
	}
	return n
}

type fakeCache struct {
	mu   sync.Mutex
	snap *domain.PositionSnapshot
}

func (c *fakeCache) Set(_ context.Context, snap domain.PositionSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = &snap
	return nil
}

func (c *fakeCache) Get(context.Context) (domain.PositionSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil {
		return domain.PositionSnapshot{}, domain.ErrNotFound
	}
	return *c.snap, nil
}

type fakeAudit struct {
	mu     sync.Mutex
	events []string
}

func (a *fakeAudit) Log(_ context.Context, event string, _ map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

func (a *fakeAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func raw(id int64, owner string, amount int64, lock int64, start time.Time) domain.RawPosition {
	return domain.RawPosition{
		ID:              big.NewInt(id),
		PositionAddress: owner,
		Amount:          big.NewInt(amount),
		LockDuration:    big.NewInt(lock),
		StartTime:       big.NewInt(start.Unix()),
	}
}

func record(hash, owner string, amount int64, created time.Time) domain.TransactionRecord {
	return domain.TransactionRecord{
		Owner:           owner,
		Amount:          big.NewInt(amount),
		CreatedAt:       created,
		TransactionHash: hash,
	}
}
