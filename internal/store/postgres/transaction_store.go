package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/fixedyield/internal/domain"
)

// uniqueViolation is the SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// TransactionStore implements domain.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *pgxpool.Pool
}

// NewTransactionStore creates a new TransactionStore backed by the given connection pool.
func NewTransactionStore(pool *pgxpool.Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// amount is selected as text so arbitrarily large NUMERIC values reach
// big.Int without a float round trip.
const transactionSelectCols = `id, owner, amount::text, lock_duration, created_at, transaction_hash, used`

func scanTransactionRow(row pgx.Row) (domain.TransactionRecord, error) {
	var rec domain.TransactionRecord
	var amount string

	if err := row.Scan(
		&rec.ID, &rec.Owner, &amount, &rec.LockDuration,
		&rec.CreatedAt, &rec.TransactionHash, &rec.Used,
	); err != nil {
		return domain.TransactionRecord{}, err
	}

	v, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return domain.TransactionRecord{}, fmt.Errorf("postgres: parse amount %q of transaction %d", amount, rec.ID)
	}
	rec.Amount = v
	return rec, nil
}

// List returns every stake transaction in source order.
func (s *TransactionStore) List(ctx context.Context) ([]domain.TransactionRecord, error) {
	query := `SELECT ` + transactionSelectCols + ` FROM transactions ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.TransactionRecord
	for rows.Next() {
		rec, err := scanTransactionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan transaction: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list transactions rows: %w", err)
	}
	return out, nil
}

// Insert records a new stake transaction and returns it with its id and
// creation time. A duplicate hash returns domain.ErrAlreadyExists.
func (s *TransactionStore) Insert(ctx context.Context, rec domain.TransactionRecord) (domain.TransactionRecord, error) {
	if rec.Amount == nil {
		return domain.TransactionRecord{}, fmt.Errorf("postgres: insert transaction: %w", domain.ErrInvalidTransaction)
	}

	query := `
		INSERT INTO transactions (owner, amount, lock_duration, transaction_hash, created_at)
		VALUES ($1, $2::numeric, $3, $4, COALESCE($5, NOW()))
		RETURNING ` + transactionSelectCols

	var createdAt any
	if !rec.CreatedAt.IsZero() {
		createdAt = rec.CreatedAt
	}

	row := s.pool.QueryRow(ctx, query,
		rec.Owner, rec.Amount.String(), rec.LockDuration,
		strings.ToLower(rec.TransactionHash), createdAt,
	)
	out, err := scanTransactionRow(row)
	if err != nil {
		return domain.TransactionRecord{}, insertError(rec.TransactionHash, err)
	}
	return out, nil
}

// insertError maps a unique violation on the hash to domain.ErrAlreadyExists.
func insertError(hash string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("postgres: insert transaction %s: %w", hash, domain.ErrAlreadyExists)
	}
	return fmt.Errorf("postgres: insert transaction %s: %w", hash, err)
}

// LinkPositions stores, for audit, which position each transaction was last
// paired with. links maps transaction hash to position id. Matching never
// reads this column.
func (s *TransactionStore) LinkPositions(ctx context.Context, links map[string]string) error {
	if len(links) == 0 {
		return nil
	}

	const query = `
		UPDATE transactions SET position_id = $2
		WHERE transaction_hash = $1 AND position_id IS DISTINCT FROM $2`

	batch := &pgx.Batch{}
	for hash, positionID := range links {
		batch.Queue(query, strings.ToLower(hash), positionID)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range links {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: link %d transactions: %w", len(links), err)
		}
	}
	return nil
}

// Compile-time interface check.
var _ domain.TransactionStore = (*TransactionStore)(nil)
