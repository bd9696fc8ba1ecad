package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

const selectColumns = `SELECT id, donor_address, donor_name, message, amount::text, coin_type,
        streamer_wallet, status, COALESCE(tx_digest, ''), created_at
        FROM donations`

// PostgresStore persists donation rows in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed donation store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert writes a single donation row.
func (s *PostgresStore) Insert(ctx context.Context, d Donation) error {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return fmt.Errorf("%w: id: %v", ErrInvalidDonation, err)
	}
	var txDigest *string
	if d.TxDigest != "" {
		txDigest = &d.TxDigest
	}
	_, err = s.db.Exec(ctx, `INSERT INTO donations
        (id, donor_address, donor_name, message, amount, coin_type, streamer_wallet, status, tx_digest, created_at)
        VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10)`,
		id, d.DonorAddress, d.DonorName, d.Message, d.Amount.String(), d.CoinType,
		d.StreamerWallet, string(d.Status), txDigest, d.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateTransaction
		}
		return err
	}
	return nil
}

// Get fetches one donation by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (Donation, error) {
	donationID, err := uuid.Parse(id)
	if err != nil {
		return Donation{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, selectColumns+` WHERE id = $1`, donationID)
	d, err := scanDonation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Donation{}, ErrNotFound
		}
		return Donation{}, err
	}
	return d, nil
}

// ListByRecipient returns a recipient's history, newest first.
func (s *PostgresStore) ListByRecipient(ctx context.Context, recipient string, limit int) ([]Donation, error) {
	query := selectColumns + ` WHERE lower(streamer_wallet) = lower($1) ORDER BY created_at DESC`
	args := []any{recipient}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return s.list(ctx, query, args...)
}

// ListAllByRecipient returns every row for a recipient, oldest first.
func (s *PostgresStore) ListAllByRecipient(ctx context.Context, recipient string) ([]Donation, error) {
	return s.list(ctx, selectColumns+` WHERE lower(streamer_wallet) = lower($1) ORDER BY created_at ASC`, recipient)
}

// ListCompletedSince returns completed rows for a recipient created after since.
func (s *PostgresStore) ListCompletedSince(ctx context.Context, recipient string, since time.Time) ([]Donation, error) {
	return s.list(ctx, selectColumns+` WHERE lower(streamer_wallet) = lower($1)
        AND status = $2 AND created_at > $3 ORDER BY created_at ASC`,
		recipient, string(StatusCompleted), since.UTC())
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]Donation, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Donation, 0)
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDonation(row pgx.Row) (Donation, error) {
	var (
		d         Donation
		id        uuid.UUID
		amount    string
		status    string
		createdAt time.Time
	)
	if err := row.Scan(&id, &d.DonorAddress, &d.DonorName, &d.Message, &amount, &d.CoinType,
		&d.StreamerWallet, &status, &d.TxDigest, &createdAt); err != nil {
		return Donation{}, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return Donation{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	d.ID = id.String()
	d.Amount = parsed
	d.Status = Status(status)
	d.CreatedAt = createdAt.UTC()
	return d, nil
}
