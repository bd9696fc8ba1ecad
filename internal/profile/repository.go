package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation    = "23505"
	usernameConstraint = "profiles_username_idx"
)

// Repository persists profiles. Lookups are case-insensitive.
type Repository interface {
	Create(ctx context.Context, p Profile) error
	FindByWallet(ctx context.Context, wallet string) (Profile, error)
	FindByUsername(ctx context.Context, username string) (Profile, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed profile repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new profile, mapping unique index violations to sentinel errors.
func (r *PostgresRepository) Create(ctx context.Context, p Profile) error {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return fmt.Errorf("profile id: %w", err)
	}
	_, err = r.db.Exec(ctx, `INSERT INTO profiles (id, wallet_address, username, display_name, avatar_url, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, id, p.WalletAddress, p.Username, p.DisplayName, p.AvatarURL, p.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == usernameConstraint {
				return ErrUsernameTaken
			}
			return ErrWalletTaken
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// FindByWallet fetches the profile bound to a wallet address.
func (r *PostgresRepository) FindByWallet(ctx context.Context, wallet string) (Profile, error) {
	return r.findOne(ctx, `SELECT id, wallet_address, username, display_name, avatar_url, created_at
        FROM profiles WHERE lower(wallet_address) = lower($1)`, wallet)
}

// FindByUsername fetches a profile by its public username.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (Profile, error) {
	return r.findOne(ctx, `SELECT id, wallet_address, username, display_name, avatar_url, created_at
        FROM profiles WHERE lower(username) = lower($1)`, username)
}

func (r *PostgresRepository) findOne(ctx context.Context, query, arg string) (Profile, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		p         Profile
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(&id, &p.WalletAddress, &p.Username, &p.DisplayName, &p.AvatarURL, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("select profile: %w", err)
	}
	p.ID = id.String()
	p.CreatedAt = createdAt.UTC()
	return p, nil
}
