package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tradingsim/tradingsim/internal/apperror"
)

// One-time code purposes stored in auth_tokens.purpose.
const (
	purposeReset  = "reset"
	purposeVerify = "verify"
)

// TokenRepository persists refresh-token hashes and one-time codes
// (password reset, email confirmation). Plaintext tokens are never stored;
// every row holds a SHA-256 hash.
type TokenRepository interface {
	// Refresh tokens.
	StoreRefresh(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (userID string, err error)
	RevokeRefresh(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error

	// One-time codes.
	CreateOneTime(ctx context.Context, userID, email, tokenHash, purpose string, expiresAt time.Time) error
	FindOneTime(ctx context.Context, tokenHash, purpose string) (userID, email string, expiresAt time.Time, usedAt *time.Time, err error)
	MarkOneTimeUsed(ctx context.Context, tokenHash string) error
}

// tokenRepository implements TokenRepository against MariaDB.
type tokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new token repository backed by the given DB pool.
func NewTokenRepository(db *sql.DB) TokenRepository {
	return &tokenRepository{db: db}
}

// StoreRefresh inserts a refresh token hash row.
func (r *tokenRepository) StoreRefresh(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	query := `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, userID, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("storing refresh token: %w", err)
	}
	return nil
}

// ValidateRefresh returns the owning user ID if a non-revoked, non-expired
// refresh token exists for the given hash. Returns apperror.Unauthorized
// otherwise so callers don't have to distinguish missing from stale.
func (r *tokenRepository) ValidateRefresh(ctx context.Context, tokenHash string) (string, error) {
	query := `SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash = ? LIMIT 1`

	var (
		userID    string
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperror.NewUnauthorized("session expired or invalid")
	}
	if err != nil {
		return "", fmt.Errorf("querying refresh token: %w", err)
	}
	if revokedAt.Valid || time.Now().UTC().After(expiresAt) {
		return "", apperror.NewUnauthorized("session expired or invalid")
	}
	return userID, nil
}

// RevokeRefresh marks a refresh token as revoked. Already-revoked tokens are
// left untouched, keeping the operation idempotent.
func (r *tokenRepository) RevokeRefresh(ctx context.Context, tokenHash string) error {
	query := `UPDATE refresh_tokens SET revoked_at = NOW() WHERE token_hash = ? AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, tokenHash)
	if err != nil {
		return fmt.Errorf("revoking refresh token: %w", err)
	}
	return nil
}

// RevokeAllForUser revokes every active refresh token belonging to a user.
// Called after a password change so stolen refresh tokens die with it.
func (r *tokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	query := `UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = ? AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("revoking refresh tokens for user: %w", err)
	}
	return nil
}

// CreateOneTime inserts a one-time code row. The tokenHash is
// SHA-256(plaintext code) -- plaintext is only ever in the emailed link.
func (r *tokenRepository) CreateOneTime(ctx context.Context, userID, email, tokenHash, purpose string, expiresAt time.Time) error {
	query := `INSERT INTO auth_tokens (user_id, email, token_hash, purpose, expires_at)
	          VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, userID, email, tokenHash, purpose, expiresAt)
	if err != nil {
		return fmt.Errorf("creating one-time code: %w", err)
	}
	return nil
}

// FindOneTime looks up a one-time code by its hash and purpose. Returns the
// associated user ID, email, expiry, and used_at (nil if unused).
func (r *tokenRepository) FindOneTime(ctx context.Context, tokenHash, purpose string) (string, string, time.Time, *time.Time, error) {
	query := `SELECT user_id, email, expires_at, used_at
	          FROM auth_tokens WHERE token_hash = ? AND purpose = ?`

	var (
		userID    string
		email     string
		expiresAt time.Time
		usedAt    *time.Time
	)
	err := r.db.QueryRowContext(ctx, query, tokenHash, purpose).Scan(&userID, &email, &expiresAt, &usedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", time.Time{}, nil, apperror.NewNotFound("invalid or expired code")
	}
	if err != nil {
		return "", "", time.Time{}, nil, fmt.Errorf("finding one-time code: %w", err)
	}
	return userID, email, expiresAt, usedAt, nil
}

// MarkOneTimeUsed stamps the used_at column so the code can't be reused.
func (r *tokenRepository) MarkOneTimeUsed(ctx context.Context, tokenHash string) error {
	query := `UPDATE auth_tokens SET used_at = NOW() WHERE token_hash = ?`
	_, err := r.db.ExecContext(ctx, query, tokenHash)
	if err != nil {
		return fmt.Errorf("marking one-time code used: %w", err)
	}
	return nil
}
