package profile

import (
	"context"
	"database/sql"
	"fmt"
)

// ProfileRepository handles persistence for profiles and the user columns
// the settings page owns (full name, avatar path).
type ProfileRepository interface {
	// Get returns the user's profile, or the defaults if none was saved.
	Get(ctx context.Context, userID string) (*Profile, error)

	// Upsert saves the profile, creating the row on first save.
	Upsert(ctx context.Context, profile *Profile) error

	// UpdateFullName changes the user's display name.
	UpdateFullName(ctx context.Context, userID, fullName string) error

	// UpdateAvatar records the user's avatar file path.
	UpdateAvatar(ctx context.Context, userID, avatarPath string) error
}

type profileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a MariaDB-backed profile repository.
func NewProfileRepository(db *sql.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Get(ctx context.Context, userID string) (*Profile, error) {
	query := `SELECT user_id, notifications, theme, updated_at
	          FROM profiles WHERE user_id = ?`

	var p Profile
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.Notifications, &p.Theme, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return defaultProfile(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile: %w", err)
	}
	return &p, nil
}

func (r *profileRepository) Upsert(ctx context.Context, profile *Profile) error {
	query := `INSERT INTO profiles (user_id, notifications, theme)
	          VALUES (?, ?, ?)
	          ON DUPLICATE KEY UPDATE notifications = VALUES(notifications), theme = VALUES(theme)`

	_, err := r.db.ExecContext(ctx, query, profile.UserID, profile.Notifications, profile.Theme)
	if err != nil {
		return fmt.Errorf("upserting profile: %w", err)
	}
	return nil
}

func (r *profileRepository) UpdateFullName(ctx context.Context, userID, fullName string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET full_name = ? WHERE id = ?`, fullName, userID)
	if err != nil {
		return fmt.Errorf("updating full name: %w", err)
	}
	return nil
}

func (r *profileRepository) UpdateAvatar(ctx context.Context, userID, avatarPath string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET avatar_path = ? WHERE id = ?`, avatarPath, userID)
	if err != nil {
		return fmt.Errorf("updating avatar: %w", err)
	}
	return nil
}
