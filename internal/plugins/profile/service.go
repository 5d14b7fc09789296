package profile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/tradingsim/tradingsim/internal/apperror"
	"github.com/tradingsim/tradingsim/internal/plugins/auth"
)

// allowedAvatarTypes defines which MIME types are accepted for avatars.
var allowedAvatarTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// avatarExtensions maps MIME types to file extensions.
var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ProfileService handles the settings and avatar business logic.
type ProfileService interface {
	// Page loads everything the settings page shows.
	Page(ctx context.Context, userID string) (*auth.User, *Profile, error)

	// Update saves the display name and preferences.
	Update(ctx context.Context, userID string, input UpdateInput) error

	// UploadAvatar validates and stores a new avatar image, returning the
	// stored path relative to the media root.
	UploadAvatar(ctx context.Context, userID, mimeType string, data []byte) (string, error)
}

type profileService struct {
	repo      ProfileRepository
	users     auth.UserRepository
	mediaPath string
	maxSize   int64
}

// NewProfileService creates the profile service. mediaPath is the root
// upload directory; maxSize caps avatar uploads in bytes.
func NewProfileService(repo ProfileRepository, users auth.UserRepository, mediaPath string, maxSize int64) ProfileService {
	return &profileService{
		repo:      repo,
		users:     users,
		mediaPath: mediaPath,
		maxSize:   maxSize,
	}
}

func (s *profileService) Page(ctx context.Context, userID string) (*auth.User, *Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	profile, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, nil, apperror.NewInternal(fmt.Errorf("loading profile: %w", err))
	}
	return user, profile, nil
}

func (s *profileService) Update(ctx context.Context, userID string, input UpdateInput) error {
	name := strings.TrimSpace(input.FullName)
	if name == "" {
		return apperror.NewValidation("full name is required")
	}
	if len(name) > 100 {
		return apperror.NewValidation("full name must be at most 100 characters")
	}
	if input.Theme != ThemeLight && input.Theme != ThemeDark {
		return apperror.NewValidation("unknown theme")
	}

	if err := s.repo.UpdateFullName(ctx, userID, name); err != nil {
		return apperror.NewInternal(err)
	}
	if err := s.repo.Upsert(ctx, &Profile{
		UserID:        userID,
		Notifications: input.Notifications,
		Theme:         input.Theme,
	}); err != nil {
		return apperror.NewInternal(err)
	}

	slog.Info("profile updated", slog.String("user_id", userID))
	return nil
}

// UploadAvatar validates the declared type, size, and magic bytes, writes
// the file under <mediaPath>/avatars, and records the path.
func (s *profileService) UploadAvatar(ctx context.Context, userID, mimeType string, data []byte) (string, error) {
	if !allowedAvatarTypes[mimeType] {
		return "", apperror.NewBadRequest("unsupported image type: " + mimeType)
	}
	if int64(len(data)) > s.maxSize {
		return "", apperror.NewBadRequest(fmt.Sprintf("image too large; maximum size is %d MB", s.maxSize/(1024*1024)))
	}
	if !validateMagicBytes(data, mimeType) {
		return "", apperror.NewBadRequest("file content does not match declared type")
	}

	dir := filepath.Join(s.mediaPath, "avatars")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", apperror.NewInternal(fmt.Errorf("creating avatar directory: %w", err))
	}

	filename := uuid.NewString() + avatarExtensions[mimeType]
	fullPath := filepath.Join(dir, filename)
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", apperror.NewInternal(fmt.Errorf("writing avatar file: %w", err))
	}

	relPath := filepath.Join("avatars", filename)
	if err := s.repo.UpdateAvatar(ctx, userID, relPath); err != nil {
		os.Remove(fullPath)
		return "", apperror.NewInternal(fmt.Errorf("saving avatar path: %w", err))
	}

	slog.Info("avatar uploaded",
		slog.String("user_id", userID),
		slog.String("mime_type", mimeType),
		slog.Int("size", len(data)),
	)
	return relPath, nil
}

// validateMagicBytes checks that the file content's magic bytes match the
// declared MIME type. Prevents uploading arbitrary files with a spoofed
// Content-Type header.
func validateMagicBytes(data []byte, declaredMIME string) bool {
	if len(data) < 4 {
		return false
	}
	switch declaredMIME {
	case "image/jpeg":
		return data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF
	case "image/png":
		return len(data) >= 8 &&
			data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 &&
			data[4] == 0x0D && data[5] == 0x0A && data[6] == 0x1A && data[7] == 0x0A
	case "image/gif":
		return len(data) >= 6 &&
			(string(data[:6]) == "GIF87a" || string(data[:6]) == "GIF89a")
	case "image/webp":
		return len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP"
	default:
		return false
	}
}
