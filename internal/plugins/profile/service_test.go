package profile

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tradingsim/tradingsim/internal/apperror"
	"github.com/tradingsim/tradingsim/internal/plugins/auth"
)

type mockProfileRepo struct {
	getFn            func(ctx context.Context, userID string) (*Profile, error)
	upsertFn         func(ctx context.Context, p *Profile) error
	updateFullNameFn func(ctx context.Context, userID, name string) error
	updateAvatarFn   func(ctx context.Context, userID, path string) error
}

func (m *mockProfileRepo) Get(ctx context.Context, userID string) (*Profile, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return defaultProfile(userID), nil
}

func (m *mockProfileRepo) Upsert(ctx context.Context, p *Profile) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, p)
	}
	return nil
}

func (m *mockProfileRepo) UpdateFullName(ctx context.Context, userID, name string) error {
	if m.updateFullNameFn != nil {
		return m.updateFullNameFn(ctx, userID, name)
	}
	return nil
}

func (m *mockProfileRepo) UpdateAvatar(ctx context.Context, userID, path string) error {
	if m.updateAvatarFn != nil {
		return m.updateAvatarFn(ctx, userID, path)
	}
	return nil
}

type mockUserRepo struct {
	findByIDFn func(ctx context.Context, id string) (*auth.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *auth.User) error { return nil }
func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*auth.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return &auth.User{ID: id, Email: "user@example.com", FullName: "Test User"}, nil
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return nil, apperror.NewNotFound("user not found")
}
func (m *mockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return false, nil
}
func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string) error           { return nil }
func (m *mockUserRepo) UpdatePassword(ctx context.Context, userID, hash string) error  { return nil }
func (m *mockUserRepo) MarkEmailVerified(ctx context.Context, userID string) error     { return nil }

func newTestService(t *testing.T, repo *mockProfileRepo, users *mockUserRepo) ProfileService {
	t.Helper()
	if repo == nil {
		repo = &mockProfileRepo{}
	}
	if users == nil {
		users = &mockUserRepo{}
	}
	return NewProfileService(repo, users, t.TempDir(), 2*1024*1024)
}

func assertAppError(t *testing.T, err error, wantCode int) *apperror.AppError {
	t.Helper()
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != wantCode {
		t.Fatalf("expected code %d, got %d (%s)", wantCode, appErr.Code, appErr.Message)
	}
	return appErr
}

// pngBytes is a minimal valid PNG signature plus padding.
func pngBytes() []byte {
	return append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 16)...)
}

func jpegBytes() []byte {
	return append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 16)...)
}

func gifBytes() []byte {
	return append([]byte("GIF89a"), make([]byte, 16)...)
}

func TestUpdate_SavesNameAndPreferences(t *testing.T) {
	var savedName string
	var savedProfile *Profile
	repo := &mockProfileRepo{
		updateFullNameFn: func(ctx context.Context, userID, name string) error {
			savedName = name
			return nil
		},
		upsertFn: func(ctx context.Context, p *Profile) error {
			savedProfile = p
			return nil
		},
	}
	svc := newTestService(t, repo, nil)

	err := svc.Update(context.Background(), "user-1", UpdateInput{
		FullName:      "  Asha Rao  ",
		Theme:         ThemeLight,
		Notifications: false,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if savedName != "Asha Rao" {
		t.Errorf("expected trimmed name %q, got %q", "Asha Rao", savedName)
	}
	if savedProfile == nil {
		t.Fatal("expected profile upsert")
	}
	if savedProfile.Theme != ThemeLight || savedProfile.Notifications {
		t.Errorf("unexpected profile saved: %+v", savedProfile)
	}
}

func TestUpdate_RejectsEmptyName(t *testing.T) {
	svc := newTestService(t, nil, nil)
	err := svc.Update(context.Background(), "user-1", UpdateInput{
		FullName: "   ",
		Theme:    ThemeDark,
	})
	assertAppError(t, err, http.StatusUnprocessableEntity)
}

func TestUpdate_RejectsLongName(t *testing.T) {
	svc := newTestService(t, nil, nil)
	err := svc.Update(context.Background(), "user-1", UpdateInput{
		FullName: strings.Repeat("a", 101),
		Theme:    ThemeDark,
	})
	assertAppError(t, err, http.StatusUnprocessableEntity)
}

func TestUpdate_RejectsUnknownTheme(t *testing.T) {
	svc := newTestService(t, nil, nil)
	err := svc.Update(context.Background(), "user-1", UpdateInput{
		FullName: "Asha Rao",
		Theme:    "solarized",
	})
	assertAppError(t, err, http.StatusUnprocessableEntity)
}

func TestUploadAvatar_StoresFileAndPath(t *testing.T) {
	var savedPath string
	repo := &mockProfileRepo{
		updateAvatarFn: func(ctx context.Context, userID, path string) error {
			savedPath = path
			return nil
		},
	}
	dir := t.TempDir()
	svc := NewProfileService(repo, &mockUserRepo{}, dir, 2*1024*1024)

	relPath, err := svc.UploadAvatar(context.Background(), "user-1", "image/png", pngBytes())
	if err != nil {
		t.Fatalf("UploadAvatar failed: %v", err)
	}
	if relPath != savedPath {
		t.Errorf("returned path %q differs from saved path %q", relPath, savedPath)
	}
	if !strings.HasPrefix(relPath, "avatars"+string(filepath.Separator)) {
		t.Errorf("expected path under avatars/, got %q", relPath)
	}
	if !strings.HasSuffix(relPath, ".png") {
		t.Errorf("expected .png extension, got %q", relPath)
	}
	if _, err := os.Stat(filepath.Join(dir, relPath)); err != nil {
		t.Errorf("expected file on disk: %v", err)
	}
}

func TestUploadAvatar_AcceptsGif(t *testing.T) {
	svc := newTestService(t, nil, nil)
	relPath, err := svc.UploadAvatar(context.Background(), "user-1", "image/gif", gifBytes())
	if err != nil {
		t.Fatalf("UploadAvatar failed: %v", err)
	}
	if !strings.HasSuffix(relPath, ".gif") {
		t.Errorf("expected .gif extension, got %q", relPath)
	}
}

func TestUploadAvatar_RejectsUnsupportedType(t *testing.T) {
	svc := newTestService(t, nil, nil)
	_, err := svc.UploadAvatar(context.Background(), "user-1", "image/svg+xml", []byte("<svg/>"))
	assertAppError(t, err, http.StatusBadRequest)
}

func TestUploadAvatar_RejectsOversizedFile(t *testing.T) {
	svc := NewProfileService(&mockProfileRepo{}, &mockUserRepo{}, t.TempDir(), 8)
	_, err := svc.UploadAvatar(context.Background(), "user-1", "image/jpeg", jpegBytes())
	appErr := assertAppError(t, err, http.StatusBadRequest)
	if !strings.Contains(appErr.Message, "too large") {
		t.Errorf("expected size message, got %q", appErr.Message)
	}
}

func TestUploadAvatar_RejectsSpoofedContent(t *testing.T) {
	svc := newTestService(t, nil, nil)

	// Declared PNG, actually a script.
	_, err := svc.UploadAvatar(context.Background(), "user-1", "image/png", []byte("#!/bin/sh\nrm -rf /\n"))
	assertAppError(t, err, http.StatusBadRequest)

	// Declared JPEG, actually PNG bytes.
	_, err = svc.UploadAvatar(context.Background(), "user-1", "image/jpeg", pngBytes())
	assertAppError(t, err, http.StatusBadRequest)
}

func TestUploadAvatar_CleansUpFileOnRepoFailure(t *testing.T) {
	repo := &mockProfileRepo{
		updateAvatarFn: func(ctx context.Context, userID, path string) error {
			return errors.New("db down")
		},
	}
	dir := t.TempDir()
	svc := NewProfileService(repo, &mockUserRepo{}, dir, 2*1024*1024)

	_, err := svc.UploadAvatar(context.Background(), "user-1", "image/png", pngBytes())
	if err == nil {
		t.Fatal("expected error when avatar path cannot be saved")
	}
	entries, readErr := os.ReadDir(filepath.Join(dir, "avatars"))
	if readErr != nil {
		// Directory may exist but must be empty; a missing dir is fine too.
		return
	}
	if len(entries) != 0 {
		t.Errorf("expected orphaned file to be removed, found %d entries", len(entries))
	}
}

func TestValidateMagicBytes(t *testing.T) {
	tests := []struct {
		name string
		mime string
		data []byte
		want bool
	}{
		{"valid png", "image/png", pngBytes(), true},
		{"valid jpeg", "image/jpeg", jpegBytes(), true},
		{"valid gif 89a", "image/gif", gifBytes(), true},
		{"valid gif 87a", "image/gif", append([]byte("GIF87a"), make([]byte, 8)...), true},
		{"valid webp", "image/webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), true},
		{"truncated", "image/png", []byte{0x89, 0x50}, false},
		{"wrong signature", "image/webp", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), false},
		{"gif header only", "image/gif", []byte("GIF"), false},
		{"unknown mime", "image/bmp", []byte("BM\x00\x00\x00\x00\x00\x00"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validateMagicBytes(tt.data, tt.mime); got != tt.want {
				t.Errorf("validateMagicBytes(%s) = %v, want %v", tt.mime, got, tt.want)
			}
		})
	}
}

func TestPage_ReturnsDefaultsForNewUser(t *testing.T) {
	svc := newTestService(t, nil, nil)
	user, prof, err := svc.Page(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Page failed: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("unexpected user %+v", user)
	}
	if !prof.Notifications || prof.Theme != ThemeDark {
		t.Errorf("expected default preferences, got %+v", prof)
	}
}
