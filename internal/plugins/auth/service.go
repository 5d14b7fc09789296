package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/argon2"

	"github.com/tradingsim/tradingsim/internal/apperror"
	"github.com/tradingsim/tradingsim/internal/config"
	"github.com/tradingsim/tradingsim/internal/mailer"
)

// sessionKeyPrefix is the Redis key prefix for access-token session data.
const sessionKeyPrefix = "session:"

// sessionTokenBytes is the number of random bytes in an access or refresh
// token. 32 bytes = 256 bits of entropy, hex-encoded to 64 characters.
const sessionTokenBytes = 32

// argon2id parameters following OWASP recommendations for argon2id:
// memory=64MB, iterations=3, parallelism=4.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024 // 64 MB in KiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// AuthService defines the business logic contract for the session/auth
// gateway. Handlers and the session guard call these methods -- they never
// touch the repositories directly.
type AuthService interface {
	// Register creates an unverified account and emails a confirmation link.
	// No session is established until the account is confirmed.
	Register(ctx context.Context, input RegisterInput, baseURL string) (*User, error)

	// ConfirmEmail consumes a one-time confirmation code.
	ConfirmEmail(ctx context.Context, code string) error

	// Login authenticates by email and password and mints a token pair.
	Login(ctx context.Context, input LoginInput) (*TokenPair, *User, error)

	// InitiatePasswordReset emails a reset link when the address is
	// registered. It never reveals whether the address exists; only a
	// failure of the send itself is surfaced.
	InitiatePasswordReset(ctx context.Context, email, baseURL string) error

	// ExchangeResetCode consumes a one-time reset code and mints a recovery
	// session so the user can set a new password.
	ExchangeResetCode(ctx context.Context, code string) (*TokenPair, *User, error)

	// UpdatePassword sets a new password for an authenticated user and
	// revokes their outstanding refresh tokens.
	UpdatePassword(ctx context.Context, userID, newPassword string) error

	// CreateSessionFor mints a token pair for an already-authenticated user
	// (used by the One Tap identity exchange).
	CreateSessionFor(ctx context.Context, user *User) (*TokenPair, error)

	// ValidateAccess resolves an access token to its session snapshot.
	ValidateAccess(ctx context.Context, accessToken string) (*Session, error)

	// Refresh rotates a valid refresh token into a fresh token pair.
	Refresh(ctx context.Context, rawRefresh string) (*TokenPair, *Session, error)

	// SignOut invalidates both halves of a session. Idempotent.
	SignOut(ctx context.Context, accessToken, rawRefresh string) error

	// EnsureDemoUser seeds the fixed demo account at startup.
	EnsureDemoUser(ctx context.Context) error
}

// authService implements AuthService with argon2id hashing, Redis access
// tokens, and hashed refresh tokens in MariaDB.
type authService struct {
	repo   UserRepository
	tokens TokenRepository
	redis  *redis.Client
	mail   mailer.MailSender
	cfg    config.AuthConfig
	demo   config.DemoConfig
}

// NewAuthService creates a new auth service with the given dependencies.
func NewAuthService(repo UserRepository, tokens TokenRepository, rdb *redis.Client, mail mailer.MailSender, cfg config.AuthConfig, demo config.DemoConfig) AuthService {
	return &authService{
		repo:   repo,
		tokens: tokens,
		redis:  rdb,
		mail:   mail,
		cfg:    cfg,
		demo:   demo,
	}
}

// Register creates a new unverified account. It validates uniqueness and the
// password policy, hashes the password with argon2id, persists the user, and
// emails a confirmation link. The account cannot sign in until confirmed.
func (s *authService) Register(ctx context.Context, input RegisterInput, baseURL string) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	// Check if email is already taken before doing expensive hashing.
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking email: %w", err))
	}
	if exists {
		return nil, apperror.NewConflict("an account with this email already exists")
	}

	// The form enforces the strength gate client-side too, but the service
	// is the authoritative check.
	if PasswordStrength(input.Password) < 3 {
		return nil, apperror.NewValidation("password is too weak: use at least 8 characters mixing upper and lower case, numbers, and symbols")
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     strings.TrimSpace(input.FullName),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	// Issue the confirmation code and send the link. A mail failure does not
	// roll back the account -- the user can request a new link by trying to
	// sign in again.
	if err := s.sendOneTimeLink(ctx, user, purposeVerify, baseURL); err != nil {
		slog.Warn("failed to send confirmation email",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// ConfirmEmail consumes a confirmation code and marks the account verified.
func (s *authService) ConfirmEmail(ctx context.Context, code string) error {
	userID, _, err := s.consumeOneTime(ctx, code, purposeVerify)
	if err != nil {
		return err
	}

	if err := s.repo.MarkEmailVerified(ctx, userID); err != nil {
		return apperror.NewInternal(fmt.Errorf("verifying email: %w", err))
	}

	slog.Info("email confirmed", slog.String("user_id", userID))
	return nil
}

// Login authenticates a user by email and password. On success it mints a
// new token pair. Unknown emails and wrong passwords produce the same
// generic message.
func (s *authService) Login(ctx context.Context, input LoginInput) (*TokenPair, *User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		// Don't reveal whether the email exists -- use generic message.
		if apperror.SafeCode(err) == 404 {
			return nil, nil, apperror.NewUnauthorized("invalid email or password")
		}
		return nil, nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if !verifyPassword(input.Password, user.PasswordHash) {
		return nil, nil, apperror.NewUnauthorized("invalid email or password")
	}

	if !user.Verified() {
		return nil, nil, apperror.NewUnauthorized("please confirm your email address before signing in")
	}

	pair, err := s.createTokenPair(ctx, user)
	if err != nil {
		return nil, nil, apperror.NewInternal(fmt.Errorf("creating session: %w", err))
	}

	// Update the user's last login timestamp (fire-and-forget, non-critical).
	if err := s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("failed to update last login",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return pair, user, nil
}

// InitiatePasswordReset sends a reset link when the address is registered.
// An unknown address still returns nil; only the send itself can fail.
func (s *authService) InitiatePasswordReset(ctx context.Context, email, baseURL string) error {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperror.SafeCode(err) == 404 {
			// Deliberately indistinguishable from the sent case.
			slog.Debug("password reset requested for unknown email")
			return nil
		}
		return apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if err := s.sendOneTimeLink(ctx, user, purposeReset, baseURL); err != nil {
		return apperror.NewInternal(fmt.Errorf("sending reset email: %w", err))
	}

	slog.Info("password reset email sent", slog.String("user_id", user.ID))
	return nil
}

// ExchangeResetCode consumes a reset code exactly once and mints a recovery
// session. Expired, unknown, and already-used codes all collapse into the
// same "invalid or expired" condition.
func (s *authService) ExchangeResetCode(ctx context.Context, code string) (*TokenPair, *User, error) {
	userID, _, err := s.consumeOneTime(ctx, code, purposeReset)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, apperror.NewInternal(fmt.Errorf("loading user for reset: %w", err))
	}

	pair, err := s.createTokenPair(ctx, user)
	if err != nil {
		return nil, nil, apperror.NewInternal(fmt.Errorf("creating recovery session: %w", err))
	}

	slog.Info("reset code exchanged", slog.String("user_id", user.ID))
	return pair, user, nil
}

// UpdatePassword sets a new password for an authenticated user. The full
// five-rule policy applies. All outstanding refresh tokens are revoked so
// the new password is required everywhere.
func (s *authService) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	if userID == "" {
		return apperror.NewUnauthorized("sign in to change your password")
	}
	if msg := ValidatePasswordPolicy(newPassword); msg != "" {
		return apperror.NewValidation(msg)
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		if apperror.SafeCode(err) == 404 {
			return apperror.NewUnauthorized("sign in to change your password")
		}
		return apperror.NewInternal(fmt.Errorf("updating password: %w", err))
	}

	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		slog.Warn("failed to revoke refresh tokens after password change",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}

	slog.Info("password updated", slog.String("user_id", userID))
	return nil
}

// CreateSessionFor mints a token pair for a user authenticated by an
// external identity exchange.
func (s *authService) CreateSessionFor(ctx context.Context, user *User) (*TokenPair, error) {
	pair, err := s.createTokenPair(ctx, user)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating session: %w", err))
	}
	if err := s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("failed to update last login",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}
	return pair, nil
}

// ValidateAccess looks up an access token in Redis and returns the session
// snapshot if it exists and hasn't expired.
func (s *authService) ValidateAccess(ctx context.Context, accessToken string) (*Session, error) {
	key := sessionKeyPrefix + accessToken

	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, apperror.NewUnauthorized("session expired or invalid")
	}
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reading session from Redis: %w", err))
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("unmarshaling session: %w", err))
	}

	return &session, nil
}

// Refresh validates a refresh token and rotates it into a fresh pair. The
// old refresh token is revoked so each one works exactly once.
func (s *authService) Refresh(ctx context.Context, rawRefresh string) (*TokenPair, *Session, error) {
	hash := hashToken(rawRefresh)

	userID, err := s.tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, apperror.NewInternal(fmt.Errorf("loading user for refresh: %w", err))
	}

	if err := s.tokens.RevokeRefresh(ctx, hash); err != nil {
		return nil, nil, apperror.NewInternal(fmt.Errorf("rotating refresh token: %w", err))
	}

	pair, err := s.createTokenPair(ctx, user)
	if err != nil {
		return nil, nil, apperror.NewInternal(fmt.Errorf("creating session: %w", err))
	}

	session := &Session{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.FullName,
		CreatedAt: time.Now().UTC(),
	}
	return pair, session, nil
}

// SignOut removes the access token from Redis and revokes the refresh
// token. Both halves are best-effort and the operation is idempotent.
func (s *authService) SignOut(ctx context.Context, accessToken, rawRefresh string) error {
	if accessToken != "" {
		if err := s.redis.Del(ctx, sessionKeyPrefix+accessToken).Err(); err != nil {
			return apperror.NewInternal(fmt.Errorf("deleting session from Redis: %w", err))
		}
	}
	if rawRefresh != "" {
		if err := s.tokens.RevokeRefresh(ctx, hashToken(rawRefresh)); err != nil {
			return apperror.NewInternal(fmt.Errorf("revoking refresh token: %w", err))
		}
	}
	return nil
}

// EnsureDemoUser creates the fixed demo account if it doesn't exist yet.
// The account is pre-verified so the one-click demo login always succeeds.
func (s *authService) EnsureDemoUser(ctx context.Context) error {
	exists, err := s.repo.EmailExists(ctx, s.demo.Email)
	if err != nil {
		return fmt.Errorf("checking demo user: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := hashPassword(s.demo.Password)
	if err != nil {
		return fmt.Errorf("hashing demo password: %w", err)
	}

	now := time.Now().UTC()
	user := &User{
		ID:              uuid.NewString(),
		Email:           s.demo.Email,
		FullName:        "Demo Investor",
		PasswordHash:    hash,
		EmailVerifiedAt: &now,
		CreatedAt:       now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return fmt.Errorf("seeding demo user: %w", err)
	}

	slog.Info("demo user seeded", slog.String("email", user.Email))
	return nil
}

// --- One-time codes ---

// sendOneTimeLink issues a fresh one-time code for the given purpose and
// emails the matching link.
func (s *authService) sendOneTimeLink(ctx context.Context, user *User, purpose, baseURL string) error {
	code, err := generateToken()
	if err != nil {
		return fmt.Errorf("generating code: %w", err)
	}

	ttl := s.cfg.ResetTTL
	if purpose == purposeVerify {
		ttl = s.cfg.VerifyTTL
	}

	expiresAt := time.Now().UTC().Add(ttl)
	if err := s.tokens.CreateOneTime(ctx, user.ID, user.Email, hashToken(code), purpose, expiresAt); err != nil {
		return err
	}

	var subject, body string
	switch purpose {
	case purposeVerify:
		subject = "Confirm your TradingSim account"
		body = fmt.Sprintf(
			"Welcome to TradingSim!\r\n\r\nConfirm your email address to activate your account:\r\n\r\n%s/confirm?code=%s\r\n\r\nThe link expires in %s.\r\n",
			baseURL, code, formatTTL(ttl))
	default:
		subject = "Reset your TradingSim password"
		body = fmt.Sprintf(
			"We received a request to reset your password.\r\n\r\nSet a new password here:\r\n\r\n%s/reset-password?code=%s\r\n\r\nThe link expires in %s. If you didn't request this, you can ignore this email.\r\n",
			baseURL, code, formatTTL(ttl))
	}

	return s.mail.SendMail(ctx, []string{user.Email}, subject, body)
}

// consumeOneTime validates and burns a one-time code. The same 401 comes
// back for unknown, expired, and already-used codes.
func (s *authService) consumeOneTime(ctx context.Context, code, purpose string) (userID, email string, err error) {
	invalid := apperror.NewUnauthorized("this link is invalid or has expired")

	if code == "" {
		return "", "", invalid
	}

	hash := hashToken(code)
	userID, email, expiresAt, usedAt, err := s.tokens.FindOneTime(ctx, hash, purpose)
	if err != nil {
		if apperror.SafeCode(err) == 404 {
			return "", "", invalid
		}
		return "", "", apperror.NewInternal(fmt.Errorf("looking up one-time code: %w", err))
	}
	if usedAt != nil || time.Now().UTC().After(expiresAt) {
		return "", "", invalid
	}

	if err := s.tokens.MarkOneTimeUsed(ctx, hash); err != nil {
		return "", "", apperror.NewInternal(fmt.Errorf("consuming one-time code: %w", err))
	}

	return userID, email, nil
}

// formatTTL renders a TTL for email copy ("1 hour", "24 hours").
func formatTTL(ttl time.Duration) string {
	hours := int(ttl.Hours())
	if hours <= 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}

// --- Token pair ---

// createTokenPair mints an access token (Redis, short TTL) and a refresh
// token (hashed in MariaDB, long TTL) for the given user.
func (s *authService) createTokenPair(ctx context.Context, user *User) (*TokenPair, error) {
	accessToken, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generating access token: %w", err)
	}
	refreshToken, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}

	now := time.Now().UTC()
	session := Session{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.FullName,
		CreatedAt: now,
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshaling session: %w", err)
	}

	key := sessionKeyPrefix + accessToken
	if err := s.redis.Set(ctx, key, data, s.cfg.AccessTTL).Err(); err != nil {
		return nil, fmt.Errorf("storing session in Redis: %w", err)
	}

	refreshExpiry := now.Add(s.cfg.RefreshTTL)
	if err := s.tokens.StoreRefresh(ctx, user.ID, hashToken(refreshToken), refreshExpiry); err != nil {
		return nil, fmt.Errorf("storing refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  now.Add(s.cfg.AccessTTL),
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

// --- Password Hashing (argon2id) ---

// hashPassword creates an argon2id hash of the given password. The output
// format is: $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
// This format is compatible with most argon2 libraries and allows self-
// contained verification without separate salt storage.
func hashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	// Encode to the standard PHC string format.
	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads, b64Salt, b64Hash)

	return encoded, nil
}

// verifyPassword checks a plaintext password against an argon2id hash string.
// Returns true if the password matches.
func verifyPassword(password, encodedHash string) bool {
	// Parse the encoded hash to extract parameters, salt, and hash.
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false
	}

	var memory uint32
	var iterations uint32
	var parallelism uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism)
	if err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	// Compute the hash of the provided password with the same parameters.
	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Constant-time comparison to prevent timing attacks.
	return subtle.ConstantTimeCompare(expectedHash, computedHash) == 1
}

// --- Helpers ---

// generateToken creates a cryptographically random hex-encoded token.
func generateToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashToken returns the SHA-256 hex digest of a token. Only hashes are
// stored at rest.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
