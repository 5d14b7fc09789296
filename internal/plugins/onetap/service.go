package onetap

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tradingsim/tradingsim/internal/apperror"
	"github.com/tradingsim/tradingsim/internal/plugins/auth"
)

// nonceKeyPrefix is the Redis key prefix for pending One Tap nonces.
const nonceKeyPrefix = "onetap:nonce:"

// nonceTTL is how long an issued nonce stays redeemable. A page that sits
// open longer than this renders a stale widget; the user just reloads.
const nonceTTL = 10 * time.Minute

// googleIssuers are the two issuer values Google uses in ID tokens.
var googleIssuers = map[string]bool{
	"https://accounts.google.com": true,
	"accounts.google.com":         true,
}

// Nonce is an issued nonce pair. Hashed goes into the Google widget and
// comes back inside the ID token; Raw stays server-side under ID.
type Nonce struct {
	ID     string
	Raw    string
	Hashed string
}

// OneTapService issues nonces and exchanges Google credentials for users.
type OneTapService interface {
	// IssueNonce mints a nonce pair and stores the raw half in Redis.
	IssueNonce(ctx context.Context) (*Nonce, error)

	// Exchange verifies a Google ID token against the nonce identified by
	// nonceID and returns the signed-in (possibly just provisioned) user.
	// The nonce is consumed whether or not verification succeeds.
	Exchange(ctx context.Context, credential, nonceID string) (*auth.User, error)
}

type oneTapService struct {
	redis    *redis.Client
	users    auth.UserRepository
	jwks     *jwksClient
	clientID string
}

// NewOneTapService creates the One Tap service for the given Google OAuth
// client ID. jwksURL overrides the Google endpoint in tests; pass "" in
// production.
func NewOneTapService(rdb *redis.Client, users auth.UserRepository, clientID, jwksURL string) OneTapService {
	return &oneTapService{
		redis:    rdb,
		users:    users,
		jwks:     newJWKSClient(jwksURL),
		clientID: clientID,
	}
}

// IssueNonce generates 32 random bytes, base64-encodes them as the raw
// nonce, and derives the hashed half as SHA-256 hex. The raw nonce lives
// in Redis for nonceTTL keyed by a random ID.
func (s *oneTapService) IssueNonce(ctx context.Context) (*Nonce, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	raw := base64.StdEncoding.EncodeToString(buf)

	idBuf := make([]byte, 16)
	if _, err := rand.Read(idBuf); err != nil {
		return nil, fmt.Errorf("generating nonce id: %w", err)
	}
	id := hex.EncodeToString(idBuf)

	if err := s.redis.Set(ctx, nonceKeyPrefix+id, raw, nonceTTL).Err(); err != nil {
		return nil, fmt.Errorf("storing nonce: %w", err)
	}

	return &Nonce{ID: id, Raw: raw, Hashed: hashNonce(raw)}, nil
}

// Exchange runs the full verification: consume the nonce, check the
// token's signature against Google's keys, check issuer, audience, and the
// nonce binding, then find or provision the user.
func (s *oneTapService) Exchange(ctx context.Context, credential, nonceID string) (*auth.User, error) {
	invalid := apperror.NewUnauthorized("Google sign-in could not be verified")

	if credential == "" || nonceID == "" {
		return nil, invalid
	}

	// GetDel makes the nonce single-use: replaying the same credential
	// finds nothing to verify against.
	raw, err := s.redis.GetDel(ctx, nonceKeyPrefix+nonceID).Result()
	if err == redis.Nil {
		return nil, invalid
	}
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reading nonce: %w", err))
	}

	claims, err := s.verifyCredential(ctx, credential, raw)
	if err != nil {
		slog.Warn("google credential rejected", slog.Any("error", err))
		return nil, invalid
	}

	user, err := s.findOrProvision(ctx, claims)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// verifyCredential parses and validates the ID token.
func (s *oneTapService) verifyCredential(ctx context.Context, credential, rawNonce string) (*idTokenClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
	)

	claims := &idTokenClaims{}
	_, err := parser.ParseWithClaims(credential, claims, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return s.jwks.Key(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("parsing id token: %w", err)
	}

	if !googleIssuers[claims.Issuer] {
		return nil, fmt.Errorf("unexpected issuer %q", claims.Issuer)
	}
	audOK := false
	for _, aud := range claims.Audience {
		if aud == s.clientID {
			audOK = true
			break
		}
	}
	if !audOK {
		return nil, fmt.Errorf("token not issued for this client")
	}
	if claims.Nonce != hashNonce(rawNonce) {
		return nil, fmt.Errorf("nonce mismatch")
	}
	if claims.Email == "" || !claims.EmailVerified {
		return nil, fmt.Errorf("google account email not verified")
	}

	return claims, nil
}

// findOrProvision resolves the Google identity to a local account,
// creating one on first sign-in. Google already verified the address, so
// the account starts confirmed and has no usable password.
func (s *oneTapService) findOrProvision(ctx context.Context, claims *idTokenClaims) (*auth.User, error) {
	email := strings.ToLower(claims.Email)

	user, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if apperror.SafeCode(err) != 404 {
		return nil, apperror.NewInternal(fmt.Errorf("looking up user: %w", err))
	}

	name := claims.Name
	if name == "" {
		name = email
	}
	now := time.Now().UTC()
	user = &auth.User{
		ID:              uuid.NewString(),
		Email:           email,
		FullName:        name,
		EmailVerifiedAt: &now,
		CreatedAt:       now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("provisioning user: %w", err))
	}

	slog.Info("user provisioned via google",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// hashNonce is SHA-256 hex over the raw nonce string, matching what the
// widget asks Google to embed in the token's nonce claim.
func hashNonce(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
