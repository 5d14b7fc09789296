package onetap

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/tradingsim/tradingsim/internal/apperror"
	"github.com/tradingsim/tradingsim/internal/plugins/auth"
)

const testClientID = "test-client.apps.googleusercontent.com"
const testKid = "test-key"

// mockUserRepo implements auth.UserRepository for exchange tests.
type mockUserRepo struct {
	createFn      func(ctx context.Context, user *auth.User) error
	findByEmailFn func(ctx context.Context, email string) (*auth.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *auth.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*auth.User, error) {
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return false, nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string) error { return nil }

func (m *mockUserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return nil
}

func (m *mockUserRepo) MarkEmailVerified(ctx context.Context, userID string) error { return nil }

// --- Test fixture ---

type fixture struct {
	svc   *oneTapService
	redis *miniredis.Miniredis
	key   *rsa.PrivateKey
}

// newFixture stands up miniredis and a JWKS endpoint serving a test key.
func newFixture(t *testing.T, repo *mockUserRepo) *fixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating test key: %v", err)
	}

	jwks := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": testKid,
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   "AQAB",
			}},
		})
	}))
	t.Cleanup(jwks.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	if repo == nil {
		repo = &mockUserRepo{}
	}

	svc := NewOneTapService(rdb, repo, testClientID, jwks.URL).(*oneTapService)
	return &fixture{svc: svc, redis: mr, key: key}
}

// signToken signs an ID token with the fixture key, applying any claim
// overrides on top of a valid baseline.
func (f *fixture) signToken(t *testing.T, mutate func(*idTokenClaims)) string {
	t.Helper()
	claims := &idTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://accounts.google.com",
			Audience:  jwt.ClaimStrings{testClientID},
			Subject:   "google-sub-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email:         "alice@example.com",
		EmailVerified: true,
		Name:          "Alice Example",
	}
	if mutate != nil {
		mutate(claims)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKid
	signed, err := token.SignedString(f.key)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

// issue mints a nonce through the service.
func (f *fixture) issue(t *testing.T) *Nonce {
	t.Helper()
	nonce, err := f.svc.IssueNonce(context.Background())
	if err != nil {
		t.Fatalf("IssueNonce failed: %v", err)
	}
	return nonce
}

// --- Nonce Tests ---

func TestIssueNonce(t *testing.T) {
	f := newFixture(t, nil)
	nonce := f.issue(t)

	if nonce.ID == "" || nonce.Raw == "" || nonce.Hashed == "" {
		t.Fatalf("incomplete nonce: %+v", nonce)
	}
	if nonce.Hashed != hashNonce(nonce.Raw) {
		t.Error("hashed half must be SHA-256 of the raw half")
	}

	stored, err := f.redis.Get(nonceKeyPrefix + nonce.ID)
	if err != nil {
		t.Fatalf("expected raw nonce in Redis: %v", err)
	}
	if stored != nonce.Raw {
		t.Error("Redis must hold the raw nonce")
	}

	// The raw half must be valid base64 of 32 bytes.
	decoded, err := base64.StdEncoding.DecodeString(nonce.Raw)
	if err != nil {
		t.Fatalf("raw nonce is not base64: %v", err)
	}
	if len(decoded) != 32 {
		t.Errorf("expected 32 nonce bytes, got %d", len(decoded))
	}
}

func TestIssueNonce_Expires(t *testing.T) {
	f := newFixture(t, nil)
	nonce := f.issue(t)

	f.redis.FastForward(nonceTTL + time.Minute)

	_, err := f.svc.Exchange(context.Background(),
		f.signToken(t, func(c *idTokenClaims) { c.Nonce = nonce.Hashed }), nonce.ID)
	if err == nil {
		t.Fatal("expected expired nonce to be rejected")
	}
}

// --- Exchange Tests ---

func TestExchange_ProvisionsNewUser(t *testing.T) {
	var created *auth.User
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *auth.User) error {
			created = user
			return nil
		},
	}
	f := newFixture(t, repo)
	nonce := f.issue(t)

	credential := f.signToken(t, func(c *idTokenClaims) { c.Nonce = nonce.Hashed })
	user, err := f.svc.Exchange(context.Background(), credential, nonce.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("expected alice@example.com, got %s", user.Email)
	}
	if created == nil {
		t.Fatal("expected a new account to be provisioned")
	}
	if !created.Verified() {
		t.Error("google-provisioned accounts start verified")
	}
	if created.PasswordHash != "" {
		t.Error("google-provisioned accounts have no password")
	}
	if created.FullName != "Alice Example" {
		t.Errorf("expected name from claims, got %s", created.FullName)
	}
}

func TestExchange_ExistingUserReused(t *testing.T) {
	existing := &auth.User{ID: "user-1", Email: "alice@example.com", FullName: "Alice"}
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*auth.User, error) {
			return existing, nil
		},
		createFn: func(ctx context.Context, user *auth.User) error {
			t.Error("must not create a duplicate account")
			return nil
		},
	}
	f := newFixture(t, repo)
	nonce := f.issue(t)

	credential := f.signToken(t, func(c *idTokenClaims) { c.Nonce = nonce.Hashed })
	user, err := f.svc.Exchange(context.Background(), credential, nonce.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("expected existing user, got %s", user.ID)
	}
}

func TestExchange_NonceSingleUse(t *testing.T) {
	f := newFixture(t, nil)
	nonce := f.issue(t)
	credential := f.signToken(t, func(c *idTokenClaims) { c.Nonce = nonce.Hashed })

	if _, err := f.svc.Exchange(context.Background(), credential, nonce.ID); err != nil {
		t.Fatalf("first exchange failed: %v", err)
	}
	if _, err := f.svc.Exchange(context.Background(), credential, nonce.ID); err == nil {
		t.Fatal("expected replay to be rejected")
	}
}

func TestExchange_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*idTokenClaims, *Nonce)
	}{
		{"nonce mismatch", func(c *idTokenClaims, n *Nonce) {
			c.Nonce = "0000000000000000000000000000000000000000000000000000000000000000"
		}},
		{"missing nonce claim", func(c *idTokenClaims, n *Nonce) {
			c.Nonce = ""
		}},
		{"wrong audience", func(c *idTokenClaims, n *Nonce) {
			c.Nonce = n.Hashed
			c.Audience = jwt.ClaimStrings{"someone-else.apps.googleusercontent.com"}
		}},
		{"wrong issuer", func(c *idTokenClaims, n *Nonce) {
			c.Nonce = n.Hashed
			c.Issuer = "https://evil.example.com"
		}},
		{"expired token", func(c *idTokenClaims, n *Nonce) {
			c.Nonce = n.Hashed
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		}},
		{"unverified email", func(c *idTokenClaims, n *Nonce) {
			c.Nonce = n.Hashed
			c.EmailVerified = false
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			nonce := f.issue(t)
			credential := f.signToken(t, func(c *idTokenClaims) { tt.mutate(c, nonce) })

			_, err := f.svc.Exchange(context.Background(), credential, nonce.ID)
			if err == nil {
				t.Fatal("expected rejection")
			}
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Code != 401 {
				t.Errorf("expected 401, got %d", appErr.Code)
			}
		})
	}
}

func TestExchange_GarbageCredential(t *testing.T) {
	f := newFixture(t, nil)
	nonce := f.issue(t)

	if _, err := f.svc.Exchange(context.Background(), "not-a-jwt", nonce.ID); err == nil {
		t.Fatal("expected garbage credential to be rejected")
	}
	if _, err := f.svc.Exchange(context.Background(), "", nonce.ID); err == nil {
		t.Fatal("expected empty credential to be rejected")
	}
	if _, err := f.svc.Exchange(context.Background(), "x", ""); err == nil {
		t.Fatal("expected missing nonce id to be rejected")
	}
}
