// Package auth is the session/auth gateway for TradingSim: the only code
// path that touches user credentials, sessions, and one-time codes. It
// provides signup with email confirmation, password login, the demo login,
// password reset with one-time code exchange, and the token-pair session
// model (Redis-backed access tokens, database-backed refresh tokens).
package auth

import (
	"time"
)

// User represents a registered TradingSim user. This is the domain model used
// throughout the application. Database scanning uses this struct directly.
type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	FullName        string     `json:"full_name"`
	PasswordHash    string     `json:"-"` // Never expose.
	AvatarPath      *string    `json:"avatar_path,omitempty"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
}

// Verified returns true once the user has confirmed their email address.
func (u *User) Verified() bool {
	return u.EmailVerifiedAt != nil
}

// --- Request DTOs (bound from HTTP requests) ---

// LoginRequest holds the data submitted by the login form.
type LoginRequest struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

// SignupRequest holds the data submitted by the signup form. Terms carries
// the checkbox value ("on" when ticked).
type SignupRequest struct {
	Email    string `form:"email"`
	FullName string `form:"full_name"`
	Password string `form:"password"`
	Confirm  string `form:"confirm"`
	Terms    string `form:"terms"`
}

// --- Service Input DTOs (passed from handler to service) ---

// RegisterInput is the validated input for creating a new account.
type RegisterInput struct {
	Email    string
	FullName string
	Password string
}

// LoginInput is the validated input for authenticating a user.
type LoginInput struct {
	Email    string
	Password string
}

// --- Session ---

// Session is the authenticated-user snapshot stored in Redis under the
// access token. The access token is the key, this struct is the value
// (JSON-encoded).
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenPair is a full session: a short-lived access token resolved through
// Redis and a long-lived refresh token whose hash lives in MariaDB. Both are
// delivered to the browser as HttpOnly cookies.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// --- Password policy ---

// PasswordStrength scores a candidate password 0-5, one point per rule:
// length >= 8, an uppercase letter, a lowercase letter, a digit, and a
// symbol. The signup form displays the score and refuses submissions
// scoring below 3.
func PasswordStrength(password string) int {
	strength := 0
	if len(password) >= 8 {
		strength++
	}
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			symbol = true
		}
	}
	for _, ok := range []bool{upper, lower, digit, symbol} {
		if ok {
			strength++
		}
	}
	return strength
}

// ValidatePasswordPolicy enforces the full five-rule policy used when a
// password is set or changed: minimum length, upper and lower case, a digit,
// and a special character. Returns an error message naming the first failing
// rule, or empty string when the password passes.
func ValidatePasswordPolicy(password string) string {
	if len(password) < 8 {
		return "password must be at least 8 characters"
	}
	if len(password) > 128 {
		return "password must be at most 128 characters"
	}
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			symbol = true
		}
	}
	switch {
	case !upper:
		return "password must contain an uppercase letter"
	case !lower:
		return "password must contain a lowercase letter"
	case !digit:
		return "password must contain a number"
	case !symbol:
		return "password must contain a special character"
	}
	return ""
}
