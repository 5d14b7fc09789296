// Package onetap implements Google One Tap sign-in: per-page-load nonce
// pairs, Google ID token verification against the Google JWKS, and the
// credential-for-session exchange. The auth plugin owns the session; this
// plugin only proves who the visitor is.
package onetap

import (
	"github.com/golang-jwt/jwt/v5"
)

// ExchangeRequest is the body of the credential exchange posted by the
// page script after Google returns an ID token.
type ExchangeRequest struct {
	Credential string `json:"credential" form:"credential"`
}

// idTokenClaims are the Google ID token claims we consume. Registered
// claims (iss, aud, exp, ...) come along via embedding.
type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Nonce         string `json:"nonce"`
}
