package onetap

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// googleJWKSURL serves the RSA keys Google currently signs ID tokens with.
const googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

// jwksRefreshInterval bounds how long a fetched key set is trusted. Google
// rotates keys roughly daily; an hour keeps us comfortably fresh without
// hammering the endpoint.
const jwksRefreshInterval = time.Hour

// jwksClient fetches and caches Google's signing keys by kid.
type jwksClient struct {
	url    string
	client *http.Client

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func newJWKSClient(url string) *jwksClient {
	if url == "" {
		url = googleJWKSURL
	}
	return &jwksClient{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		keys:   map[string]*rsa.PublicKey{},
	}
}

// Key returns the RSA public key for the given kid, refreshing the cached
// set when it is stale or the kid is unknown (a rotation just happened).
func (j *jwksClient) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	j.mu.RLock()
	key, ok := j.keys[kid]
	fresh := time.Since(j.fetchedAt) < jwksRefreshInterval
	j.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	if err := j.refresh(ctx); err != nil {
		return nil, err
	}

	j.mu.RLock()
	key, ok = j.keys[kid]
	j.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no Google signing key with kid %q", kid)
	}
	return key, nil
}

// refresh fetches the key set and replaces the cache.
func (j *jwksClient) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.url, nil)
	if err != nil {
		return fmt.Errorf("building JWKS request: %w", err)
	}

	resp, err := j.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching Google JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching Google JWKS: status %d", resp.StatusCode)
	}

	var doc struct {
		Keys []struct {
			Kty string `json:"kty"`
			Kid string `json:"kid"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decoding Google JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAKey(k.N, k.E)
		if err != nil {
			return fmt.Errorf("parsing JWKS key %q: %w", k.Kid, err)
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return fmt.Errorf("google JWKS contained no RSA keys")
	}

	j.mu.Lock()
	j.keys = keys
	j.fetchedAt = time.Now()
	j.mu.Unlock()
	return nil
}

// parseRSAKey builds an rsa.PublicKey from base64url modulus and exponent.
func parseRSAKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}

	exp := 0
	for _, b := range eb {
		exp = exp<<8 | int(b)
	}
	if exp <= 0 {
		return nil, fmt.Errorf("non-positive exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: exp,
	}, nil
}
