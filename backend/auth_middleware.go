// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// authClaims is the identity a verified token asserts. Email is the
// primary key into the user directory; Name and Role are hints used to
// prefill registration before a directory entry exists.
type authClaims struct {
	Email string
	Name  string
	Role  string
}

type claimsContextKey struct{}

var authClaimsKey claimsContextKey

// getAuthClaims returns the token claims attached to the request, or
// nil when the request is anonymous or mock-authenticated.
func getAuthClaims(r *http.Request) *authClaims {
	if val := r.Context().Value(authClaimsKey); val != nil {
		if c, ok := val.(*authClaims); ok {
			return c
		}
	}
	return nil
}

// claimsFromToken maps the token's claim set onto authClaims. A token
// without a usable email claim yields nil and the request stays
// anonymous.
func claimsFromToken(claims jwt.MapClaims) *authClaims {
	email, _ := claims["email"].(string)
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}
	c := &authClaims{Email: email}
	if name, ok := claims["name"].(string); ok {
		c.Name = name
	}
	if role, ok := claims["role"].(string); ok {
		c.Role = role
	}
	return c
}

// jwksCache holds the signing keys fetched from the identity
// provider's JWKS endpoint and refreshes them on demand.
type jwksCache struct {
	url string

	mu      sync.RWMutex
	keys    jwk.Set
	fetched time.Time
}

func newJWKSCache(url string) *jwksCache {
	return &jwksCache{url: url}
}

func (c *jwksCache) refresh() error {
	if c.url == "" {
		return fmt.Errorf("no JWKS URL provided")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	set, err := jwk.Fetch(ctx, c.url)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	c.mu.Lock()
	c.keys = set
	c.fetched = time.Now()
	c.mu.Unlock()
	return nil
}

func (c *jwksCache) lookup(kid string) (interface{}, error) {
	c.mu.RLock()
	set := c.keys
	c.mu.RUnlock()

	if set == nil {
		return nil, fmt.Errorf("JWKS not initialized")
	}
	key, ok := set.LookupKeyID(kid)
	if !ok {
		return nil, fmt.Errorf("key %s not found in JWKS", kid)
	}
	var raw interface{}
	if err := jwk.Export(key, &raw); err != nil {
		return nil, fmt.Errorf("failed to materialize key: %w", err)
	}
	return raw, nil
}

// key resolves a key ID, refreshing the cached set at most once per
// minute when the ID is unknown. Identity providers rotate keys, and
// a signed-in user's token can reference a key minted after startup.
func (c *jwksCache) key(kid string) (interface{}, error) {
	raw, err := c.lookup(kid)
	if err == nil {
		return raw, nil
	}

	c.mu.RLock()
	fetched := c.fetched
	c.mu.RUnlock()
	if time.Since(fetched) <= 1*time.Minute {
		return nil, err
	}
	if err := c.refresh(); err != nil {
		log.Printf("Error refreshing JWKS: %v", err)
		return nil, err
	}
	return c.lookup(kid)
}

// jwtAuthMiddleware verifies the session cookie against the club's
// identity provider and attaches the user's email and token claims to
// the request context. Requests without a valid token pass through as
// anonymous; the per-route access checks decide what anonymity means.
func jwtAuthMiddleware(opts Options, next http.Handler) http.Handler {
	cache := newJWKSCache(opts.AuthJWKSURL)

	if opts.AuthJWKSURL != "" {
		if err := cache.refresh(); err != nil {
			log.Printf("Warning: Failed to fetch JWKS on startup: %v", err)
		}
	} else {
		log.Println("Warning: No AuthJWKSURL provided. JWT validation will fail unless MockAuth is used.")
	}

	cookieName := opts.AuthCookieName
	if cookieName == "" {
		cookieName = "vtac_auth"
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(cookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, err := jwt.Parse(cookie.Value, func(token *jwt.Token) (interface{}, error) {
			switch token.Method.(type) {
			case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA, *jwt.SigningMethodEd25519:
			default:
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			kid, ok := token.Header["kid"].(string)
			if !ok {
				return nil, fmt.Errorf("token missing 'kid' header")
			}
			return cache.key(kid)
		})
		if err != nil || !token.Valid {
			if err != nil && opts.Debug {
				log.Printf("JWT Validation failed: %v", err)
			}
			next.ServeHTTP(w, r)
			return
		}

		mapClaims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		claims := claimsFromToken(mapClaims)
		if claims == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, claims.Email)
		ctx = context.WithValue(ctx, authClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
