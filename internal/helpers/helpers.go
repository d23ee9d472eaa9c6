package helpers

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

func StringTrim(s string) string {
	return strings.TrimSpace(s)
}

// StripWhitespace removes every whitespace rune, including ones inside the string.
func StripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// NewOwnerToken returns a random capability token for deleting a review.
func NewOwnerToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate owner token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// TokenMatches compares a presented token against a stored hash in constant time.
func TokenMatches(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(hash)) == 1
}

// AdminVerifier checks admin bearer tokens, either against a shared HS256
// secret or against keys published at a JWKS URL.
type AdminVerifier struct {
	secret []byte
	jwks   *keyfunc.JWKS
}

func NewAdminVerifier(ctx context.Context, secret, jwksURL string) (*AdminVerifier, error) {
	v := &AdminVerifier{secret: []byte(secret)}
	if jwksURL == "" {
		if secret == "" {
			return nil, errors.New("admin verifier needs a secret or a JWKS URL")
		}
		return v, nil
	}

	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS from %s: %w", jwksURL, err)
	}
	v.jwks = jwks
	return v, nil
}

func (v *AdminVerifier) Verify(tokenStr string) (*AdminClaims, error) {
	claims := &AdminClaims{}

	var (
		token *jwt.Token
		err   error
	)
	if v.jwks != nil {
		token, err = jwt.ParseWithClaims(tokenStr, claims, v.jwks.Keyfunc)
	} else {
		token, err = jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
			return v.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	}
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	return claims, nil
}

func (v *AdminVerifier) Close() {
	if v != nil && v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// MintAdminToken signs an HS256 admin token; used by operators via reviewctl.
func MintAdminToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("secret is required")
	}
	now := time.Now()
	claims := AdminClaims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
