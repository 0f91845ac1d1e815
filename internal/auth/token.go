// Package auth verifies Google sign-in tokens and issues API bearer tokens.
package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"

	"github.com/verte-zerg/franklin/internal/model"
)

// ErrInvalidToken is returned for bearer tokens that are malformed, forged or expired.
var ErrInvalidToken = errors.New("invalid token")

// DefaultTokenTTL is the lifetime of issued bearer tokens.
const DefaultTokenTTL = 7 * 24 * time.Hour

const tokenIssuer = "franklin"

// Claims identify the caller of an API request.
type Claims struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	ExpiresAt time.Time `json:"-"`
}

// Issuer signs and parses HS256 bearer tokens.
type Issuer struct {
	key    []byte
	signer jose.Signer
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer builds an Issuer from a shared secret. A ttl <= 0 means DefaultTokenTTL.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("jwt secret is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	// HS256 wants a key as long as the hash.
	sum := sha256.Sum256([]byte(secret))
	key := sum[:]
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}
	return &Issuer{key: key, signer: signer, ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for user.
func (i *Issuer) Issue(user model.User) (string, error) {
	now := i.now()
	std := jwt.Claims{
		Issuer:    tokenIssuer,
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Expiry:    jwt.NewNumericDate(now.Add(i.ttl)),
	}
	custom := Claims{UserID: user.ID, Email: user.Email, IsAdmin: user.IsAdmin}
	raw, err := jwt.Signed(i.signer).Claims(std).Claims(custom).Serialize()
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return raw, nil
}

// Parse validates the signature and lifetime of raw and returns its claims.
func (i *Issuer) Parse(raw string) (Claims, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var std jwt.Claims
	var custom Claims
	if err := tok.Claims(i.key, &std, &custom); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if err := std.ValidateWithLeeway(jwt.Expected{Issuer: tokenIssuer, Time: i.now()}, 0); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if custom.UserID == "" || custom.UserID != std.Subject {
		return Claims{}, fmt.Errorf("%w: subject mismatch", ErrInvalidToken)
	}
	if std.Expiry != nil {
		custom.ExpiresAt = std.Expiry.Time()
	}
	return custom, nil
}
