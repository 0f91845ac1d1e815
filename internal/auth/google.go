package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"
)

// ErrInvalidGoogleToken is returned when a Google ID token fails verification.
var ErrInvalidGoogleToken = errors.New("invalid Google token")

// GoogleIdentity is the verified profile carried by a Google ID token.
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// GoogleVerifier verifies Google sign-in ID tokens.
type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (GoogleIdentity, error)
}

// IDTokenVerifier checks ID tokens against Google's public keys for one client id.
type IDTokenVerifier struct {
	clientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

// NewIDTokenVerifier returns a verifier for the given OAuth client id.
func NewIDTokenVerifier(clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{clientID: clientID, validate: idtoken.Validate}
}

// Verify validates token and extracts the caller's profile.
func (v *IDTokenVerifier) Verify(ctx context.Context, token string) (GoogleIdentity, error) {
	if v.clientID == "" {
		return GoogleIdentity{}, fmt.Errorf("%w: google client id is not configured", ErrInvalidGoogleToken)
	}
	payload, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("%w: %v", ErrInvalidGoogleToken, err)
	}
	return identityFromPayload(payload)
}

func identityFromPayload(payload *idtoken.Payload) (GoogleIdentity, error) {
	id := GoogleIdentity{
		Subject: payload.Subject,
		Email:   strings.ToLower(strings.TrimSpace(claimString(payload.Claims, "email"))),
		Name:    claimString(payload.Claims, "name"),
		Picture: claimString(payload.Claims, "picture"),
	}
	if id.Email == "" {
		return GoogleIdentity{}, fmt.Errorf("%w: token has no email", ErrInvalidGoogleToken)
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return GoogleIdentity{}, fmt.Errorf("%w: email is not verified", ErrInvalidGoogleToken)
	}
	return id, nil
}

func claimString(claims map[string]interface{}, key string) string {
	v, _ := claims[key].(string)
	return v
}
