package idp

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMissingClaim is returned when a required claim is missing
	ErrMissingClaim = errors.New("missing required claim")
)

// ExtractClaims extracts and parses claims from a JWT token without
// validation. Useful in tests and diagnostics; never trust the result on a
// request path.
func ExtractClaims(tokenString string) (*Identity, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	claims := &Claims{}
	_, _, err := parser.ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	return parseClaims(claims)
}

// parseClaims converts Claims to an Identity with proper type conversions
func parseClaims(claims *Claims) (*Identity, error) {
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid sub UUID: %w", err)
	}

	// BusinessHint is optional, but when present it must be well formed
	var businessHint *uuid.UUID
	if claims.BusinessHint != "" {
		parsed, err := uuid.Parse(claims.BusinessHint)
		if err != nil {
			return nil, fmt.Errorf("invalid businessId UUID: %w", err)
		}
		businessHint = &parsed
	}

	identity := &Identity{
		Subject:       subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		BusinessHint:  businessHint,
	}

	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}

	return identity, nil
}
