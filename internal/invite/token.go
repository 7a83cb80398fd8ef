package invite

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Audience is the audience claim carried by invitation tokens.
const Audience = "famsplit-invite"

// Claims are the claims signed into an invitation token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Signer signs and verifies invitation tokens with an HMAC secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a signer for secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Sign returns a token binding email, issued at issuedAt. Each token gets
// a random ID so two invitations for the same email never collide.
func (s *Signer) Sign(email string, issuedAt time.Time) (string, error) {
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.New().String(),
			Audience: jwt.ClaimStrings{Audience},
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign invitation: %w", err)
	}
	return token, nil
}

// Verify checks the signature and audience and returns the claims. It does
// not check age; callers compare IssuedAt against their own limit.
func (s *Signer) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{},
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(Audience),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.IssuedAt == nil || claims.Email == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// age returns how long ago the token was issued.
func (c *Claims) age(now time.Time) time.Duration {
	return now.Sub(c.IssuedAt.Time)
}
