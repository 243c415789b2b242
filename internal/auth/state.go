package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const stateIssuer = "innovation-records"

// StateTTL bounds how long a user may take on the Google consent screen.
const StateTTL = 10 * time.Minute

// StateService signs and checks the OAuth "state" parameter.
//
// The state is a short-lived HS256 JWT whose subject is a nonce that is also
// stored in an HttpOnly cookie. On callback both must match: the signature
// proves this server issued the state, the cookie proves the same browser
// started the flow.
type StateService struct {
	secret []byte
}

// NewStateService creates a StateService. The secret should be at least 32
// bytes of random data in production.
func NewStateService(secret string) (*StateService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: state secret must be at least 16 characters")
	}
	return &StateService{secret: []byte(secret)}, nil
}

// Generate returns a signed state carrying nonce, valid for StateTTL.
func (s *StateService) Generate(nonce string) (string, error) {
	return s.GenerateWithDuration(nonce, StateTTL)
}

// GenerateWithDuration creates a state with a custom lifetime. Used in tests.
func (s *StateService) GenerateWithDuration(nonce string, d time.Duration) (string, error) {
	now := time.Now()
	c := jwt.RegisteredClaims{
		Subject:   nonce,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Issuer:    stateIssuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing state: %w", err)
	}
	return signed, nil
}

// Validate checks the state's signature, expiry and issuer, and that it
// carries wantNonce.
func (s *StateService) Validate(state, wantNonce string) error {
	if wantNonce == "" {
		return errors.New("auth: missing state nonce")
	}

	token, err := jwt.ParseWithClaims(
		state,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("auth: state expired")
		}
		return fmt.Errorf("auth: invalid state: %w", err)
	}

	c, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return fmt.Errorf("auth: invalid state claims")
	}
	if c.Subject != wantNonce {
		return fmt.Errorf("auth: state nonce mismatch")
	}
	return nil
}
