package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type SessionClaims struct {
	jwt.RegisteredClaims

	Role string `json:"role"`
	Name string `json:"name,omitempty"`
}

type TokenService struct {
	secret []byte
	issuer string
}

func NewTokenService(secret, issuer string) *TokenService {
	return &TokenService{secret: []byte(secret), issuer: issuer}
}

// Issue signs an HS256 session token for actor. Used by dev tooling and tests;
// production tokens come from the identity provider sharing the same secret.
func (s *TokenService) Issue(actor Actor, ttl time.Duration, now time.Time) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("missing signing secret")
	}
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: string(actor.Role),
		Name: actor.Name,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify validates an HS256 session token and returns the actor it names.
func (s *TokenService) Verify(tokenString string, now time.Time) (Actor, error) {
	if strings.TrimSpace(tokenString) == "" {
		return Actor{}, fmt.Errorf("missing token")
	}
	if len(s.secret) == 0 {
		return Actor{}, fmt.Errorf("missing signing secret")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parser := jwt.NewParser(opts...)

	claims := &SessionClaims{}
	tok, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return Actor{}, err
	}
	if !tok.Valid {
		return Actor{}, fmt.Errorf("invalid token")
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return Actor{}, fmt.Errorf("missing subject in token")
	}
	role, err := ParseRole(claims.Role)
	if err != nil {
		return Actor{}, err
	}

	return Actor{ID: claims.Subject, Role: role, Name: claims.Name}, nil
}
