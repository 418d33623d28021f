// Package tokens issues and validates the signed magic link tokens that
// authenticate declarants by email address.
package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "parite/pkg/domain-errors"
)

const defaultTTL = time.Hour

type Claims struct {
	jwt.RegisteredClaims
}

// Service signs and verifies email-bearing tokens with HS256.
type Service struct {
	signingKey []byte
	ttl        time.Duration
}

func New(signingKey string) *Service {
	return &Service{signingKey: []byte(signingKey), ttl: defaultTTL}
}

// Create issues a token whose subject is the declarant email.
func (s *Service) Create(email string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "sign token")
	}
	return signed, nil
}

// Read validates a token and returns the email it carries.
func (s *Service) Read(tokenString string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", dErrors.New(dErrors.CodeForbidden, "invalid or expired token")
	}
	return claims.Subject, nil
}
