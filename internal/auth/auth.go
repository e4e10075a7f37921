// Package auth issues and verifies the JWTs that identify players across
// connections. Identity continuity is what makes reconnects reclaim a seat.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pfcuttle/cuttle/internal/models"
)

// TokenLifetime bounds issued tokens.
const TokenLifetime = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

// Verifier signs and checks HS256 tokens carrying a user identity.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// CreateToken issues a signed token for a user.
func (v *Verifier) CreateToken(u *models.User) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenLifetime)),
		},
	})
	return tok.SignedString(v.secret)
}

// Verify parses a token and returns the identity it carries.
func (v *Verifier) Verify(tokenString string) (*models.User, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &models.User{ID: id, Username: c.Username}, nil
}
