// Package auth signs and parses session tokens.
package auth

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/comicvault/internal/common"
	"github.com/dmitrijs2005/comicvault/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims: стандартные утверждения плюс имя пользователя; ID сессии
// хранится в jti.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"usr"`
}

// GenerateToken signs an HS256 token for s that expires with the session.
func GenerateToken(s models.Session, secretKey []byte) (string, error) {
	if !s.IsBound() {
		return "", fmt.Errorf("cannot sign an anonymous session")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Subject:   s.Username,
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
		Username: s.Username,
	})

	return token.SignedString(secretKey)
}

// ParseToken validates the signature and expiry and returns the session the
// token names. Any failure is common.ErrTokenInvalid.
func ParseToken(tokenString string, secretKey []byte) (models.Session, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Anonymous, fmt.Errorf("%w: expired", common.ErrTokenInvalid)
		}
		return models.Anonymous, common.ErrTokenInvalid
	}
	if !token.Valid || claims.ID == "" || claims.Username == "" {
		return models.Anonymous, common.ErrTokenInvalid
	}

	return models.Session{
		ID:        claims.ID,
		Username:  claims.Username,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
