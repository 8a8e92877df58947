package utils

import (
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type StateClaims struct {
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

// GenerateStateToken mints the signed OAuth state parameter used to guard
// the LinkedIn login callback against CSRF.
func GenerateStateToken(secretKey string, ttl time.Duration) (string, error) {
	nonce, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	claims := StateClaims{
		Nonce: nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "linkpost",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(secretKey))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return signedToken, nil
}

func ValidateStateToken(secretKey, tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &StateClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	if _, ok := token.Claims.(*StateClaims); !ok || !token.Valid {
		return errors.New("invalid state token")
	}
	return nil
}
