package jwthandling

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Information an admin token encodes
type AdminClaims struct {
	IsAdmin bool              `json:"is_admin,omitempty"`
	Payload map[string]string `json:"payload,omitempty"`
	jwt.RegisteredClaims
}

func GenerateNewAdminToken(expiresIn time.Duration, subject string, isAdmin bool, payload map[string]string, secretKey string) (tokenString string, err error) {
	if secretKey == "" {
		return "", fmt.Errorf("token sign key must not be empty")
	}
	now := time.Now()
	claims := AdminClaims{
		IsAdmin: isAdmin,
		Payload: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err = token.SignedString([]byte(secretKey))
	return
}

func ValidateAdminToken(tokenString string, secretKey string) (claims *AdminClaims, valid bool, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if token == nil {
		return
	}
	claims, valid = token.Claims.(*AdminClaims)
	valid = valid && token.Valid
	return
}
