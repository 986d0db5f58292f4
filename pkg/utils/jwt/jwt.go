package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"apexmind_backend/pkg/config"
)

// Claims carry the account id the HTTP layer passes to the resolver.
type Claims struct {
	AccountID uint   `json:"account_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	jwt.RegisteredClaims
}

var (
	jwtSecret = []byte("your-secret-key")
	tokenTTL  = 24 * time.Hour
)

func Init(cfg config.JWTConfig) {
	if cfg.Secret != "" {
		jwtSecret = []byte(cfg.Secret)
	}
	if cfg.TTL > 0 {
		tokenTTL = cfg.TTL
	}
}

func GenerateToken(accountID uint, email, name string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		AccountID: accountID,
		Email:     email,
		Name:      name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(accountID),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})

	return token.SignedString(jwtSecret)
}

func ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.AccountID == 0 {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
