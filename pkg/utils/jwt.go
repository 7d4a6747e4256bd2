package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	jwtSecret = []byte("secret")
	jwtExpiry = 72 * time.Hour
)

// SetSecret allows injecting the secret from config
func SetSecret(secret string) {
	jwtSecret = []byte(secret)
}

// SetExpiry sets the lifetime of newly issued tokens.
func SetExpiry(d time.Duration) {
	if d > 0 {
		jwtExpiry = d
	}
}

type UserClaims struct {
	UserID       string   `json:"_id"`
	EmailAddress string   `json:"emailAddress"`
	Roles        []string `json:"role"`
	Status       string   `json:"status"`
	jwt.RegisteredClaims
}

// IssuedBefore reports whether the token was issued before t.
func (c *UserClaims) IssuedBefore(t time.Time) bool {
	if c.IssuedAt == nil {
		return true
	}
	return c.IssuedAt.Time.Before(t.Truncate(time.Second))
}

func GenerateToken(userID primitive.ObjectID, email string, roles []string, status string) (string, error) {
	now := time.Now()
	claims := UserClaims{
		UserID:       userID.Hex(),
		EmailAddress: email,
		Roles:        roles,
		Status:       status,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(jwtExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		if _, err := primitive.ObjectIDFromHex(claims.UserID); err != nil {
			return nil, errors.New("token subject is not a user id")
		}
		return claims, nil
	}

	return nil, jwt.ErrTokenSignatureInvalid
}
