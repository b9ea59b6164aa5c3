package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/fathima-sithara/konga-enrollment/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")
)

type CustomClaims struct {
	UserID     string          `json:"sub"`
	Email      string          `json:"email"`
	Role       models.UserRole `json:"role"`
	EnrolleeID string          `json:"enrollee_id,omitempty"`
	jwt.RegisteredClaims
}

func (c *CustomClaims) Caller() models.Caller {
	return models.Caller{
		AccountID:  c.UserID,
		Email:      c.Email,
		Role:       c.Role,
		EnrolleeID: c.EnrolleeID,
	}
}

type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewJWTManager(secret, issuer string, ttl time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// Generate signs an HS256 token for the account. The returned claims carry
// the token id and expiry needed for revocation.
func (j *JWTManager) Generate(a *models.Account) (string, *CustomClaims, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID: a.ID.Hex(),
		Email:  a.Email,
		Role:   a.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    j.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if a.EnrolleeID != nil {
		claims.EnrolleeID = a.EnrolleeID.Hex()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

func (j *JWTManager) GetClaims(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	}, jwt.WithIssuer(j.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
