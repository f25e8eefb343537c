// Package auth provides bearer-token issuance and the authentication and
// role middleware used by every protected route.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/igen-labs/cxo-survey/models"
)

// Claims is the payload carried inside an access token: the employee id,
// role and tenant scope. Handlers never accept an org id from the client;
// it always comes from here.
type Claims struct {
	EmployeeID uint        `json:"id"`
	Role       models.Role `json:"role"`
	OrgID      *uint       `json:"orgId,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken signs a new access token for the employee.
func GenerateToken(emp *models.Employee, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		EmployeeID: emp.ID,
		Role:       emp.Role,
		OrgID:      emp.OrgID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a token string and returns its claims. Expired or
// foreign-signed tokens fail.
func ParseToken(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
