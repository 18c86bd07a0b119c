// Package auth verifies the bearer tokens issued by the authentication
// service and exposes the caller's role to the handlers.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/gartstein/siteledger/internal/payroll/models"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	userContextKey contextKey = "user"
)

// Claims is the verified identity of a caller.
type Claims struct {
	Subject string
	Role    models.Role
	// EmployeeID is set when the account belongs to an employee.
	EmployeeID *int64
}

// IsManager reports whether the caller may change payment status.
func (c *Claims) IsManager() bool {
	return c != nil && c.Role.IsManager()
}

// CanAccessEmployee reports whether the caller may read or write the
// employee's records: managers always, employees only their own.
func (c *Claims) CanAccessEmployee(employeeID int64) bool {
	if c == nil {
		return false
	}
	if c.IsManager() {
		return true
	}
	return c.EmployeeID != nil && *c.EmployeeID == employeeID
}

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, userContextKey, claims)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(userContextKey).(*Claims)
	return claims, ok && claims != nil
}

func GenerateToken(subject string, role models.Role, employeeID *int64, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": string(role),
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
		"iss":  "auth-service",
	}
	if employeeID != nil {
		claims["employee_id"] = *employeeID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// validateToken checks the token signature and returns parsed claims if valid.
func validateToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	claims := &Claims{}
	claims.Subject, _ = mapClaims.GetSubject()
	role, _ := mapClaims["role"].(string)
	switch models.Role(role) {
	case models.RoleAdmin, models.RoleManager, models.RoleEmployee:
		claims.Role = models.Role(role)
	default:
		return nil, fmt.Errorf("invalid token role %q", role)
	}
	// JSON numbers decode as float64.
	if id, ok := mapClaims["employee_id"].(float64); ok {
		employeeID := int64(id)
		claims.EmployeeID = &employeeID
	}
	return claims, nil
}
