package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
	RoleGuest Role = "guest"
)

// Principal is the resolved caller of an authenticated request.
type Principal struct {
	UserID     string
	BusinessID string
	Role       Role
}

// CanWrite reports whether the principal may mutate calendars and bookings.
func (p Principal) CanWrite() bool {
	return p.Role == RoleOwner || p.Role == RoleAdmin
}

func (p Principal) requireWrite() error {
	if !p.CanWrite() {
		return fmt.Errorf("%w: role %q is read-only", ErrForbidden, p.Role)
	}
	return nil
}

// Claims are the access token claims issued by the identity service.
type Claims struct {
	BusinessID string `json:"business_id"`
	Role       Role   `json:"role"`
	jwt.RegisteredClaims
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
)

const principalKey = "principal"

// Authenticator verifies HS256 bearer tokens.
type Authenticator struct {
	Secret []byte
}

func (a Authenticator) Parse(tokenStr string) (Principal, error) {
	if len(a.Secret) == 0 {
		return Principal{}, ErrInvalidToken
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenMalformed
		}
		return a.Secret, nil
	}, jwt.WithLeeway(5*time.Second), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	switch claims.Role {
	case RoleOwner, RoleAdmin, RoleGuest:
	default:
		return Principal{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	if claims.BusinessID == "" || claims.Subject == "" {
		return Principal{}, fmt.Errorf("%w: missing subject or business", ErrInvalidToken)
	}
	return Principal{UserID: claims.Subject, BusinessID: claims.BusinessID, Role: claims.Role}, nil
}

// Sign issues a token for p; used by tests and the token CLI.
func (a Authenticator) Sign(p Principal, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		BusinessID: p.BusinessID,
		Role:       p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
}

// Middleware resolves the bearer token into a Principal on the gin context.
func (a Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			abortWithError(c, ErrUnauthorized)
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortWithError(c, ErrUnauthorized)
			return
		}
		p, err := a.Parse(parts[1])
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

func principal(c *gin.Context) Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(Principal); ok {
			return p
		}
	}
	return Principal{Role: RoleGuest}
}
