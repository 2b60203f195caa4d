package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type Role string

const (
	RoleOwner Role = "owner"
	RoleGuest Role = "guest"

	userContextKey = "quillmate.user"
	issuer         = "quillmate"
)

// UserContext is the caller of a request. Requests without a bearer token are guests.
type UserContext struct {
	ID   string
	Name string
	Role Role
}

func (u UserContext) IsOwner() bool {
	return u.Role == RoleOwner
}

// Claims is the payload of a quillmate access token.
type Claims struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 access token for a user.
func IssueToken(secret, userID, name string, role Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "failed to sign access token")
	}
	return signed, nil
}

// ParseToken verifies an access token and returns its claims.
func ParseToken(secret, token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, errors.Wrap(err, "invalid access token")
	}
	if claims.Role != RoleOwner && claims.Role != RoleGuest {
		return nil, errors.Errorf("invalid role %q", claims.Role)
	}
	return claims, nil
}

// Auth resolves the caller from the Authorization header. A missing header is a guest;
// a present but invalid token is rejected.
func Auth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := UserContext{Role: RoleGuest}

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header != "" {
				token, ok := strings.CutPrefix(header, "Bearer ")
				if !ok {
					return echo.NewHTTPError(http.StatusUnauthorized, "authorization header must be a bearer token")
				}
				claims, err := ParseToken(secret, strings.TrimSpace(token))
				if err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
				}
				user = UserContext{ID: claims.Subject, Name: claims.Name, Role: claims.Role}
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// RequireOwner rejects callers that are not the blog owner.
func RequireOwner(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !GetUser(c).IsOwner() {
			return echo.NewHTTPError(http.StatusForbidden, "owner access required")
		}
		return next(c)
	}
}

// GetUser returns the caller resolved by Auth, or a guest.
func GetUser(c echo.Context) UserContext {
	if u, ok := c.Get(userContextKey).(UserContext); ok {
		return u
	}
	return UserContext{Role: RoleGuest}
}

// RateLimit limits requests per caller. Guests are keyed by remote address.
func RateLimit(rl *RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := GetUser(c).ID
			if key == "" {
				key = "ip:" + c.RealIP()
			}
			if !rl.Allow(key) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
