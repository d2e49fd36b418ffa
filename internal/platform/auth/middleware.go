// Package auth authenticates the actors of the claim workflow. Every actor —
// the insurance authority, hospitals, patients, pharmacies, the price oracle
// and the pool funder — presents a bearer token whose claims carry its
// on-ledger address and its roles. The address claim is the caller identity
// used by every authorization gate in the registry.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	addressKey contextKey = "actor_address"
	rolesKey   contextKey = "actor_roles"
)

// Actor roles.
const (
	RoleAuthority = "authority"
	RoleHospital  = "hospital"
	RolePatient   = "patient"
	RolePharmacy  = "pharmacy"
	RoleOracle    = "oracle"
	RoleFunder    = "funder"
)

type Claims struct {
	jwt.RegisteredClaims
	Address string   `json:"address"`
	Roles   []string `json:"roles"`
}

type JWTConfig struct {
	Issuer     string
	Audience   string
	SigningKey []byte
}

// JWTMiddleware validates bearer tokens and stores the actor's address and
// roles on the request context. Tokens are HMAC-signed with a key the
// authority provisions to each actor.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			opts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"HS256"}),
			}
			if cfg.Issuer != "" {
				opts = append(opts, jwt.WithIssuer(cfg.Issuer))
			}
			if cfg.Audience != "" {
				opts = append(opts, jwt.WithAudience(cfg.Audience))
			}

			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				return cfg.SigningKey, nil
			}, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if !common.IsHexAddress(claims.Address) {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has no valid address claim")
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, addressKey, common.HexToAddress(claims.Address))
			ctx = context.WithValue(ctx, rolesKey, claims.Roles)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// DevAuthMiddleware is a permissive middleware for development. Requests
// without a token act as the authority; an X-Dev-Address/X-Dev-Roles header
// pair impersonates any actor.
func DevAuthMiddleware(authority common.Address) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			addr := authority
			roles := []string{RoleAuthority}

			if h := c.Request().Header.Get("X-Dev-Address"); common.IsHexAddress(h) {
				addr = common.HexToAddress(h)
			}
			if h := c.Request().Header.Get("X-Dev-Roles"); h != "" {
				roles = strings.Split(h, ",")
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, addressKey, addr)
			ctx = context.WithValue(ctx, rolesKey, roles)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// AddressFromContext returns the authenticated actor's address, or the zero
// address when unauthenticated.
func AddressFromContext(ctx context.Context) common.Address {
	addr, _ := ctx.Value(addressKey).(common.Address)
	return addr
}

// RolesFromContext returns the authenticated actor's roles.
func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(rolesKey).([]string)
	return roles
}
