// Package auth issues and validates the bearer tokens that carry a caller's
// identity, permissions and stores.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appctx "retailhub/internal/core/context"
)

// Permissions checked by the HTTP layer.
const (
	PermRecordMovements = "inventory:write"
	PermRepairInventory = "inventory:repair"
	PermRecordCredits   = "credits:write"
	PermRepairCredits   = "credits:repair"
	PermManageProducts  = "products:write"
)

type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
}

func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		Secret:         secret,
		Issuer:         "retailhub",
		AccessTokenTTL: 15 * time.Minute,
	}
}

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID      string   `json:"uid"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"perms,omitempty"`
	StoreIDs    []string `json:"stores,omitempty"`
	IsAdmin     bool     `json:"adm,omitempty"`
}

var ErrInvalidToken = errors.New("invalid token")

// JWTValidator signs and validates HS256 tokens.
type JWTValidator struct {
	config JWTConfig
	now    func() time.Time
}

func NewJWTValidator(config JWTConfig) *JWTValidator {
	return &JWTValidator{config: config, now: time.Now}
}

// GenerateAccessToken signs a token for user.
func (v *JWTValidator) GenerateAccessToken(user *appctx.UserContext) (string, time.Time, error) {
	now := v.now()
	expiresAt := now.Add(v.config.AccessTokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.config.Issuer,
			Subject:   user.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:      user.UserID,
		Email:       user.Email,
		Roles:       user.Roles,
		Permissions: user.Permissions,
		StoreIDs:    user.StoreIDs,
		IsAdmin:     user.IsAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(v.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken checks signature, expiry and issuer and returns the caller.
func (v *JWTValidator) ValidateToken(tokenString string) (*appctx.UserContext, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	}
	if v.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return []byte(v.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return &appctx.UserContext{
		UserID:      claims.UserID,
		Email:       claims.Email,
		Roles:       claims.Roles,
		Permissions: claims.Permissions,
		StoreIDs:    claims.StoreIDs,
		IsAdmin:     claims.IsAdmin,
	}, nil
}
