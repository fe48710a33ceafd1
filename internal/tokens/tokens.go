package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	accessType  = "access"
	refreshType = "refresh"
)

var (
	ErrMissingSecret  = errors.New("signing secret is not configured")
	ErrWrongTokenType = errors.New("wrong token type")
)

type AccessClaims struct {
	AdminID string `json:"adminId"`
	Role    string `json:"role"`
	Type    string `json:"typ"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	AdminID string `json:"adminId"`
	Type    string `json:"typ"`
	jwt.RegisteredClaims
}

func SignAccessToken(adminID, role string, now, exp time.Time, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", ErrMissingSecret
	}
	claims := AccessClaims{
		AdminID: adminID,
		Role:    role,
		Type:    accessType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// SignRefreshToken embeds a fresh jti so two tokens issued within the same
// second for the same admin never share a signature.
func SignRefreshToken(adminID string, now, exp time.Time, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", ErrMissingSecret
	}
	claims := RefreshClaims{
		AdminID: adminID,
		Type:    refreshType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func AccessClaimsFromToken(tokenStr string, secret []byte, opts ...jwt.ParserOption) (*AccessClaims, error) {
	var claims AccessClaims
	if err := parse(tokenStr, &claims, secret, opts...); err != nil {
		return nil, err
	}
	if claims.Type != accessType {
		return nil, ErrWrongTokenType
	}
	if claims.AdminID == "" {
		claims.AdminID = claims.Subject
	}
	return &claims, nil
}

func RefreshClaimsFromToken(tokenStr string, secret []byte, opts ...jwt.ParserOption) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := parse(tokenStr, &claims, secret, opts...); err != nil {
		return nil, err
	}
	if claims.Type != refreshType {
		return nil, ErrWrongTokenType
	}
	if claims.AdminID == "" {
		claims.AdminID = claims.Subject
	}
	return &claims, nil
}

// ExpiryUnverified reads exp without checking the signature. Clients use it to
// decide whether a held token is worth sending.
func ExpiryUnverified(tokenStr string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func WithClock(now func() time.Time) jwt.ParserOption {
	return jwt.WithTimeFunc(now)
}

func parse(tokenStr string, claims jwt.Claims, secret []byte, opts ...jwt.ParserOption) error {
	if len(secret) == 0 {
		return ErrMissingSecret
	}
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return err
	}
	if !tkn.Valid {
		return fmt.Errorf("%w: token is not valid", jwt.ErrTokenInvalidClaims)
	}
	return nil
}
