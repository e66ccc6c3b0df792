package security

import (
	"errors"
	"fmt"
	"studyhub/internal/domain/model"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is also the cookie jwtauth.Verifier reads tokens from.
const CookieName = "jwt"

type TokenManager struct {
	auth *jwtauth.JWTAuth
	ttl  time.Duration
	now  func() time.Time
}

func NewTokenManager(secret []byte, ttl time.Duration) *TokenManager {
	return &TokenManager{
		auth: jwtauth.New("HS256", secret, nil),
		ttl:  ttl,
		now:  time.Now,
	}
}

// JWTAuth is handed to jwtauth.Verifier in the router.
func (m *TokenManager) JWTAuth() *jwtauth.JWTAuth {
	return m.auth
}

type IssuedToken struct {
	Token     string    `json:"token"`
	ID        string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (m *TokenManager) GenerateToken(p model.Principal) (*IssuedToken, error) {
	now := m.now()
	issued := &IssuedToken{ID: uuid.NewString(), ExpiresAt: now.Add(m.ttl)}
	claims := jwt.MapClaims{
		"sub":     model.NormalizeIdentity(p.Email),
		"name":    p.Name,
		"picture": p.PhotoURL,
		"jti":     issued.ID,
		"iat":     now.Unix(),
		"exp":     issued.ExpiresAt.Unix(),
	}
	_, tokenString, err := m.auth.Encode(claims)
	if err != nil {
		return nil, fmt.Errorf("encode token: %w", err)
	}
	issued.Token = tokenString
	return issued, nil
}

// PrincipalFromClaims rebuilds the caller from verified claims. The identity
// is canonicalised again so a hand-made token cannot smuggle in casing.
func PrincipalFromClaims(claims map[string]interface{}) (model.Principal, error) {
	sub, ok := claims["sub"].(string)
	if !ok || model.NormalizeIdentity(sub) == "" {
		return model.Principal{}, errors.New("sub claim is missing or not a string")
	}
	name, _ := claims["name"].(string)
	picture, _ := claims["picture"].(string)
	return model.Principal{Email: model.NormalizeIdentity(sub), Name: name, PhotoURL: picture}, nil
}

// TokenIDFromClaims returns the jti and expiry used for revocation.
func TokenIDFromClaims(claims map[string]interface{}) (string, time.Time, error) {
	jti, ok := claims["jti"].(string)
	if !ok || jti == "" {
		return "", time.Time{}, errors.New("jti claim is missing or not a string")
	}
	var exp time.Time
	switch v := claims["exp"].(type) {
	case time.Time:
		exp = v
	case float64:
		exp = time.Unix(int64(v), 0)
	case int64:
		exp = time.Unix(v, 0)
	default:
		return "", time.Time{}, errors.New("exp claim is missing")
	}
	return jti, exp, nil
}
