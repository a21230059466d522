package crypto

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrTokenConfig  = errors.New("invalid token configuration")
)

// ScopeRefresh marks a token that may only be exchanged for a new access token.
const ScopeRefresh = "refresh"

// reserved claims are always set by Issue and cannot be supplied as extras.
var reservedClaims = []string{"sub", "iss", "aud", "iat", "nbf", "exp", "jti", "scope"}

// TokenConfig holds the process-wide signing settings.
type TokenConfig struct {
	Secret   string
	Issuer   string
	Audience string
	Leeway   time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Claims is the verified content of a token.
type Claims struct {
	Subject   string
	ID        string
	Scope     string
	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time
	Extra     map[string]any
}

// TokenManager issues and verifies HS256 bearer tokens.
type TokenManager struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
	now      func() time.Time
}

// NewTokenManager validates cfg and returns a manager bound to it.
func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if cfg.Secret == "" || cfg.Issuer == "" || cfg.Audience == "" {
		return nil, ErrTokenConfig
	}
	if cfg.Leeway < 0 || cfg.Leeway > 5*time.Minute {
		return nil, ErrTokenConfig
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TokenManager{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		leeway:   cfg.Leeway,
		now:      cfg.Now,
	}, nil
}

// Issue signs a token for subject valid for the given duration. Extra claims
// are copied first so the standard claims always win.
func (m *TokenManager) Issue(subject string, validity time.Duration, scope string, extra map[string]any) (string, error) {
	if subject == "" || validity <= 0 {
		return "", ErrTokenConfig
	}

	now := m.now()
	claims := jwt.MapClaims{}
	for k, v := range extra {
		claims[k] = v
	}
	for _, k := range reservedClaims {
		delete(claims, k)
	}

	claims["sub"] = subject
	claims["iss"] = m.issuer
	claims["aud"] = m.audience
	claims["iat"] = now.Unix()
	claims["nbf"] = now.Unix()
	claims["exp"] = now.Add(validity).Unix()
	claims["jti"] = uuid.NewString()
	if scope != "" {
		claims["scope"] = scope
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks signature, required claims, issuer, audience and the
// [nbf-leeway, exp+leeway] window. Every failure is reported as
// ErrInvalidToken.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(m.leeway),
		jwt.WithTimeFunc(m.now),
	)

	mc := jwt.MapClaims{}
	token, err := parser.ParseWithClaims(tokenString, mc, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claimsFromMap(mc)
}

func claimsFromMap(mc jwt.MapClaims) (*Claims, error) {
	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrInvalidToken
	}
	iat, err := mc.GetIssuedAt()
	if err != nil || iat == nil {
		return nil, ErrInvalidToken
	}
	nbf, err := mc.GetNotBefore()
	if err != nil || nbf == nil {
		return nil, ErrInvalidToken
	}
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrInvalidToken
	}

	c := &Claims{
		Subject:   sub,
		IssuedAt:  iat.Time,
		NotBefore: nbf.Time,
		ExpiresAt: exp.Time,
		Extra:     map[string]any{},
	}
	if jti, ok := mc["jti"].(string); ok {
		c.ID = jti
	}
	if scope, ok := mc["scope"].(string); ok {
		c.Scope = scope
	}

	for k, v := range mc {
		if !slices.Contains(reservedClaims, k) {
			c.Extra[k] = v
		}
	}
	return c, nil
}
