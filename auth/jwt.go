package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload issued by the backend's login endpoint.
type Claims struct {
	UserID   string `json:"user_id,omitempty"`
	Role     string `json:"role,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// KeyProvider retrieves signing keys for JWT validation.
type KeyProvider interface {
	// GetKey returns the key for the given key ID.
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider provides a static signing key.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider creates a static key provider.
func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key.
func (p *StaticKeyProvider) GetKey(_ context.Context, _ string) (any, error) {
	return p.key, nil
}

// NewToken signs claims with HS256.
func NewToken(key []byte, claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// TokenParser turns a bearer token into an Identity.
//
// Without a KeyProvider the signature is not checked: the client only reads
// its own token to learn who it is, and the backend remains the authority.
// Expiry is enforced either way.
type TokenParser struct {
	keys KeyProvider
	now  func() time.Time
}

// NewTokenParser creates a parser. keys may be nil; now defaults to time.Now.
func NewTokenParser(keys KeyProvider, now func() time.Time) *TokenParser {
	if now == nil {
		now = time.Now
	}
	return &TokenParser{keys: keys, now: now}
}

// Parse validates raw (with or without a "Bearer " prefix) and returns the
// identity it describes.
func (p *TokenParser) Parse(ctx context.Context, raw string) (*Identity, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "Bearer "))
	if raw == "" {
		return nil, ErrTokenMalformed
	}

	claims := &Claims{}
	var err error
	if p.keys == nil {
		_, _, err = jwt.NewParser().ParseUnverified(raw, claims)
	} else {
		_, err = jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
			kid, _ := token.Header["kid"].(string)
			return p.keys.GetKey(ctx, kid)
		},
			jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
			jwt.WithTimeFunc(p.now),
		)
	}
	if err != nil {
		return nil, classifyJWTError(err)
	}

	id := buildIdentity(claims)
	if id.IsExpired(p.now()) {
		return nil, ErrTokenExpired
	}

	raws := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, raws); err == nil {
		id.Claims = raws
	}
	return id, nil
}

func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}

func buildIdentity(claims *Claims) *Identity {
	id := &Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     Role(strings.ToLower(claims.Role)),
	}
	if id.UserID == "" {
		id.UserID = claims.Subject
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	return id
}

// Ensure StaticKeyProvider implements KeyProvider
var _ KeyProvider = (*StaticKeyProvider)(nil)
