// Package auth verifies bearer tokens for the authenticated endpoints.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeAccess is the only token type accepted by Verify.
const TokenTypeAccess = "access"

// Defaults.
const (
	AccessTokenExpiry = 15 * time.Minute
	DefaultLeeway     = 30 * time.Second
	DefaultIssuer     = "collabmatch"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenType = errors.New("token is not an access token")
	ErrEmptySubject   = errors.New("token subject cannot be empty")
	ErrNoSecret       = errors.New("signing secret is empty")
)

// Claims carries the token subject (the user ID) and token type.
type Claims struct {
	jwt.RegisteredClaims
	Type string `json:"typ"`
}

// Option configures a Service.
type Option func(*Service)

// WithPreviousSecret accepts tokens signed with an older secret during
// rotation. New tokens are always signed with the current secret.
func WithPreviousSecret(secret string) Option {
	return func(s *Service) {
		if secret != "" {
			s.secrets = append(s.secrets, []byte(secret))
		}
	}
}

// WithLeeway sets the clock skew tolerated on exp, nbf and iat.
func WithLeeway(d time.Duration) Option {
	return func(s *Service) { s.leeway = d }
}

// WithIssuer sets the expected and issued iss claim.
func WithIssuer(iss string) Option {
	return func(s *Service) { s.issuer = iss }
}

// Service issues and verifies HS256 access tokens.
type Service struct {
	secrets [][]byte
	leeway  time.Duration
	issuer  string
	now     func() time.Time
}

// NewService creates a Service signing with secret.
func NewService(secret string, opts ...Option) (*Service, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	s := &Service{
		secrets: [][]byte{[]byte(secret)},
		leeway:  DefaultLeeway,
		issuer:  DefaultIssuer,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IssueAccessToken signs an access token for userID valid for ttl, or
// AccessTokenExpiry when ttl is not positive.
func (s *Service) IssueAccessToken(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", ErrEmptySubject
	}
	if ttl <= 0 {
		ttl = AccessTokenExpiry
	}
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Type: TokenTypeAccess,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secrets[0])
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses an access token and returns its claims. Each configured
// secret is tried in order.
func (s *Service) Verify(token string) (*Claims, error) {
	var lastErr error
	for _, secret := range s.secrets {
		claims, err := s.parse(token, secret)
		if err == nil {
			return claims, nil
		}
		lastErr = err
		// Only a bad signature is worth retrying with the next secret.
		if !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			break
		}
	}

	switch {
	case errors.Is(lastErr, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case errors.Is(lastErr, ErrWrongTokenType), errors.Is(lastErr, ErrEmptySubject):
		return nil, lastErr
	default:
		return nil, ErrInvalidToken
	}
}

func (s *Service) parse(token string, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{},
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(s.leeway),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	if claims.Subject == "" {
		return nil, ErrEmptySubject
	}
	return claims, nil
}
