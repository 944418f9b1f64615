package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenTTL is fixed policy: every issued token lives for seven days.
const TokenTTL = 7 * 24 * time.Hour

// ErrInvalidToken is the only error Verify returns. Callers cannot tell a bad
// signature from an expired or malformed token.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the token payload. ExpiresAt and IssuedAt are epoch milliseconds.
type Claims struct {
	Subject   string `json:"sub"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar,omitempty"`
	Role      string `json:"role"`
	IsAdmin   bool   `json:"is_admin"`
	ExpiresAt int64  `json:"exp"`
	IssuedAt  int64  `json:"iat"`
	ID        string `json:"jti"`
}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.ExpiresAt == 0 {
		return nil, nil
	}
	return &jwt.NumericDate{Time: time.UnixMilli(c.ExpiresAt)}, nil
}

func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	if c.IssuedAt == 0 {
		return nil, nil
	}
	return &jwt.NumericDate{Time: time.UnixMilli(c.IssuedAt)}, nil
}

func (c Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c Claims) GetIssuer() (string, error)              { return "", nil }
func (c Claims) GetSubject() (string, error)             { return c.Subject, nil }
func (c Claims) GetAudience() (jwt.ClaimStrings, error)  { return nil, nil }

func (c Claims) ExpiresAtTime() time.Time { return time.UnixMilli(c.ExpiresAt).UTC() }

type TokenAuthority struct {
	secret []byte
	now    func() time.Time
}

func NewTokenAuthority(secret string) *TokenAuthority {
	return &TokenAuthority{secret: []byte(secret), now: time.Now}
}

// WithClock replaces the time source. Used by tests and the CLI.
func (a *TokenAuthority) WithClock(now func() time.Time) *TokenAuthority {
	a.now = now
	return a
}

func (a *TokenAuthority) Issue(claims Claims) (string, error) {
	now := a.now()
	claims.IssuedAt = now.UnixMilli()
	claims.ExpiresAt = now.Add(TokenTTL).UnixMilli()
	claims.ID = uuid.NewString()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *TokenAuthority) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		// exp is epoch milliseconds and a token is valid through its exp instant.
		jwt.WithTimeFunc(func() time.Time { return a.now().Truncate(time.Millisecond) }),
		jwt.WithLeeway(time.Millisecond),
	)
	if err != nil || !tok.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
