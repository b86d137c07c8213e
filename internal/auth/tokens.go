package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const DefaultTokenTTL = time.Hour

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
)

// Claims: то, что кладём в bearer-токен.
type Claims struct {
	AccountID string `json:"id"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// Identity: проверенная личность из токена.
type Identity struct {
	AccountID string
	Email     string
}

type TokenIssuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

type TokenOption func(*TokenIssuer)

// WithClock подменяет часы (для тестов на истечение срока).
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenIssuer) { t.now = now }
}

func WithTTL(ttl time.Duration) TokenOption {
	return func(t *TokenIssuer) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// NewTokenIssuer: ключ читается один раз при старте, ротации нет.
func NewTokenIssuer(secret string, opts ...TokenOption) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	t := &TokenIssuer{key: []byte(secret), ttl: DefaultTokenTTL, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

func (t *TokenIssuer) Issue(accountID, email string) (string, error) {
	now := t.now()
	claims := &Claims{
		AccountID: accountID,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return s, nil
}

// Validate проверяет подпись и срок. Чужой ключ, не-HMAC алгоритм и мусор дают
// ErrTokenMalformed, истёкший токен даёт ErrTokenExpired.
func (t *TokenIssuer) Validate(token string) (*Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.Wrap(ErrTokenExpired, err.Error())
		}
		return nil, errors.Wrap(ErrTokenMalformed, err.Error())
	}
	if !parsed.Valid || claims.AccountID == "" {
		return nil, ErrTokenMalformed
	}
	return &Identity{AccountID: claims.AccountID, Email: claims.Email}, nil
}
