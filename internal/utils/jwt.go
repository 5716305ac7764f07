package utils // package utils provides credential hashing and session token issuing

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/lang-learner-backend/internal/model"
)

// TokenType tags a signed token as an access or a refresh token. Both carry
// the same claims and differ only in expiry.
type TokenType string

const (
	TokenAccess  TokenType = "ACCESS"
	TokenRefresh TokenType = "REFRESH"
)

var (
	// ErrEmptySecret is returned by NewTokenIssuer when no signing key is set.
	ErrEmptySecret = errors.New("signing key is empty")
	// ErrTokenSigning wraps a failure to sign claims.
	ErrTokenSigning = errors.New("token signing failed")
	// ErrInvalidToken wraps every parse or validation failure.
	ErrInvalidToken = errors.New("invalid token")
)

// SessionClaims is the payload of both tokens in a pair.
type SessionClaims struct {
	AccountID   int64        `json:"account_id"`
	Locale      model.Locale `json:"language"`
	DisplayName string       `json:"name"`
	Type        TokenType    `json:"token_type"`
	jwt.RegisteredClaims
}

// Account rebuilds the account snapshot the claims were minted from. Login
// is not part of the claims.
func (c *SessionClaims) Account() model.AuthenticatedAccount {
	return model.AuthenticatedAccount{
		ID:          c.AccountID,
		DisplayName: c.DisplayName,
		Locale:      c.Locale,
	}
}

// TokenPair holds the two signed strings returned at login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

// TokenIssuer signs and verifies HS256 session tokens with a shared secret.
// It holds no mutable state and is safe for concurrent use.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer validates the key material and lifetimes once and returns
// an issuer. A probe token is signed so that a broken key surfaces here at
// startup rather than on the first login.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, fmt.Errorf("token lifetimes must be positive (access=%s refresh=%s)", accessTTL, refreshTTL)
	}
	if accessTTL >= refreshTTL {
		return nil, fmt.Errorf("access lifetime %s must be shorter than refresh lifetime %s", accessTTL, refreshTTL)
	}
	t := &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	if _, _, err := t.build(model.AuthenticatedAccount{Locale: model.LocaleVN}, TokenAccess, t.now()); err != nil {
		return nil, err
	}
	return t, nil
}

// Issue builds both tokens from one snapshot of acc using the same clock
// reading, so the refresh token always expires strictly after the access one.
func (t *TokenIssuer) Issue(acc model.AuthenticatedAccount) (TokenPair, error) {
	now := t.now()
	access, accessExp, err := t.build(acc, TokenAccess, now)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := t.build(acc, TokenRefresh, now)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// build signs the claims of acc with the lifetime belonging to typ.
func (t *TokenIssuer) build(acc model.AuthenticatedAccount, typ TokenType, now time.Time) (string, time.Time, error) {
	ttl := t.accessTTL
	if typ == TokenRefresh {
		ttl = t.refreshTTL
	}
	exp := jwt.NewNumericDate(now.Add(ttl))
	claims := SessionClaims{
		AccountID:   acc.ID,
		Locale:      acc.Locale,
		DisplayName: acc.DisplayName,
		Type:        typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(acc.ID, 10),
			ExpiresAt: exp,
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %s token: %w", ErrTokenSigning, typ, err)
	}
	return signed, exp.Time, nil
}

// Parse verifies the signature, algorithm, expiry and type of raw and
// returns its claims. Any failure is reported as ErrInvalidToken.
func (t *TokenIssuer) Parse(raw string, want TokenType) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != want {
		return nil, fmt.Errorf("%w: got %q token, want %q", ErrInvalidToken, claims.Type, want)
	}
	if !claims.Locale.Valid() {
		return nil, fmt.Errorf("%w: locale %q", ErrInvalidToken, claims.Locale)
	}
	return claims, nil
}

// AccessTTL reports the configured access token lifetime.
func (t *TokenIssuer) AccessTTL() time.Duration { return t.accessTTL }

// RefreshTTL reports the configured refresh token lifetime.
func (t *TokenIssuer) RefreshTTL() time.Duration { return t.refreshTTL }
