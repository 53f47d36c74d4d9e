// Package token mints and verifies the application's own session tokens.
// Provider tokens never leave the server; after a successful callback the
// user is identified by an access/refresh pair signed with a local secret.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	autherrors "github.com/lukaszraczylo/authflow/internal/errors"
)

// Token uses, carried in the token_use claim.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"

	claimTokenUse = "token_use"

	// MinSecretLength is the minimum HMAC secret size in bytes.
	MinSecretLength = 32

	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// reservedClaims are owned by the issuer and dropped from payloads.
var reservedClaims = []string{"iat", "exp", "nbf", "jti", "iss", claimTokenUse}

// Config configures an Issuer.
type Config struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// Pair is a freshly minted access/refresh token pair.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer validates cfg and creates an issuer. The access TTL must be
// shorter than the refresh TTL.
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes long", MinSecretLength)
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.AccessTTL < 0 || cfg.AccessTTL >= cfg.RefreshTTL {
		return nil, fmt.Errorf("access token TTL (%s) must be positive and shorter than refresh token TTL (%s)", cfg.AccessTTL, cfg.RefreshTTL)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Issuer{
		secret:     append([]byte(nil), cfg.Secret...),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
	}, nil
}

// AccessTTL returns the access token lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL returns the refresh token lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// Mint signs a new access and refresh token carrying payload.
func (i *Issuer) Mint(payload map[string]any) (*Pair, error) {
	now := i.now()

	access, accessExp, err := i.sign(payload, UseAccess, now, i.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := i.sign(payload, UseRefresh, now, i.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh verifies a refresh token and signs a new access token with the
// same payload. The refresh token itself is never reissued.
func (i *Issuer) Refresh(refreshToken string) (string, error) {
	claims, err := i.parse(refreshToken, UseRefresh)
	if err != nil {
		return "", autherrors.NewInvalidOrExpiredToken(err)
	}

	access, _, err := i.sign(StripReserved(claims), UseAccess, i.now(), i.accessTTL)
	if err != nil {
		return "", err
	}
	return access, nil
}

// Verify checks an access token and returns its claims. Expired tokens
// yield TOKEN_EXPIRED, anything else TOKEN_INVALID.
func (i *Issuer) Verify(accessToken string) (map[string]any, error) {
	if accessToken == "" {
		return nil, autherrors.NewTokenMissing("access token")
	}
	claims, err := i.parse(accessToken, UseAccess)
	if err != nil {
		return nil, autherrors.NewTokenError(errors.Is(err, jwt.ErrTokenExpired), err)
	}
	return claims, nil
}

// StripReserved returns a copy of claims without issuer-owned fields.
func StripReserved(claims map[string]any) map[string]any {
	out := make(map[string]any, len(claims))
	for k, v := range claims {
		out[k] = v
	}
	for _, k := range reservedClaims {
		delete(out, k)
	}
	return out
}

func (i *Issuer) sign(payload map[string]any, use string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	exp := now.Add(ttl)

	claims := jwt.MapClaims(StripReserved(payload))
	claims["iat"] = now.Unix()
	claims["exp"] = exp.Unix()
	claims["jti"] = uuid.NewString()
	claims[claimTokenUse] = use
	if i.issuer != "" {
		claims["iss"] = i.issuer
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", use, err)
	}
	return signed, exp, nil
}

func (i *Issuer) parse(raw, use string) (map[string]any, error) {
	if raw == "" {
		return nil, errors.New("token is empty")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, opts...); err != nil {
		return nil, err
	}

	if got, _ := claims[claimTokenUse].(string); got != use {
		return nil, fmt.Errorf("token_use is %q, expected %q", got, use)
	}
	return claims, nil
}
