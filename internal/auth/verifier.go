package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sawerbase/sawerbase/internal/wallet"
)

var (
	// ErrMissingToken is returned when no bearer token was presented.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks.
	ErrInvalidToken = errors.New("invalid identity token")
)

// Claims are the identity token claims issued by the auth provider.
type Claims struct {
	jwt.RegisteredClaims
	Connector     string `json:"connector"`
	WalletAddress string `json:"wallet_address,omitempty"`
	SmartAccount  string `json:"smart_account,omitempty"`
}

// Verifier checks HS256 identity tokens and turns them into wallet identities.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier builds a verifier for tokens signed with secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(30*time.Second),
		),
	}
}

// Verify validates token and returns the authenticated identity it carries.
func (v *Verifier) Verify(token string) (wallet.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return wallet.Identity{}, ErrMissingToken
	}
	if len(v.secret) == 0 {
		return wallet.Identity{}, fmt.Errorf("%w: verifier has no secret", ErrInvalidToken)
	}

	var claims Claims
	if _, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}); err != nil {
		return wallet.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return wallet.Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	connector := wallet.Connector(strings.ToLower(claims.Connector))
	switch connector {
	case wallet.ConnectorEmbedded, wallet.ConnectorExternal:
	default:
		return wallet.Identity{}, fmt.Errorf("%w: unknown connector %q", ErrInvalidToken, claims.Connector)
	}

	return wallet.Identity{
		Subject:       claims.Subject,
		Authenticated: true,
		Connector:     connector,
		WalletAddress: claims.WalletAddress,
		SmartAccount:  claims.SmartAccount,
	}, nil
}

// Issue signs a token for id valid for ttl. Used by local tooling and tests.
func (v *Verifier) Issue(id wallet.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Connector:     string(id.Connector),
		WalletAddress: id.WalletAddress,
		SmartAccount:  id.SmartAccount,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign identity token: %w", err)
	}
	return signed, nil
}
