package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/sawerbase/sawerbase/internal/wallet"
)

func TestVerifyRoundTrip(t *testing.T) {
	v := NewVerifier("test-secret")
	in := wallet.Identity{
		Subject:      "did:privy:abc",
		Connector:    wallet.ConnectorEmbedded,
		SmartAccount: "0x6666666666666666666666666666666666666666",
	}
	token, err := v.Issue(in, time.Minute)
	require.NoError(t, err)

	got, err := v.Verify(token)
	require.NoError(t, err)
	require.True(t, got.Authenticated)
	require.Equal(t, in.Subject, got.Subject)
	require.Equal(t, wallet.ConnectorEmbedded, got.Connector)
	require.Equal(t, in.SmartAccount, got.SmartAccount)
}

func TestVerifyRejects(t *testing.T) {
	v := NewVerifier("test-secret")
	id := wallet.Identity{Subject: "u1", Connector: wallet.ConnectorExternal, WalletAddress: "0x6666666666666666666666666666666666666666"}

	expired, err := v.Issue(id, -time.Hour)
	require.NoError(t, err)
	other, err := NewVerifier("other-secret").Issue(id, time.Minute)
	require.NoError(t, err)
	noConnector, err := v.Issue(wallet.Identity{Subject: "u1"}, time.Minute)
	require.NoError(t, err)
	noSubject, err := v.Issue(wallet.Identity{Connector: wallet.ConnectorExternal}, time.Minute)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":       "u1",
		"connector": "external",
		"exp":       time.Now().Add(time.Minute).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":      expired,
		"wrong secret": other,
		"no connector": noConnector,
		"no subject":   noSubject,
		"alg none":     none,
		"garbage":      "not.a.token",
	} {
		_, err := v.Verify(token)
		require.Truef(t, errors.Is(err, ErrInvalidToken), "%s: got %v", name, err)
	}

	_, err = v.Verify("  ")
	require.ErrorIs(t, err, ErrMissingToken)
}
