package donation

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sawerbase/sawerbase/internal/wallet"
)

func TestEvaluateUnauthenticatedAlwaysNeedsLogin(t *testing.T) {
	for _, amount := range []*big.Int{nil, big.NewInt(-5), big.NewInt(0), big.NewInt(1), big.NewInt(1_000_000)} {
		for _, inFlight := range []bool{false, true} {
			state := Evaluate(Inputs{Amount: amount, InFlight: inFlight, AddressResolved: true, Last: OutcomeError})
			require.Equal(t, StateLoginNeeded, state)
		}
	}
}

func TestEvaluateNonPositiveAmountIsIdle(t *testing.T) {
	for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-1)} {
		state := Evaluate(Inputs{Authenticated: true, Amount: amount, AddressResolved: true, InFlight: true})
		require.Equal(t, StateIdle, state)
	}
}

func TestEvaluateTransitions(t *testing.T) {
	amount := big.NewInt(100)
	cases := []struct {
		name string
		in   Inputs
		want State
	}{
		{"unresolved address", Inputs{Authenticated: true, Amount: amount, Path: PathSponsored}, StateChecking},
		{"in flight wins over approval", Inputs{Authenticated: true, Amount: amount, AddressResolved: true, Path: PathDirect, InFlight: true}, StateProcessing},
		{"direct short allowance", Inputs{Authenticated: true, Amount: amount, AddressResolved: true, Path: PathDirect, AllowanceKnown: true, Allowance: big.NewInt(99)}, StateApproveNeeded},
		{"direct unknown allowance", Inputs{Authenticated: true, Amount: amount, AddressResolved: true, Path: PathDirect}, StateApproveNeeded},
		{"direct enough allowance", Inputs{Authenticated: true, Amount: amount, AddressResolved: true, Path: PathDirect, AllowanceKnown: true, Allowance: big.NewInt(100)}, StateReady},
		{"sponsored ignores allowance", Inputs{Authenticated: true, Amount: amount, AddressResolved: true, Path: PathSponsored}, StateReady},
		{"permit ignores allowance", Inputs{Authenticated: true, Amount: amount, AddressResolved: true, Path: PathPermit, AllowanceKnown: true, Allowance: big.NewInt(0)}, StateReady},
		{"last success", Inputs{Authenticated: true, Amount: amount, AddressResolved: true, Last: OutcomeSuccess}, StateSuccess},
		{"last error", Inputs{Authenticated: true, Amount: amount, AddressResolved: true, Last: OutcomeError}, StateError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Evaluate(tc.in))
		})
	}
}

func TestSelectPath(t *testing.T) {
	embedded := wallet.Identity{Authenticated: true, Connector: wallet.ConnectorEmbedded}
	external := wallet.Identity{Authenticated: true, Connector: wallet.ConnectorExternal}

	require.Equal(t, PathSponsored, SelectPath(embedded, true))
	require.Equal(t, PathSponsored, SelectPath(embedded, false))
	require.Equal(t, PathPermit, SelectPath(external, true))
	require.Equal(t, PathDirect, SelectPath(external, false))
	require.True(t, PathDirect.RequiresApproval())
	require.False(t, PathSponsored.RequiresApproval())
}
