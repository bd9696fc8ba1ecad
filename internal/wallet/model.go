package wallet

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
)

// Connector identifies how an identity's wallet is attached.
type Connector string

const (
	// ConnectorEmbedded is a custodial, email-based login paired with a sponsored smart account.
	ConnectorEmbedded Connector = "embedded"
	// ConnectorExternal is a user-controlled wallet signing through its own application.
	ConnectorExternal Connector = "external"
)

const identityLocal = "identity"

// Identity is the authenticated user handle as seen by the donation core.
type Identity struct {
	Subject       string
	Authenticated bool
	Connector     Connector
	// WalletAddress is the directly connected wallet, for external connectors.
	WalletAddress string
	// SmartAccount is the sponsored account, empty while it is still provisioning.
	SmartAccount string
}

// Embedded reports whether the identity uses the sponsored smart-account path.
func (i Identity) Embedded() bool {
	return i.Connector == ConnectorEmbedded
}

// SetIdentity stores the request identity for downstream handlers.
func SetIdentity(c *fiber.Ctx, id Identity) {
	c.Locals(identityLocal, id)
}

// IdentityFrom returns the request identity, unauthenticated when absent.
func IdentityFrom(c *fiber.Ctx) Identity {
	id, _ := c.Locals(identityLocal).(Identity)
	return id
}

// Snapshot is a point-in-time view of token state for one address. Fields whose
// Known flag is false could not be read and must be treated as insufficient.
type Snapshot struct {
	Address        common.Address
	Resolved       bool
	Balance        *big.Int
	BalanceKnown   bool
	Allowance      *big.Int
	AllowanceKnown bool
	Decimals       uint8
	DecimalsKnown  bool
}

// Covers reports whether the known balance is at least amount.
func (s Snapshot) Covers(amount *big.Int) bool {
	return s.BalanceKnown && s.Balance != nil && s.Balance.Cmp(amount) >= 0
}

// Approved reports whether the known allowance is at least amount.
func (s Snapshot) Approved(amount *big.Int) bool {
	return s.AllowanceKnown && s.Allowance != nil && s.Allowance.Cmp(amount) >= 0
}
