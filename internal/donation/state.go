package donation

import (
	"fmt"
	"math/big"

	"github.com/sawerbase/sawerbase/internal/wallet"
)

// State is what the donation form may do next.
type State string

const (
	StateIdle          State = "IDLE"
	StateLoginNeeded   State = "LOGIN_NEEDED"
	StateChecking      State = "CHECKING"
	StateApproveNeeded State = "APPROVE_NEEDED"
	StateReady         State = "READY_TO_DONATE"
	StateProcessing    State = "PROCESSING"
	StateSuccess       State = "SUCCESS"
	StateError         State = "ERROR"
)

// Path is the execution strategy for a donation.
type Path int

const (
	// PathSponsored batches approve and donate through the relay from the smart account.
	PathSponsored Path = iota
	// PathPermit collects a typed-data permit and lets the sponsor account execute the batch.
	PathPermit
	// PathDirect sends donate from the donor's wallet after a prior on-chain approval.
	PathDirect
)

func (p Path) String() string {
	switch p {
	case PathSponsored:
		return "sponsored"
	case PathPermit:
		return "permit"
	case PathDirect:
		return "direct"
	default:
		return fmt.Sprintf("path(%d)", int(p))
	}
}

// MarshalText renders the path name in JSON.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a path name.
func (p *Path) UnmarshalText(text []byte) error {
	switch string(text) {
	case "sponsored":
		*p = PathSponsored
	case "permit":
		*p = PathPermit
	case "direct":
		*p = PathDirect
	default:
		return fmt.Errorf("unknown path %q", text)
	}
	return nil
}

// RequiresApproval reports whether the path needs an allowance before donate.
func (p Path) RequiresApproval() bool {
	return p == PathDirect
}

// SelectPath picks the execution path for an identity.
func SelectPath(id wallet.Identity, permitEnabled bool) Path {
	switch {
	case id.Embedded():
		return PathSponsored
	case permitEnabled:
		return PathPermit
	default:
		return PathDirect
	}
}

// Outcome is the result of the last finished attempt in a session.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeError
)

// Inputs is a snapshot of everything the state depends on.
type Inputs struct {
	Authenticated   bool
	Amount          *big.Int
	AddressResolved bool
	Path            Path
	AllowanceKnown  bool
	Allowance       *big.Int
	InFlight        bool
	Last            Outcome
}

// Evaluate derives the current state. It is re-run on every status query rather
// than stored, so the result always reflects the latest inputs.
func Evaluate(in Inputs) State {
	if !in.Authenticated {
		return StateLoginNeeded
	}
	if in.Amount == nil || in.Amount.Sign() <= 0 {
		return StateIdle
	}
	if in.InFlight {
		return StateProcessing
	}
	if !in.AddressResolved {
		return StateChecking
	}
	switch in.Last {
	case OutcomeSuccess:
		return StateSuccess
	case OutcomeError:
		return StateError
	}
	if in.Path.RequiresApproval() {
		if !in.AllowanceKnown || in.Allowance == nil || in.Allowance.Cmp(in.Amount) < 0 {
			return StateApproveNeeded
		}
	}
	return StateReady
}
