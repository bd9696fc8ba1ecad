package wallet

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Resolve derives the active on-chain address of an identity. The boolean is
// false when the identity is unauthenticated or its smart account is not ready yet;
// callers treat the latter as pending rather than failed.
func Resolve(id Identity) (common.Address, bool) {
	if !id.Authenticated {
		return common.Address{}, false
	}
	raw := id.WalletAddress
	if id.Embedded() {
		raw = id.SmartAccount
	}
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, false
	}
	addr := common.HexToAddress(raw)
	if addr == (common.Address{}) {
		return common.Address{}, false
	}
	return addr, true
}
