package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20JSON = `[
	{"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"owner","type":"address"}],"name":"nonces","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"},{"name":"value","type":"uint256"},{"name":"deadline","type":"uint256"},{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}],"name":"permit","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transferFrom","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

const donationJSON = `[
	{"inputs":[{"name":"token","type":"address"},{"name":"amount","type":"uint256"},{"name":"streamer","type":"address"}],"name":"donate","outputs":[],"stateMutability":"payable","type":"function"}
]`

var (
	// ERC20ABI is the token surface consumed by the service, including EIP-2612 permit.
	ERC20ABI = mustParseABI(erc20JSON)
	// DonationABI is the donation contract surface.
	DonationABI = mustParseABI(donationJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("parse abi: %v", err))
	}
	return parsed
}

// Descriptor is the static description of the token/donation contract pair.
type Descriptor struct {
	ChainID          *big.Int
	Token            common.Address
	DonationContract common.Address
	// Sponsor is the relayer-controlled account that pulls permitted tokens.
	Sponsor       common.Address
	TokenSymbol   string
	TokenName     string
	PermitVersion string
}

// DescriptorInput holds raw configuration values for NewDescriptor.
type DescriptorInput struct {
	ChainID          int64
	Token            string
	DonationContract string
	Sponsor          string
	TokenSymbol      string
	TokenName        string
	PermitVersion    string
}

// NewDescriptor validates configured addresses and builds a Descriptor.
func NewDescriptor(in DescriptorInput) (Descriptor, error) {
	if !common.IsHexAddress(in.Token) {
		return Descriptor{}, fmt.Errorf("invalid token address %q", in.Token)
	}
	if !common.IsHexAddress(in.DonationContract) {
		return Descriptor{}, fmt.Errorf("invalid donation contract address %q", in.DonationContract)
	}
	var sponsor common.Address
	if in.Sponsor != "" {
		if !common.IsHexAddress(in.Sponsor) {
			return Descriptor{}, fmt.Errorf("invalid sponsor address %q", in.Sponsor)
		}
		sponsor = common.HexToAddress(in.Sponsor)
	}
	name := in.TokenName
	if name == "" {
		name = in.TokenSymbol
	}
	version := in.PermitVersion
	if version == "" {
		version = "1"
	}
	return Descriptor{
		ChainID:          big.NewInt(in.ChainID),
		Token:            common.HexToAddress(in.Token),
		DonationContract: common.HexToAddress(in.DonationContract),
		Sponsor:          sponsor,
		TokenSymbol:      in.TokenSymbol,
		TokenName:        name,
		PermitVersion:    version,
	}, nil
}

// HasSponsor reports whether a sponsor account is configured for the permit path.
func (d Descriptor) HasSponsor() bool {
	return d.Sponsor != (common.Address{})
}
