package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Call is a single contract invocation inside a sponsored batch.
type Call struct {
	To    common.Address `json:"to"`
	Data  hexutil.Bytes  `json:"data"`
	Value *hexutil.Big   `json:"value"`
}

func newCall(to common.Address, data []byte) Call {
	return Call{To: to, Data: data, Value: (*hexutil.Big)(big.NewInt(0))}
}

// ApproveCall encodes token.approve(spender, amount).
func (d Descriptor) ApproveCall(spender common.Address, amount *big.Int) (Call, error) {
	data, err := ERC20ABI.Pack("approve", spender, amount)
	if err != nil {
		return Call{}, fmt.Errorf("pack approve: %w", err)
	}
	return newCall(d.Token, data), nil
}

// DonateCall encodes donation.donate(token, amount, recipient).
func (d Descriptor) DonateCall(amount *big.Int, recipient common.Address) (Call, error) {
	data, err := DonationABI.Pack("donate", d.Token, amount, recipient)
	if err != nil {
		return Call{}, fmt.Errorf("pack donate: %w", err)
	}
	return newCall(d.DonationContract, data), nil
}

// PermitCall encodes token.permit(owner, spender, value, deadline, v, r, s).
func (d Descriptor) PermitCall(p Permit, sig Signature) (Call, error) {
	data, err := ERC20ABI.Pack("permit", p.Owner, p.Spender, p.Value, p.Deadline, sig.V, sig.R, sig.S)
	if err != nil {
		return Call{}, fmt.Errorf("pack permit: %w", err)
	}
	return newCall(d.Token, data), nil
}

// TransferFromCall encodes token.transferFrom(from, to, value).
func (d Descriptor) TransferFromCall(from, to common.Address, value *big.Int) (Call, error) {
	data, err := ERC20ABI.Pack("transferFrom", from, to, value)
	if err != nil {
		return Call{}, fmt.Errorf("pack transferFrom: %w", err)
	}
	return newCall(d.Token, data), nil
}

// TransferCall encodes token.transfer(to, value).
func (d Descriptor) TransferCall(to common.Address, value *big.Int) (Call, error) {
	data, err := ERC20ABI.Pack("transfer", to, value)
	if err != nil {
		return Call{}, fmt.Errorf("pack transfer: %w", err)
	}
	return newCall(d.Token, data), nil
}
