package chain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// ErrInvalidSignature is returned for signatures that are not 65 bytes with a
// recovery id in {0, 1, 27, 28}.
var ErrInvalidSignature = errors.New("invalid signature")

// Permit is an EIP-2612 authorization for Spender to pull Value from Owner.
type Permit struct {
	Owner    common.Address
	Spender  common.Address
	Value    *big.Int
	Nonce    *big.Int
	Deadline *big.Int
}

// Signature holds the canonical fixed-width components expected by permit().
type Signature struct {
	V uint8
	R [32]byte
	S [32]byte
}

// PermitTypedData returns the EIP-712 payload the owner signs.
func (d Descriptor) PermitTypedData(p Permit) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Permit": {
				{Name: "owner", Type: "address"},
				{Name: "spender", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
			},
		},
		PrimaryType: "Permit",
		Domain: apitypes.TypedDataDomain{
			Name:              d.TokenName,
			Version:           d.PermitVersion,
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(d.ChainID)),
			VerifyingContract: d.Token.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"owner":    p.Owner.Hex(),
			"spender":  p.Spender.Hex(),
			"value":    p.Value.String(),
			"nonce":    p.Nonce.String(),
			"deadline": p.Deadline.String(),
		},
	}
}

// PermitDigest returns the EIP-712 hash of the permit.
func (d Descriptor) PermitDigest(p Permit) (common.Hash, error) {
	hash, _, err := apitypes.TypedDataAndHash(d.PermitTypedData(p))
	if err != nil {
		return common.Hash{}, fmt.Errorf("hash permit: %w", err)
	}
	return common.BytesToHash(hash), nil
}

// SplitSignature splits a 65-byte r||s||v signature. The recovery id is
// normalized to 27/28 because wallets emit either form.
func SplitSignature(sig []byte) (Signature, error) {
	if len(sig) != crypto.SignatureLength {
		return Signature{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, crypto.SignatureLength, len(sig))
	}
	var out Signature
	copy(out.R[:], sig[0:32])
	copy(out.S[:], sig[32:64])
	out.V = sig[64]
	if out.V < 27 {
		out.V += 27
	}
	if out.V != 27 && out.V != 28 {
		return Signature{}, fmt.Errorf("%w: recovery id %d", ErrInvalidSignature, sig[64])
	}
	return out, nil
}

// RecoverSigner returns the address that produced sig over digest.
func RecoverSigner(digest common.Hash, sig []byte) (common.Address, error) {
	parts, err := SplitSignature(sig)
	if err != nil {
		return common.Address{}, err
	}
	raw := make([]byte, crypto.SignatureLength)
	copy(raw[0:32], parts.R[:])
	copy(raw[32:64], parts.S[:])
	raw[64] = parts.V - 27

	pub, err := crypto.SigToPub(digest.Bytes(), raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
