package chain

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

var verifyRecipient = common.HexToAddress("0x7777777777777777777777777777777777777777")

func signedTx(t *testing.T, desc Descriptor, key *ecdsa.PrivateKey, call Call) *types.Transaction {
	t.Helper()
	to := call.To
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   desc.ChainID,
		Nonce:     1,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
		Gas:       150_000,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      call.Data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(desc.ChainID), key)
	require.NoError(t, err)
	return signed
}

func successfulReceipts(int) (*types.Receipt, error) {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

func TestVerifyDonationAcceptsMatchingTransaction(t *testing.T) {
	desc := testDescriptor(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	donor := crypto.PubkeyToAddress(key.PublicKey)

	amount := big.NewInt(50_000)
	call, err := desc.DonateCall(amount, verifyRecipient)
	require.NoError(t, err)
	tx := signedTx(t, desc, key, call)

	eth := &fakeEth{receiptFn: successfulReceipts, txs: map[common.Hash]*types.Transaction{tx.Hash(): tx}}
	client := NewClient(eth, desc)

	err = client.VerifyDonation(context.Background(), tx.Hash(), ExpectedDonation{Donor: donor, Recipient: verifyRecipient, Amount: amount})
	require.NoError(t, err)
}

func TestVerifyDonationRejectsMismatches(t *testing.T) {
	desc := testDescriptor(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	donor := crypto.PubkeyToAddress(key.PublicKey)
	amount := big.NewInt(50_000)

	donate, err := desc.DonateCall(amount, verifyRecipient)
	require.NoError(t, err)
	transfer, err := desc.TransferCall(verifyRecipient, amount)
	require.NoError(t, err)

	donateTx := signedTx(t, desc, key, donate)
	transferTx := signedTx(t, desc, key, transfer)
	eth := &fakeEth{receiptFn: successfulReceipts, txs: map[common.Hash]*types.Transaction{
		donateTx.Hash():   donateTx,
		transferTx.Hash(): transferTx,
	}}
	client := NewClient(eth, desc)
	ctx := context.Background()
	want := ExpectedDonation{Donor: donor, Recipient: verifyRecipient, Amount: amount}

	cases := map[string]struct {
		hash common.Hash
		want ExpectedDonation
	}{
		"unknown hash":    {hash: common.HexToHash("0xdeadbeef"), want: want},
		"plain transfer":  {hash: transferTx.Hash(), want: want},
		"other donor":     {hash: donateTx.Hash(), want: ExpectedDonation{Donor: verifyRecipient, Recipient: verifyRecipient, Amount: amount}},
		"other recipient": {hash: donateTx.Hash(), want: ExpectedDonation{Donor: donor, Recipient: donor, Amount: amount}},
		"other amount":    {hash: donateTx.Hash(), want: ExpectedDonation{Donor: donor, Recipient: verifyRecipient, Amount: big.NewInt(1)}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := client.VerifyDonation(ctx, tc.hash, tc.want)
			require.ErrorIs(t, err, ErrDonationMismatch)
		})
	}
}

func TestVerifyDonationRejectsRevertedTransaction(t *testing.T) {
	desc := testDescriptor(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	amount := big.NewInt(50_000)
	call, err := desc.DonateCall(amount, verifyRecipient)
	require.NoError(t, err)
	tx := signedTx(t, desc, key, call)

	eth := &fakeEth{
		receiptFn: func(int) (*types.Receipt, error) {
			return &types.Receipt{Status: types.ReceiptStatusFailed}, nil
		},
		txs: map[common.Hash]*types.Transaction{tx.Hash(): tx},
	}
	err = NewClient(eth, desc).VerifyDonation(context.Background(), tx.Hash(), ExpectedDonation{
		Donor:     crypto.PubkeyToAddress(key.PublicKey),
		Recipient: verifyRecipient,
		Amount:    amount,
	})
	require.ErrorIs(t, err, ErrReverted)
}

func TestNewReceiptWaiterBoundsNonPositiveTimeout(t *testing.T) {
	for _, timeout := range []time.Duration{0, -time.Second} {
		w := NewReceiptWaiter(&fakeEth{}, timeout)
		require.Equal(t, DefaultConfirmTimeout, w.Timeout)
	}
}
