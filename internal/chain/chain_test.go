package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	testToken    = "0xaac475960346ed061aa8b8f204749b93ddb75209"
	testDonation = "0x0030ebc28d61d9B4e13951aF4D7cF55905F967D1"
	testSponsor  = "0x1111111111111111111111111111111111111111"
)

func testDescriptor(t *testing.T) Descriptor {
	t.Helper()
	desc, err := NewDescriptor(DescriptorInput{
		ChainID:          84532,
		Token:            testToken,
		DonationContract: testDonation,
		Sponsor:          testSponsor,
		TokenSymbol:      "IDRX",
	})
	require.NoError(t, err)
	return desc
}

type fakeEth struct {
	mu        sync.Mutex
	outputs   map[string][]interface{}
	receiptFn func(n int) (*types.Receipt, error)
	polls     int
	txs       map[common.Hash]*types.Transaction
}

func (f *fakeEth) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	for name, method := range ERC20ABI.Methods {
		if string(msg.Data[:4]) != string(method.ID) {
			continue
		}
		values, ok := f.outputs[name]
		if !ok {
			return nil, nil
		}
		return method.Outputs.Pack(values...)
	}
	return nil, errors.New("unknown selector")
}

func (f *fakeEth) TransactionReceipt(_ context.Context, _ common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	return f.receiptFn(f.polls)
}

func (f *fakeEth) TransactionByHash(_ context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	tx, ok := f.txs[hash]
	if !ok {
		return nil, false, ethereum.NotFound
	}
	return tx, false, nil
}

func TestNewDescriptorDefaults(t *testing.T) {
	desc := testDescriptor(t)
	require.Equal(t, "IDRX", desc.TokenName)
	require.Equal(t, "1", desc.PermitVersion)
	require.True(t, desc.HasSponsor())
	require.Equal(t, common.HexToAddress(testToken), desc.Token)

	_, err := NewDescriptor(DescriptorInput{Token: "nope", DonationContract: testDonation})
	require.Error(t, err)
}

func TestClientReads(t *testing.T) {
	desc := testDescriptor(t)
	owner := common.HexToAddress("0x2222222222222222222222222222222222222222")
	eth := &fakeEth{outputs: map[string][]interface{}{
		"balanceOf": {big.NewInt(500_000)},
		"allowance": {big.NewInt(42)},
		"decimals":  {uint8(2)},
		"nonces":    {big.NewInt(7)},
	}}
	client := NewClient(eth, desc)
	ctx := context.Background()

	bal, err := client.BalanceOf(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, int64(500_000), bal.Int64())

	allowance, err := client.Allowance(ctx, owner, desc.DonationContract)
	require.NoError(t, err)
	require.Equal(t, int64(42), allowance.Int64())

	decimals, err := client.Decimals(ctx)
	require.NoError(t, err)
	require.Equal(t, uint8(2), decimals)

	nonce, err := client.Nonces(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, int64(7), nonce.Int64())
}

func TestClientEmptyResult(t *testing.T) {
	client := NewClient(&fakeEth{outputs: map[string][]interface{}{}}, testDescriptor(t))
	_, err := client.Decimals(context.Background())
	require.ErrorIs(t, err, ErrEmptyResult)
}

func TestOfflineClientFailsReads(t *testing.T) {
	client := NewClient(OfflineClient{}, testDescriptor(t))
	_, err := client.BalanceOf(context.Background(), common.HexToAddress(testSponsor))
	require.ErrorIs(t, err, ErrNoRPC)
}

func TestPermitSignatureRecovery(t *testing.T) {
	desc := testDescriptor(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(key.PublicKey)

	permit := Permit{
		Owner:    owner,
		Spender:  desc.Sponsor,
		Value:    big.NewInt(50_000),
		Nonce:    big.NewInt(0),
		Deadline: big.NewInt(1_900_000_000),
	}
	digest, err := desc.PermitDigest(permit)
	require.NoError(t, err)

	sig, err := crypto.Sign(digest.Bytes(), key)
	require.NoError(t, err)

	recovered, err := RecoverSigner(digest, sig)
	require.NoError(t, err)
	require.Equal(t, owner, recovered)

	// wallets commonly emit v as 27/28
	legacy := append([]byte(nil), sig...)
	legacy[64] += 27
	recovered, err = RecoverSigner(digest, legacy)
	require.NoError(t, err)
	require.Equal(t, owner, recovered)

	// a different nonce yields a different digest, so recovery no longer matches
	permit.Nonce = big.NewInt(1)
	other, err := desc.PermitDigest(permit)
	require.NoError(t, err)
	require.NotEqual(t, digest, other)
	recovered, err = RecoverSigner(other, sig)
	if err == nil {
		require.NotEqual(t, owner, recovered)
	}
}

func TestSplitSignatureRejectsMalformed(t *testing.T) {
	_, err := SplitSignature(make([]byte, 64))
	require.ErrorIs(t, err, ErrInvalidSignature)

	sig := make([]byte, 65)
	sig[64] = 5
	_, err = SplitSignature(sig)
	require.ErrorIs(t, err, ErrInvalidSignature)

	sig[64] = 1
	parts, err := SplitSignature(sig)
	require.NoError(t, err)
	require.Equal(t, uint8(28), parts.V)
}

func TestCalldataTargets(t *testing.T) {
	desc := testDescriptor(t)
	recipient := common.HexToAddress("0x3333333333333333333333333333333333333333")
	amount := big.NewInt(50_000)

	approve, err := desc.ApproveCall(desc.DonationContract, amount)
	require.NoError(t, err)
	require.Equal(t, desc.Token, approve.To)
	require.Equal(t, ERC20ABI.Methods["approve"].ID, []byte(approve.Data[:4]))

	donate, err := desc.DonateCall(amount, recipient)
	require.NoError(t, err)
	require.Equal(t, desc.DonationContract, donate.To)

	args, err := DonationABI.Methods["donate"].Inputs.Unpack(donate.Data[4:])
	require.NoError(t, err)
	require.Equal(t, desc.Token, args[0].(common.Address))
	require.Equal(t, 0, amount.Cmp(args[1].(*big.Int)))
	require.Equal(t, recipient, args[2].(common.Address))
	require.Equal(t, 0, donate.Value.ToInt().Sign())
}

func TestReceiptWaiterConfirms(t *testing.T) {
	eth := &fakeEth{receiptFn: func(n int) (*types.Receipt, error) {
		if n < 3 {
			return nil, ethereum.NotFound
		}
		return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
	}}
	w := &ReceiptWaiter{eth: eth, PollInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, Timeout: time.Second}

	receipt, err := w.Wait(context.Background(), common.HexToHash("0x01"))
	require.NoError(t, err)
	require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	require.Equal(t, 3, eth.polls)
}

func TestReceiptWaiterReverted(t *testing.T) {
	eth := &fakeEth{receiptFn: func(int) (*types.Receipt, error) {
		return &types.Receipt{Status: types.ReceiptStatusFailed}, nil
	}}
	w := &ReceiptWaiter{eth: eth, PollInterval: time.Millisecond, MaxInterval: time.Millisecond, Timeout: time.Second}

	_, err := w.Wait(context.Background(), common.HexToHash("0x02"))
	require.ErrorIs(t, err, ErrReverted)
}

func TestReceiptWaiterTimesOut(t *testing.T) {
	eth := &fakeEth{receiptFn: func(int) (*types.Receipt, error) {
		return nil, ethereum.NotFound
	}}
	w := &ReceiptWaiter{eth: eth, PollInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond, Timeout: 30 * time.Millisecond}

	_, err := w.Wait(context.Background(), common.HexToHash("0x03"))
	require.ErrorIs(t, err, ErrConfirmationTimeout)
}

func TestParseAmount(t *testing.T) {
	base, err := ParseAmount("150000", 18)
	require.NoError(t, err)
	want, _ := new(big.Int).SetString("150000000000000000000000", 10)
	require.Equal(t, 0, want.Cmp(base))

	base, err = ParseAmount("1.25", 2)
	require.NoError(t, err)
	require.Equal(t, int64(125), base.Int64())

	base, err = ParseAmount("0.005", 2)
	require.NoError(t, err)
	require.Equal(t, int64(1), base.Int64())

	base, err = ParseAmount("", 18)
	require.NoError(t, err)
	require.Zero(t, base.Sign())

	_, err = ParseAmount("-1", 18)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = ParseAmount("abc", 18)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestFormatDisplay(t *testing.T) {
	base, err := ParseAmount("150000", 18)
	require.NoError(t, err)
	require.Equal(t, "150.000", FormatBaseDisplay(base, 18))
	require.Equal(t, "150000", FormatUnits(base, 18))

	require.Equal(t, "1.234,5", FormatDisplay(decimal.RequireFromString("1234.5")))
	require.Equal(t, "0,125", FormatDisplay(decimal.RequireFromString("0.1254")))
	require.Equal(t, "999", FormatDisplay(decimal.RequireFromString("999")))
}

func TestSplitFee(t *testing.T) {
	fee, net := SplitFee(big.NewInt(50_000), 10)
	require.Equal(t, int64(5_000), fee.Int64())
	require.Equal(t, int64(45_000), net.Int64())

	fee, net = SplitFee(big.NewInt(15), 10)
	require.Equal(t, int64(1), fee.Int64())
	require.Equal(t, int64(14), net.Int64())
}
