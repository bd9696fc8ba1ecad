package donation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/shopspring/decimal"

	"github.com/sawerbase/sawerbase/internal/chain"
	"github.com/sawerbase/sawerbase/internal/ledger"
	"github.com/sawerbase/sawerbase/internal/notification"
	"github.com/sawerbase/sawerbase/internal/relay"
	"github.com/sawerbase/sawerbase/internal/wallet"
)

const defaultPermitTTL = time.Hour

// Recorder persists donation attempts.
type Recorder interface {
	RecordDonation(ctx context.Context, in ledger.RecordInput) (ledger.Donation, error)
}

// Waiter blocks until a transaction is mined.
type Waiter interface {
	Wait(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// TxVerifier checks that a client-sent transaction is the expected donate call.
type TxVerifier interface {
	VerifyDonation(ctx context.Context, hash common.Hash, want chain.ExpectedDonation) error
}

// Signer produces the donor's permit signature over digest.
type Signer interface {
	SignPermit(ctx context.Context, data apitypes.TypedData, digest common.Hash) ([]byte, error)
}

// Sender broadcasts a call from the donor's own wallet.
type Sender interface {
	Send(ctx context.Context, call chain.Call) (common.Hash, error)
}

// Settings tunes the orchestrator.
type Settings struct {
	PermitEnabled  bool
	FeeRatePercent int64
	MinDonation    decimal.Decimal
	PermitTTL      time.Duration
}

// Dependencies groups the collaborators of an Orchestrator.
type Dependencies struct {
	Descriptor chain.Descriptor
	Tokens     chain.TokenReader
	Reader     *wallet.Reader
	Relay      relay.Submitter
	Waiter     Waiter
	Verifier   TxVerifier
	Recorder   Recorder
	Notifier   notification.Notifier
	Registry   *Registry
	Logger     *slog.Logger
}

// Orchestrator decides what a donor may do next and executes donations.
type Orchestrator struct {
	desc     chain.Descriptor
	tokens   chain.TokenReader
	reader   *wallet.Reader
	relay    relay.Submitter
	waiter   Waiter
	verifier TxVerifier
	recorder Recorder
	notifier notification.Notifier
	registry *Registry
	settings Settings
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrchestrator builds an orchestrator.
func NewOrchestrator(deps Dependencies, settings Settings) *Orchestrator {
	if settings.PermitTTL <= 0 {
		settings.PermitTTL = defaultPermitTTL
	}
	registry := deps.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	return &Orchestrator{
		desc:     deps.Descriptor,
		tokens:   deps.Tokens,
		reader:   deps.Reader,
		relay:    deps.Relay,
		waiter:   deps.Waiter,
		verifier: deps.Verifier,
		recorder: deps.Recorder,
		notifier: deps.Notifier,
		registry: registry,
		settings: settings,
		logger:   deps.Logger,
		now:      time.Now,
	}
}

// StatusResult describes the donation form state for one identity and amount.
type StatusResult struct {
	State      State  `json:"state"`
	Path       Path   `json:"path"`
	Address    string `json:"address,omitempty"`
	Decimals   uint8  `json:"decimals"`
	AmountBase string `json:"amount_base,omitempty"`
	Balance    string `json:"balance,omitempty"`
	Allowance  string `json:"allowance,omitempty"`
	Fee        string `json:"fee,omitempty"`
	Net        string `json:"net,omitempty"`
	LastError  string `json:"last_error,omitempty"`
	LastTxHash string `json:"last_tx_hash,omitempty"`
}

// Status evaluates the current state for id wanting to donate amountRaw.
func (o *Orchestrator) Status(ctx context.Context, id wallet.Identity, amountRaw string) (StatusResult, error) {
	path := SelectPath(id, o.settings.PermitEnabled)
	if !id.Authenticated {
		return StatusResult{State: Evaluate(Inputs{}), Path: path, Decimals: chain.DefaultDecimals}, nil
	}

	addr, resolved := wallet.Resolve(id)
	snap := o.reader.Snapshot(ctx, addr, resolved)
	amount, err := chain.ParseAmount(amountRaw, snap.Decimals)
	if err != nil {
		// unparsable or negative input is an empty form, not an error
		amount = new(big.Int)
	}

	var view sessionView
	res := StatusResult{Path: path, Decimals: snap.Decimals}
	if resolved {
		view = o.registry.get(addr).view()
		res.Address = addr.Hex()
	}

	res.State = Evaluate(Inputs{
		Authenticated:   true,
		Amount:          amount,
		AddressResolved: resolved,
		Path:            path,
		AllowanceKnown:  snap.AllowanceKnown,
		Allowance:       snap.Allowance,
		InFlight:        view.InFlight,
		Last:            view.Last,
	})
	res.LastError, res.LastTxHash = view.LastErr, view.LastTx

	if amount.Sign() > 0 {
		fee, net := chain.SplitFee(amount, o.settings.FeeRatePercent)
		res.AmountBase = amount.String()
		res.Fee = chain.FormatUnits(fee, snap.Decimals)
		res.Net = chain.FormatUnits(net, snap.Decimals)
	}
	if snap.BalanceKnown {
		res.Balance = chain.FormatUnits(snap.Balance, snap.Decimals)
	}
	if snap.AllowanceKnown {
		res.Allowance = chain.FormatUnits(snap.Allowance, snap.Decimals)
	}
	return res, nil
}

// DonateRequest carries one user-initiated donation.
type DonateRequest struct {
	Amount    string
	Recipient string
	DonorName string
	// Private hides the donor name on overlays.
	Private bool
	Message string
	// PermitDeadline pins the deadline the donor already signed; now+PermitTTL when nil.
	PermitDeadline *big.Int
	Signer         Signer
	Sender         Sender
}

// Result is the outcome of a donation attempt.
type Result struct {
	State    State            `json:"state"`
	Path     Path             `json:"path"`
	TxHash   string           `json:"tx_hash,omitempty"`
	Donation *ledger.Donation `json:"donation,omitempty"`
	Fee      string           `json:"fee,omitempty"`
	Net      string           `json:"net,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type plan struct {
	gross     decimal.Decimal
	base      *big.Int
	decimals  uint8
	recipient common.Address
}

// Donate runs one donation attempt end to end: at most one submission, a
// bounded confirmation wait and exactly one ledger row. Validation failures
// return before anything is sent and leave the session untouched.
func (o *Orchestrator) Donate(ctx context.Context, id wallet.Identity, req DonateRequest) (Result, error) {
	path := SelectPath(id, o.settings.PermitEnabled)
	if !id.Authenticated {
		return Result{State: StateLoginNeeded, Path: path}, ErrLoginRequired
	}
	donor, ok := wallet.Resolve(id)
	if !ok {
		return Result{State: StateChecking, Path: path}, ErrAddressPending
	}
	sess := o.registry.get(donor)
	if sess.view().InFlight {
		return Result{State: StateProcessing, Path: path}, ErrInFlight
	}
	if path == PathPermit && !o.desc.HasSponsor() {
		return Result{Path: path}, ErrSponsorUnavailable
	}

	p, err := o.validate(ctx, donor, path, req)
	if err != nil {
		return Result{Path: path}, err
	}
	if err := sess.begin(); err != nil {
		return Result{State: StateProcessing, Path: path}, err
	}

	// the attempt must finish and be recorded even if the caller goes away
	ctx = context.WithoutCancel(ctx)

	fee, net := chain.SplitFee(p.base, o.settings.FeeRatePercent)
	res := Result{
		Path: path,
		Fee:  chain.FormatUnits(fee, p.decimals),
		Net:  chain.FormatUnits(net, p.decimals),
	}
	o.logger.Info("donation started",
		slog.String("path", path.String()),
		slog.String("donor", donor.Hex()),
		slog.String("recipient", p.recipient.Hex()),
		slog.String("amount", p.base.String()),
		slog.String("fee", fee.String()),
		slog.String("net", net.String()),
	)

	hash, submitted, err := o.execute(ctx, donor, path, p, req)
	if err == nil {
		_, err = o.waiter.Wait(ctx, hash)
	}
	if err == nil && path == PathDirect {
		err = o.verifyDirect(ctx, hash, donor, p)
	}

	in := ledger.RecordInput{
		DonorAddress: donor.Hex(),
		DonorName:    req.DonorName,
		Private:      req.Private,
		Amount:       p.gross,
		Message:      req.Message,
		Recipient:    p.recipient.Hex(),
		Status:       ledger.StatusCompleted,
	}
	if submitted {
		res.TxHash = hash.Hex()
		// a hash that is not this donation must not claim the row for its real sender
		if !errors.Is(err, chain.ErrDonationMismatch) {
			in.TxHash = hash.Hex()
		}
	}
	if err != nil {
		in.Status = ledger.StatusFailed
	}

	row, recErr := o.recorder.RecordDonation(ctx, in)
	if recErr != nil {
		o.logger.Error("donation ledger write failed",
			slog.String("donor", donor.Hex()),
			slog.String("status", string(in.Status)),
			slog.String("tx_hash", in.TxHash),
			slog.Any("error", recErr),
		)
	} else {
		res.Donation = &row
	}

	if err != nil {
		res.State, res.Error = StateError, err.Error()
		sess.finish(OutcomeError, res.Error, res.TxHash)
		o.logger.Warn("donation failed", slog.String("donor", donor.Hex()), slog.String("tx_hash", res.TxHash), slog.Any("error", err))
		o.notify(ctx, notification.Message{
			Kind:        notification.KindDonationFailed,
			Destination: donor.Hex(),
			Body:        fmt.Sprintf("Donation to %s failed: %v", p.recipient.Hex(), err),
			TxHash:      res.TxHash,
		})
		return res, err
	}

	o.reader.Invalidate(ctx, donor)
	res.State = StateSuccess
	sess.finish(OutcomeSuccess, "", res.TxHash)
	o.logger.Info("donation confirmed", slog.String("donor", donor.Hex()), slog.String("tx_hash", res.TxHash))
	o.notify(ctx, notification.Message{
		Kind:        notification.KindDonationReceived,
		Destination: p.recipient.Hex(),
		Body:        fmt.Sprintf("%s donated %s %s", in.DonorName, chain.FormatDisplay(p.gross), o.desc.TokenSymbol),
		TxHash:      res.TxHash,
	})
	return res, nil
}

// verifyDirect checks that the hash reported by the donor's wallet is the
// donate call this attempt asked for.
func (o *Orchestrator) verifyDirect(ctx context.Context, hash common.Hash, donor common.Address, p plan) error {
	if o.verifier == nil {
		return fmt.Errorf("%w: no transaction verifier configured", chain.ErrDonationMismatch)
	}
	return o.verifier.VerifyDonation(ctx, hash, chain.ExpectedDonation{
		Donor:     donor,
		Recipient: p.recipient,
		Amount:    p.base,
	})
}

func (o *Orchestrator) validate(ctx context.Context, donor common.Address, path Path, req DonateRequest) (plan, error) {
	gross, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return plan{}, invalid("amount", "not a number")
	}
	if !gross.IsPositive() {
		return plan{}, invalid("amount", "must be positive")
	}
	if gross.LessThan(o.settings.MinDonation) {
		return plan{}, invalid("amount", "minimum donation is %s", o.settings.MinDonation.String())
	}
	if !common.IsHexAddress(req.Recipient) || common.HexToAddress(req.Recipient) == (common.Address{}) {
		return plan{}, invalid("recipient", "not a wallet address")
	}
	if utf8.RuneCountInString(req.Message) > ledger.MaxMessageLength {
		return plan{}, invalid("message", "longer than %d characters", ledger.MaxMessageLength)
	}

	snap := o.reader.Snapshot(ctx, donor, true)
	base, err := chain.ParseAmount(gross.String(), snap.Decimals)
	if err != nil {
		return plan{}, invalid("amount", "%v", err)
	}
	if snap.BalanceKnown && !snap.Covers(base) {
		return plan{}, invalid("amount", "exceeds balance")
	}

	switch path {
	case PathPermit:
		if req.Signer == nil {
			return plan{}, invalid("signature", "permit signature required")
		}
	case PathDirect:
		if req.Sender == nil {
			return plan{}, invalid("tx_hash", "signed transaction required")
		}
		if !snap.Approved(base) {
			return plan{}, invalid("amount", "allowance too low, approve first")
		}
	}

	return plan{gross: gross, base: base, decimals: snap.Decimals, recipient: common.HexToAddress(req.Recipient)}, nil
}

// execute performs the single submission of an attempt. submitted is true once
// a transaction hash exists.
func (o *Orchestrator) execute(ctx context.Context, donor common.Address, path Path, p plan, req DonateRequest) (common.Hash, bool, error) {
	switch path {
	case PathSponsored:
		calls, err := o.sponsoredCalls(p)
		if err != nil {
			return common.Hash{}, false, err
		}
		hash, err := o.relay.Submit(ctx, donor, calls)
		return hash, err == nil, err

	case PathPermit:
		calls, err := o.permitCalls(ctx, donor, p, req)
		if err != nil {
			return common.Hash{}, false, err
		}
		hash, err := o.relay.Submit(ctx, o.desc.Sponsor, calls)
		return hash, err == nil, err

	default:
		call, err := o.desc.DonateCall(p.base, p.recipient)
		if err != nil {
			return common.Hash{}, false, err
		}
		hash, err := req.Sender.Send(ctx, call)
		return hash, err == nil, err
	}
}

func (o *Orchestrator) sponsoredCalls(p plan) ([]chain.Call, error) {
	approve, err := o.desc.ApproveCall(o.desc.DonationContract, p.base)
	if err != nil {
		return nil, err
	}
	donate, err := o.desc.DonateCall(p.base, p.recipient)
	if err != nil {
		return nil, err
	}
	return []chain.Call{approve, donate}, nil
}

func (o *Orchestrator) permitCalls(ctx context.Context, donor common.Address, p plan, req DonateRequest) ([]chain.Call, error) {
	permit, err := o.newPermit(ctx, donor, p.base, req.PermitDeadline)
	if err != nil {
		return nil, err
	}
	digest, err := o.desc.PermitDigest(permit)
	if err != nil {
		return nil, err
	}

	sig, err := req.Signer.SignPermit(ctx, o.desc.PermitTypedData(permit), digest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureRejected, err)
	}
	signer, err := chain.RecoverSigner(digest, sig)
	if err != nil {
		return nil, err
	}
	if signer != donor {
		return nil, fmt.Errorf("%w: recovered %s", ErrSignerMismatch, signer.Hex())
	}
	parts, err := chain.SplitSignature(sig)
	if err != nil {
		return nil, err
	}

	permitCall, err := o.desc.PermitCall(permit, parts)
	if err != nil {
		return nil, err
	}
	pull, err := o.desc.TransferFromCall(donor, o.desc.Sponsor, p.base)
	if err != nil {
		return nil, err
	}
	approve, err := o.desc.ApproveCall(o.desc.DonationContract, p.base)
	if err != nil {
		return nil, err
	}
	donate, err := o.desc.DonateCall(p.base, p.recipient)
	if err != nil {
		return nil, err
	}
	return []chain.Call{permitCall, pull, approve, donate}, nil
}

func (o *Orchestrator) newPermit(ctx context.Context, owner common.Address, value, deadline *big.Int) (chain.Permit, error) {
	nonce, err := o.tokens.Nonces(ctx, owner)
	if err != nil {
		return chain.Permit{}, fmt.Errorf("read permit nonce: %w", err)
	}
	now := o.now()
	if deadline == nil {
		deadline = big.NewInt(now.Add(o.settings.PermitTTL).Unix())
	} else if deadline.Cmp(big.NewInt(now.Unix())) <= 0 {
		return chain.Permit{}, fmt.Errorf("permit deadline %s has passed", deadline)
	}
	return chain.Permit{
		Owner:    owner,
		Spender:  o.desc.Sponsor,
		Value:    new(big.Int).Set(value),
		Nonce:    nonce,
		Deadline: deadline,
	}, nil
}

// PermitRequest is the typed data the donor signs on the permit path.
type PermitRequest struct {
	Owner     string             `json:"owner"`
	Spender   string             `json:"spender"`
	Value     string             `json:"value"`
	Nonce     string             `json:"nonce"`
	Deadline  string             `json:"deadline"`
	Digest    string             `json:"digest"`
	TypedData apitypes.TypedData `json:"typed_data"`
}

// PreparePermit returns the permit the donor must sign for amountRaw.
func (o *Orchestrator) PreparePermit(ctx context.Context, id wallet.Identity, amountRaw string) (PermitRequest, error) {
	if !id.Authenticated {
		return PermitRequest{}, ErrLoginRequired
	}
	if SelectPath(id, o.settings.PermitEnabled) != PathPermit {
		return PermitRequest{}, ErrWrongPath
	}
	if !o.desc.HasSponsor() {
		return PermitRequest{}, ErrSponsorUnavailable
	}
	owner, ok := wallet.Resolve(id)
	if !ok {
		return PermitRequest{}, ErrAddressPending
	}
	base, err := chain.ParseAmount(amountRaw, o.reader.DecimalsOrDefault(ctx))
	if err != nil {
		return PermitRequest{}, invalid("amount", "%v", err)
	}
	if base.Sign() <= 0 {
		return PermitRequest{}, invalid("amount", "must be positive")
	}

	permit, err := o.newPermit(ctx, owner, base, nil)
	if err != nil {
		return PermitRequest{}, err
	}
	digest, err := o.desc.PermitDigest(permit)
	if err != nil {
		return PermitRequest{}, err
	}
	return PermitRequest{
		Owner:     permit.Owner.Hex(),
		Spender:   permit.Spender.Hex(),
		Value:     permit.Value.String(),
		Nonce:     permit.Nonce.String(),
		Deadline:  permit.Deadline.String(),
		Digest:    digest.Hex(),
		TypedData: o.desc.PermitTypedData(permit),
	}, nil
}

// PrepareDirect returns the donate call a direct-path donor sends from their wallet.
func (o *Orchestrator) PrepareDirect(ctx context.Context, id wallet.Identity, amountRaw, recipient string) (chain.Call, error) {
	if !id.Authenticated {
		return chain.Call{}, ErrLoginRequired
	}
	if SelectPath(id, o.settings.PermitEnabled) != PathDirect {
		return chain.Call{}, ErrWrongPath
	}
	if !common.IsHexAddress(recipient) {
		return chain.Call{}, invalid("recipient", "not a wallet address")
	}
	base, err := chain.ParseAmount(amountRaw, o.reader.DecimalsOrDefault(ctx))
	if err != nil {
		return chain.Call{}, invalid("amount", "%v", err)
	}
	if base.Sign() <= 0 {
		return chain.Call{}, invalid("amount", "must be positive")
	}
	return o.desc.DonateCall(base, common.HexToAddress(recipient))
}

// ApproveResult describes an approval step.
type ApproveResult struct {
	Path    Path        `json:"path"`
	Skipped bool        `json:"skipped"`
	Call    *chain.Call `json:"call,omitempty"`
	TxHash  string      `json:"tx_hash,omitempty"`
}

// Approve grants the donation contract an unlimited allowance on the direct path.
// The sponsored and permit paths authorize per donation, so it is a no-op there.
// Without a sender the approve call is returned for the wallet to send.
func (o *Orchestrator) Approve(ctx context.Context, id wallet.Identity, sender Sender) (ApproveResult, error) {
	path := SelectPath(id, o.settings.PermitEnabled)
	if !id.Authenticated {
		return ApproveResult{Path: path}, ErrLoginRequired
	}
	owner, ok := wallet.Resolve(id)
	if !ok {
		return ApproveResult{Path: path}, ErrAddressPending
	}
	if !path.RequiresApproval() {
		return ApproveResult{Path: path, Skipped: true}, nil
	}

	call, err := o.desc.ApproveCall(o.desc.DonationContract, math.MaxBig256)
	if err != nil {
		return ApproveResult{}, err
	}
	if sender == nil {
		return ApproveResult{Path: path, Call: &call}, nil
	}

	sess := o.registry.get(owner)
	if err := sess.begin(); err != nil {
		return ApproveResult{Path: path}, err
	}
	defer sess.finish(OutcomeNone, "", "")

	ctx = context.WithoutCancel(ctx)
	hash, err := sender.Send(ctx, call)
	if err != nil {
		return ApproveResult{Path: path}, fmt.Errorf("send approve: %w", err)
	}
	if _, err := o.waiter.Wait(ctx, hash); err != nil {
		return ApproveResult{Path: path, TxHash: hash.Hex()}, err
	}
	o.reader.Invalidate(ctx, owner)
	o.logger.Info("allowance approved", slog.String("owner", owner.Hex()), slog.String("tx_hash", hash.Hex()))
	return ApproveResult{Path: path, TxHash: hash.Hex()}, nil
}

func (o *Orchestrator) notify(ctx context.Context, msg notification.Message) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Send(ctx, msg); err != nil {
		o.logger.Warn("notification failed", slog.String("kind", msg.Kind), slog.Any("error", err))
	}
}
