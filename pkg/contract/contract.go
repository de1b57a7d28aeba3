// Package contract orchestrates the crowdfunding contract's transaction
// lifecycle: building, simulating, signing, submitting, and confirming
// invocations, plus cached read paths for campaign state. Writes return a
// terminal TransactionResult rather than an error so callers always get the
// hash and classified failure kind together.
package contract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/stellar/go/amount"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/xdr"

	"github.com/starfund-labs/starfund/core/pkg/cache"
	"github.com/starfund-labs/starfund/core/pkg/config"
	apperrors "github.com/starfund-labs/starfund/core/pkg/errors"
	"github.com/starfund-labs/starfund/core/pkg/observability"
	"github.com/starfund-labs/starfund/core/pkg/rpc"
	"github.com/starfund-labs/starfund/core/pkg/scval"
	"github.com/starfund-labs/starfund/core/pkg/wallet"
)

// Client drives the crowdfunding contract. One instance is safe for
// concurrent use; reads share the campaign cache and writes invalidate it.
type Client struct {
	ledger  Ledger
	wallets *wallet.Registry
	cache   *cache.Campaigns[Campaign]
	obs     *observability.Provider
	logger  *slog.Logger

	contractID string
	passphrase string

	confirmInterval time.Duration
	contractTries   int
	paymentTries    int

	now func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithObservability attaches a telemetry provider.
func WithObservability(p *observability.Provider) Option {
	return func(c *Client) { c.obs = p }
}

// WithConfirmInterval overrides the delay between confirmation polls.
func WithConfirmInterval(d time.Duration) Option {
	return func(c *Client) { c.confirmInterval = d }
}

// WithCacheTTL overrides the campaign cache freshness window.
func WithCacheTTL(d time.Duration) Option {
	return func(c *Client) { c.cache = cache.New[Campaign]().WithTTL(d) }
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient builds a contract client from configuration. The ledger is the
// remote (or mock) backend and the registry supplies signers by wallet kind.
func NewClient(cfg *config.Config, ledger Ledger, wallets *wallet.Registry, opts ...Option) (*Client, error) {
	if cfg.ContractID == "" {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "contract id is not configured")
	}
	if ledger == nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "ledger backend is required")
	}

	c := &Client{
		ledger:          ledger,
		wallets:         wallets,
		cache:           cache.New[Campaign](),
		logger:          slog.Default().With("component", "contract"),
		contractID:      cfg.ContractID,
		passphrase:      cfg.NetworkPassphrase,
		confirmInterval: cfg.ConfirmInterval,
		contractTries:   cfg.ContractConfirmTries,
		paymentTries:    cfg.PaymentConfirmTries,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreateCampaign creates a new campaign with the given funding target (in
// stroops) and duration. On success the full cache is invalidated so the new
// campaign and count are observed on the next read.
func (c *Client) CreateCampaign(ctx context.Context, caller string, kind wallet.Kind, title, description string, targetStroops int64, duration time.Duration) TransactionResult {
	ctx, done := c.obs.StartOperation(ctx, "create_campaign")
	log := c.logger.With("op", "create_campaign", "op_id", uuid.NewString())

	res := c.createCampaign(ctx, log, caller, kind, title, description, targetStroops, duration)
	done(res.Err())
	return res
}

func (c *Client) createCampaign(ctx context.Context, log *slog.Logger, caller string, kind wallet.Kind, title, description string, targetStroops int64, duration time.Duration) TransactionResult {
	if targetStroops <= 0 {
		return failResult(apperrors.KindInvalidArgument, "", "target amount must be positive")
	}
	if duration <= 0 {
		return failResult(apperrors.KindInvalidArgument, "", "campaign duration must be positive")
	}

	signer, err := c.wallets.For(kind)
	if err != nil {
		return failFrom("", err)
	}
	if err := wallet.ValidateBalance(ctx, c.ledger, caller, minCreatorReserveXLM); err != nil {
		return failFrom("", err)
	}

	callerVal, err := scval.Address(caller)
	if err != nil {
		return failResult(apperrors.KindInvalidArgument, "", fmt.Sprintf("invalid creator address: %v", err))
	}

	deadline := c.now().Add(duration).Unix()
	args := []xdr.ScVal{
		callerVal,
		scval.String(title),
		scval.String(description),
		scval.I128(targetStroops),
		scval.U64(uint64(deadline)),
	}

	res := c.invoke(ctx, log, signer, caller, "create", args, c.contractTries)
	if res.Status == StatusSuccess {
		c.cache.Invalidate()
		log.Info("campaign created", "hash", res.Hash, "target", targetStroops)
	}
	return res
}

// Donate runs the two-phase donation: a native payment to the creator first,
// then a contract invocation recording the amount. If the payment lands but
// the recording fails, the result says so explicitly and the cache is left
// untouched so stale state cannot mask the divergence.
func (c *Client) Donate(ctx context.Context, caller string, kind wallet.Kind, campaignID uint32, amountStroops int64) TransactionResult {
	ctx, done := c.obs.StartOperation(ctx, "donate")
	log := c.logger.With("op", "donate", "op_id", uuid.NewString(), "campaign_id", campaignID)

	res := c.donate(ctx, log, caller, kind, campaignID, amountStroops)
	done(res.Err())
	return res
}

func (c *Client) donate(ctx context.Context, log *slog.Logger, caller string, kind wallet.Kind, campaignID uint32, amountStroops int64) TransactionResult {
	if amountStroops <= 0 {
		return failResult(apperrors.KindInvalidArgument, "", "donation amount must be positive")
	}

	campaign, err := c.GetCampaign(ctx, campaignID, false)
	if err != nil {
		return failFrom("", err)
	}
	if campaign == nil {
		return failResult(apperrors.KindNotFound, "", fmt.Sprintf("campaign %d not found", campaignID))
	}
	if campaign.Expired(c.now()) {
		return failResult(apperrors.KindInvalidArgument, "", "campaign has ended")
	}
	if campaign.Funded() {
		return failResult(apperrors.KindInvalidArgument, "", "campaign has already reached its target")
	}
	if campaign.Raised+amountStroops > campaign.Target {
		return failResult(apperrors.KindInvalidArgument, "",
			fmt.Sprintf("donation exceeds the remaining target: only %s XLM needed", amount.StringFromInt64(campaign.Remaining())))
	}

	signer, err := c.wallets.For(kind)
	if err != nil {
		return failFrom("", err)
	}

	// Phase 1: pay the creator.
	account, err := c.ledger.GetAccount(ctx, caller)
	if err != nil {
		return failFrom("", err)
	}
	payTx, err := buildPayment(account, campaign.Creator, amountStroops)
	if err != nil {
		return failFrom("", err)
	}
	envelope, err := payTx.Base64()
	if err != nil {
		return failFrom("", err)
	}
	signed, err := signer.SignTransaction(ctx, envelope, c.passphrase)
	if err != nil {
		return failFrom("", err)
	}
	sub, err := c.ledger.Submit(ctx, signed)
	if err != nil {
		return failFrom("", err)
	}
	if sub.Status == rpc.SubmitError {
		return failResult(apperrors.KindSubmissionError, sub.Hash, "payment submission failed: "+sub.ErrorResultXDR)
	}
	payRes := c.confirm(ctx, sub.Hash, c.paymentTries)
	if payRes.Failed() {
		return failResult(payRes.Kind, payRes.Hash, "payment failed: "+payRes.Error)
	}
	log.Debug("payment confirmed", "hash", payRes.Hash, "amount", amountStroops)

	// Phase 2: record the donation on the contract.
	donorVal, err := scval.Address(caller)
	if err != nil {
		return failResult(apperrors.KindInvalidArgument, "", fmt.Sprintf("invalid donor address: %v", err))
	}
	args := []xdr.ScVal{donorVal, scval.U32(campaignID), scval.I128(amountStroops)}

	recRes := c.invoke(ctx, log, signer, caller, "donate", args, c.contractTries)
	if recRes.Failed() {
		log.Warn("donation recording failed after payment", "payment_hash", payRes.Hash, "error", recRes.Error)
		return failResult(recRes.Kind, recRes.Hash,
			"payment succeeded but recording the donation failed: "+recRes.Error+
				" (funds were already transferred to the creator, payment "+payRes.Hash+")")
	}

	c.cache.InvalidateCampaign(campaignID)
	log.Info("donation recorded", "hash", recRes.Hash, "amount", amountStroops)
	return recRes
}

// Claim lets a creator collect a finished campaign. The contract enforces
// that the deadline has passed, the caller is the creator, and the funds were
// not claimed before.
func (c *Client) Claim(ctx context.Context, caller string, kind wallet.Kind, campaignID uint32) TransactionResult {
	ctx, done := c.obs.StartOperation(ctx, "claim")
	log := c.logger.With("op", "claim", "op_id", uuid.NewString(), "campaign_id", campaignID)

	res := c.claim(ctx, log, caller, kind, campaignID)
	done(res.Err())
	return res
}

func (c *Client) claim(ctx context.Context, log *slog.Logger, caller string, kind wallet.Kind, campaignID uint32) TransactionResult {
	signer, err := c.wallets.For(kind)
	if err != nil {
		return failFrom("", err)
	}

	res := c.invoke(ctx, log, signer, caller, "claim", []xdr.ScVal{scval.U32(campaignID)}, c.contractTries)
	if res.Status == StatusSuccess {
		c.cache.InvalidateCampaign(campaignID)
		log.Info("campaign claimed", "hash", res.Hash)
	}
	return res
}

// invoke runs the write lifecycle for one contract call: build, simulate,
// assemble, sign, submit, confirm.
func (c *Client) invoke(ctx context.Context, log *slog.Logger, signer wallet.Signer, caller, method string, args []xdr.ScVal, confirmTries int) TransactionResult {
	account, err := c.ledger.GetAccount(ctx, caller)
	if err != nil {
		return failFrom("", err)
	}

	tx, err := c.buildInvoke(account, method, args, feeContractCall, invokeTimeout, nil)
	if err != nil {
		return failFrom("", err)
	}
	envelope, err := tx.Base64()
	if err != nil {
		return failFrom("", err)
	}

	sim, err := c.ledger.Simulate(ctx, envelope)
	if err != nil {
		return failFrom("", err)
	}
	if sim.Failed() {
		return failResult(apperrors.KindSimulationFailed, "", "simulation failed: "+sim.Error)
	}

	prepared, err := c.buildInvoke(account, method, args, feeContractCall, invokeTimeout, sim)
	if err != nil {
		return failFrom("", err)
	}
	preparedXDR, err := prepared.Base64()
	if err != nil {
		return failFrom("", err)
	}

	signed, err := signer.SignTransaction(ctx, preparedXDR, c.passphrase)
	if err != nil {
		return failFrom("", err)
	}

	sub, err := c.ledger.Submit(ctx, signed)
	if err != nil {
		return failFrom("", err)
	}
	if sub.Status == rpc.SubmitError {
		return failResult(apperrors.KindSubmissionError, sub.Hash, "submission failed: "+sub.ErrorResultXDR)
	}
	log.Debug("transaction submitted", "hash", sub.Hash, "method", method)

	return c.confirm(ctx, sub.Hash, confirmTries)
}

// GetCampaign returns one campaign, or nil when the contract has no entry for
// the id. Served from cache when fresh unless skipCache forces a ledger read.
func (c *Client) GetCampaign(ctx context.Context, id uint32, skipCache bool) (*Campaign, error) {
	if !skipCache {
		if campaign, ok := c.cache.Campaign(id); ok {
			return &campaign, nil
		}
	}

	retVal, err := c.simulateRead(ctx, "get_campaign", []xdr.ScVal{scval.U32(id)})
	if err != nil {
		return nil, err
	}
	if retVal == nil {
		return nil, nil
	}

	campaign, err := decodeCampaign(id, *retVal)
	if err != nil {
		return nil, err
	}
	c.cache.SetCampaign(id, *campaign)
	return campaign, nil
}

// GetCampaignCount returns the number of campaigns ever created, from cache
// when fresh.
func (c *Client) GetCampaignCount(ctx context.Context) (uint32, error) {
	if n, ok := c.cache.Count(); ok {
		return n, nil
	}

	retVal, err := c.simulateRead(ctx, "get_count", nil)
	if err != nil {
		return 0, err
	}
	if retVal == nil {
		return 0, nil
	}

	n, ok := scval.ToNative(*retVal).(uint32)
	if !ok {
		return 0, apperrors.Newf(apperrors.KindUnknown, "get_count returned a non-u32 value")
	}
	c.cache.SetCount(n)
	return n, nil
}

// simulateRead runs a read-only invocation through simulateTransaction. The
// source account is a throwaway identity; nothing is signed or submitted. A
// failed simulation maps to a nil value, matching the contract's behavior of
// trapping on missing storage keys.
func (c *Client) simulateRead(ctx context.Context, method string, args []xdr.ScVal) (*xdr.ScVal, error) {
	source := &rpc.Account{Address: keypair.MustRandom().Address(), Sequence: 0}

	tx, err := c.buildInvoke(source, method, args, feeReadOnly, readTimeout, nil)
	if err != nil {
		return nil, err
	}
	envelope, err := tx.Base64()
	if err != nil {
		return nil, err
	}

	sim, err := c.ledger.Simulate(ctx, envelope)
	if err != nil {
		return nil, err
	}
	if sim.Failed() || sim.RetVal == "" {
		return nil, nil
	}

	v, err := scval.DecodeBase64(sim.RetVal)
	if err != nil {
		return nil, fmt.Errorf("decode %s return value: %w", method, err)
	}
	return &v, nil
}

// campaignFields are the map keys the contract stores a campaign under.
const (
	fieldCreator  = "creator"
	fieldTitle    = "title"
	fieldDesc     = "desc"
	fieldTarget   = "target"
	fieldDeadline = "deadline"
	fieldRaised   = "raised"
	fieldClaimed  = "claimed"
)

func decodeCampaign(id uint32, v xdr.ScVal) (*Campaign, error) {
	m, ok := scval.ToNative(v).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("campaign %d: expected a map, got %T", id, scval.ToNative(v))
	}

	campaign := &Campaign{ID: id}
	campaign.Creator, _ = m[fieldCreator].(string)
	campaign.Title, _ = m[fieldTitle].(string)
	campaign.Description, _ = m[fieldDesc].(string)
	campaign.Claimed, _ = m[fieldClaimed].(bool)

	target, ok := m[fieldTarget].(int64)
	if !ok {
		return nil, fmt.Errorf("campaign %d: missing or non-numeric target", id)
	}
	campaign.Target = target

	raised, ok := m[fieldRaised].(int64)
	if !ok {
		return nil, fmt.Errorf("campaign %d: missing or non-numeric raised amount", id)
	}
	campaign.Raised = raised

	deadline, ok := m[fieldDeadline].(uint64)
	if !ok {
		return nil, fmt.Errorf("campaign %d: missing or non-numeric deadline", id)
	}
	campaign.Deadline = int64(deadline)

	return campaign, nil
}
