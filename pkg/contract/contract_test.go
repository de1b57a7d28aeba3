package contract

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/strkey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starfund-labs/starfund/core/pkg/config"
	apperrors "github.com/starfund-labs/starfund/core/pkg/errors"
	"github.com/starfund-labs/starfund/core/pkg/rpc"
	"github.com/starfund-labs/starfund/core/pkg/scval"
	"github.com/starfund-labs/starfund/core/pkg/wallet"
)

func testContractID(t *testing.T) string {
	t.Helper()
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	id, err := strkey.Encode(strkey.VersionByteContract, raw)
	require.NoError(t, err)
	return id
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		ContractID:           testContractID(t),
		NetworkPassphrase:    config.TestnetPassphrase,
		ConfirmInterval:      time.Millisecond,
		ContractConfirmTries: 3,
		PaymentConfirmTries:  3,
	}
}

// fakeLedger is a scriptable Ledger that counts calls, for asserting which
// network round-trips an operation performs.
type fakeLedger struct {
	mu sync.Mutex

	balance      string
	campaign     *Campaign
	simErrors    map[string]string // method -> simulation error verdict
	submitStatus string
	txStatus     string

	simCalls    map[string]int
	submitCalls int
	getTxCalls  int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balance:      "100.0000000",
		simErrors:    map[string]string{},
		submitStatus: rpc.SubmitPending,
		txStatus:     rpc.TxSuccess,
		simCalls:     map[string]int{},
	}
}

func (f *fakeLedger) GetAccount(_ context.Context, address string) (*rpc.Account, error) {
	return &rpc.Account{Address: address, Sequence: 100}, nil
}

func (f *fakeLedger) NativeBalance(context.Context, string) (string, error) {
	return f.balance, nil
}

func (f *fakeLedger) Simulate(_ context.Context, envelopeXDR string) (*rpc.Simulation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	method, _, err := parseInvocation(envelopeXDR)
	if err != nil {
		return nil, err
	}
	f.simCalls[method]++

	if msg := f.simErrors[method]; msg != "" {
		return &rpc.Simulation{Error: msg}, nil
	}

	switch method {
	case "get_campaign":
		if f.campaign == nil {
			return &rpc.Simulation{Error: "HostError: Error(Storage, MissingValue)"}, nil
		}
		v, err := campaignScVal(f.campaign)
		if err != nil {
			return nil, err
		}
		encoded, err := scval.EncodeBase64(v)
		if err != nil {
			return nil, err
		}
		return &rpc.Simulation{RetVal: encoded, MinResourceFee: 1000}, nil
	case "get_count":
		encoded, err := scval.EncodeBase64(scval.U32(1))
		if err != nil {
			return nil, err
		}
		return &rpc.Simulation{RetVal: encoded, MinResourceFee: 1000}, nil
	}

	return &rpc.Simulation{MinResourceFee: 1000}, nil
}

func (f *fakeLedger) Submit(context.Context, string) (*rpc.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	return &rpc.Submission{Status: f.submitStatus, Hash: "deadbeef"}, nil
}

func (f *fakeLedger) GetTransaction(context.Context, string) (*rpc.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getTxCalls++
	return &rpc.Transaction{Status: f.txStatus, Ledger: 42}, nil
}

func (f *fakeLedger) GetEvents(context.Context, uint32, string, int) ([]rpc.Event, error) {
	return nil, nil
}

func (f *fakeLedger) LatestLedger(context.Context) (uint32, error) {
	return 42, nil
}

func newTestClient(t *testing.T, ledger Ledger) (*Client, string) {
	t.Helper()
	signer := wallet.NewRandomKeypairSigner()
	c, err := NewClient(testConfig(t), ledger, wallet.NewRegistry(signer))
	require.NoError(t, err)
	return c, signer.Address()
}

func TestNewClientRequiresContractID(t *testing.T) {
	cfg := testConfig(t)
	cfg.ContractID = ""
	_, err := NewClient(cfg, newFakeLedger(), wallet.NewRegistry())
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))
}

func TestCreateCampaignValidation(t *testing.T) {
	ledger := newFakeLedger()
	c, addr := newTestClient(t, ledger)
	ctx := context.Background()

	res := c.CreateCampaign(ctx, addr, wallet.KindLocal, "t", "d", 0, time.Hour)
	assert.Equal(t, StatusFail, res.Status)
	assert.Equal(t, apperrors.KindInvalidArgument, res.Kind)

	res = c.CreateCampaign(ctx, addr, wallet.KindLocal, "t", "d", 10*StroopsPerXLM, -time.Hour)
	assert.Equal(t, StatusFail, res.Status)
	assert.Equal(t, apperrors.KindInvalidArgument, res.Kind)

	res = c.CreateCampaign(ctx, addr, wallet.KindFreighter, "t", "d", 10*StroopsPerXLM, time.Hour)
	assert.Equal(t, apperrors.KindWalletNotFound, res.Kind)

	assert.Zero(t, ledger.submitCalls, "validation failures must not reach the network")
}

func TestCreateCampaignBalancePreflight(t *testing.T) {
	ledger := newFakeLedger()
	ledger.balance = "0.5000000"
	c, addr := newTestClient(t, ledger)

	res := c.CreateCampaign(context.Background(), addr, wallet.KindLocal, "t", "d", 10*StroopsPerXLM, time.Hour)
	assert.Equal(t, StatusFail, res.Status)
	assert.Equal(t, apperrors.KindInsufficientBalance, res.Kind)
	assert.Zero(t, ledger.submitCalls)
	assert.Zero(t, ledger.simCalls["create"])
}

func TestCreateCampaignSuccessInvalidatesCache(t *testing.T) {
	ledger := newFakeLedger()
	c, addr := newTestClient(t, ledger)
	ctx := context.Background()

	// Warm the count cache.
	_, err := c.GetCampaignCount(ctx)
	require.NoError(t, err)
	countSims := ledger.simCalls["get_count"]

	res := c.CreateCampaign(ctx, addr, wallet.KindLocal, "Well", "Water", 500*StroopsPerXLM, 24*time.Hour)
	require.Equal(t, StatusSuccess, res.Status, res.Error)
	assert.NotEmpty(t, res.Hash)

	// The cached count must be gone: the next read goes back to the ledger.
	_, err = c.GetCampaignCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, countSims+1, ledger.simCalls["get_count"])
}

func TestDonateGuards(t *testing.T) {
	now := time.Now()

	t.Run("overpayment names the remaining amount", func(t *testing.T) {
		ledger := newFakeLedger()
		ledger.campaign = &Campaign{
			ID: 0, Creator: keypair.MustRandom().Address(),
			Target: 100 * StroopsPerXLM, Raised: 95 * StroopsPerXLM,
			Deadline: now.Add(time.Hour).Unix(),
		}
		c, addr := newTestClient(t, ledger)

		res := c.Donate(context.Background(), addr, wallet.KindLocal, 0, 10*StroopsPerXLM)
		assert.Equal(t, StatusFail, res.Status)
		assert.Equal(t, apperrors.KindInvalidArgument, res.Kind)
		assert.Contains(t, res.Error, "only 5.0000000 XLM needed")
		assert.Zero(t, ledger.submitCalls, "the guard must fire before any submission")
	})

	t.Run("expired campaign", func(t *testing.T) {
		ledger := newFakeLedger()
		ledger.campaign = &Campaign{
			ID: 0, Creator: keypair.MustRandom().Address(),
			Target: 100 * StroopsPerXLM, Raised: 10 * StroopsPerXLM,
			Deadline: now.Add(-time.Hour).Unix(),
		}
		c, addr := newTestClient(t, ledger)

		res := c.Donate(context.Background(), addr, wallet.KindLocal, 0, StroopsPerXLM)
		assert.Equal(t, apperrors.KindInvalidArgument, res.Kind)
		assert.Contains(t, res.Error, "ended")
	})

	t.Run("funded campaign", func(t *testing.T) {
		ledger := newFakeLedger()
		ledger.campaign = &Campaign{
			ID: 0, Creator: keypair.MustRandom().Address(),
			Target: 100 * StroopsPerXLM, Raised: 100 * StroopsPerXLM,
			Deadline: now.Add(time.Hour).Unix(),
		}
		c, addr := newTestClient(t, ledger)

		res := c.Donate(context.Background(), addr, wallet.KindLocal, 0, StroopsPerXLM)
		assert.Equal(t, apperrors.KindInvalidArgument, res.Kind)
		assert.Contains(t, res.Error, "target")
	})

	t.Run("unknown campaign", func(t *testing.T) {
		ledger := newFakeLedger()
		c, addr := newTestClient(t, ledger)

		res := c.Donate(context.Background(), addr, wallet.KindLocal, 7, StroopsPerXLM)
		assert.Equal(t, apperrors.KindNotFound, res.Kind)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		ledger := newFakeLedger()
		c, addr := newTestClient(t, ledger)

		res := c.Donate(context.Background(), addr, wallet.KindLocal, 0, 0)
		assert.Equal(t, apperrors.KindInvalidArgument, res.Kind)
		assert.Zero(t, ledger.simCalls["get_campaign"], "amount check precedes the read")
	})
}

func TestDonatePartialFailureKeepsCacheStale(t *testing.T) {
	ledger := newFakeLedger()
	ledger.campaign = &Campaign{
		ID: 0, Creator: keypair.MustRandom().Address(),
		Target: 100 * StroopsPerXLM, Raised: 10 * StroopsPerXLM,
		Deadline: time.Now().Add(time.Hour).Unix(),
	}
	// The payment goes through; recording the donation does not.
	ledger.simErrors["donate"] = "HostError: contract trapped"

	c, addr := newTestClient(t, ledger)
	ctx := context.Background()

	res := c.Donate(ctx, addr, wallet.KindLocal, 0, 5*StroopsPerXLM)
	require.Equal(t, StatusFail, res.Status)
	assert.Equal(t, apperrors.KindSimulationFailed, res.Kind)
	assert.Contains(t, res.Error, "funds were already transferred")
	assert.Equal(t, 1, ledger.submitCalls, "only the payment was submitted")

	// The campaign entry cached during the guard read must survive: partial
	// failure performs no invalidation.
	reads := ledger.simCalls["get_campaign"]
	campaign, err := c.GetCampaign(ctx, 0, false)
	require.NoError(t, err)
	require.NotNil(t, campaign)
	assert.Equal(t, reads, ledger.simCalls["get_campaign"], "expected a cache hit")
}

func TestDonateFullSuccessInvalidatesCampaign(t *testing.T) {
	ledger := newFakeLedger()
	ledger.campaign = &Campaign{
		ID: 0, Creator: keypair.MustRandom().Address(),
		Target: 100 * StroopsPerXLM, Raised: 10 * StroopsPerXLM,
		Deadline: time.Now().Add(time.Hour).Unix(),
	}
	c, addr := newTestClient(t, ledger)
	ctx := context.Background()

	res := c.Donate(ctx, addr, wallet.KindLocal, 0, 5*StroopsPerXLM)
	require.Equal(t, StatusSuccess, res.Status, res.Error)
	assert.Equal(t, 2, ledger.submitCalls, "payment plus recording")

	// Entry invalidated: the next read goes back to the ledger.
	reads := ledger.simCalls["get_campaign"]
	_, err := c.GetCampaign(ctx, 0, false)
	require.NoError(t, err)
	assert.Equal(t, reads+1, ledger.simCalls["get_campaign"])
}

func TestConfirmStopsExactlyAtAttemptCap(t *testing.T) {
	ledger := newFakeLedger()
	ledger.txStatus = rpc.TxNotFound
	c, _ := newTestClient(t, ledger)

	res := c.confirm(context.Background(), "abc123", 4)
	assert.Equal(t, StatusFail, res.Status)
	assert.Equal(t, apperrors.KindTimeout, res.Kind)
	assert.Equal(t, "abc123", res.Hash)
	assert.Equal(t, 4, ledger.getTxCalls, "exactly maxAttempts queries")
}

func TestConfirmTerminalFailure(t *testing.T) {
	ledger := newFakeLedger()
	ledger.txStatus = rpc.TxFailed
	c, _ := newTestClient(t, ledger)

	res := c.confirm(context.Background(), "abc123", 4)
	assert.Equal(t, apperrors.KindOnChainFailed, res.Kind)
	assert.Equal(t, 1, ledger.getTxCalls, "terminal verdict ends polling")
}

func TestConfirmHonorsContextCancellation(t *testing.T) {
	ledger := newFakeLedger()
	ledger.txStatus = rpc.TxNotFound
	c, _ := newTestClient(t, ledger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := c.confirm(ctx, "abc123", 10)
	assert.Equal(t, StatusFail, res.Status)
	assert.Less(t, ledger.getTxCalls, 10)
}

func TestGetCampaignSkipCache(t *testing.T) {
	ledger := newFakeLedger()
	ledger.campaign = &Campaign{
		ID: 0, Creator: keypair.MustRandom().Address(),
		Title: "Well", Target: 100 * StroopsPerXLM, Raised: 10 * StroopsPerXLM,
		Deadline: time.Now().Add(time.Hour).Unix(),
	}
	c, _ := newTestClient(t, ledger)
	ctx := context.Background()

	first, err := c.GetCampaign(ctx, 0, false)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "Well", first.Title)
	assert.Equal(t, 1, ledger.simCalls["get_campaign"])

	_, err = c.GetCampaign(ctx, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.simCalls["get_campaign"], "second read served from cache")

	_, err = c.GetCampaign(ctx, 0, true)
	require.NoError(t, err)
	assert.Equal(t, 2, ledger.simCalls["get_campaign"], "skipCache forces a ledger read")
}

func TestGetCampaignMissingReturnsNil(t *testing.T) {
	c, _ := newTestClient(t, newFakeLedger())

	campaign, err := c.GetCampaign(context.Background(), 99, false)
	require.NoError(t, err)
	assert.Nil(t, campaign)
}

func TestLifecycleAgainstMockLedger(t *testing.T) {
	cfg := testConfig(t)
	mock := NewMockLedger(cfg.ContractID, cfg.NetworkPassphrase)
	signer := wallet.NewRandomKeypairSigner()
	c, err := NewClient(cfg, mock, wallet.NewRegistry(signer))
	require.NoError(t, err)
	ctx := context.Background()
	addr := signer.Address()

	count, err := c.GetCampaignCount(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(3), count)

	res := c.CreateCampaign(ctx, addr, wallet.KindLocal, "New Roof", "Fix the library roof", 50*StroopsPerXLM, 48*time.Hour)
	require.Equal(t, StatusSuccess, res.Status, res.Error)

	count, err = c.GetCampaignCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), count)

	created, err := c.GetCampaign(ctx, 3, false)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "New Roof", created.Title)
	assert.Equal(t, addr, created.Creator)
	assert.Equal(t, int64(50*StroopsPerXLM), created.Target)
	assert.Zero(t, created.Raised)

	res = c.Donate(ctx, addr, wallet.KindLocal, 3, 20*StroopsPerXLM)
	require.Equal(t, StatusSuccess, res.Status, res.Error)

	after, err := c.GetCampaign(ctx, 3, true)
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Equal(t, int64(20*StroopsPerXLM), after.Raised)

	// Campaign 2 is seeded past its deadline and fully funded.
	res = c.Claim(ctx, addr, wallet.KindLocal, 2)
	require.Equal(t, StatusSuccess, res.Status, res.Error)

	claimed, err := c.GetCampaign(ctx, 2, true)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.True(t, claimed.Claimed)

	events, err := mock.GetEvents(ctx, 0, cfg.ContractID, 0)
	require.NoError(t, err)
	assert.Len(t, events, 3, "create, donate, claim")
}
