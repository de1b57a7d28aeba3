package contract

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"

	"github.com/starfund-labs/starfund/core/pkg/rpc"
	"github.com/starfund-labs/starfund/core/pkg/scval"
)

// MockLedger is an in-memory Ledger for development and demos without a
// deployed contract. It parses submitted envelopes and applies the same state
// transitions the contract would, so the full write lifecycle (simulate,
// sign, submit, confirm) and the event feed work against it unchanged.
type MockLedger struct {
	mu         sync.Mutex
	contractID string
	passphrase string

	campaigns map[uint32]*Campaign
	count     uint32
	events    []rpc.Event
	sequences map[string]int64
	ledgerSeq uint32
}

// NewMockLedger seeds three campaigns: two open and one past its deadline,
// fully funded and ready to claim.
func NewMockLedger(contractID, networkPassphrase string) *MockLedger {
	m := &MockLedger{
		contractID: contractID,
		passphrase: networkPassphrase,
		campaigns:  make(map[uint32]*Campaign),
		sequences:  make(map[string]int64),
		ledgerSeq:  5000,
	}

	now := time.Now()
	m.seed(&Campaign{
		Creator:     keypair.MustRandom().Address(),
		Title:       "Community Well",
		Description: "Clean water for the village school",
		Target:      500 * StroopsPerXLM,
		Deadline:    now.Add(30 * 24 * time.Hour).Unix(),
		Raised:      120 * StroopsPerXLM,
	})
	m.seed(&Campaign{
		Creator:     keypair.MustRandom().Address(),
		Title:       "Open Source Grant",
		Description: "Fund a month of maintenance work",
		Target:      200 * StroopsPerXLM,
		Deadline:    now.Add(7 * 24 * time.Hour).Unix(),
		Raised:      45 * StroopsPerXLM,
	})
	m.seed(&Campaign{
		Creator:     keypair.MustRandom().Address(),
		Title:       "Hackathon Prize Pool",
		Description: "Prizes for the winter hackathon",
		Target:      100 * StroopsPerXLM,
		Deadline:    now.Add(-24 * time.Hour).Unix(),
		Raised:      100 * StroopsPerXLM,
	})

	return m
}

func (m *MockLedger) seed(c *Campaign) {
	c.ID = m.count
	m.campaigns[c.ID] = c
	m.count++
}

// GetAccount returns a synthetic account with a stable per-address sequence.
func (m *MockLedger) GetAccount(_ context.Context, address string) (*rpc.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sequences[address]; !ok {
		m.sequences[address] = 1000
	}
	return &rpc.Account{Address: address, Sequence: m.sequences[address]}, nil
}

// NativeBalance reports a generous fixed balance so pre-flight checks pass.
func (m *MockLedger) NativeBalance(context.Context, string) (string, error) {
	return "10000.0000000", nil
}

// Simulate parses the envelope and answers like the deployed contract would:
// read methods return encoded state, writes are vetted against the same
// guards the contract enforces.
func (m *MockLedger) Simulate(_ context.Context, envelopeXDR string) (*rpc.Simulation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	method, args, err := parseInvocation(envelopeXDR)
	if err != nil {
		return nil, err
	}
	if method == "" {
		// Payments and other classic operations simulate trivially.
		return m.okSimulation("")
	}

	switch method {
	case "get_count":
		retVal, err := scval.EncodeBase64(scval.U32(m.count))
		if err != nil {
			return nil, err
		}
		return m.okSimulation(retVal)

	case "get_campaign":
		id, ok := argU32(args, 0)
		campaign := m.campaigns[id]
		if !ok || campaign == nil {
			return m.failedSimulation("HostError: Error(Storage, MissingValue)")
		}
		v, err := campaignScVal(campaign)
		if err != nil {
			return nil, err
		}
		retVal, err := scval.EncodeBase64(v)
		if err != nil {
			return nil, err
		}
		return m.okSimulation(retVal)

	case "create":
		return m.okSimulation("")

	case "donate":
		id, _ := argU32(args, 1)
		donation, _ := argI128(args, 2)
		campaign := m.campaigns[id]
		switch {
		case campaign == nil:
			return m.failedSimulation("HostError: Error(Storage, MissingValue)")
		case time.Now().Unix() > campaign.Deadline:
			return m.failedSimulation("HostError: campaign deadline passed")
		case campaign.Raised+donation > campaign.Target:
			return m.failedSimulation("HostError: donation exceeds target")
		}
		return m.okSimulation("")

	case "claim":
		id, _ := argU32(args, 0)
		campaign := m.campaigns[id]
		switch {
		case campaign == nil:
			return m.failedSimulation("HostError: Error(Storage, MissingValue)")
		case campaign.Claimed:
			return m.failedSimulation("HostError: already claimed")
		case time.Now().Unix() <= campaign.Deadline:
			return m.failedSimulation("HostError: campaign still running")
		}
		return m.okSimulation("")
	}

	return m.failedSimulation(fmt.Sprintf("HostError: unknown function %q", method))
}

func (m *MockLedger) okSimulation(retVal string) (*rpc.Simulation, error) {
	sorobanData, err := xdr.MarshalBase64(xdr.SorobanTransactionData{})
	if err != nil {
		return nil, err
	}
	return &rpc.Simulation{
		TransactionData: sorobanData,
		MinResourceFee:  50_000,
		RetVal:          retVal,
		LatestLedger:    m.ledgerSeq,
	}, nil
}

func (m *MockLedger) failedSimulation(msg string) (*rpc.Simulation, error) {
	return &rpc.Simulation{Error: msg, LatestLedger: m.ledgerSeq}, nil
}

// Submit applies the envelope's state transition and records the matching
// contract event.
func (m *MockLedger) Submit(_ context.Context, envelopeXDR string) (*rpc.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	generic, err := txnbuild.TransactionFromXDR(envelopeXDR)
	if err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}
	tx, ok := generic.Transaction()
	if !ok {
		return nil, fmt.Errorf("fee-bump envelopes are not supported")
	}
	hash, err := tx.HashHex(m.passphrase)
	if err != nil {
		return nil, err
	}

	m.ledgerSeq++
	m.sequences[tx.SourceAccount().AccountID] = tx.SourceAccount().Sequence

	for _, op := range tx.Operations() {
		ihf, ok := op.(*txnbuild.InvokeHostFunction)
		if !ok {
			continue // payments carry no contract state
		}
		invoke := ihf.HostFunction.InvokeContract
		if invoke == nil {
			continue
		}
		m.apply(string(invoke.FunctionName), []xdr.ScVal(invoke.Args))
	}

	return &rpc.Submission{
		Status:       rpc.SubmitPending,
		Hash:         hash,
		LatestLedger: m.ledgerSeq,
	}, nil
}

func (m *MockLedger) apply(method string, args []xdr.ScVal) {
	switch method {
	case "create":
		creator, _ := argString(args, 0)
		title, _ := argString(args, 1)
		desc, _ := argString(args, 2)
		target, _ := argI128(args, 3)
		deadline, _ := argU64(args, 4)
		id := m.count
		m.seed(&Campaign{
			Creator:     creator,
			Title:       title,
			Description: desc,
			Target:      target,
			Deadline:    int64(deadline),
		})
		m.emit("create", scval.Vec(scval.U32(id), scval.String(creator)))

	case "donate":
		id, _ := argU32(args, 1)
		donation, _ := argI128(args, 2)
		if campaign := m.campaigns[id]; campaign != nil {
			campaign.Raised += donation
			m.emit("donate", scval.Vec(scval.U32(id), scval.I128(donation)))
		}

	case "claim":
		id, _ := argU32(args, 0)
		if campaign := m.campaigns[id]; campaign != nil {
			campaign.Claimed = true
			m.emit("claim", scval.Vec(scval.U32(id), scval.I128(campaign.Raised)))
		}
	}
}

func (m *MockLedger) emit(name string, value xdr.ScVal) {
	topic, err := scval.EncodeBase64(scval.Symbol(name))
	if err != nil {
		return
	}
	payload, err := scval.EncodeBase64(value)
	if err != nil {
		return
	}
	m.events = append(m.events, rpc.Event{
		Type:           "contract",
		Ledger:         m.ledgerSeq,
		LedgerClosedAt: time.Now().UTC().Format(time.RFC3339),
		ContractID:     m.contractID,
		ID:             fmt.Sprintf("%010d-%d", m.ledgerSeq, len(m.events)),
		Topics:         []string{topic},
		Value:          payload,
	})
}

// GetTransaction reports immediate success; the mock has no mempool.
func (m *MockLedger) GetTransaction(context.Context, string) (*rpc.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &rpc.Transaction{
		Status:    rpc.TxSuccess,
		Ledger:    m.ledgerSeq,
		CreatedAt: fmt.Sprint(time.Now().Unix()),
	}, nil
}

// GetEvents returns recorded events at or after startLedger, up to limit.
func (m *MockLedger) GetEvents(_ context.Context, startLedger uint32, _ string, limit int) ([]rpc.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []rpc.Event
	for _, ev := range m.events {
		if ev.Ledger < startLedger {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// LatestLedger returns the synthetic ledger sequence, advanced on every
// submission.
func (m *MockLedger) LatestLedger(context.Context) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledgerSeq, nil
}

func campaignScVal(c *Campaign) (xdr.ScVal, error) {
	creator, err := scval.Address(c.Creator)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return scval.Map(
		[]string{fieldClaimed, fieldCreator, fieldDeadline, fieldDesc, fieldRaised, fieldTarget, fieldTitle},
		[]xdr.ScVal{
			scval.Bool(c.Claimed),
			creator,
			scval.U64(uint64(c.Deadline)),
			scval.String(c.Description),
			scval.I128(c.Raised),
			scval.I128(c.Target),
			scval.String(c.Title),
		},
	)
}

// parseInvocation extracts the invoked method and arguments from an envelope,
// or returns an empty method for classic (non-contract) transactions.
func parseInvocation(envelopeXDR string) (string, []xdr.ScVal, error) {
	generic, err := txnbuild.TransactionFromXDR(envelopeXDR)
	if err != nil {
		return "", nil, fmt.Errorf("parse envelope: %w", err)
	}
	tx, ok := generic.Transaction()
	if !ok {
		return "", nil, fmt.Errorf("fee-bump envelopes are not supported")
	}
	for _, op := range tx.Operations() {
		ihf, ok := op.(*txnbuild.InvokeHostFunction)
		if !ok {
			continue
		}
		if invoke := ihf.HostFunction.InvokeContract; invoke != nil {
			return string(invoke.FunctionName), []xdr.ScVal(invoke.Args), nil
		}
	}
	return "", nil, nil
}

func argU32(args []xdr.ScVal, i int) (uint32, bool) {
	if i >= len(args) {
		return 0, false
	}
	n, ok := scval.ToNative(args[i]).(uint32)
	return n, ok
}

func argU64(args []xdr.ScVal, i int) (uint64, bool) {
	if i >= len(args) {
		return 0, false
	}
	n, ok := scval.ToNative(args[i]).(uint64)
	return n, ok
}

func argI128(args []xdr.ScVal, i int) (int64, bool) {
	if i >= len(args) {
		return 0, false
	}
	n, ok := scval.ToNative(args[i]).(int64)
	return n, ok
}

func argString(args []xdr.ScVal, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := scval.ToNative(args[i]).(string)
	return s, ok
}
