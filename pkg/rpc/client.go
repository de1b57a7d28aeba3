// Package rpc is the typed wrapper around the remote ledger: Soroban
// JSON-RPC for simulation, submission, transaction status, and events, and
// Horizon for account lookup and balances. It is the module's sole network
// boundary; it holds no state beyond connection plumbing, so a single client
// is safe to share between the orchestrator and the event poller.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/starfund-labs/starfund/core/pkg/errors"
)

const defaultTimeout = 30 * time.Second

// Client talks to a Soroban RPC endpoint and a Horizon instance.
type Client struct {
	rpcURL  string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	nextID  atomic.Int64

	horizon      accountSource
	friendbotURL string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit caps outbound RPC calls per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithFriendbot sets the faucet endpoint used by Fund.
func WithFriendbot(url string) Option {
	return func(c *Client) { c.friendbotURL = url }
}

// New creates a client for the given Soroban RPC and Horizon endpoints.
func New(rpcURL, horizonURL string, opts ...Option) *Client {
	c := &Client{
		rpcURL:  rpcURL,
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		logger:  slog.Default().With("component", "rpc"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.horizon = newHorizon(horizonURL, c.http)
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// call performs one JSON-RPC round-trip and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperrors.Wrap(apperrors.KindNetworkError, "rate limiter", err)
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("rpc %s: marshal request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("rpc %s: create request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.KindNetworkError, "rpc "+method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return apperrors.Wrap(apperrors.KindNetworkError,
			fmt.Sprintf("rpc %s: http %d", method, resp.StatusCode), nil)
	}

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return apperrors.Wrap(apperrors.KindNetworkError, "rpc "+method+": decode", err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("rpc %s: %d %s", method, envelope.Error.Code, envelope.Error.Message)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("rpc %s: decode result: %w", method, err)
		}
	}
	return nil
}

// GetAccount fetches the account id and sequence number from Horizon.
func (c *Client) GetAccount(ctx context.Context, address string) (*Account, error) {
	return c.horizon.account(ctx, address)
}

// NativeBalance returns the account's XLM balance as a decimal string.
// Missing accounts report "0" rather than an error; an unfunded account and
// a zero-balance account call for the same user action.
func (c *Client) NativeBalance(ctx context.Context, address string) (string, error) {
	return c.horizon.nativeBalance(ctx, address)
}

type simulateResult struct {
	TransactionData string `json:"transactionData"`
	MinResourceFee  string `json:"minResourceFee"`
	Results         []struct {
		Auth []string `json:"auth"`
		XDR  string   `json:"xdr"`
	} `json:"results"`
	LatestLedger uint32 `json:"latestLedger"`
	Error        string `json:"error"`
}

// Simulate performs a read-only, fee-free dry run of the transaction.
func (c *Client) Simulate(ctx context.Context, envelopeXDR string) (*Simulation, error) {
	var res simulateResult
	params := map[string]any{"transaction": envelopeXDR}
	if err := c.call(ctx, "simulateTransaction", params, &res); err != nil {
		return nil, err
	}

	sim := &Simulation{
		TransactionData: res.TransactionData,
		LatestLedger:    res.LatestLedger,
		Error:           res.Error,
	}
	if res.MinResourceFee != "" {
		fee, err := strconv.ParseInt(res.MinResourceFee, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("simulate: bad minResourceFee %q: %w", res.MinResourceFee, err)
		}
		sim.MinResourceFee = fee
	}
	if len(res.Results) > 0 {
		sim.Auth = res.Results[0].Auth
		sim.RetVal = res.Results[0].XDR
	}
	return sim, nil
}

type sendResult struct {
	Status         string `json:"status"`
	Hash           string `json:"hash"`
	ErrorResultXDR string `json:"errorResultXdr"`
	LatestLedger   uint32 `json:"latestLedger"`
}

// Submit sends a signed transaction envelope to the network.
func (c *Client) Submit(ctx context.Context, envelopeXDR string) (*Submission, error) {
	var res sendResult
	params := map[string]any{"transaction": envelopeXDR}
	if err := c.call(ctx, "sendTransaction", params, &res); err != nil {
		return nil, err
	}
	c.logger.Debug("transaction submitted", "hash", res.Hash, "status", res.Status)
	return &Submission{
		Status:         res.Status,
		Hash:           res.Hash,
		ErrorResultXDR: res.ErrorResultXDR,
		LatestLedger:   res.LatestLedger,
	}, nil
}

type getTransactionResult struct {
	Status    string `json:"status"`
	Ledger    uint32 `json:"ledger"`
	ResultXDR string `json:"resultXdr"`
	CreatedAt string `json:"createdAt"`
}

// GetTransaction queries the status of a submitted transaction by hash.
func (c *Client) GetTransaction(ctx context.Context, hash string) (*Transaction, error) {
	var res getTransactionResult
	params := map[string]any{"hash": hash}
	if err := c.call(ctx, "getTransaction", params, &res); err != nil {
		return nil, err
	}
	return &Transaction{
		Status:    res.Status,
		Ledger:    res.Ledger,
		ResultXDR: res.ResultXDR,
		CreatedAt: res.CreatedAt,
	}, nil
}

type getEventsResult struct {
	Events []struct {
		Type           string   `json:"type"`
		Ledger         uint32   `json:"ledger"`
		LedgerClosedAt string   `json:"ledgerClosedAt"`
		ContractID     string   `json:"contractId"`
		ID             string   `json:"id"`
		Topic          []string `json:"topic"`
		Value          string   `json:"value"`
	} `json:"events"`
	LatestLedger uint32 `json:"latestLedger"`
}

// GetEvents returns contract events from startLedger onward, filtered to one
// contract, in ascending ledger order, capped at limit.
func (c *Client) GetEvents(ctx context.Context, startLedger uint32, contractID string, limit int) ([]Event, error) {
	params := map[string]any{
		"startLedger": startLedger,
		"filters": []map[string]any{{
			"type":        "contract",
			"contractIds": []string{contractID},
		}},
		"pagination": map[string]any{"limit": limit},
	}

	var res getEventsResult
	if err := c.call(ctx, "getEvents", params, &res); err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(res.Events))
	for _, e := range res.Events {
		events = append(events, Event{
			Type:           e.Type,
			Ledger:         e.Ledger,
			LedgerClosedAt: e.LedgerClosedAt,
			ContractID:     e.ContractID,
			ID:             e.ID,
			Topics:         e.Topic,
			Value:          e.Value,
		})
	}
	return events, nil
}

type latestLedgerResult struct {
	Sequence uint32 `json:"sequence"`
}

// LatestLedger returns the sequence number of the most recent ledger.
func (c *Client) LatestLedger(ctx context.Context) (uint32, error) {
	var res latestLedgerResult
	if err := c.call(ctx, "getLatestLedger", nil, &res); err != nil {
		return 0, err
	}
	return res.Sequence, nil
}
