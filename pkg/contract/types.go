package contract

import (
	"context"
	"time"

	apperrors "github.com/starfund-labs/starfund/core/pkg/errors"
	"github.com/starfund-labs/starfund/core/pkg/rpc"
)

// StroopsPerXLM is the number of smallest units per display unit.
const StroopsPerXLM = 10_000_000

// Per-operation inclusion fees in stroops.
const (
	feeContractCall int64 = 1_000_000
	feePayment      int64 = 100_000
	feeReadOnly     int64 = 100
)

// Transaction validity windows in seconds.
const (
	invokeTimeout int64 = 300
	readTimeout   int64 = 30
)

// minCreatorReserveXLM is the balance a creator must hold before a create
// transaction is even built.
const minCreatorReserveXLM = "2"

// Campaign is one crowdfunding campaign as recorded by the contract.
// Amounts are in stroops; the deadline is Unix seconds. Raised never
// decreases and the contract never lets it exceed Target.
type Campaign struct {
	ID          uint32
	Creator     string
	Title       string
	Description string
	Target      int64
	Deadline    int64
	Raised      int64
	Claimed     bool
}

// Expired reports whether the campaign's deadline has passed.
func (c *Campaign) Expired(now time.Time) bool {
	return now.Unix() > c.Deadline
}

// Funded reports whether the campaign has reached its target.
func (c *Campaign) Funded() bool {
	return c.Raised >= c.Target
}

// Remaining returns the stroops still needed to reach the target.
func (c *Campaign) Remaining() int64 {
	if c.Raised >= c.Target {
		return 0
	}
	return c.Target - c.Raised
}

// Status is the externally observable state of a write operation.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

// TransactionResult is the terminal projection of one write operation.
// Hash is set only once a submission occurred; pure simulation failures
// carry none. Error and Kind are set only on failure.
type TransactionResult struct {
	Status Status
	Hash   string
	Error  string
	Kind   apperrors.Kind
}

// Failed reports whether the operation ended in failure.
func (r TransactionResult) Failed() bool { return r.Status == StatusFail }

// Err returns the failure as a classified error, or nil.
func (r TransactionResult) Err() error {
	if r.Status != StatusFail {
		return nil
	}
	return apperrors.New(r.Kind, r.Error)
}

func successResult(hash string) TransactionResult {
	return TransactionResult{Status: StatusSuccess, Hash: hash}
}

func failResult(kind apperrors.Kind, hash, message string) TransactionResult {
	return TransactionResult{Status: StatusFail, Hash: hash, Error: message, Kind: kind}
}

// failFrom classifies err into a failure result.
func failFrom(hash string, err error) TransactionResult {
	appErr := apperrors.Classify(err)
	return TransactionResult{Status: StatusFail, Hash: hash, Error: appErr.Error(), Kind: appErr.Kind}
}

// Ledger is the remote ledger capability the orchestrator consumes. It is
// stateless per call; one implementation is shared safely with the event
// poller. rpc.Client is the network-backed implementation and MockLedger the
// in-memory one.
type Ledger interface {
	GetAccount(ctx context.Context, address string) (*rpc.Account, error)
	NativeBalance(ctx context.Context, address string) (string, error)
	Simulate(ctx context.Context, envelopeXDR string) (*rpc.Simulation, error)
	Submit(ctx context.Context, envelopeXDR string) (*rpc.Submission, error)
	GetTransaction(ctx context.Context, hash string) (*rpc.Transaction, error)
	GetEvents(ctx context.Context, startLedger uint32, contractID string, limit int) ([]rpc.Event, error)
	LatestLedger(ctx context.Context) (uint32, error)
}
