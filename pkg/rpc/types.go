package rpc

// Account is the subset of account state needed to build a transaction.
type Account struct {
	Address  string
	Sequence int64
}

// Submission statuses returned by sendTransaction.
const (
	SubmitPending       = "PENDING"
	SubmitDuplicate     = "DUPLICATE"
	SubmitTryAgainLater = "TRY_AGAIN_LATER"
	SubmitError         = "ERROR"
)

// Transaction statuses returned by getTransaction.
const (
	TxNotFound = "NOT_FOUND"
	TxSuccess  = "SUCCESS"
	TxFailed   = "FAILED"
)

// Simulation is the decoded result of simulateTransaction. A non-empty Error
// means the remote refused the invocation before any cost was incurred.
type Simulation struct {
	TransactionData string   // base64 SorobanTransactionData
	MinResourceFee  int64    // stroops to add on top of the inclusion fee
	Auth            []string // base64 SorobanAuthorizationEntry, one per signer
	RetVal          string   // base64 ScVal return value, empty when none
	LatestLedger    uint32
	Error           string
}

// Failed reports whether the simulation carries an error verdict.
func (s *Simulation) Failed() bool { return s.Error != "" }

// Submission is the immediate verdict of sendTransaction.
type Submission struct {
	Status         string
	Hash           string
	ErrorResultXDR string
	LatestLedger   uint32
}

// Transaction is the status of a submitted transaction.
type Transaction struct {
	Status    string
	Ledger    uint32
	ResultXDR string
	CreatedAt string
}

// Event is one raw contract event as returned by getEvents. Topics and Value
// are base64 ScVals; decoding is the consumer's concern.
type Event struct {
	Type           string
	Ledger         uint32
	LedgerClosedAt string
	ContractID     string
	ID             string
	Topics         []string
	Value          string
}
