// Package wallet models the signing capability: something that can sign an
// opaque transaction envelope, or fail. Wallet kinds are dispatched by an
// explicit tag, never by structural probing; browser-extension wallets
// (Freighter, Albedo, xBull) are reached through the HTTP signing bridge,
// while the local signer holds a keypair directly.
package wallet

import (
	"context"
	"fmt"
	"strconv"

	apperrors "github.com/starfund-labs/starfund/core/pkg/errors"
)

// Kind identifies a wallet implementation.
type Kind string

const (
	KindFreighter Kind = "freighter"
	KindAlbedo    Kind = "albedo"
	KindXBull     Kind = "xbull"
	KindLocal     Kind = "local"
)

// DisplayName returns the human-facing wallet name.
func (k Kind) DisplayName() string {
	switch k {
	case KindFreighter:
		return "Freighter"
	case KindAlbedo:
		return "Albedo"
	case KindXBull:
		return "xBull"
	case KindLocal:
		return "Local key"
	default:
		return string(k)
	}
}

// Signer is the capability every wallet kind must expose: sign an opaque
// base64 transaction envelope for the given network, or fail. A user decline
// surfaces as KindTransactionRejected; an unavailable wallet as
// KindWalletNotFound. Signing may suspend indefinitely awaiting human action,
// so the context must bound it when the caller needs a deadline.
type Signer interface {
	Kind() Kind
	// Detect reports whether the wallet is reachable right now.
	Detect(ctx context.Context) error
	// SignTransaction signs envelopeXDR for the network identified by
	// networkPassphrase and returns the signed envelope.
	SignTransaction(ctx context.Context, envelopeXDR, networkPassphrase string) (string, error)
}

// Registry dispatches signers by tag.
type Registry struct {
	signers map[Kind]Signer
}

// NewRegistry creates a registry over the given signers. Later entries with
// the same kind win.
func NewRegistry(signers ...Signer) *Registry {
	r := &Registry{signers: make(map[Kind]Signer)}
	for _, s := range signers {
		r.signers[s.Kind()] = s
	}
	return r
}

// Register adds or replaces a signer.
func (r *Registry) Register(s Signer) {
	r.signers[s.Kind()] = s
}

// For returns the signer for kind, or a WalletNotFound error.
func (r *Registry) For(kind Kind) (Signer, error) {
	s, ok := r.signers[kind]
	if !ok {
		return nil, apperrors.WalletNotFound(kind.DisplayName())
	}
	return s, nil
}

// BalanceSource is the balance-lookup capability consumed by the pre-flight
// check. The remote ledger client satisfies it.
type BalanceSource interface {
	NativeBalance(ctx context.Context, address string) (string, error)
}

// ValidateBalance checks that the account holds at least requiredXLM before
// any transaction is built, so an obviously doomed submission never spends a
// network round-trip. requiredXLM and the returned amounts are decimal XLM.
func ValidateBalance(ctx context.Context, source BalanceSource, address, requiredXLM string) error {
	balance, err := source.NativeBalance(ctx, address)
	if err != nil {
		return fmt.Errorf("validate balance: %w", err)
	}

	available, err := parseXLM(balance)
	if err != nil {
		return fmt.Errorf("validate balance: bad balance %q: %w", balance, err)
	}
	required, err := parseXLM(requiredXLM)
	if err != nil {
		return apperrors.Newf(apperrors.KindInvalidArgument, "bad required amount %q", requiredXLM)
	}

	if available < required {
		return apperrors.InsufficientBalance(
			fmt.Sprintf("%.2f", required), fmt.Sprintf("%.2f", available))
	}
	return nil
}

func parseXLM(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
