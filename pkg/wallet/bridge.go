package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/starfund-labs/starfund/core/pkg/errors"
)

// BridgeSigner forwards signing requests to a local HTTP bridge that fronts a
// browser-extension wallet. The bridge holds the extension session; this side
// only sees the capability: signed envelope or failure. Signing can block for
// as long as the human takes to respond, so callers bound it with the
// context.
type BridgeSigner struct {
	kind    Kind
	baseURL string
	http    *http.Client
}

// NewBridgeSigner creates a bridge-backed signer for the given wallet kind.
func NewBridgeSigner(kind Kind, baseURL string) *BridgeSigner {
	return &BridgeSigner{
		kind:    kind,
		baseURL: baseURL,
		// No overall timeout: signing waits on human action. Per-request
		// deadlines come from the caller's context.
		http: &http.Client{},
	}
}

func (b *BridgeSigner) Kind() Kind { return b.kind }

// Detect checks the bridge's status endpoint and that the extension for this
// wallet kind is present behind it.
func (b *BridgeSigner) Detect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/status?wallet=%s", b.baseURL, b.kind), nil)
	if err != nil {
		return err
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return apperrors.WalletNotFound(b.kind.DisplayName())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return apperrors.WalletNotFound(b.kind.DisplayName())
	}
	return nil
}

type bridgeSignRequest struct {
	Wallet            Kind   `json:"wallet"`
	EnvelopeXDR       string `json:"envelope_xdr"`
	NetworkPassphrase string `json:"network_passphrase"`
}

type bridgeSignResponse struct {
	SignedXDR string `json:"signed_xdr"`
	Error     string `json:"error,omitempty"`
}

// SignTransaction posts the envelope to the bridge and waits for the signed
// result. Declines and missing extensions are classified from the bridge's
// error message.
func (b *BridgeSigner) SignTransaction(ctx context.Context, envelopeXDR, networkPassphrase string) (string, error) {
	body, err := json.Marshal(bridgeSignRequest{
		Wallet:            b.kind,
		EnvelopeXDR:       envelopeXDR,
		NetworkPassphrase: networkPassphrase,
	})
	if err != nil {
		return "", fmt.Errorf("bridge: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/sign", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("bridge: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return "", apperrors.WalletNotFound(b.kind.DisplayName())
	}
	defer func() { _ = resp.Body.Close() }()

	var result bridgeSignResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", apperrors.Wrap(apperrors.KindNetworkError, "bridge: decode response", err)
	}

	if resp.StatusCode != http.StatusOK || result.Error != "" {
		if result.Error == "" {
			result.Error = fmt.Sprintf("bridge returned http %d", resp.StatusCode)
		}
		return "", apperrors.Classify(fmt.Errorf("%s: %s", b.kind.DisplayName(), result.Error))
	}
	if result.SignedXDR == "" {
		return "", apperrors.Newf(apperrors.KindUnknown, "%s did not return a signed transaction", b.kind.DisplayName())
	}
	return result.SignedXDR, nil
}
