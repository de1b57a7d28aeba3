package rpc

import (
	"context"
	"net/http"

	"github.com/stellar/go/clients/horizonclient"

	apperrors "github.com/starfund-labs/starfund/core/pkg/errors"
)

// accountSource abstracts the Horizon dependency so tests can stub it.
type accountSource interface {
	account(ctx context.Context, address string) (*Account, error)
	nativeBalance(ctx context.Context, address string) (string, error)
}

type horizonSource struct {
	client *horizonclient.Client
}

func newHorizon(horizonURL string, httpClient *http.Client) *horizonSource {
	return &horizonSource{
		client: &horizonclient.Client{
			HorizonURL: horizonURL,
			HTTP:       httpClient,
		},
	}
}

// account fetches the account id and current sequence number. Horizon calls
// are bounded by the shared HTTP client timeout; the context is honored for
// early cancellation checks only, as horizonclient requests are not
// context-aware.
func (h *horizonSource) account(ctx context.Context, address string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	detail, err := h.client.AccountDetail(horizonclient.AccountRequest{AccountID: address})
	if err != nil {
		if horizonclient.IsNotFoundError(err) {
			return nil, apperrors.Newf(apperrors.KindNotFound, "account %s not found", address)
		}
		return nil, apperrors.Wrap(apperrors.KindNetworkError, "horizon account lookup", err)
	}

	seq, err := detail.GetSequenceNumber()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindNetworkError, "horizon sequence", err)
	}

	return &Account{Address: detail.AccountID, Sequence: seq}, nil
}

func (h *horizonSource) nativeBalance(ctx context.Context, address string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	detail, err := h.client.AccountDetail(horizonclient.AccountRequest{AccountID: address})
	if err != nil {
		if horizonclient.IsNotFoundError(err) {
			return "0", nil
		}
		return "", apperrors.Wrap(apperrors.KindNetworkError, "horizon balance lookup", err)
	}

	balance, err := detail.GetNativeBalance()
	if err != nil {
		return "0", nil
	}
	return balance, nil
}
