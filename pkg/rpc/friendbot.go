package rpc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	apperrors "github.com/starfund-labs/starfund/core/pkg/errors"
)

// Fund asks the configured friendbot faucet to fund a testnet account.
// Fire-and-forget: the caller only learns whether the faucet accepted.
func (c *Client) Fund(ctx context.Context, address string) error {
	if c.friendbotURL == "" {
		return apperrors.New(apperrors.KindInvalidArgument, "no friendbot configured for this network")
	}

	u := fmt.Sprintf("%s?addr=%s", c.friendbotURL, url.QueryEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("friendbot: create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.KindNetworkError, "friendbot", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return apperrors.Wrap(apperrors.KindNetworkError,
			fmt.Sprintf("friendbot: http %d", resp.StatusCode), nil)
	}
	return nil
}
