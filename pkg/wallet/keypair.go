package wallet

import (
	"context"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"

	apperrors "github.com/starfund-labs/starfund/core/pkg/errors"
)

// KeypairSigner signs locally with an in-process ed25519 keypair. Meant for
// the CLI and tests; a browser-extension wallet is the interactive path.
type KeypairSigner struct {
	kp *keypair.Full
}

// NewKeypairSigner creates a signer from a Stellar secret seed ("S...").
func NewKeypairSigner(secretSeed string) (*KeypairSigner, error) {
	kp, err := keypair.ParseFull(secretSeed)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidArgument, "parse secret seed", err)
	}
	return &KeypairSigner{kp: kp}, nil
}

// NewRandomKeypairSigner creates a signer over a fresh random keypair.
func NewRandomKeypairSigner() *KeypairSigner {
	return &KeypairSigner{kp: keypair.MustRandom()}
}

func (s *KeypairSigner) Kind() Kind { return KindLocal }

// Address returns the signer's public account id ("G...").
func (s *KeypairSigner) Address() string { return s.kp.Address() }

// Detect always succeeds: the key is in-process.
func (s *KeypairSigner) Detect(ctx context.Context) error { return nil }

// SignTransaction parses the envelope, signs it for the given network, and
// re-encodes it.
func (s *KeypairSigner) SignTransaction(ctx context.Context, envelopeXDR, networkPassphrase string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	generic, err := txnbuild.TransactionFromXDR(envelopeXDR)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindInvalidArgument, "parse envelope", err)
	}
	tx, ok := generic.Transaction()
	if !ok {
		return "", apperrors.New(apperrors.KindInvalidArgument, "fee-bump envelopes are not supported")
	}

	signed, err := tx.Sign(networkPassphrase, s.kp)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindUnknown, "sign envelope", err)
	}
	return signed.Base64()
}
