package contract

import (
	"fmt"

	"github.com/stellar/go/amount"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"

	"github.com/starfund-labs/starfund/core/pkg/rpc"
	"github.com/starfund-labs/starfund/core/pkg/scval"
)

// buildInvoke assembles a contract-invocation transaction. When sim is nil
// the transaction is suitable for simulation only; with a simulation result
// the resource footprint, auth entries, and minimum resource fee are folded
// in, producing the envelope that actually gets signed and submitted.
func (c *Client) buildInvoke(account *rpc.Account, method string, args []xdr.ScVal, baseFee, timeoutSeconds int64, sim *rpc.Simulation) (*txnbuild.Transaction, error) {
	contractAddr, err := scval.ContractAddress(c.contractID)
	if err != nil {
		return nil, err
	}

	op := &txnbuild.InvokeHostFunction{
		HostFunction: xdr.HostFunction{
			Type: xdr.HostFunctionTypeHostFunctionTypeInvokeContract,
			InvokeContract: &xdr.InvokeContractArgs{
				ContractAddress: contractAddr,
				FunctionName:    xdr.ScSymbol(method),
				Args:            xdr.ScVec(args),
			},
		},
	}

	fee := baseFee
	if sim != nil {
		fee += sim.MinResourceFee

		if sim.TransactionData != "" {
			var sorobanData xdr.SorobanTransactionData
			if err := xdr.SafeUnmarshalBase64(sim.TransactionData, &sorobanData); err != nil {
				return nil, fmt.Errorf("decode simulated transaction data: %w", err)
			}
			op.Ext = xdr.TransactionExt{V: 1, SorobanData: &sorobanData}
		}

		for _, raw := range sim.Auth {
			var entry xdr.SorobanAuthorizationEntry
			if err := xdr.SafeUnmarshalBase64(raw, &entry); err != nil {
				return nil, fmt.Errorf("decode simulated auth entry: %w", err)
			}
			op.Auth = append(op.Auth, entry)
		}
	}

	return txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount: &txnbuild.SimpleAccount{
			AccountID: account.Address,
			Sequence:  account.Sequence,
		},
		IncrementSequenceNum: true,
		BaseFee:              fee,
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimeout(timeoutSeconds),
		},
		Operations: []txnbuild.Operation{op},
	})
}

// buildPayment assembles a native-asset payment from account to destination.
func buildPayment(account *rpc.Account, destination string, amountStroops int64) (*txnbuild.Transaction, error) {
	return txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount: &txnbuild.SimpleAccount{
			AccountID: account.Address,
			Sequence:  account.Sequence,
		},
		IncrementSequenceNum: true,
		BaseFee:              feePayment,
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimeout(invokeTimeout),
		},
		Operations: []txnbuild.Operation{
			&txnbuild.Payment{
				Destination: destination,
				Amount:      amount.StringFromInt64(amountStroops),
				Asset:       txnbuild.NativeAsset{},
			},
		},
	})
}
