package mint

import (
	"context"

	"github.com/algorand/go-algorand-sdk/v2/types"
)

type (
	// WalletConnector holds the keys, all signing happens on its side.
	WalletConnector interface {
		// Connect asks user to share account(s) with the minter.
		Connect(ctx context.Context, opts ConnectOptions) ([]Account, error)
		// SignTransactions signs the batch, the i-th returned blob is the
		// signed version of the i-th input transaction.
		SignTransactions(ctx context.Context, txns []types.Transaction) ([][]byte, error)
	}

	ChainClient interface {
		SuggestedParams(ctx context.Context) (types.SuggestedParams, error)
		// SendRawTransaction broadcasts signed transaction, returns it's id.
		SendRawTransaction(ctx context.Context, signedTxn []byte) (string, error)
		// WaitForConfirmation waits up to maxRounds rounds for the transaction
		// to be committed to the ledger.
		WaitForConfirmation(ctx context.Context, txID string, maxRounds uint64) (*ConfirmedTxn, error)
	}

	// Notifier is informed about successfully minted batches.
	Notifier interface {
		PublishMinted(ctx context.Context, report *MintReport) error
	}

	ConnectOptions struct {
		// user must pick exactly one account to share
		SelectExactlyOne bool
	}

	Account struct {
		Address string `json:"address"`
		Name    string `json:"name,omitempty"`
	}

	ConfirmedTxn struct {
		TxID           string `json:"txId"`
		AssetID        uint64 `json:"assetId"`
		ConfirmedRound uint64 `json:"confirmedRound"`
	}
)
