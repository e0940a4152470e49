package mint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"golang.org/x/sync/errgroup"

	"github.com/trantorian/nftminter/logger"
)

type (
	// TxSubmission tracks single issuance transaction of the batch.
	TxSubmission struct {
		Index        int
		TxID         string
		Transaction  types.Transaction
		Signed       []byte
		Submitted    bool
		SubmitErr    error
		Confirmation *ConfirmedTxn
		ConfirmErr   error
	}

	TxSubmissionBatch struct {
		submissions []*TxSubmission
		chain       ChainClient
		log         *slog.Logger
	}
)

func (s *TxSubmission) Confirmed() bool {
	return s.Confirmation != nil
}

func newBatch(txns []types.Transaction, chain ChainClient, log *slog.Logger) *TxSubmissionBatch {
	subs := make([]*TxSubmission, len(txns))
	for i, txn := range txns {
		subs[i] = &TxSubmission{
			Index:       i,
			TxID:        crypto.GetTxID(txn),
			Transaction: txn,
		}
	}
	return &TxSubmissionBatch{submissions: subs, chain: chain, log: log}
}

func (t *TxSubmissionBatch) Submissions() []*TxSubmission {
	return t.submissions
}

func (t *TxSubmissionBatch) transactions() []types.Transaction {
	txs := make([]types.Transaction, 0, len(t.submissions))
	for _, sub := range t.submissions {
		txs = append(txs, sub.Transaction)
	}
	return txs
}

func (t *TxSubmissionBatch) setSigned(signed [][]byte) error {
	if len(signed) != len(t.submissions) {
		return fmt.Errorf("%w: sent %d, got back %d", ErrSignatureCount, len(t.submissions), len(signed))
	}
	for i, sub := range t.submissions {
		sub.Signed = signed[i]
	}
	return nil
}

/*
submitAll broadcasts every signed transaction without waiting for the
previous one to be accepted. Failure to send one transaction doesn't stop
the others from being sent, returned error is combination of all failures.
*/
func (t *TxSubmissionBatch) submitAll(ctx context.Context) error {
	var g errgroup.Group
	for _, sub := range t.submissions {
		sub := sub
		g.Go(func() error {
			txID, err := t.chain.SendRawTransaction(ctx, sub.Signed)
			if err != nil {
				sub.SubmitErr = err
				t.log.WarnContext(ctx, "sending transaction failed", logger.TxID(sub.TxID), logger.Error(err))
				return err
			}
			if txID != "" && txID != sub.TxID {
				t.log.WarnContext(ctx, fmt.Sprintf("node returned unexpected tx id %s", txID), logger.TxID(sub.TxID))
			}
			sub.Submitted = true
			return nil
		})
	}
	// group without context: failed send doesn't cancel the others, Wait
	// returns only the first error so the full list is built from submissions
	if err := g.Wait(); err != nil {
		return t.submitErr()
	}
	return nil
}

func (t *TxSubmissionBatch) submitErr() error {
	var errs []error
	for _, sub := range t.submissions {
		if sub.SubmitErr != nil {
			errs = append(errs, fmt.Errorf("transaction %d (%s): %w", sub.Index, sub.TxID, sub.SubmitErr))
		}
	}
	return errors.Join(errs...)
}

/*
confirmAll waits for the confirmation of all submitted transactions
concurrently and returns once all the waits have finished. Error is
returned when any of the waits fail.
*/
func (t *TxSubmissionBatch) confirmAll(ctx context.Context, maxRounds uint64) error {
	t.log.InfoContext(ctx, "Confirming submitted transactions")

	var g errgroup.Group
	for _, sub := range t.submissions {
		if !sub.Submitted {
			continue
		}
		sub := sub
		g.Go(func() error {
			info, err := t.chain.WaitForConfirmation(ctx, sub.TxID, maxRounds)
			if err != nil {
				sub.ConfirmErr = err
				t.log.InfoContext(ctx, "Tx not confirmed", logger.TxID(sub.TxID), logger.Error(err))
				return err
			}
			t.log.DebugContext(ctx, "Tx confirmed", logger.TxID(sub.TxID), logger.AssetID(info.AssetID), logger.Round(info.ConfirmedRound))
			sub.Confirmation = info
			return nil
		})
	}
	if err := g.Wait(); err == nil {
		t.log.InfoContext(ctx, "All transactions confirmed")
		return nil
	}

	var errs []error
	for _, sub := range t.submissions {
		if sub.ConfirmErr != nil {
			errs = append(errs, fmt.Errorf("transaction %d (%s): %w", sub.Index, sub.TxID, sub.ConfirmErr))
		}
	}
	return errors.Join(errs...)
}

// assetIDs returns ids of created assets in the order the transactions were built.
func (t *TxSubmissionBatch) assetIDs() []uint64 {
	ids := make([]uint64, 0, len(t.submissions))
	for _, sub := range t.submissions {
		if sub.Confirmed() {
			ids = append(ids, sub.Confirmation.AssetID)
		}
	}
	return ids
}
