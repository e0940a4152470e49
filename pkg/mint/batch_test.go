package mint

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/stretchr/testify/require"

	testlogger "github.com/trantorian/nftminter/internal/testutils/logger"
)

func buildTestTxns(t *testing.T, count int) []types.Transaction {
	t.Helper()
	is := &issuance{
		creator:  newAddress(),
		params:   testParams(),
		template: IssuanceTemplate{NamePrefix: DefaultNamePrefix, UnitPrefix: DefaultUnitPrefix},
	}
	txns, err := is.build(count)
	require.NoError(t, err)
	return txns
}

func Test_newBatch(t *testing.T) {
	txns := buildTestTxns(t, 3)
	b := newBatch(txns, &chainClientMock{}, testlogger.New(t))

	subs := b.Submissions()
	require.Len(t, subs, 3)
	for i, sub := range subs {
		require.Equal(t, i, sub.Index)
		require.Equal(t, crypto.GetTxID(txns[i]), sub.TxID)
		require.False(t, sub.Submitted)
		require.False(t, sub.Confirmed())
	}
	require.Equal(t, txns, b.transactions())
	require.Empty(t, b.assetIDs())
}

func Test_TxSubmissionBatch_setSigned(t *testing.T) {
	b := newBatch(buildTestTxns(t, 2), &chainClientMock{}, testlogger.New(t))

	require.ErrorIs(t, b.setSigned([][]byte{{1}}), ErrSignatureCount)
	require.ErrorIs(t, b.setSigned([][]byte{{1}, {2}, {3}}), ErrSignatureCount)
	require.Nil(t, b.submissions[0].Signed)

	require.NoError(t, b.setSigned([][]byte{{1}, {2}}))
	require.Equal(t, []byte{1}, b.submissions[0].Signed)
	require.Equal(t, []byte{2}, b.submissions[1].Signed)
}

func Test_TxSubmissionBatch_submitAll(t *testing.T) {
	t.Run("all accepted", func(t *testing.T) {
		ledger := newFakeLedger(1)
		chain := ledger.chain()
		txns := buildTestTxns(t, 4)
		signed, err := ledger.sign(context.Background(), txns)
		require.NoError(t, err)

		b := newBatch(txns, chain, testlogger.New(t))
		require.NoError(t, b.setSigned(signed))
		require.NoError(t, b.submitAll(context.Background()))
		require.EqualValues(t, 4, chain.sendCalls.Load())
		for _, sub := range b.Submissions() {
			require.True(t, sub.Submitted)
			require.NoError(t, sub.SubmitErr)
		}
	})

	t.Run("failure doesn't stop the others", func(t *testing.T) {
		ledger := newFakeLedger(1)
		txns := buildTestTxns(t, 3)
		signed, err := ledger.sign(context.Background(), txns)
		require.NoError(t, err)
		rejected := crypto.GetTxID(txns[1])

		chain := ledger.chain()
		chain.sendRawTransaction = func(ctx context.Context, blob []byte) (string, error) {
			txID, err := ledger.send(ctx, blob)
			if txID == rejected {
				return "", errors.New("overspend")
			}
			return txID, err
		}

		b := newBatch(txns, chain, testlogger.New(t))
		require.NoError(t, b.setSigned(signed))
		err = b.submitAll(context.Background())
		require.ErrorContains(t, err, "transaction 1 ("+rejected+"): overspend")
		require.EqualValues(t, 3, chain.sendCalls.Load())

		subs := b.Submissions()
		require.True(t, subs[0].Submitted)
		require.False(t, subs[1].Submitted)
		require.EqualError(t, subs[1].SubmitErr, "overspend")
		require.True(t, subs[2].Submitted)
	})
}

func Test_TxSubmissionBatch_confirmAll(t *testing.T) {
	submitted := func(t *testing.T, ledger *fakeLedger, chain *chainClientMock, count int) *TxSubmissionBatch {
		t.Helper()
		txns := buildTestTxns(t, count)
		signed, err := ledger.sign(context.Background(), txns)
		require.NoError(t, err)
		b := newBatch(txns, chain, testlogger.New(t))
		require.NoError(t, b.setSigned(signed))
		require.NoError(t, b.submitAll(context.Background()))
		return b
	}

	t.Run("asset ids are in build order", func(t *testing.T) {
		ledger := newFakeLedger(500)
		chain := ledger.chain()
		// the first transaction is confirmed last
		chain.waitForConfirmation = func(ctx context.Context, txID string, maxRounds uint64) (*ConfirmedTxn, error) {
			if maxRounds != 4 {
				return nil, fmt.Errorf("unexpected max rounds %d", maxRounds)
			}
			info, err := ledger.wait(ctx, txID, maxRounds)
			if err == nil && info.AssetID == 500 {
				time.Sleep(50 * time.Millisecond)
			}
			return info, err
		}
		b := submitted(t, ledger, chain, 3)

		require.NoError(t, b.confirmAll(context.Background(), 4))
		require.EqualValues(t, 3, chain.waitCalls.Load())
		require.Equal(t, []uint64{500, 501, 502}, b.assetIDs())
	})

	t.Run("only submitted transactions are awaited", func(t *testing.T) {
		ledger := newFakeLedger(10)
		chain := ledger.chain()
		b := submitted(t, ledger, chain, 3)
		b.submissions[2].Submitted = false

		require.NoError(t, b.confirmAll(context.Background(), 4))
		require.EqualValues(t, 2, chain.waitCalls.Load())
		require.Equal(t, []uint64{10, 11}, b.assetIDs())
	})

	t.Run("failed confirmation", func(t *testing.T) {
		ledger := newFakeLedger(10)
		chain := ledger.chain()
		b := submitted(t, ledger, chain, 2)
		lost := b.submissions[0].TxID
		chain.waitForConfirmation = func(ctx context.Context, txID string, maxRounds uint64) (*ConfirmedTxn, error) {
			if txID == lost {
				return nil, errors.New("not confirmed after 4 rounds")
			}
			return ledger.wait(ctx, txID, maxRounds)
		}

		err := b.confirmAll(context.Background(), 4)
		require.ErrorContains(t, err, "transaction 0 ("+lost+"): not confirmed after 4 rounds")
		require.False(t, b.submissions[0].Confirmed())
		require.True(t, b.submissions[1].Confirmed())
		require.Equal(t, []uint64{11}, b.assetIDs())
	})

	t.Run("failed confirmation doesn't cancel the other waits", func(t *testing.T) {
		ledger := newFakeLedger(20)
		chain := ledger.chain()
		b := submitted(t, ledger, chain, 3)
		lost := b.submissions[1].TxID
		notConfirmed := errors.New("not confirmed")
		chain.waitForConfirmation = func(ctx context.Context, txID string, maxRounds uint64) (*ConfirmedTxn, error) {
			if txID == lost {
				return nil, notConfirmed
			}
			// slower than the failing wait, ctx must still be alive
			time.Sleep(50 * time.Millisecond)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return ledger.wait(ctx, txID, maxRounds)
		}

		err := b.confirmAll(context.Background(), 4)
		require.ErrorIs(t, err, notConfirmed)
		require.EqualValues(t, 3, chain.waitCalls.Load())
		require.Equal(t, []uint64{20, 22}, b.assetIDs())
		require.NoError(t, b.submissions[0].ConfirmErr)
		require.NoError(t, b.submissions[2].ConfirmErr)
	})
}
