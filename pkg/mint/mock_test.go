package mint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/types"

	test "github.com/trantorian/nftminter/internal/testutils"
)

type walletConnectorMock struct {
	connect          func(ctx context.Context, opts ConnectOptions) ([]Account, error)
	signTransactions func(ctx context.Context, txns []types.Transaction) ([][]byte, error)

	connectCalls atomic.Int32
	signCalls    atomic.Int32
}

func (m *walletConnectorMock) Connect(ctx context.Context, opts ConnectOptions) ([]Account, error) {
	m.connectCalls.Add(1)
	if m.connect == nil {
		return nil, errors.New("unexpected Connect call")
	}
	return m.connect(ctx, opts)
}

func (m *walletConnectorMock) SignTransactions(ctx context.Context, txns []types.Transaction) ([][]byte, error) {
	m.signCalls.Add(1)
	if m.signTransactions == nil {
		return nil, errors.New("unexpected SignTransactions call")
	}
	return m.signTransactions(ctx, txns)
}

type chainClientMock struct {
	suggestedParams     func(ctx context.Context) (types.SuggestedParams, error)
	sendRawTransaction  func(ctx context.Context, signedTxn []byte) (string, error)
	waitForConfirmation func(ctx context.Context, txID string, maxRounds uint64) (*ConfirmedTxn, error)

	paramsCalls atomic.Int32
	sendCalls   atomic.Int32
	waitCalls   atomic.Int32
}

func (m *chainClientMock) SuggestedParams(ctx context.Context) (types.SuggestedParams, error) {
	m.paramsCalls.Add(1)
	if m.suggestedParams == nil {
		return types.SuggestedParams{}, errors.New("unexpected SuggestedParams call")
	}
	return m.suggestedParams(ctx)
}

func (m *chainClientMock) SendRawTransaction(ctx context.Context, signedTxn []byte) (string, error) {
	m.sendCalls.Add(1)
	if m.sendRawTransaction == nil {
		return "", errors.New("unexpected SendRawTransaction call")
	}
	return m.sendRawTransaction(ctx, signedTxn)
}

func (m *chainClientMock) WaitForConfirmation(ctx context.Context, txID string, maxRounds uint64) (*ConfirmedTxn, error) {
	m.waitCalls.Add(1)
	if m.waitForConfirmation == nil {
		return nil, errors.New("unexpected WaitForConfirmation call")
	}
	return m.waitForConfirmation(ctx, txID, maxRounds)
}

type notifierMock struct {
	publishMinted func(ctx context.Context, report *MintReport) error
}

func (m *notifierMock) PublishMinted(ctx context.Context, report *MintReport) error {
	return m.publishMinted(ctx, report)
}

func testParams() types.SuggestedParams {
	return types.SuggestedParams{
		Fee:             1000,
		FlatFee:         true,
		MinFee:          1000,
		FirstRoundValid: 100,
		LastRoundValid:  1100,
		GenesisID:       "testnet-v1.0",
		GenesisHash:     test.RandomBytes(32),
	}
}

func newAddress() string {
	return crypto.GenerateAccount().Address.String()
}

/*
fakeLedger plays both the wallet and the chain: "signed" blob of a transaction
is it's id with prefix and each confirmed transaction gets asset id
assetBase + build index.
*/
type fakeLedger struct {
	assetBase uint64

	mu      sync.Mutex
	signed  []types.Transaction
	indexes map[string]int
}

const signedPrefix = "signed:"

func newFakeLedger(assetBase uint64) *fakeLedger {
	return &fakeLedger{assetBase: assetBase, indexes: map[string]int{}}
}

func (l *fakeLedger) sign(ctx context.Context, txns []types.Transaction) ([][]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.signed = append(l.signed, txns...)
	blobs := make([][]byte, len(txns))
	for i, txn := range txns {
		id := crypto.GetTxID(txn)
		l.indexes[id] = i
		blobs[i] = []byte(signedPrefix + id)
	}
	return blobs, nil
}

func (l *fakeLedger) send(ctx context.Context, blob []byte) (string, error) {
	s := string(blob)
	if !strings.HasPrefix(s, signedPrefix) {
		return "", fmt.Errorf("not signed: %q", s)
	}
	return strings.TrimPrefix(s, signedPrefix), nil
}

func (l *fakeLedger) index(txID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if idx, ok := l.indexes[txID]; ok {
		return idx
	}
	return -1
}

func (l *fakeLedger) wait(ctx context.Context, txID string, maxRounds uint64) (*ConfirmedTxn, error) {
	idx := l.index(txID)
	if idx < 0 {
		return nil, fmt.Errorf("unknown transaction %s", txID)
	}
	return &ConfirmedTxn{TxID: txID, AssetID: l.assetBase + uint64(idx), ConfirmedRound: 101}, nil
}

func (l *fakeLedger) wallet(address string) *walletConnectorMock {
	return &walletConnectorMock{
		connect: func(ctx context.Context, opts ConnectOptions) ([]Account, error) {
			return []Account{{Address: address}}, nil
		},
		signTransactions: l.sign,
	}
}

func (l *fakeLedger) chain() *chainClientMock {
	return &chainClientMock{
		suggestedParams: func(ctx context.Context) (types.SuggestedParams, error) {
			return testParams(), nil
		},
		sendRawTransaction:  l.send,
		waitForConfirmation: l.wait,
	}
}
