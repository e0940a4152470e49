package wallet

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/trantorian/nftminter/logger"
	"github.com/trantorian/nftminter/pkg/mint"
)

var (
	ErrNoAccounts       = errors.New("keystore has no accounts")
	ErrAccountNotShared = errors.New("account has not been shared with the minter")
)

/*
Connector is a local wallet: it implements mint.WalletConnector using the
keys in the Keystore. Only the accounts user has shared (selected on
Connect) can be used for signing.
*/
type Connector struct {
	ks       *Keystore
	selector AccountSelector
	log      *slog.Logger

	mu     sync.Mutex
	shared map[string]struct{}
}

var _ mint.WalletConnector = (*Connector)(nil)

func NewConnector(ks *Keystore, selector AccountSelector, log *slog.Logger) *Connector {
	return &Connector{
		ks:       ks,
		selector: selector,
		log:      log,
		shared:   map[string]struct{}{},
	}
}

func (c *Connector) Connect(ctx context.Context, opts mint.ConnectOptions) ([]mint.Account, error) {
	accounts, err := c.ks.Accounts()
	if err != nil {
		return nil, fmt.Errorf("reading accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}
	if opts.SelectExactlyOne {
		acc, err := c.selector.SelectAccount(ctx, accounts)
		if err != nil {
			return nil, err
		}
		accounts = []mint.Account{acc}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, acc := range accounts {
		c.shared[acc.Address] = struct{}{}
		c.log.DebugContext(ctx, "account shared", logger.Address(acc.Address))
	}
	return accounts, nil
}

/*
SignTransactions signs the transactions in the order given. All the
transactions must be sent by the accounts shared on Connect.
*/
func (c *Connector) SignTransactions(ctx context.Context, txns []types.Transaction) ([][]byte, error) {
	keys := map[types.Address]ed25519.PrivateKey{}
	signed := make([][]byte, 0, len(txns))
	for i, txn := range txns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sk, ok := keys[txn.Sender]
		if !ok {
			var err error
			if sk, err = c.signingKey(txn.Sender.String()); err != nil {
				return nil, fmt.Errorf("transaction %d: %w", i, err)
			}
			keys[txn.Sender] = sk
		}
		txID, blob, err := crypto.SignTransaction(sk, txn)
		if err != nil {
			return nil, fmt.Errorf("signing transaction %d: %w", i, err)
		}
		c.log.DebugContext(ctx, "transaction signed", logger.TxID(txID))
		signed = append(signed, blob)
	}
	return signed, nil
}

func (c *Connector) signingKey(address string) (ed25519.PrivateKey, error) {
	c.mu.Lock()
	_, ok := c.shared[address]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotShared, address)
	}
	return c.ks.privateKey(address)
}
