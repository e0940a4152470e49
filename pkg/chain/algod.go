/*
Package chain implements mint.ChainClient on top of the Algorand node (algod)
REST API.
*/
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/trantorian/nftminter/logger"
	"github.com/trantorian/nftminter/pkg/mint"
)

var (
	ErrRejected     = errors.New("transaction rejected by the node")
	ErrNotConfirmed = errors.New("transaction not confirmed")
)

type Config struct {
	// algod REST endpoint, ie http://localhost:4001
	URL   string
	Token string
	// timeout of single request, zero means no timeout. Doesn't apply to
	// waiting for new block.
	RequestTimeout time.Duration
}

type AlgodClient struct {
	cfg   Config
	algod *algod.Client
	log   *slog.Logger
}

func New(cfg Config, log *slog.Logger) (*AlgodClient, error) {
	if cfg.URL == "" {
		return nil, errors.New("algod URL is not set")
	}
	c, err := algod.MakeClient(cfg.URL, cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating algod client: %w", err)
	}
	return &AlgodClient{cfg: cfg, algod: c, log: log}, nil
}

func (c *AlgodClient) SuggestedParams(ctx context.Context) (types.SuggestedParams, error) {
	ctx, cancel := c.requestCtx(ctx)
	defer cancel()
	sp, err := c.algod.SuggestedParams().Do(ctx)
	if err != nil {
		return types.SuggestedParams{}, fmt.Errorf("fetching suggested params: %w", err)
	}
	return sp, nil
}

func (c *AlgodClient) SendRawTransaction(ctx context.Context, signedTxn []byte) (string, error) {
	ctx, cancel := c.requestCtx(ctx)
	defer cancel()
	txID, err := c.algod.SendRawTransaction(signedTxn).Do(ctx)
	if err != nil {
		return "", fmt.Errorf("sending transaction: %w", err)
	}
	return txID, nil
}

// LastRound returns the last round seen by the node.
func (c *AlgodClient) LastRound(ctx context.Context) (uint64, error) {
	ctx, cancel := c.requestCtx(ctx)
	defer cancel()
	status, err := c.algod.Status().Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching node status: %w", err)
	}
	return status.LastRound, nil
}

/*
WaitForConfirmation polls the pending transaction info once per round until
the transaction is committed, rejected by the node or "maxRounds" rounds
have passed.
*/
func (c *AlgodClient) WaitForConfirmation(ctx context.Context, txID string, maxRounds uint64) (*mint.ConfirmedTxn, error) {
	if maxRounds == 0 {
		return nil, errors.New("max rounds must be greater than zero")
	}
	lastRound, err := c.LastRound(ctx)
	if err != nil {
		return nil, err
	}

	// pending info is checked on rounds lastRound..lastRound+maxRounds (inclusive),
	// ie the transaction may be committed in any of the next maxRounds blocks
	for round := lastRound; ; round++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("confirming transaction interrupted: %w", err)
		}

		info, err := c.pendingInfo(ctx, txID)
		switch {
		case err != nil:
			// node may not have seen the transaction yet, retry on next round
			c.log.DebugContext(ctx, "fetching pending transaction info", logger.TxID(txID), logger.Error(err))
		case info.ConfirmedRound > 0:
			return &mint.ConfirmedTxn{TxID: txID, AssetID: info.AssetIndex, ConfirmedRound: info.ConfirmedRound}, nil
		case info.PoolError != "":
			return nil, fmt.Errorf("%w: %s", ErrRejected, info.PoolError)
		}

		if round >= lastRound+maxRounds {
			break
		}
		if _, err := c.algod.StatusAfterBlock(round).Do(ctx); err != nil {
			return nil, fmt.Errorf("waiting for block %d: %w", round, err)
		}
		c.log.DebugContext(ctx, "waiting for confirmation", logger.TxID(txID), logger.Round(round))
	}
	return nil, fmt.Errorf("%w after %d rounds", ErrNotConfirmed, maxRounds)
}

type pendingTxn struct {
	ConfirmedRound uint64
	PoolError      string
	AssetIndex     uint64
}

func (c *AlgodClient) pendingInfo(ctx context.Context, txID string) (*pendingTxn, error) {
	ctx, cancel := c.requestCtx(ctx)
	defer cancel()
	resp, _, err := c.algod.PendingTransactionInformation(txID).Do(ctx)
	if err != nil {
		return nil, err
	}
	return &pendingTxn{ConfirmedRound: resp.ConfirmedRound, PoolError: resp.PoolError, AssetIndex: resp.AssetIndex}, nil
}

func (c *AlgodClient) requestCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.RequestTimeout > 0 {
		return context.WithTimeout(ctx, c.cfg.RequestTimeout)
	}
	return context.WithCancel(ctx)
}
