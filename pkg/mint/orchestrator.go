package mint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/trantorian/nftminter/logger"
)

const (
	DefaultConfirmationRounds = 4
	DefaultMaxBatchSize       = 64
)

type (
	Config struct {
		Template IssuanceTemplate
		// how many rounds to wait for each transaction to be confirmed
		ConfirmationRounds uint64
		// max number of NFTs in one Mint call, zero means no limit
		MaxBatchSize int
		// optional, metrics are not collected when nil
		Meter metric.Meter
		// optional, receives report of every successful batch
		Notifier Notifier
	}

	/*
	Orchestrator sequences the connect and mint workflows between the wallet
	and the chain. It doesn't hold any user state itself so it's safe for
	concurrent use with different sessions.
	*/
	Orchestrator struct {
		wallet   WalletConnector
		chain    ChainClient
		cfg      Config
		metrics  *metrics
		notifier Notifier
		log      *slog.Logger
	}
)

func (c *Config) initDefaults() {
	if c.Template.NamePrefix == "" {
		c.Template.NamePrefix = DefaultNamePrefix
	}
	if c.Template.UnitPrefix == "" {
		c.Template.UnitPrefix = DefaultUnitPrefix
	}
	if c.ConfirmationRounds == 0 {
		c.ConfirmationRounds = DefaultConfirmationRounds
	}
	if c.Meter == nil {
		c.Meter = noop.NewMeterProvider().Meter("mint")
	}
}

func NewOrchestrator(wallet WalletConnector, chain ChainClient, cfg Config, log *slog.Logger) (*Orchestrator, error) {
	if wallet == nil {
		return nil, errors.New("wallet connector is nil")
	}
	if chain == nil {
		return nil, errors.New("chain client is nil")
	}
	if log == nil {
		return nil, errors.New("logger is nil")
	}
	cfg.initDefaults()
	m, err := newMetrics(cfg.Meter)
	if err != nil {
		return nil, fmt.Errorf("initializing metrics: %w", err)
	}
	return &Orchestrator{
		wallet:   wallet,
		chain:    chain,
		cfg:      cfg,
		metrics:  m,
		notifier: cfg.Notifier,
		log:      log,
	}, nil
}

/*
Connect asks the wallet to share exactly one account and stores it's address
in the session. On failure the session is not modified.
*/
func (o *Orchestrator) Connect(ctx context.Context, s *Session) error {
	accounts, err := o.wallet.Connect(ctx, ConnectOptions{SelectExactlyOne: true})
	if err == nil && len(accounts) == 0 {
		err = ErrNoAccounts
	}
	if err != nil {
		o.metrics.failed(ctx, StageConnect)
		o.log.InfoContext(ctx, "connecting wallet failed", logger.Error(err))
		return &StageError{Stage: StageConnect, Err: err}
	}
	s.Address = accounts[0].Address
	o.log.InfoContext(ctx, "wallet connected", logger.Address(s.Address))
	return nil
}

/*
Mint creates NFT batch described by the request: builds issuance transactions,
has them signed by the wallet, broadcasts them and waits for confirmation.
On success the session's MintedAssetIDs is replaced with the ids of the
new assets (in the same order the transactions were built).

The returned report is non-nil once the request has been validated, also
when the batch fails. Transactions broadcast before the failure are not
rolled back.
*/
func (o *Orchestrator) Mint(ctx context.Context, s *Session, req MintRequest) (*MintReport, error) {
	if !s.Connected() {
		return nil, ErrNotConnected
	}
	count, err := parseAmount(req.Amount, o.cfg.MaxBatchSize)
	if err != nil {
		return nil, err
	}
	report := newReport(s.Address)
	log := o.log.With(logger.BatchID(report.BatchID))

	if count == 0 {
		log.InfoContext(ctx, "nothing to mint")
		s.MintedAssetIDs = []uint64{}
		report.advance(StateConfirmed)
		return report, nil
	}

	reserve, err := resolveReserve(req.MetadataPointer)
	if err != nil {
		return nil, err
	}
	o.metrics.batches.Add(ctx, 1)
	log.InfoContext(ctx, fmt.Sprintf("minting %d NFTs", count), logger.Address(s.Address))

	params, err := o.chain.SuggestedParams(ctx)
	if err != nil {
		return report, o.fail(ctx, log, report, StageParams, err)
	}
	report.advance(StateParamsFetched)

	is := &issuance{
		creator:  s.Address,
		manager:  req.Manager,
		reserve:  reserve,
		url:      req.TemplateURL,
		params:   params,
		template: o.cfg.Template,
	}
	txns, err := is.build(count)
	if err != nil {
		return report, o.fail(ctx, log, report, StageBuild, err)
	}
	batch := newBatch(txns, o.chain, log)
	report.setBatch(batch)
	report.advance(StateBuilt)

	signed, err := o.wallet.SignTransactions(ctx, batch.transactions())
	if err == nil {
		err = batch.setSigned(signed)
	}
	if err != nil {
		return report, o.fail(ctx, log, report, StageSign, err)
	}
	report.advance(StateSigned)

	submitErr := batch.submitAll(ctx)
	if submitErr == nil {
		report.advance(StateSubmitted)
	}
	// even when some submissions failed we wait for the rest so that the
	// report tells what ended up on chain
	confirmErr := batch.confirmAll(ctx, o.cfg.ConfirmationRounds)
	report.setBatch(batch)
	if submitErr != nil {
		return report, o.fail(ctx, log, report, StageSubmit, errors.Join(submitErr, confirmErr))
	}
	if confirmErr != nil {
		return report, o.fail(ctx, log, report, StageConfirm, confirmErr)
	}

	// ids of the previous batch are replaced, not accumulated
	s.MintedAssetIDs = make([]uint64, 0, len(report.AssetIDs))
	s.MintedAssetIDs = append(s.MintedAssetIDs, report.AssetIDs...)
	report.advance(StateConfirmed)
	o.metrics.minted.Add(ctx, int64(len(report.AssetIDs)))
	log.InfoContext(ctx, fmt.Sprintf("minted %d NFTs", len(report.AssetIDs)), logger.Data(report.AssetIDs))

	if o.notifier != nil {
		if err := o.notifier.PublishMinted(ctx, report); err != nil {
			log.WarnContext(ctx, "publishing minted event failed", logger.Error(err))
		}
	}
	return report, nil
}

func (o *Orchestrator) fail(ctx context.Context, log *slog.Logger, report *MintReport, stage Stage, err error) error {
	report.failed()
	o.metrics.failed(ctx, stage)
	log.ErrorContext(ctx, "minting failed", logger.Stage(string(stage)), slog.String("last_state", report.LastState.String()), logger.Error(err))
	return &StageError{Stage: stage, Err: err}
}
