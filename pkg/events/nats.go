/*
Package events publishes information about minted NFT batches to NATS so
that other services (indexers, marketplaces) can pick up the new assets.
*/
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/trantorian/nftminter/logger"
	"github.com/trantorian/nftminter/pkg/mint"
)

const DefaultSubject = "nftminter.minted"

type MintedEvent struct {
	Type      string   `json:"type"`
	BatchID   string   `json:"batchId"`
	Creator   string   `json:"creator"`
	AssetIDs  []uint64 `json:"assetIds"`
	TxIDs     []string `json:"txIds"`
	TotalFee  string   `json:"totalFee"`
	Timestamp int64    `json:"timestamp"`
}

type publisher interface {
	Publish(subject string, data []byte) error
}

// Publisher implements mint.Notifier.
type Publisher struct {
	conn    publisher
	subject string
	close   func()
}

var _ mint.Notifier = (*Publisher)(nil)

// Connect opens connection to the NATS server at "url", empty url means nats.DefaultURL.
func Connect(url, subject string, log *slog.Logger) (*Publisher, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	if subject == "" {
		subject = DefaultSubject
	}
	conn, err := nats.Connect(url,
		nats.Name("nftminter"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("disconnected from NATS", logger.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("reconnected to NATS", slog.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	return &Publisher{conn: conn, subject: subject, close: conn.Close}, nil
}

func (p *Publisher) PublishMinted(ctx context.Context, report *mint.MintReport) error {
	data, err := json.Marshal(newMintedEvent(report))
	if err != nil {
		return fmt.Errorf("encoding minted event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publishing minted event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.close != nil {
		p.close()
	}
}

func newMintedEvent(report *mint.MintReport) *MintedEvent {
	ev := &MintedEvent{
		Type:      "minted",
		BatchID:   report.BatchID,
		Creator:   report.Creator,
		AssetIDs:  report.AssetIDs,
		TxIDs:     make([]string, 0, len(report.Transactions)),
		TotalFee:  report.TotalFee.String(),
		Timestamp: time.Now().Unix(),
	}
	for _, tx := range report.Transactions {
		ev.TxIDs = append(ev.TxIDs, tx.TxID)
	}
	return ev
}
