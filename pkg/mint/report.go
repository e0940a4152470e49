package mint

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// State of the mint batch, reported even when the batch fails.
type State int

const (
	StateIdle State = iota
	StateParamsFetched
	StateBuilt
	StateSigned
	StateSubmitted
	StateConfirmed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateParamsFetched:
		return "params-fetched"
	case StateBuilt:
		return "built"
	case StateSigned:
		return "signed"
	case StateSubmitted:
		return "submitted"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for v := StateIdle; v <= StateFailed; v++ {
		if v.String() == string(text) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

type (
	/*
	MintReport describes the outcome of single Mint call. On failure it tells
	which transactions were broadcast (and possibly confirmed) before the
	batch failed.
	*/
	MintReport struct {
		BatchID      string       `json:"batchId"`
		Creator      string       `json:"creator"`
		Started      time.Time    `json:"started"`
		State        State        `json:"state"`
		LastState    State        `json:"lastState"` // last successfully reached state
		Transactions []*TxOutcome `json:"transactions"`
		AssetIDs     []uint64     `json:"assetIds"`
		// sum of the fees of the built transactions, in Algos
		TotalFee decimal.Decimal `json:"totalFee"`
	}

	TxOutcome struct {
		Index          int    `json:"index"`
		TxID           string `json:"txId"`
		AssetName      string `json:"assetName"`
		Submitted      bool   `json:"submitted"`
		Error          string `json:"error,omitempty"`
		AssetID        uint64 `json:"assetId,omitempty"`
		ConfirmedRound uint64 `json:"confirmedRound,omitempty"`
	}
)

const microAlgoExp = -6

func newReport(creator string) *MintReport {
	return &MintReport{
		BatchID:  uuid.NewString(),
		Creator:  creator,
		Started:  time.Now().UTC(),
		State:    StateIdle,
		AssetIDs: []uint64{},
		TotalFee: decimal.Zero,
	}
}

func (r *MintReport) advance(s State) {
	r.State = s
	r.LastState = s
}

func (r *MintReport) failed() {
	r.State = StateFailed
}

// Succeeded reports whether all the NFTs of the batch were minted.
func (r *MintReport) Succeeded() bool {
	return r.State == StateConfirmed
}

func (r *MintReport) setBatch(b *TxSubmissionBatch) {
	var fee uint64
	r.Transactions = make([]*TxOutcome, 0, len(b.submissions))
	for _, sub := range b.submissions {
		fee += uint64(sub.Transaction.Fee)
		out := &TxOutcome{
			Index:     sub.Index,
			TxID:      sub.TxID,
			AssetName: sub.Transaction.AssetParams.AssetName,
			Submitted: sub.Submitted,
		}
		switch {
		case sub.SubmitErr != nil:
			out.Error = sub.SubmitErr.Error()
		case sub.ConfirmErr != nil:
			out.Error = sub.ConfirmErr.Error()
		}
		if sub.Confirmed() {
			out.AssetID = sub.Confirmation.AssetID
			out.ConfirmedRound = sub.Confirmation.ConfirmedRound
		}
		r.Transactions = append(r.Transactions, out)
	}
	r.TotalFee = decimal.New(int64(fee), microAlgoExp)
	r.AssetIDs = b.assetIDs()
}
