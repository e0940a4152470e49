/*
Package testalgod implements in-memory fake of the algod REST API, only
the endpoints the minter uses are supported.
*/
package testalgod

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/common/models"
	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/encoding/json"
	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/gorilla/mux"

	test "github.com/trantorian/nftminter/internal/testutils"
)

const TokenHeader = "X-Algo-API-Token"

type pendingTxn struct {
	stx            types.SignedTxn
	sentRound      uint64
	confirmedRound uint64
	assetID        uint64
	poolError      string
}

type Node struct {
	Token string
	// number of rounds after which sent transaction is confirmed
	ConfirmAfter uint64
	Params       models.TransactionParametersResponse

	mu        sync.Mutex
	lastRound uint64
	nextAsset uint64
	txs       map[string]*pendingTxn
	sent      []types.SignedTxn
	sendErr   func(stx types.SignedTxn) error

	srv *httptest.Server
}

/*
New starts fake algod node, it is stopped when the test ends. Sent
transactions are confirmed on the next round and assets are numbered
starting from "firstAsset" in the order transactions were received.
*/
func New(t testing.TB, firstAsset uint64) *Node {
	n := &Node{
		ConfirmAfter: 1,
		Params: models.TransactionParametersResponse{
			ConsensusVersion: "future",
			Fee:              0,
			GenesisHash:      test.RandomBytes(32),
			GenesisId:        "testnet-v1.0",
			LastRound:        1000,
			MinFee:           1000,
		},
		lastRound: 1000,
		nextAsset: firstAsset,
		txs:       map[string]*pendingTxn{},
	}
	n.srv = httptest.NewServer(n.router())
	t.Cleanup(n.srv.Close)
	return n
}

func (n *Node) URL() string {
	return n.srv.URL
}

// Sent returns the transactions accepted by the node, in the order received.
func (n *Node) Sent() []types.SignedTxn {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]types.SignedTxn{}, n.sent...)
}

// RejectWith makes the node to refuse transactions for which f returns error.
func (n *Node) RejectWith(f func(stx types.SignedTxn) error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sendErr = f
}

// SetPoolError makes the node to report the transaction as removed from the pool.
func (n *Node) SetPoolError(txID, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if tx, ok := n.txs[txID]; ok {
		tx.poolError = msg
	}
}

func (n *Node) LastRound() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastRound
}

func (n *Node) router() http.Handler {
	r := mux.NewRouter()
	r.Use(n.authMiddleware)
	r.HandleFunc("/v2/transactions/params", n.getParams).Methods(http.MethodGet)
	r.HandleFunc("/v2/transactions", n.postTransaction).Methods(http.MethodPost)
	r.HandleFunc("/v2/transactions/pending/{txid}", n.getPending).Methods(http.MethodGet)
	r.HandleFunc("/v2/status", n.getStatus).Methods(http.MethodGet)
	r.HandleFunc("/v2/status/wait-for-block-after/{round}", n.waitForBlock).Methods(http.MethodGet)
	return r
}

func (n *Node) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if n.Token != "" && r.Header.Get(TokenHeader) != n.Token {
			writeError(w, http.StatusUnauthorized, "Invalid API Token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (n *Node) getParams(w http.ResponseWriter, r *http.Request) {
	n.mu.Lock()
	params := n.Params
	params.LastRound = n.lastRound
	n.mu.Unlock()
	writeJSON(w, params)
}

func (n *Node) postTransaction(w http.ResponseWriter, r *http.Request) {
	b, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var stx types.SignedTxn
	if err := msgpack.Decode(b, &stx); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decoding signed transaction: %v", err))
		return
	}
	if stx.Sig == (types.Signature{}) {
		writeError(w, http.StatusBadRequest, "transaction is not signed")
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sendErr != nil {
		if err := n.sendErr(stx); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	txID := crypto.GetTxID(stx.Txn)
	if _, ok := n.txs[txID]; ok {
		writeError(w, http.StatusBadRequest, "transaction already in ledger: "+txID)
		return
	}
	n.txs[txID] = &pendingTxn{stx: stx, sentRound: n.lastRound, assetID: n.nextAsset}
	n.nextAsset++
	n.sent = append(n.sent, stx)
	writeJSON(w, models.PostTransactionsResponse{Txid: txID})
}

func (n *Node) getPending(w http.ResponseWriter, r *http.Request) {
	txID := mux.Vars(r)["txid"]
	n.mu.Lock()
	tx, ok := n.txs[txID]
	var resp models.PendingTransactionInfoResponse
	if ok {
		resp.Transaction = tx.stx
		resp.PoolError = tx.poolError
		resp.ConfirmedRound = tx.confirmedRound
		if tx.confirmedRound > 0 {
			resp.AssetIndex = tx.assetID
		}
	}
	n.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "txn does not exist")
		return
	}
	if r.URL.Query().Get("format") == "msgpack" {
		w.Header().Set("Content-Type", "application/msgpack")
		_, _ = w.Write(msgpack.Encode(&resp))
		return
	}
	writeJSON(w, &resp)
}

func (n *Node) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, models.NodeStatus{LastRound: n.LastRound()})
}

// waitForBlock advances the chain to round+1 immediately.
func (n *Node) waitForBlock(w http.ResponseWriter, r *http.Request) {
	round, err := strconv.ParseUint(mux.Vars(r)["round"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n.mu.Lock()
	if round+1 > n.lastRound {
		n.lastRound = round + 1
	}
	for _, tx := range n.txs {
		if tx.confirmedRound == 0 && tx.poolError == "" && n.lastRound >= tx.sentRound+n.ConfirmAfter {
			tx.confirmedRound = n.lastRound
		}
	}
	status := models.NodeStatus{LastRound: n.lastRound}
	n.mu.Unlock()
	writeJSON(w, status)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(json.Encode(v))
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(json.Encode(models.ErrorResponse{Message: msg}))
}
