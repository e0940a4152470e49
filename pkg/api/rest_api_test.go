package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	testhttp "github.com/trantorian/nftminter/internal/testutils/http"
	testlogger "github.com/trantorian/nftminter/internal/testutils/logger"
	testnet "github.com/trantorian/nftminter/internal/testutils/net"
	"github.com/trantorian/nftminter/pkg/mint"
)

type minterMock struct {
	connect func(ctx context.Context, s *mint.Session) error
	mint    func(ctx context.Context, s *mint.Session, req mint.MintRequest) (*mint.MintReport, error)
}

func (m *minterMock) Connect(ctx context.Context, s *mint.Session) error {
	return m.connect(ctx, s)
}

func (m *minterMock) Mint(ctx context.Context, s *mint.Session, req mint.MintRequest) (*mint.MintReport, error) {
	return m.mint(ctx, s, req)
}

func doRequest(t *testing.T, api *mintRestAPI, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var b []byte
	if s, ok := body.(string); ok {
		b = []byte(s)
	} else if body != nil {
		var err error
		b, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	w := httptest.NewRecorder()
	api.Router().ServeHTTP(w, req)
	return w
}

func decodeResponse[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	require.Equal(t, ApplicationJson, w.Header().Get(ContentType))
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func Test_connect(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		api := newRestAPI(&minterMock{connect: func(ctx context.Context, s *mint.Session) error {
			s.Address = "ADDR"
			return nil
		}}, ServerConfig{}, testlogger.New(t))

		w := doRequest(t, api, http.MethodPost, "/api/v1/connect", nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "ADDR", decodeResponse[ConnectResponse](t, w).Address)
		require.Equal(t, "ADDR", api.sessionSnapshot().Address)
	})

	t.Run("wallet fails", func(t *testing.T) {
		api := newRestAPI(&minterMock{connect: func(ctx context.Context, s *mint.Session) error {
			return &mint.StageError{Stage: mint.StageConnect, Err: errors.New("rejected by user")}
		}}, ServerConfig{}, testlogger.New(t))

		w := doRequest(t, api, http.MethodPost, "/api/v1/connect", nil)
		require.Equal(t, http.StatusBadGateway, w.Code)
		resp := decodeResponse[MintErrorResponse](t, w)
		require.Equal(t, mint.StageConnect, resp.Stage)
		require.Equal(t, "connect failed: rejected by user", resp.Message)
		require.Empty(t, api.sessionSnapshot().Address)
	})

	t.Run("wrong method", func(t *testing.T) {
		api := newRestAPI(&minterMock{}, ServerConfig{}, testlogger.New(t))
		w := doRequest(t, api, http.MethodGet, "/api/v1/connect", nil)
		require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func Test_mint(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var got mint.MintRequest
		api := newRestAPI(&minterMock{mint: func(ctx context.Context, s *mint.Session, req mint.MintRequest) (*mint.MintReport, error) {
			got = req
			s.MintedAssetIDs = []uint64{5, 6}
			return &mint.MintReport{BatchID: "b1", State: mint.StateConfirmed, AssetIDs: []uint64{5, 6}}, nil
		}}, ServerConfig{}, testlogger.New(t))
		api.session.Address = "ADDR"

		w := doRequest(t, api, http.MethodPost, "/api/v1/mint", `{"amount":"2","manager":"MGR","metadata":"RES","template":"URL"}`)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, mint.MintRequest{Amount: "2", Manager: "MGR", MetadataPointer: "RES", TemplateURL: "URL"}, got)

		var report map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		require.Equal(t, "b1", report["batchId"])
		require.Equal(t, "confirmed", report["state"])
		require.Equal(t, []uint64{5, 6}, api.sessionSnapshot().MintedAssetIDs)

		w = doRequest(t, api, http.MethodGet, "/api/v1/session", nil)
		require.Equal(t, http.StatusOK, w.Code)
		s := decodeResponse[mint.Session](t, w)
		require.Equal(t, mint.Session{Address: "ADDR", MintedAssetIDs: []uint64{5, 6}}, s)
	})

	t.Run("errors", func(t *testing.T) {
		var testCases = []struct {
			err  error
			code int
		}{
			{err: mint.ErrNotConnected, code: http.StatusConflict},
			{err: fmt.Errorf("%w \"x\": not a number", mint.ErrInvalidAmount), code: http.StatusBadRequest},
			{err: mint.ErrBatchTooLarge, code: http.StatusBadRequest},
			{err: mint.ErrInvalidMetadataPointer, code: http.StatusBadRequest},
			{err: errors.New("unexpected"), code: http.StatusInternalServerError},
		}
		for _, tc := range testCases {
			api := newRestAPI(&minterMock{mint: func(ctx context.Context, s *mint.Session, req mint.MintRequest) (*mint.MintReport, error) {
				return nil, tc.err
			}}, ServerConfig{}, testlogger.New(t))

			w := doRequest(t, api, http.MethodPost, "/api/v1/mint", mint.MintRequest{Amount: "1"})
			require.Equal(t, tc.code, w.Code, tc.err.Error())
			require.Equal(t, tc.err.Error(), decodeResponse[ErrorResponse](t, w).Message)
		}
	})

	t.Run("stage failure returns report", func(t *testing.T) {
		api := newRestAPI(&minterMock{mint: func(ctx context.Context, s *mint.Session, req mint.MintRequest) (*mint.MintReport, error) {
			report := &mint.MintReport{BatchID: "b2", State: mint.StateFailed, LastState: mint.StateSubmitted}
			return report, &mint.StageError{Stage: mint.StageConfirm, Err: errors.New("not confirmed after 4 rounds")}
		}}, ServerConfig{}, testlogger.New(t))
		api.session = mint.Session{Address: "ADDR", MintedAssetIDs: []uint64{1}}

		w := doRequest(t, api, http.MethodPost, "/api/v1/mint", mint.MintRequest{Amount: "1"})
		require.Equal(t, http.StatusBadGateway, w.Code)
		resp := decodeResponse[MintErrorResponse](t, w)
		require.Equal(t, mint.StageConfirm, resp.Stage)
		require.Equal(t, "b2", resp.Report.BatchID)
		require.Equal(t, mint.StateSubmitted, resp.Report.LastState)
		require.Equal(t, []uint64{1}, api.sessionSnapshot().MintedAssetIDs)
	})

	t.Run("invalid body", func(t *testing.T) {
		api := newRestAPI(&minterMock{}, ServerConfig{}, testlogger.New(t))
		w := doRequest(t, api, http.MethodPost, "/api/v1/mint", `{"amount":`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.True(t, strings.HasPrefix(decodeResponse[ErrorResponse](t, w).Message, "invalid request body"))
	})

	t.Run("busy", func(t *testing.T) {
		api := newRestAPI(&minterMock{}, ServerConfig{}, testlogger.New(t))
		api.busy.Store(true)

		w := doRequest(t, api, http.MethodPost, "/api/v1/mint", mint.MintRequest{Amount: "1"})
		require.Equal(t, http.StatusConflict, w.Code)
		require.Equal(t, errBusy.Error(), decodeResponse[ErrorResponse](t, w).Message)

		w = doRequest(t, api, http.MethodPost, "/api/v1/connect", nil)
		require.Equal(t, http.StatusConflict, w.Code)
	})
}

func Test_session_zeroMint(t *testing.T) {
	api := newRestAPI(&minterMock{mint: func(ctx context.Context, s *mint.Session, req mint.MintRequest) (*mint.MintReport, error) {
		s.MintedAssetIDs = []uint64{}
		return &mint.MintReport{State: mint.StateConfirmed}, nil
	}}, ServerConfig{}, testlogger.New(t))
	api.session = mint.Session{Address: "ADDR", MintedAssetIDs: []uint64{1, 2}}

	w := doRequest(t, api, http.MethodPost, "/api/v1/mint", mint.MintRequest{Amount: "0"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, api, http.MethodGet, "/api/v1/session", nil)
	require.JSONEq(t, `{"address":"ADDR","mintedAssetIds":[]}`, w.Body.String())
}

func Test_cors(t *testing.T) {
	api := newRestAPI(&minterMock{}, ServerConfig{AllowedOrigins: []string{"https://mint.example.org"}}, testlogger.New(t))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/mint", nil)
	req.Header.Set("Origin", "https://mint.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", ContentType)
	w := httptest.NewRecorder()
	api.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "https://mint.example.org", w.Header().Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example.org")
	w = httptest.NewRecorder()
	api.Router().ServeHTTP(w, req)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func Test_metrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("mint_batches_total 1\n"))
	})
	api := newRestAPI(&minterMock{}, ServerConfig{MetricsHandler: metrics}, testlogger.New(t))
	w := doRequest(t, api, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "mint_batches_total 1\n", w.Body.String())

	api = newRestAPI(&minterMock{}, ServerConfig{}, testlogger.New(t))
	w = doRequest(t, api, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func Test_Run(t *testing.T) {
	addr := testnet.FreeAddr(t)
	minter := &minterMock{
		connect: func(ctx context.Context, s *mint.Session) error {
			s.Address = "ADDR"
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, ServerConfig{Addr: addr}, minter, testlogger.Discard())
	}()

	// wait until server is up
	require.Eventually(t, func() bool {
		res, err := http.Get("http://" + addr)
		if err != nil {
			return false
		}
		_ = res.Body.Close()
		return true
	}, 2*time.Second, 50*time.Millisecond)

	var resp ConnectResponse
	httpRes := testhttp.DoPost(t, "http://"+addr+"/api/v1/connect", nil, &resp)
	require.Equal(t, http.StatusOK, httpRes.StatusCode)
	require.Equal(t, "ADDR", resp.Address)

	var s mint.Session
	testhttp.DoGet(t, "http://"+addr+"/api/v1/session", &s)
	require.Equal(t, "ADDR", s.Address)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(6 * time.Second):
		t.Fatal("server didn't stop")
	}
}
