/*
Package api exposes the minter over REST so that a web page can drive the
connect and mint workflow. The server holds single session, it is meant to
be run locally by the user next to the wallet.
*/
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ainvaltin/httpsrv"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/trantorian/nftminter/logger"
	"github.com/trantorian/nftminter/pkg/mint"
)

type (
	Minter interface {
		Connect(ctx context.Context, s *mint.Session) error
		Mint(ctx context.Context, s *mint.Session, req mint.MintRequest) (*mint.MintReport, error)
	}

	ServerConfig struct {
		Addr string
		// allowed CORS origins, empty means any
		AllowedOrigins []string
		// mint waits for confirmations so the write timeout must cover
		// the confirmation rounds
		WriteTimeout time.Duration
		// optional, served on /metrics
		MetricsHandler http.Handler
	}

	mintRestAPI struct {
		minter  Minter
		rw      *ResponseWriter
		log     *slog.Logger
		metrics http.Handler
		origins []string

		// only one connect or mint may run at a time
		busy    atomic.Bool
		mu      sync.Mutex
		session mint.Session
	}

	ConnectResponse struct {
		Address string `json:"address"`
	}
)

func newRestAPI(minter Minter, cfg ServerConfig, log *slog.Logger) *mintRestAPI {
	return &mintRestAPI{
		minter:  minter,
		rw:      &ResponseWriter{log: log},
		log:     log,
		metrics: cfg.MetricsHandler,
		origins: cfg.AllowedOrigins,
	}
}

func (api *mintRestAPI) Router() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)

	apiRouter := router.PathPrefix("/api").Subrouter()
	// content-type needs to be explicitly allowed, OPTIONS method needs to be
	// defined for each handler func for the CORS filter to be applied
	corsOpts := []handlers.CORSOption{handlers.AllowedHeaders([]string{ContentType})}
	if len(api.origins) > 0 {
		corsOpts = append(corsOpts, handlers.AllowedOrigins(api.origins))
	}
	apiRouter.Use(handlers.CORS(corsOpts...))

	apiV1 := apiRouter.PathPrefix("/v1").Subrouter()
	apiV1.HandleFunc("/connect", api.connectFunc).Methods("POST", "OPTIONS")
	apiV1.HandleFunc("/mint", api.mintFunc).Methods("POST", "OPTIONS")
	apiV1.HandleFunc("/session", api.sessionFunc).Methods("GET", "OPTIONS")

	if api.metrics != nil {
		router.Handle("/metrics", api.metrics).Methods("GET")
	}
	return router
}

func (api *mintRestAPI) connectFunc(w http.ResponseWriter, r *http.Request) {
	if !api.busy.CompareAndSwap(false, true) {
		api.rw.WriteErrorResponse(w, errBusy, nil)
		return
	}
	defer api.busy.Store(false)

	s := api.sessionSnapshot()
	if err := api.minter.Connect(r.Context(), &s); err != nil {
		api.rw.WriteErrorResponse(w, err, nil)
		return
	}
	api.setSession(s)
	api.rw.WriteResponse(w, &ConnectResponse{Address: s.Address})
}

func (api *mintRestAPI) mintFunc(w http.ResponseWriter, r *http.Request) {
	var req mint.MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.rw.InvalidBodyResponse(w, err)
		return
	}

	if !api.busy.CompareAndSwap(false, true) {
		api.rw.WriteErrorResponse(w, errBusy, nil)
		return
	}
	defer api.busy.Store(false)

	// orchestrator leaves the session untouched when mint fails
	s := api.sessionSnapshot()
	report, err := api.minter.Mint(r.Context(), &s, req)
	api.setSession(s)
	if err != nil {
		api.rw.WriteErrorResponse(w, err, report)
		return
	}
	api.rw.WriteResponse(w, report)
}

func (api *mintRestAPI) sessionFunc(w http.ResponseWriter, r *http.Request) {
	s := api.sessionSnapshot()
	api.rw.WriteResponse(w, &s)
}

func (api *mintRestAPI) sessionSnapshot() mint.Session {
	api.mu.Lock()
	defer api.mu.Unlock()
	s := api.session
	if s.MintedAssetIDs != nil {
		s.MintedAssetIDs = append([]uint64{}, s.MintedAssetIDs...)
	}
	return s
}

func (api *mintRestAPI) setSession(s mint.Session) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.session = s
}

/*
Run starts the REST API server and blocks until ctx is cancelled or the
server fails.
*/
func Run(ctx context.Context, cfg ServerConfig, minter Minter, log *slog.Logger) error {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = time.Minute
	}
	api := newRestAPI(minter, cfg, log)
	server := http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(),
		ReadTimeout:       3 * time.Second,
		ReadHeaderTimeout: time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       30 * time.Second,
	}
	log.InfoContext(ctx, "starting REST API server", slog.String("addr", cfg.Addr))
	err := httpsrv.Run(ctx, server, httpsrv.ShutdownTimeout(5*time.Second))
	log.InfoContext(ctx, "REST API server stopped", logger.Error(err))
	return err
}
