package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/trantorian/nftminter/logger"
	"github.com/trantorian/nftminter/pkg/mint"
)

const (
	ContentType     = "Content-Type"
	ApplicationJson = "application/json"
)

type (
	ErrorResponse struct {
		Message string `json:"message"`
	}

	// MintErrorResponse is returned when the batch failed talking to the wallet or the chain.
	MintErrorResponse struct {
		Message string           `json:"message"`
		Stage   mint.Stage       `json:"stage"`
		Report  *mint.MintReport `json:"report,omitempty"`
	}

	ResponseWriter struct {
		log *slog.Logger
	}
)

var errBusy = errors.New("another operation is in progress")

func (rw *ResponseWriter) WriteResponse(w http.ResponseWriter, data any) {
	rw.writeJSON(w, http.StatusOK, data)
}

/*
WriteErrorResponse maps errors returned by the mint orchestrator to HTTP
status codes: validation errors are client errors (400), wallet and chain
failures are reported as bad gateway (502) together with the mint report.
*/
func (rw *ResponseWriter) WriteErrorResponse(w http.ResponseWriter, err error, report *mint.MintReport) {
	var se *mint.StageError
	switch {
	case errors.As(err, &se):
		rw.writeJSON(w, http.StatusBadGateway, MintErrorResponse{Message: err.Error(), Stage: se.Stage, Report: report})
	case errors.Is(err, mint.ErrInvalidAmount),
		errors.Is(err, mint.ErrBatchTooLarge),
		errors.Is(err, mint.ErrInvalidMetadataPointer):
		rw.ErrorResponse(w, http.StatusBadRequest, err)
	case errors.Is(err, mint.ErrNotConnected), errors.Is(err, errBusy):
		rw.ErrorResponse(w, http.StatusConflict, err)
	default:
		rw.log.Error("request failed", logger.Error(err))
		rw.ErrorResponse(w, http.StatusInternalServerError, err)
	}
}

func (rw *ResponseWriter) InvalidBodyResponse(w http.ResponseWriter, err error) {
	rw.ErrorResponse(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
}

func (rw *ResponseWriter) ErrorResponse(w http.ResponseWriter, code int, err error) {
	rw.writeJSON(w, code, ErrorResponse{Message: err.Error()})
}

func (rw *ResponseWriter) writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set(ContentType, ApplicationJson)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		rw.log.Warn("failed to encode response data as json", logger.Error(err))
	}
}
