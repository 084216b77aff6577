// Package rest exposes the four upload transaction exchanges over
// HTTP: initiate, authorize-part, finalize and abort. The handler
// delegates to any transaction.Transaction; Client on the other side
// implements transaction.Transaction against the same endpoints, so a
// browser-facing server and this module's coordinator speak one
// contract.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/derektruong/mpxfer/transaction"
	"github.com/go-logr/logr"
	"github.com/go-playground/validator/v10"
)

// validate use a single instance of validate, it caches struct info
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

// Handler serves the transaction wire contract.
type Handler struct {
	logger logr.Logger
	txn    transaction.Transaction
	mux    *http.ServeMux
}

// NewHandler constructs the HTTP surface over the given transaction
// collaborator.
func NewHandler(logger logr.Logger, txn transaction.Transaction) (h *Handler) {
	h = &Handler{
		logger: logger.WithName("rest.handler"),
		txn:    txn,
		mux:    http.NewServeMux(),
	}
	h.mux.HandleFunc("POST /transactions", h.handleInitiate)
	h.mux.HandleFunc("POST /transactions/{id}/parts/{part}/authorization", h.handleAuthorizePart)
	h.mux.HandleFunc("POST /transactions/{id}/finalize", h.handleFinalize)
	h.mux.HandleFunc("DELETE /transactions/{id}", h.handleAbort)
	return
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleInitiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, errorResponse{Code: codeBadRequest, Message: err.Error()})
		return
	}
	if err := validate.StructCtx(r.Context(), req); err != nil {
		h.writeError(w, http.StatusBadRequest, errorResponse{Code: codeBadRequest, Message: err.Error()})
		return
	}

	transactionID, err := h.txn.Initiate(r.Context(), req.Key, req.ContentType)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, errorResponse{Code: codeInitFailed, Message: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusCreated, initiateResponse{TransactionID: transactionID})
}

func (h *Handler) handleAuthorizePart(w http.ResponseWriter, r *http.Request) {
	transactionID := r.PathValue("id")
	partNumber, err := strconv.ParseInt(r.PathValue("part"), 10, 32)
	if err != nil || partNumber < 1 {
		h.writeError(w, http.StatusBadRequest, errorResponse{
			Code:    codeBadRequest,
			Message: "part number must be a positive integer",
		})
		return
	}

	auth, err := h.txn.AuthorizePart(r.Context(), transactionID, int32(partNumber))
	if err != nil {
		if errors.Is(err, transaction.ErrTransactionNotExists) {
			h.writeError(w, http.StatusNotFound, errorResponse{Code: codeNotFound, Message: err.Error()})
			return
		}
		h.writeError(w, http.StatusBadGateway, errorResponse{Code: codeAuthorizationFailed, Message: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, authorizeResponse{Authorization: auth})
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	transactionID := r.PathValue("id")

	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, errorResponse{Code: codeBadRequest, Message: err.Error()})
		return
	}
	if err := validate.StructCtx(r.Context(), req); err != nil {
		h.writeError(w, http.StatusBadRequest, errorResponse{Code: codeBadRequest, Message: err.Error()})
		return
	}

	objectID, err := h.txn.Finalize(r.Context(), transactionID, req.Parts)
	if err != nil {
		var incompleteErr *transaction.IncompletePartsError
		switch {
		case errors.Is(err, transaction.ErrAlreadyCompleted):
			h.writeError(w, http.StatusConflict, errorResponse{Code: codeAlreadyCompleted, Message: err.Error()})
		case errors.As(err, &incompleteErr):
			h.writeError(w, http.StatusUnprocessableEntity, errorResponse{
				Code:     codeIncompleteParts,
				Message:  err.Error(),
				Expected: incompleteErr.Expected,
				Got:      incompleteErr.Got,
			})
		case errors.Is(err, transaction.ErrTransactionNotExists):
			h.writeError(w, http.StatusNotFound, errorResponse{Code: codeNotFound, Message: err.Error()})
		default:
			h.writeError(w, http.StatusBadGateway, errorResponse{Code: codeFinalizeFailed, Message: err.Error()})
		}
		return
	}
	h.writeJSON(w, http.StatusOK, finalizeResponse{ObjectID: objectID})
}

func (h *Handler) handleAbort(w http.ResponseWriter, r *http.Request) {
	transactionID := r.PathValue("id")
	if err := h.txn.Abort(r.Context(), transactionID); err != nil {
		h.writeError(w, http.StatusBadGateway, errorResponse{Code: codeAbortFailed, Message: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Info("failed to encode response", "errorMessage", err.Error())
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, body errorResponse) {
	h.writeJSON(w, status, body)
}
