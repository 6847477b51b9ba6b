package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fastprodman/ledger/internal/services/ledger"
)

// LedgerService is the part of *ledger.Ledger the handlers need.
type LedgerService interface {
	Append(ctx context.Context, kind ledger.Kind, amount float64) (ledger.Outcome, error)
	Undo(ctx context.Context) (ledger.Outcome, error)
	Redo(ctx context.Context) (ledger.Outcome, error)
	Snapshot(ctx context.Context) (ledger.Snapshot, error)
}

const maxBodyBytes = 1 << 20

// Response messages. Clients match on these strings.
const (
	MsgInvalidInput   = "Invalid input"
	MsgNothingToUndo  = "Nothing to undo"
	MsgNothingToRedo  = "Nothing to redo"
	MsgInternalServer = "Internal server error"
)

// HandlerProvider wraps a LedgerService and exposes HTTP handlers.
type HandlerProvider struct {
	svc LedgerService
	log *slog.Logger
}

func NewHandler(svc LedgerService, log *slog.Logger) *HandlerProvider {
	if log == nil {
		log = slog.Default()
	}

	return &HandlerProvider{svc: svc, log: log.With("component", "api")}
}

// TransactionDTO is the wire shape of a ledger transaction.
type TransactionDTO struct {
	ID        uint64    `json:"id"`
	Type      string    `json:"type"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

type ListResponse struct {
	Transactions []TransactionDTO `json:"transactions"`
	Balance      float64          `json:"balance"`
	CanUndo      bool             `json:"canUndo"`
	CanRedo      bool             `json:"canRedo"`
}

type OperationResponse struct {
	Balance     float64         `json:"balance"`
	Message     string          `json:"message"`
	Transaction *TransactionDTO `json:"transaction,omitempty"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

type amountRequest struct {
	Amount *float64 `json:"amount"`
}

func toDTO(t ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:        t.ID,
		Type:      string(t.Kind),
		Amount:    t.Amount,
		CreatedAt: t.CreatedAt,
	}
}

// --- Helpers ---

// writeJSON encodes before writing the header so an unencodable value
// becomes a 500 rather than an empty 200.
func (h *HandlerProvider) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		h.log.Error("failed to encode JSON response", "error", err)

		status = http.StatusInternalServerError
		body = []byte(`{"message":"` + MsgInternalServer + `"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_, err = w.Write(append(body, '\n'))
	if err != nil {
		h.log.Warn("failed to write response", "error", err)
	}
}

func (h *HandlerProvider) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, ErrorResponse{Message: msg})
}

// fail maps ledger errors onto the response codes; anything unknown is a 500.
func (h *HandlerProvider) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidKind),
		errors.Is(err, ledger.ErrBalanceOutOfRange):
		h.writeError(w, http.StatusBadRequest, MsgInvalidInput)
	case errors.Is(err, ledger.ErrNothingToUndo):
		h.writeError(w, http.StatusBadRequest, MsgNothingToUndo)
	case errors.Is(err, ledger.ErrNothingToRedo):
		h.writeError(w, http.StatusBadRequest, MsgNothingToRedo)
	default:
		h.log.Error("ledger operation failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		h.writeError(w, http.StatusInternalServerError, MsgInternalServer)
	}
}

// decodeAmount reads {"amount": n}. Missing, null or malformed amounts are
// rejected here; range checks are left to the ledger.
func decodeAmount(w http.ResponseWriter, r *http.Request) (float64, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	var req amountRequest

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(&req)
	if err != nil || req.Amount == nil {
		return 0, false
	}

	if dec.More() {
		return 0, false
	}

	return *req.Amount, true
}

// formatBalance prints the shortest representation, so 600 reads "600".
// Magnitudes from 1e21 up, or below 1e-6, switch to exponent form with an
// unpadded exponent ("1.7e+308", "5e-7").
func formatBalance(b float64) string {
	abs := math.Abs(b)
	if abs == 0 || (abs >= 1e-6 && abs < 1e21) {
		return strconv.FormatFloat(b, 'f', -1, 64)
	}

	s := strconv.FormatFloat(b, 'e', -1, 64)

	mant, exp, _ := strings.Cut(s, "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")

	return mant + "e" + sign + digits
}

func message(out ledger.Outcome) string {
	var verb string

	switch out.Op {
	case ledger.OpCredit:
		verb = "Credit added"
	case ledger.OpDebit:
		verb = "Debit added"
	case ledger.OpUndo:
		verb = "Undo done"
	case ledger.OpRedo:
		verb = "Redo done"
	}

	return verb + ". Balance = " + formatBalance(out.Balance)
}

func (h *HandlerProvider) writeOutcome(w http.ResponseWriter, out ledger.Outcome) {
	dto := toDTO(out.Transaction)

	h.writeJSON(w, http.StatusOK, OperationResponse{
		Balance:     out.Balance,
		Message:     message(out),
		Transaction: &dto,
	})
}

// --- Handlers ---

// ListHandler handles GET /api/transactions
func (h *HandlerProvider) ListHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Snapshot(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	txns := make([]TransactionDTO, 0, len(snap.Transactions))
	for _, t := range snap.Transactions {
		txns = append(txns, toDTO(t))
	}

	h.writeJSON(w, http.StatusOK, ListResponse{
		Transactions: txns,
		Balance:      snap.Balance,
		CanUndo:      snap.CanUndo(),
		CanRedo:      snap.CanRedo(),
	})
}

// AppendHandler returns the handler for POST /api/transactions/{credit,debit}.
func (h *HandlerProvider) AppendHandler(kind ledger.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		amount, ok := decodeAmount(w, r)
		if !ok {
			h.writeError(w, http.StatusBadRequest, MsgInvalidInput)
			return
		}

		out, err := h.svc.Append(r.Context(), kind, amount)
		if err != nil {
			h.fail(w, r, err)
			return
		}

		h.writeOutcome(w, out)
	}
}

// UndoHandler handles POST /api/transactions/undo
func (h *HandlerProvider) UndoHandler(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Undo(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.writeOutcome(w, out)
}

// RedoHandler handles POST /api/transactions/redo
func (h *HandlerProvider) RedoHandler(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Redo(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.writeOutcome(w, out)
}
