package secacct

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/secledger/secledger/internal/ledger"
	"github.com/secledger/secledger/internal/platform/httpx"
)

// GeneratedObserver counts generated transactions per kind.
type GeneratedObserver interface {
	ObserveGenerated(kind string)
}

// CacheInvalidator drops derived read caches after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// Handler wires HTTP endpoints for the securities account operations.
type Handler struct {
	logger      *slog.Logger
	generator   *Generator
	lots        *LotChecker
	store       ledger.Store
	metrics     GeneratedObserver
	invalidator CacheInvalidator
	validator   *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, generator *Generator, lots *LotChecker, store ledger.Store, metrics GeneratedObserver, invalidator CacheInvalidator) *Handler {
	return &Handler{
		logger:      logger,
		generator:   generator,
		lots:        lots,
		store:       store,
		metrics:     metrics,
		invalidator: invalidator,
		validator:   validator.New(),
	}
}

// MountRoutes registers securities account routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/buy", h.handleBuy)
	r.Post("/dividend", h.handleDividend)
	r.Post("/stock-split", h.handleStockSplit)
	r.Get("/accounts/{accountID}/shares", h.handleShareAccounts)
	r.Get("/accounts/{accountID}/lots/check", h.handleLotCheck)
}

func (h *Handler) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req BuyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "validation failed", err.Error())
		return
	}
	input, err := req.toInput()
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "invalid payload", err.Error())
		return
	}
	trx, err := h.generator.GenBuyStock(r.Context(), input)
	if err != nil {
		h.respondGenerationError(w, r, "generate buy", err)
		return
	}
	h.afterWrite(r.Context(), "buy")
	httpx.JSON(w, http.StatusCreated, toTransactionDTO(trx))
}

func (h *Handler) handleDividend(w http.ResponseWriter, r *http.Request) {
	var req DividendRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "validation failed", err.Error())
		return
	}
	input, err := req.toInput()
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "invalid payload", err.Error())
		return
	}
	trx, err := h.generator.GenDividDistrib(r.Context(), input)
	if err != nil {
		h.respondGenerationError(w, r, "generate dividend", err)
		return
	}
	h.afterWrite(r.Context(), "dividend")
	httpx.JSON(w, http.StatusCreated, toTransactionDTO(trx))
}

func (h *Handler) handleStockSplit(w http.ResponseWriter, r *http.Request) {
	var req StockSplitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "validation failed", err.Error())
		return
	}
	input, err := req.toInput()
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "invalid payload", err.Error())
		return
	}
	trx, err := h.generator.GenStockSplit(r.Context(), input)
	if err != nil {
		h.respondGenerationError(w, r, "generate stock split", err)
		return
	}
	h.afterWrite(r.Context(), "stock_split")
	httpx.JSON(w, http.StatusCreated, toTransactionDTO(trx))
}

func (h *Handler) handleShareAccounts(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid account id", err.Error())
		return
	}
	mgr, err := NewManager(r.Context(), h.store, accountID)
	if err != nil {
		h.respondGenerationError(w, r, "load investment account", err)
		return
	}
	var accounts []*ledger.Account
	if r.URL.Query().Get("active") == "1" {
		accounts, err = mgr.ActiveShareAccounts(r.Context())
	} else {
		accounts, err = mgr.ShareAccounts(r.Context())
	}
	if err != nil {
		h.respondGenerationError(w, r, "list share accounts", err)
		return
	}
	out := make([]AccountDTO, 0, len(accounts))
	for _, acct := range accounts {
		out = append(out, toAccountDTO(acct))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleLotCheck(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid account id", err.Error())
		return
	}
	ok, err := h.lots.AreLotsOK(r.Context(), accountID)
	if err != nil {
		h.respondGenerationError(w, r, "check lots", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"ok": ok})
}

func (h *Handler) afterWrite(ctx context.Context, kind string) {
	if h.metrics != nil {
		h.metrics.ObserveGenerated(kind)
	}
	if h.invalidator != nil {
		h.invalidator.Invalidate(ctx)
	}
}

func (h *Handler) respondGenerationError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		httpx.Problem(w, http.StatusNotFound, "account not found", err.Error())
	case isInputError(err):
		httpx.Problem(w, http.StatusUnprocessableEntity, "invalid input", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "internal error", "")
	}
}

func isInputError(err error) bool {
	for _, target := range []error{
		ErrUnsetAccountID,
		ErrWrongAccountType,
		ErrEmptyExpenseList,
		ErrUnsetExpenseEntry,
		ErrNonPositiveShares,
		ErrNonPositivePrice,
		ErrNonPositiveExpense,
		ErrInvalidAction,
		ErrNonPositiveFactor,
		ErrImplausibleFactor,
		ErrZeroAddShares,
		ErrImplausibleAddShares,
		ErrZeroPosition,
		ErrUnknownSplitMode,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
