package trxmgr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/secledger/secledger/internal/ledger"
	"github.com/secledger/secledger/internal/platform/httpx"
)

// TransactionFinder is the search contract shared by the plain and the
// cached finder.
type TransactionFinder interface {
	FindTransactions(ctx context.Context, flt *TransactionFilter, withSplits bool, logic SplitLogic) ([]*ledger.Transaction, error)
}

// MergeObserver counts merge attempts per strategy and outcome.
type MergeObserver interface {
	ObserveMerge(strategy, outcome string)
	ObserveFinderScan(kind string, elapsed time.Duration)
}

// Handler wires HTTP endpoints for transaction search and merging.
type Handler struct {
	logger    *slog.Logger
	store     ledger.Store
	tol       ledger.Tolerances
	finder    TransactionFinder
	splits    *Finder
	manager   *Manager
	metrics   MergeObserver
	cache     *FinderCache
	validator *validator.Validate
}

// NewHandler constructs a Handler instance. The finder may be a
// CachedFinder; splitFinder performs uncached split searches.
func NewHandler(logger *slog.Logger, store ledger.Store, tol ledger.Tolerances, finder TransactionFinder, splitFinder *Finder, manager *Manager, metrics MergeObserver, cache *FinderCache) *Handler {
	return &Handler{
		logger:    logger,
		store:     store,
		tol:       tol,
		finder:    finder,
		splits:    splitFinder,
		manager:   manager,
		metrics:   metrics,
		cache:     cache,
		validator: validator.New(),
	}
}

// MountRoutes registers transaction manager routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/find/transactions", h.handleFindTransactions)
	r.Post("/find/splits", h.handleFindSplits)
	r.Post("/merge", h.handleMerge)
	r.Get("/transactions/{transactionID}/sane", h.handleSanity)
}

func (h *Handler) handleFindTransactions(w http.ResponseWriter, r *http.Request) {
	var req FindTransactionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "validation failed", err.Error())
		return
	}
	flt, err := req.Filter.toFilter()
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "invalid filter", err.Error())
		return
	}
	logic := SplitLogicAnd
	if req.Logic != "" {
		logic = SplitLogic(req.Logic)
	}

	start := time.Now()
	result, err, _ := singleflightFind(r.Context(), requestKey(req), func(ctx context.Context) (interface{}, error) {
		return h.finder.FindTransactions(ctx, flt, req.WithSplits, logic)
	})
	if h.metrics != nil {
		h.metrics.ObserveFinderScan("transactions", time.Since(start))
	}
	if err != nil {
		h.logger.Error("find transactions", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "internal error", "")
		return
	}
	trxs, ok := result.([]*ledger.Transaction)
	if !ok {
		httpx.Problem(w, http.StatusInternalServerError, "internal error", "")
		return
	}
	out := make([]TransactionDTO, 0, len(trxs))
	for _, trx := range trxs {
		out = append(out, toTransactionDTO(trx, req.WithSplits))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleFindSplits(w http.ResponseWriter, r *http.Request) {
	var req FindSplitsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "validation failed", err.Error())
		return
	}
	flt, err := req.Filter.toFilter()
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "invalid filter", err.Error())
		return
	}

	start := time.Now()
	splits, err := h.splits.FindSplits(r.Context(), flt)
	if h.metrics != nil {
		h.metrics.ObserveFinderScan("splits", time.Since(start))
	}
	if err != nil {
		h.logger.Error("find splits", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "internal error", "")
		return
	}
	out := make([]SplitDTO, 0, len(splits))
	for _, splt := range splits {
		out = append(out, toSplitDTO(splt))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "validation failed", err.Error())
		return
	}
	survivorID, err := uuid.Parse(req.SurvivorID)
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "invalid survivor id", err.Error())
		return
	}
	dierID, err := uuid.Parse(req.DierID)
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "invalid dier id", err.Error())
		return
	}

	merger, err := h.buildMerger(req, survivorID)
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "invalid merge request", err.Error())
		return
	}

	err = merger.Merge(r.Context(), survivorID, dierID)
	if h.metrics != nil {
		h.metrics.ObserveMerge(req.Strategy, mergeOutcome(err))
	}
	if err != nil {
		h.respondMergeError(w, err)
		return
	}
	if h.cache != nil {
		if bumpErr := h.cache.Bump(r.Context()); bumpErr != nil {
			h.logger.Warn("bump finder cache", slog.Any("error", bumpErr))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) buildMerger(req MergeRequest, survivorID uuid.UUID) (Merger, error) {
	switch req.Strategy {
	case "simple":
		return NewSimpleMerger(h.store, h.tol, h.logger), nil
	case "surgery":
		if req.SurvivorBankSplitID == "" || req.DierBankSplitID == "" {
			return nil, ErrMergerNotConfigured
		}
		survivorSplitID, err := uuid.Parse(req.SurvivorBankSplitID)
		if err != nil {
			return nil, err
		}
		dierSplitID, err := uuid.Parse(req.DierBankSplitID)
		if err != nil {
			return nil, err
		}
		merger := NewSplitSurgeryMerger(h.store, h.tol, h.logger)
		merger.SetSurvivorTransactionID(survivorID)
		merger.SetSurvivorBankSplitID(survivorSplitID)
		merger.SetDierBankSplitID(dierSplitID)
		return merger, nil
	default:
		return nil, ErrMergerNotConfigured
	}
}

func (h *Handler) handleSanity(w http.ResponseWriter, r *http.Request) {
	trxID, err := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid transaction id", err.Error())
		return
	}
	sane, err := h.manager.IsSaneID(r.Context(), trxID)
	if err != nil {
		if errors.Is(err, ledger.ErrTransactionNotFound) {
			httpx.Problem(w, http.StatusNotFound, "transaction not found", err.Error())
			return
		}
		h.logger.Error("sanity check", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "internal error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"sane": sane})
}

func (h *Handler) respondMergeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMergeImplausible):
		httpx.Problem(w, http.StatusConflict, "merge implausible", err.Error())
	case errors.Is(err, ErrMergerNotConfigured), errors.Is(err, ErrMergerIDCollision):
		httpx.Problem(w, http.StatusUnprocessableEntity, "invalid merge request", err.Error())
	case errors.Is(err, ledger.ErrTransactionNotFound), errors.Is(err, ledger.ErrSplitNotFound), errors.Is(err, ledger.ErrAccountNotFound):
		httpx.Problem(w, http.StatusNotFound, "not found", err.Error())
	default:
		h.logger.Error("merge", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "internal error", "")
	}
}

func mergeOutcome(err error) string {
	switch {
	case err == nil:
		return "merged"
	case errors.Is(err, ErrMergeImplausible):
		return "implausible"
	default:
		return "error"
	}
}

func requestKey(req FindTransactionsRequest) string {
	raw, err := json.Marshal(req)
	if err != nil {
		return "find:fallback"
	}
	sum := sha256.Sum256(raw)
	return "find:" + hex.EncodeToString(sum[:8])
}
