package trxmgr

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/secledger/secledger/internal/ledger"
)

// Merger folds a duplicate "dier" transaction into a "survivor" after
// the plausibility check passes. Two strategies exist: SimpleMerger
// drops the dier outright, SplitSurgeryMerger additionally rewires the
// bank legs.
type Merger interface {
	Merge(ctx context.Context, survivorID, dierID uuid.UUID) error
}

// mergeCategories are the account-type categories a merge anchors on.
var mergeCategories = []ledger.AccountType{
	ledger.AccountTypeBank,
	ledger.AccountTypeCash,
	ledger.AccountTypeStock,
}

// mergerBase carries the plausibility check shared by both strategies.
type mergerBase struct {
	store  ledger.Store
	mgr    *Manager
	tol    ledger.Tolerances
	logger *slog.Logger
}

func newMergerBase(store ledger.Store, tol ledger.Tolerances, logger *slog.Logger) mergerBase {
	if logger == nil {
		logger = slog.Default()
	}
	return mergerBase{
		store:  store,
		mgr:    NewManager(store, tol, logger),
		tol:    tol,
		logger: logger,
	}
}

// PlausiCheck runs the multi-level consistency check gating a merge:
// date proximity, per-transaction sanity, a shared bank/cash/stock
// category, and per-category account containment and sum equality.
// It mutates nothing.
func (b *mergerBase) PlausiCheck(ctx context.Context, survivor, dier *ledger.Transaction) (bool, error) {
	// Level 1: posted dates within the day tolerance.
	if daysApart(survivor.DatePosted, dier.DatePosted) > int64(b.tol.Days) {
		b.logger.Warn("survivor and dier post-dates too far apart",
			slog.Time("survivor_date", survivor.DatePosted),
			slog.Time("dier_date", dier.DatePosted))
		return false, nil
	}

	if !b.mgr.IsSane(survivor) {
		b.logger.Warn("survivor transaction is not sane", slog.String("transaction_id", survivor.ID.String()))
		return false, nil
	}
	if !b.mgr.IsSane(dier) {
		b.logger.Warn("dier transaction is not sane", slog.String("transaction_id", dier.ID.String()))
		return false, nil
	}

	// At least one category must be present in both transactions to
	// anchor the merge.
	anchored := false
	for _, cat := range mergeCategories {
		survHas, err := b.mgr.HasSplitOfAccountType(ctx, survivor, cat)
		if err != nil {
			return false, err
		}
		dierHas, err := b.mgr.HasSplitOfAccountType(ctx, dier, cat)
		if err != nil {
			return false, err
		}
		if survHas && dierHas {
			anchored = true
			break
		}
	}
	if !anchored {
		b.logger.Warn("no shared bank/cash/stock category between survivor and dier")
		return false, nil
	}

	// Levels 2 and 3, per category: every survivor account must appear
	// among the dier's accounts, and the split-value sums must match.
	for _, cat := range mergeCategories {
		survSplits, err := b.mgr.SplitsOfAccountType(ctx, survivor, cat)
		if err != nil {
			return false, err
		}
		dierSplits, err := b.mgr.SplitsOfAccountType(ctx, dier, cat)
		if err != nil {
			return false, err
		}
		if len(survSplits) == 0 || len(dierSplits) == 0 {
			continue
		}

		dierAccts := make(map[uuid.UUID]struct{}, len(dierSplits))
		for _, splt := range dierSplits {
			dierAccts[splt.AccountID] = struct{}{}
		}
		for _, splt := range survSplits {
			if _, ok := dierAccts[splt.AccountID]; !ok {
				b.logger.Warn("survivor split has no dier sibling on the same account",
					slog.String("split_id", splt.ID.String()),
					slog.String("category", string(cat)))
				return false, nil
			}
		}

		sumSurv := decimal.Zero
		for _, splt := range survSplits {
			sumSurv = sumSurv.Add(splt.Value)
		}
		sumDier := decimal.Zero
		for _, splt := range dierSplits {
			sumDier = sumDier.Add(splt.Value)
		}
		if !b.tol.WithinValue(sumSurv, sumDier) {
			b.logger.Warn("survivor and dier split sums differ",
				slog.String("category", string(cat)),
				slog.String("sum_survivor", sumSurv.String()),
				slog.String("sum_dier", sumDier.String()))
			return false, nil
		}
	}

	return true, nil
}

// checkPair loads both transactions and runs the plausibility check,
// translating a failed check into ErrMergeImplausible.
func (b *mergerBase) checkPair(ctx context.Context, survivorID, dierID uuid.UUID) (survivor, dier *ledger.Transaction, err error) {
	survivor, err = b.store.TransactionByID(ctx, survivorID)
	if err != nil {
		return nil, nil, err
	}
	dier, err = b.store.TransactionByID(ctx, dierID)
	if err != nil {
		return nil, nil, err
	}

	ok, err := b.PlausiCheck(ctx, survivor, dier)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		b.logger.Error("survivor-dier pair did not pass plausibility check",
			slog.String("survivor_id", survivorID.String()),
			slog.String("dier_id", dierID.String()))
		return nil, nil, ErrMergeImplausible
	}
	return survivor, dier, nil
}

// SimpleMerger removes the dier and leaves the survivor untouched.
// The caller is responsible for the survivor already reflecting the
// combined effect.
type SimpleMerger struct {
	mergerBase
}

// NewSimpleMerger wires the simple strategy to a store.
func NewSimpleMerger(store ledger.Store, tol ledger.Tolerances, logger *slog.Logger) *SimpleMerger {
	return &SimpleMerger{mergerBase: newMergerBase(store, tol, logger)}
}

// Merge runs the plausibility check and, on success, removes the dier.
func (m *SimpleMerger) Merge(ctx context.Context, survivorID, dierID uuid.UUID) error {
	_, dier, err := m.checkPair(ctx, survivorID, dierID)
	if err != nil {
		return err
	}

	if err := m.store.RemoveTransaction(ctx, dier.ID); err != nil {
		return err
	}
	m.logger.Info("dier transaction removed", slog.String("transaction_id", dier.ID.String()))
	return nil
}

// SplitSurgeryMerger replaces the survivor's bank leg with the mirror
// image of the dier's before dropping the dier. The three IDs are
// accumulated via setters before Merge is invoked:
//
//	Dier Trx                          Survivor Trx
//	+-- other splits                  +-- other splits
//	+-- dier bank split               +-- survivor bank split (before)
//	    ^                             |   ^
//	    +-- negated copy moves to --> +-- replacement bank split
//
// Step order matters: the copy is created before anything is removed,
// so the bank leg's value is never transiently lost. There is no
// rollback if the store rejects a later step.
type SplitSurgeryMerger struct {
	mergerBase

	survivorTrxID   uuid.UUID
	dierBankSplitID uuid.UUID
	survBankSplitID uuid.UUID // the survivor's pre-merge bank split
}

// NewSplitSurgeryMerger wires the split-surgery strategy to a store.
func NewSplitSurgeryMerger(store ledger.Store, tol ledger.Tolerances, logger *slog.Logger) *SplitSurgeryMerger {
	return &SplitSurgeryMerger{mergerBase: newMergerBase(store, tol, logger)}
}

// SetSurvivorTransactionID sets the transaction receiving the copied
// bank split.
func (m *SplitSurgeryMerger) SetSurvivorTransactionID(id uuid.UUID) {
	m.survivorTrxID = id
}

// SetDierBankSplitID sets the dier's bank split to be mirrored onto
// the survivor.
func (m *SplitSurgeryMerger) SetDierBankSplitID(id uuid.UUID) {
	m.dierBankSplitID = id
}

// SetSurvivorBankSplitID sets the survivor's pre-merge bank split to
// be removed.
func (m *SplitSurgeryMerger) SetSurvivorBankSplitID(id uuid.UUID) {
	m.survBankSplitID = id
}

// Merge validates the accumulated state, runs the plausibility check,
// then performs the three-step surgery: copy the dier's bank split
// (negated) onto the survivor, remove the survivor's pre-merge bank
// split, remove the dier transaction.
func (m *SplitSurgeryMerger) Merge(ctx context.Context, survivorID, dierID uuid.UUID) error {
	if m.survivorTrxID == uuid.Nil || m.dierBankSplitID == uuid.Nil || m.survBankSplitID == uuid.Nil {
		return ErrMergerNotConfigured
	}
	if m.dierBankSplitID == m.survBankSplitID {
		return ErrMergerIDCollision
	}

	_, dier, err := m.checkPair(ctx, survivorID, dierID)
	if err != nil {
		return err
	}

	dierBankSplit, err := m.store.SplitByID(ctx, m.dierBankSplitID)
	if err != nil {
		return err
	}
	survBankSplit, err := m.store.SplitByID(ctx, m.survBankSplitID)
	if err != nil {
		return err
	}

	// The replacement leg lives on the survivor's pre-merge bank
	// account; only value, quantity, action and memo come from the
	// dier's split.
	copySplit, err := m.store.NewSplit(ctx, m.survivorTrxID, survBankSplit.AccountID)
	if err != nil {
		return err
	}
	if dierBankSplit.ActionRaw != "" {
		copySplit.Action = dierBankSplit.Action
		copySplit.ActionRaw = dierBankSplit.ActionRaw
	}
	copySplit.Value = dierBankSplit.Value.Neg()
	copySplit.Quantity = dierBankSplit.Quantity.Neg()
	copySplit.Description = dierBankSplit.Description
	if err := m.store.UpdateSplit(ctx, copySplit); err != nil {
		return err
	}
	m.logger.Info("dier bank split copied to survivor",
		slog.String("source_split_id", dierBankSplit.ID.String()),
		slog.String("copy_split_id", copySplit.ID.String()))

	if err := m.store.RemoveSplit(ctx, survBankSplit.TransactionID, survBankSplit.ID); err != nil {
		return err
	}
	m.logger.Info("survivor pre-merge bank split removed", slog.String("split_id", survBankSplit.ID.String()))

	if err := m.store.RemoveTransaction(ctx, dier.ID); err != nil {
		return err
	}
	m.logger.Info("dier transaction removed", slog.String("transaction_id", dier.ID.String()))
	return nil
}

var (
	_ Merger = (*SimpleMerger)(nil)
	_ Merger = (*SplitSurgeryMerger)(nil)
)
