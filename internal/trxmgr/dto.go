package trxmgr

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/secledger/secledger/internal/ledger"
)

const dateLayout = "2006-01-02"

// SplitFilterDTO is the wire form of a split filter; every field is
// optional and an omitted field leaves the criterion unset.
type SplitFilterDTO struct {
	Action      string `json:"action,omitempty" validate:"omitempty,oneof=BUY SELL DIVIDEND DISTRIBUTION SPLIT"`
	ReconState  string `json:"recon_state,omitempty" validate:"omitempty,oneof=n c y"`
	AccountID   string `json:"account_id,omitempty" validate:"omitempty,uuid"`
	AccountType string `json:"account_type,omitempty" validate:"omitempty,oneof=BANK CASH STOCK EXPENSE INCOME ASSET LIABILITY EQUITY"`
	ValueFrom   string `json:"value_from,omitempty"`
	ValueTo     string `json:"value_to,omitempty"`
	ValueAbs    bool   `json:"value_abs,omitempty"`
	QtyFrom     string `json:"quantity_from,omitempty"`
	QtyTo       string `json:"quantity_to,omitempty"`
	QtyAbs      bool   `json:"quantity_abs,omitempty"`
	DescrPart   string `json:"descr_part,omitempty"`
}

// TransactionFilterDTO is the wire form of a transaction filter.
type TransactionFilterDTO struct {
	DatePostedFrom  string          `json:"date_posted_from,omitempty"`
	DatePostedTo    string          `json:"date_posted_to,omitempty"`
	DateEnteredFrom string          `json:"date_entered_from,omitempty"`
	DateEnteredTo   string          `json:"date_entered_to,omitempty"`
	SplitCountFrom  int             `json:"split_count_from,omitempty" validate:"min=0"`
	SplitCountTo    int             `json:"split_count_to,omitempty" validate:"min=0"`
	DescrPart       string          `json:"descr_part,omitempty"`
	Split           *SplitFilterDTO `json:"split,omitempty"`
}

// FindTransactionsRequest drives a transaction search.
type FindTransactionsRequest struct {
	Filter     TransactionFilterDTO `json:"filter"`
	WithSplits bool                 `json:"with_splits"`
	Logic      string               `json:"logic" validate:"omitempty,oneof=AND OR"`
}

// FindSplitsRequest drives a split search.
type FindSplitsRequest struct {
	Filter SplitFilterDTO `json:"filter"`
}

// MergeRequest merges the dier transaction into the survivor.
type MergeRequest struct {
	SurvivorID string `json:"survivor_id" validate:"required,uuid"`
	DierID     string `json:"dier_id" validate:"required,uuid"`
	Strategy   string `json:"strategy" validate:"required,oneof=simple surgery"`

	// Required for the surgery strategy.
	SurvivorBankSplitID string `json:"survivor_bank_split_id,omitempty" validate:"omitempty,uuid"`
	DierBankSplitID     string `json:"dier_bank_split_id,omitempty" validate:"omitempty,uuid"`
}

// SplitDTO is the wire form of a ledger split.
type SplitDTO struct {
	ID            string `json:"id"`
	TransactionID string `json:"transaction_id"`
	AccountID     string `json:"account_id"`
	Value         string `json:"value"`
	Quantity      string `json:"quantity"`
	Action        string `json:"action,omitempty"`
	ReconState    string `json:"recon_state,omitempty"`
	Memo          string `json:"memo,omitempty"`
}

// TransactionDTO is the wire form of a ledger transaction.
type TransactionDTO struct {
	ID          string     `json:"id"`
	DatePosted  string     `json:"date_posted"`
	DateEntered string     `json:"date_entered"`
	Description string     `json:"description,omitempty"`
	Splits      []SplitDTO `json:"splits,omitempty"`
}

func (dto TransactionFilterDTO) toFilter() (*TransactionFilter, error) {
	flt := &TransactionFilter{}
	flt.Reset()

	var err error
	if flt.DatePostedFrom, err = parseOptionalDate(dto.DatePostedFrom); err != nil {
		return nil, fmt.Errorf("trxmgr: date posted from: %w", err)
	}
	if flt.DatePostedTo, err = parseOptionalDate(dto.DatePostedTo); err != nil {
		return nil, fmt.Errorf("trxmgr: date posted to: %w", err)
	}
	if flt.DateEnteredFrom, err = parseOptionalDate(dto.DateEnteredFrom); err != nil {
		return nil, fmt.Errorf("trxmgr: date entered from: %w", err)
	}
	if flt.DateEnteredTo, err = parseOptionalDate(dto.DateEnteredTo); err != nil {
		return nil, fmt.Errorf("trxmgr: date entered to: %w", err)
	}
	flt.SplitCountFrom = dto.SplitCountFrom
	flt.SplitCountTo = dto.SplitCountTo
	flt.DescrPart = dto.DescrPart
	if dto.Split != nil {
		sf, err := dto.Split.toFilter()
		if err != nil {
			return nil, err
		}
		flt.Split = *sf
	}
	return flt, nil
}

func (dto SplitFilterDTO) toFilter() (*SplitFilter, error) {
	flt := &SplitFilter{}
	flt.Reset()

	if dto.Action != "" {
		act := ledger.Action(dto.Action)
		flt.Action = &act
	}
	if dto.ReconState != "" {
		state := ledger.ReconState(dto.ReconState)
		flt.ReconState = &state
	}
	if dto.AccountID != "" {
		id, err := uuid.Parse(dto.AccountID)
		if err != nil {
			return nil, fmt.Errorf("trxmgr: account id: %w", err)
		}
		flt.AccountID = id
	}
	if dto.AccountType != "" {
		acctType := ledger.AccountType(dto.AccountType)
		flt.AccountType = &acctType
	}
	var err error
	if flt.ValueFrom, err = parseOptionalDecimal(dto.ValueFrom); err != nil {
		return nil, fmt.Errorf("trxmgr: value from: %w", err)
	}
	if flt.ValueTo, err = parseOptionalDecimal(dto.ValueTo); err != nil {
		return nil, fmt.Errorf("trxmgr: value to: %w", err)
	}
	flt.ValueAbs = dto.ValueAbs
	if flt.QuantityFrom, err = parseOptionalDecimal(dto.QtyFrom); err != nil {
		return nil, fmt.Errorf("trxmgr: quantity from: %w", err)
	}
	if flt.QuantityTo, err = parseOptionalDecimal(dto.QtyTo); err != nil {
		return nil, fmt.Errorf("trxmgr: quantity to: %w", err)
	}
	flt.QuantityAbs = dto.QtyAbs
	flt.DescrPart = dto.DescrPart
	return flt, nil
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		// Fall back to full timestamps for entered-date bounds.
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func parseOptionalDecimal(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func toSplitDTO(splt *ledger.Split) SplitDTO {
	return SplitDTO{
		ID:            splt.ID.String(),
		TransactionID: splt.TransactionID.String(),
		AccountID:     splt.AccountID.String(),
		Value:         splt.Value.String(),
		Quantity:      splt.Quantity.String(),
		Action:        splt.ActionRaw,
		ReconState:    string(splt.ReconState),
		Memo:          splt.Description,
	}
}

func toTransactionDTO(trx *ledger.Transaction, withSplits bool) TransactionDTO {
	dto := TransactionDTO{
		ID:          trx.ID.String(),
		DatePosted:  trx.DatePosted.Format(dateLayout),
		DateEntered: trx.DateEntered.Format(time.RFC3339),
		Description: trx.Description,
	}
	if withSplits {
		dto.Splits = make([]SplitDTO, 0, len(trx.Splits))
		for _, splt := range trx.Splits {
			dto.Splits = append(dto.Splits, toSplitDTO(splt))
		}
	}
	return dto
}
