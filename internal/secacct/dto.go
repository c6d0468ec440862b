package secacct

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/secledger/secledger/internal/ledger"
)

const postDateLayout = "2006-01-02"

// ExpenseEntryDTO is one fee posting in a generation request.
type ExpenseEntryDTO struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
	Amount    string `json:"amount" validate:"required"`
}

// BuyRequest is the payload for generating a share purchase.
type BuyRequest struct {
	StockAccountID  string            `json:"stock_account_id" validate:"required,uuid"`
	OffsetAccountID string            `json:"offset_account_id" validate:"required,uuid"`
	Shares          string            `json:"shares" validate:"required"`
	Price           string            `json:"price" validate:"required"`
	Expenses        []ExpenseEntryDTO `json:"expenses" validate:"required,min=1,dive"`
	PostDate        string            `json:"post_date" validate:"required"`
	Description     string            `json:"description"`
}

// DividendRequest is the payload for generating a dividend or distribution.
type DividendRequest struct {
	StockAccountID  string            `json:"stock_account_id" validate:"required,uuid"`
	IncomeAccountID string            `json:"income_account_id" validate:"required,uuid"`
	OffsetAccountID string            `json:"offset_account_id" validate:"required,uuid"`
	Action          string            `json:"action" validate:"required,oneof=DIVIDEND DISTRIBUTION"`
	Gross           string            `json:"gross" validate:"required"`
	Expenses        []ExpenseEntryDTO `json:"expenses" validate:"dive"`
	PostDate        string            `json:"post_date" validate:"required"`
	Description     string            `json:"description"`
}

// StockSplitRequest is the payload for generating a stock split.
type StockSplitRequest struct {
	StockAccountID string `json:"stock_account_id" validate:"required,uuid"`
	Mode           string `json:"mode" validate:"required,oneof=FACTOR ADD_SHARES"`
	Amount         string `json:"amount" validate:"required"`
	PostDate       string `json:"post_date" validate:"required"`
	Description    string `json:"description"`
}

// SplitDTO is the wire form of a ledger split.
type SplitDTO struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Value     string `json:"value"`
	Quantity  string `json:"quantity"`
	Action    string `json:"action,omitempty"`
	Memo      string `json:"memo,omitempty"`
}

// TransactionDTO is the wire form of a ledger transaction.
type TransactionDTO struct {
	ID          string     `json:"id"`
	DatePosted  string     `json:"date_posted"`
	DateEntered string     `json:"date_entered"`
	Description string     `json:"description,omitempty"`
	Splits      []SplitDTO `json:"splits"`
}

// AccountDTO is the wire form of a ledger account.
type AccountDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Balance string `json:"balance"`
}

func (r BuyRequest) toInput() (BuyInput, error) {
	stockID, err := uuid.Parse(r.StockAccountID)
	if err != nil {
		return BuyInput{}, fmt.Errorf("secacct: stock account id: %w", err)
	}
	offsetID, err := uuid.Parse(r.OffsetAccountID)
	if err != nil {
		return BuyInput{}, fmt.Errorf("secacct: offset account id: %w", err)
	}
	shares, err := decimal.NewFromString(r.Shares)
	if err != nil {
		return BuyInput{}, fmt.Errorf("secacct: shares: %w", err)
	}
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return BuyInput{}, fmt.Errorf("secacct: price: %w", err)
	}
	postDate, err := time.Parse(postDateLayout, r.PostDate)
	if err != nil {
		return BuyInput{}, fmt.Errorf("secacct: post date: %w", err)
	}
	expenses, err := toExpenses(r.Expenses)
	if err != nil {
		return BuyInput{}, err
	}
	return BuyInput{
		StockAccountID:  stockID,
		OffsetAccountID: offsetID,
		Shares:          shares,
		Price:           price,
		Expenses:        expenses,
		PostDate:        postDate,
		Description:     r.Description,
	}, nil
}

func (r DividendRequest) toInput() (DividendInput, error) {
	stockID, err := uuid.Parse(r.StockAccountID)
	if err != nil {
		return DividendInput{}, fmt.Errorf("secacct: stock account id: %w", err)
	}
	incomeID, err := uuid.Parse(r.IncomeAccountID)
	if err != nil {
		return DividendInput{}, fmt.Errorf("secacct: income account id: %w", err)
	}
	offsetID, err := uuid.Parse(r.OffsetAccountID)
	if err != nil {
		return DividendInput{}, fmt.Errorf("secacct: offset account id: %w", err)
	}
	gross, err := decimal.NewFromString(r.Gross)
	if err != nil {
		return DividendInput{}, fmt.Errorf("secacct: gross: %w", err)
	}
	postDate, err := time.Parse(postDateLayout, r.PostDate)
	if err != nil {
		return DividendInput{}, fmt.Errorf("secacct: post date: %w", err)
	}
	expenses, err := toExpenses(r.Expenses)
	if err != nil {
		return DividendInput{}, err
	}
	return DividendInput{
		StockAccountID:  stockID,
		IncomeAccountID: incomeID,
		OffsetAccountID: offsetID,
		Action:          ledger.Action(r.Action),
		Gross:           gross,
		Expenses:        expenses,
		PostDate:        postDate,
		Description:     r.Description,
	}, nil
}

func (r StockSplitRequest) toInput() (StockSplitInput, error) {
	stockID, err := uuid.Parse(r.StockAccountID)
	if err != nil {
		return StockSplitInput{}, fmt.Errorf("secacct: stock account id: %w", err)
	}
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return StockSplitInput{}, fmt.Errorf("secacct: amount: %w", err)
	}
	postDate, err := time.Parse(postDateLayout, r.PostDate)
	if err != nil {
		return StockSplitInput{}, fmt.Errorf("secacct: post date: %w", err)
	}
	return StockSplitInput{
		StockAccountID: stockID,
		Mode:           StockSplitMode(r.Mode),
		Amount:         amount,
		PostDate:       postDate,
		Description:    r.Description,
	}, nil
}

func toExpenses(entries []ExpenseEntryDTO) ([]ledger.AcctIDAmountPair, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make([]ledger.AcctIDAmountPair, 0, len(entries))
	for _, e := range entries {
		id, err := uuid.Parse(e.AccountID)
		if err != nil {
			return nil, fmt.Errorf("secacct: expense account id: %w", err)
		}
		amount, err := decimal.NewFromString(e.Amount)
		if err != nil {
			return nil, fmt.Errorf("secacct: expense amount: %w", err)
		}
		out = append(out, ledger.AcctIDAmountPair{AccountID: id, Amount: amount})
	}
	return out, nil
}

func toTransactionDTO(trx *ledger.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:          trx.ID.String(),
		DatePosted:  trx.DatePosted.Format(postDateLayout),
		DateEntered: trx.DateEntered.Format(time.RFC3339),
		Description: trx.Description,
		Splits:      make([]SplitDTO, 0, len(trx.Splits)),
	}
	for _, splt := range trx.Splits {
		dto.Splits = append(dto.Splits, SplitDTO{
			ID:        splt.ID.String(),
			AccountID: splt.AccountID.String(),
			Value:     splt.Value.String(),
			Quantity:  splt.Quantity.String(),
			Action:    splt.ActionRaw,
			Memo:      splt.Description,
		})
	}
	return dto
}

func toAccountDTO(acct *ledger.Account) AccountDTO {
	return AccountDTO{
		ID:      acct.ID.String(),
		Name:    acct.Name,
		Type:    string(acct.Type),
		Balance: acct.Balance.String(),
	}
}
