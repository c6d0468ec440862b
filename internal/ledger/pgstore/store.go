package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/secledger/secledger/internal/ledger"
)

// Store is the Postgres-backed ledger store.
type Store struct {
	db    *pgxpool.Pool
	clock func() time.Time
}

// New wires the store to a connection pool.
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db, clock: time.Now}
}

// WithClock overrides the wall clock used for entered dates.
func (s *Store) WithClock(clock func() time.Time) {
	if clock != nil {
		s.clock = clock
	}
}

const fkViolation = "23503"

// mapConstraintError translates a foreign-key violation into the ledger
// sentinel for the referenced entity. Other errors pass through.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != fkViolation {
		return err
	}
	if pgErr.ConstraintName == "fk_splits_account" {
		return ledger.ErrAccountNotFound
	}
	return ledger.ErrTransactionNotFound
}

func (s *Store) AccountByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	row := s.db.QueryRow(ctx, `SELECT id, name, type, balance, parent_id FROM accounts WHERE id = $1`, id)
	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ledger.ErrAccountNotFound
	}
	return acct, err
}

func (s *Store) TransactionByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	row := s.db.QueryRow(ctx, `SELECT id, date_posted, date_entered, description FROM transactions WHERE id = $1`, id)
	trx := &ledger.Transaction{}
	if err := row.Scan(&trx.ID, &trx.DatePosted, &trx.DateEntered, &trx.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrTransactionNotFound
		}
		return nil, err
	}
	splits, err := s.splitsOfTransaction(ctx, trx.ID)
	if err != nil {
		return nil, err
	}
	trx.Splits = splits
	return trx, nil
}

func (s *Store) SplitByID(ctx context.Context, id uuid.UUID) (*ledger.Split, error) {
	row := s.db.QueryRow(ctx, `SELECT id, transaction_id, account_id, value, quantity, action_raw, action, recon_state, description FROM splits WHERE id = $1`, id)
	splt, err := scanSplit(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ledger.ErrSplitNotFound
	}
	return splt, err
}

func (s *Store) Transactions(ctx context.Context) ([]*ledger.Transaction, error) {
	return s.queryTransactions(ctx, `SELECT id, date_posted, date_entered, description FROM transactions ORDER BY date_posted, created_seq`)
}

func (s *Store) TransactionsByDateRange(ctx context.Context, from, to time.Time) ([]*ledger.Transaction, error) {
	return s.queryTransactions(ctx, `SELECT id, date_posted, date_entered, description FROM transactions WHERE date_posted BETWEEN $1 AND $2 ORDER BY date_posted, created_seq`, from, to)
}

func (s *Store) queryTransactions(ctx context.Context, sql string, args ...any) ([]*ledger.Transaction, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ledger.Transaction
	for rows.Next() {
		trx := &ledger.Transaction{}
		if err := rows.Scan(&trx.ID, &trx.DatePosted, &trx.DateEntered, &trx.Description); err != nil {
			return nil, err
		}
		out = append(out, trx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, trx := range out {
		splits, err := s.splitsOfTransaction(ctx, trx.ID)
		if err != nil {
			return nil, err
		}
		trx.Splits = splits
	}
	return out, nil
}

func (s *Store) Splits(ctx context.Context) ([]*ledger.Split, error) {
	rows, err := s.db.Query(ctx, `SELECT sp.id, sp.transaction_id, sp.account_id, sp.value, sp.quantity, sp.action_raw, sp.action, sp.recon_state, sp.description
FROM splits sp JOIN transactions t ON t.id = sp.transaction_id
ORDER BY t.date_posted, t.created_seq, sp.created_seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSplits(rows)
}

func (s *Store) splitsOfTransaction(ctx context.Context, trxID uuid.UUID) ([]*ledger.Split, error) {
	rows, err := s.db.Query(ctx, `SELECT id, transaction_id, account_id, value, quantity, action_raw, action, recon_state, description FROM splits WHERE transaction_id = $1 ORDER BY created_seq`, trxID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSplits(rows)
}

func (s *Store) ChildAccounts(ctx context.Context, parentID uuid.UUID) ([]*ledger.Account, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, type, balance, parent_id FROM accounts WHERE parent_id = $1 ORDER BY name`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ledger.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	return out, rows.Err()
}

func (s *Store) LotsByAccount(ctx context.Context, accountID uuid.UUID) ([]*ledger.Lot, error) {
	if _, err := s.AccountByID(ctx, accountID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `SELECT id, account_id, title FROM lots WHERE account_id = $1 ORDER BY title`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lots []*ledger.Lot
	for rows.Next() {
		lot := &ledger.Lot{}
		if err := rows.Scan(&lot.ID, &lot.AccountID, &lot.Title); err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, lot := range lots {
		splitRows, err := s.db.Query(ctx, `SELECT sp.id, sp.transaction_id, sp.account_id, sp.value, sp.quantity, sp.action_raw, sp.action, sp.recon_state, sp.description
FROM splits sp JOIN lot_splits ls ON ls.split_id = sp.id WHERE ls.lot_id = $1 ORDER BY sp.created_seq`, lot.ID)
		if err != nil {
			return nil, err
		}
		splits, err := collectSplits(splitRows)
		splitRows.Close()
		if err != nil {
			return nil, err
		}
		lot.Splits = splits
	}
	return lots, nil
}

func (s *Store) NewTransaction(ctx context.Context) (*ledger.Transaction, error) {
	trx := &ledger.Transaction{ID: uuid.New(), DateEntered: s.clock()}
	_, err := s.db.Exec(ctx, `INSERT INTO transactions (id, date_posted, date_entered, description) VALUES ($1, $2, $3, $4)`,
		trx.ID, trx.DatePosted, trx.DateEntered, trx.Description)
	if err != nil {
		return nil, err
	}
	return trx, nil
}

func (s *Store) NewSplit(ctx context.Context, transactionID, accountID uuid.UUID) (*ledger.Split, error) {
	splt := &ledger.Split{ID: uuid.New(), TransactionID: transactionID, AccountID: accountID}
	_, err := s.db.Exec(ctx, `INSERT INTO splits (id, transaction_id, account_id, value, quantity, action_raw, action, recon_state, description)
VALUES ($1, $2, $3, 0, 0, '', '', '', '')`, splt.ID, transactionID, accountID)
	if err != nil {
		return nil, mapConstraintError(err)
	}
	return splt, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, trx *ledger.Transaction) error {
	tag, err := s.db.Exec(ctx, `UPDATE transactions SET date_posted = $2, date_entered = $3, description = $4 WHERE id = $1`,
		trx.ID, trx.DatePosted, trx.DateEntered, trx.Description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrTransactionNotFound
	}
	return nil
}

func (s *Store) UpdateSplit(ctx context.Context, splt *ledger.Split) error {
	tag, err := s.db.Exec(ctx, `UPDATE splits SET account_id = $2, value = $3, quantity = $4, action_raw = $5, action = $6, recon_state = $7, description = $8 WHERE id = $1`,
		splt.ID, splt.AccountID, splt.Value.String(), splt.Quantity.String(), splt.ActionRaw, string(splt.Action), string(splt.ReconState), splt.Description)
	if err != nil {
		return mapConstraintError(err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrSplitNotFound
	}
	return nil
}

func (s *Store) RemoveSplit(ctx context.Context, transactionID, splitID uuid.UUID) error {
	splt, err := s.SplitByID(ctx, splitID)
	if err != nil {
		return err
	}
	if splt.TransactionID != transactionID {
		return ledger.ErrSplitNotInTransaction
	}
	_, err = s.db.Exec(ctx, `DELETE FROM splits WHERE id = $1`, splitID)
	return err
}

func (s *Store) RemoveTransaction(ctx context.Context, transactionID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, transactionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrTransactionNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*ledger.Account, error) {
	acct := &ledger.Account{}
	var balance string
	if err := row.Scan(&acct.ID, &acct.Name, &acct.Type, &balance, &acct.ParentID); err != nil {
		return nil, err
	}
	bal, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, err
	}
	acct.Balance = bal
	return acct, nil
}

func scanSplit(row rowScanner) (*ledger.Split, error) {
	splt := &ledger.Split{}
	var value, quantity, action, recon string
	if err := row.Scan(&splt.ID, &splt.TransactionID, &splt.AccountID, &value, &quantity, &splt.ActionRaw, &action, &recon, &splt.Description); err != nil {
		return nil, err
	}
	val, err := decimal.NewFromString(value)
	if err != nil {
		return nil, err
	}
	qty, err := decimal.NewFromString(quantity)
	if err != nil {
		return nil, err
	}
	splt.Value = val
	splt.Quantity = qty
	splt.Action = ledger.Action(action)
	splt.ReconState = ledger.ReconState(recon)
	return splt, nil
}

func collectSplits(rows pgx.Rows) ([]*ledger.Split, error) {
	var out []*ledger.Split
	for rows.Next() {
		splt, err := scanSplit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, splt)
	}
	return out, rows.Err()
}

var _ ledger.Store = (*Store)(nil)
