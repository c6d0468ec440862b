package pgstore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/secledger/secledger/internal/ledger"
)

func TestMapConstraintError(t *testing.T) {
	accountFK := &pgconn.PgError{Code: fkViolation, ConstraintName: "fk_splits_account"}
	if err := mapConstraintError(accountFK); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound got %v", err)
	}

	trxFK := &pgconn.PgError{Code: fkViolation, ConstraintName: "fk_splits_transaction"}
	if err := mapConstraintError(trxFK); !errors.Is(err, ledger.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound got %v", err)
	}

	// Driver errors routinely arrive wrapped.
	wrapped := fmt.Errorf("exec insert: %w", accountFK)
	if err := mapConstraintError(wrapped); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound for wrapped error got %v", err)
	}

	unique := &pgconn.PgError{Code: "23505"}
	if err := mapConstraintError(unique); !errors.Is(err, unique) {
		t.Fatalf("expected non-FK errors to pass through got %v", err)
	}

	plain := errors.New("connection reset")
	if err := mapConstraintError(plain); !errors.Is(err, plain) {
		t.Fatalf("expected plain errors to pass through got %v", err)
	}
}
