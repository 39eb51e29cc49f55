package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation.
// When constraintName is provided, the match is narrowed to that constraint.
// Postgres errors are matched structurally; other drivers fall back to
// message inspection so the same callers work against sqlite in tests.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolationCode {
			return false
		}
		return constraintName == "" || pgErr.ConstraintName == constraintName
	}

	msg := err.Error()
	if constraintName != "" {
		return constraintInMessage(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

// constraintInMessage matches the constraint name verbatim, or in the
// table.column form sqlite reports ("UNIQUE constraint failed:
// wallet_transactions.reference" for wallet_transactions_reference_key).
func constraintInMessage(msg, constraintName string) bool {
	if strings.Contains(msg, constraintName) {
		return true
	}
	base := strings.TrimSuffix(strings.TrimSuffix(constraintName, "_key"), "_idx")
	for i := 1; i < len(base)-1; i++ {
		if base[i] != '_' {
			continue
		}
		if strings.Contains(msg, base[:i]+"."+base[i+1:]) {
			return true
		}
	}
	return false
}
