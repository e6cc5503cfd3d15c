package errors

import (
	"context"
	"database/sql"
	"database/sql/driver"
	stdErrors "errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const sqlStateUndefinedTable = "42P01"

// Classify wraps a warehouse error with the code its SQLSTATE implies,
// falling back to the provided code. Typed errors pass through untouched.
func Classify(err error, fallback Code, message string) error {
	if err == nil {
		return nil
	}
	if As(err) != nil {
		return err
	}
	return Wrap(classifyCode(err, fallback), err, message)
}

func classifyCode(err error, fallback Code) Code {
	if stdErrors.Is(err, context.DeadlineExceeded) || stdErrors.Is(err, driver.ErrBadConn) || stdErrors.Is(err, sql.ErrConnDone) {
		return CodeTransientStore
	}
	if isClosedPoolText(err.Error()) {
		return CodeTransientStore
	}
	var netErr net.Error
	if stdErrors.As(err, &netErr) {
		return CodeTransientStore
	}
	if isMissingRelationText(err.Error()) {
		return CodeSourceUnavailable
	}
	if state := sqlState(err); state != "" {
		switch {
		case state == sqlStateUndefinedTable:
			return CodeSourceUnavailable
		case isTransientState(state):
			return CodeTransientStore
		}
	}
	return fallback
}

func sqlState(err error) string {
	var pgxErr *pgconn.PgError
	if stdErrors.As(err, &pgxErr) {
		return pgxErr.Code
	}
	var pqErr *pq.Error
	if stdErrors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// database/sql reports a closed pool with an unexported error.
func isClosedPoolText(msg string) bool {
	return strings.Contains(msg, "sql: database is closed")
}

// sqlite and BigQuery report missing relations only in the message text.
func isMissingRelationText(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "no such table") || strings.Contains(msg, "not found: table")
}

// Class 08 connection exceptions, 53 insufficient resources, 57P0x operator
// interventions and 40001 serialization failures.
func isTransientState(state string) bool {
	switch {
	case strings.HasPrefix(state, "08"):
		return true
	case strings.HasPrefix(state, "53"):
		return true
	case strings.HasPrefix(state, "57P0"):
		return true
	case state == "40001":
		return true
	}
	return false
}
