package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/pgi/internal/errs"
)

// PostgreSQL SQLSTATE codes with a dedicated mapping.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgClassConnection        = "08"
	pgErrInsufficientPrivs   = "42501"
	pgErrInvalidPassword     = "28P01"
	pgErrInvalidAuthSpec     = "28000"
	pgErrQueryCanceled       = "57014"
	pgErrAdminShutdown       = "57P01"
	pgErrCannotConnectNow    = "57P03"
	pgErrInvalidTextEncoding = "22P02"
)

// mapError translates pgx / pgconn native errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.Wrap(classifySQLState(pgErr.Code), fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || errors.Is(err, pgx.ErrTxClosed) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}

	// Client side failures such as argument encoding.
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

// classifySQLState maps a SQLSTATE code to an ErrKind.
func classifySQLState(code string) errs.ErrKind {
	if len(code) >= 2 && code[:2] == pgClassConnection {
		return errs.ErrKindConnectionFailed
	}
	switch code {
	case pgErrInsufficientPrivs, pgErrInvalidPassword, pgErrInvalidAuthSpec:
		return errs.ErrKindPermissionDenied
	case pgErrQueryCanceled:
		return errs.ErrKindTimeout
	case pgErrAdminShutdown, pgErrCannotConnectNow:
		return errs.ErrKindConnectionFailed
	case pgErrInvalidTextEncoding:
		return errs.ErrKindInvalidInput
	default:
		return errs.ErrKindQueryFailed
	}
}
