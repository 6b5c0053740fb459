package postgresengine

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/birdtrade/trade-workload-go/tradeorder"
)

const (
	errorTypeConflict   = "conflict"
	errorTypeIntegrity  = "integrity"
	errorTypeBegin      = "begin"
	errorTypeCommit     = "commit"
	errorTypeQuery      = "query"
	errorTypeExec       = "exec"
	errorTypeScan       = "scan"
	errorTypeBuildQuery = "build_query"
	errorTypeCanceled   = "canceled"
	errorTypeUnknown    = "unknown"
)

// sqlState extracts the SQLSTATE code from pgx and lib/pq errors.
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	return ""
}

// classifyError marks database aborts caused by contention as tradeorder.ErrTransactionConflict
// and constraint violations as tradeorder.ErrDataIntegrityViolation.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, tradeorder.ErrTransactionConflict) || errors.Is(err, tradeorder.ErrDataIntegrityViolation) {
		return err
	}

	code := sqlState(err)

	switch {
	case code == pgerrcode.SerializationFailure, code == pgerrcode.DeadlockDetected:
		return errors.Join(tradeorder.ErrTransactionConflict, err)

	case pgerrcode.IsIntegrityConstraintViolation(code):
		return errors.Join(tradeorder.ErrDataIntegrityViolation, err)

	default:
		return err
	}
}

// errorType maps an error to the error_type label used in metrics and spans.
func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errorTypeCanceled
	case errors.Is(err, tradeorder.ErrTransactionConflict):
		return errorTypeConflict
	case errors.Is(err, tradeorder.ErrDataIntegrityViolation):
		return errorTypeIntegrity
	case errors.Is(err, tradeorder.ErrBeginTransactionFailed):
		return errorTypeBegin
	case errors.Is(err, tradeorder.ErrCommitFailed):
		return errorTypeCommit
	case errors.Is(err, tradeorder.ErrQueryFailed):
		return errorTypeQuery
	case errors.Is(err, tradeorder.ErrExecFailed), errors.Is(err, tradeorder.ErrGettingRowsAffectedFail):
		return errorTypeExec
	case errors.Is(err, tradeorder.ErrScanFailed):
		return errorTypeScan
	case errors.Is(err, tradeorder.ErrBuildingQueryFailed):
		return errorTypeBuildQuery
	default:
		return errorTypeUnknown
	}
}
