package tradeorder

import (
	"errors"
)

var (
	// ErrConnectionFailure is returned when a single endpoint refused a connection or timed out.
	ErrConnectionFailure = errors.New("connection to endpoint failed")

	// ErrConnectionExhausted is returned when no endpoint accepted a connection within all retry passes.
	ErrConnectionExhausted = errors.New("all connection attempts failed")

	// ErrTransactionConflict is returned when the database aborted a transaction due to contention.
	ErrTransactionConflict = errors.New("transaction aborted due to a conflict")

	// ErrDataIntegrityViolation is returned when the persisted data does not look like expected.
	ErrDataIntegrityViolation = errors.New("data integrity violation")

	// ErrNoInstruments is returned together with ErrDataIntegrityViolation when the instruments table is empty.
	ErrNoInstruments = errors.New("no instruments found")

	// ErrNoAccounts is returned together with ErrDataIntegrityViolation when the accounts table is empty.
	ErrNoAccounts = errors.New("no accounts found")

	// ErrInstrumentNotUpdated is returned together with ErrDataIntegrityViolation when a price update did not hit exactly one row.
	ErrInstrumentNotUpdated = errors.New("instrument price update did not affect exactly one row")

	ErrNilDatabaseConnection   = errors.New("database connection must not be nil")
	ErrBeginTransactionFailed  = errors.New("beginning the transaction failed")
	ErrCommitFailed            = errors.New("committing the transaction failed")
	ErrQueryFailed             = errors.New("database query execution failed")
	ErrExecFailed              = errors.New("database statement execution failed")
	ErrScanFailed              = errors.New("scanning db row failed")
	ErrGettingRowsAffectedFail = errors.New("getting rows affected failed")
	ErrBuildingQueryFailed     = errors.New("building query failed")

	// ErrEmptyEndpoints is returned when an EndpointPool is built without any endpoint.
	ErrEmptyEndpoints = errors.New("at least one endpoint must be configured")

	// ErrInvalidEndpoint is returned when an endpoint URI can't be parsed or misses host or database.
	ErrInvalidEndpoint = errors.New("endpoint uri is not valid")

	// ErrInvalidWorkerConfig is returned when worker options are out of range.
	ErrInvalidWorkerConfig = errors.New("worker config is not valid")

	// ErrNilRandomizer is returned when a nil Randomizer is supplied.
	ErrNilRandomizer = errors.New("randomizer must not be nil")

	// ErrNilClock is returned when a nil Clock is supplied.
	ErrNilClock = errors.New("clock must not be nil")

	ErrInvalidMaxRetries  = errors.New("max retries must be at least 1")
	ErrNegativeRetryDelay = errors.New("retry delay must not be negative")
	ErrNegativeDelay      = errors.New("delay must not be negative")
	ErrInvalidPriceTick   = errors.New("price tick must be positive")
	ErrNegativeBatchLimit = errors.New("drain batch limit must not be negative")
	ErrNilDialer          = errors.New("dialer must not be nil")
)
