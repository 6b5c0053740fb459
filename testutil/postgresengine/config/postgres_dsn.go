package config

import (
	"os"
	"testing"
)

// EnvTestDSN names the environment variable holding the integration test DSN.
const EnvTestDSN = "TRADE_WORKLOAD_TEST_DSN"

// PostgresTestDSN returns the DSN for the integration test database, or an empty string if none is configured.
func PostgresTestDSN() string {
	return os.Getenv(EnvTestDSN)
}

// RequireTestDSN returns the integration test DSN and skips the test when it is not configured.
func RequireTestDSN(t testing.TB) string {
	t.Helper()

	dsn := PostgresTestDSN()
	if dsn == "" {
		t.Skipf("%s is not set, skipping integration test", EnvTestDSN)
	}

	return dsn
}
