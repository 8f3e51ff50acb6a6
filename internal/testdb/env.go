//go:build integration

package testdb

import "os"

// databaseURLVars are checked in order by GetTestDatabaseURL.
var databaseURLVars = []string{"DATABASE_URL", "RECRUIT_TEST_DB_URL"}

// GetTestDatabaseURL returns the first non-empty database URL variable.
func GetTestDatabaseURL() string {
	for _, name := range databaseURLVars {
		if url := os.Getenv(name); url != "" {
			return url
		}
	}
	return ""
}

// IsIntegrationTestEnvironment reports whether a test database is configured.
func IsIntegrationTestEnvironment() bool {
	return GetTestDatabaseURL() != ""
}
