//go:build integration

// Package testdb provides utilities for database integration tests.
//
// Tests run against the database named by DATABASE_URL (or
// RECRUIT_TEST_DB_URL) and are skipped when neither is set. Each test runs in
// its own transaction, which is rolled back when the test completes, so tests
// can share tables without cleaning up after themselves.
//
// # Basic Usage
//
//	func TestTaskStore(t *testing.T) {
//		db := testdb.GetTestDBWithT(t)
//		testdb.SetupTestDatabaseSchema(t, db)
//
//		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//			tasks := postgres.NewPostgresTaskStore(tx, nil)
//			// ...
//		})
//	}
package testdb
