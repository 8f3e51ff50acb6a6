// Package postgres provides PostgreSQL implementations of the store
// interfaces: summarization tasks, recruiting forms and the embedded goose
// migrations that create their tables.
//
// Stores accept a store.DBTX, so they work the same on a *sql.DB and inside a
// *sql.Tx. Driver errors are mapped onto the store sentinel errors by MapError
// before they leave the package.
package postgres
