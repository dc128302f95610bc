// Package adapters provides database adapter implementations for the
// PostgreSQL snapshot registry.
//
// The registry works against a common DBAdapter interface so deployments can
// bring whichever PostgreSQL library they already use: pgxpool.Pool, sql.DB,
// or sqlx.DB. All adapters provide equivalent functionality for query
// execution and result handling.
package adapters
