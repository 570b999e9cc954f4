// Package sqlite provides a unified SQLite-based implementation of the
// document and vector store ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. It implements two store interfaces through a single
// database connection:
//
//   - DocumentStore: Document and chunk persistence
//   - VectorStore: Embedded chunks searched by cosine distance
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each applied version is recorded in the
// schema_migrations table.
//
// # Vectors
//
// Embeddings are stored as little-endian float32 BLOBs together with their
// norm. Queries scan the table and rank rows by cosine distance, which suits
// the personal-corpus sizes this tool targets.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-research/data/research.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode.
package sqlite
