// Package sqlite provides a SQLite-based implementation of the quill store ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements these interfaces
// through a single database connection:
//
//   - ProjectStore: projects, chapters, scenes, beats and references
//   - Transactor: atomic units of work for import and reimport apply
//   - ImportSourceStore: where each project was imported from
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.quill/data/quill.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode, with a busy timeout so concurrent writers wait instead
// of failing.
package sqlite
