// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Parser: Turns one source format into a ParsedProject
//   - ParserRegistry: Selects a parser by format or by detection
//   - ProjectStore: Outline persistence (the repository the core writes through)
//   - Transactor: Runs a unit of work against ProjectStore atomically
//   - ImportSourceStore: Remembers where each project was imported from
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - SourceWatcher: File change notifications. Without it, reimport is manual only.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or parser package
package driven
