// Package tasks mirrors Monarch records into Firefly III with real-time progress reporting.
//
// # Core Operations
//
// The [SyncEngine] interface defines two operations:
//
//  1. [SyncEngine.Sync] : Mirror several kinds in dependency order
//     - Accounts, categories and tags before transactions, so transactions resolve categories
//     - Starts from a fresh identity index
//     - Returns per-kind results, optionally recorded as run history
//
//  2. [SyncEngine.SyncKind] : Mirror one kind
//     - Fetches and unpacks the Monarch document; failure aborts the kind
//     - Lists the kind from Firefly once, priming the index; failure aborts the kind
//     - Translates records sequentially, keeping records Firefly already has
//     - Creates pending drafts on a bounded errgroup; one failed creation never cancels another
//
// [MirrorEngine.Snapshot] saves the raw Monarch documents for offline replay through
// services.StubSource.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, kind, step counters, messages, and optional data
// for advanced UI rendering. Updates use select with default to prevent blocking.
//
// # Errors
//
// Per-record failures are collected as [RecordError] values and joined with errors.Join once the
// kind has settled. Dry runs translate without creating and report drafts as pending.
package tasks
