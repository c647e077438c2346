// Package models defines the Firefly-side records that fmbridge creates from Monarch data.
//
// The package contains three categories of types:
//
// 1. Target records: typed Firefly entities with a persistence lifecycle
//   - [Account] : asset/liability accounts with a type-dependent [Subtype]
//   - [Category] : transaction categories
//   - [Tag] : transaction tags
//   - [Transaction] : single-split withdrawals and deposits
//
// All records implement [Record]. A record starts as a draft (no Firefly id), becomes loaded once
// created or decoded from Firefly, and detached after deletion. The originating Monarch id is carried
// in an [Annotation] stored in the record's free-text field, which is the only way to correlate the
// two services across runs.
//
// 2. Enumerations and resolvers: [AccountType], [AssetRole], [LiabilityType] and [TransactionType],
// with total resolver functions mapping Monarch strings to Firefly values.
//
// 3. Persistent entities: [SyncRun] history rows, implementing [Model] and stored through
// [Repository] implementations.
package models
