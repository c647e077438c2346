// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through a single sync:
//  1. [KindListView] : Pick the kinds to mirror and toggle dry run
//  2. [ConfirmView] : Confirm the sync
//  3. [SyncView] : Monitor per-kind progress updates
//  4. [ResultView] : Display per-kind counts and record errors
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the [tasks.SyncEngine]; the engine never blocks on a slow UI.
//
// Keyboard navigation uses vim-style bindings (j/k, space, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
