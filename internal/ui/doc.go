// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for library browsing and playlist management:
//  1. [BrowserView] : Navigate the remote folder tree, audio files and folders only
//  2. [PlaylistListView] : Browse saved playlists and trigger a cloud sync
//  3. [TrackListView] : Inspect a playlist's tracks and fetch streaming links
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Folder listings, link fetches, scans, and syncs run as commands so the event loop never blocks on the network.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, tab, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
