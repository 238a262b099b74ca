package ui

import (
	"github.com/tapedeck/tapedeck/internal/models"
)

// entriesLoadedMsg carries one folder listing.
type entriesLoadedMsg struct {
	path    string
	entries []models.Entry
}

// linkFetchedMsg carries a temporary streaming link for one file.
type linkFetchedMsg struct {
	path string
	link string
}

// scanSavedMsg reports a recursive scan saved as a playlist.
type scanSavedMsg struct {
	playlist models.SavedPlaylist
	err      error
}

// syncDoneMsg reports a finished playlist sync.
type syncDoneMsg struct {
	status models.SyncStatus
}
