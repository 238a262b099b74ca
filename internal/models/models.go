// package models defines the data model for the music library client
package models

import "time"

// Entry is an immutable snapshot of a remote file or folder at listing time.
//
// Entries are never mutated after construction, only replaced by a fresh
// listing.
type Entry struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	PathDisplay    string    `json:"path_display"`
	IsFolder       bool      `json:"is_folder"`
	Size           uint64    `json:"size,omitempty"`
	ClientModified time.Time `json:"client_modified,omitempty"`
	ServerModified time.Time `json:"server_modified,omitempty"`
	Rev            string    `json:"rev,omitempty"`
}

// Account is the profile of the authenticated Dropbox user.
type Account struct {
	AccountID   string `json:"account_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// AuthState is the published authentication snapshot.
type AuthState struct {
	Authenticated bool
	Account       *Account
	TokenExpiry   time.Time // zero when the provider omitted an expiry
	Error         string
}

// PlaylistItem is one track in a playlist.
//
// File may be a partial reference (path only) when the item was reconstructed
// from a downloaded cloud document; DisplayName is always usable.
type PlaylistItem struct {
	File        Entry  `json:"file"`
	DisplayName string `json:"display_name"`
}

// SyncState tracks where a playlist stands relative to its cloud document.
type SyncState string

const (
	SyncLocal   SyncState = "local"
	SyncSyncing SyncState = "syncing"
	SyncSynced  SyncState = "synced"
	SyncError   SyncState = "error"
)

// SavedPlaylist is a locally stored playlist.
//
// Identity is ID, never Name; names are user-mutable and only used for display
// and for deriving the remote document path. At most one SavedPlaylist per ID
// exists in the local collection.
type SavedPlaylist struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Items        []PlaylistItem `json:"items"`
	Created      time.Time      `json:"created"`
	LastModified time.Time      `json:"last_modified"`
	SyncStatus   SyncState      `json:"sync_status"`
	CloudRev     string         `json:"cloud_rev,omitempty"`
}

// SyncStatus is the process-wide sync snapshot.
type SyncStatus struct {
	Online   bool
	Syncing  bool
	LastSync time.Time
	Error    string
}

// SyncSettings are the user-configurable, persisted sync switches.
type SyncSettings struct {
	Enabled  bool `json:"enabled"`
	AutoSync bool `json:"auto_sync"`
}

// ScanProgress is the transient snapshot published during a recursive folder
// scan. Overwritten per folder, reset to idle on completion or error.
type ScanProgress struct {
	CurrentPath     string
	Scanning        bool
	AudioFilesFound int
}

// ResumeState records the playback queue for session restore.
type ResumeState struct {
	Items        []PlaylistItem `json:"items"`
	CurrentIndex int            `json:"current_index"`
	Timestamp    time.Time      `json:"timestamp"`
}

// PlaylistDocument is the cloud-persisted playlist wire format, one JSON file
// per playlist at /playlists/<sanitized-name>.json.
type PlaylistDocument struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Created      time.Time      `json:"created"`
	LastModified time.Time      `json:"lastModified"`
	Items        []DocumentItem `json:"items"`
}

// DocumentItem is one track reference inside a PlaylistDocument.
type DocumentItem struct {
	Path        string `json:"path"`
	DisplayName string `json:"displayName"`
}
