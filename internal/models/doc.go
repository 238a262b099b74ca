// Package models holds the value types shared across the gateway, the sync
// engine, and the UI layers.
//
// Remote state ([Entry], [Account]) is produced by the dropbox package from raw
// API responses and treated as immutable. Local state ([SavedPlaylist],
// [SyncSettings], [ResumeState]) is owned by the playlists package and written
// through the store. [PlaylistDocument] is the cloud wire format and the only
// type here with provider-facing JSON field names.
package models
