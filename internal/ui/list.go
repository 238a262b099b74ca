package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/tapedeck/tapedeck/internal/models"
)

var (
	_ list.Item = entryItem{}
	_ list.Item = playlistItem{}
	_ list.Item = trackItem{}
)

// entryItem wraps [models.Entry] to implement [list.Item].
type entryItem struct {
	entry models.Entry
}

func (i entryItem) FilterValue() string { return i.entry.Name }
func (i entryItem) Title() string {
	if i.entry.IsFolder {
		return i.entry.Name + "/"
	}
	return i.entry.Name
}
func (i entryItem) Description() string {
	if i.entry.IsFolder {
		return "folder"
	}
	return i.entry.PathDisplay
}

// playlistItem wraps [models.SavedPlaylist] to implement [list.Item].
type playlistItem struct {
	playlist models.SavedPlaylist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	return fmt.Sprintf("%d tracks • %s", len(i.playlist.Items), i.playlist.SyncStatus)
}

// trackItem wraps [models.PlaylistItem] to implement [list.Item].
type trackItem struct {
	track models.PlaylistItem
}

func (i trackItem) FilterValue() string { return i.track.DisplayName }
func (i trackItem) Title() string       { return i.track.DisplayName }
func (i trackItem) Description() string { return i.track.File.PathDisplay }
