package ui

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tapedeck/tapedeck/internal/dropbox"
	"github.com/tapedeck/tapedeck/internal/models"
	"github.com/tapedeck/tapedeck/internal/playlists"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	BrowserView ViewState = iota
	PlaylistListView
	TrackListView
)

// Browser is the slice of the remote client the TUI needs.
type Browser interface {
	ListFolder(ctx context.Context, path string, mediaOnly bool, emit func([]models.Entry)) []models.Entry
	CollectAudioFiles(ctx context.Context, root string) ([]models.Entry, error)
	TemporaryLink(ctx context.Context, path string) string
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	view   ViewState
	client Browser
	engine *playlists.Engine

	width  int
	height int

	folderPath string
	entryList  list.Model
	entries    []models.Entry

	playlistList list.Model
	trackList    list.Model
	selected     models.SavedPlaylist

	status string
	err    error
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, client Browser, engine *playlists.Engine) *Model {
	return &Model{
		ctx:    ctx,
		view:   BrowserView,
		client: client,
		engine: engine,
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Init initializes the TUI by listing the library root.
func (m *Model) Init() tea.Cmd {
	return m.loadFolder("")
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.entryList.Width() == 0 {
			m.entryList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.playlistList.Width() == 0 {
			m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.trackList.Width() == 0 {
			m.trackList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case BrowserView:
			return m.handleBrowserKeys(msg)
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		}

	case entriesLoadedMsg:
		m.folderPath = msg.path
		m.entries = msg.entries
		items := make([]list.Item, len(msg.entries))
		for i, e := range msg.entries {
			items[i] = entryItem{entry: e}
		}
		m.entryList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.entryList.Title = folderTitle(msg.path)
		m.entryList.SetSize(m.width-4, m.height-8)
		return m, nil

	case linkFetchedMsg:
		if msg.link == "" {
			m.status = styles.warn.Render(fmt.Sprintf("No link available for %s", msg.path))
		} else {
			m.status = fmt.Sprintf("Stream: %s", msg.link)
		}
		return m, nil

	case scanSavedMsg:
		if msg.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("Save failed: %v", msg.err))
		} else {
			m.status = styles.ok.Render(fmt.Sprintf("Saved %q (%d tracks)", msg.playlist.Name, len(msg.playlist.Items)))
		}
		return m, nil

	case syncDoneMsg:
		if msg.status.Error != "" {
			m.status = styles.warn.Render(fmt.Sprintf("Sync finished with errors: %s", msg.status.Error))
		} else {
			m.status = styles.ok.Render("Sync complete")
		}
		return m, m.reloadPlaylists()
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case BrowserView:
		return m.renderBrowser()
	case PlaylistListView:
		return m.renderPlaylistList()
	case TrackListView:
		return m.renderTrackList()
	default:
		return ""
	}
}

func (m *Model) handleBrowserKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		if m.folderPath != "" {
			parent := path.Dir(m.folderPath)
			if parent == "/" || parent == "." {
				parent = ""
			}
			return m, m.loadFolder(parent)
		}
	case "tab":
		m.view = PlaylistListView
		return m, m.reloadPlaylists()
	case "enter":
		if item, ok := m.entryList.SelectedItem().(entryItem); ok && item.entry.IsFolder {
			return m, m.loadFolder(item.entry.PathDisplay)
		}
	case "l":
		if item, ok := m.entryList.SelectedItem().(entryItem); ok && !item.entry.IsFolder {
			return m, m.fetchLink(item.entry.PathDisplay)
		}
	case "a":
		return m, m.saveFolderAsPlaylist(m.folderPath)
	}

	var cmd tea.Cmd
	m.entryList, cmd = m.entryList.Update(msg)
	return m, cmd
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "tab":
		m.view = BrowserView
		return m, nil
	case "S":
		m.status = "Syncing..."
		return m, m.runSync()
	case "enter":
		if item, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			m.selected = item.playlist
			items := make([]list.Item, len(item.playlist.Items))
			for i, track := range item.playlist.Items {
				items[i] = trackItem{track: track}
			}
			m.trackList = list.New(items, list.NewDefaultDelegate(), 0, 0)
			m.trackList.Title = fmt.Sprintf("Tracks in '%s'", item.playlist.Name)
			m.trackList.SetSize(m.width-4, m.height-8)
			m.view = TrackListView
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = PlaylistListView
		return m, nil
	case "l":
		if item, ok := m.trackList.SelectedItem().(trackItem); ok {
			return m, m.fetchLink(item.track.File.PathDisplay)
		}
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case BrowserView:
		m.entryList, cmd = m.entryList.Update(msg)
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadFolder(folder string) tea.Cmd {
	return func() tea.Msg {
		entries := m.client.ListFolder(m.ctx, dropbox.NormalizePath(folder), true, nil)
		return entriesLoadedMsg{path: dropbox.NormalizePath(folder), entries: entries}
	}
}

func (m *Model) fetchLink(filePath string) tea.Cmd {
	return func() tea.Msg {
		link := m.client.TemporaryLink(m.ctx, filePath)
		return linkFetchedMsg{path: filePath, link: link}
	}
}

func (m *Model) saveFolderAsPlaylist(folder string) tea.Cmd {
	return func() tea.Msg {
		files, err := m.client.CollectAudioFiles(m.ctx, folder)
		if err != nil {
			return scanSavedMsg{err: err}
		}

		items := make([]models.PlaylistItem, 0, len(files))
		for _, f := range files {
			display := strings.TrimSuffix(f.Name, path.Ext(f.Name))
			items = append(items, models.PlaylistItem{File: f, DisplayName: display})
		}

		pl, err := m.engine.Save(m.ctx, folderTitle(folder), items, "")
		return scanSavedMsg{playlist: pl, err: err}
	}
}

func (m *Model) runSync() tea.Cmd {
	return func() tea.Msg {
		m.engine.Sync(m.ctx)
		return syncDoneMsg{status: m.engine.Status().Get()}
	}
}

func (m *Model) reloadPlaylists() tea.Cmd {
	collection := m.engine.List()
	items := make([]list.Item, len(collection))
	for i, pl := range collection {
		items[i] = playlistItem{playlist: pl}
	}
	m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
	m.playlistList.Title = "Saved Playlists"
	m.playlistList.SetSize(m.width-4, m.height-8)
	return nil
}

func (m *Model) renderBrowser() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.link, m.keys.save, m.keys.tab, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n%s\n\n%s", m.entryList.View(), m.status, helpView)
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.sync, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n%s\n\n%s", m.playlistList.View(), m.status, helpView)
}

func (m *Model) renderTrackList() string {
	helpKeys := []key.Binding{m.keys.link, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n%s\n\n%s", m.trackList.View(), m.status, helpView)
}

func folderTitle(p string) string {
	if p == "" {
		return "Music Library"
	}
	return path.Base(p)
}
