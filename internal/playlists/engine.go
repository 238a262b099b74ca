package playlists

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tapedeck/tapedeck/internal/dropbox"
	"github.com/tapedeck/tapedeck/internal/models"
	"github.com/tapedeck/tapedeck/internal/shared"
	"github.com/tapedeck/tapedeck/internal/store"
	"github.com/tapedeck/tapedeck/internal/watch"
	"golang.org/x/sync/errgroup"
)

// Gateway is the slice of the remote file API the engine needs. Implemented by
// dropbox.Client.
type Gateway interface {
	ListFolder(ctx context.Context, path string, mediaOnly bool, emit func([]models.Entry)) []models.Entry
	Upload(ctx context.Context, path string, data []byte, overwrite bool) (models.Entry, error)
	Download(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}

// AuthSource exposes the authentication state the engine reacts to.
// Implemented by auth.Session.
type AuthSource interface {
	Authenticated() bool
	State() *watch.Value[models.AuthState]
}

// Engine maintains the local playlist collection, mirrors it to cloud JSON
// documents, and reconciles divergence by last-modified comparison
// (last-writer-wins at playlist granularity; item-level edits are never
// merged).
//
// The local write always happens synchronously before any network call, so a
// crash mid-sync never loses the local copy.
type Engine struct {
	store   store.Store
	gw      Gateway
	auth    AuthSource
	logger  *log.Logger
	now     func() time.Time
	timeout time.Duration

	settings  *watch.Value[models.SyncSettings]
	status    *watch.Value[models.SyncStatus]
	playlists *watch.Value[[]models.SavedPlaylist]

	// mu serializes read-modify-write sequences on the collection; readers go
	// through the watch value directly.
	mu sync.Mutex

	syncMu  sync.Mutex
	syncing bool

	wasAuthed bool
}

// EngineOpts contains configuration for creating an Engine.
type EngineOpts struct {
	Store           store.Store
	Gateway         Gateway
	Auth            AuthSource
	Logger          *log.Logger
	DefaultSettings models.SyncSettings
	Now             func() time.Time

	// SyncTimeout bounds background sync operations spawned off saves and
	// connectivity transitions.
	SyncTimeout time.Duration
}

// NewEngine creates an Engine, loading the persisted collection and settings
// and subscribing to auth transitions.
func NewEngine(opts EngineOpts) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: store required", shared.ErrInvalidConfig)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SyncTimeout <= 0 {
		opts.SyncTimeout = 2 * time.Minute
	}

	e := &Engine{
		store:   opts.Store,
		gw:      opts.Gateway,
		auth:    opts.Auth,
		logger:  opts.Logger,
		now:     opts.Now,
		timeout: opts.SyncTimeout,
		status:  watch.NewValue(models.SyncStatus{Online: true}),
	}

	var collection []models.SavedPlaylist
	if _, err := store.GetJSON(opts.Store, store.KeyPlaylists, &collection); err != nil {
		// Malformed stored state degrades to an empty collection.
		e.logger.Warnf("failed to load playlist collection: %v", err)
		collection = nil
	}
	e.playlists = watch.NewValue(collection)

	settings := opts.DefaultSettings
	if _, err := store.GetJSON(opts.Store, store.KeySyncSettings, &settings); err != nil {
		e.logger.Warnf("failed to load sync settings: %v", err)
	}
	e.settings = watch.NewValue(settings)

	if opts.Auth != nil {
		e.wasAuthed = opts.Auth.Authenticated()
		opts.Auth.State().Subscribe(e.onAuthChange)
	}

	return e, nil
}

// Playlists returns the observable local collection.
func (e *Engine) Playlists() *watch.Value[[]models.SavedPlaylist] {
	return e.playlists
}

// Status returns the observable process-wide sync status.
func (e *Engine) Status() *watch.Value[models.SyncStatus] {
	return e.status
}

// Settings returns the observable sync settings.
func (e *Engine) Settings() *watch.Value[models.SyncSettings] {
	return e.settings
}

// List returns a snapshot of the local collection.
func (e *Engine) List() []models.SavedPlaylist {
	return e.playlists.Get()
}

// Get returns the playlist with the given id.
func (e *Engine) Get(id string) (models.SavedPlaylist, bool) {
	for _, pl := range e.playlists.Get() {
		if pl.ID == id {
			return pl, true
		}
	}
	return models.SavedPlaylist{}, false
}

// FindByName returns the first playlist with an exact name match.
func (e *Engine) FindByName(name string) (models.SavedPlaylist, bool) {
	for _, pl := range e.playlists.Get() {
		if pl.Name == name {
			return pl, true
		}
	}
	return models.SavedPlaylist{}, false
}

// SetSettings persists and publishes new sync settings.
func (e *Engine) SetSettings(s models.SyncSettings) error {
	if err := store.SetJSON(e.store, store.KeySyncSettings, s); err != nil {
		return err
	}
	e.settings.Set(s)
	return nil
}

// SetOnline records a connectivity transition. Coming online fires exactly one
// sync when eligibility holds at that instant; there is no polling loop.
func (e *Engine) SetOnline(online bool) {
	prev := e.status.Get().Online
	e.status.Update(func(s models.SyncStatus) models.SyncStatus {
		s.Online = online
		return s
	})
	if !prev && online && e.canSync() {
		go e.backgroundSync("connectivity restored")
	}
}

// onAuthChange fires one sync on the unauthenticated → authenticated edge.
func (e *Engine) onAuthChange(state models.AuthState) {
	was := e.wasAuthed
	e.wasAuthed = state.Authenticated
	if !was && state.Authenticated && e.canSync() {
		go e.backgroundSync("authenticated")
	}
}

// canSync is the sync eligibility predicate, recomputed at every use and never
// cached beyond the instant of the check.
func (e *Engine) canSync() bool {
	settings := e.settings.Get()
	return settings.Enabled && settings.AutoSync &&
		e.auth != nil && e.auth.Authenticated() &&
		e.status.Get().Online
}

func (e *Engine) backgroundSync(reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	e.logger.Info("starting playlist sync", "reason", reason)
	if err := e.Sync(ctx); err != nil {
		e.logger.Warnf("background sync failed: %v", err)
	}
}

// validateName checks the user-supplied playlist name.
func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: playlist name must not be empty", shared.ErrInvalidInput)
	}
	if len(trimmed) > maxNameLength {
		return fmt.Errorf("%w: playlist name exceeds %d characters", shared.ErrInvalidInput, maxNameLength)
	}
	return nil
}

// Save writes the playlist locally first, synchronously, then mirrors it to
// the cloud in the background when sync is eligible.
//
// A fresh id is generated when none is supplied; on update the original
// Created timestamp is preserved. An upload failure marks the playlist
// syncStatus error but never rolls back the local save.
func (e *Engine) Save(ctx context.Context, name string, items []models.PlaylistItem, id string) (models.SavedPlaylist, error) {
	if err := validateName(name); err != nil {
		return models.SavedPlaylist{}, err
	}
	if items == nil {
		return models.SavedPlaylist{}, fmt.Errorf("%w: playlist items must be a sequence", shared.ErrInvalidInput)
	}

	name = strings.TrimSpace(name)
	now := e.now()

	e.mu.Lock()
	collection := e.playlists.Get()
	next := make([]models.SavedPlaylist, len(collection))
	copy(next, collection)

	var saved models.SavedPlaylist
	found := false
	if id != "" {
		for i, pl := range next {
			if pl.ID == id {
				saved = pl
				saved.Name = name
				saved.Items = items
				saved.LastModified = now
				saved.SyncStatus = models.SyncLocal
				next[i] = saved
				found = true
				break
			}
		}
	}
	if !found {
		if id == "" {
			id = shared.GenerateID()
		}
		saved = models.SavedPlaylist{
			ID:           id,
			Name:         name,
			Items:        items,
			Created:      now,
			LastModified: now,
			SyncStatus:   models.SyncLocal,
		}
		next = append(next, saved)
	}

	err := e.persistLocked(next)
	e.mu.Unlock()
	if err != nil {
		return models.SavedPlaylist{}, err
	}

	if e.canSync() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
			defer cancel()
			e.upload(ctx, saved.ID)
		}()
	}

	return saved, nil
}

// Delete removes the playlist locally unconditionally. When the playlist was
// previously synced and sync is currently possible, the remote document is
// deleted as well; a remote failure is reported but the local removal stands.
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.mu.Lock()
	collection := e.playlists.Get()
	var removed models.SavedPlaylist
	found := false
	next := make([]models.SavedPlaylist, 0, len(collection))
	for _, pl := range collection {
		if pl.ID == id {
			removed = pl
			found = true
			continue
		}
		next = append(next, pl)
	}
	if !found {
		e.mu.Unlock()
		return fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}
	err := e.persistLocked(next)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	if removed.SyncStatus == models.SyncSynced && e.canSync() {
		if err := e.gw.Delete(ctx, DocumentPath(removed.Name)); err != nil {
			e.logger.Warnf("failed to delete remote document for %q: %v", removed.Name, err)
			e.setError(fmt.Sprintf("remote delete of %q failed", removed.Name))
			return fmt.Errorf("deleted locally, remote delete failed: %w", err)
		}
	}
	return nil
}

// Rename updates the local name immediately. When syncable, the old remote
// document is deleted and a fresh one uploaded as a single logical operation;
// if either half fails the local rename stands and the playlist becomes
// eligible for a later retry.
func (e *Engine) Rename(ctx context.Context, id, newName string) error {
	if err := validateName(newName); err != nil {
		return err
	}
	newName = strings.TrimSpace(newName)

	e.mu.Lock()
	collection := e.playlists.Get()
	next := make([]models.SavedPlaylist, len(collection))
	copy(next, collection)

	oldName := ""
	found := false
	for i, pl := range next {
		if pl.ID == id {
			oldName = pl.Name
			pl.Name = newName
			pl.LastModified = e.now()
			pl.SyncStatus = models.SyncLocal
			next[i] = pl
			found = true
			break
		}
	}
	if !found {
		e.mu.Unlock()
		return fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}
	err := e.persistLocked(next)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	if !e.canSync() {
		return nil
	}

	if oldName != newName {
		if err := e.gw.Delete(ctx, DocumentPath(oldName)); err != nil {
			e.logger.Warnf("failed to delete old document %q: %v", oldName, err)
			e.markStatus(id, models.SyncError, "")
			return nil
		}
	}
	e.upload(ctx, id)
	return nil
}

// ForceSync bypasses reconciliation and unconditionally uploads the playlist,
// for manual conflict resolution.
func (e *Engine) ForceSync(ctx context.Context, id string) error {
	if _, ok := e.Get(id); !ok {
		return fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}
	if !e.upload(ctx, id) {
		return fmt.Errorf("%w: upload failed", shared.ErrAPIRequest)
	}
	return nil
}

// Sync reconciles the local collection against the remote document set.
//
// Remote documents are matched to local playlists by stable id first, then by
// exact name for legacy documents (backfilling the id). Unmatched remotes are
// adopted; unmatched non-synced locals are uploaded. Matched pairs resolve by
// last-writer-wins on LastModified: strictly newer remote overwrites local,
// strictly newer local uploads, equal timestamps are a no-op. Per-playlist
// operations run concurrently and one failure never blocks the others.
func (e *Engine) Sync(ctx context.Context) error {
	e.syncMu.Lock()
	if e.syncing {
		e.syncMu.Unlock()
		return nil
	}
	e.syncing = true
	e.syncMu.Unlock()

	defer func() {
		e.syncMu.Lock()
		e.syncing = false
		e.syncMu.Unlock()
	}()

	e.status.Update(func(s models.SyncStatus) models.SyncStatus {
		s.Syncing = true
		s.Error = ""
		return s
	})

	remote := e.gw.ListFolder(ctx, dropbox.PlaylistFolder, false, nil)

	var (
		errMu    sync.Mutex
		failures []string
	)
	report := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		e.logger.Warn(msg)
		errMu.Lock()
		failures = append(failures, msg)
		errMu.Unlock()
	}

	var (
		matchMu     sync.Mutex
		matchedIDs  = map[string]bool{}
		remoteNames = map[string]bool{}
	)
	for _, doc := range remote {
		if !doc.IsFolder && strings.HasSuffix(doc.Name, ".json") {
			remoteNames[strings.TrimSuffix(doc.Name, ".json")] = true
		}
	}

	var eg errgroup.Group
	for _, entry := range remote {
		if entry.IsFolder || !strings.HasSuffix(entry.Name, ".json") {
			continue
		}
		eg.Go(func() error {
			data, err := e.gw.Download(ctx, entry.PathDisplay)
			if err != nil {
				report("failed to download %s: %v", entry.PathDisplay, err)
				return nil
			}
			doc, err := parseDocument(data)
			if err != nil {
				report("failed to parse %s: %v", entry.PathDisplay, err)
				return nil
			}

			id, action := e.reconcile(doc, entry.Rev)
			if id != "" {
				matchMu.Lock()
				matchedIDs[id] = true
				matchMu.Unlock()
			}
			if action == actionUpload {
				e.upload(ctx, id)
			}
			return nil
		})
	}
	eg.Wait()

	// Upload locals the remote pass did not account for, skipping playlists
	// already marked synced and names a remote document already owns.
	var pending []string
	for _, pl := range e.playlists.Get() {
		if matchedIDs[pl.ID] || pl.SyncStatus == models.SyncSynced {
			continue
		}
		if remoteNames[Sanitize(pl.Name)] {
			continue
		}
		pending = append(pending, pl.ID)
	}

	var uploads errgroup.Group
	for _, id := range pending {
		uploads.Go(func() error {
			if !e.upload(ctx, id) {
				report("failed to upload playlist %s", id)
			}
			return nil
		})
	}
	uploads.Wait()

	e.status.Update(func(s models.SyncStatus) models.SyncStatus {
		s.Syncing = false
		s.LastSync = e.now()
		s.Error = strings.Join(failures, "; ")
		return s
	})
	return nil
}

type reconcileAction int

const (
	actionNone reconcileAction = iota
	actionUpload
)

// reconcile merges one downloaded document into the collection and reports
// whether the matched local copy must be uploaded. Returns the local id the
// document was matched or adopted to.
func (e *Engine) reconcile(doc models.PlaylistDocument, rev string) (string, reconcileAction) {
	e.mu.Lock()
	defer e.mu.Unlock()

	collection := e.playlists.Get()
	next := make([]models.SavedPlaylist, len(collection))
	copy(next, collection)

	idx := -1
	for i, pl := range next {
		if doc.ID != "" && pl.ID == doc.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		// Legacy documents lack an id; fall back to exact name match and
		// backfill the id for future lookups.
		for i, pl := range next {
			if pl.Name == doc.Name {
				idx = i
				if doc.ID != "" {
					next[i].ID = doc.ID
				}
				break
			}
		}
	}

	if idx < 0 {
		adopted := models.SavedPlaylist{
			ID:           doc.ID,
			Name:         doc.Name,
			Items:        itemsFromDocument(doc),
			Created:      doc.Created,
			LastModified: doc.LastModified,
			SyncStatus:   models.SyncSynced,
			CloudRev:     rev,
		}
		if adopted.ID == "" {
			adopted.ID = shared.GenerateID()
		}
		next = append(next, adopted)
		if err := e.persistLocked(next); err != nil {
			e.logger.Warnf("failed to persist adopted playlist %q: %v", doc.Name, err)
		}
		return adopted.ID, actionNone
	}

	local := next[idx]
	switch {
	case doc.LastModified.After(local.LastModified):
		local.Name = doc.Name
		local.Items = itemsFromDocument(doc)
		local.LastModified = doc.LastModified
		local.SyncStatus = models.SyncSynced
		local.CloudRev = rev
	case local.LastModified.After(doc.LastModified):
		next[idx] = local
		if err := e.persistLocked(next); err != nil {
			e.logger.Warnf("failed to persist collection: %v", err)
		}
		return local.ID, actionUpload
	default:
		// Equal timestamps: already consistent.
		local.SyncStatus = models.SyncSynced
		local.CloudRev = rev
	}

	next[idx] = local
	if err := e.persistLocked(next); err != nil {
		e.logger.Warnf("failed to persist collection: %v", err)
	}
	return local.ID, actionNone
}

// upload serializes the playlist and writes its cloud document, walking the
// playlist through syncing → synced/error. Reports success.
func (e *Engine) upload(ctx context.Context, id string) bool {
	pl, ok := e.Get(id)
	if !ok {
		return false
	}

	e.markStatus(id, models.SyncSyncing, "")

	data, err := shared.MarshalJSON(toDocument(pl), true)
	if err != nil {
		e.logger.Warnf("failed to encode playlist %q: %v", pl.Name, err)
		e.markStatus(id, models.SyncError, "")
		return false
	}

	uploaded, err := e.gw.Upload(ctx, DocumentPath(pl.Name), data, true)
	if err != nil {
		e.logger.Warnf("failed to upload playlist %q: %v", pl.Name, err)
		e.markStatus(id, models.SyncError, "")
		return false
	}

	e.markStatus(id, models.SyncSynced, uploaded.Rev)
	return true
}

// markStatus updates one playlist's sync status (and revision when provided).
func (e *Engine) markStatus(id string, status models.SyncState, rev string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	collection := e.playlists.Get()
	next := make([]models.SavedPlaylist, len(collection))
	copy(next, collection)
	for i, pl := range next {
		if pl.ID == id {
			pl.SyncStatus = status
			if rev != "" {
				pl.CloudRev = rev
			}
			next[i] = pl
			break
		}
	}
	if err := e.persistLocked(next); err != nil {
		e.logger.Warnf("failed to persist collection: %v", err)
	}
}

// persistLocked writes the collection through the store and publishes it.
// Callers hold e.mu.
func (e *Engine) persistLocked(collection []models.SavedPlaylist) error {
	if err := store.SetJSON(e.store, store.KeyPlaylists, collection); err != nil {
		return err
	}
	e.playlists.Set(collection)
	return nil
}

func (e *Engine) setError(msg string) {
	e.status.Update(func(s models.SyncStatus) models.SyncStatus {
		s.Error = msg
		return s
	})
}

// SetCurrent persists the playback resume state.
func (e *Engine) SetCurrent(items []models.PlaylistItem, index int) error {
	state := models.ResumeState{Items: items, CurrentIndex: index, Timestamp: e.now()}
	return store.SetJSON(e.store, store.KeyResumeState, state)
}

// Current returns the persisted playback resume state, if any.
func (e *Engine) Current() (models.ResumeState, bool) {
	var state models.ResumeState
	ok, err := store.GetJSON(e.store, store.KeyResumeState, &state)
	if err != nil {
		e.logger.Warnf("failed to load resume state: %v", err)
		return models.ResumeState{}, false
	}
	return state, ok
}
