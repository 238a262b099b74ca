package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/tapedeck/tapedeck/internal/dropbox"
	"github.com/tapedeck/tapedeck/internal/formatter"
	"github.com/tapedeck/tapedeck/internal/models"
	"github.com/tapedeck/tapedeck/internal/shared"
	"github.com/urfave/cli/v3"
)

// resolvePlaylist looks a playlist up by id, falling back to exact name.
func (r *Runner) resolvePlaylist(ref string) (models.SavedPlaylist, error) {
	if ref == "" {
		return models.SavedPlaylist{}, fmt.Errorf("%w: playlist id is required", shared.ErrMissingArgument)
	}
	if pl, ok := r.engine.Get(ref); ok {
		return pl, nil
	}
	if pl, ok := r.engine.FindByName(ref); ok {
		return pl, nil
	}
	return models.SavedPlaylist{}, fmt.Errorf("%w: playlist %q", shared.ErrNotFound, ref)
}

// PlaylistList lists saved playlists.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	if r.engine == nil {
		return fmt.Errorf("%w: playlist engine not initialized", shared.ErrServiceUnavailable)
	}

	collection := r.engine.List()

	if cmd.Bool("json") {
		return r.writeJSON(collection, cmd.Bool("pretty"))
	}

	if len(collection) == 0 {
		return r.writePlain("No saved playlists\n")
	}

	r.writePlain("Found %d playlists:\n\n", len(collection))
	for i, pl := range collection {
		r.writePlain("%d. %s\n", i+1, pl.Name)
		r.writePlain("   ID: %s\n", pl.ID)
		r.writePlain("   Tracks: %d\n", len(pl.Items))
		r.writePlain("   Sync: %s\n\n", pl.SyncStatus)
	}
	return nil
}

// PlaylistShow prints one playlist with its items.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	if r.engine == nil {
		return fmt.Errorf("%w: playlist engine not initialized", shared.ErrServiceUnavailable)
	}

	pl, err := r.resolvePlaylist(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(pl, cmd.Bool("pretty"))
	}

	r.writePlain("Playlist: %s\n", pl.Name)
	r.writePlain("ID: %s\n", pl.ID)
	r.writePlain("Sync: %s\n", pl.SyncStatus)
	r.writePlain("Tracks: %d\n\n", len(pl.Items))
	for i, item := range pl.Items {
		r.writePlain("%d. %s\n", i+1, item.DisplayName)
		r.writePlain("   %s\n", item.File.PathDisplay)
	}
	return nil
}

// PlaylistSave collects the audio files in a remote folder and saves them as a
// new playlist.
func (r *Runner) PlaylistSave(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	name := cmd.StringArg("name")
	folder := dropbox.NormalizePath(cmd.StringArg("path"))
	if name == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrMissingArgument)
	}

	var files []models.Entry
	if cmd.Bool("recursive") {
		collected, err := r.client.CollectAudioFiles(ctx, folder)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
		files = collected
	} else {
		for _, e := range r.client.ListFolder(ctx, folder, true, nil) {
			if !e.IsFolder {
				files = append(files, e)
			}
		}
	}

	if len(files) == 0 {
		return fmt.Errorf("%w: no audio files found under %q", shared.ErrNotFound, folder)
	}

	items := make([]models.PlaylistItem, 0, len(files))
	for _, f := range files {
		display := strings.TrimSuffix(f.Name, path.Ext(f.Name))
		items = append(items, models.PlaylistItem{File: f, DisplayName: display})
	}

	pl, err := r.engine.Save(ctx, name, items, "")
	if err != nil {
		return err
	}

	r.writePlain("✓ Saved playlist %q with %d tracks\n", pl.Name, len(pl.Items))
	r.writePlain("  ID: %s\n", pl.ID)
	return nil
}

// PlaylistRename renames a playlist.
func (r *Runner) PlaylistRename(ctx context.Context, cmd *cli.Command) error {
	if r.engine == nil {
		return fmt.Errorf("%w: playlist engine not initialized", shared.ErrServiceUnavailable)
	}

	pl, err := r.resolvePlaylist(cmd.StringArg("id"))
	if err != nil {
		return err
	}
	newName := cmd.StringArg("name")

	if err := r.engine.Rename(ctx, pl.ID, newName); err != nil {
		return err
	}
	return r.writePlain("✓ Renamed %q to %q\n", pl.Name, newName)
}

// PlaylistDelete deletes a playlist locally and, when synced, its cloud document.
func (r *Runner) PlaylistDelete(ctx context.Context, cmd *cli.Command) error {
	if r.engine == nil {
		return fmt.Errorf("%w: playlist engine not initialized", shared.ErrServiceUnavailable)
	}

	pl, err := r.resolvePlaylist(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if err := r.engine.Delete(ctx, pl.ID); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted %q\n", pl.Name)
}

// PlaylistExport writes a playlist in the requested format.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	if r.engine == nil {
		return fmt.Errorf("%w: playlist engine not initialized", shared.ErrServiceUnavailable)
	}

	pl, err := r.resolvePlaylist(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	data, err := formatter.Export(pl, cmd.String("format"))
	if err != nil {
		return err
	}

	outputFile := cmd.String("output")
	if outputFile == "" {
		return r.writePlain("%s", string(data))
	}

	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	r.logger.Infof("playlist exported to %v with %v tracks", outputFile, len(pl.Items))
	return r.writePlain("✓ Playlist exported to %s\n", outputFile)
}
