package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/tapedeck/tapedeck/internal/models"
	"github.com/tapedeck/tapedeck/internal/shared"
	"github.com/urfave/cli/v3"
)

// SyncRun reconciles the local collection against the cloud document set.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	r.logger.Info("starting playlist sync")
	if err := r.engine.Sync(ctx); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	status := r.engine.Status().Get()
	if status.Error != "" {
		r.writePlain("⚠ Sync finished with errors: %s\n", status.Error)
	} else {
		r.writePlain("✓ Sync complete\n")
	}

	for _, pl := range r.engine.List() {
		r.writePlain("  %s: %s\n", pl.Name, pl.SyncStatus)
	}
	return nil
}

// SyncForce overwrites the cloud copy of one playlist with the local version.
func (r *Runner) SyncForce(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	pl, err := r.resolvePlaylist(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if err := r.engine.ForceSync(ctx, pl.ID); err != nil {
		return err
	}
	return r.writePlain("✓ Uploaded %q\n", pl.Name)
}

// SyncSettings shows or updates the persisted sync settings.
func (r *Runner) SyncSettings(ctx context.Context, cmd *cli.Command) error {
	if r.engine == nil {
		return fmt.Errorf("%w: playlist engine not initialized", shared.ErrServiceUnavailable)
	}

	settings := r.engine.Settings().Get()
	changed := false

	if v := cmd.String("enabled"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: --enabled must be true or false", shared.ErrInvalidArgument)
		}
		settings.Enabled = enabled
		changed = true
	}
	if v := cmd.String("auto"); v != "" {
		auto, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: --auto must be true or false", shared.ErrInvalidArgument)
		}
		settings.AutoSync = auto
		changed = true
	}

	if changed {
		if err := r.engine.SetSettings(settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
	}

	r.writePlain("Sync enabled: %t\n", settings.Enabled)
	r.writePlain("Auto sync: %t\n", settings.AutoSync)
	return nil
}

// SyncStatus prints the current sync snapshot.
func (r *Runner) SyncStatus(ctx context.Context, cmd *cli.Command) error {
	if r.engine == nil {
		return fmt.Errorf("%w: playlist engine not initialized", shared.ErrServiceUnavailable)
	}

	status := r.engine.Status().Get()
	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlain("Online: %t\n", status.Online)
	r.writePlain("Syncing: %t\n", status.Syncing)
	if !status.LastSync.IsZero() {
		r.writePlain("Last sync: %s\n", status.LastSync.Format(time.RFC1123))
	}
	if status.Error != "" {
		r.writePlain("Last error: %s\n", status.Error)
	}

	counts := map[models.SyncState]int{}
	for _, pl := range r.engine.List() {
		counts[pl.SyncStatus]++
	}
	if len(counts) > 0 {
		r.writePlain("Playlists: %d local, %d synced, %d error\n",
			counts[models.SyncLocal], counts[models.SyncSynced], counts[models.SyncError])
	}
	return nil
}
