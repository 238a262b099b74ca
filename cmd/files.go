package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tapedeck/tapedeck/internal/dropbox"
	"github.com/tapedeck/tapedeck/internal/models"
	"github.com/tapedeck/tapedeck/internal/shared"
	"github.com/urfave/cli/v3"
)

// FilesList lists one remote folder, audio files and subfolders by default.
func (r *Runner) FilesList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	path := dropbox.NormalizePath(cmd.StringArg("path"))
	mediaOnly := !cmd.Bool("all")

	r.logger.Info("listing folder", "path", path, "media_only", mediaOnly)

	entries := r.client.ListFolder(ctx, path, mediaOnly, nil)

	if cmd.Bool("json") {
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}

	if len(entries) == 0 {
		return r.writePlain("No entries found\n")
	}

	r.writePlain("Found %d entries:\n\n", len(entries))
	for _, e := range entries {
		marker := " "
		if e.IsFolder {
			marker = "/"
		}
		r.writePlain("%s%s\n", e.PathDisplay, marker)
	}
	return nil
}

// FilesScan recursively collects every audio file under a folder.
func (r *Runner) FilesScan(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	path := dropbox.NormalizePath(cmd.StringArg("path"))
	r.logger.Info("scanning folder tree", "path", path)

	cancel := r.client.ScanProgress().Subscribe(func(p models.ScanProgress) {
		if p.Scanning {
			r.logger.Info("scanning", "path", p.CurrentPath, "found", p.AudioFilesFound)
		}
	})
	defer cancel()

	files, err := r.client.CollectAudioFiles(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(files, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d audio files:\n\n", len(files))
	for i, f := range files {
		r.writePlain("%d. %s\n", i+1, f.PathDisplay)
	}
	return nil
}

// FilesLink prints a short-lived streaming URL for one file.
func (r *Runner) FilesLink(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path is required", shared.ErrMissingArgument)
	}

	link := r.client.TemporaryLink(ctx, dropbox.NormalizePath(path))
	if link == "" {
		return fmt.Errorf("%w: could not get link for %s", shared.ErrAPIRequest, path)
	}
	return r.writePlain("%s\n", link)
}

// FilesMkdir creates a remote folder. Creating a folder that already exists
// succeeds silently.
func (r *Runner) FilesMkdir(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path is required", shared.ErrMissingArgument)
	}

	if err := r.client.CreateFolder(ctx, dropbox.NormalizePath(path)); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return r.writePlain("✓ Created %s\n", path)
}

// FilesUpload uploads one local file to a remote path.
func (r *Runner) FilesUpload(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	source := cmd.StringArg("source")
	dest := cmd.StringArg("dest")
	if source == "" || dest == "" {
		return fmt.Errorf("%w: source and dest are required", shared.ErrMissingArgument)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", source, err)
	}

	entry, err := r.client.Upload(ctx, dropbox.NormalizePath(dest), data, cmd.Bool("overwrite"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	r.logger.Info("uploaded", "path", entry.PathDisplay, "size", entry.Size)
	return r.writePlain("✓ Uploaded to %s\n", entry.PathDisplay)
}

// FilesDownload downloads one remote file to a local path.
func (r *Runner) FilesDownload(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	source := cmd.StringArg("source")
	dest := cmd.StringArg("dest")
	if source == "" || dest == "" {
		return fmt.Errorf("%w: source and dest are required", shared.ErrMissingArgument)
	}

	data, err := r.client.Download(ctx, dropbox.NormalizePath(source))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if err := os.WriteFile(dest, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return r.writePlain("✓ Downloaded %s (%d bytes)\n", dest, len(data))
}

// FilesRemove deletes a remote file or folder.
func (r *Runner) FilesRemove(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path is required", shared.ErrMissingArgument)
	}

	if err := r.client.Delete(ctx, dropbox.NormalizePath(path)); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return r.writePlain("✓ Deleted %s\n", path)
}
