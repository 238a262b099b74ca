// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Dropbox authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authenticate with Dropbox using OAuth2 + PKCE",
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show current authentication state",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Force an access token refresh",
				Action: r.AuthRefresh,
			},
			{
				Name:   "logout",
				Usage:  "Discard stored tokens",
				Action: r.AuthLogout,
			},
		},
	}
}

// filesCommand handles remote library operations
func filesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "files",
		Aliases: []string{"fs"},
		Usage:   "Browse and manage remote files",
		Commands: []*cli.Command{
			{
				Name:  "ls",
				Usage: "List a remote folder",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Include non-audio files",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.FilesList,
			},
			{
				Name:  "scan",
				Usage: "Recursively collect every audio file under a folder",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.FilesScan,
			},
			{
				Name:  "link",
				Usage: "Print a temporary streaming link for a file",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Action: r.FilesLink,
			},
			{
				Name:  "mkdir",
				Usage: "Create a remote folder",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Action: r.FilesMkdir,
			},
			{
				Name:  "upload",
				Usage: "Upload a local file",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "source"},
					&cli.StringArg{Name: "dest"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "overwrite",
						Usage: "Replace the destination if it exists",
					},
				},
				Action: r.FilesUpload,
			},
			{
				Name:  "download",
				Usage: "Download a remote file",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "source"},
					&cli.StringArg{Name: "dest"},
				},
				Action: r.FilesDownload,
			},
			{
				Name:  "rm",
				Usage: "Delete a remote file or folder",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Action: r.FilesRemove,
			},
		},
	}
}

// playlistCommand handles local playlist operations
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Manage saved playlists",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List saved playlists",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.PlaylistList,
			},
			{
				Name:  "show",
				Usage: "Show one playlist with its items",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.PlaylistShow,
			},
			{
				Name:  "save",
				Usage: "Save a folder's audio files as a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "recursive",
						Usage: "Collect audio files from subfolders too",
					},
				},
				Action: r.PlaylistSave,
			},
			{
				Name:  "rename",
				Usage: "Rename a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "name"},
				},
				Action: r.PlaylistRename,
			},
			{
				Name:  "delete",
				Usage: "Delete a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.PlaylistDelete,
			},
			{
				Name:  "export",
				Usage: "Export a playlist to a file",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: json, csv, markdown, text",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: stdout)",
					},
				},
				Action: r.PlaylistExport,
			},
		},
	}
}

// syncCommand handles cloud playlist synchronization
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Synchronize playlists with the cloud",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Reconcile local playlists against cloud documents",
				Action: r.SyncRun,
			},
			{
				Name:  "force",
				Usage: "Unconditionally upload one playlist, overwriting the cloud copy",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.SyncForce,
			},
			{
				Name:  "settings",
				Usage: "Show or change sync settings",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "enabled",
						Usage: "Enable or disable sync (true/false)",
					},
					&cli.StringFlag{
						Name:  "auto",
						Usage: "Enable or disable automatic sync (true/false)",
					},
				},
				Action: r.SyncSettings,
			},
			{
				Name:  "status",
				Usage: "Show sync status",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SyncStatus,
			},
		},
	}
}

// setupCommand handles configuration bootstrap.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and local storage",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// tuiCommand returns the top-level TUI command for interactive library browsing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for browsing and playlists",
		Action:  r.TUI,
	}
}
