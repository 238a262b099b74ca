package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tapedeck/tapedeck/internal/models"
	"github.com/tapedeck/tapedeck/internal/shared"
	"github.com/tapedeck/tapedeck/internal/transport"
	"github.com/tapedeck/tapedeck/internal/watch"
	"golang.org/x/sync/errgroup"
)

// PlaylistFolder is the well-known remote folder holding playlist documents.
const PlaylistFolder = "/playlists"

// Per-endpoint retry budgets handed to the limiter.
const (
	listRetries  = 3
	linkRetries  = 2
	writeRetries = 2
)

// maxScanParallel caps concurrent subfolder scans during a recursive
// collection, bounded by the transport's global gate and a hard cap of 20.
var maxScanParallel = min(transport.MaxInFlight, 20)

// Credentials supplies the current bearer token. Implemented by auth.Session;
// read at dispatch time so a mid-call refresh is picked up on retry.
type Credentials interface {
	AccessToken() string
}

// Client provides typed operations against the Dropbox files API.
type Client struct {
	apiBase     string
	contentBase string
	httpClient  *http.Client
	limiter     *transport.Limiter
	creds       Credentials
	logger      *log.Logger
	progress    *watch.Value[models.ScanProgress]
}

// ClientOpts contains configuration for creating a Client.
type ClientOpts struct {
	Dropbox     shared.DropboxConfig
	Limiter     *transport.Limiter
	Credentials Credentials
	HTTPClient  *http.Client
	Logger      *log.Logger
}

// NewClient creates a Client from the provided options.
func NewClient(opts ClientOpts) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Client{
		apiBase:     opts.Dropbox.APIURL,
		contentBase: opts.Dropbox.ContentURL,
		httpClient:  opts.HTTPClient,
		limiter:     opts.Limiter,
		creds:       opts.Credentials,
		logger:      opts.Logger,
		progress:    watch.NewValue(models.ScanProgress{}),
	}
}

// ScanProgress returns the live recursive-scan progress signal.
func (c *Client) ScanProgress() *watch.Value[models.ScanProgress] {
	return c.progress
}

// NormalizePath maps the display root to the provider's empty-string root
// convention and ensures a leading slash elsewhere.
func NormalizePath(p string) string {
	if p == "" || p == "/" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}

// rpc issues a JSON RPC-style call against the api host through the limiter.
func (c *Client) rpc(ctx context.Context, endpoint string, req, resp any, retries int) error {
	return c.limiter.Do(ctx, retries, func(ctx context.Context) error {
		var body io.Reader
		if req != nil {
			data, err := json.Marshal(req)
			if err != nil {
				return fmt.Errorf("failed to encode request: %w", err)
			}
			body = bytes.NewReader(data)
		} else {
			// The users endpoints require an explicit null body.
			body = strings.NewReader("null")
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+endpoint, body)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.creds.AccessToken())
		httpReq.Header.Set("Content-Type", "application/json")

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer httpResp.Body.Close()

		data, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
			return statusError(httpResp.StatusCode, data)
		}

		if resp != nil {
			if err := json.Unmarshal(data, resp); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	})
}

// content issues a content-host call (upload/download style: metadata in the
// Dropbox-API-Arg header, payload in the body) through the limiter.
func (c *Client) content(ctx context.Context, endpoint string, arg any, payload []byte, retries int) ([]byte, error) {
	var result []byte
	err := c.limiter.Do(ctx, retries, func(ctx context.Context) error {
		argData, err := json.Marshal(arg)
		if err != nil {
			return fmt.Errorf("failed to encode arg: %w", err)
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contentBase+endpoint, body)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.creds.AccessToken())
		httpReq.Header.Set("Dropbox-API-Arg", string(argData))
		httpReq.Header.Set("Content-Type", "application/octet-stream")

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer httpResp.Body.Close()

		data, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
			return statusError(httpResp.StatusCode, data)
		}

		result = data
		return nil
	})
	return result, err
}

// statusError builds a [transport.StatusError] with the provider's
// error_summary when the body carries one.
func statusError(code int, body []byte) *transport.StatusError {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.ErrorSummary != "" {
		return &transport.StatusError{Code: code, Summary: apiErr.ErrorSummary}
	}
	summary := strings.TrimSpace(string(body))
	if len(summary) > 200 {
		summary = summary[:200]
	}
	return &transport.StatusError{Code: code, Summary: summary}
}

// ListFolder lists path, following pagination cursors strictly in order until
// the provider reports no more entries.
//
// Each page is passed to emit (when non-nil) as it arrives and accumulated
// into the returned sequence. With mediaOnly set, folders are always retained
// for navigation and files only when their extension is in the audio
// allow-list. A page error after retries degrades to an empty page: results
// already emitted are preserved and no error is returned.
func (c *Client) ListFolder(ctx context.Context, path string, mediaOnly bool, emit func([]models.Entry)) []models.Entry {
	var collected []models.Entry

	var page listFolderResponse
	req := listFolderRequest{Path: NormalizePath(path), IncludeMediaInfo: true}
	if err := c.rpc(ctx, "/2/files/list_folder", req, &page, listRetries); err != nil {
		c.logger.Warnf("list_folder %s failed: %v", path, err)
		return collected
	}

	for {
		entries := filterEntries(page.Entries, mediaOnly)
		if emit != nil && len(entries) > 0 {
			emit(entries)
		}
		collected = append(collected, entries...)

		if !page.HasMore {
			return collected
		}

		cursor := page.Cursor
		page = listFolderResponse{}
		if err := c.rpc(ctx, "/2/files/list_folder/continue", listFolderContinueRequest{Cursor: cursor}, &page, listRetries); err != nil {
			c.logger.Warnf("list_folder/continue %s failed: %v", path, err)
			return collected
		}
	}
}

func filterEntries(raw []entry, mediaOnly bool) []models.Entry {
	entries := make([]models.Entry, 0, len(raw))
	for _, e := range raw {
		if mediaOnly && e.Tag != "folder" && !IsAudioFile(e.Name) {
			continue
		}
		entries = append(entries, e.toModel())
	}
	return entries
}

// CollectAudioFiles walks the folder tree under root and returns every audio
// file found, publishing a live [models.ScanProgress] snapshot after each
// folder and a final idle snapshot on completion.
//
// Folders at each depth are scanned with bounded parallelism; a listing error
// in one subtree counts as zero files from that subtree and never aborts the
// scan. A visited-set guards against pathological cycles. No ordering is
// guaranteed across folders.
func (c *Client) CollectAudioFiles(ctx context.Context, root string) ([]models.Entry, error) {
	var (
		mu      sync.Mutex
		audio   []models.Entry
		visited = map[string]bool{}
	)

	frontier := []string{NormalizePath(root)}
	visited[frontier[0]] = true

	c.progress.Set(models.ScanProgress{CurrentPath: root, Scanning: true})

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			c.progress.Set(models.ScanProgress{AudioFilesFound: len(audio)})
			return audio, err
		}

		var next []string
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(maxScanParallel)

		for _, folder := range frontier {
			eg.Go(func() error {
				entries := c.ListFolder(egCtx, folder, true, nil)

				mu.Lock()
				for _, e := range entries {
					if e.IsFolder {
						if !visited[e.PathDisplay] {
							visited[e.PathDisplay] = true
							next = append(next, e.PathDisplay)
						}
					} else {
						audio = append(audio, e)
					}
				}
				found := len(audio)
				mu.Unlock()

				c.progress.Set(models.ScanProgress{CurrentPath: folder, Scanning: true, AudioFilesFound: found})
				return nil
			})
		}

		if err := eg.Wait(); err != nil {
			c.progress.Set(models.ScanProgress{AudioFilesFound: len(audio)})
			return audio, err
		}
		frontier = next
	}

	c.progress.Set(models.ScanProgress{AudioFilesFound: len(audio)})
	return audio, nil
}

// TemporaryLink returns a short-lived direct-download URL for streaming path.
//
// Returns the empty string on any failure; playback surfaces treat an empty
// URL as "could not load".
func (c *Client) TemporaryLink(ctx context.Context, path string) string {
	var resp temporaryLinkResponse
	if err := c.rpc(ctx, "/2/files/get_temporary_link", pathRequest{Path: path}, &resp, linkRetries); err != nil {
		c.logger.Warnf("get_temporary_link %s failed: %v", path, err)
		return ""
	}
	return resp.Link
}

// CreateFolder creates a folder at path. An "already exists" conflict is
// treated as success, making the create idempotent.
func (c *Client) CreateFolder(ctx context.Context, path string) error {
	var resp createFolderResponse
	err := c.rpc(ctx, "/2/files/create_folder_v2", pathRequest{Path: path}, &resp, writeRetries)
	if err == nil {
		return nil
	}
	var status *transport.StatusError
	if errors.As(err, &status) && status.Code == 409 && strings.Contains(status.Summary, "conflict") {
		return nil
	}
	return fmt.Errorf("%w: create_folder %s: %v", shared.ErrAPIRequest, path, err)
}

// Upload writes data to path. Overwrite semantics by default; additive mode
// when overwrite is false lets the provider autorename on conflict.
func (c *Client) Upload(ctx context.Context, path string, data []byte, overwrite bool) (models.Entry, error) {
	mode := "overwrite"
	if !overwrite {
		mode = "add"
	}
	arg := uploadArg{Path: path, Mode: mode, AutoRename: !overwrite, Mute: true}

	body, err := c.content(ctx, "/2/files/upload", arg, data, writeRetries)
	if err != nil {
		return models.Entry{}, fmt.Errorf("%w: upload %s: %v", shared.ErrAPIRequest, path, err)
	}

	var meta entry
	if err := json.Unmarshal(body, &meta); err != nil {
		return models.Entry{}, fmt.Errorf("failed to decode upload response: %w", err)
	}
	meta.Tag = "file"
	return meta.toModel(), nil
}

// Download returns the contents of the file at path.
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	data, err := c.content(ctx, "/2/files/download", pathRequest{Path: path}, nil, writeRetries)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %v", shared.ErrAPIRequest, path, err)
	}
	return data, nil
}

// Delete removes the file or folder at path.
func (c *Client) Delete(ctx context.Context, path string) error {
	var resp deleteResponse
	if err := c.rpc(ctx, "/2/files/delete_v2", pathRequest{Path: path}, &resp, writeRetries); err != nil {
		return fmt.Errorf("%w: delete %s: %v", shared.ErrAPIRequest, path, err)
	}
	return nil
}

// CurrentAccount calls the identity endpoint with the current token and
// returns the authenticated user's profile.
func (c *Client) CurrentAccount(ctx context.Context) (*models.Account, error) {
	var resp accountResponse
	if err := c.rpc(ctx, "/2/users/get_current_account", nil, &resp, writeRetries); err != nil {
		return nil, fmt.Errorf("%w: get_current_account: %v", shared.ErrAPIRequest, err)
	}
	return &models.Account{
		AccountID:   resp.AccountID,
		DisplayName: resp.Name.DisplayName,
		Email:       resp.Email,
	}, nil
}

// EnsurePlaylistFolder creates the well-known playlist folder if needed.
func (c *Client) EnsurePlaylistFolder(ctx context.Context) error {
	return c.CreateFolder(ctx, PlaylistFolder)
}
