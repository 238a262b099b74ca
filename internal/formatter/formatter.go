// package formatter provides functions to export playlist data to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/tapedeck/tapedeck/internal/models"
	"github.com/tapedeck/tapedeck/internal/shared"
)

// ExportToCSV converts a SavedPlaylist to CSV format with columns: Track, Title, Path, Size
func ExportToCSV(pl models.SavedPlaylist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Track", "Title", "Path", "Size"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, item := range pl.Items {
		record := []string{
			strconv.Itoa(i + 1),
			item.DisplayName,
			item.File.PathDisplay,
			strconv.FormatUint(item.File.Size, 10),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a SavedPlaylist to Markdown format
func ExportToMarkdown(pl models.SavedPlaylist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", pl.Name))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", len(pl.Items)))
	if !pl.Created.IsZero() {
		buf.WriteString(fmt.Sprintf("**Created**: %s\n", pl.Created.Format(time.DateOnly)))
	}
	if !pl.LastModified.IsZero() {
		buf.WriteString(fmt.Sprintf("**Updated**: %s\n", pl.LastModified.Format(time.DateOnly)))
	}
	buf.WriteString(fmt.Sprintf("**Sync**: %s\n\n", pl.SyncStatus))

	buf.WriteString("## Tracks\n\n")
	for i, item := range pl.Items {
		buf.WriteString(fmt.Sprintf("%d. %s (`%s`)\n", i+1, item.DisplayName, item.File.PathDisplay))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a SavedPlaylist to plain text format
func ExportToText(pl models.SavedPlaylist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", pl.Name))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(pl.Items)))

	for i, item := range pl.Items {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, item.DisplayName))
	}

	return buf.Bytes(), nil
}

// ExportToJSON generates the pretty-printed JSON representation of a playlist
func ExportToJSON(pl models.SavedPlaylist) ([]byte, error) {
	return shared.MarshalJSON(pl, true)
}

// Export dispatches on format name: json, csv, markdown (md), or text (txt).
func Export(pl models.SavedPlaylist, format string) ([]byte, error) {
	switch format {
	case "json", "":
		return ExportToJSON(pl)
	case "csv":
		return ExportToCSV(pl)
	case "markdown", "md":
		return ExportToMarkdown(pl)
	case "text", "txt":
		return ExportToText(pl)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}
