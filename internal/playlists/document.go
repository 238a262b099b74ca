package playlists

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/tapedeck/tapedeck/internal/dropbox"
	"github.com/tapedeck/tapedeck/internal/models"
)

// DocumentPath derives the deterministic remote path for a playlist name.
func DocumentPath(name string) string {
	return dropbox.PlaylistFolder + "/" + Sanitize(name) + ".json"
}

// toDocument serializes a local playlist into the cloud wire format.
func toDocument(pl models.SavedPlaylist) models.PlaylistDocument {
	items := make([]models.DocumentItem, 0, len(pl.Items))
	for _, item := range pl.Items {
		items = append(items, models.DocumentItem{
			Path:        item.File.PathDisplay,
			DisplayName: item.DisplayName,
		})
	}
	return models.PlaylistDocument{
		ID:           pl.ID,
		Name:         pl.Name,
		Created:      pl.Created,
		LastModified: pl.LastModified,
		Items:        items,
	}
}

// parseDocument decodes a downloaded playlist document.
func parseDocument(data []byte) (models.PlaylistDocument, error) {
	var doc models.PlaylistDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("malformed playlist document: %w", err)
	}
	return doc, nil
}

// itemsFromDocument reconstructs playlist items from document references.
//
// The file entry is a partial reference: name and display path are recovered
// from the stored path; id and revision are filled in lazily before playback.
func itemsFromDocument(doc models.PlaylistDocument) []models.PlaylistItem {
	items := make([]models.PlaylistItem, 0, len(doc.Items))
	for _, ref := range doc.Items {
		name := path.Base(ref.Path)
		display := ref.DisplayName
		if display == "" {
			display = strings.TrimSuffix(name, path.Ext(name))
		}
		items = append(items, models.PlaylistItem{
			File:        models.Entry{Name: name, PathDisplay: ref.Path},
			DisplayName: display,
		})
	}
	return items
}
