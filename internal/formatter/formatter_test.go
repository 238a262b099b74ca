package formatter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tapedeck/tapedeck/internal/models"
	"github.com/tapedeck/tapedeck/internal/shared"
)

func samplePlaylist() models.SavedPlaylist {
	created := time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)
	return models.SavedPlaylist{
		ID:           "pl-1",
		Name:         "Road Trip",
		Created:      created,
		LastModified: created.Add(24 * time.Hour),
		SyncStatus:   models.SyncSynced,
		Items: []models.PlaylistItem{
			{File: models.Entry{Name: "a.mp3", PathDisplay: "/music/a.mp3", Size: 4096}, DisplayName: "Opening"},
			{File: models.Entry{Name: "b.flac", PathDisplay: "/music/b.flac", Size: 8192}, DisplayName: "Closer"},
		},
	}
}

func TestExportToCSV(t *testing.T) {
	data, err := ExportToCSV(samplePlaylist())
	if err != nil {
		t.Fatalf("expected successful export, got %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if got := strings.Join(records[0], ","); got != "Track,Title,Path,Size" {
		t.Errorf("unexpected header: %q", got)
	}
	want := []string{"2", "Closer", "/music/b.flac", "8192"}
	for i, field := range want {
		if records[2][i] != field {
			t.Errorf("row 2 field %d = %q, want %q", i, records[2][i], field)
		}
	}
}

func TestExportToMarkdown(t *testing.T) {
	data, err := ExportToMarkdown(samplePlaylist())
	if err != nil {
		t.Fatalf("expected successful export, got %v", err)
	}
	out := string(data)

	for _, want := range []string{
		"# Road Trip",
		"**Tracks**: 2",
		"**Created**: 2025-04-02",
		"**Updated**: 2025-04-03",
		"**Sync**: synced",
		"1. Opening (`/music/a.mp3`)",
		"2. Closer (`/music/b.flac`)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output missing %q:\n%s", want, out)
		}
	}
}

func TestExportToMarkdownZeroTimes(t *testing.T) {
	pl := samplePlaylist()
	pl.Created = time.Time{}
	pl.LastModified = time.Time{}

	data, err := ExportToMarkdown(pl)
	if err != nil {
		t.Fatalf("expected successful export, got %v", err)
	}
	out := string(data)
	if strings.Contains(out, "**Created**") || strings.Contains(out, "**Updated**") {
		t.Errorf("zero timestamps should be omitted:\n%s", out)
	}
}

func TestExportToText(t *testing.T) {
	data, err := ExportToText(samplePlaylist())
	if err != nil {
		t.Fatalf("expected successful export, got %v", err)
	}
	out := string(data)
	for _, want := range []string{"Playlist: Road Trip", "Tracks: 2", "1. Opening", "2. Closer"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestExportToJSON(t *testing.T) {
	data, err := ExportToJSON(samplePlaylist())
	if err != nil {
		t.Fatalf("expected successful export, got %v", err)
	}
	var decoded models.SavedPlaylist
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Name != "Road Trip" || len(decoded.Items) != 2 {
		t.Errorf("unexpected decoded playlist: %+v", decoded)
	}
}

func TestExport(t *testing.T) {
	pl := samplePlaylist()

	t.Run("dispatches on format name", func(t *testing.T) {
		for _, format := range []string{"json", "", "csv", "markdown", "md", "text", "txt"} {
			if _, err := Export(pl, format); err != nil {
				t.Errorf("Export(%q) failed: %v", format, err)
			}
		}
	})

	t.Run("rejects unknown formats", func(t *testing.T) {
		if _, err := Export(pl, "yaml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
