package formatter

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/shared"
	th "github.com/desertthunder/stx/internal/testing"
)

func sampleExport() *models.VideoExport {
	return &models.VideoExport{
		Title:      "Watch Later",
		ExportedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Videos: []models.Video{
			{
				ID:          "v1",
				Title:       "Intro to Go",
				Description: "basics",
				Duration:    185,
				Views:       42,
				Likes:       3,
				IsPublished: true,
				VideoURL:    "/media/v1/intro.mp4",
				Owner:       models.Channel{Username: "alice"},
			},
			{
				ID:       "v2",
				Title:    "Channels, in depth",
				Duration: 3725,
				Owner:    models.Channel{Username: "bob"},
			},
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleExport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "ID,Title,Channel,Duration,Views,Likes,Visibility,URL") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "v1,Intro to Go,alice,185,42,3,Public,/media/v1/intro.mp4") {
			t.Errorf("CSV missing first row, got: %s", output)
		}
		if !strings.Contains(output, `"Channels, in depth"`) {
			t.Errorf("CSV should quote titles with commas, got: %s", output)
		}
		if !strings.Contains(output, "Private") {
			t.Error("CSV missing visibility for unpublished video")
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleExport(), "thumbnail.jpg")
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Watch Later",
			"![Thumbnail](thumbnail.jpg)",
			"**Videos**: 2",
			"**Exported**: 2026-01-02T03:04:05Z",
			"1. Intro to Go by alice [3:05] (42 views)",
			"   > basics",
			"2. Channels, in depth by bob [1:02:05]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToMarkdown Without Image", func(t *testing.T) {
		data, _ := ExportToMarkdown(sampleExport(), "")
		if strings.Contains(string(data), "![Thumbnail]") {
			t.Error("Markdown should not reference a thumbnail")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleExport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Export: Watch Later") || !strings.Contains(output, "1. alice - Intro to Go [3:05]") {
			t.Errorf("unexpected text output:\n%s", output)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(sampleExport())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded models.VideoExport
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded.Videos) != 2 || decoded.Videos[1].Duration != 3725 {
			t.Errorf("unexpected decoded export %+v", decoded)
		}
	})

	t.Run("Render Unknown Format", func(t *testing.T) {
		if _, err := Render(sampleExport(), "yaml"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Empty Export", func(t *testing.T) {
		data, err := ExportToCSV(&models.VideoExport{Title: "Nothing"})
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}
		if lines := strings.Count(string(data), "\n"); lines != 1 {
			t.Errorf("expected only a header line, got %d lines", lines)
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("Write", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "export"+Extension(FormatCSV))
		if err := Write(sampleExport(), FormatCSV, path); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		th.AssertFileExists(t, path)
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte("fake-jpeg"))
		}))
		defer srv.Close()

		dir := filepath.Join(t.TempDir(), "watch-later")
		result, err := WriteMarkdownExport(sampleExport(), dir, srv.URL+"/thumb.jpg")
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}

		if len(result.Files) != 2 {
			t.Errorf("expected thumbnail and README, got %v", result.Files)
		}
		th.AssertFileExists(t, filepath.Join(dir, "thumbnail.jpg"))

		readme := th.MustReadFile(t, filepath.Join(dir, "README.md"))
		if !strings.Contains(readme, "![Thumbnail](thumbnail.jpg)") {
			t.Errorf("README should link the thumbnail, got:\n%s", readme)
		}
	})

	t.Run("WriteMarkdownExport Failed Download", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		result, err := WriteMarkdownExport(sampleExport(), t.TempDir(), srv.URL)
		if err != nil {
			t.Fatalf("export should survive a failed download: %v", err)
		}
		if result.Thumbnail != "" || len(result.Files) != 1 {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("DownloadImage Empty URL", func(t *testing.T) {
		if _, err := DownloadImage(""); err == nil {
			t.Error("expected error for empty URL")
		}
	})
}
