// package formatter renders video exports as CSV, Markdown, plain text or JSON.
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/shared"
)

// Format names accepted by [Write].
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "text"
	FormatJSON     = "json"
)

// Extension returns the file extension used for format.
func Extension(format string) string {
	switch format {
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	case FormatText:
		return ".txt"
	default:
		return ".json"
	}
}

// ExportToCSV converts a VideoExport to CSV with columns: ID, Title, Channel, Duration, Views, Likes, Visibility, URL
func ExportToCSV(export *models.VideoExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Channel", "Duration", "Views", "Likes", "Visibility", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, video := range export.Videos {
		record := []string{
			video.ID,
			video.Title,
			video.Owner.Username,
			strconv.Itoa(video.Duration),
			strconv.Itoa(video.Views),
			strconv.Itoa(video.Likes),
			shared.VisibilityString(video.IsPublished),
			video.VideoURL,
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

// ExportToMarkdown converts a VideoExport to Markdown with an optional thumbnail image
func ExportToMarkdown(export *models.VideoExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Title)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Thumbnail](%s)\n\n", imageFilename)
	}

	fmt.Fprintf(&buf, "**Videos**: %d\n", len(export.Videos))
	if !export.ExportedAt.IsZero() {
		fmt.Fprintf(&buf, "**Exported**: %s\n", export.ExportedAt.UTC().Format(time.RFC3339))
	}
	buf.WriteString("\n## Videos\n\n")

	for i, video := range export.Videos {
		channel := ""
		if video.Owner.Username != "" {
			channel = fmt.Sprintf(" by %s", video.Owner.Username)
		}
		fmt.Fprintf(&buf, "%d. %s%s [%s] (%d views)\n", i+1, video.Title, channel, shared.FormatDuration(video.Duration), video.Views)
		if video.Description != "" {
			fmt.Fprintf(&buf, "   > %s\n", video.Description)
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a VideoExport to plain text
func ExportToText(export *models.VideoExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Export: %s\n", export.Title)
	fmt.Fprintf(&buf, "Videos: %d\n\n", len(export.Videos))

	for i, video := range export.Videos {
		fmt.Fprintf(&buf, "%d. %s - %s [%s]\n", i+1, video.Owner.Username, video.Title, shared.FormatDuration(video.Duration))
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders the export as indented JSON.
func ExportToJSON(export *models.VideoExport) ([]byte, error) {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Render dispatches to the exporter for format.
func Render(export *models.VideoExport, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown:
		return ExportToMarkdown(export, "")
	case FormatText:
		return ExportToText(export)
	case FormatJSON, "":
		return ExportToJSON(export)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidInput, format)
	}
}

// Write renders export in format and writes it to path, creating parent directories.
func Write(export *models.VideoExport, format, path string) error {
	data, err := Render(export, format)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Thumbnail string
}

// WriteMarkdownExport exports videos to a dedicated directory with a README.md.
//
// imageURL is optional. When set, the image is saved as thumbnail.jpg and linked from the README.
// A failed download is reported in the result but does not fail the export.
func WriteMarkdownExport(export *models.VideoExport, outputDir, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("%w: output directory", shared.ErrMissingArgument)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir}

	var thumbnail string
	if imageURL != "" {
		if data, err := DownloadImage(imageURL); err == nil {
			path := filepath.Join(outputDir, "thumbnail.jpg")
			if err := os.WriteFile(path, data, 0644); err == nil {
				thumbnail = "thumbnail.jpg"
				result.Thumbnail = path
				result.Files = append(result.Files, path)
			}
		}
	}

	mdData, err := ExportToMarkdown(export, thumbnail)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)

	return result, nil
}
