package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/shared"
)

var _ list.Item = videoItem{}

// videoItem wraps [models.Video] to implement [list.Item].
type videoItem struct {
	video models.Video
}

func (i videoItem) FilterValue() string { return i.video.Title }
func (i videoItem) Title() string {
	title := i.video.Title
	if i.video.IsLiked {
		title += " ♥"
	}
	if i.video.InWatchLater {
		title += " ⏱"
	}
	return title
}
func (i videoItem) Description() string {
	return fmt.Sprintf("%s • %s • %d views • %d likes",
		i.video.Owner.Username, shared.FormatDuration(i.video.Duration), i.video.Views, i.video.Likes)
}

func videoItems(videos []models.Video) []list.Item {
	items := make([]list.Item, len(videos))
	for i, v := range videos {
		items[i] = videoItem{video: v}
	}
	return items
}
