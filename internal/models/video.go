package models

import (
	"errors"
	"time"
)

// PersistedVideo is a cached [Video] with local identity and lifecycle fields.
type PersistedVideo struct {
	id          string
	sequence    int
	remoteID    string
	title       string
	description string
	channelID   string
	channelName string
	duration    int
	views       int
	likes       int
	thumbnail   string
	videoURL    string
	published   bool
	createdAt   time.Time
	updatedAt   time.Time
	deletedAt   *time.Time
}

// NewPersistedVideo creates a PersistedVideo from an API video. The ID is assigned on create.
func NewPersistedVideo(sequence int, v Video) *PersistedVideo {
	now := time.Now()
	return &PersistedVideo{
		sequence:    sequence,
		remoteID:    v.ID,
		title:       v.Title,
		description: v.Description,
		channelID:   v.Owner.ID,
		channelName: v.Owner.Username,
		duration:    v.Duration,
		views:       v.Views,
		likes:       v.Likes,
		thumbnail:   v.ThumbnailURL,
		videoURL:    v.VideoURL,
		published:   v.IsPublished,
		createdAt:   now,
		updatedAt:   now,
	}
}

// RestorePersistedVideo rebuilds a PersistedVideo from stored columns.
func RestorePersistedVideo(
	id string, sequence int, remoteID, title, description, channelID, channelName string,
	duration, views, likes int, thumbnail, videoURL string, published bool,
	createdAt, updatedAt time.Time, deletedAt *time.Time,
) *PersistedVideo {
	return &PersistedVideo{
		id: id, sequence: sequence, remoteID: remoteID,
		title: title, description: description,
		channelID: channelID, channelName: channelName,
		duration: duration, views: views, likes: likes,
		thumbnail: thumbnail, videoURL: videoURL, published: published,
		createdAt: createdAt, updatedAt: updatedAt, deletedAt: deletedAt,
	}
}

func (v *PersistedVideo) ID() string            { return v.id }
func (v *PersistedVideo) Sequence() int         { return v.sequence }
func (v *PersistedVideo) RemoteID() string      { return v.remoteID }
func (v *PersistedVideo) Title() string         { return v.title }
func (v *PersistedVideo) Description() string   { return v.description }
func (v *PersistedVideo) ChannelID() string     { return v.channelID }
func (v *PersistedVideo) ChannelName() string   { return v.channelName }
func (v *PersistedVideo) Duration() int         { return v.duration }
func (v *PersistedVideo) Views() int            { return v.views }
func (v *PersistedVideo) Likes() int            { return v.likes }
func (v *PersistedVideo) ThumbnailURL() string  { return v.thumbnail }
func (v *PersistedVideo) VideoURL() string      { return v.videoURL }
func (v *PersistedVideo) Published() bool       { return v.published }
func (v *PersistedVideo) CreatedAt() time.Time  { return v.createdAt }
func (v *PersistedVideo) UpdatedAt() time.Time  { return v.updatedAt }
func (v *PersistedVideo) DeletedAt() *time.Time { return v.deletedAt }

func (v *PersistedVideo) SetID(id string)           { v.id = id }
func (v *PersistedVideo) SetSequence(sequence int)  { v.sequence = sequence }
func (v *PersistedVideo) SetUpdatedAt(t time.Time)  { v.updatedAt = t }
func (v *PersistedVideo) SetDeletedAt(t *time.Time) { v.deletedAt = t }

// Refresh copies mutable metadata from a newer API copy of the same video.
func (v *PersistedVideo) Refresh(from Video) {
	v.title = from.Title
	v.description = from.Description
	v.channelName = from.Owner.Username
	v.duration = from.Duration
	v.views = from.Views
	v.likes = from.Likes
	v.thumbnail = from.ThumbnailURL
	v.videoURL = from.VideoURL
	v.published = from.IsPublished
}

// Validate checks required fields.
func (v *PersistedVideo) Validate() error {
	if v.id == "" {
		return errors.New("video ID is required")
	}
	if v.remoteID == "" {
		return errors.New("remote ID is required")
	}
	if v.title == "" {
		return errors.New("title is required")
	}
	if v.duration < 0 {
		return errors.New("duration must not be negative")
	}
	return nil
}

// ToVideo converts back to the API shape.
func (v *PersistedVideo) ToVideo() Video {
	return Video{
		ID:           v.remoteID,
		Title:        v.title,
		Description:  v.description,
		ThumbnailURL: v.thumbnail,
		VideoURL:     v.videoURL,
		Duration:     v.duration,
		Views:        v.views,
		Likes:        v.likes,
		IsPublished:  v.published,
		Owner:        Channel{ID: v.channelID, Username: v.channelName},
		CreatedAt:    v.createdAt,
	}
}
