package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/shared"
)

const videoColumns = `id, sequence, remote_id, title, description, channel_id, channel_name, duration, views, likes,
	thumbnail_url, video_url, published, created_at, updated_at, deleted_at`

// VideoRepository implements models.Repository[*models.PersistedVideo] for the local video cache.
//
// Rows are keyed by a local UUID and deduplicated on the StreamTube ID (remote_id).
type VideoRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.PersistedVideo] = (*VideoRepository)(nil)

// NewVideoRepository creates a new VideoRepository with the given database connection
func NewVideoRepository(db *sql.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Create inserts a new [models.PersistedVideo] into the database with generated ID and sequence
func (r *VideoRepository) Create(video *models.PersistedVideo) error {
	sequence, err := NextSequence(r.db, "videos")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	video.SetID(shared.GenerateID())
	video.SetSequence(sequence)

	if err := video.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO videos (id, sequence, remote_id, title, description, channel_id, channel_name, duration, views, likes,
			thumbnail_url, video_url, published, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		video.ID(),
		video.Sequence(),
		video.RemoteID(),
		video.Title(),
		video.Description(),
		video.ChannelID(),
		video.ChannelName(),
		video.Duration(),
		video.Views(),
		video.Likes(),
		video.ThumbnailURL(),
		video.VideoURL(),
		video.Published(),
		video.CreatedAt(),
		video.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}

	return nil
}

// Get retrieves a video by local ID, excluding soft-deleted rows
func (r *VideoRepository) Get(id string) (*models.PersistedVideo, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = ? AND deleted_at IS NULL`
	return scanVideo(r.db.QueryRow(query, id))
}

// GetByRemoteID retrieves a video by its StreamTube ID
func (r *VideoRepository) GetByRemoteID(remoteID string) (*models.PersistedVideo, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE remote_id = ? AND deleted_at IS NULL`
	return scanVideo(r.db.QueryRow(query, remoteID))
}

// Update writes the mutable metadata of an existing video
func (r *VideoRepository) Update(video *models.PersistedVideo) error {
	if err := video.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	now := time.Now()
	video.SetUpdatedAt(now)

	query := `
		UPDATE videos
		SET title = ?, description = ?, channel_name = ?, duration = ?, views = ?, likes = ?,
			thumbnail_url = ?, video_url = ?, published = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		video.Title(),
		video.Description(),
		video.ChannelName(),
		video.Duration(),
		video.Views(),
		video.Likes(),
		video.ThumbnailURL(),
		video.VideoURL(),
		video.Published(),
		now,
		video.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update video: %w", err)
	}

	return expectOneRow(result, video.ID())
}

// Delete soft-deletes a video by local ID
func (r *VideoRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE videos SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}

	return expectOneRow(result, id)
}

// List retrieves cached videos matching criteria, ordered by sequence.
//
// Supported criteria: "channel_id" (string), "title" (substring match), "limit" (int).
func (r *VideoRepository) List(criteria map[string]any) ([]*models.PersistedVideo, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE deleted_at IS NULL`
	args := []any{}

	if channelID, ok := criteria["channel_id"].(string); ok && channelID != "" {
		query += " AND channel_id = ?"
		args = append(args, channelID)
	}

	if title, ok := criteria["title"].(string); ok && title != "" {
		query += " AND title LIKE ?"
		args = append(args, "%"+title+"%")
	}

	query += " ORDER BY sequence ASC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	var videos []*models.PersistedVideo
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return videos, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVideo(row scanner) (*models.PersistedVideo, error) {
	var (
		id, remoteID, title, description string
		channelID, channelName           string
		thumbnail, videoURL              string
		sequence, duration, views, likes int
		published                        bool
		createdAt, updatedAt             time.Time
		deletedAt                        sql.NullTime
	)

	err := row.Scan(&id, &sequence, &remoteID, &title, &description, &channelID, &channelName, &duration, &views, &likes,
		&thumbnail, &videoURL, &published, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrVideoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan video: %w", err)
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}

	return models.RestorePersistedVideo(id, sequence, remoteID, title, description, channelID, channelName,
		duration, views, likes, thumbnail, videoURL, published, createdAt, updatedAt, deleted), nil
}

func expectOneRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s not found or already deleted", shared.ErrVideoNotFound, id)
	}
	return nil
}
