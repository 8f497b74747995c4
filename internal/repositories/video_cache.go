package repositories

import (
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/shared"
)

// VideoCacheAdapter implements tasks.VideoCacher using VideoRepository.
//
// A video already cached under the same StreamTube ID is refreshed in place.
type VideoCacheAdapter struct {
	repo *VideoRepository
}

// NewVideoCacheAdapter creates a new VideoCacheAdapter with the given repository
func NewVideoCacheAdapter(repo *VideoRepository) *VideoCacheAdapter {
	return &VideoCacheAdapter{repo: repo}
}

// CacheVideo stores v, or refreshes the cached copy's metadata.
func (a *VideoCacheAdapter) CacheVideo(v models.Video) error {
	existing, err := a.repo.GetByRemoteID(v.ID)
	switch {
	case err == nil:
		existing.Refresh(v)
		if err := a.repo.Update(existing); err != nil {
			return fmt.Errorf("failed to refresh cached video: %w", err)
		}
		return nil
	case !errors.Is(err, shared.ErrVideoNotFound):
		return fmt.Errorf("failed to look up cached video: %w", err)
	}

	if err := a.repo.Create(models.NewPersistedVideo(0, v)); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to cache video: %w", err)
	}

	return nil
}
