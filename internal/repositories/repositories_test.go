package repositories

import (
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func sampleVideo(id, title string) models.Video {
	return models.Video{
		ID:          id,
		Title:       title,
		Description: "a video",
		Duration:    95,
		Views:       10,
		Likes:       2,
		IsPublished: true,
		Owner:       models.Channel{ID: "ch1", Username: "gopher"},
	}
}

func TestNextSequence(t *testing.T) {
	t.Run("Increments", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		for want := 1; want <= 3; want++ {
			got, err := NextSequence(db, "videos")
			if err != nil {
				t.Fatalf("NextSequence() error = %v", err)
			}
			if got != want {
				t.Errorf("expected sequence %d, got %d", want, got)
			}
		}
	})

	t.Run("Concurrent Callers Get Distinct Values", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		const n = 20
		var (
			mu   sync.Mutex
			seen = make(map[int]bool)
			wg   sync.WaitGroup
		)
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				seq, err := NextSequence(db, "videos")
				if err != nil {
					t.Errorf("NextSequence() error = %v", err)
					return
				}
				mu.Lock()
				seen[seq] = true
				mu.Unlock()
			}()
		}
		wg.Wait()

		if len(seen) != n {
			t.Errorf("expected %d distinct sequences, got %d", n, len(seen))
		}
	})

	t.Run("Unknown Table", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if _, err := NextSequence(db, "users; DROP TABLE videos"); err == nil {
			t.Fatal("expected error for unknown table")
		}
	})
}

func TestVideoRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewVideoRepository(db)
		video := models.NewPersistedVideo(0, sampleVideo("v1", "Intro to Go"))

		if err := repo.Create(video); err != nil {
			t.Fatalf("failed to create video: %v", err)
		}

		if video.ID() == "" {
			t.Error("video ID should be set after creation")
		}
		if video.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", video.Sequence())
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewVideoRepository(db)
		video := models.NewPersistedVideo(0, sampleVideo("v1", "Intro to Go"))
		if err := repo.Create(video); err != nil {
			t.Fatalf("failed to create video: %v", err)
		}

		retrieved, err := repo.Get(video.ID())
		if err != nil {
			t.Fatalf("failed to get video: %v", err)
		}

		if retrieved.RemoteID() != "v1" {
			t.Errorf("expected remote ID v1, got %s", retrieved.RemoteID())
		}
		if retrieved.ChannelName() != "gopher" {
			t.Errorf("expected channel gopher, got %s", retrieved.ChannelName())
		}
		if !retrieved.Published() {
			t.Error("expected published video")
		}
		if retrieved.Duration() != 95 {
			t.Errorf("expected duration 95, got %d", retrieved.Duration())
		}
	})

	t.Run("GetByRemoteID", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewVideoRepository(db)
		repo.Create(models.NewPersistedVideo(0, sampleVideo("v1", "One")))
		repo.Create(models.NewPersistedVideo(0, sampleVideo("v2", "Two")))

		video, err := repo.GetByRemoteID("v2")
		if err != nil {
			t.Fatalf("failed to get video: %v", err)
		}
		if video.Title() != "Two" {
			t.Errorf("expected Two, got %s", video.Title())
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewVideoRepository(db)
		video := models.NewPersistedVideo(0, sampleVideo("v1", "Old"))
		repo.Create(video)

		newer := sampleVideo("v1", "New")
		newer.Views = 500
		video.Refresh(newer)

		if err := repo.Update(video); err != nil {
			t.Fatalf("failed to update video: %v", err)
		}

		retrieved, _ := repo.Get(video.ID())
		if retrieved.Title() != "New" || retrieved.Views() != 500 {
			t.Errorf("expected refreshed metadata, got %s / %d", retrieved.Title(), retrieved.Views())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewVideoRepository(db)
		video := models.NewPersistedVideo(0, sampleVideo("v1", "Gone"))
		repo.Create(video)

		if err := repo.Delete(video.ID()); err != nil {
			t.Fatalf("failed to delete video: %v", err)
		}

		if _, err := repo.Get(video.ID()); !errors.Is(err, shared.ErrVideoNotFound) {
			t.Errorf("expected ErrVideoNotFound after soft delete, got %v", err)
		}
	})

	t.Run("Through Repository Interface", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		var repo models.Repository[*models.PersistedVideo] = NewVideoRepository(db)
		video := models.NewPersistedVideo(0, sampleVideo("v1", "Intro to Go"))
		if err := repo.Create(video); err != nil {
			t.Fatalf("failed to create video: %v", err)
		}

		got, err := repo.Get(video.ID())
		if err != nil {
			t.Fatalf("failed to get video: %v", err)
		}
		if got.RemoteID() != "v1" {
			t.Errorf("expected remote ID v1, got %s", got.RemoteID())
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewVideoRepository(db)
		repo.Create(models.NewPersistedVideo(0, sampleVideo("v1", "Go Concurrency")))
		repo.Create(models.NewPersistedVideo(0, sampleVideo("v2", "Rust Basics")))
		other := sampleVideo("v3", "Go Modules")
		other.Owner = models.Channel{ID: "ch2", Username: "other"}
		repo.Create(models.NewPersistedVideo(0, other))

		tests := []struct {
			name     string
			criteria map[string]any
			want     []string
		}{
			{"All", map[string]any{}, []string{"v1", "v2", "v3"}},
			{"Channel", map[string]any{"channel_id": "ch2"}, []string{"v3"}},
			{"Title", map[string]any{"title": "Go"}, []string{"v1", "v3"}},
			{"Limit", map[string]any{"limit": 2}, []string{"v1", "v2"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				videos, err := repo.List(tt.criteria)
				if err != nil {
					t.Fatalf("List() error = %v", err)
				}
				if len(videos) != len(tt.want) {
					t.Fatalf("expected %d videos, got %d", len(tt.want), len(videos))
				}
				for i, v := range videos {
					if v.RemoteID() != tt.want[i] {
						t.Errorf("position %d: expected %s, got %s", i, tt.want[i], v.RemoteID())
					}
				}
			})
		}
	})
}

func TestVideoCacheAdapter(t *testing.T) {
	t.Run("Caches New Video", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewVideoRepository(db)
		adapter := NewVideoCacheAdapter(repo)

		if err := adapter.CacheVideo(sampleVideo("v1", "Cached")); err != nil {
			t.Fatalf("CacheVideo() error = %v", err)
		}

		if _, err := repo.GetByRemoteID("v1"); err != nil {
			t.Errorf("expected cached video: %v", err)
		}
	})

	t.Run("Refreshes Existing Video", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewVideoRepository(db)
		adapter := NewVideoCacheAdapter(repo)

		adapter.CacheVideo(sampleVideo("v1", "First"))
		if err := adapter.CacheVideo(sampleVideo("v1", "Second")); err != nil {
			t.Fatalf("CacheVideo() error = %v", err)
		}

		videos, _ := repo.List(nil)
		if len(videos) != 1 {
			t.Fatalf("expected 1 cached video, got %d", len(videos))
		}
		if videos[0].Title() != "Second" {
			t.Errorf("expected refreshed title, got %s", videos[0].Title())
		}
	})
}
