package main

import (
	"context"
	"time"

	"github.com/desertthunder/stx/internal/repositories"
	"github.com/desertthunder/stx/internal/shared"
	"github.com/urfave/cli/v3"
)

// CachedVideo is the JSON form of a cache row.
type CachedVideo struct {
	ID        string    `json:"id"`
	RemoteID  string    `json:"remoteId"`
	Title     string    `json:"title"`
	Channel   string    `json:"channel"`
	Duration  int       `json:"duration"`
	Views     int       `json:"views"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CacheVideo fetches a video and upserts its metadata into the local cache.
func (r *Runner) CacheVideo(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	svc, err := r.service()
	if err != nil {
		return err
	}
	repo, err := r.videoCache()
	if err != nil {
		return err
	}

	r.logger.Infof("caching video: %s", id)

	video, err := svc.GetVideo(ctx, id)
	if err != nil {
		return err
	}

	if err := repositories.NewVideoCacheAdapter(repo).CacheVideo(*video); err != nil {
		return err
	}

	cached, err := repo.GetByRemoteID(video.ID)
	if err != nil {
		return err
	}

	r.writePlain("✓ Video cached: %s\n", cached.Title())
	return r.writePlain("  Local ID: %s\n", cached.ID())
}

// CacheList lists cached videos.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.videoCache()
	if err != nil {
		return err
	}

	videos, err := repo.List(map[string]any{
		"channel_id": cmd.String("channel"),
		"title":      cmd.String("title"),
		"limit":      cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		rows := make([]CachedVideo, 0, len(videos))
		for _, v := range videos {
			rows = append(rows, CachedVideo{
				ID:        v.ID(),
				RemoteID:  v.RemoteID(),
				Title:     v.Title(),
				Channel:   v.ChannelName(),
				Duration:  v.Duration(),
				Views:     v.Views(),
				UpdatedAt: v.UpdatedAt(),
			})
		}
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Cached videos")
	if len(videos) == 0 {
		return r.writePlain("(none)\n")
	}
	for _, v := range videos {
		r.writePlain("%-36s  %-40s  %s  %s\n",
			v.RemoteID(), shared.Preview(v.Title(), 40), shared.FormatDuration(v.Duration()), v.ChannelName())
	}
	return nil
}
