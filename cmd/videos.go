package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/services"
	"github.com/desertthunder/stx/internal/shared"
	"github.com/urfave/cli/v3"
)

func requireArg(cmd *cli.Command, name string) (string, error) {
	value := cmd.StringArg(name)
	if value == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return value, nil
}

func (r *Runner) writeVideoLine(i int, v models.Video) {
	r.writePlain("%2d. %s  [%s]  %s\n", i, v.Title, shared.FormatDuration(v.Duration), v.ID)
	r.writePlain("    %s · %d views · %d likes\n", v.Owner.Username, v.Views, v.Likes)
}

func (r *Runner) writeVideos(title string, videos []models.Video) error {
	r.writePlainHeader(title)
	if len(videos) == 0 {
		return r.writePlain("(none)\n")
	}
	for i, v := range videos {
		r.writeVideoLine(i+1, v)
	}
	return nil
}

// VideosList lists or searches published videos.
func (r *Runner) VideosList(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service()
	if err != nil {
		return err
	}

	page, err := svc.ListVideos(ctx, models.ListQuery{
		Query:  cmd.String("query"),
		Page:   cmd.Int("page"),
		Limit:  cmd.Int("limit"),
		SortBy: cmd.String("sort"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(page, cmd.Bool("pretty"))
	}

	if err := r.writeVideos(fmt.Sprintf("Videos (page %d of %d, %d total)", page.Page, page.TotalPages, page.Total), page.Items); err != nil {
		return err
	}
	if page.HasNext() {
		r.writePlainln("More results: --page %d", page.Page+1)
	}
	return nil
}

// VideosGet shows one video. Fetching a video records it in the watch history.
func (r *Runner) VideosGet(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	svc, err := r.service()
	if err != nil {
		return err
	}

	video, err := svc.GetVideo(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(video, cmd.Bool("pretty"))
	}

	r.writePlainHeader(video.Title)
	r.writePlain("ID:          %s\n", video.ID)
	r.writePlain("Channel:     %s\n", video.Owner.Username)
	r.writePlain("Duration:    %s\n", shared.FormatDuration(video.Duration))
	r.writePlain("Views:       %d\n", video.Views)
	r.writePlain("Likes:       %d %s\n", video.Likes, likedMark(video.IsLiked))
	r.writePlain("Comments:    %d\n", video.Comments)
	r.writePlain("Visibility:  %s\n", shared.VisibilityString(video.IsPublished))
	r.writePlain("File:        %s\n", video.VideoURL)
	if video.Description != "" {
		r.writePlainln("%s", video.Description)
	}
	return nil
}

func likedMark(liked bool) string {
	if liked {
		return "(liked)"
	}
	return ""
}

// VideosLike toggles a like.
func (r *Runner) VideosLike(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	svc, err := r.service()
	if err != nil {
		return err
	}

	state, err := svc.ToggleLike(ctx, id)
	if err != nil {
		return err
	}

	if state.Liked {
		return r.writePlain("✓ Liked (%d likes)\n", state.Likes)
	}
	return r.writePlain("✓ Like removed (%d likes)\n", state.Likes)
}

// VideosUpload uploads a local video file.
func (r *Runner) VideosUpload(ctx context.Context, cmd *cli.Command) error {
	path, err := requireArg(cmd, "file")
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	defer f.Close()

	svc, err := r.service()
	if err != nil {
		return err
	}

	r.logger.Info("uploading video", "file", path, "title", cmd.String("title"))

	video, err := svc.UploadVideo(ctx, services.Upload{
		VideoInput: models.VideoInput{
			Title:       cmd.String("title"),
			Description: cmd.String("description"),
			Duration:    cmd.Int("duration"),
		},
		FileName: filepath.Base(path),
		File:     f,
	})
	if err != nil {
		return err
	}

	return r.writePlain("✓ Uploaded %q (%s)\n", video.Title, video.ID)
}

// VideosDelete deletes one of the user's videos.
func (r *Runner) VideosDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	svc, err := r.service()
	if err != nil {
		return err
	}

	if err := svc.DeleteVideo(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted %s\n", id)
}

// VideosComments lists comments on a video.
func (r *Runner) VideosComments(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	svc, err := r.service()
	if err != nil {
		return err
	}

	page, err := svc.ListComments(ctx, id, cmd.Int("page"), cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(page, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Comments (%d)", page.Total))
	for _, c := range page.Items {
		r.writePlain("%s  %s\n  %s\n", c.Owner.Username, c.CreatedAt.Format("2006-01-02 15:04"), c.Content)
	}
	if page.HasNext() {
		r.writePlainln("More comments: --page %d", page.Page+1)
	}
	return nil
}

// VideosComment posts a comment.
func (r *Runner) VideosComment(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	content, err := requireArg(cmd, "content")
	if err != nil {
		return err
	}

	svc, err := r.service()
	if err != nil {
		return err
	}

	comment, err := svc.AddComment(ctx, id, models.CommentInput{Content: content})
	if err != nil {
		return err
	}
	return r.writePlain("✓ Comment posted (%s)\n", comment.ID)
}

// ChannelShow shows a channel.
func (r *Runner) ChannelShow(ctx context.Context, cmd *cli.Command) error {
	username, err := requireArg(cmd, "username")
	if err != nil {
		return err
	}

	svc, err := r.service()
	if err != nil {
		return err
	}

	channel, err := svc.GetChannel(ctx, username)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(channel, cmd.Bool("pretty"))
	}

	r.writePlainHeader(channel.FullName)
	r.writePlain("@%s\n", channel.Username)
	r.writePlain("Subscribers: %d\n", channel.Subscribers)
	r.writePlain("Videos:      %d\n", channel.Videos)
	return r.writePlain("Subscribed:  %s\n", mark(channel.IsSubscribed))
}

// ChannelSubscribe toggles a subscription. The channel is looked up by username first.
func (r *Runner) ChannelSubscribe(ctx context.Context, cmd *cli.Command) error {
	username, err := requireArg(cmd, "username")
	if err != nil {
		return err
	}

	svc, err := r.service()
	if err != nil {
		return err
	}

	channel, err := svc.GetChannel(ctx, username)
	if err != nil {
		return err
	}

	state, err := svc.ToggleSubscription(ctx, channel.ID)
	if err != nil {
		return err
	}

	if state.Subscribed {
		return r.writePlain("✓ Subscribed to %s (%d subscribers)\n", channel.Username, state.Subscribers)
	}
	return r.writePlain("✓ Unsubscribed from %s (%d subscribers)\n", channel.Username, state.Subscribers)
}

// ChannelSubscriptions lists the user's subscriptions.
func (r *Runner) ChannelSubscriptions(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service()
	if err != nil {
		return err
	}

	channels, err := svc.ListSubscriptions(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(channels, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Subscriptions (%d)", len(channels)))
	for _, c := range channels {
		r.writePlain("@%-20s %d subscribers\n", c.Username, c.Subscribers)
	}
	return nil
}
