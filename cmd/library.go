package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/stx/internal/models"
	"github.com/urfave/cli/v3"
)

// LibraryHistory shows the watch history.
func (r *Runner) LibraryHistory(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service()
	if err != nil {
		return err
	}

	videos, err := svc.History(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(videos, cmd.Bool("pretty"))
	}
	return r.writeVideos("Watch history", videos)
}

// LibraryClearHistory clears the watch history.
func (r *Runner) LibraryClearHistory(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service()
	if err != nil {
		return err
	}

	if err := svc.ClearHistory(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Watch history cleared\n")
}

// LibraryWatchLater shows the watch later list.
func (r *Runner) LibraryWatchLater(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service()
	if err != nil {
		return err
	}

	videos, err := svc.WatchLater(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(videos, cmd.Bool("pretty"))
	}
	return r.writeVideos("Watch later", videos)
}

// LibrarySave toggles a video in watch later.
func (r *Runner) LibrarySave(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	svc, err := r.service()
	if err != nil {
		return err
	}

	state, err := svc.ToggleWatchLater(ctx, id)
	if err != nil {
		return err
	}

	if state.Saved {
		return r.writePlain("✓ Saved to watch later\n")
	}
	return r.writePlain("✓ Removed from watch later\n")
}

// NotificationsList lists notifications, newest first.
func (r *Runner) NotificationsList(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service()
	if err != nil {
		return err
	}

	all, err := svc.ListNotifications(ctx)
	if err != nil {
		return err
	}

	notifications := all
	if cmd.Bool("unread") {
		notifications = make([]models.Notification, 0, len(all))
		for _, n := range all {
			if !n.Read {
				notifications = append(notifications, n)
			}
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(notifications, cmd.Bool("pretty"))
	}

	unread := 0
	for _, n := range all {
		if !n.Read {
			unread++
		}
	}

	r.writePlainHeader(fmt.Sprintf("Notifications (%d unread)", unread))
	for _, n := range notifications {
		dot := " "
		if !n.Read {
			dot = "•"
		}
		r.writePlain("%s [%s] %s  %s\n", dot, n.Type, n.Message, n.ID)
	}
	return nil
}

// NotificationsRead marks one notification read, or all of them.
func (r *Runner) NotificationsRead(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service()
	if err != nil {
		return err
	}

	if cmd.Bool("all") {
		if err := svc.MarkAllNotificationsRead(ctx); err != nil {
			return err
		}
		return r.writePlain("✓ All notifications marked read\n")
	}

	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := svc.MarkNotificationRead(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Notification marked read\n")
}
