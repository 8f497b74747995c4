// package services defines interface Service for the StreamTube REST API
package services

import (
	"context"

	"github.com/desertthunder/stx/internal/client"
	"github.com/desertthunder/stx/internal/models"
)

// Service is the set of StreamTube operations used by the CLI, the TUI and the library tasks.
type Service interface {
	// Signup creates an account and stores the returned access token.
	Signup(ctx context.Context, input models.SignupInput) (*models.Session, error)
	// Login signs in and stores the returned access token.
	Login(ctx context.Context, input models.LoginInput) (*models.Session, error)
	// Logout ends the session. The local credential is cleared even when the server call fails.
	Logout(ctx context.Context) error
	// Refresh calls the renewal endpoint directly and stores the new token.
	Refresh(ctx context.Context) (string, error)
	Me(ctx context.Context) (*models.User, error)

	ListVideos(ctx context.Context, q models.ListQuery) (*models.Page[models.Video], error)
	GetVideo(ctx context.Context, id string) (*models.Video, error)
	UploadVideo(ctx context.Context, upload Upload) (*models.Video, error)
	DeleteVideo(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, videoID string) (*models.LikeState, error)

	ListComments(ctx context.Context, videoID string, page, limit int) (*models.Page[models.Comment], error)
	AddComment(ctx context.Context, videoID string, input models.CommentInput) (*models.Comment, error)
	DeleteComment(ctx context.Context, commentID string) error

	GetChannel(ctx context.Context, username string) (*models.Channel, error)
	ToggleSubscription(ctx context.Context, channelID string) (*models.SubscriptionState, error)
	ListSubscriptions(ctx context.Context) ([]models.Channel, error)

	History(ctx context.Context) ([]models.Video, error)
	ClearHistory(ctx context.Context) error
	WatchLater(ctx context.Context) ([]models.Video, error)
	ToggleWatchLater(ctx context.Context, videoID string) (*models.WatchLaterState, error)

	ListNotifications(ctx context.Context) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error

	// Raw performs an arbitrary call and returns the undecoded response.
	Raw(ctx context.Context, method, path string, body []byte) (*client.Response, error)
}

var _ Service = (*StreamTube)(nil)
