package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/stx/internal/client"
	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/shared"
)

// CookieClearer drops the side-channel refresh cookie on logout.
type CookieClearer interface {
	Clear() error
}

// StreamTube implements [Service] on top of the authenticated [client.Client].
type StreamTube struct {
	client  *client.Client
	cookies CookieClearer
	logger  *log.Logger
}

// NewStreamTube creates a StreamTube service. cookies may be nil.
func NewStreamTube(c *client.Client, cookies CookieClearer, logger *log.Logger) *StreamTube {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &StreamTube{client: c, cookies: cookies, logger: logger.WithPrefix("streamtube")}
}

// Client returns the underlying request client.
func (s *StreamTube) Client() *client.Client {
	return s.client
}

func (s *StreamTube) do(ctx context.Context, req *client.Request, out any) error {
	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

func (s *StreamTube) get(ctx context.Context, path string, query url.Values, out any) error {
	return s.do(ctx, &client.Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func (s *StreamTube) send(ctx context.Context, method, path string, body, out any) error {
	var data []byte
	if body != nil {
		var err error
		if data, err = jsonBody(body); err != nil {
			return err
		}
	}
	return s.do(ctx, &client.Request{Method: method, Path: path, Body: data}, out)
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

func requireID(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s ID", shared.ErrMissingArgument, kind)
	}
	return nil
}

// Signup creates an account and stores the returned access token.
func (s *StreamTube) Signup(ctx context.Context, input models.SignupInput) (*models.Session, error) {
	var session models.Session
	if err := s.send(ctx, http.MethodPost, "/auth/signup", input, &session); err != nil {
		return nil, err
	}
	return &session, s.storeSession(&session)
}

// Login signs in and stores the returned access token.
func (s *StreamTube) Login(ctx context.Context, input models.LoginInput) (*models.Session, error) {
	var session models.Session
	if err := s.send(ctx, http.MethodPost, "/auth/login", input, &session); err != nil {
		if errorsIsUnauthorized(err) {
			return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
		}
		return nil, err
	}
	return &session, s.storeSession(&session)
}

func (s *StreamTube) storeSession(session *models.Session) error {
	if session.AccessToken == "" {
		return fmt.Errorf("%w: response has no access token", shared.ErrAuthFailed)
	}
	if err := s.client.Tokens().SetToken(session.AccessToken); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	s.logger.Info("signed in", "user", session.User.Username)
	return nil
}

// Logout ends the session on the server and always clears local credentials.
func (s *StreamTube) Logout(ctx context.Context) error {
	serverErr := s.send(ctx, http.MethodPost, "/auth/logout", nil, nil)
	if serverErr != nil {
		s.logger.Warn("server logout failed, clearing local session anyway", "error", serverErr)
	}

	if err := s.client.Tokens().ClearToken(); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	if s.cookies != nil {
		if err := s.cookies.Clear(); err != nil {
			return fmt.Errorf("failed to clear cookies: %w", err)
		}
	}
	return nil
}

// Refresh exchanges the refresh cookie for a new access token. It shares the
// client's renewal, so it never races a renewal started by a rejected request.
func (s *StreamTube) Refresh(ctx context.Context) (string, error) {
	token, err := s.client.Renew(ctx)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Me returns the signed-in user.
func (s *StreamTube) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := s.get(ctx, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListVideos returns one page of published videos.
func (s *StreamTube) ListVideos(ctx context.Context, q models.ListQuery) (*models.Page[models.Video], error) {
	query := pageQuery(q.Page, q.Limit)
	if q.Query != "" {
		query.Set("query", q.Query)
	}
	if q.SortBy != "" {
		query.Set("sortBy", q.SortBy)
	}

	var page models.Page[models.Video]
	if err := s.get(ctx, "/videos", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetVideo returns a single video. A missing video matches [shared.ErrNotFound].
func (s *StreamTube) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	if err := requireID("video", id); err != nil {
		return nil, err
	}
	var video models.Video
	if err := s.get(ctx, "/videos/"+url.PathEscape(id), nil, &video); err != nil {
		return nil, err
	}
	return &video, nil
}

// Upload is a video upload. File is read fully before sending.
type Upload struct {
	models.VideoInput
	FileName string
	File     io.Reader
}

// UploadVideo posts a multipart upload.
func (s *StreamTube) UploadVideo(ctx context.Context, upload Upload) (*models.Video, error) {
	if upload.Title == "" {
		return nil, fmt.Errorf("%w: title", shared.ErrMissingArgument)
	}
	if upload.File == nil {
		return nil, fmt.Errorf("%w: video file", shared.ErrMissingArgument)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"title":       upload.Title,
		"description": upload.Description,
		"duration":    strconv.Itoa(upload.Duration),
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write %s field: %w", k, err)
		}
	}

	part, err := w.CreateFormFile("videoFile", filepath.Base(upload.FileName))
	if err != nil {
		return nil, fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, upload.File); err != nil {
		return nil, fmt.Errorf("failed to read video file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish upload body: %w", err)
	}

	req := &client.Request{
		Method: http.MethodPost,
		Path:   "/videos",
		Header: http.Header{"Content-Type": {w.FormDataContentType()}},
		Body:   buf.Bytes(),
	}

	var video models.Video
	if err := s.do(ctx, req, &video); err != nil {
		return nil, err
	}
	s.logger.Info("uploaded video", "id", video.ID, "bytes", buf.Len())
	return &video, nil
}

// DeleteVideo deletes one of the user's videos.
func (s *StreamTube) DeleteVideo(ctx context.Context, id string) error {
	if err := requireID("video", id); err != nil {
		return err
	}
	return s.send(ctx, http.MethodDelete, "/videos/"+url.PathEscape(id), nil, nil)
}

// ToggleLike flips the like on a video.
func (s *StreamTube) ToggleLike(ctx context.Context, videoID string) (*models.LikeState, error) {
	if err := requireID("video", videoID); err != nil {
		return nil, err
	}
	var state models.LikeState
	if err := s.send(ctx, http.MethodPost, "/videos/"+url.PathEscape(videoID)+"/like", nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// ListComments returns one page of comments on a video.
func (s *StreamTube) ListComments(ctx context.Context, videoID string, page, limit int) (*models.Page[models.Comment], error) {
	if err := requireID("video", videoID); err != nil {
		return nil, err
	}
	var comments models.Page[models.Comment]
	if err := s.get(ctx, "/videos/"+url.PathEscape(videoID)+"/comments", pageQuery(page, limit), &comments); err != nil {
		return nil, err
	}
	return &comments, nil
}

// AddComment posts a comment on a video.
func (s *StreamTube) AddComment(ctx context.Context, videoID string, input models.CommentInput) (*models.Comment, error) {
	if err := requireID("video", videoID); err != nil {
		return nil, err
	}
	if input.Content == "" {
		return nil, fmt.Errorf("%w: comment content", shared.ErrMissingArgument)
	}
	var comment models.Comment
	if err := s.send(ctx, http.MethodPost, "/videos/"+url.PathEscape(videoID)+"/comments", input, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment deletes one of the user's comments.
func (s *StreamTube) DeleteComment(ctx context.Context, commentID string) error {
	if err := requireID("comment", commentID); err != nil {
		return err
	}
	return s.send(ctx, http.MethodDelete, "/comments/"+url.PathEscape(commentID), nil, nil)
}

// GetChannel returns a channel by username.
func (s *StreamTube) GetChannel(ctx context.Context, username string) (*models.Channel, error) {
	if err := requireID("channel", username); err != nil {
		return nil, err
	}
	var channel models.Channel
	if err := s.get(ctx, "/channels/"+url.PathEscape(username), nil, &channel); err != nil {
		return nil, err
	}
	return &channel, nil
}

// ToggleSubscription subscribes to or unsubscribes from a channel.
func (s *StreamTube) ToggleSubscription(ctx context.Context, channelID string) (*models.SubscriptionState, error) {
	if err := requireID("channel", channelID); err != nil {
		return nil, err
	}
	var state models.SubscriptionState
	if err := s.send(ctx, http.MethodPost, "/channels/"+url.PathEscape(channelID)+"/subscribe", nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// ListSubscriptions returns the channels the user follows.
func (s *StreamTube) ListSubscriptions(ctx context.Context) ([]models.Channel, error) {
	var channels []models.Channel
	if err := s.get(ctx, "/subscriptions", nil, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// History returns the watch history, most recent first.
func (s *StreamTube) History(ctx context.Context) ([]models.Video, error) {
	var videos []models.Video
	if err := s.get(ctx, "/library/history", nil, &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

// ClearHistory empties the watch history.
func (s *StreamTube) ClearHistory(ctx context.Context) error {
	return s.send(ctx, http.MethodDelete, "/library/history", nil, nil)
}

// WatchLater returns the watch-later list.
func (s *StreamTube) WatchLater(ctx context.Context) ([]models.Video, error) {
	var videos []models.Video
	if err := s.get(ctx, "/library/watch-later", nil, &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

// ToggleWatchLater adds or removes a video from the watch-later list.
func (s *StreamTube) ToggleWatchLater(ctx context.Context, videoID string) (*models.WatchLaterState, error) {
	if err := requireID("video", videoID); err != nil {
		return nil, err
	}
	var state models.WatchLaterState
	if err := s.send(ctx, http.MethodPost, "/library/watch-later/"+url.PathEscape(videoID), nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// ListNotifications returns the notification feed.
func (s *StreamTube) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	var notifications []models.Notification
	if err := s.get(ctx, "/notifications", nil, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkNotificationRead marks one notification as read.
func (s *StreamTube) MarkNotificationRead(ctx context.Context, id string) error {
	if err := requireID("notification", id); err != nil {
		return err
	}
	return s.send(ctx, http.MethodPatch, "/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

// MarkAllNotificationsRead marks the whole feed as read.
func (s *StreamTube) MarkAllNotificationsRead(ctx context.Context) error {
	return s.send(ctx, http.MethodPatch, "/notifications/read-all", nil, nil)
}
