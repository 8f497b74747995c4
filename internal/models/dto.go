package models

import "time"

// User is a StreamTube account.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Channel is the public face of a user.
type Channel struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	FullName     string `json:"fullName"`
	Avatar       string `json:"avatar,omitempty"`
	Subscribers  int    `json:"subscribersCount"`
	Videos       int    `json:"videosCount"`
	IsSubscribed bool   `json:"isSubscribed"`
}

// Video is video metadata. Duration is in seconds.
type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ThumbnailURL string    `json:"thumbnail"`
	VideoURL     string    `json:"videoFile"`
	Duration     int       `json:"duration"`
	Views        int       `json:"views"`
	Likes        int       `json:"likesCount"`
	Comments     int       `json:"commentsCount"`
	IsPublished  bool      `json:"isPublished"`
	IsLiked      bool      `json:"isLiked"`
	InWatchLater bool      `json:"inWatchLater"`
	Owner        Channel   `json:"owner"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Comment on a video.
type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	Content   string    `json:"content"`
	Owner     Channel   `json:"owner"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notification types sent by the API.
const (
	NotificationUpload    = "upload"
	NotificationComment   = "comment"
	NotificationSubscribe = "subscribe"
	NotificationLike      = "like"
)

// Notification is an entry in the user's notification feed.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	VideoID   string    `json:"videoId,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// LikeState is returned by the like toggle.
type LikeState struct {
	Liked bool `json:"isLiked"`
	Likes int  `json:"likesCount"`
}

// SubscriptionState is returned by the subscription toggle.
type SubscriptionState struct {
	Subscribed  bool `json:"isSubscribed"`
	Subscribers int  `json:"subscribersCount"`
}

// WatchLaterState is returned by the watch-later toggle.
type WatchLaterState struct {
	Saved bool `json:"inWatchLater"`
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// HasNext reports whether a later page exists.
func (p Page[T]) HasNext() bool {
	return p.Page < p.TotalPages
}

// Session is the payload of login and signup.
type Session struct {
	User        User   `json:"user"`
	AccessToken string `json:"accessToken"`
}

// VideoExport represents a set of videos prepared for export.
type VideoExport struct {
	Title      string    `json:"title"`
	ExportedAt time.Time `json:"exportedAt"`
	Videos     []Video   `json:"videos"`
}

// SignupInput is the signup request body.
type SignupInput struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"fullName" validate:"required"`
}

// LoginInput is the login request body.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CommentInput is the body for new comments.
type CommentInput struct {
	Content string `json:"content" validate:"required,max=1000"`
}

// VideoInput holds the text fields of an upload.
type VideoInput struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"max=5000"`
	Duration    int    `json:"duration" validate:"gte=0"`
}

// ListQuery holds video listing parameters.
type ListQuery struct {
	Query  string
	Page   int
	Limit  int
	SortBy string // "createdAt", "views" or "duration"
}
