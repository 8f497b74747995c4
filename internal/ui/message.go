package ui

import (
	"github.com/desertthunder/stx/internal/models"
)

// toggleKind names the optimistic actions.
type toggleKind int

const (
	toggleLike toggleKind = iota
	toggleWatchLater
	toggleSubscribe
)

func (k toggleKind) String() string {
	switch k {
	case toggleLike:
		return "like"
	case toggleWatchLater:
		return "watch later"
	case toggleSubscribe:
		return "subscribe"
	default:
		return ""
	}
}

type videosFetchedMsg struct {
	page *models.Page[models.Video]
	err  error
}

type videoFetchedMsg struct {
	video *models.Video
	err   error
}

// toggleDoneMsg carries the server's answer to an optimistic toggle.
// prevOn and prevCount hold the state from before the toggle.
type toggleDoneMsg struct {
	kind      toggleKind
	videoID   string
	channelID string
	on        bool
	count     int
	prevOn    bool
	prevCount int
	err       error
}

// ReauthMsg switches the UI to the signed-out view.
type ReauthMsg struct {
	Err error
}
