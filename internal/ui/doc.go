// Package ui implements the interactive StreamTube browser using bubbletea's Elm architecture.
//
// The [Model] has three views:
//  1. [VideoListView] : Browse the latest videos
//  2. [VideoDetailView] : One video with its channel and library state
//  3. [SignedOutView] : Shown once the session can no longer be renewed
//
// The l, w and s keys toggle like, watch later and subscribe optimistically. The local state flips at once
// and the request runs in the background; if it fails the prior state is restored and the error is shown.
//
// A terminal renewal failure reaches the UI through the channel given to [NewModel], which the caller
// feeds from the request client's OnReauth hook.
package ui
