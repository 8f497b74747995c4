package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/services"
	"github.com/desertthunder/stx/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	VideoListView ViewState = iota
	VideoDetailView
	SignedOutView
)

const pageSize = 25

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	svc       services.Service
	reauth    <-chan error
	view      ViewState
	width     int
	height    int
	videoList list.Model
	videos    []models.Video
	cursor    int
	loading   bool
	status    string
	err       error
	help      help.Model
	keys      keyMap
}

// NewModel creates a TUI model. reauth may be nil; when set, a value on it switches to [SignedOutView].
func NewModel(ctx context.Context, svc services.Service, reauth <-chan error) *Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "StreamTube"

	return &Model{
		ctx:       ctx,
		svc:       svc,
		reauth:    reauth,
		view:      VideoListView,
		videoList: l,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// ViewState returns the active view.
func (m *Model) ViewState() ViewState {
	return m.view
}

// Init fetches the first page of videos and starts listening for reauthentication.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchVideos(), m.waitForReauth())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.videoList.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case ReauthMsg:
		m.signOut(msg.Err)
		return m, nil

	case videosFetchedMsg:
		m.loading = false
		if msg.err != nil {
			return m, m.fail(msg.err)
		}
		m.videos = msg.page.Items
		m.videoList.SetItems(videoItems(m.videos))
		m.status = fmt.Sprintf("%d of %d videos", len(m.videos), msg.page.Total)
		return m, nil

	case videoFetchedMsg:
		m.loading = false
		if msg.err != nil {
			return m, m.fail(msg.err)
		}
		if i := m.indexOf(msg.video.ID); i >= 0 {
			m.videos[i] = *msg.video
			m.refreshItem(i)
		}
		return m, nil

	case toggleDoneMsg:
		return m, m.settle(msg)

	case tea.KeyMsg:
		switch m.view {
		case VideoListView:
			return m.handleListKeys(msg)
		case VideoDetailView:
			return m.handleDetailKeys(msg)
		case SignedOutView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		}
	}

	if m.view == VideoListView {
		var cmd tea.Cmd
		m.videoList, cmd = m.videoList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case VideoListView:
		return m.renderList()
	case VideoDetailView:
		return m.renderDetail()
	case SignedOutView:
		return m.renderSignedOut()
	default:
		return ""
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.videoList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.videoList, cmd = m.videoList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.open):
		if item, ok := m.videoList.SelectedItem().(videoItem); ok {
			m.cursor = m.indexOf(item.video.ID)
			m.view = VideoDetailView
			m.err = nil
			return m, m.fetchVideo(item.video.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.reload):
		return m, m.fetchVideos()
	case key.Matches(msg, m.keys.like):
		return m, m.toggle(m.selectedIndex(), toggleLike)
	case key.Matches(msg, m.keys.watchLater):
		return m, m.toggle(m.selectedIndex(), toggleWatchLater)
	case key.Matches(msg, m.keys.subscribe):
		return m, m.toggle(m.selectedIndex(), toggleSubscribe)
	}

	var cmd tea.Cmd
	m.videoList, cmd = m.videoList.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = VideoListView
		return m, nil
	case key.Matches(msg, m.keys.reload):
		if m.cursor >= 0 && m.cursor < len(m.videos) {
			return m, m.fetchVideo(m.videos[m.cursor].ID)
		}
	case key.Matches(msg, m.keys.like):
		return m, m.toggle(m.cursor, toggleLike)
	case key.Matches(msg, m.keys.watchLater):
		return m, m.toggle(m.cursor, toggleWatchLater)
	case key.Matches(msg, m.keys.subscribe):
		return m, m.toggle(m.cursor, toggleSubscribe)
	}
	return m, nil
}

func (m *Model) selectedIndex() int {
	if item, ok := m.videoList.SelectedItem().(videoItem); ok {
		return m.indexOf(item.video.ID)
	}
	return -1
}

func (m *Model) indexOf(id string) int {
	for i, v := range m.videos {
		if v.ID == id {
			return i
		}
	}
	return -1
}

func (m *Model) refreshItem(i int) {
	for j, item := range m.videoList.Items() {
		if vi, ok := item.(videoItem); ok && vi.video.ID == m.videos[i].ID {
			m.videoList.SetItem(j, videoItem{video: m.videos[i]})
			return
		}
	}
}

// flip applies kind to the video at i, and to every video by the same channel for subscriptions.
func (m *Model) flip(i int, kind toggleKind) {
	v := &m.videos[i]
	switch kind {
	case toggleLike:
		v.IsLiked = !v.IsLiked
		if v.IsLiked {
			v.Likes++
		} else {
			v.Likes = max(v.Likes-1, 0)
		}
		m.refreshItem(i)
	case toggleWatchLater:
		v.InWatchLater = !v.InWatchLater
		m.refreshItem(i)
	case toggleSubscribe:
		owner := v.Owner
		owner.IsSubscribed = !owner.IsSubscribed
		if owner.IsSubscribed {
			owner.Subscribers++
		} else {
			owner.Subscribers = max(owner.Subscribers-1, 0)
		}
		m.setOwner(owner)
	}
}

// state reports the on/count pair kind controls for the video at i.
func (m *Model) state(i int, kind toggleKind) (bool, int) {
	v := m.videos[i]
	switch kind {
	case toggleLike:
		return v.IsLiked, v.Likes
	case toggleWatchLater:
		return v.InWatchLater, 0
	case toggleSubscribe:
		return v.Owner.IsSubscribed, v.Owner.Subscribers
	}
	return false, 0
}

// apply sets the on/count pair kind controls for the video at i.
func (m *Model) apply(i int, kind toggleKind, on bool, count int) {
	switch kind {
	case toggleLike:
		m.videos[i].IsLiked, m.videos[i].Likes = on, count
		m.refreshItem(i)
	case toggleWatchLater:
		m.videos[i].InWatchLater = on
		m.refreshItem(i)
	case toggleSubscribe:
		owner := m.videos[i].Owner
		owner.IsSubscribed, owner.Subscribers = on, count
		m.setOwner(owner)
	}
}

func (m *Model) setOwner(owner models.Channel) {
	for j := range m.videos {
		if m.videos[j].Owner.ID == owner.ID {
			m.videos[j].Owner = owner
			m.refreshItem(j)
		}
	}
}

// toggle flips local state immediately and returns the command that asks the server.
func (m *Model) toggle(i int, kind toggleKind) tea.Cmd {
	if i < 0 || i >= len(m.videos) {
		return nil
	}

	prevOn, prevCount := m.state(i, kind)
	m.flip(i, kind)
	m.err = nil

	videoID := m.videos[i].ID
	channelID := m.videos[i].Owner.ID
	ctx, svc := m.ctx, m.svc

	return func() tea.Msg {
		done := toggleDoneMsg{kind: kind, videoID: videoID, channelID: channelID, prevOn: prevOn, prevCount: prevCount}
		switch kind {
		case toggleLike:
			state, err := svc.ToggleLike(ctx, videoID)
			if done.err = err; err == nil {
				done.on, done.count = state.Liked, state.Likes
			}
		case toggleWatchLater:
			state, err := svc.ToggleWatchLater(ctx, videoID)
			if done.err = err; err == nil {
				done.on = state.Saved
			}
		case toggleSubscribe:
			state, err := svc.ToggleSubscription(ctx, channelID)
			if done.err = err; err == nil {
				done.on, done.count = state.Subscribed, state.Subscribers
			}
		}
		return done
	}
}

// settle reconciles an optimistic toggle with the server's answer. On failure
// the state from before the toggle is restored.
func (m *Model) settle(msg toggleDoneMsg) tea.Cmd {
	i := m.indexOf(msg.videoID)

	if msg.err != nil {
		if i >= 0 {
			m.apply(i, msg.kind, msg.prevOn, msg.prevCount)
		}
		m.status = fmt.Sprintf("%s failed", msg.kind)
		return m.fail(msg.err)
	}

	if i < 0 {
		return nil
	}

	m.apply(i, msg.kind, msg.on, msg.count)
	m.status = fmt.Sprintf("%s saved", msg.kind)
	return nil
}

// fail records err, switching to the signed-out view when the session is gone.
func (m *Model) fail(err error) tea.Cmd {
	if errors.Is(err, shared.ErrReauthRequired) {
		m.signOut(err)
		return nil
	}
	m.err = err
	return nil
}

func (m *Model) signOut(err error) {
	m.view = SignedOutView
	m.err = err
}

func (m *Model) fetchVideos() tea.Cmd {
	m.loading = true
	ctx, svc := m.ctx, m.svc
	return func() tea.Msg {
		page, err := svc.ListVideos(ctx, models.ListQuery{Page: 1, Limit: pageSize})
		return videosFetchedMsg{page: page, err: err}
	}
}

func (m *Model) fetchVideo(id string) tea.Cmd {
	m.loading = true
	ctx, svc := m.ctx, m.svc
	return func() tea.Msg {
		video, err := svc.GetVideo(ctx, id)
		return videoFetchedMsg{video: video, err: err}
	}
}

func (m *Model) waitForReauth() tea.Cmd {
	if m.reauth == nil {
		return nil
	}
	ch := m.reauth
	return func() tea.Msg {
		return ReauthMsg{Err: <-ch}
	}
}

func (m *Model) footer(bindings ...key.Binding) string {
	var b strings.Builder
	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(styles.help.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.help.ShortHelpView(bindings))
	return b.String()
}

func (m *Model) renderList() string {
	if m.loading && len(m.videos) == 0 {
		return styles.title.Render("StreamTube") + "\nLoading videos..."
	}
	k := m.keys
	return fmt.Sprintf("%s\n%s", m.videoList.View(), m.footer(k.open, k.like, k.watchLater, k.subscribe, k.reload, k.quit))
}

func (m *Model) renderDetail() string {
	if m.cursor < 0 || m.cursor >= len(m.videos) {
		return styles.err.Render("No video selected\n\nPress esc to go back")
	}
	v := m.videos[m.cursor]

	var b strings.Builder
	b.WriteString(styles.title.Render(v.Title))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s • %d subscribers\n", v.Owner.Username, v.Owner.Subscribers)
	fmt.Fprintf(&b, "%s • %d views • %d likes • %d comments\n\n", shared.FormatDuration(v.Duration), v.Views, v.Likes, v.Comments)
	if v.Description != "" {
		b.WriteString(v.Description)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "%s   %s   %s\n\n", mark(v.IsLiked, "liked"), mark(v.InWatchLater, "watch later"), mark(v.Owner.IsSubscribed, "subscribed"))

	k := m.keys
	b.WriteString(m.footer(k.like, k.watchLater, k.subscribe, k.reload, k.back, k.quit))
	return b.String()
}

func (m *Model) renderSignedOut() string {
	title := styles.warn.Render("Signed out")
	body := "Your session has expired and could not be renewed.\nRun `stx auth login` to sign in again."
	if m.err != nil {
		body += "\n\n" + styles.help.Render(m.err.Error())
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, m.help.ShortHelpView([]key.Binding{m.keys.quit}))
}
