package server

import (
	"cmp"
	"fmt"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/shared"
)

const maxUploadBytes = 64 << 20

// channelLocked builds the public channel view of userID as seen by viewer.
func (d *DevAPI) channelLocked(userID, viewer string) models.Channel {
	user, ok := d.users[userID]
	if !ok {
		return models.Channel{ID: userID}
	}

	videos := 0
	for _, v := range d.videos {
		if v.Owner.ID == userID {
			videos++
		}
	}

	return models.Channel{
		ID:           user.ID,
		Username:     user.Username,
		FullName:     user.FullName,
		Avatar:       user.Avatar,
		Subscribers:  len(d.subscribers[userID]),
		Videos:       videos,
		IsSubscribed: viewer != "" && d.subscribers[userID][viewer],
	}
}

// videoViewLocked returns a copy of v with counters and viewer flags filled in.
func (d *DevAPI) videoViewLocked(v *models.Video, viewer string) models.Video {
	out := *v
	out.Likes = len(d.likes[v.ID])
	out.Owner = d.channelLocked(v.Owner.ID, viewer)

	comments := 0
	for _, c := range d.comments {
		if c.VideoID == v.ID {
			comments++
		}
	}
	out.Comments = comments

	if viewer != "" {
		out.IsLiked = d.likes[v.ID][viewer]
		out.InWatchLater = slices.Contains(d.watchLater[viewer], v.ID)
	}
	return out
}

func (d *DevAPI) videoListLocked(ids []string, viewer string) []models.Video {
	out := make([]models.Video, 0, len(ids))
	for _, id := range ids {
		if v, ok := d.videos[id]; ok {
			out = append(out, d.videoViewLocked(v, viewer))
		}
	}
	return out
}

func (d *DevAPI) notifyLocked(userID, actor, kind, message, videoID string) {
	if userID == "" || userID == actor {
		return
	}
	n := &models.Notification{
		ID:        shared.GenerateID(),
		Type:      kind,
		Message:   message,
		VideoID:   videoID,
		CreatedAt: time.Now().UTC(),
	}
	d.notifications[userID] = append(d.notifications[userID], n)
}

func (d *DevAPI) insertVideoLocked(ownerID string, input models.VideoInput, filename string) *models.Video {
	id := shared.GenerateID()
	video := &models.Video{
		ID:           id,
		Title:        input.Title,
		Description:  input.Description,
		Duration:     input.Duration,
		VideoURL:     "/media/" + id + "/" + filepath.Base(filename),
		ThumbnailURL: "/media/" + id + "/thumbnail.jpg",
		IsPublished:  true,
		Owner:        models.Channel{ID: ownerID},
		CreatedAt:    time.Now().UTC(),
	}
	d.videos[id] = video
	d.videoOrder = append(d.videoOrder, id)

	owner := d.users[ownerID]
	for sub := range d.subscribers[ownerID] {
		d.notifyLocked(sub, ownerID, models.NotificationUpload, owner.Username+" uploaded "+video.Title, id)
	}
	return video
}

func (d *DevAPI) listVideos(w http.ResponseWriter, r *http.Request, viewer string) {
	page, limit := pageParams(r)
	query := strings.ToLower(r.URL.Query().Get("query"))
	sortBy := r.URL.Query().Get("sortBy")

	d.mu.RLock()
	videos := make([]models.Video, 0, len(d.videoOrder))
	for _, id := range d.videoOrder {
		v := d.videos[id]
		if !v.IsPublished && v.Owner.ID != viewer {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(v.Title+" "+v.Description), query) {
			continue
		}
		videos = append(videos, d.videoViewLocked(v, viewer))
	}
	d.mu.RUnlock()

	switch sortBy {
	case "views":
		slices.SortStableFunc(videos, func(a, b models.Video) int { return cmp.Compare(b.Views, a.Views) })
	case "duration":
		slices.SortStableFunc(videos, func(a, b models.Video) int { return cmp.Compare(b.Duration, a.Duration) })
	default:
		slices.Reverse(videos)
	}

	writeEnvelope(w, http.StatusOK, "", paginate(videos, page, limit))
}

func (d *DevAPI) uploadVideo(w http.ResponseWriter, r *http.Request, userID string) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	duration, _ := strconv.Atoi(r.FormValue("duration"))
	input := models.VideoInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Duration:    duration,
	}
	if err := d.validate.Struct(input); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	file, header, err := r.FormFile("videoFile")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "videoFile is required")
		return
	}
	file.Close()

	d.mu.Lock()
	video := d.insertVideoLocked(userID, input, header.Filename)
	view := d.videoViewLocked(video, userID)
	d.mu.Unlock()

	d.logger.Info("video uploaded", "id", video.ID, "size", header.Size)
	writeEnvelope(w, http.StatusCreated, "video uploaded", view)
}

func (d *DevAPI) getVideo(w http.ResponseWriter, r *http.Request, viewer string) {
	id := r.PathValue("id")

	d.mu.Lock()
	video, ok := d.videos[id]
	if !ok || (!video.IsPublished && video.Owner.ID != viewer) {
		d.mu.Unlock()
		writeError(w, http.StatusNotFound, "video not found")
		return
	}

	video.Views++
	if viewer != "" {
		history := slices.DeleteFunc(d.history[viewer], func(v string) bool { return v == id })
		d.history[viewer] = append([]string{id}, history...)
	}
	view := d.videoViewLocked(video, viewer)
	d.mu.Unlock()

	writeEnvelope(w, http.StatusOK, "", view)
}

func (d *DevAPI) deleteVideo(w http.ResponseWriter, r *http.Request, userID string) {
	id := r.PathValue("id")

	d.mu.Lock()
	defer d.mu.Unlock()

	video, ok := d.videos[id]
	if !ok {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}
	if video.Owner.ID != userID {
		writeError(w, http.StatusForbidden, "only the owner can delete a video")
		return
	}

	delete(d.videos, id)
	delete(d.likes, id)
	d.videoOrder = slices.DeleteFunc(d.videoOrder, func(v string) bool { return v == id })
	writeEnvelope(w, http.StatusOK, "video deleted", nil)
}

func (d *DevAPI) toggleLike(w http.ResponseWriter, r *http.Request, userID string) {
	id := r.PathValue("id")

	d.mu.Lock()
	defer d.mu.Unlock()

	video, ok := d.videos[id]
	if !ok {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}

	if d.likes[id] == nil {
		d.likes[id] = make(map[string]bool)
	}
	liked := !d.likes[id][userID]
	if liked {
		d.likes[id][userID] = true
		d.notifyLocked(video.Owner.ID, userID, models.NotificationLike, d.users[userID].Username+" liked "+video.Title, id)
	} else {
		delete(d.likes[id], userID)
	}

	writeEnvelope(w, http.StatusOK, "", models.LikeState{Liked: liked, Likes: len(d.likes[id])})
}

func (d *DevAPI) listComments(w http.ResponseWriter, r *http.Request, viewer string) {
	id := r.PathValue("id")
	page, limit := pageParams(r)

	d.mu.RLock()
	if _, ok := d.videos[id]; !ok {
		d.mu.RUnlock()
		writeError(w, http.StatusNotFound, "video not found")
		return
	}

	comments := []models.Comment{}
	for i := len(d.commentOrder) - 1; i >= 0; i-- {
		c := d.comments[d.commentOrder[i]]
		if c != nil && c.VideoID == id {
			out := *c
			out.Owner = d.channelLocked(c.Owner.ID, viewer)
			comments = append(comments, out)
		}
	}
	d.mu.RUnlock()

	writeEnvelope(w, http.StatusOK, "", paginate(comments, page, limit))
}

func (d *DevAPI) addComment(w http.ResponseWriter, r *http.Request, userID string) {
	id := r.PathValue("id")

	var input models.CommentInput
	if !d.decode(w, r, &input) {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	video, ok := d.videos[id]
	if !ok {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}

	comment := &models.Comment{
		ID:        shared.GenerateID(),
		VideoID:   id,
		Content:   input.Content,
		Owner:     models.Channel{ID: userID},
		CreatedAt: time.Now().UTC(),
	}
	d.comments[comment.ID] = comment
	d.commentOrder = append(d.commentOrder, comment.ID)
	d.notifyLocked(video.Owner.ID, userID, models.NotificationComment, d.users[userID].Username+" commented on "+video.Title, id)

	out := *comment
	out.Owner = d.channelLocked(userID, userID)
	writeEnvelope(w, http.StatusCreated, "comment added", out)
}

func (d *DevAPI) deleteComment(w http.ResponseWriter, r *http.Request, userID string) {
	id := r.PathValue("id")

	d.mu.Lock()
	defer d.mu.Unlock()

	comment, ok := d.comments[id]
	if !ok {
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}
	if comment.Owner.ID != userID {
		writeError(w, http.StatusForbidden, "only the author can delete a comment")
		return
	}

	delete(d.comments, id)
	d.commentOrder = slices.DeleteFunc(d.commentOrder, func(v string) bool { return v == id })
	writeEnvelope(w, http.StatusOK, "comment deleted", nil)
}

func (d *DevAPI) getChannel(w http.ResponseWriter, r *http.Request, viewer string) {
	username := strings.ToLower(r.PathValue("username"))

	d.mu.RLock()
	userID, ok := d.usernames[username]
	var channel models.Channel
	if ok {
		channel = d.channelLocked(userID, viewer)
	}
	d.mu.RUnlock()

	if !ok {
		writeError(w, http.StatusNotFound, "channel not found")
		return
	}
	writeEnvelope(w, http.StatusOK, "", channel)
}

func (d *DevAPI) toggleSubscription(w http.ResponseWriter, r *http.Request, userID string) {
	channelID := r.PathValue("id")

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[channelID]; !ok {
		writeError(w, http.StatusNotFound, "channel not found")
		return
	}
	if channelID == userID {
		writeError(w, http.StatusBadRequest, "cannot subscribe to your own channel")
		return
	}

	if d.subscribers[channelID] == nil {
		d.subscribers[channelID] = make(map[string]bool)
	}
	subscribed := !d.subscribers[channelID][userID]
	if subscribed {
		d.subscribers[channelID][userID] = true
		d.notifyLocked(channelID, userID, models.NotificationSubscribe, d.users[userID].Username+" subscribed to your channel", "")
	} else {
		delete(d.subscribers[channelID], userID)
	}

	writeEnvelope(w, http.StatusOK, "", models.SubscriptionState{
		Subscribed:  subscribed,
		Subscribers: len(d.subscribers[channelID]),
	})
}

func (d *DevAPI) listSubscriptions(w http.ResponseWriter, r *http.Request, userID string) {
	d.mu.RLock()
	channels := []models.Channel{}
	for channelID, subs := range d.subscribers {
		if subs[userID] {
			channels = append(channels, d.channelLocked(channelID, userID))
		}
	}
	d.mu.RUnlock()

	slices.SortFunc(channels, func(a, b models.Channel) int { return cmp.Compare(a.Username, b.Username) })
	writeEnvelope(w, http.StatusOK, "", channels)
}

func (d *DevAPI) getHistory(w http.ResponseWriter, r *http.Request, userID string) {
	d.mu.RLock()
	videos := d.videoListLocked(d.history[userID], userID)
	d.mu.RUnlock()

	writeEnvelope(w, http.StatusOK, "", videos)
}

func (d *DevAPI) clearHistory(w http.ResponseWriter, r *http.Request, userID string) {
	d.mu.Lock()
	delete(d.history, userID)
	d.mu.Unlock()

	writeEnvelope(w, http.StatusOK, "history cleared", nil)
}

func (d *DevAPI) getWatchLater(w http.ResponseWriter, r *http.Request, userID string) {
	d.mu.RLock()
	videos := d.videoListLocked(d.watchLater[userID], userID)
	d.mu.RUnlock()

	writeEnvelope(w, http.StatusOK, "", videos)
}

func (d *DevAPI) toggleWatchLater(w http.ResponseWriter, r *http.Request, userID string) {
	id := r.PathValue("id")

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.videos[id]; !ok {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}

	saved := !slices.Contains(d.watchLater[userID], id)
	if saved {
		d.watchLater[userID] = append(d.watchLater[userID], id)
	} else {
		d.watchLater[userID] = slices.DeleteFunc(d.watchLater[userID], func(v string) bool { return v == id })
	}

	writeEnvelope(w, http.StatusOK, "", models.WatchLaterState{Saved: saved})
}

func (d *DevAPI) listNotifications(w http.ResponseWriter, r *http.Request, userID string) {
	d.mu.RLock()
	feed := d.notifications[userID]
	out := make([]models.Notification, 0, len(feed))
	for i := len(feed) - 1; i >= 0; i-- {
		out = append(out, *feed[i])
	}
	d.mu.RUnlock()

	writeEnvelope(w, http.StatusOK, "", out)
}

func (d *DevAPI) markRead(w http.ResponseWriter, r *http.Request, userID string) {
	id := r.PathValue("id")

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, n := range d.notifications[userID] {
		if n.ID == id {
			n.Read = true
			writeEnvelope(w, http.StatusOK, "notification read", nil)
			return
		}
	}
	writeError(w, http.StatusNotFound, fmt.Sprintf("notification %s not found", id))
}

func (d *DevAPI) markAllRead(w http.ResponseWriter, r *http.Request, userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, n := range d.notifications[userID] {
		n.Read = true
	}
	writeEnvelope(w, http.StatusOK, "all notifications read", nil)
}
