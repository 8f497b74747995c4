package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	FetchVideos Phase = iota
	WriteExport
	FetchProfile
	FetchHistory
	FetchWatchLater
	FetchSubscriptions
	FetchNotifications
)

func (p Phase) String() string {
	switch p {
	case FetchVideos:
		return "fetch_videos"
	case WriteExport:
		return "write_export"
	case FetchProfile:
		return "fetch_profile"
	case FetchHistory:
		return "fetch_history"
	case FetchWatchLater:
		return "fetch_watch_later"
	case FetchSubscriptions:
		return "fetch_subscriptions"
	case FetchNotifications:
		return "fetch_notifications"
	default:
		return ""
	}
}

func fetchVideosUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchVideos,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching %d videos...", total),
	}
}

func videoFetchedUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchVideos,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, title),
	}
}

func videoFailedUpdate(step, total int, id string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchVideos,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, id, err),
	}
}

func writeExportUpdate(format string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteExport,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Writing %s export...", format),
	}
}

func endpointUpdate(op endpointOperation, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   op.phase,
		Step:    step,
		Total:   total,
		Message: op.message,
	}
}

func endpointFailedUpdate(op endpointOperation, step, total int, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   op.phase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("%s failed: %v", op.name, err),
	}
}
