package model

import "time"

// PrefetchState is the lifecycle of a prefetch task.
type PrefetchState string

const (
	PrefetchQueued   PrefetchState = "queued"
	PrefetchInFlight PrefetchState = "in_flight"
	PrefetchDone     PrefetchState = "done"
)

// PrefetchTask warms the media cache for one video.
// Locator is the primary source locator and determines the cache key;
// FetchURL is the resolved URL the partial range is fetched from.
type PrefetchTask struct {
	MessageID  string        `json:"message_id"`
	VideoID    string        `json:"video_id"`
	Locator    string        `json:"locator"`
	FetchURL   string        `json:"fetch_url"`
	RangeBytes int64         `json:"range_bytes"`
	State      PrefetchState `json:"state"`
	Deadline   time.Time     `json:"deadline"`
}
