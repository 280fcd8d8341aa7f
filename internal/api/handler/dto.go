package handler

import (
	"time"

	"github.com/hszk-dev/purestream/internal/domain/model"
	"github.com/hszk-dev/purestream/internal/usecase"
)

type VideoResponse struct {
	ID          string `json:"id"`
	URL         string `json:"url,omitempty"`
	CDNURL      string `json:"cdn_url,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Views       int64  `json:"views"`
	Likes       int64  `json:"likes"`
}

type TabResponse struct {
	Tab         string          `json:"tab"`
	Current     bool            `json:"current"`
	Videos      []VideoResponse `json:"videos"`
	ActiveIndex int             `json:"active_index"`
	Loaded      bool            `json:"loaded"`
	Exhausted   bool            `json:"exhausted"`
	Fetching    bool            `json:"fetching"`
	Query       string          `json:"query,omitempty"`
	Banner      string          `json:"banner,omitempty"`
}

type PlaybackResponse struct {
	VideoID    string `json:"video_id"`
	Status     string `json:"status"`
	PositionMS int64  `json:"position_ms"`
	DurationMS int64  `json:"duration_ms"`
	Muted      bool   `json:"muted"`
	Tier       string `json:"tier"`
	FellBack   bool   `json:"fell_back"`
	FromCache  bool   `json:"from_cache"`
	Reason     string `json:"reason,omitempty"`
}

type OutcomeResponse struct {
	Kind     string           `json:"kind"`
	VideoID  string           `json:"video_id"`
	Reason   string           `json:"reason,omitempty"`
	Particle *model.Particle  `json:"particle,omitempty"`
	Playback PlaybackResponse `json:"playback"`
}

func toVideoResponse(v model.VideoDescriptor) VideoResponse {
	return VideoResponse{
		ID:          v.ID,
		URL:         v.URL,
		CDNURL:      v.CDNURL,
		Thumbnail:   v.Thumbnail,
		Author:      v.Author,
		Description: v.Description,
		Views:       v.Views,
		Likes:       v.Likes,
	}
}

func toTabResponse(s usecase.TabSnapshot) TabResponse {
	videos := make([]VideoResponse, 0, len(s.Videos))
	for _, v := range s.Videos {
		videos = append(videos, toVideoResponse(v))
	}
	return TabResponse{
		Tab:         s.Tab.String(),
		Current:     s.Current,
		Videos:      videos,
		ActiveIndex: s.ActiveIndex,
		Loaded:      s.Loaded,
		Exhausted:   s.Exhausted,
		Fetching:    s.Fetching,
		Query:       s.Query,
		Banner:      s.Banner,
	}
}

func toPlaybackResponse(p model.PlaybackState) PlaybackResponse {
	return PlaybackResponse{
		VideoID:    p.VideoID,
		Status:     p.Status.String(),
		PositionMS: p.Position.Milliseconds(),
		DurationMS: p.Duration.Milliseconds(),
		Muted:      p.Muted,
		Tier:       string(p.Tier),
		FellBack:   p.FellBack,
		FromCache:  p.FromCache,
		Reason:     p.Reason,
	}
}

func toOutcomeResponse(o model.Outcome) OutcomeResponse {
	return OutcomeResponse{
		Kind:     string(o.Kind),
		VideoID:  o.VideoID,
		Reason:   o.Reason,
		Particle: o.Particle,
		Playback: toPlaybackResponse(o.State),
	}
}

func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
