package repository

import (
	"context"
	"time"

	"github.com/hszk-dev/purestream/internal/domain/model"
)

// MediaHost is the media element surface the playback controller commands.
// Hosts report progress back as model.MediaEvent values.
type MediaHost interface {
	// Load attaches a source to the video's media element.
	Load(ctx context.Context, videoID string, src model.MediaSource) error

	// Play starts playback. Returns model.ErrAutoplayRejected when host policy refuses it.
	Play(ctx context.Context, videoID string) error

	Pause(ctx context.Context, videoID string) error
	Seek(ctx context.Context, videoID string, position time.Duration) error
	SetMuted(ctx context.Context, videoID string, muted bool) error
}
