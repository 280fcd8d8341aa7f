package backend

import (
	"context"
	"slices"

	"github.com/hszk-dev/purestream/internal/domain/repository"
)

// StaticFollowing is a FollowingSource backed by a fixed list of usernames.
type StaticFollowing []string

var _ repository.FollowingSource = StaticFollowing(nil)

// Following returns a copy of the configured usernames.
func (s StaticFollowing) Following(_ context.Context) ([]string, error) {
	return slices.Clone(s), nil
}
