package model

import (
	"cmp"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// UnknownAuthor is assigned to descriptors that arrive without an author handle.
	UnknownAuthor = "unknown"

	maxDescriptionLength = 200
)

// VideoDescriptor describes a single short video delivered by the backend.
// Descriptors are never mutated after they enter a working list; two descriptors
// with the same ID are the same video regardless of their other fields.
type VideoDescriptor struct {
	ID          string
	URL         string // primary source locator
	CDNURL      string // optional lower-cost source locator
	Thumbnail   string
	Author      string
	Description string
	Views       int64
	Likes       int64
}

// Normalize returns a copy with deterministic defaults for fields the wire
// format allows to be missing. position is the descriptor's index in the
// page it arrived in and is only used when an ID-less descriptor also has no
// source locator.
func (v VideoDescriptor) Normalize(position int) VideoDescriptor {
	if v.ID == "" {
		v.ID = v.placeholderID(position)
	}
	if v.Author == "" {
		v.Author = UnknownAuthor
	}
	if v.Description == "" {
		v.Description = "Video by @" + v.Author
	}
	if utf8.RuneCountInString(v.Description) > maxDescriptionLength {
		v.Description = string([]rune(v.Description)[:maxDescriptionLength])
	}
	return v
}

// placeholderID names an ID-less descriptor after its source locator, so the
// same video gets the same ID on every page and distinct videos never collide.
func (v VideoDescriptor) placeholderID(position int) string {
	if loc := cmp.Or(v.URL, v.CDNURL); loc != "" {
		return "video-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(loc)).String()
	}
	return fmt.Sprintf("video-%d", position)
}

// HasPlayableSource reports whether at least one source locator is present.
func (v VideoDescriptor) HasPlayableSource() bool {
	return v.URL != "" || v.CDNURL != ""
}

// HasLowerCostSource reports whether the thin CDN source is available.
func (v VideoDescriptor) HasLowerCostSource() bool {
	return v.CDNURL != ""
}

// IDs returns the identifiers of videos in order.
func IDs(videos []VideoDescriptor) []string {
	ids := make([]string, len(videos))
	for i, v := range videos {
		ids[i] = v.ID
	}
	return ids
}
