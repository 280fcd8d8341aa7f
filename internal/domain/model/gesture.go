package model

import "time"

// TapEvent is a single tap or touch on the player surface.
type TapEvent struct {
	At      time.Time
	X       float64
	Y       float64
	Touches int
}

// GestureKind classifies a tap sequence.
type GestureKind string

const (
	GestureTap      GestureKind = "tap"
	GestureMultiTap GestureKind = "multi_tap"
)

// Gesture is the classified result of one or more tap events.
// X and Y are the coordinates of the event that completed the gesture.
type Gesture struct {
	Kind GestureKind
	X    float64
	Y    float64
	At   time.Time
}

// ClassifyTaps turns a time-ordered stream of taps into gestures.
// A tap followed by another tap within window, or a tap with more than one
// touch point, is a multi-tap; any other tap stands on its own.
func ClassifyTaps(events []TapEvent, window time.Duration) []Gesture {
	var gestures []Gesture
	for i := 0; i < len(events); i++ {
		ev := events[i]
		if ev.Touches > 1 {
			gestures = append(gestures, Gesture{Kind: GestureMultiTap, X: ev.X, Y: ev.Y, At: ev.At})
			continue
		}
		if i+1 < len(events) {
			next := events[i+1]
			if gap := next.At.Sub(ev.At); gap >= 0 && gap < window {
				gestures = append(gestures, Gesture{Kind: GestureMultiTap, X: next.X, Y: next.Y, At: next.At})
				i++
				continue
			}
		}
		gestures = append(gestures, Gesture{Kind: GestureTap, X: ev.X, Y: ev.Y, At: ev.At})
	}
	return gestures
}

// Particle is the transient visual produced by a like gesture.
type Particle struct {
	ID      string    `json:"id"`
	VideoID string    `json:"video_id"`
	X       float64   `json:"x"`
	Y       float64   `json:"y"`
	At      time.Time `json:"at"`
}
