package model

import "errors"

// Tab identifies one of the independent video lists.
type Tab string

const (
	TabForYou    Tab = "for_you"
	TabFollowing Tab = "following"
	TabSearch    Tab = "search"
)

// tabOrder is the fixed cyclic order used by swipes and arrow keys.
var tabOrder = []Tab{TabForYou, TabFollowing, TabSearch}

var ErrUnknownTab = errors.New("unknown tab")

// ParseTab validates a tab name.
func ParseTab(s string) (Tab, error) {
	for _, t := range tabOrder {
		if string(t) == s {
			return t, nil
		}
	}
	return "", ErrUnknownTab
}

// Tabs returns all tabs in cyclic order.
func Tabs() []Tab {
	return append([]Tab(nil), tabOrder...)
}

// Next returns the tab after t, wrapping around.
func (t Tab) Next() Tab {
	return t.step(1)
}

// Prev returns the tab before t, wrapping around.
func (t Tab) Prev() Tab {
	return t.step(-1)
}

func (t Tab) step(delta int) Tab {
	for i, candidate := range tabOrder {
		if candidate == t {
			n := len(tabOrder)
			return tabOrder[((i+delta)%n+n)%n]
		}
	}
	return TabForYou
}

func (t Tab) String() string {
	return string(t)
}
