package model

import (
	"errors"
	"testing"
)

func TestTab_Cycle(t *testing.T) {
	tests := []struct {
		tab      Tab
		wantNext Tab
		wantPrev Tab
	}{
		{TabForYou, TabFollowing, TabSearch},
		{TabFollowing, TabSearch, TabForYou},
		{TabSearch, TabForYou, TabFollowing},
	}

	for _, tt := range tests {
		t.Run(tt.tab.String(), func(t *testing.T) {
			if got := tt.tab.Next(); got != tt.wantNext {
				t.Errorf("Next() = %v, want %v", got, tt.wantNext)
			}
			if got := tt.tab.Prev(); got != tt.wantPrev {
				t.Errorf("Prev() = %v, want %v", got, tt.wantPrev)
			}
		})
	}
}

func TestParseTab(t *testing.T) {
	if got, err := ParseTab("following"); err != nil || got != TabFollowing {
		t.Errorf("ParseTab(following) = %v, %v", got, err)
	}
	if _, err := ParseTab("live"); !errors.Is(err, ErrUnknownTab) {
		t.Errorf("ParseTab(live) error = %v, want %v", err, ErrUnknownTab)
	}
}
