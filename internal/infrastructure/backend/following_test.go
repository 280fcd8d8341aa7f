package backend

import (
	"context"
	"slices"
	"testing"
)

func TestStaticFollowing(t *testing.T) {
	src := StaticFollowing{"alice", "bob"}

	got, err := src.Following(context.Background())
	if err != nil {
		t.Fatalf("Following() error = %v", err)
	}
	if !slices.Equal(got, []string{"alice", "bob"}) {
		t.Errorf("Following() = %v, want [alice bob]", got)
	}

	got[0] = "mallory"
	if src[0] != "alice" {
		t.Error("Following() returned a slice aliasing the source list")
	}
}
