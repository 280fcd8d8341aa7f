package model

// FeedPage is one batch of descriptors returned by a paginated endpoint.
type FeedPage struct {
	Items   []VideoDescriptor
	Cursor  string
	HasMore bool
}

// FeedKind identifies the request shape used to fetch a page.
// It doubles as the short-lived request cache key prefix.
type FeedKind string

const (
	FeedKindFast   FeedKind = "feed:fast"
	FeedKindFull   FeedKind = "feed:full"
	FeedKindUser   FeedKind = "user"
	FeedKindSearch FeedKind = "search"
)

func (k FeedKind) String() string {
	return string(k)
}
