package models

// NormalizedItem is one feed entry after parsing, with its link already
// resolved to an absolute URL against the source's base URL.
type NormalizedItem struct {
	IdentifierHint string
	Title          string
	Description    string
	Link           string
	Author         string
	PublishedAt    *int64 // epoch millis
	ThumbnailURL   string
}

// FeedDocument is the parsed, normalized form of one fetched feed.
type FeedDocument struct {
	Title       string
	Description string
	SiteURL     string
	ImageURL    string
	Items       []NormalizedItem
}

// ImportEntry is one (url, title, groupingName?) tuple from a batch add.
type ImportEntry struct {
	URL          string
	Title        string
	GroupingName string
}

// ImportReport lists what a batch add would touch. Duplicates are detected
// against existing Source URLs before anything is committed.
type ImportReport struct {
	Added      Sources
	Duplicates []string
}
