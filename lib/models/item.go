package models

import (
	"crypto/sha1"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Item identity is the content-derived Key, scoped to the owning Source.
// The composite primary key keeps two Sources serving the same link from
// aliasing each other's fetch history.
type Item struct {
	SourceID     uint   `gorm:"primaryKey;autoIncrement:false"`
	Key          string `gorm:"primaryKey"`
	Title        string
	Description  string
	Link         string
	Author       string
	PublishedAt  sql.NullInt64 // epoch millis; null when the feed omits it
	ThumbnailURL string
	FirstSeenAt  time.Time `gorm:"index"`
}

type Items []Item

// DeriveItemKey picks the upstream identifier when the feed provides one,
// falls back to the resolved absolute link, and as a last resort combines
// the source id with a digest of the title.
func DeriveItemKey(sourceID uint, identifierHint, link, title string) string {
	if hint := strings.TrimSpace(identifierHint); hint != "" {
		return hint
	}
	if link != "" {
		return link
	}
	return fmt.Sprintf("%d:%s", sourceID, DigestTitle(title))
}

func DigestTitle(title string) string {
	return fmt.Sprintf("%x", sha1.Sum([]byte(title)))
}
