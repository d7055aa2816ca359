package models

import (
	"database/sql"

	"gorm.io/gorm"
)

type Source struct {
	gorm.Model
	URL         string `gorm:"unique"`
	Title       string
	Description string
	SiteURL     string
	IconURL     string
	LastFetched sql.NullTime
	Available   bool
	NotifyOnNew bool
}

type Sources []Source
