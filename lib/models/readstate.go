package models

import "database/sql"

// ReadState is stored apart from Item so that a missing row means unread
// without requiring a write at ingestion time.
type ReadState struct {
	SourceID uint   `gorm:"primaryKey;autoIncrement:false"`
	ItemKey  string `gorm:"primaryKey"`
	IsRead   bool
	ReadAt   sql.NullTime
}

type ReadStates []ReadState
