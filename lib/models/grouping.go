package models

import (
	"time"

	"gorm.io/gorm"
)

type Grouping struct {
	gorm.Model
	Name        string `gorm:"unique"`
	IsDefault   bool
	NotifyOnNew bool
}

type Groupings []Grouping

// Membership joins a Source into a Grouping. Rows are deleted alongside
// either parent; neither parent is ever deleted through a Membership.
type Membership struct {
	SourceID   uint `gorm:"primaryKey;autoIncrement:false"`
	GroupingID uint `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt  time.Time
}
