package lib

import (
	"context"
	"database/sql"
	"time"

	"github.com/fiffu/feedsync/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReadStates tracks per-item read/unread state and computes live unread
// aggregates. Counts are always queried, never cached, so membership
// changes show up immediately.
type ReadStates struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewReadStates(lc fx.Lifecycle, db *gorm.DB, log *zap.Logger) *ReadStates {
	return &ReadStates{db, log}
}

var readStateConflict = clause.OnConflict{
	Columns:   []clause.Column{{Name: "source_id"}, {Name: "item_key"}},
	DoUpdates: clause.AssignmentColumns([]string{"is_read", "read_at"}),
}

// SetRead upserts the item's read state. ReadAt is set on the transition
// to read and cleared on the transition to unread.
func (rs *ReadStates) SetRead(ctx context.Context, sourceID uint, itemKey string, isRead bool) error {
	var count int64
	tx := rs.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("source_id = ?", sourceID).
		Where("key = ?", itemKey).
		Count(&count)
	if err := tx.Error; err != nil {
		return models.Fail(models.StoreFailure, err)
	}
	if count == 0 {
		return models.Failf(models.NotFound, "no item %s under source id:%v", itemKey, sourceID)
	}

	state := models.ReadState{SourceID: sourceID, ItemKey: itemKey, IsRead: isRead}
	if isRead {
		state.ReadAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}
	tx = rs.db.WithContext(ctx).Clauses(readStateConflict).Create(&state)
	return models.Fail(models.StoreFailure, tx.Error)
}

// MarkSourceRead marks every item of one source read in a single
// transaction.
func (rs *ReadStates) MarkSourceRead(ctx context.Context, sourceID uint) error {
	if err := rs.ensureExists(ctx, &models.Source{}, sourceID); err != nil {
		return err
	}
	return rs.markRead(ctx, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("items.source_id = ?", sourceID)
	})
}

// MarkGroupingRead marks every item owned by any member source read, via
// the membership join, as one transactional bulk update.
func (rs *ReadStates) MarkGroupingRead(ctx context.Context, groupingID uint) error {
	if err := rs.ensureExists(ctx, &models.Grouping{}, groupingID); err != nil {
		return err
	}
	return rs.markRead(ctx, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("items.source_id IN (?)", rs.memberSources(groupingID))
	})
}

// MarkEverythingRead marks every stored item read.
func (rs *ReadStates) MarkEverythingRead(ctx context.Context) error {
	return rs.markRead(ctx, func(tx *gorm.DB) *gorm.DB { return tx })
}

func (rs *ReadStates) markRead(ctx context.Context, scope func(*gorm.DB) *gorm.DB) error {
	now := sql.NullTime{Time: time.Now().UTC(), Valid: true}

	err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var unread models.Items
		q := scope(rs.unreadItems(tx)).Select("items.source_id", "items.key")
		if err := q.Find(&unread).Error; err != nil {
			return err
		}
		if len(unread) == 0 {
			return nil
		}

		states := make(models.ReadStates, len(unread))
		for i, item := range unread {
			states[i] = models.ReadState{SourceID: item.SourceID, ItemKey: item.Key, IsRead: true, ReadAt: now}
		}
		return tx.Clauses(readStateConflict).CreateInBatches(states, 200).Error
	})
	return models.Fail(models.StoreFailure, err)
}

// SourceUnread counts items of one source whose read state is absent or
// unread.
func (rs *ReadStates) SourceUnread(ctx context.Context, sourceID uint) (int64, error) {
	var count int64
	tx := rs.unreadItems(rs.db.WithContext(ctx)).
		Where("items.source_id = ?", sourceID).
		Count(&count)
	return count, models.Fail(models.StoreFailure, tx.Error)
}

// GroupingUnread counts unread items across the grouping's member
// sources.
func (rs *ReadStates) GroupingUnread(ctx context.Context, groupingID uint) (int64, error) {
	var count int64
	tx := rs.unreadItems(rs.db.WithContext(ctx)).
		Where("items.source_id IN (?)", rs.memberSources(groupingID)).
		Count(&count)
	return count, models.Fail(models.StoreFailure, tx.Error)
}

// TotalUnread counts unread items across every source.
func (rs *ReadStates) TotalUnread(ctx context.Context) (int64, error) {
	var count int64
	tx := rs.unreadItems(rs.db.WithContext(ctx)).Count(&count)
	return count, models.Fail(models.StoreFailure, tx.Error)
}

// UnreadDigest returns the grouping's unread count plus a sample item for
// single-item notification summaries.
func (rs *ReadStates) UnreadDigest(ctx context.Context, groupingID uint) (int64, *models.Item, error) {
	count, err := rs.GroupingUnread(ctx, groupingID)
	if err != nil || count == 0 {
		return count, nil, err
	}

	var sample models.Item
	tx := rs.unreadItems(rs.db.WithContext(ctx)).
		Where("items.source_id IN (?)", rs.memberSources(groupingID)).
		Order("items.first_seen_at desc").
		First(&sample)
	if err := tx.Error; err != nil {
		return count, nil, models.Fail(models.StoreFailure, err)
	}
	return count, &sample, nil
}

func (rs *ReadStates) unreadItems(tx *gorm.DB) *gorm.DB {
	return tx.Model(&models.Item{}).
		Joins("LEFT JOIN read_states ON read_states.source_id = items.source_id AND read_states.item_key = items.key").
		Where("read_states.is_read IS NULL OR read_states.is_read = ?", false)
}

func (rs *ReadStates) memberSources(groupingID uint) *gorm.DB {
	return rs.db.Model(&models.Membership{}).
		Select("source_id").
		Where("grouping_id = ?", groupingID)
}

func (rs *ReadStates) ensureExists(ctx context.Context, model any, id uint) error {
	var count int64
	tx := rs.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count)
	if err := tx.Error; err != nil {
		return models.Fail(models.StoreFailure, err)
	}
	if count == 0 {
		return models.Failf(models.NotFound, "no record with id:%v", id)
	}
	return nil
}
