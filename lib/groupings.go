package lib

import (
	"context"
	"errors"

	"github.com/fiffu/feedsync/config"
	"github.com/fiffu/feedsync/lib/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type groupings struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

func (svc *groupings) CreateGrouping(ctx context.Context, name string) (*models.Grouping, error) {
	grouping := &models.Grouping{Name: name, NotifyOnNew: true}
	tx := svc.db.WithContext(ctx).Clauses(clause.Returning{}).Create(grouping)
	if err := tx.Error; err != nil {
		return nil, models.Fail(models.StoreFailure, err)
	}
	svc.log.Sugar().Infof("Created grouping id:%v (%s)", grouping.ID, name)
	return grouping, nil
}

func (svc *groupings) RenameGrouping(ctx context.Context, groupingID uint, name string) error {
	if _, err := svc.GetGrouping(ctx, groupingID); err != nil {
		return err
	}
	tx := svc.db.WithContext(ctx).
		Model(&models.Grouping{}).
		Where("id = ?", groupingID).
		Update("name", name)
	return models.Fail(models.StoreFailure, tx.Error)
}

// DeleteGrouping cascades memberships only; member sources are never
// deleted through their grouping.
func (svc *groupings) DeleteGrouping(ctx context.Context, groupingID uint) error {
	grouping, err := svc.GetGrouping(ctx, groupingID)
	if err != nil {
		return err
	}

	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Membership{}, "grouping_id = ?", groupingID).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(grouping).Error
	})
	if err != nil {
		return models.Fail(models.StoreFailure, err)
	}

	svc.log.Sugar().Infof("Deleted grouping id:%v (%s)", groupingID, grouping.Name)
	return nil
}

// SetDefaultGrouping clears any existing default and sets the new one in
// a single transaction, so two defaults are never observable.
func (svc *groupings) SetDefaultGrouping(ctx context.Context, groupingID uint) error {
	if _, err := svc.GetGrouping(ctx, groupingID); err != nil {
		return err
	}

	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		demote := tx.Model(&models.Grouping{}).
			Where("is_default = ?", true).
			Update("is_default", false)
		if err := demote.Error; err != nil {
			return err
		}
		return tx.Model(&models.Grouping{}).
			Where("id = ?", groupingID).
			Update("is_default", true).Error
	})
	return models.Fail(models.StoreFailure, err)
}

func (svc *groupings) SetGroupingNotify(ctx context.Context, groupingID uint, enabled bool) error {
	if _, err := svc.GetGrouping(ctx, groupingID); err != nil {
		return err
	}
	tx := svc.db.WithContext(ctx).
		Model(&models.Grouping{}).
		Where("id = ?", groupingID).
		Update("notify_on_new", enabled)
	return models.Fail(models.StoreFailure, tx.Error)
}

func (svc *groupings) AssignToGrouping(ctx context.Context, sourceID, groupingID uint) error {
	if _, err := svc.GetGrouping(ctx, groupingID); err != nil {
		return err
	}
	var count int64
	if err := svc.db.WithContext(ctx).Model(&models.Source{}).Where("id = ?", sourceID).Count(&count).Error; err != nil {
		return models.Fail(models.StoreFailure, err)
	}
	if count == 0 {
		return models.Failf(models.NotFound, "no source with id:%v", sourceID)
	}

	membership := models.Membership{SourceID: sourceID, GroupingID: groupingID}
	tx := svc.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&membership)
	return models.Fail(models.StoreFailure, tx.Error)
}

func (svc *groupings) RemoveFromGrouping(ctx context.Context, sourceID, groupingID uint) error {
	tx := svc.db.WithContext(ctx).
		Where("source_id = ?", sourceID).
		Where("grouping_id = ?", groupingID).
		Delete(&models.Membership{})
	if err := tx.Error; err != nil {
		return models.Fail(models.StoreFailure, err)
	}
	if tx.RowsAffected == 0 {
		return models.Failf(models.NotFound, "source id:%v is not a member of grouping id:%v", sourceID, groupingID)
	}
	return nil
}

func (svc *groupings) GetGrouping(ctx context.Context, groupingID uint) (*models.Grouping, error) {
	grouping := &models.Grouping{}
	tx := svc.db.WithContext(ctx).First(grouping, groupingID)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.Failf(models.NotFound, "no grouping with id:%v", groupingID)
	} else if err != nil {
		return nil, models.Fail(models.StoreFailure, err)
	}
	return grouping, nil
}

func (svc *groupings) ListGroupings(ctx context.Context) (models.Groupings, error) {
	var all models.Groupings
	tx := svc.db.WithContext(ctx).Order("name").Find(&all)
	return all, models.Fail(models.StoreFailure, tx.Error)
}

// GroupingMembers lists the sources belonging to a grouping.
func (svc *groupings) GroupingMembers(ctx context.Context, groupingID uint) (models.Sources, error) {
	if _, err := svc.GetGrouping(ctx, groupingID); err != nil {
		return nil, err
	}
	var members models.Sources
	tx := svc.db.WithContext(ctx).
		Model(&models.Source{}).
		Where("id IN (?)", svc.db.Model(&models.Membership{}).Select("source_id").Where("grouping_id = ?", groupingID)).
		Order("title").
		Find(&members)
	return members, models.Fail(models.StoreFailure, tx.Error)
}

func findOrCreateGrouping(tx *gorm.DB, name string) (*models.Grouping, error) {
	grouping := &models.Grouping{}
	err := tx.Where("name = ?", name).First(grouping).Error
	if err == nil {
		return grouping, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	grouping = &models.Grouping{Name: name, NotifyOnNew: true}
	if err := tx.Clauses(clause.Returning{}).Create(grouping).Error; err != nil {
		return nil, err
	}
	return grouping, nil
}
