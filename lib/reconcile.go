package lib

import (
	"context"
	"time"

	"github.com/fiffu/feedsync/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Reconciler merges fetched items into the store without duplicating
// previously seen ones. Whether an item is newly observed is an explicit
// return value, never inferred from insert-vs-update side effects.
type Reconciler struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewReconciler(lc fx.Lifecycle, db *gorm.DB, log *zap.Logger) *Reconciler {
	return &Reconciler{db, log}
}

type ReconcileResult struct {
	AllUpserted   models.Items
	NewlyObserved models.Items
}

// Reconcile derives each item's identity key, upserts the whole batch in
// one transaction, and reports the subset not previously stored. Running
// it twice with the same input leaves identical rows and an empty
// NewlyObserved set on the second run.
func (r *Reconciler) Reconcile(ctx context.Context, source *models.Source, normalized []models.NormalizedItem) (*ReconcileResult, error) {
	result := &ReconcileResult{}
	if len(normalized) == 0 {
		return result, nil
	}

	now := time.Now().UTC()
	seen := make(map[string]bool, len(normalized))
	keys := make([]string, 0, len(normalized))
	for _, entry := range normalized {
		key := models.DeriveItemKey(source.ID, entry.IdentifierHint, entry.Link, entry.Title)
		if seen[key] {
			// Feeds occasionally serve the same entry twice; first wins.
			continue
		}
		seen[key] = true
		keys = append(keys, key)
		result.AllUpserted = append(result.AllUpserted, r.toItem(source.ID, key, entry, now))
	}

	existing := make(map[string]bool, len(keys))
	var existingKeys []string
	tx := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("source_id = ?", source.ID).
		Where("key IN ?", keys).
		Pluck("key", &existingKeys)
	if err := tx.Error; err != nil {
		return nil, models.Fail(models.StoreFailure, err)
	}
	for _, key := range existingKeys {
		existing[key] = true
	}

	for _, item := range result.AllUpserted {
		if !existing[item.Key] {
			result.NewlyObserved = append(result.NewlyObserved, item)
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Items are immutable after creation, so conflicts are no-ops.
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			CreateInBatches(result.AllUpserted, 100).Error
	})
	if err != nil {
		return nil, models.Fail(models.StoreFailure, err)
	}

	if n := len(result.NewlyObserved); n > 0 {
		r.log.Sugar().Infof("Source id:%v has %d newly observed items", source.ID, n)
	}
	return result, nil
}

func (r *Reconciler) toItem(sourceID uint, key string, entry models.NormalizedItem, firstSeen time.Time) models.Item {
	item := models.Item{
		SourceID:     sourceID,
		Key:          key,
		Title:        entry.Title,
		Description:  entry.Description,
		Link:         entry.Link,
		Author:       entry.Author,
		ThumbnailURL: entry.ThumbnailURL,
		FirstSeenAt:  firstSeen,
	}
	if entry.PublishedAt != nil {
		item.PublishedAt.Int64 = *entry.PublishedAt
		item.PublishedAt.Valid = true
	}
	return item
}
