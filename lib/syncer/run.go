package syncer

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fiffu/feedsync/lib/models"
	"github.com/fiffu/feedsync/lib/notify"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RunSync executes one run: resolve the scope, process each source
// sequentially, then hand results to the notification decision. A single
// source's failure is recorded and the run moves on; only a store failure
// while resolving the scope fails the run itself.
func (s *Syncer) RunSync(ctx context.Context, scope models.SyncScope, trigger models.SyncTrigger) *models.SyncOutcome {
	started := time.Now().UTC()
	outcome := &models.SyncOutcome{
		RunID:   uuid.NewString(),
		Scope:   scope,
		Trigger: trigger,
		State:   models.RunCompleted,
	}

	targets, err := s.resolveScope(ctx, scope)
	if err != nil {
		outcome.State = models.RunFailed
		outcome.Err = err
		s.log.Sugar().Errorw("Sync run failed to resolve scope", "run_id", outcome.RunID, "err", err)
		return outcome
	}

	m := &runMetrics{totalSelected: len(targets)}
	for i := range targets {
		// Sources are processed one at a time. A source that has begun
		// completes its fetch and reconcile; cancellation is only
		// observed between sources.
		if err := ctx.Err(); err != nil {
			outcome.Sources = append(outcome.Sources, models.SourceOutcome{Source: targets[i], Err: models.Fail(models.FetchFailure, err)})
			m.failed++
			continue
		}

		srcOutcome := s.syncSource(ctx, &targets[i])
		m.Record(srcOutcome)
		outcome.Sources = append(outcome.Sources, srcOutcome)
	}

	s.notify(ctx, trigger, outcome)

	if trigger == models.TriggerPeriodic {
		s.purgeOldItems(ctx, started)
	}

	elapsed := time.Now().UTC().Sub(started)
	s.log.Sugar().Infow(
		"Sync run completed",
		"run_id", outcome.RunID, "trigger", trigger, "scope", scope.Kind,
		"sources", m.totalSelected, "succeeded", m.succeeded, "failed", m.failed,
		"new_items", m.newItems, "elapsed_msecs", int(elapsed.Milliseconds()),
	)
	return outcome
}

func (s *Syncer) resolveScope(ctx context.Context, scope models.SyncScope) (models.Sources, error) {
	q := s.db.WithContext(ctx)

	switch scope.Kind {
	case models.ScopeSource:
		q = q.Where("id = ?", scope.ID)
	case models.ScopeGrouping:
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Grouping{}).Where("id = ?", scope.ID).Count(&count).Error; err != nil {
			return nil, models.Fail(models.StoreFailure, err)
		}
		if count == 0 {
			return nil, models.Failf(models.NotFound, "no grouping with id:%v", scope.ID)
		}
		q = q.Where("id IN (?)", s.db.Model(&models.Membership{}).Select("source_id").Where("grouping_id = ?", scope.ID))
	case models.ScopeAll:
		// Every source, notification settings notwithstanding.
	}

	var targets models.Sources
	if err := q.Find(&targets).Error; err != nil {
		return nil, models.Fail(models.StoreFailure, err)
	}
	if scope.Kind == models.ScopeSource && len(targets) == 0 {
		return nil, models.Failf(models.NotFound, "no source with id:%v", scope.ID)
	}
	return targets, nil
}

func (s *Syncer) syncSource(ctx context.Context, source *models.Source) models.SourceOutcome {
	outcome := models.SourceOutcome{Source: *source}

	doc, err := s.loadFeed(ctx, source.URL)
	if err != nil {
		// lastFetched stays untouched so the failure window is visible.
		outcome.Err = err
		s.markUnavailable(ctx, source)
		return outcome
	}

	result, err := s.reconciler.Reconcile(ctx, source, doc.Items)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.NewlyObserved = result.NewlyObserved

	if err := s.refreshMetadata(ctx, source, doc); err != nil {
		outcome.Err = err
	}
	return outcome
}

func (s *Syncer) loadFeed(ctx context.Context, url string) (*models.FeedDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	raw, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return s.parser.Parse(raw, url)
}

func (s *Syncer) markUnavailable(ctx context.Context, source *models.Source) {
	tx := s.db.WithContext(ctx).
		Model(&models.Source{}).
		Where("id = ?", source.ID).
		Update("available", false)
	if err := tx.Error; err != nil {
		s.log.Sugar().Errorw("Failed to flag source unavailable", "source_id", source.ID, "err", err)
	}
}

// refreshMetadata updates the source row after a successful fetch:
// availability, lastFetched, and whatever upstream metadata changed.
func (s *Syncer) refreshMetadata(ctx context.Context, source *models.Source, doc *models.FeedDocument) error {
	updates := map[string]any{
		"available":    true,
		"last_fetched": sql.NullTime{Time: time.Now().UTC(), Valid: true},
	}
	if doc.Title != "" {
		updates["title"] = doc.Title
	}
	if doc.Description != "" {
		updates["description"] = doc.Description
	}
	if doc.SiteURL != "" {
		updates["site_url"] = doc.SiteURL
	}
	if source.IconURL == "" && doc.ImageURL != "" {
		updates["icon_url"] = doc.ImageURL
	}

	tx := s.db.WithContext(ctx).
		Model(&models.Source{}).
		Where("id = ?", source.ID).
		Updates(updates)
	return models.Fail(models.StoreFailure, tx.Error)
}

func (s *Syncer) notify(ctx context.Context, trigger models.SyncTrigger, outcome *models.SyncOutcome) {
	var digests []notify.GroupingDigest
	if trigger == models.TriggerPeriodic {
		digests = s.groupingDigests(ctx)
	}

	intents := notify.Decide(trigger, outcome.Sources, digests)
	if len(intents) == 0 {
		return
	}

	presenter := s.presenters.For(s.cfg.Notify.Platform)
	for _, intent := range intents {
		if _, err := presenter.Present(ctx, intent); err != nil {
			s.log.Sugar().Errorw("Failed to present notification", "kind", intent.Kind, "owner_id", intent.OwnerID, "err", err)
		}
	}
}

// groupingDigests recomputes the live unread aggregate for every grouping
// with notifications enabled.
func (s *Syncer) groupingDigests(ctx context.Context) []notify.GroupingDigest {
	var toggled models.Groupings
	tx := s.db.WithContext(ctx).Where("notify_on_new = ?", true).Find(&toggled)
	if err := tx.Error; err != nil {
		s.log.Sugar().Errorw("Failed to list groupings for notification", "err", err)
		return nil
	}

	var digests []notify.GroupingDigest
	for _, grouping := range toggled {
		count, sample, err := s.reads.UnreadDigest(ctx, grouping.ID)
		if err != nil {
			s.log.Sugar().Errorw("Failed to compute unread digest", "grouping_id", grouping.ID, "err", err)
			continue
		}
		digests = append(digests, notify.GroupingDigest{Grouping: grouping, Unread: count, Sample: sample})
	}
	return digests
}

func (s *Syncer) purgeOldItems(ctx context.Context, batchStartTime time.Time) {
	retentionCutoff := batchStartTime.Add(-s.retention)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stale models.Items
		q := tx.Model(&models.Item{}).
			Select("source_id", "key").
			Where("first_seen_at < ?", retentionCutoff).
			Find(&stale)
		if err := q.Error; err != nil {
			return err
		}
		if len(stale) == 0 {
			return nil
		}

		for _, item := range stale {
			if err := tx.Delete(&models.ReadState{}, "source_id = ? AND item_key = ?", item.SourceID, item.Key).Error; err != nil {
				return err
			}
		}
		del := tx.Delete(&models.Item{}, "first_seen_at < ?", retentionCutoff)
		if err := del.Error; err != nil {
			return err
		}
		s.log.Sugar().Infof("Purged %d old items", del.RowsAffected)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Sugar().Errorf("purgeOldItems error: %+v", err)
	}
}
