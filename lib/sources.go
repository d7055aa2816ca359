package lib

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/fiffu/feedsync/config"
	"github.com/fiffu/feedsync/lib/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sources struct {
	cfg        *config.Config
	log        *zap.Logger
	db         *gorm.DB
	fetcher    Fetcher
	parser     Parser
	reconciler *Reconciler
}

// AddSource subscribes a new feed. The source row is only created after a
// successful first fetch, so a bad URL never leaves a dead source behind.
func (svc *sources) AddSource(ctx context.Context, feedURL string, groupingID *uint) (*models.Source, error) {
	if err := svc.ensureNotSubscribed(ctx, feedURL); err != nil {
		return nil, err
	}

	raw, err := svc.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	doc, err := svc.parser.Parse(raw, feedURL)
	if err != nil {
		return nil, err
	}

	source := &models.Source{
		URL:         feedURL,
		Title:       doc.Title,
		Description: doc.Description,
		SiteURL:     doc.SiteURL,
		IconURL:     doc.ImageURL,
		LastFetched: sql.NullTime{Time: time.Now().UTC(), Valid: true},
		Available:   true,
		NotifyOnNew: true,
	}
	if source.Title == "" {
		source.Title = feedURL
	}
	if source.IconURL == "" {
		source.IconURL = svc.discoverIcon(ctx, doc.SiteURL)
	}

	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Returning{}).Create(source).Error; err != nil {
			return err
		}
		if groupingID != nil {
			return tx.Create(&models.Membership{SourceID: source.ID, GroupingID: *groupingID}).Error
		}
		return nil
	})
	if err != nil {
		return nil, models.Fail(models.StoreFailure, err)
	}

	if _, err := svc.reconciler.Reconcile(ctx, source, doc.Items); err != nil {
		svc.log.Sugar().Warnf("Initial reconcile failed for %s: %v", feedURL, err)
	}

	svc.log.Sugar().Infof("Created source id:%v (%s)", source.ID, feedURL)
	return source, nil
}

// ImportSources adds a batch of (url, title, groupingName?) tuples.
// Duplicates of existing source URLs are reported, the rest commit in one
// transaction. Imported sources carry no metadata until their first sync.
func (svc *sources) ImportSources(ctx context.Context, entries []models.ImportEntry) (*models.ImportReport, error) {
	var existing []string
	tx := svc.db.WithContext(ctx).Model(&models.Source{}).Pluck("url", &existing)
	if err := tx.Error; err != nil {
		return nil, models.Fail(models.StoreFailure, err)
	}
	subscribed := make(map[string]bool, len(existing))
	for _, url := range existing {
		subscribed[url] = true
	}

	report := &models.ImportReport{}
	var fresh []models.ImportEntry
	for _, entry := range entries {
		if subscribed[entry.URL] {
			report.Duplicates = append(report.Duplicates, entry.URL)
			continue
		}
		subscribed[entry.URL] = true
		fresh = append(fresh, entry)
	}

	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entry := range fresh {
			title := entry.Title
			if title == "" {
				title = entry.URL
			}
			source := models.Source{URL: entry.URL, Title: title, Available: true, NotifyOnNew: true}
			if err := tx.Clauses(clause.Returning{}).Create(&source).Error; err != nil {
				return err
			}
			if name := strings.TrimSpace(entry.GroupingName); name != "" {
				grouping, err := findOrCreateGrouping(tx, name)
				if err != nil {
					return err
				}
				membership := models.Membership{SourceID: source.ID, GroupingID: grouping.ID}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&membership).Error; err != nil {
					return err
				}
			}
			report.Added = append(report.Added, source)
		}
		return nil
	})
	if err != nil {
		return nil, models.Fail(models.StoreFailure, err)
	}

	svc.log.Sugar().Infof("Imported %d sources, %d duplicates skipped", len(report.Added), len(report.Duplicates))
	return report, nil
}

// DeleteSource removes the source and everything hanging off it. The
// cascade is explicit in one transaction: read states, items and
// memberships go before the source row.
func (svc *sources) DeleteSource(ctx context.Context, sourceID uint) error {
	source, err := svc.GetSource(ctx, sourceID)
	if err != nil {
		return err
	}

	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ReadState{}, "source_id = ?", sourceID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Item{}, "source_id = ?", sourceID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Membership{}, "source_id = ?", sourceID).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(source).Error
	})
	if err != nil {
		return models.Fail(models.StoreFailure, err)
	}

	svc.log.Sugar().Infof("Deleted source id:%v (%s)", sourceID, source.URL)
	return nil
}

func (svc *sources) GetSource(ctx context.Context, sourceID uint) (*models.Source, error) {
	source := &models.Source{}
	tx := svc.db.WithContext(ctx).First(source, sourceID)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.Failf(models.NotFound, "no source with id:%v", sourceID)
	} else if err != nil {
		return nil, models.Fail(models.StoreFailure, err)
	}
	return source, nil
}

func (svc *sources) ListSources(ctx context.Context) (models.Sources, error) {
	var all models.Sources
	tx := svc.db.WithContext(ctx).Order("title").Find(&all)
	return all, models.Fail(models.StoreFailure, tx.Error)
}

func (svc *sources) SetSourceNotify(ctx context.Context, sourceID uint, enabled bool) error {
	if _, err := svc.GetSource(ctx, sourceID); err != nil {
		return err
	}
	tx := svc.db.WithContext(ctx).
		Model(&models.Source{}).
		Where("id = ?", sourceID).
		Update("notify_on_new", enabled)
	return models.Fail(models.StoreFailure, tx.Error)
}

func (svc *sources) ensureNotSubscribed(ctx context.Context, feedURL string) error {
	var count int64
	tx := svc.db.WithContext(ctx).Model(&models.Source{}).Where("url = ?", feedURL).Count(&count)
	if err := tx.Error; err != nil {
		return models.Fail(models.StoreFailure, err)
	}
	if count > 0 {
		return models.Failf(models.StoreFailure, "already subscribed to %s", feedURL)
	}
	return nil
}

func (svc *sources) discoverIcon(ctx context.Context, siteURL string) string {
	if siteURL == "" {
		return ""
	}
	raw, err := svc.fetcher.Fetch(ctx, siteURL)
	if err != nil {
		return ""
	}
	doc, err := htmlquery.Parse(strings.NewReader(raw))
	if err != nil {
		return ""
	}
	return ResolveLink(siteURL, ExtractIconURL(doc))
}
