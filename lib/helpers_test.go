package lib

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fiffu/feedsync/config"
	"github.com/fiffu/feedsync/lib/models"
	"github.com/fiffu/feedsync/notifiers"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "feedsync_test.sqlite")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Source{},
		&models.Grouping{},
		&models.Membership{},
		&models.Item{},
		&models.ReadState{},
	)
	require.NoError(t, err)
	return db
}

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Notify.Platform = "log"
	return cfg
}

func seedSource(t *testing.T, db *gorm.DB, url string) *models.Source {
	t.Helper()
	source := &models.Source{URL: url, Title: url, Available: true, NotifyOnNew: true}
	require.NoError(t, db.Create(source).Error)
	return source
}

func seedGrouping(t *testing.T, db *gorm.DB, name string, members ...*models.Source) *models.Grouping {
	t.Helper()
	grouping := &models.Grouping{Name: name, NotifyOnNew: true}
	require.NoError(t, db.Create(grouping).Error)
	for _, member := range members {
		m := &models.Membership{SourceID: member.ID, GroupingID: grouping.ID}
		require.NoError(t, db.Create(m).Error)
	}
	return grouping
}

func seedItem(t *testing.T, db *gorm.DB, sourceID uint, key, title string) *models.Item {
	t.Helper()
	item := &models.Item{SourceID: sourceID, Key: key, Title: title, Link: key}
	require.NoError(t, db.Create(item).Error)
	return item
}

// stubFeeds serves canned parsed documents keyed by URL, standing in for
// both the fetcher and the parser.
type stubFeeds struct {
	docs map[string]*models.FeedDocument
	fail map[string]error
}

func newStubFeeds() *stubFeeds {
	return &stubFeeds{
		docs: make(map[string]*models.FeedDocument),
		fail: make(map[string]error),
	}
}

func (s *stubFeeds) Fetch(ctx context.Context, url string) (string, error) {
	if err, ok := s.fail[url]; ok {
		return "", models.Fail(models.FetchFailure, err)
	}
	return url, nil
}

func (s *stubFeeds) Parse(raw string, baseURL string) (*models.FeedDocument, error) {
	if doc, ok := s.docs[raw]; ok {
		return doc, nil
	}
	return nil, models.Failf(models.ParseFailure, "malformed document from %s", raw)
}

func newTestService(t *testing.T, db *gorm.DB, feeds *stubFeeds) (*Service, *ReadStates) {
	t.Helper()
	log := zap.NewNop()
	cfg := newTestConfig()
	reconciler := &Reconciler{db, log}
	reads := &ReadStates{db, log}
	presenters := notifiers.NewRegistry(nil, log, cfg, nil)
	svc := NewService(nil, cfg, log, db, feeds, feeds, reconciler, reads, presenters)
	return svc, reads
}
