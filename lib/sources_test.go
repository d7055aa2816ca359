package lib

import (
	"context"
	"testing"

	"github.com/fiffu/feedsync/lib/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSource_CreatedOnSuccessfulFirstFetch(t *testing.T) {
	db := newTestDB(t)
	feeds := newStubFeeds()
	feeds.docs["https://example.com/feed"] = &models.FeedDocument{
		Title:       "Example",
		Description: "An example feed",
		SiteURL:     "https://example.com",
		Items: []models.NormalizedItem{
			{IdentifierHint: "guid-1", Title: "Hello", Link: "https://example.com/hello"},
		},
	}
	svc, _ := newTestService(t, db, feeds)
	ctx := context.Background()

	source, err := svc.AddSource(ctx, "https://example.com/feed", nil)
	require.NoError(t, err)
	assert.Equal(t, "Example", source.Title)
	assert.True(t, source.Available)
	assert.True(t, source.LastFetched.Valid)

	// First fetch's items are reconciled in.
	var items int64
	require.NoError(t, db.Model(&models.Item{}).Where("source_id = ?", source.ID).Count(&items).Error)
	assert.EqualValues(t, 1, items)

	// Adding the same URL twice is rejected.
	_, err = svc.AddSource(ctx, "https://example.com/feed", nil)
	assert.Error(t, err)
}

func TestAddSource_FailedFirstFetchCreatesNothing(t *testing.T) {
	db := newTestDB(t)
	feeds := newStubFeeds()
	svc, _ := newTestService(t, db, feeds)

	_, err := svc.AddSource(context.Background(), "https://broken.example/feed", nil)
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Source{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestImportSources_ReportsDuplicatesBeforeCommit(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db, newStubFeeds())
	ctx := context.Background()

	seedSource(t, db, "https://already.example/feed")

	report, err := svc.ImportSources(ctx, []models.ImportEntry{
		{URL: "https://already.example/feed", Title: "Already"},
		{URL: "https://fresh.example/feed", Title: "Fresh", GroupingName: "news"},
		{URL: "https://fresh.example/feed", Title: "Fresh repeat"},
		{URL: "https://other.example/feed"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://already.example/feed", "https://fresh.example/feed"}, report.Duplicates)
	require.Len(t, report.Added, 2)
	assert.Equal(t, "Fresh", report.Added[0].Title)
	// Untitled imports fall back to the URL.
	assert.Equal(t, "https://other.example/feed", report.Added[1].Title)

	// The named grouping was created and joined.
	grouping := &models.Grouping{}
	require.NoError(t, db.First(grouping, "name = ?", "news").Error)
	var memberships int64
	require.NoError(t, db.Model(&models.Membership{}).Where("grouping_id = ?", grouping.ID).Count(&memberships).Error)
	assert.EqualValues(t, 1, memberships)
}

func TestDeleteSource_Cascades(t *testing.T) {
	db := newTestDB(t)
	svc, reads := newTestService(t, db, newStubFeeds())
	ctx := context.Background()

	source := seedSource(t, db, "https://example.com/feed")
	grouping := seedGrouping(t, db, "news", source)
	seedItem(t, db, source.ID, "a", "A")
	seedItem(t, db, source.ID, "b", "B")
	require.NoError(t, reads.SetRead(ctx, source.ID, "a", true))

	require.NoError(t, svc.DeleteSource(ctx, source.ID))

	var items, states, memberships int64
	require.NoError(t, db.Model(&models.Item{}).Count(&items).Error)
	require.NoError(t, db.Model(&models.ReadState{}).Count(&states).Error)
	require.NoError(t, db.Model(&models.Membership{}).Count(&memberships).Error)
	assert.EqualValues(t, 0, items)
	assert.EqualValues(t, 0, states)
	assert.EqualValues(t, 0, memberships)

	// The grouping itself survives, just without the member.
	members, err := svc.GroupingMembers(ctx, grouping.ID)
	require.NoError(t, err)
	assert.Empty(t, members)

	err = svc.DeleteSource(ctx, source.ID)
	assert.True(t, models.IsNotFound(err))
}

func TestReadFromNotification_DismissesOwnNotification(t *testing.T) {
	db := newTestDB(t)
	svc, reads := newTestService(t, db, newStubFeeds())
	ctx := context.Background()

	source := seedSource(t, db, "https://example.com/feed")
	grouping := seedGrouping(t, db, "news", source)
	seedItem(t, db, source.ID, "a", "A")

	require.NoError(t, svc.ReadItemFromNotification(ctx, source.ID, "a"))
	unread, err := reads.SourceUnread(ctx, source.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, unread)

	seedItem(t, db, source.ID, "b", "B")
	require.NoError(t, svc.ReadGroupingFromNotification(ctx, grouping.ID))
	count, err := reads.GroupingUnread(ctx, grouping.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}
