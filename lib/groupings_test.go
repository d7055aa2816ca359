package lib

import (
	"context"
	"testing"

	"github.com/fiffu/feedsync/lib/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaultGrouping_AtMostOneDefault(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db, newStubFeeds())
	ctx := context.Background()

	first, err := svc.CreateGrouping(ctx, "first")
	require.NoError(t, err)
	second, err := svc.CreateGrouping(ctx, "second")
	require.NoError(t, err)

	require.NoError(t, svc.SetDefaultGrouping(ctx, first.ID))
	require.NoError(t, svc.SetDefaultGrouping(ctx, second.ID))

	var defaults int64
	require.NoError(t, db.Model(&models.Grouping{}).Where("is_default = ?", true).Count(&defaults).Error)
	assert.EqualValues(t, 1, defaults)

	current, err := svc.GetGrouping(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, current.IsDefault)
}

func TestDeleteGrouping_KeepsMemberSources(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db, newStubFeeds())
	ctx := context.Background()

	source := seedSource(t, db, "https://example.com/feed")
	grouping := seedGrouping(t, db, "news", source)

	require.NoError(t, svc.DeleteGrouping(ctx, grouping.ID))

	var memberships int64
	require.NoError(t, db.Model(&models.Membership{}).Count(&memberships).Error)
	assert.EqualValues(t, 0, memberships)

	// The member source survives its grouping.
	_, err := svc.GetSource(ctx, source.ID)
	assert.NoError(t, err)
}

func TestAssignToGrouping_Idempotent(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db, newStubFeeds())
	ctx := context.Background()

	source := seedSource(t, db, "https://example.com/feed")
	grouping := seedGrouping(t, db, "news")

	require.NoError(t, svc.AssignToGrouping(ctx, source.ID, grouping.ID))
	require.NoError(t, svc.AssignToGrouping(ctx, source.ID, grouping.ID))

	var memberships int64
	require.NoError(t, db.Model(&models.Membership{}).Count(&memberships).Error)
	assert.EqualValues(t, 1, memberships)

	members, err := svc.GroupingMembers(ctx, grouping.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, source.ID, members[0].ID)
}

func TestRemoveFromGrouping_NotFoundWhenAbsent(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db, newStubFeeds())
	ctx := context.Background()

	source := seedSource(t, db, "https://example.com/feed")
	grouping := seedGrouping(t, db, "news")

	err := svc.RemoveFromGrouping(ctx, source.ID, grouping.ID)
	assert.True(t, models.IsNotFound(err))
}

func TestGroupingOps_NotFound(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db, newStubFeeds())
	ctx := context.Background()

	assert.True(t, models.IsNotFound(svc.SetDefaultGrouping(ctx, 404)))
	assert.True(t, models.IsNotFound(svc.RenameGrouping(ctx, 404, "renamed")))
	assert.True(t, models.IsNotFound(svc.DeleteGrouping(ctx, 404)))
	assert.True(t, models.IsNotFound(svc.SetGroupingNotify(ctx, 404, false)))
}
