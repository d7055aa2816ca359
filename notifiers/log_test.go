package notifiers

import (
	"context"
	"testing"

	"github.com/fiffu/feedsync/config"
	"github.com/fiffu/feedsync/lib/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRegistry() Registry {
	cfg := &config.Config{}
	cfg.Notify.Platform = "log"
	return NewRegistry(nil, zap.NewNop(), cfg, nil)
}

func TestLogPresenter_CollapsesByKindAndOwner(t *testing.T) {
	p := newTestRegistry().For("log").(*logPresenter)
	ctx := context.Background()

	first := notify.Intent{Kind: notify.KindSource, OwnerID: 1, Title: "Example", Body: "First", ItemKey: "a"}
	second := notify.Intent{Kind: notify.KindSource, OwnerID: 1, Title: "Example", Body: "Second", ItemKey: "b"}

	_, err := p.Present(ctx, first)
	require.NoError(t, err)
	_, err = p.Present(ctx, second)
	require.NoError(t, err)

	// The later intent supersedes the earlier one for the same key.
	shown, ok := p.Active(notify.KindSource, 1)
	require.True(t, ok)
	assert.Equal(t, "b", shown.ItemKey)

	// A grouping intent for the same owner id is a different key.
	grouping := notify.Intent{Kind: notify.KindGrouping, OwnerID: 1, Title: "news", Unread: 3}
	_, err = p.Present(ctx, grouping)
	require.NoError(t, err)
	shown, ok = p.Active(notify.KindSource, 1)
	require.True(t, ok)
	assert.Equal(t, "b", shown.ItemKey)
}

func TestLogPresenter_Cancel(t *testing.T) {
	p := newTestRegistry().For("log").(*logPresenter)
	ctx := context.Background()

	intent := notify.Intent{Kind: notify.KindGrouping, OwnerID: 9, Title: "news", Unread: 2}
	_, err := p.Present(ctx, intent)
	require.NoError(t, err)

	require.NoError(t, p.Cancel(ctx, notify.KindGrouping, 9))
	_, ok := p.Active(notify.KindGrouping, 9)
	assert.False(t, ok)

	// Cancelling an absent key is harmless.
	assert.NoError(t, p.Cancel(ctx, notify.KindGrouping, 9))
}

func TestRegistry_FallsBackToLog(t *testing.T) {
	registry := newTestRegistry()
	assert.Same(t, registry.For("log"), registry.For("carrier-pigeon"))
}
