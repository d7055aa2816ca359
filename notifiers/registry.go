package notifiers

import (
	"context"
	"net/http"

	"github.com/fiffu/feedsync/config"
	"github.com/fiffu/feedsync/lib/notify"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Presenter renders notification intents on some platform. Presenting a
// second intent for the same (kind, owner) supersedes the first; Cancel
// withdraws whatever is currently shown for that key, where the platform
// allows it.
type Presenter interface {
	Present(ctx context.Context, intent notify.Intent) (string, error)
	Cancel(ctx context.Context, kind notify.Kind, ownerID uint) error
}

type Registry map[string]Presenter

func NewRegistry(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config, transport http.RoundTripper) Registry {
	base := base{log, cfg, transport}
	return Registry{
		"email": &emailPresenter{base},
		"log":   newLogPresenter(base),
	}
}

// For picks the presenter for a platform, falling back to the log
// presenter for anything unknown.
func (r Registry) For(platform string) Presenter {
	if p, ok := r[platform]; ok {
		return p
	}
	return r["log"]
}

type base struct {
	log       *zap.Logger
	cfg       *config.Config
	transport http.RoundTripper
}
