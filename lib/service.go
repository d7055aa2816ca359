package lib

import (
	"context"

	"github.com/fiffu/feedsync/config"
	"github.com/fiffu/feedsync/lib/notify"
	"github.com/fiffu/feedsync/notifiers"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB

	reads      *ReadStates
	presenters notifiers.Registry

	*sources
	*groupings
}

func NewService(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	db *gorm.DB,
	fetcher Fetcher,
	parser Parser,
	reconciler *Reconciler,
	reads *ReadStates,
	presenters notifiers.Registry,
) *Service {
	return &Service{
		cfg, log, db, reads, presenters,
		&sources{cfg, log, db, fetcher, parser, reconciler},
		&groupings{cfg, log, db},
	}
}

// ReadItemFromNotification is the mark-read action embedded in a source
// notification: it marks the one item read and dismisses that source's
// notification.
func (svc *Service) ReadItemFromNotification(ctx context.Context, sourceID uint, itemKey string) error {
	if err := svc.reads.SetRead(ctx, sourceID, itemKey, true); err != nil {
		return err
	}
	return svc.presenter().Cancel(ctx, notify.KindSource, sourceID)
}

// ReadGroupingFromNotification marks the whole grouping read and
// dismisses the grouping's notification.
func (svc *Service) ReadGroupingFromNotification(ctx context.Context, groupingID uint) error {
	if err := svc.reads.MarkGroupingRead(ctx, groupingID); err != nil {
		return err
	}
	return svc.presenter().Cancel(ctx, notify.KindGrouping, groupingID)
}

func (svc *Service) presenter() notifiers.Presenter {
	return svc.presenters.For(svc.cfg.Notify.Platform)
}
