package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/fiffu/feedsync/config"
	"github.com/fiffu/feedsync/lib"
	"github.com/fiffu/feedsync/lib/models"
	"github.com/fiffu/feedsync/notifiers"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var mu sync.Mutex

const scheduledRunTimeout = 10 * time.Minute

func NewSyncer(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	db *gorm.DB,
	fetcher lib.Fetcher,
	parser lib.Parser,
	reconciler *lib.Reconciler,
	reads *lib.ReadStates,
	presenters notifiers.Registry,
) *Syncer {
	syncer := Syncer{
		cfg, log, db, fetcher, parser, reconciler, reads, presenters,
		&mu, NewAlarmClock(cfg.SyncInterval()),
		cfg.FetchTimeout(), cfg.ItemRetention(),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go syncer.Start(ctx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Sugar().Info("Trying to stop syncer")
			syncer.Stop()
			return nil
		},
	})

	return &syncer
}

// Syncer drives sync runs: one immediately on launch, one per periodic
// wakeup, plus any runs requested through TriggerNow. Scheduled runs are
// mutually exclusive; a periodic wakeup that overlaps a run still in
// flight is dropped, not queued.
type Syncer struct {
	cfg        *config.Config
	log        *zap.Logger
	db         *gorm.DB
	fetcher    lib.Fetcher
	parser     lib.Parser
	reconciler *lib.Reconciler
	reads      *lib.ReadStates
	presenters notifiers.Registry

	mu         *sync.Mutex
	alarmClock *alarmClock

	fetchTimeout time.Duration // cap on each source's fetch
	retention    time.Duration // purge items first seen before this long ago
}

func (s *Syncer) Start(ctx context.Context) {
	c := s.alarmClock.Start(ctx)

	go func() {
		for evt := range c {
			s.handleEvent(evt)
		}
	}()
}

func (s *Syncer) Stop() {
	s.mu.Lock()
	s.alarmClock.Stop()
	s.log.Sugar().Info("Syncer stopped")
}

// TriggerNow requests a run outside the periodic cadence. Requested runs
// execute independently of scheduled ones; the store's per-source write
// atomicity is the correctness boundary between concurrent runs.
func (s *Syncer) TriggerNow(scope models.SyncScope, trigger models.SyncTrigger) {
	s.alarmClock.Request(scope, trigger)
}

func (s *Syncer) handleEvent(evt Event) {
	switch e := evt.(type) {
	case launchWakeupEvent:
		s.runScheduled(models.ScopeOfAll(), models.TriggerLaunch)
	case periodicWakeupEvent:
		s.runScheduled(models.ScopeOfAll(), models.TriggerPeriodic)
	case requestWakeupEvent:
		go s.runWithTimeout(e.Scope, e.Trigger)
	}
}

func (s *Syncer) runScheduled(scope models.SyncScope, trigger models.SyncTrigger) {
	if !s.mu.TryLock() {
		// Keep-existing policy: the in-flight run wins.
		s.log.Sugar().Infof("Dropping %s sync, another scheduled run is in flight", trigger)
		return
	}
	defer s.mu.Unlock()

	s.runWithTimeout(scope, trigger)
}

func (s *Syncer) runWithTimeout(scope models.SyncScope, trigger models.SyncTrigger) {
	ctx, cancel := context.WithTimeout(context.Background(), scheduledRunTimeout)
	defer cancel()
	s.RunSync(ctx, scope, trigger)
}
