package syncer

import (
	"context"
	"time"

	"github.com/fiffu/feedsync/lib/models"
)

type Event interface {
	Timestamp() time.Time
}

type event struct{ timestamp time.Time }

func (e event) Timestamp() time.Time { return e.timestamp }

type launchWakeupEvent struct {
	event
}

type periodicWakeupEvent struct {
	event
}

type requestWakeupEvent struct {
	event
	Scope   models.SyncScope
	Trigger models.SyncTrigger
}

type alarmClock struct {
	wakeupTimer *time.Ticker
	requestC    chan requestWakeupEvent
	done        chan struct{}
	C           chan Event
}

func NewAlarmClock(wakeupInterval time.Duration) *alarmClock {
	return &alarmClock{
		wakeupTimer: time.NewTicker(wakeupInterval),
		requestC:    make(chan requestWakeupEvent),
		done:        make(chan struct{}),
		C:           make(chan Event),
	}
}

// Start emits an immediate launch wakeup, then forwards periodic and
// requested wakeups until the clock stops. C is closed by this goroutine
// only, so consumers ranging over it terminate cleanly.
func (a *alarmClock) Start(ctx context.Context) <-chan Event {
	go func() {
		defer close(a.C)

		if !a.emit(ctx, launchWakeupEvent{event{time.Now()}}) {
			return
		}
		for {
			select {
			case t := <-a.wakeupTimer.C:
				if !a.emit(ctx, periodicWakeupEvent{event{t}}) {
					return
				}

			case req := <-a.requestC:
				if !a.emit(ctx, req) {
					return
				}

			case <-ctx.Done():
				return

			case <-a.done:
				return
			}
		}
	}()

	return a.C
}

// emit hands the event to the consumer, bailing out if the clock stops
// mid-send.
func (a *alarmClock) emit(ctx context.Context, evt Event) bool {
	select {
	case a.C <- evt:
		return true
	case <-ctx.Done():
		return false
	case <-a.done:
		return false
	}
}

// Request enqueues an out-of-band wakeup. After Stop it is a no-op.
func (a *alarmClock) Request(scope models.SyncScope, trigger models.SyncTrigger) {
	select {
	case a.requestC <- requestWakeupEvent{event{time.Now()}, scope, trigger}:
	case <-a.done:
	}
}

func (a *alarmClock) Stop() {
	a.wakeupTimer.Stop()
	close(a.done)
}
