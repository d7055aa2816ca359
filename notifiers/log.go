package notifiers

import (
	"context"
	"fmt"
	"sync"

	"github.com/fiffu/feedsync/lib/notify"
)

type intentKey struct {
	kind    notify.Kind
	ownerID uint
}

// logPresenter renders notifications to the process log and retains the
// latest intent per (kind, owner), so a newer intent for the same owner
// replaces the one before it.
type logPresenter struct {
	base

	mu     sync.Mutex
	active map[intentKey]notify.Intent
}

func newLogPresenter(base base) *logPresenter {
	return &logPresenter{base: base, active: make(map[intentKey]notify.Intent)}
}

func (p *logPresenter) Present(ctx context.Context, intent notify.Intent) (string, error) {
	key := intentKey{intent.Kind, intent.OwnerID}

	p.mu.Lock()
	p.active[key] = intent
	p.mu.Unlock()

	format := formatIntent(intent)
	p.log.Sugar().Infow(format.Subject(), "kind", intent.Kind, "owner_id", intent.OwnerID, "body", intent.Body)
	return fmt.Sprintf("%s:%d", intent.Kind, intent.OwnerID), nil
}

func (p *logPresenter) Cancel(ctx context.Context, kind notify.Kind, ownerID uint) error {
	p.mu.Lock()
	delete(p.active, intentKey{kind, ownerID})
	p.mu.Unlock()

	p.log.Sugar().Infof("Dismissed notification %s id:%v", kind, ownerID)
	return nil
}

// Active returns the currently shown intent for a key, if any.
func (p *logPresenter) Active(kind notify.Kind, ownerID uint) (notify.Intent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	intent, ok := p.active[intentKey{kind, ownerID}]
	return intent, ok
}
