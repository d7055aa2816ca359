package syncer

import "github.com/fiffu/feedsync/lib/models"

type runMetrics struct {
	totalSelected int
	succeeded     int
	failed        int
	newItems      int
}

func (m *runMetrics) Record(outcome models.SourceOutcome) {
	if outcome.Succeeded() {
		m.succeeded++
		m.newItems += len(outcome.NewlyObserved)
	} else {
		m.failed++
	}
}
