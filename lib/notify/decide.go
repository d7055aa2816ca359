// Package notify holds the notification decision logic. Decide is a pure
// function over a run's results; rendering and delivery live elsewhere.
package notify

import (
	"fmt"

	"github.com/fiffu/feedsync/lib/models"
)

type Kind string

const (
	KindSource   Kind = "source"
	KindGrouping Kind = "grouping"
)

// Intent is one notification to present. Presenters collapse intents by
// (Kind, OwnerID), so a later intent supersedes an earlier one for the
// same owner.
type Intent struct {
	Kind    Kind
	OwnerID uint
	Title   string
	Body    string

	// ItemKey names the article a source intent's mark-read action
	// targets. Empty on grouping intents.
	ItemKey string
	// Unread is the grouping's live unread total. Zero on source intents.
	Unread int64
}

// GroupingDigest carries a grouping's live unread aggregate into Decide.
// Callers pass digests only for groupings whose notification toggle is
// enabled.
type GroupingDigest struct {
	Grouping models.Grouping
	Unread   int64
	Sample   *models.Item
}

// Decide maps one run's results to notification intents.
//
// Launch and Manual runs update state silently. Periodic runs emit one
// intent per newly observed item for each source with notifications
// enabled, and one summary intent per toggled grouping with a non-zero
// unread count. Source intents key off items not previously stored;
// grouping intents key off the live unread aggregate.
func Decide(trigger models.SyncTrigger, results []models.SourceOutcome, groupings []GroupingDigest) []Intent {
	if trigger != models.TriggerPeriodic {
		return nil
	}

	var intents []Intent
	for _, outcome := range results {
		if !outcome.Succeeded() || !outcome.Source.NotifyOnNew {
			continue
		}
		for _, item := range outcome.NewlyObserved {
			intents = append(intents, Intent{
				Kind:    KindSource,
				OwnerID: outcome.Source.ID,
				Title:   outcome.Source.Title,
				Body:    item.Title,
				ItemKey: item.Key,
			})
		}
	}

	for _, digest := range groupings {
		if digest.Unread == 0 {
			continue
		}
		intents = append(intents, Intent{
			Kind:    KindGrouping,
			OwnerID: digest.Grouping.ID,
			Title:   digest.Grouping.Name,
			Body:    summarize(digest),
			Unread:  digest.Unread,
		})
	}
	return intents
}

func summarize(digest GroupingDigest) string {
	if digest.Unread == 1 && digest.Sample != nil {
		return digest.Sample.Title
	}
	return fmt.Sprintf("%d unread articles", digest.Unread)
}
