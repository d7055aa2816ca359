package app

import (
	"database/sql"
	"time"

	"github.com/fiffu/feedsync/lib/models"
)

type SourceView struct {
	ID          uint    `json:"id"`
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	SiteURL     string  `json:"site_url,omitempty"`
	IconURL     string  `json:"icon_url,omitempty"`
	LastFetched *string `json:"last_fetched"`
	Available   bool    `json:"available"`
	NotifyOnNew bool    `json:"notify_on_new"`
}

func (view SourceView) From(entity *models.Source) SourceView {
	return SourceView{
		ID:          entity.ID,
		URL:         entity.URL,
		Title:       entity.Title,
		Description: entity.Description,
		SiteURL:     entity.SiteURL,
		IconURL:     entity.IconURL,
		LastFetched: isoformat(entity.LastFetched),
		Available:   entity.Available,
		NotifyOnNew: entity.NotifyOnNew,
	}
}

type GroupingView struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	IsDefault   bool   `json:"is_default"`
	NotifyOnNew bool   `json:"notify_on_new"`
}

func (view GroupingView) From(entity *models.Grouping) GroupingView {
	return GroupingView{
		ID:          entity.ID,
		Name:        entity.Name,
		IsDefault:   entity.IsDefault,
		NotifyOnNew: entity.NotifyOnNew,
	}
}

type ImportEntryView struct {
	URL          string `json:"url"`
	Title        string `json:"title,omitempty"`
	GroupingName string `json:"grouping_name,omitempty"`
}

type ImportReportView struct {
	Added      []SourceView `json:"added"`
	Duplicates []string     `json:"duplicates"`
}

func (view ImportReportView) From(report *models.ImportReport) ImportReportView {
	added := make([]SourceView, len(report.Added))
	for i := range report.Added {
		added[i] = SourceView{}.From(&report.Added[i])
	}
	return ImportReportView{Added: added, Duplicates: report.Duplicates}
}

type SourceOutcomeView struct {
	SourceID uint   `json:"source_id"`
	Title    string `json:"title"`
	NewItems int    `json:"new_items"`
	Error    string `json:"error,omitempty"`
}

type OutcomeView struct {
	RunID   string              `json:"run_id"`
	Trigger string              `json:"trigger"`
	Scope   string              `json:"scope"`
	State   string              `json:"state"`
	Sources []SourceOutcomeView `json:"sources"`
}

func (view OutcomeView) From(outcome *models.SyncOutcome) OutcomeView {
	sources := make([]SourceOutcomeView, len(outcome.Sources))
	for i, src := range outcome.Sources {
		sources[i] = SourceOutcomeView{
			SourceID: src.Source.ID,
			Title:    src.Source.Title,
			NewItems: len(src.NewlyObserved),
		}
		if src.Err != nil {
			sources[i].Error = src.Err.Error()
		}
	}
	return OutcomeView{
		RunID:   outcome.RunID,
		Trigger: string(outcome.Trigger),
		Scope:   string(outcome.Scope.Kind),
		State:   string(outcome.State),
		Sources: sources,
	}
}

func isoformat(t sql.NullTime) *string {
	if t.Valid {
		s := t.Time.UTC().Format(time.RFC3339)
		return &s
	}
	return nil
}
