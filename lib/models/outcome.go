package models

type SyncTrigger string

const (
	TriggerPeriodic SyncTrigger = "periodic"
	TriggerLaunch   SyncTrigger = "launch"
	TriggerManual   SyncTrigger = "manual"
)

type ScopeKind string

const (
	ScopeSource   ScopeKind = "source"
	ScopeGrouping ScopeKind = "grouping"
	ScopeAll      ScopeKind = "all"
)

// SyncScope names the set of Sources one run targets. ID is ignored for
// ScopeAll.
type SyncScope struct {
	Kind ScopeKind
	ID   uint
}

func ScopeOfSource(id uint) SyncScope   { return SyncScope{ScopeSource, id} }
func ScopeOfGrouping(id uint) SyncScope { return SyncScope{ScopeGrouping, id} }
func ScopeOfAll() SyncScope             { return SyncScope{ScopeAll, 0} }

type RunState string

const (
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
)

// SourceOutcome records how one Source fared within a run. Err is nil on
// success; NewlyObserved holds only items not previously stored.
type SourceOutcome struct {
	Source        Source
	NewlyObserved Items
	Err           error
}

func (o SourceOutcome) Succeeded() bool { return o.Err == nil }

// SyncOutcome is the terminal result of one run. State is RunFailed only
// when the scope could not be resolved at all; individual source failures
// live in Sources and never fail the run.
type SyncOutcome struct {
	RunID   string
	Scope   SyncScope
	Trigger SyncTrigger
	State   RunState
	Sources []SourceOutcome
	Err     error
}

func (o *SyncOutcome) Failures() []SourceOutcome {
	var failed []SourceOutcome
	for _, src := range o.Sources {
		if src.Err != nil {
			failed = append(failed, src)
		}
	}
	return failed
}
