package model

import "time"

// StopReason records why a site's discovery ended.
type StopReason string

const (
	StopNone             StopReason = ""
	StopNoNextControl    StopReason = "no_next_control"
	StopNoNewItems       StopReason = "no_new_items"
	StopNoCards          StopReason = "no_cards"
	StopMaxSteps         StopReason = "max_steps"
	StopMaxItems         StopReason = "max_items"
	StopStepFailed       StopReason = "step_failed"
	StopNavigationFailed StopReason = "navigation_failed"
)

// Partial reports whether the stop was caused by a failure rather than by
// reaching the natural end or a configured bound.
func (r StopReason) Partial() bool {
	return r == StopStepFailed || r == StopNavigationFailed
}

// SiteResult is the immutable outcome of one site run.
type SiteResult struct {
	Site     string
	Records  []Record
	IDs      int // identifiers discovered before enrichment, 0 for card flows
	New      int // records not seen in earlier runs
	Steps    int
	Reason   StopReason
	Err      error // set when the run aborted; Records may still hold partial data
	Started  time.Time
	Finished time.Time
}

// Aborted reports whether the initial navigation failed.
func (r SiteResult) Aborted() bool {
	return r.Reason == StopNavigationFailed
}

// RunRecord summarizes one run across all sites for bookkeeping.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Sites      int
	Failed     int
	Records    int
	OutputPath string
}
