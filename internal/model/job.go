package model

import (
	"context"
	"time"
)

// RecordSource produces the records of one site.
type RecordSource interface {
	Collect(ctx context.Context) (SiteResult, error)
}

// IDStore tracks which job identifiers have been seen per site.
type IDStore interface {
	HasSeen(site, jobID string) (bool, error)
	MarkSeen(site, jobID string) error
	Cleanup(olderThan time.Duration) error
	// IsEmpty reports whether nothing has been recorded for site yet.
	IsEmpty(site string) (bool, error)
}

// RunRecorder keeps a history of runs.
type RunRecorder interface {
	RecordRun(run RunRecord) error
}

// Notifier sends notifications for newly discovered postings.
type Notifier interface {
	Notify(site string, records []Record) error
}

// RecordFilter decides whether a record is worth a notification.
type RecordFilter interface {
	Match(r Record) bool
}

// RecordKey identifies a record within its site: the job id when known,
// otherwise the detail URL, otherwise title and company.
func RecordKey(r Record) string {
	if id := r.Get(FieldJobID); id != "" {
		return id
	}
	if u := r.Get(FieldURL); u != "" {
		return u
	}
	t := r.Get(FieldTitle)
	if t == "" {
		return ""
	}
	return t + "|" + r.Get(FieldCompany)
}
