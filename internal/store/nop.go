package store

import (
	"time"

	"github.com/amishk599/jobharvest/internal/model"
)

// NopStore is a no-op store used in dry-run mode. It never marks jobs as seen,
// so every record appears new on each run, and it keeps no history.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) HasSeen(site, jobID string) (bool, error)        { return false, nil }
func (s *NopStore) MarkSeen(site, jobID string) error               { return nil }
func (s *NopStore) Cleanup(olderThan time.Duration) error           { return nil }
func (s *NopStore) IsEmpty(site string) (bool, error)               { return false, nil }
func (s *NopStore) RecordRun(run model.RunRecord) error             { return nil }
func (s *NopStore) RecentRuns(limit int) ([]model.RunRecord, error) { return nil, nil }
func (s *NopStore) Close() error                                    { return nil }
