// Package memory provides an in-memory record store for development/testing.
package memory

import (
	"context"
	"sync"

	"github.com/rstiegler/cf1400-downloader/internal/downloader"
)

// RecordStore keeps download records in insertion order.
type RecordStore struct {
	mu      sync.RWMutex
	records []downloader.DownloadRecord
	// InsertErr and LatestErr, when set, are returned instead of touching
	// the records.
	InsertErr error
	LatestErr error
}

// NewRecordStore constructs a RecordStore seeded with records.
func NewRecordStore(records ...downloader.DownloadRecord) *RecordStore {
	return &RecordStore{records: append([]downloader.DownloadRecord(nil), records...)}
}

// Insert appends a record.
func (s *RecordStore) Insert(_ context.Context, record downloader.DownloadRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertErr != nil {
		return s.InsertErr
	}
	s.records = append(s.records, record)
	return nil
}

// Latest returns the record with the highest (year, month, quarter).
func (s *RecordStore) Latest(_ context.Context) (downloader.DownloadRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.LatestErr != nil {
		return downloader.DownloadRecord{}, false, s.LatestErr
	}
	if len(s.records) == 0 {
		return downloader.DownloadRecord{}, false, nil
	}
	best := s.records[0]
	for _, rec := range s.records[1:] {
		if after(rec, best) {
			best = rec
		}
	}
	return best, true, nil
}

// Records returns a copy of all stored records in insertion order.
func (s *RecordStore) Records() []downloader.DownloadRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]downloader.DownloadRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Close is a no-op.
func (s *RecordStore) Close() {}

func after(a, b downloader.DownloadRecord) bool {
	if a.Year != b.Year {
		return a.Year > b.Year
	}
	if a.Month != b.Month {
		return a.Month > b.Month
	}
	return a.Quarter > b.Quarter
}
