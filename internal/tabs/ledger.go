package tabs

import (
	"sort"
	"time"
)

// ClosedRecord remembers where a tab sat when it was closed.
type ClosedRecord struct {
	URL      string    `json:"url"`
	WindowID WindowID  `json:"window_id"`
	Index    int       `json:"index"`
	Title    string    `json:"title,omitempty"`
	ClosedAt time.Time `json:"closed_at"`
}

type ledgerKey struct {
	url    string
	window WindowID
}

// Ledger is the short-lived record of recently closed tabs, keyed by
// (url, window). A repeated closure of the same key replaces the earlier
// record. Not safe for concurrent use.
type Ledger struct {
	clock   Clock
	records map[ledgerKey]ClosedRecord
}

func NewLedger(clock Clock) *Ledger {
	if clock == nil {
		clock = SystemClock()
	}
	return &Ledger{clock: clock, records: make(map[ledgerKey]ClosedRecord)}
}

// RecordClosure stores a closure stamped with the current time.
func (l *Ledger) RecordClosure(url string, w WindowID, index int, title string) ClosedRecord {
	rec := ClosedRecord{
		URL:      url,
		WindowID: w,
		Index:    index,
		Title:    title,
		ClosedAt: l.clock.Now(),
	}
	l.records[ledgerKey{url: url, window: w}] = rec
	return rec
}

// FindMatch returns the record for (url, w) when it is younger than maxAge.
// Lookups never modify the ledger; expired records stay until swept.
func (l *Ledger) FindMatch(url string, w WindowID, maxAge time.Duration) (ClosedRecord, bool) {
	rec, ok := l.records[ledgerKey{url: url, window: w}]
	if !ok {
		return ClosedRecord{}, false
	}
	if l.clock.Now().Sub(rec.ClosedAt) >= maxAge {
		return ClosedRecord{}, false
	}
	return rec, true
}

// Invalidate drops the record for (url, w) so it cannot match again.
func (l *Ledger) Invalidate(url string, w WindowID) {
	delete(l.records, ledgerKey{url: url, window: w})
}

// SweepExpired removes every record at least retention old and returns how
// many were removed.
func (l *Ledger) SweepExpired(retention time.Duration) int {
	now := l.clock.Now()
	removed := 0
	for k, rec := range l.records {
		if now.Sub(rec.ClosedAt) >= retention {
			delete(l.records, k)
			removed++
		}
	}
	return removed
}

func (l *Ledger) Len() int {
	return len(l.records)
}

// Records returns all records, newest first.
func (l *Ledger) Records() []ClosedRecord {
	out := make([]ClosedRecord, 0, len(l.records))
	for _, rec := range l.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClosedAt.Equal(out[j].ClosedAt) {
			return out[i].URL < out[j].URL
		}
		return out[i].ClosedAt.After(out[j].ClosedAt)
	})
	return out
}
