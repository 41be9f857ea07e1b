// Package corpus holds the read-only snapshot of member messages shared by
// concurrent requests. The ingestion job builds a fresh snapshot and swaps
// it in wholesale; readers always see a consistent corpus, never a partial
// update.
package corpus

import (
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vipulpandey12345/member-qa-system-api/internal/store"
)

// Member is one deduplicated user_name -> user_id entry for the name
// classifier.
type Member struct {
	UserID   string
	UserName string
}

// Snapshot is an immutable view of the corpus. Nothing mutates a snapshot
// after Build returns it.
type Snapshot struct {
	Version   int64
	BuiltAt   time.Time
	Records   []store.MessageRecord
	byID      map[string]*store.MessageRecord
	byUserID  map[string][]*store.MessageRecord
	members   []Member
}

var version atomic.Int64

// Build indexes the given records into a new snapshot. Records are not
// copied; callers must not mutate them afterwards.
func Build(records []store.MessageRecord) *Snapshot {
	snap := &Snapshot{
		Version:  version.Add(1),
		BuiltAt:  time.Now().UTC(),
		Records:  records,
		byID:     make(map[string]*store.MessageRecord, len(records)),
		byUserID: make(map[string][]*store.MessageRecord),
	}

	seen := make(map[string]struct{})
	for i := range records {
		rec := &records[i]
		snap.byID[rec.ID] = rec
		snap.byUserID[rec.UserID] = append(snap.byUserID[rec.UserID], rec)

		key := strings.ToLower(strings.TrimSpace(rec.UserName))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			snap.members = append(snap.members, Member{UserID: rec.UserID, UserName: strings.TrimSpace(rec.UserName)})
		}
	}

	// Deterministic member order regardless of record order.
	sort.Slice(snap.members, func(i, j int) bool {
		return snap.members[i].UserName < snap.members[j].UserName
	})

	return snap
}

// ByID returns the record with the given id, or nil.
func (s *Snapshot) ByID(id string) *store.MessageRecord {
	return s.byID[id]
}

// ByUserID returns all records authored by the given member.
func (s *Snapshot) ByUserID(userID string) []*store.MessageRecord {
	return s.byUserID[userID]
}

// Members returns the deduplicated member roster, sorted by name.
func (s *Snapshot) Members() []Member {
	return s.members
}

// HasUser reports whether any record was authored by the given user id.
func (s *Snapshot) HasUser(userID string) bool {
	_, ok := s.byUserID[userID]
	return ok
}

// Holder publishes the current snapshot to readers. Swap is atomic, so a
// request observes exactly one snapshot for its whole lifetime by calling
// Current once up front.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

func NewHolder(initial *Snapshot) *Holder {
	h := &Holder{}
	if initial != nil {
		h.current.Store(initial)
	} else {
		h.current.Store(Build(nil))
	}
	return h
}

// Current returns the latest published snapshot.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Swap publishes a new snapshot.
func (h *Holder) Swap(snap *Snapshot) {
	h.current.Store(snap)
}
