package core

import "github.com/vipulpandey12345/member-qa-system-api/internal/store"

// NormalizedRecord is a cleaned view of one MessageRecord, built fresh per
// query evaluation pass and never persisted.
type NormalizedRecord struct {
	Record           *store.MessageRecord
	CleanText        string
	IsLowInformation bool
	QualityScore     float64 // 0..1
}

// MatchKind classifies how a member name was matched in a query.
type MatchKind string

const (
	MatchExact MatchKind = "exact"
	MatchFuzzy MatchKind = "fuzzy"
)

// NameMatch is one candidate member identity for a query, produced by the
// name classifier.
type NameMatch struct {
	UserID     string
	UserName   string
	Kind       MatchKind
	Confidence float64 // 0..1
	span       int     // matched span length, used for tie-breaking
}

// RetrievedCandidate is one retrieval hit, ranked best-first.
type RetrievedCandidate struct {
	Record     NormalizedRecord
	Similarity float64
	Rank       int // 1-based
}

// AnswerResult is the only value returned across the system boundary.
type AnswerResult struct {
	AnswerText    string   `json:"answer"`
	Grounded      bool     `json:"grounded"`
	UsedRecordIDs []string `json:"used_record_ids"`
}
