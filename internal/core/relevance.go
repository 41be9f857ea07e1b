package core

import "sort"

// RelevanceFilter drops records that cannot support an answer: low-
// information fragments and anything under the quality cutoff. Purely
// deterministic, so the same corpus and query always produce the same
// candidate set.
type RelevanceFilter struct {
	QualityCutoff float64
}

func NewRelevanceFilter(cutoff float64) *RelevanceFilter {
	if cutoff < 0 || cutoff > 1 {
		cutoff = 0.3
	}
	return &RelevanceFilter{QualityCutoff: cutoff}
}

// Filter returns the actionable subset ranked by quality_score descending.
// Ties keep the more recent record first.
func (f *RelevanceFilter) Filter(records []NormalizedRecord) []NormalizedRecord {
	kept := make([]NormalizedRecord, 0, len(records))
	for _, r := range records {
		if r.IsLowInformation || r.QualityScore < f.QualityCutoff {
			continue
		}
		kept = append(kept, r)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].QualityScore != kept[j].QualityScore {
			return kept[i].QualityScore > kept[j].QualityScore
		}
		return kept[i].Record.Timestamp.After(kept[j].Record.Timestamp)
	})
	return kept
}
