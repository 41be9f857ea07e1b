package core

import (
	"log"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/vipulpandey12345/member-qa-system-api/internal/corpus"
)

// capitalizedSeqRe finds capitalized word sequences that look like names,
// used only to log "possible name, no corpus match" queries.
var capitalizedSeqRe = regexp.MustCompile(`\p{Lu}[\p{Ll}\p{M}']+(?:\s+\p{Lu}[\p{Ll}\p{M}']+)*`)

// NameClassifier maps a free-text query to candidate member identities
// without any LLM involvement. Exact matches short-circuit the fuzzy pass.
type NameClassifier struct {
	FuzzyFloor float64 // minimum similarity for a fuzzy match
}

func NewNameClassifier(fuzzyFloor float64) *NameClassifier {
	if fuzzyFloor <= 0 || fuzzyFloor > 1 {
		fuzzyFloor = 0.8
	}
	return &NameClassifier{FuzzyFloor: fuzzyFloor}
}

// Classify returns candidate matches ordered best-first. Ties break on
// higher confidence, then on the shorter matched span (the more specific
// match wins).
func (c *NameClassifier) Classify(query string, members []corpus.Member) []NameMatch {
	queryTokens := wordTokens(query)
	if len(queryTokens) == 0 || len(members) == 0 {
		return nil
	}

	best := make(map[string]NameMatch)

	// Pass 1: exact case-insensitive match of the full name or a name
	// token (first/last name) inside the query.
	for _, m := range members {
		nameTokens := wordTokens(m.UserName)
		if len(nameTokens) == 0 {
			continue
		}
		if span, ok := exactSpan(queryTokens, nameTokens); ok {
			keepBest(best, NameMatch{UserID: m.UserID, UserName: m.UserName, Kind: MatchExact, Confidence: 1.0, span: span})
		}
	}

	// Pass 2: fuzzy match against diacritic-folded names, only when no
	// exact match resolved the query.
	if len(best) == 0 {
		for _, m := range members {
			sim, span := c.fuzzySimilarity(queryTokens, m.UserName)
			if sim >= c.FuzzyFloor {
				keepBest(best, NameMatch{UserID: m.UserID, UserName: m.UserName, Kind: MatchFuzzy, Confidence: sim, span: span})
			}
		}
	}

	// Pass 3: flag name-like token sequences with no corpus match. These
	// never become a NameMatch; they only explain empty results in logs.
	if len(best) == 0 {
		for _, seq := range capitalizedSeqRe.FindAllString(query, -1) {
			if len(wordTokens(seq)) > 0 && !knownName(seq, members) {
				log.Printf("Name classifier: possible name %q has no corpus match", seq)
			}
		}
	}

	matches := make([]NameMatch, 0, len(best))
	for _, m := range best {
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		if matches[i].span != matches[j].span {
			return matches[i].span < matches[j].span
		}
		return matches[i].UserID < matches[j].UserID
	})
	return matches
}

// keepBest keeps the strongest match per member.
func keepBest(best map[string]NameMatch, m NameMatch) {
	prev, ok := best[m.UserID]
	if !ok || m.Confidence > prev.Confidence || (m.Confidence == prev.Confidence && m.span < prev.span) {
		best[m.UserID] = m
	}
}

// exactSpan reports whether nameTokens occur as a contiguous, case-
// insensitive token run in queryTokens, or whether a single meaningful
// name token does. Returns the matched span in runes.
func exactSpan(queryTokens, nameTokens []string) (int, bool) {
	// Full-name run.
	if len(nameTokens) <= len(queryTokens) {
		for i := 0; i+len(nameTokens) <= len(queryTokens); i++ {
			matched := true
			span := 0
			for j, nt := range nameTokens {
				if !strings.EqualFold(queryTokens[i+j], nt) {
					matched = false
					break
				}
				span += len([]rune(nt))
			}
			if matched {
				return span, true
			}
		}
	}

	// Single first/last name token. Short tokens (initials, particles)
	// are skipped to keep false positives down.
	for _, nt := range nameTokens {
		if len([]rune(nt)) < 3 {
			continue
		}
		for _, qt := range queryTokens {
			if strings.EqualFold(qt, nt) {
				return len([]rune(nt)), true
			}
		}
	}
	return 0, false
}

// fuzzySimilarity scores the best edit-distance similarity between the
// member name and any same-length token window of the query. Both sides
// are diacritic-folded first, so "Muller" matches "Müller".
func (c *NameClassifier) fuzzySimilarity(queryTokens []string, userName string) (float64, int) {
	nameTokens := wordTokens(userName)
	if len(nameTokens) == 0 {
		return 0, 0
	}
	foldedName := foldString(strings.Join(nameTokens, " "))

	bestSim := 0.0
	bestSpan := 0
	consider := func(candidate string) {
		folded := foldString(candidate)
		sim := similarity(foldedName, folded)
		if sim > bestSim {
			bestSim = sim
			bestSpan = len([]rune(candidate))
		}
	}

	// Token windows of the same length as the name.
	if len(nameTokens) <= len(queryTokens) {
		for i := 0; i+len(nameTokens) <= len(queryTokens); i++ {
			consider(strings.Join(queryTokens[i:i+len(nameTokens)], " "))
		}
	}

	// Individual query tokens against individual name tokens, for
	// queries carrying only a misspelled first or last name.
	for _, nt := range nameTokens {
		if len([]rune(nt)) < 3 {
			continue
		}
		foldedToken := foldString(nt)
		for _, qt := range queryTokens {
			sim := similarity(foldedToken, foldString(qt))
			if sim > bestSim {
				bestSim = sim
				bestSpan = len([]rune(qt))
			}
		}
	}

	return bestSim, bestSpan
}

// similarity converts edit distance to a 0..1 score relative to the longer
// string.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	dist := levenshtein.ComputeDistance(a, b)
	if dist >= maxLen {
		return 0
	}
	return 1 - float64(dist)/float64(maxLen)
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldString lowercases and strips diacritics for comparison.
func foldString(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// wordTokens splits text into letter/digit runs, dropping punctuation.
func wordTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r) && r != '\''
	})
}

func knownName(candidate string, members []corpus.Member) bool {
	folded := foldString(candidate)
	for _, m := range members {
		if strings.Contains(foldString(m.UserName), folded) || strings.Contains(folded, foldString(m.UserName)) {
			return true
		}
	}
	return false
}
