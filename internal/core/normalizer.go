package core

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/vipulpandey12345/member-qa-system-api/internal/store"
)

// punctReplacer maps common Unicode punctuation variants onto their ASCII
// equivalents so downstream matching does not trip over smart quotes or
// em-dashes pasted in from other apps.
var punctReplacer = strings.NewReplacer(
	"—", " - ", // em dash
	"–", " - ", // en dash
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"…", "...",
	" ", " ", // non-breaking space
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// Pure gratitude/acknowledgement phrases. A message that is only this
	// carries no actionable request.
	gratitudeRe = regexp.MustCompile(`(?i)\b(thank(s|\s+you)?|thanks\s+a\s+lot|appreciate\s+(it|you|that)|much\s+appreciated|cheers|got\s+it|perfect|great,?\s+thanks)\b`)

	// Verbs that indicate an actionable request.
	requestVerbRe = regexp.MustCompile(`(?i)\b(book|need|reserve|want|arrange|schedule|order|looking\s+for|can\s+you|could\s+you|please)\b`)

	// Concrete entities: digits, month names, small spelled-out counts.
	entityRe = regexp.MustCompile(`(?i)(\d|\b(january|february|march|april|may|june|july|august|september|october|november|december)\b|\b(one|two|three|four|five|six|seven|eight|nine|ten)\b)`)
)

// Normalizer cleans raw message records into NormalizedRecords. It is a
// pure function over its input and never fails: garbage in produces a
// low-information record with quality 0, not an error.
type Normalizer struct {
	MinTokens int // records with fewer tokens are low-information
}

func NewNormalizer(minTokens int) *Normalizer {
	if minTokens <= 0 {
		minTokens = 3
	}
	return &Normalizer{MinTokens: minTokens}
}

func (n *Normalizer) Normalize(rec *store.MessageRecord) NormalizedRecord {
	if rec == nil {
		return NormalizedRecord{IsLowInformation: true, QualityScore: 0}
	}

	clean := CleanText(rec.Message)
	out := NormalizedRecord{Record: rec, CleanText: clean}

	tokens := strings.Fields(clean)
	if len(tokens) < n.MinTokens {
		out.IsLowInformation = true
		out.QualityScore = 0
		return out
	}

	hasVerb := requestVerbRe.MatchString(clean)
	if gratitudeRe.MatchString(clean) && !hasVerb {
		out.IsLowInformation = true
		out.QualityScore = 0
		return out
	}

	out.QualityScore = qualityScore(tokens, hasVerb, entityRe.MatchString(clean))
	return out
}

// CleanText collapses whitespace, repairs encoding artifacts, and maps
// Unicode punctuation variants to ASCII without touching the words
// themselves.
func CleanText(text string) string {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, " ")
	}
	text = norm.NFC.String(text)
	text = punctReplacer.Replace(text)

	// Drop control characters that survive copy-paste from rich clients.
	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, text)

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// qualityScore combines message length, request-verb presence, and concrete
// entities into a 0..1 heuristic. Weights favor short messages that still
// read like a request over long rambles that do not.
func qualityScore(tokens []string, hasVerb, hasEntity bool) float64 {
	lengthFactor := float64(len(tokens)) / 12.0
	if lengthFactor > 1 {
		lengthFactor = 1
	}

	score := 0.4 * lengthFactor
	if hasVerb {
		score += 0.35
	}
	if hasEntity {
		score += 0.25
	}
	return score
}
