package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vipulpandey12345/member-qa-system-api/internal/corpus"
)

var testMembers = []corpus.Member{
	{UserID: "u1", UserName: "Hans Müller"},
	{UserID: "u2", UserName: "Alice Johnson"},
	{UserID: "u3", UserName: "Bob Smith"},
}

func TestClassify_ExactFullName(t *testing.T) {
	c := NewNameClassifier(0.8)

	matches := c.Classify("What does Hans Müller need for November 10?", testMembers)

	require.Len(t, matches, 1)
	assert.Equal(t, "u1", matches[0].UserID)
	assert.Equal(t, MatchExact, matches[0].Kind)
	assert.Equal(t, 1.0, matches[0].Confidence)
}

func TestClassify_ExactNameToken(t *testing.T) {
	c := NewNameClassifier(0.8)

	matches := c.Classify("what is alice asking for?", testMembers)

	require.Len(t, matches, 1)
	assert.Equal(t, "u2", matches[0].UserID)
	assert.Equal(t, MatchExact, matches[0].Kind)
	assert.Equal(t, 1.0, matches[0].Confidence)
}

func TestClassify_FuzzyMisspelling(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "one edit surname", query: "What does Mueller need?", want: "u1"},
		{name: "one edit surname dropped letter", query: "What did Smithe request?", want: "u3"},
		{name: "two edits full name", query: "Anything from Alise Johnsen?", want: "u2"},
	}

	c := NewNameClassifier(0.8)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			matches := c.Classify(tc.query, testMembers)
			require.NotEmpty(t, matches)
			assert.Equal(t, tc.want, matches[0].UserID)
			assert.Equal(t, MatchFuzzy, matches[0].Kind)
			assert.GreaterOrEqual(t, matches[0].Confidence, 0.8)
		})
	}
}

func TestClassify_DiacriticVariant(t *testing.T) {
	c := NewNameClassifier(0.8)

	matches := c.Classify("What does Muller need?", testMembers)

	require.NotEmpty(t, matches)
	assert.Equal(t, "u1", matches[0].UserID)
	assert.Equal(t, MatchFuzzy, matches[0].Kind)
	assert.GreaterOrEqual(t, matches[0].Confidence, 0.8)
}

func TestClassify_ExactShortCircuitsFuzzy(t *testing.T) {
	members := []corpus.Member{
		{UserID: "u1", UserName: "Anna Larson"},
		{UserID: "u2", UserName: "Annika Larsen"},
	}
	c := NewNameClassifier(0.8)

	matches := c.Classify("Did Anna Larson ask for anything?", members)

	// Anna Larson matches exactly, so the similarly named Annika Larsen
	// never enters as a fuzzy candidate.
	require.Len(t, matches, 1)
	assert.Equal(t, "u1", matches[0].UserID)
	assert.Equal(t, MatchExact, matches[0].Kind)
}

func TestClassify_NoNameInQuery(t *testing.T) {
	c := NewNameClassifier(0.8)

	assert.Empty(t, c.Classify("what were the most common travel requests?", testMembers))
}

func TestClassify_UnknownName(t *testing.T) {
	c := NewNameClassifier(0.8)

	// A name-like token sequence with no corpus counterpart is flagged
	// for logs only, never returned as a match.
	assert.Empty(t, c.Classify("What does Greta Thunberg need?", testMembers))
}

func TestClassify_EmptyInputs(t *testing.T) {
	c := NewNameClassifier(0.8)

	assert.Empty(t, c.Classify("", testMembers))
	assert.Empty(t, c.Classify("What does Hans need?", nil))
}

func TestClassify_TieBreaksOnShorterSpan(t *testing.T) {
	members := []corpus.Member{
		{UserID: "u1", UserName: "Maria Santos"},
		{UserID: "u2", UserName: "Mario Santos"},
	}
	c := NewNameClassifier(0.8)

	matches := c.Classify("Is there anything from Maria or Mario Santos?", members)

	require.Len(t, matches, 2)
	assert.Equal(t, MatchExact, matches[0].Kind)
	assert.Equal(t, MatchExact, matches[1].Kind)
	// Equal confidence; the shorter (more specific) span sorts first.
	assert.Equal(t, "u1", matches[0].UserID)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("hans muller", "hans muller"))
	assert.InDelta(t, 0.917, similarity("hans muller", "hans mullers"), 0.01)
	assert.Zero(t, similarity("", "anything"))
	assert.Zero(t, similarity("ab", "xy"))
}

func TestFoldString(t *testing.T) {
	assert.Equal(t, "muller", foldString("Müller"))
	assert.Equal(t, "jose", foldString("José"))
	assert.Equal(t, "plain", foldString("plain"))
}
