package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vipulpandey12345/member-qa-system-api/internal/store"
)

// fakeCompleter returns a canned completion and counts invocations.
type fakeCompleter struct {
	response   string
	err        error
	calls      int
	lastPrompt string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func retrievedCandidate(id, userName, text string, rank int) RetrievedCandidate {
	return RetrievedCandidate{
		Record: NormalizedRecord{
			Record: &store.MessageRecord{
				ID:        id,
				UserID:    "u-" + id,
				UserName:  userName,
				Timestamp: time.Date(2024, 11, 10, 9, 0, 0, 0, time.UTC),
			},
			CleanText:    text,
			QualityScore: 0.8,
		},
		Similarity: 0.9,
		Rank:       rank,
	}
}

func TestSynthesize_EmptyCandidatesSkipsLLM(t *testing.T) {
	completer := &fakeCompleter{}
	s := NewSynthesizer(completer, time.Second)

	result, err := s.Synthesize(context.Background(), "What does Hans need?", nil)

	require.NoError(t, err)
	assert.False(t, result.Grounded)
	assert.Empty(t, result.UsedRecordIDs)
	assert.NotEmpty(t, result.AnswerText)
	assert.Zero(t, completer.calls, "synthesizer must not call the LLM with no candidates")
}

func TestSynthesize_GroundedAnswer(t *testing.T) {
	completer := &fakeCompleter{
		response: `{"answer": "Hans Müller needs a first class booking for two on November 10.", "sources": [1], "sufficient": true}`,
	}
	s := NewSynthesizer(completer, time.Second)

	candidates := []RetrievedCandidate{
		retrievedCandidate("msg-1", "Hans Müller", "I'm flying to San Francisco - book the first class for two on November 10.", 1),
	}

	result, err := s.Synthesize(context.Background(), "What does Hans Müller need for November 10?", candidates)

	require.NoError(t, err)
	assert.True(t, result.Grounded)
	assert.Equal(t, []string{"msg-1"}, result.UsedRecordIDs)
	assert.Contains(t, result.AnswerText, "first class")
	assert.Equal(t, 1, completer.calls)
}

func TestSynthesize_PromptContainsCandidates(t *testing.T) {
	completer := &fakeCompleter{
		response: `{"answer": "ok", "sources": [1], "sufficient": true}`,
	}
	s := NewSynthesizer(completer, time.Second)

	candidates := []RetrievedCandidate{
		retrievedCandidate("msg-1", "Hans Müller", "book the first class for two", 1),
	}

	_, err := s.Synthesize(context.Background(), "the question", candidates)
	require.NoError(t, err)

	assert.Contains(t, completer.lastPrompt, "Hans Müller")
	assert.Contains(t, completer.lastPrompt, "November 10, 2024")
	assert.Contains(t, completer.lastPrompt, "book the first class for two")
	assert.Contains(t, completer.lastPrompt, "the question")
}

func TestSynthesize_InsufficientInformation(t *testing.T) {
	completer := &fakeCompleter{
		response: `{"answer": "I don't have that information in the provided messages.", "sources": [], "sufficient": false}`,
	}
	s := NewSynthesizer(completer, time.Second)

	result, err := s.Synthesize(context.Background(), "What color is Hans's car?", []RetrievedCandidate{
		retrievedCandidate("msg-1", "Hans Müller", "book the first class for two", 1),
	})

	require.NoError(t, err)
	assert.False(t, result.Grounded)
	assert.Empty(t, result.UsedRecordIDs)
}

func TestSynthesize_CodeFencedJSON(t *testing.T) {
	completer := &fakeCompleter{
		response: "```json\n{\"answer\": \"ok\", \"sources\": [1], \"sufficient\": true}\n```",
	}
	s := NewSynthesizer(completer, time.Second)

	result, err := s.Synthesize(context.Background(), "q", []RetrievedCandidate{
		retrievedCandidate("msg-1", "Anna", "reserve a table for two", 1),
	})

	require.NoError(t, err)
	assert.True(t, result.Grounded)
	assert.Equal(t, []string{"msg-1"}, result.UsedRecordIDs)
}

func TestSynthesize_InvalidSourceIndexesIgnored(t *testing.T) {
	completer := &fakeCompleter{
		response: `{"answer": "ok", "sources": [0, 1, 1, 99], "sufficient": true}`,
	}
	s := NewSynthesizer(completer, time.Second)

	result, err := s.Synthesize(context.Background(), "q", []RetrievedCandidate{
		retrievedCandidate("msg-1", "Anna", "reserve a table for two", 1),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"msg-1"}, result.UsedRecordIDs)
	assert.True(t, result.Grounded)
}

func TestSynthesize_MalformedOutput(t *testing.T) {
	completer := &fakeCompleter{response: "Sure! The member needs a flight."}
	s := NewSynthesizer(completer, time.Second)

	_, err := s.Synthesize(context.Background(), "q", []RetrievedCandidate{
		retrievedCandidate("msg-1", "Anna", "reserve a table", 1),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestSynthesize_CompleterFailure(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("deadline exceeded")}
	s := NewSynthesizer(completer, time.Second)

	_, err := s.Synthesize(context.Background(), "q", []RetrievedCandidate{
		retrievedCandidate("msg-1", "Anna", "reserve a table", 1),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestSynthesize_EmptyAnswerDowngraded(t *testing.T) {
	completer := &fakeCompleter{
		response: `{"answer": "", "sources": [1], "sufficient": true}`,
	}
	s := NewSynthesizer(completer, time.Second)

	result, err := s.Synthesize(context.Background(), "q", []RetrievedCandidate{
		retrievedCandidate("msg-1", "Anna", "reserve a table", 1),
	})

	require.NoError(t, err)
	assert.False(t, result.Grounded)
	assert.Equal(t, insufficientAnswer, result.AnswerText)
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{name: "bare json", in: `{"a":1}`, expected: `{"a":1}`},
		{name: "json fence", in: "```json\n{\"a\":1}\n```", expected: `{"a":1}`},
		{name: "plain fence", in: "```\n{\"a\":1}\n```", expected: `{"a":1}`},
		{name: "padded", in: "  {\"a\":1}  ", expected: `{"a":1}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, stripCodeFences(tc.in))
		})
	}
}
