package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Completer is the narrow LLM contract the synthesizer depends on: one
// prompt in, one text completion out.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const insufficientAnswer = "I don't have enough information in the member messages to answer that."

// Synthesizer turns retrieved candidates into a grounded answer with
// exactly one LLM call. It only accepts RetrievedCandidate values, which
// exist solely as retriever output, so the single-call contract cannot be
// bypassed by handing it raw corpus records.
type Synthesizer struct {
	completer Completer
	timeout   time.Duration
}

func NewSynthesizer(completer Completer, timeout time.Duration) *Synthesizer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Synthesizer{completer: completer, timeout: timeout}
}

// synthesizerResponse is the JSON shape the model is instructed to return.
type synthesizerResponse struct {
	Answer     string `json:"answer"`
	Sources    []int  `json:"sources"`
	Sufficient bool   `json:"sufficient"`
}

// Synthesize answers the query from the candidates. An empty candidate set
// short-circuits with grounded=false and no LLM invocation.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, candidates []RetrievedCandidate) (*AnswerResult, error) {
	if len(candidates) == 0 {
		return &AnswerResult{
			AnswerText:    insufficientAnswer,
			Grounded:      false,
			UsedRecordIDs: []string{},
		}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.completer.Complete(ctx, buildPrompt(query, candidates))
	if err != nil {
		return nil, fmt.Errorf("%w: completion failed: %v", ErrUpstream, err)
	}

	var resp synthesizerResponse
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &resp); err != nil {
		return nil, fmt.Errorf("%w: malformed completion output: %v", ErrUpstream, err)
	}

	usedIDs := make([]string, 0, len(resp.Sources))
	seen := make(map[string]struct{})
	for _, idx := range resp.Sources {
		if idx < 1 || idx > len(candidates) {
			continue // model cited a message it was never shown
		}
		rec := candidates[idx-1].Record.Record
		if rec == nil {
			continue
		}
		if _, ok := seen[rec.ID]; !ok {
			seen[rec.ID] = struct{}{}
			usedIDs = append(usedIDs, rec.ID)
		}
	}

	answer := strings.TrimSpace(resp.Answer)
	if answer == "" {
		answer = insufficientAnswer
		resp.Sufficient = false
	}

	return &AnswerResult{
		AnswerText:    answer,
		Grounded:      resp.Sufficient && len(usedIDs) > 0,
		UsedRecordIDs: usedIDs,
	}, nil
}

func buildPrompt(query string, candidates []RetrievedCandidate) string {
	var b strings.Builder
	b.WriteString("You are answering a question about member requests using ONLY the messages below.\n")
	b.WriteString("Each message includes the member's name and the date it was sent.\n\nMessages:\n")

	for _, cand := range candidates {
		rec := cand.Record.Record
		date := "unknown date"
		if rec != nil && !rec.Timestamp.IsZero() {
			date = rec.Timestamp.Format("January 2, 2006")
		}
		name := "unknown member"
		if rec != nil && rec.UserName != "" {
			name = rec.UserName
		}
		fmt.Fprintf(&b, "Message %d - %s (%s):\n%s\n\n", cand.Rank, name, date, cand.Record.CleanText)
	}

	b.WriteString("Question:\n")
	b.WriteString(query)
	b.WriteString("\n\nRespond ONLY in valid JSON as:\n")
	b.WriteString(`{"answer": "...", "sources": [1], "sufficient": true}` + "\n")
	b.WriteString("\"sources\" lists the message numbers your answer relies on.\n")
	b.WriteString("If the messages do not contain the information needed, set \"sufficient\" to false, ")
	b.WriteString("leave \"sources\" empty, and say in \"answer\" that you do not have that information.\n")
	b.WriteString("Use the date format shown in the messages. Do not make up information.\n")
	return b.String()
}

// stripCodeFences removes a surrounding ```json ... ``` block, which some
// models add despite the JSON-only instruction.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
