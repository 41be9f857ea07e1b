package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/vipulpandey12345/member-qa-system-api/internal/corpus"
)

// askStage names the orchestrator's state machine states. Each request
// moves strictly forward through them; any failure lands in stageFailed.
type askStage string

const (
	stageReceived          askStage = "RECEIVED"
	stageNormalized        askStage = "NORMALIZED"
	stageNameFiltered      askStage = "NAME_FILTERED"
	stageRelevanceFiltered askStage = "RELEVANCE_FILTERED"
	stageRetrieved         askStage = "RETRIEVED"
	stageSynthesized       askStage = "SYNTHESIZED"
	stageDone              askStage = "DONE"
	stageFailed            askStage = "FAILED"
)

// AskService sequences the pipeline: normalize, name-filter, relevance-
// filter, retrieve, synthesize. All deterministic stages run before the
// synthesizer is ever reached, so each request makes at most one LLM
// completion call.
type AskService struct {
	snapshots   *corpus.Holder
	normalizer  *Normalizer
	classifier  *NameClassifier
	relevance   *RelevanceFilter
	retriever   *Retriever
	synthesizer *Synthesizer
}

func NewAskService(snapshots *corpus.Holder, normalizer *Normalizer, classifier *NameClassifier, relevance *RelevanceFilter, retriever *Retriever, synthesizer *Synthesizer) *AskService {
	return &AskService{
		snapshots:   snapshots,
		normalizer:  normalizer,
		classifier:  classifier,
		relevance:   relevance,
		retriever:   retriever,
		synthesizer: synthesizer,
	}
}

// Ask answers one free-text query against the current corpus snapshot.
// Empty candidate sets are not failures: they produce an ungrounded
// "insufficient information" answer without touching the LLM.
func (s *AskService) Ask(ctx context.Context, query string) (*AnswerResult, error) {
	reqID := uuid.NewString()
	stage := stageReceived

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrValidation)
	}

	// One snapshot per request; the refresher may swap in a newer one at
	// any time without affecting in-flight requests.
	snap := s.snapshots.Current()

	stage = stageNormalized
	normalized := make([]NormalizedRecord, 0, len(snap.Records))
	for i := range snap.Records {
		normalized = append(normalized, s.normalizer.Normalize(&snap.Records[i]))
	}

	stage = stageNameFiltered
	matches := s.classifier.Classify(query, snap.Members())
	for _, m := range matches {
		if !snap.HasUser(m.UserID) {
			return nil, fmt.Errorf("%w: name match references unknown user %q (stage %s)", ErrInternalConsistency, m.UserID, stage)
		}
	}
	candidates := restrictToMatches(normalized, matches)

	stage = stageRelevanceFiltered
	candidates = s.relevance.Filter(candidates)

	stage = stageRetrieved
	retrieved := s.retriever.Retrieve(ctx, query, candidates)
	for _, cand := range retrieved {
		if cand.Record.Record == nil || snap.ByID(cand.Record.Record.ID) == nil {
			return nil, fmt.Errorf("%w: retrieved candidate references unknown record (stage %s)", ErrInternalConsistency, stage)
		}
	}

	stage = stageSynthesized
	result, err := s.synthesizer.Synthesize(ctx, query, retrieved)
	if err != nil {
		log.Printf("Ask %s %s at stage %s: %v", reqID, stageFailed, stage, err)
		return nil, err
	}

	stage = stageDone
	log.Printf("Ask %s %s: matches=%d candidates=%d retrieved=%d grounded=%t (snapshot v%d)",
		reqID, stage, len(matches), len(candidates), len(retrieved), result.Grounded, snap.Version)
	return result, nil
}

// restrictToMatches keeps only records authored by matched members. With
// no name in the query the whole corpus stays eligible and the relevance
// filter alone narrows it.
func restrictToMatches(records []NormalizedRecord, matches []NameMatch) []NormalizedRecord {
	if len(matches) == 0 {
		return records
	}
	matched := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		matched[m.UserID] = struct{}{}
	}
	kept := make([]NormalizedRecord, 0, len(records))
	for _, r := range records {
		if r.Record == nil {
			continue
		}
		if _, ok := matched[r.Record.UserID]; ok {
			kept = append(kept, r)
		}
	}
	return kept
}
