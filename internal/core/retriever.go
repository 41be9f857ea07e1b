package core

import (
	"context"
	"log"
	"math"
	"sort"

	"github.com/vipulpandey12345/member-qa-system-api/internal/utils"
)

// Embedder turns text into a vector. The Gemini client implements this;
// tests use a fixed-vector fake.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Retriever selects the top-K candidates by semantic similarity to the
// query. Candidate embeddings come precomputed from the corpus snapshot;
// only the query is embedded per request. When an embedding is missing or
// the embedding call fails, scoring degrades to deterministic lexical
// token overlap rather than failing the request.
type Retriever struct {
	embedder Embedder
	K        int
}

func NewRetriever(embedder Embedder, k int) *Retriever {
	if k <= 0 {
		k = 5
	}
	return &Retriever{embedder: embedder, K: k}
}

// Retrieve returns the top-K candidates ranked best-first. An empty input
// yields an empty result; that is a valid terminal state, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, candidates []NormalizedRecord) []RetrievedCandidate {
	if len(candidates) == 0 {
		return nil
	}

	var queryEmbedding []float32
	if r.embedder != nil {
		emb, err := r.embedder.EmbedText(ctx, query)
		if err != nil {
			log.Printf("Retriever: query embedding failed, falling back to lexical scoring: %v", err)
		} else {
			queryEmbedding = emb
		}
	}

	scored := make([]RetrievedCandidate, 0, len(candidates))
	for _, cand := range candidates {
		scored = append(scored, RetrievedCandidate{
			Record:     cand,
			Similarity: r.score(query, queryEmbedding, cand),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		if scored[i].Record.QualityScore != scored[j].Record.QualityScore {
			return scored[i].Record.QualityScore > scored[j].Record.QualityScore
		}
		return scored[i].Record.Record.Timestamp.After(scored[j].Record.Record.Timestamp)
	})

	if len(scored) > r.K {
		scored = scored[:r.K]
	}
	for i := range scored {
		scored[i].Rank = i + 1
	}
	return scored
}

func (r *Retriever) score(query string, queryEmbedding []float32, cand NormalizedRecord) float64 {
	if len(queryEmbedding) > 0 && cand.Record != nil && len(cand.Record.Embedding) > 0 {
		sim, err := utils.CosineSimilarity(queryEmbedding, cand.Record.Embedding)
		if err == nil {
			return float64(sim)
		}
		log.Printf("Retriever: cosine similarity failed for record %s: %v. Using lexical score.", cand.Record.ID, err)
	}
	return lexicalOverlap(query, cand.CleanText)
}

// lexicalOverlap is cosine similarity over binary token bags of folded
// tokens. Cheap, deterministic, and good enough as a degraded scorer.
func lexicalOverlap(a, b string) float64 {
	aTokens := tokenSet(a)
	bTokens := tokenSet(b)
	if len(aTokens) == 0 || len(bTokens) == 0 {
		return 0
	}
	common := 0
	for tok := range aTokens {
		if _, ok := bTokens[tok]; ok {
			common++
		}
	}
	return float64(common) / math.Sqrt(float64(len(aTokens))*float64(len(bTokens)))
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range wordTokens(s) {
		set[foldString(tok)] = struct{}{}
	}
	return set
}
