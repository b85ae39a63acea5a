package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rudranshpardeshi09/StudyMind-AI/vectorstore"
)

// retrieve runs the similarity stage: one search for the question and,
// when a long-enough study-context hint is supplied, a second search for
// a hint-prefixed query. Each search fetches a candidate superset and
// down-selects with MMR; the union is deduplicated by exact chunk text.
func (s *Service) retrieve(ctx context.Context, question, hint string) ([]vectorstore.Hit, error) {
	queries := []string{question}
	if hint = strings.TrimSpace(hint); len(hint) > hintThreshold {
		prefix := hint
		if len(prefix) > hintPrefixCap {
			prefix = prefix[:hintPrefixCap]
		}
		queries = append(queries, prefix+" "+question)
	}

	seen := make(map[string]struct{})
	var out []vectorstore.Hit
	for _, query := range queries {
		vectors, err := s.embedder.Embed(ctx, []string{query})
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		if len(vectors) == 0 {
			return nil, fmt.Errorf("embedder returned no vectors")
		}

		hits, err := s.retriever.Search(ctx, vectors[0], s.opts.FetchK)
		if err != nil {
			return nil, err
		}

		for _, hit := range mmrSelect(hits, s.opts.TopK, s.opts.Lambda) {
			if _, dup := seen[hit.Text]; dup {
				continue
			}
			seen[hit.Text] = struct{}{}
			out = append(out, hit)
		}
	}
	return out, nil
}

// mmrSelect down-selects candidates by maximal marginal relevance:
// relevance to the query balanced against redundancy with what is
// already selected. Ties keep the earlier candidate, so the selection is
// deterministic for a fixed hit order.
func mmrSelect(hits []vectorstore.Hit, k int, lambda float32) []vectorstore.Hit {
	if len(hits) <= k {
		return hits
	}

	selected := make([]vectorstore.Hit, 0, k)
	remaining := make([]int, len(hits))
	for i := range hits {
		remaining[i] = i
	}

	for len(selected) < k && len(remaining) > 0 {
		bestPos := 0
		var bestScore float32
		for pos, idx := range remaining {
			redundancy := float32(0)
			for _, chosen := range selected {
				if sim := cosine(hits[idx].Embedding, chosen.Embedding); sim > redundancy {
					redundancy = sim
				}
			}
			score := lambda*hits[idx].Similarity - (1-lambda)*redundancy
			if pos == 0 || score > bestScore {
				bestPos = pos
				bestScore = score
			}
		}

		selected = append(selected, hits[remaining[bestPos]])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}
	return selected
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (sqrt32(normA) * sqrt32(normB))
}

// sqrt32 is Newton's method on float32; precision beyond a few rounds
// does not matter for ranking.
func sqrt32(x float32) float32 {
	if x <= 0 {
		return 0
	}
	guess := x / 2
	for i := 0; i < 8; i++ {
		guess = (guess + x/guess) / 2
	}
	return guess
}
