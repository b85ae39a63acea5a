package rag

import (
	"sort"
	"strings"

	"github.com/Rudranshpardeshi09/StudyMind-AI/vectorstore"
)

// rankByLexicalOverlap orders candidates by the share of question tokens
// each chunk contains. The sort is stable, so chunks with equal scores
// keep their retrieval order and the ranking is deterministic.
func rankByLexicalOverlap(hits []vectorstore.Hit, question string) []vectorstore.Hit {
	questionTokens := tokenize(question)
	if len(questionTokens) == 0 {
		return hits
	}

	scores := make([]float64, len(hits))
	for i, hit := range hits {
		scores[i] = overlapScore(questionTokens, tokenize(hit.Text))
	}

	order := make([]int, len(hits))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	out := make([]vectorstore.Hit, len(hits))
	for i, idx := range order {
		out[i] = hits[idx]
	}
	return out
}

// tokenize extracts the set of lowercase alphabetic tokens of length 3
// or more.
func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	var word []rune
	flush := func() {
		if len(word) >= 3 {
			tokens[string(word)] = struct{}{}
		}
		word = word[:0]
	}

	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			word = append(word, r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}

// overlapScore is the fraction of question tokens present in the unit.
func overlapScore(questionTokens, unitTokens map[string]struct{}) float64 {
	matched := 0
	for token := range questionTokens {
		if _, ok := unitTokens[token]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(questionTokens))
}
