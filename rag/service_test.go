package rag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/Rudranshpardeshi09/StudyMind-AI/llm"
	"github.com/Rudranshpardeshi09/StudyMind-AI/vectorstore"
)

type stubRetriever struct {
	hits    []vectorstore.Hit
	err     error
	queries int
}

func (s *stubRetriever) Search(ctx context.Context, embedding []float32, k int) ([]vectorstore.Hit, error) {
	s.queries++
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

type stubLLM struct {
	answer string
	err    error
	prompt string
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	s.prompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func hit(text, marker string, similarity float32) vectorstore.Hit {
	return vectorstore.Hit{
		Text:       text,
		Source:     "doc.pdf",
		Marker:     marker,
		Similarity: similarity,
		Embedding:  []float32{similarity, 1 - similarity, 0},
	}
}

func newTestService(retriever *stubRetriever, client *stubLLM) *Service {
	return NewService(retriever, stubEmbedder{}, client, log.New(io.Discard, "", 0), Options{
		TopK:   5,
		FetchK: 15,
		Lambda: 0.9,
	})
}

func TestAskReturnsAnswerWithSources(t *testing.T) {
	retriever := &stubRetriever{hits: []vectorstore.Hit{
		hit("binary search halves the interval each step", "3", 0.95),
		hit("bubble sort swaps adjacent elements", "7", 0.80),
	}}
	client := &stubLLM{answer: "Binary search runs in O(log n)."}
	svc := newTestService(retriever, client)

	answer, err := svc.Ask(context.Background(), Request{Question: "How does binary search work?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if answer.Answer != "Binary search runs in O(log n)." {
		t.Fatalf("unexpected answer: %q", answer.Answer)
	}
	if answer.NothingFound || answer.Failed {
		t.Fatalf("unexpected flags: %#v", answer)
	}
	if len(answer.Pages) != 2 || answer.Pages[0] != "3" || answer.Pages[1] != "7" {
		t.Fatalf("unexpected pages: %v", answer.Pages)
	}
	if len(answer.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(answer.Sources))
	}
	if !strings.Contains(client.prompt, "binary search halves the interval") {
		t.Fatal("prompt should contain the retrieved context")
	}
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	svc := newTestService(&stubRetriever{}, &stubLLM{})

	if _, err := svc.Ask(context.Background(), Request{Question: "   "}); err == nil {
		t.Fatal("expected an error for a blank question")
	}
}

func TestAskMapsAbsentIndex(t *testing.T) {
	retriever := &stubRetriever{err: vectorstore.ErrAbsent}
	svc := newTestService(retriever, &stubLLM{})

	_, err := svc.Ask(context.Background(), Request{Question: "anything?"})
	if !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("expected ErrNoDocuments, got %v", err)
	}
}

func TestAskEmptyRetrievalIsAnswerShaped(t *testing.T) {
	svc := newTestService(&stubRetriever{}, &stubLLM{answer: "should not be called"})

	answer, err := svc.Ask(context.Background(), Request{Question: "What is quantum gravity?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !answer.NothingFound {
		t.Fatal("expected the nothing-found marker")
	}
	if !strings.Contains(answer.Answer, "quantum gravity") {
		t.Fatalf("answer should name the question topic: %q", answer.Answer)
	}
	if len(answer.Pages) != 0 || len(answer.Sources) != 0 {
		t.Fatalf("no attribution expected: %#v", answer)
	}
}

func TestAskGenerationFailureIsAnswerShaped(t *testing.T) {
	retriever := &stubRetriever{hits: []vectorstore.Hit{hit("some material", "1", 0.9)}}
	client := &stubLLM{err: fmt.Errorf("model timeout: %w", llm.ErrUnavailable)}
	svc := newTestService(retriever, client)

	answer, err := svc.Ask(context.Background(), Request{Question: "Explain the material"})
	if err != nil {
		t.Fatalf("generation failure must not surface as an error: %v", err)
	}
	if !answer.Failed {
		t.Fatal("expected the failed marker")
	}
	if !strings.Contains(answer.Answer, "Error generating response") {
		t.Fatalf("unexpected failure answer: %q", answer.Answer)
	}
}

func TestAskRunsSecondQueryForLongHint(t *testing.T) {
	retriever := &stubRetriever{hits: []vectorstore.Hit{hit("material", "1", 0.9)}}
	svc := newTestService(retriever, &stubLLM{answer: "ok"})

	_, err := svc.Ask(context.Background(), Request{
		Question:        "What is normalization?",
		SyllabusContext: "Database design, functional dependencies and normal forms",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retriever.queries != 2 {
		t.Fatalf("expected 2 retrieval queries, got %d", retriever.queries)
	}
}

func TestAskShortHintRunsSingleQuery(t *testing.T) {
	retriever := &stubRetriever{hits: []vectorstore.Hit{hit("material", "1", 0.9)}}
	svc := newTestService(retriever, &stubLLM{answer: "ok"})

	_, err := svc.Ask(context.Background(), Request{
		Question:        "What is normalization?",
		SyllabusContext: "DBMS unit 2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retriever.queries != 1 {
		t.Fatalf("expected 1 retrieval query, got %d", retriever.queries)
	}
}

func TestAskDeduplicatesIdenticalChunks(t *testing.T) {
	retriever := &stubRetriever{hits: []vectorstore.Hit{
		hit("repeated normalization paragraph", "2", 0.9),
		hit("repeated normalization paragraph", "2", 0.9),
	}}
	svc := newTestService(retriever, &stubLLM{answer: "ok"})

	answer, err := svc.Ask(context.Background(), Request{Question: "Explain normalization rules"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(answer.Sources) != 1 {
		t.Fatalf("identical chunks should collapse to one source, got %d", len(answer.Sources))
	}
}

func TestRankByLexicalOverlapIsDeterministic(t *testing.T) {
	hits := []vectorstore.Hit{
		hit("nothing relevant here", "1", 0.9),
		hit("transactions guarantee atomicity and isolation", "2", 0.8),
		hit("isolation levels control concurrency", "3", 0.7),
		hit("also nothing relevant", "4", 0.6),
	}

	first := rankByLexicalOverlap(hits, "Explain transactions and isolation levels")
	second := rankByLexicalOverlap(hits, "Explain transactions and isolation levels")

	for i := range first {
		if first[i].Text != second[i].Text {
			t.Fatalf("ranking differs between runs at %d: %q vs %q", i, first[i].Text, second[i].Text)
		}
	}

	if first[0].Marker != "2" {
		t.Fatalf("chunk matching most keywords should rank first, got %q", first[0].Text)
	}
	if first[2].Marker != "1" || first[3].Marker != "4" {
		t.Fatalf("zero-score chunks should keep retrieval order: %q, %q", first[2].Text, first[3].Text)
	}
}

func TestMMRSelectPrefersDiverseResults(t *testing.T) {
	hits := []vectorstore.Hit{
		{Text: "a", Similarity: 0.99, Embedding: []float32{1, 0, 0}},
		{Text: "a again", Similarity: 0.98, Embedding: []float32{1, 0, 0}},
		{Text: "b", Similarity: 0.50, Embedding: []float32{0, 1, 0}},
	}

	selected := mmrSelect(hits, 2, 0.5)
	if len(selected) != 2 {
		t.Fatalf("expected 2 selections, got %d", len(selected))
	}
	if selected[0].Text != "a" {
		t.Fatalf("most relevant chunk should be selected first, got %q", selected[0].Text)
	}
	if selected[1].Text != "b" {
		t.Fatalf("second selection should be the diverse chunk, got %q", selected[1].Text)
	}
}

func TestBuildHistoryTruncatesTurns(t *testing.T) {
	history := make([]Turn, 14)
	for i := range history {
		history[i] = Turn{Role: "user", Content: fmt.Sprintf("turn-%02d %s", i, strings.Repeat("x", 400))}
	}

	rendered := buildHistory(history)

	if strings.Contains(rendered, "turn-03") {
		t.Fatal("old turns should be dropped")
	}
	if !strings.Contains(rendered, "turn-04") || !strings.Contains(rendered, "turn-13") {
		t.Fatal("the last ten turns should be kept")
	}
	for _, line := range strings.Split(strings.TrimSpace(rendered), "\n") {
		if len(line) > len("Student: ")+historyTurnCap+len("...") {
			t.Fatalf("history line exceeds the per-turn cap: %d chars", len(line))
		}
		if !strings.HasSuffix(line, "...") {
			t.Fatalf("truncated turn should end with an ellipsis: %q", line)
		}
	}
}

func TestBuildPromptShapesByMarks(t *testing.T) {
	hits := []vectorstore.Hit{hit("material", "5", 0.9)}

	short := buildPrompt("Q?", "", 3, nil, hits)
	long := buildPrompt("Q?", "", 12, nil, hits)

	if !strings.Contains(short, "concise") {
		t.Fatalf("3-mark prompt should ask for a concise answer: %q", short)
	}
	if !strings.Contains(long, "comprehensive") {
		t.Fatalf("12-mark prompt should ask for a comprehensive answer: %q", long)
	}
	if !strings.Contains(short, "[Source 1 - doc.pdf, Page 5]") {
		t.Fatal("prompt should label context with source and page")
	}
}
