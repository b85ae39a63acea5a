// Package rag answers questions from the indexed document corpus:
// similarity retrieval, lexical re-ranking, bounded prompt assembly, and
// generation with source attribution.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/Rudranshpardeshi09/StudyMind-AI/embeddings"
	"github.com/Rudranshpardeshi09/StudyMind-AI/llm"
	"github.com/Rudranshpardeshi09/StudyMind-AI/vectorstore"
)

// ErrNoDocuments signals that no index exists because nothing has been
// uploaded; the transport rejects the question before pipeline work.
var ErrNoDocuments = errors.New("no documents uploaded yet")

const (
	// hintThreshold is the minimum study-context length that triggers a
	// second, hint-prefixed retrieval pass.
	hintThreshold = 20
	// hintPrefixCap bounds how much of the hint seeds the second query.
	hintPrefixCap = 100
	// contextDocs is how many ranked chunks reach the prompt.
	contextDocs = 4
	// snippetCap bounds the source preview returned to the caller.
	snippetCap = 200
)

// Retriever is the similarity-search dependency; satisfied by
// *vectorstore.Manager.
type Retriever interface {
	Search(ctx context.Context, embedding []float32, k int) ([]vectorstore.Hit, error)
}

type Options struct {
	TopK        int
	FetchK      int
	Lambda      float32
	Temperature float32
	MaxTokens   int
}

type Turn struct {
	Role    string
	Content string
}

type Request struct {
	Question        string
	SyllabusContext string
	Marks           int
	History         []Turn
}

type Source struct {
	Page string
	Text string
}

// Answer is always answer-shaped: pipeline failures carry an explanatory
// message instead of propagating an exception to the transport.
type Answer struct {
	Answer       string
	Pages        []string
	Sources      []Source
	NothingFound bool
	Failed       bool
}

type Service struct {
	retriever Retriever
	embedder  embeddings.Embedder
	llm       llm.Client
	logger    *log.Logger
	opts      Options
}

func NewService(retriever Retriever, embedder embeddings.Embedder, llmClient llm.Client, logger *log.Logger, opts Options) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.FetchK < opts.TopK {
		opts.FetchK = opts.TopK * 3
	}
	if opts.Lambda <= 0 || opts.Lambda > 1 {
		opts.Lambda = 0.9
	}

	return &Service{
		retriever: retriever,
		embedder:  embedder,
		llm:       llmClient,
		logger:    logger,
		opts:      opts,
	}
}

func (s *Service) Ask(ctx context.Context, req Request) (Answer, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Answer{}, fmt.Errorf("question cannot be empty")
	}

	candidates, err := s.retrieve(ctx, question, req.SyllabusContext)
	if errors.Is(err, vectorstore.ErrAbsent) {
		return Answer{}, ErrNoDocuments
	}
	if err != nil {
		return Answer{}, fmt.Errorf("retrieve candidates: %w", err)
	}

	if len(candidates) == 0 {
		return Answer{
			Answer:       fmt.Sprintf("I couldn't find relevant information about %q in the uploaded documents.", question),
			Pages:        []string{},
			Sources:      []Source{},
			NothingFound: true,
		}, nil
	}

	ranked := rankByLexicalOverlap(candidates, question)
	top := ranked
	if len(top) > contextDocs {
		top = top[:contextDocs]
	}

	prompt := buildPrompt(question, req.SyllabusContext, req.Marks, req.History, top)

	text, err := s.llm.Generate(ctx, prompt, llm.Options{
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	})
	if err != nil {
		s.logger.Printf("answer generation failed: %v", err)
		return Answer{
			Answer:  "Error generating response: " + err.Error(),
			Pages:   []string{},
			Sources: []Source{},
			Failed:  true,
		}, nil
	}

	return Answer{
		Answer:  text,
		Pages:   collectPages(top),
		Sources: collectSources(top),
	}, nil
}

func collectPages(hits []vectorstore.Hit) []string {
	seen := make(map[string]struct{}, len(hits))
	pages := make([]string, 0, len(hits))
	for _, hit := range hits {
		marker := hit.Marker
		if marker == "" {
			marker = "N/A"
		}
		if _, ok := seen[marker]; ok {
			continue
		}
		seen[marker] = struct{}{}
		pages = append(pages, marker)
	}
	sort.Strings(pages)
	return pages
}

func collectSources(hits []vectorstore.Hit) []Source {
	sources := make([]Source, len(hits))
	for i, hit := range hits {
		text := hit.Text
		if len(text) > snippetCap {
			text = text[:snippetCap]
		}
		marker := hit.Marker
		if marker == "" {
			marker = "N/A"
		}
		sources[i] = Source{Page: marker, Text: text}
	}
	return sources
}
