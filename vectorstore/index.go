package vectorstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/philippgille/chromem-go"
)

// Hit is one similarity-search result with the chunk's stored metadata.
type Hit struct {
	Text       string
	Source     string
	Marker     string
	Offset     int
	Similarity float32
	Embedding  []float32
}

// Index is a read handle over a loaded collection.
type Index struct {
	collection *chromem.Collection
}

func (ix *Index) Count() int {
	return ix.collection.Count()
}

// Search returns up to k nearest chunks. k is clamped to the collection
// size; an empty collection yields no hits and no error.
func (ix *Index) Search(ctx context.Context, embedding []float32, k int) ([]Hit, error) {
	count := ix.collection.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := ix.collection.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	hits := make([]Hit, len(results))
	for i, result := range results {
		hit := Hit{
			Text:       result.Content,
			Similarity: result.Similarity,
			Embedding:  result.Embedding,
		}
		if result.Metadata != nil {
			hit.Source = result.Metadata["source"]
			hit.Marker = result.Metadata["page"]
			if off, err := strconv.Atoi(result.Metadata["offset"]); err == nil {
				hit.Offset = off
			}
		}
		hits[i] = hit
	}
	return hits, nil
}
