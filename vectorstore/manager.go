// Package vectorstore owns the on-disk vector index. The index directory
// is always a derived, rebuildable cache of the uploads directory; "no
// directory" and "empty index" are the same observable state.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/Rudranshpardeshi09/StudyMind-AI/chunking"
	"github.com/Rudranshpardeshi09/StudyMind-AI/embeddings"
)

const collectionName = "chunks"

// ErrAbsent is the sentinel for "no index exists yet". It is not a
// failure: the caller decides whether an absent index matters.
var ErrAbsent = errors.New("vector index not found")

type Manager struct {
	dir      string
	embedder embeddings.Embedder
	logger   *log.Logger

	// Single writer: merges, replaces, and deletes never interleave.
	mu sync.Mutex
}

func NewManager(dir string, embedder embeddings.Embedder, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{dir: dir, embedder: embedder, logger: logger}
}

// Merge embeds chunks and folds them into the existing index, creating
// it when absent. A failed merge never leaves a partially-written index:
// the directory is dropped and rewritten from only the new chunks, which
// loses older vectors but keeps the index well-formed. The degraded path
// is logged; the uploads directory remains the source of truth for a
// later rebuild.
func (m *Manager) Merge(ctx context.Context, chunks []chunking.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	vectors, err := m.embedChunks(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := writeChunks(ctx, m.dir, chunks, vectors); err != nil {
		m.logger.Printf("merge into existing index failed, rewriting fresh index from %d new chunks: %v", len(chunks), err)
		if rmErr := os.RemoveAll(m.dir); rmErr != nil {
			return fmt.Errorf("remove damaged index: %w", rmErr)
		}
		if err := writeChunks(ctx, m.dir, chunks, vectors); err != nil {
			_ = os.RemoveAll(m.dir)
			return fmt.Errorf("write fresh index: %w", err)
		}
	}
	return nil
}

// Replace discards the existing index and writes a new one containing
// only the given chunks. The new index is staged in a sibling directory
// first, so a failed replace leaves the previous index intact.
func (m *Manager) Replace(ctx context.Context, chunks []chunking.Chunk) error {
	if len(chunks) == 0 {
		return m.Delete()
	}

	vectors, err := m.embedChunks(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	staging := m.dir + ".rebuild"
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("clear staging directory: %w", err)
	}

	if err := writeChunks(ctx, staging, chunks, vectors); err != nil {
		_ = os.RemoveAll(staging)
		return fmt.Errorf("write replacement index: %w", err)
	}

	if err := os.RemoveAll(m.dir); err != nil {
		_ = os.RemoveAll(staging)
		return fmt.Errorf("remove previous index: %w", err)
	}
	if err := os.Rename(staging, m.dir); err != nil {
		return fmt.Errorf("activate replacement index: %w", err)
	}
	return nil
}

// Delete removes the index directory entirely.
func (m *Manager) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("remove index directory: %w", err)
	}
	return nil
}

// Exists reports whether an index directory is present on disk.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.dir)
	return err == nil
}

// Load opens the index. An absent directory yields ErrAbsent; any other
// error means the directory exists but could not be read.
func (m *Manager) Load() (*Index, error) {
	if _, err := os.Stat(m.dir); errors.Is(err, fs.ErrNotExist) {
		return nil, ErrAbsent
	} else if err != nil {
		return nil, fmt.Errorf("stat index directory: %w", err)
	}

	db, err := chromem.NewPersistentDB(m.dir, false)
	if err != nil {
		return nil, fmt.Errorf("open vector index: %w", err)
	}

	collection := db.GetCollection(collectionName, nil)
	if collection == nil {
		return nil, ErrAbsent
	}
	return &Index{collection: collection}, nil
}

// Search loads the current index and runs a similarity query against it.
// The index is re-opened per call so searches always see the last
// successful write.
func (m *Manager) Search(ctx context.Context, embedding []float32, k int) ([]Hit, error) {
	index, err := m.Load()
	if err != nil {
		return nil, err
	}
	return index.Search(ctx, embedding, k)
}

func (m *Manager) embedChunks(ctx context.Context, chunks []chunking.Chunk) ([][]float32, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: have %d chunks, %d vectors", len(chunks), len(vectors))
	}
	return vectors, nil
}

func writeChunks(ctx context.Context, dir string, chunks []chunking.Chunk, vectors [][]float32) error {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return fmt.Errorf("open index directory: %w", err)
	}

	collection, err := db.GetOrCreateCollection(collectionName, map[string]string{"hnsw:space": "cosine"}, nil)
	if err != nil {
		return fmt.Errorf("open collection: %w", err)
	}

	ids := make([]string, len(chunks))
	metadatas := make([]map[string]string, len(chunks))
	contents := make([]string, len(chunks))
	for i, chunk := range chunks {
		ids[i] = chunk.ID
		contents[i] = chunk.Text
		metadatas[i] = map[string]string{
			"source": chunk.Source,
			"page":   chunk.Marker,
			"offset": strconv.Itoa(chunk.Offset),
		}
	}

	if err := collection.Add(ctx, ids, vectors, metadatas, contents); err != nil {
		return fmt.Errorf("add chunks to collection: %w", err)
	}
	return nil
}
