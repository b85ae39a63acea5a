// Package ingestion turns uploaded documents into indexed chunks in the
// background and keeps the vector index consistent with the uploads
// directory.
package ingestion

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Rudranshpardeshi09/StudyMind-AI/chunking"
	"github.com/Rudranshpardeshi09/StudyMind-AI/extract"
	"github.com/Rudranshpardeshi09/StudyMind-AI/jobs"
	"github.com/Rudranshpardeshi09/StudyMind-AI/vectorstore"
)

const defaultQueueSize = 32

type Service struct {
	uploadDir string
	manager   *vectorstore.Manager
	tracker   *jobs.Tracker
	extractor extract.Extractor
	splitter  *chunking.Splitter
	logger    *log.Logger

	queue chan string
	wg    sync.WaitGroup
	once  sync.Once
}

func NewService(
	uploadDir string,
	manager *vectorstore.Manager,
	tracker *jobs.Tracker,
	extractor extract.Extractor,
	splitter *chunking.Splitter,
	logger *log.Logger,
	queueSize int,
) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	return &Service{
		uploadDir: uploadDir,
		manager:   manager,
		tracker:   tracker,
		extractor: extractor,
		splitter:  splitter,
		logger:    logger,
		queue:     make(chan string, queueSize),
	}
}

// Start launches the worker pool. Workers drain the queue until it is
// closed or the context is cancelled; an in-flight job always runs to
// completion or failure.
func (s *Service) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 2
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case filename, ok := <-s.queue:
					if !ok {
						return
					}
					s.Process(ctx, filename)
				}
			}
		}()
	}
}

// Close stops accepting work and waits for the workers to drain.
func (s *Service) Close() {
	s.once.Do(func() { close(s.queue) })
	s.wg.Wait()
}

// SaveUpload writes an uploaded file into the uploads directory before
// any background work is scheduled, so the caller always has a durable
// copy behind an "accepted" response.
func (s *Service) SaveUpload(filename string, r io.Reader) error {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return fmt.Errorf("create uploads directory: %w", err)
	}

	dst, err := os.Create(filepath.Join(s.uploadDir, filename))
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return fmt.Errorf("write upload file: %w", err)
	}
	return nil
}

// Submit registers an upload with the tracker and enqueues it for
// processing. A duplicate upload while a job for the same filename is
// still pending or processing is a no-op.
func (s *Service) Submit(filename string) bool {
	if !s.tracker.Accept(filename) {
		s.logger.Printf("duplicate upload for %s suppressed, job still in flight", filename)
		return false
	}
	s.queue <- filename
	return true
}

// Process runs one ingestion job: extract, chunk, merge, record. It is
// exported so tests can drive jobs synchronously.
func (s *Service) Process(ctx context.Context, filename string) {
	if !s.tracker.Begin(filename) {
		return
	}

	path := filepath.Join(s.uploadDir, filename)

	sections, err := s.extractor.Extract(ctx, path)
	if err != nil {
		s.logger.Printf("extraction failed for %s: %v", filename, err)
		s.tracker.Fail(filename, err)
		return
	}

	chunks := s.splitter.Split(sections, filename)
	if len(chunks) == 0 {
		err := fmt.Errorf("%s: %w", filename, extract.ErrUnreadable)
		s.logger.Printf("no chunks produced for %s", filename)
		s.tracker.Fail(filename, err)
		return
	}

	if err := s.manager.Merge(ctx, chunks); err != nil {
		s.logger.Printf("index merge failed for %s: %v", filename, err)
		s.tracker.Fail(filename, err)
		return
	}

	s.tracker.Complete(filename, len(sections), len(chunks))
	s.logger.Printf("ingested %s (%d pages, %d chunks)", filename, len(sections), len(chunks))
}

// RebuildFromUploads re-derives the whole index from the files currently
// in the uploads directory. Documents that fail extraction are logged
// and skipped; an empty corpus removes the index directory outright.
func (s *Service) RebuildFromUploads(ctx context.Context) error {
	entries, err := os.ReadDir(s.uploadDir)
	if os.IsNotExist(err) {
		return s.manager.Delete()
	} else if err != nil {
		return fmt.Errorf("read uploads directory: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if extract.DetectFormat(entry.Name()) == extract.FormatUnknown {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	if len(files) == 0 {
		s.logger.Printf("no documents remaining, clearing vector index")
		return s.manager.Delete()
	}

	perFile := make([][]chunking.Chunk, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for i, filename := range files {
		i, filename := i, filename
		g.Go(func() error {
			sections, err := s.extractor.Extract(gctx, filepath.Join(s.uploadDir, filename))
			if err != nil {
				s.logger.Printf("skipping %s during rebuild: %v", filename, err)
				return nil
			}
			perFile[i] = s.splitter.Split(sections, filename)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("re-extract corpus: %w", err)
	}

	var all []chunking.Chunk
	for _, chunks := range perFile {
		all = append(all, chunks...)
	}
	if len(all) == 0 {
		s.logger.Printf("no readable documents remaining, clearing vector index")
		return s.manager.Delete()
	}

	if err := s.manager.Replace(ctx, all); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	s.logger.Printf("rebuilt vector index with %d chunks from %d documents", len(all), len(files))
	return nil
}

// DeleteDocument removes the file and its tracker entry. The caller is
// expected to follow up with RebuildFromUploads; the two steps are split
// so the rebuild can run after the HTTP response is sent.
func (s *Service) DeleteDocument(filename string) error {
	path := filepath.Join(s.uploadDir, filename)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("document %s: %w", filename, err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove document: %w", err)
	}
	s.tracker.Remove(filename)
	return nil
}

// Reset drops every uploaded document, clears the tracker, and deletes
// the index directory.
func (s *Service) Reset() error {
	if err := os.RemoveAll(s.uploadDir); err != nil {
		return fmt.Errorf("remove uploads directory: %w", err)
	}
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return fmt.Errorf("recreate uploads directory: %w", err)
	}
	s.tracker.Clear()
	return s.manager.Delete()
}
