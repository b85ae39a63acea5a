// Package api exposes the HTTP surface: document upload and lifecycle
// under /ingest, question answering under /qa.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Rudranshpardeshi09/StudyMind-AI/extract"
	"github.com/Rudranshpardeshi09/StudyMind-AI/jobs"
	"github.com/Rudranshpardeshi09/StudyMind-AI/rag"
)

const (
	defaultMaxUploadSize = 50 << 20
	maxQuestionLen       = 1000
	maxSyllabusLen       = 10000
	maxHistoryTurns      = 30
	defaultMarks         = 3
)

// Ingestor is the document-lifecycle dependency; satisfied by
// *ingestion.Service.
type Ingestor interface {
	SaveUpload(filename string, r io.Reader) error
	Submit(filename string) bool
	DeleteDocument(filename string) error
	RebuildFromUploads(ctx context.Context) error
	Reset() error
}

// Answerer is the question-answering dependency; satisfied by
// *rag.Service.
type Answerer interface {
	Ask(ctx context.Context, req rag.Request) (rag.Answer, error)
}

// Server exposes HTTP handlers for the document QA workflows.
type Server struct {
	ingestor      Ingestor
	answerer      Answerer
	tracker       *jobs.Tracker
	logger        *log.Logger
	maxUploadSize int64
	handler       http.Handler
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type uploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

type statusResponse struct {
	Status string `json:"status"`
	Pages  int    `json:"pages"`
	Chunks int    `json:"chunks"`
	Error  string `json:"error,omitempty"`
}

type askRequest struct {
	Question        string       `json:"question"`
	SyllabusContext string       `json:"syllabus_context"`
	Marks           int          `json:"marks"`
	History         []askHistory `json:"history"`
}

type askHistory struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type askResponse struct {
	Answer  string      `json:"answer"`
	Pages   []string    `json:"pages"`
	Sources []askSource `json:"sources"`
	Error   string      `json:"error,omitempty"`
}

type askSource struct {
	Page string `json:"page"`
	Text string `json:"text"`
}

// New constructs a Server around the injected services.
func New(ingestor Ingestor, answerer Answerer, tracker *jobs.Tracker, logger *log.Logger, maxUploadSize int64) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUploadSize
	}

	s := &Server{
		ingestor:      ingestor,
		answerer:      answerer,
		tracker:       tracker,
		logger:        logger,
		maxUploadSize: maxUploadSize,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/ingest", s.handleUpload)
	mux.HandleFunc("/ingest/status", s.handleStatus)
	mux.HandleFunc("/ingest/delete/", s.handleDelete)
	mux.HandleFunc("/ingest/reset", s.handleReset)
	mux.HandleFunc("/qa/ask", s.handleAsk)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{Message: "ok"})
}

// handleUpload saves the file synchronously and schedules indexing in
// the background: the 202 promises durability, not searchability.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", s.maxUploadSize))
			return
		}
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("parse multipart form: %w", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("file field is required"))
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if filename == "." || filename == "/" || filename == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid filename"))
		return
	}
	if extract.DetectFormat(filename) == extract.FormatUnknown {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename)))
		return
	}

	if err := s.ingestor.SaveUpload(filename, file); err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("save upload: %w", err))
		return
	}

	if !s.ingestor.Submit(filename) {
		s.writeJSON(w, http.StatusAccepted, uploadResponse{
			Message:  "document is already being processed",
			Filename: filename,
			Status:   string(s.tracker.Status(filename).Status),
		})
		return
	}

	s.logger.Printf("accepted upload %s (%d bytes)", filename, header.Size)
	s.writeJSON(w, http.StatusAccepted, uploadResponse{
		Message:  "document accepted for processing",
		Filename: filename,
		Status:   string(jobs.StatePending),
	})
}

// handleStatus reports one job when ?filename= is given, otherwise every
// known job keyed by filename.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	if filename := strings.TrimSpace(r.URL.Query().Get("filename")); filename != "" {
		s.writeJSON(w, http.StatusOK, toStatusResponse(s.tracker.Status(filename)))
		return
	}

	all := s.tracker.All()
	out := make(map[string]statusResponse, len(all))
	for filename, job := range all {
		out[filename] = toStatusResponse(job)
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handleDelete removes the document synchronously and rebuilds the index
// in the background, so the response does not wait on re-embedding the
// remaining corpus.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		s.methodNotAllowed(w, http.MethodDelete)
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/ingest/delete/")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid filename encoding: %w", err))
		return
	}
	filename := filepath.Base(decoded)
	if filename == "." || filename == "/" || filename == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("filename is required"))
		return
	}

	if err := s.ingestor.DeleteDocument(filename); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.writeError(w, http.StatusNotFound, fmt.Errorf("document %s not found", filename))
			return
		}
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("delete document: %w", err))
		return
	}

	go func() {
		if err := s.ingestor.RebuildFromUploads(context.Background()); err != nil {
			s.logger.Printf("index rebuild after deleting %s failed: %v", filename, err)
		}
	}()

	s.writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("deleted %s, index rebuild scheduled", filename)})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		s.methodNotAllowed(w, http.MethodDelete)
		return
	}

	if err := s.ingestor.Reset(); err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("reset: %w", err))
		return
	}

	s.logger.Println("all documents and index data removed")
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "all documents cleared"})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}
	if len(req.Question) > maxQuestionLen {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("question exceeds %d characters", maxQuestionLen))
		return
	}
	if len(req.SyllabusContext) > maxSyllabusLen {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("syllabus_context exceeds %d characters", maxSyllabusLen))
		return
	}
	if req.Marks < 0 || req.Marks > 100 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("marks must be between 0 and 100"))
		return
	}
	if req.Marks == 0 {
		req.Marks = defaultMarks
	}
	if len(req.History) > maxHistoryTurns {
		req.History = req.History[len(req.History)-maxHistoryTurns:]
	}

	history := make([]rag.Turn, len(req.History))
	for i, turn := range req.History {
		history[i] = rag.Turn{Role: turn.Role, Content: turn.Content}
	}

	answer, err := s.answerer.Ask(r.Context(), rag.Request{
		Question:        req.Question,
		SyllabusContext: req.SyllabusContext,
		Marks:           req.Marks,
		History:         history,
	})
	if errors.Is(err, rag.ErrNoDocuments) {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("No documents uploaded yet. Please upload PDFs first."))
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("answer question: %w", err))
		return
	}

	s.writeJSON(w, http.StatusOK, toAskResponse(answer))
}

func toStatusResponse(job jobs.Job) statusResponse {
	return statusResponse{
		Status: string(job.Status),
		Pages:  job.Pages,
		Chunks: job.Chunks,
		Error:  job.Error,
	}
}

func toAskResponse(answer rag.Answer) askResponse {
	sources := make([]askSource, len(answer.Sources))
	for i, src := range answer.Sources {
		sources[i] = askSource{Page: src.Page, Text: src.Text}
	}

	resp := askResponse{
		Answer:  answer.Answer,
		Pages:   answer.Pages,
		Sources: sources,
	}
	if resp.Pages == nil {
		resp.Pages = []string{}
	}
	if answer.Failed {
		resp.Error = "generation_failed"
	}
	return resp
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed, use %s", allowed))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Printf("api error (%d): %v", status, err)
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}

	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON object")
	}

	return nil
}
