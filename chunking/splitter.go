// Package chunking splits extracted document sections into bounded,
// overlapping units sized for embedding.
package chunking

import (
	"strings"

	"github.com/google/uuid"

	"github.com/Rudranshpardeshi09/StudyMind-AI/extract"
)

// separators are tried in priority order: paragraph break, line break,
// sentence terminator, whitespace. A hard cut is the last resort.
var separators = []string{"\n\n", "\n", ". ", " "}

// Chunk is one immutable retrievable unit of a source document.
type Chunk struct {
	ID     string
	Text   string
	Source string
	Marker string
	Offset int
}

type Splitter struct {
	maxSize int
	overlap int
}

func NewSplitter(maxSize, overlap int) *Splitter {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if overlap < 0 || overlap >= maxSize {
		overlap = 0
	}
	return &Splitter{maxSize: maxSize, overlap: overlap}
}

// Split chunks every section of one document. Chunk text and ordering are
// deterministic for a given input and configuration; IDs are fresh per
// call so re-ingesting a document appends rather than overwrites.
func (s *Splitter) Split(sections []extract.Section, source string) []Chunk {
	var chunks []Chunk
	base := 0
	for _, section := range sections {
		for _, sp := range s.splitSpans(span{text: section.Text, off: 0}, separators) {
			text := strings.TrimSpace(sp.text)
			if text == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				ID:     uuid.New().String(),
				Text:   text,
				Source: source,
				Marker: section.Marker,
				Offset: base + sp.off,
			})
		}
		base += len(section.Text) + 1
	}
	return chunks
}

// span is a piece of section text together with its byte offset.
type span struct {
	text string
	off  int
}

// splitSpans recursively splits at the first separator that produces
// pieces within the size limit, then merges pieces back into chunks with
// trailing overlap carried across boundaries.
func (s *Splitter) splitSpans(sp span, seps []string) []span {
	if len(sp.text) <= s.maxSize {
		return []span{sp}
	}
	if len(seps) == 0 {
		return s.hardCut(sp)
	}

	sep := seps[0]
	parts := strings.Split(sp.text, sep)
	if len(parts) == 1 {
		return s.splitSpans(sp, seps[1:])
	}

	pieces := make([]span, 0, len(parts))
	cursor := 0
	for _, part := range parts {
		piece := span{text: part, off: sp.off + cursor}
		cursor += len(part) + len(sep)
		if strings.TrimSpace(part) == "" {
			continue
		}
		if len(part) <= s.maxSize {
			pieces = append(pieces, piece)
		} else {
			pieces = append(pieces, s.splitSpans(piece, seps[1:])...)
		}
	}

	return s.merge(pieces, sep)
}

// merge folds pieces into chunks no larger than maxSize. When a chunk is
// emitted, trailing pieces totalling at most overlap characters start the
// next chunk so context survives the boundary.
func (s *Splitter) merge(pieces []span, sep string) []span {
	var out []span
	var cur []span
	curLen := 0
	fresh := 0

	joined := func(group []span) span {
		texts := make([]string, len(group))
		for i, g := range group {
			texts[i] = g.text
		}
		return span{text: strings.Join(texts, sep), off: group[0].off}
	}

	for _, piece := range pieces {
		add := len(piece.text)
		if len(cur) > 0 {
			add += len(sep)
		}

		if curLen+add > s.maxSize && len(cur) > 0 {
			if fresh > 0 {
				out = append(out, joined(cur))
			}
			cur, curLen = s.retainOverlap(cur, sep)
			fresh = 0

			// Drop carried overlap from the front until the new piece fits.
			for len(cur) > 0 && curLen+len(sep)+len(piece.text) > s.maxSize {
				curLen -= len(cur[0].text)
				if len(cur) > 1 {
					curLen -= len(sep)
				}
				cur = cur[1:]
			}
			if len(cur) == 0 {
				curLen = 0
			}
		}

		if len(cur) > 0 {
			curLen += len(sep)
		}
		cur = append(cur, piece)
		curLen += len(piece.text)
		fresh++
	}

	if fresh > 0 && len(cur) > 0 {
		out = append(out, joined(cur))
	}
	return out
}

func (s *Splitter) retainOverlap(cur []span, sep string) ([]span, int) {
	if s.overlap == 0 {
		return nil, 0
	}
	keep := 0
	kept := 0
	for i := len(cur) - 1; i >= 0; i-- {
		add := len(cur[i].text)
		if keep > 0 {
			add += len(sep)
		}
		if kept+add > s.overlap {
			break
		}
		kept += add
		keep++
	}
	if keep == 0 {
		return nil, 0
	}
	tail := make([]span, keep)
	copy(tail, cur[len(cur)-keep:])
	return tail, kept
}

// hardCut windows text that contains no usable separator.
func (s *Splitter) hardCut(sp span) []span {
	step := s.maxSize - s.overlap
	if step <= 0 {
		step = s.maxSize
	}

	var out []span
	for start := 0; start < len(sp.text); start += step {
		end := start + s.maxSize
		if end > len(sp.text) {
			end = len(sp.text)
		}
		out = append(out, span{text: sp.text[start:end], off: sp.off + start})
		if end == len(sp.text) {
			break
		}
	}
	return out
}
