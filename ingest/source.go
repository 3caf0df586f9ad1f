package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dacharyc/revdiff"
)

// maxLineSize bounds a single JSONL record. Full article revisions are large.
const maxLineSize = 64 << 20

// RawRevision is one revision as delivered by a fetcher, before annotation.
type RawRevision struct {
	ID        revdiff.RevisionID `json:"id"`
	Author    string             `json:"author"`
	Timestamp time.Time          `json:"timestamp"`
	Text      string             `json:"text"`
	// HTML marks Text as rendered HTML rather than wiki text.
	HTML bool `json:"html,omitempty"`
}

// Source yields revisions in chronological order. Next returns io.EOF after
// the last revision.
type Source interface {
	Next(ctx context.Context) (RawRevision, error)
}

// JSONLSource reads one JSON-encoded RawRevision per line. Blank lines are
// skipped.
type JSONLSource struct {
	scanner *bufio.Scanner
	line    int
}

// NewJSONLSource creates a JSONLSource reading from r.
func NewJSONLSource(r io.Reader) *JSONLSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &JSONLSource{scanner: scanner}
}

// Next implements Source.
func (s *JSONLSource) Next(ctx context.Context) (RawRevision, error) {
	for {
		if err := ctx.Err(); err != nil {
			return RawRevision{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return RawRevision{}, fmt.Errorf("reading line %d: %w", s.line+1, err)
			}
			return RawRevision{}, io.EOF
		}
		s.line++

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		var raw RawRevision
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			return RawRevision{}, fmt.Errorf("line %d: %w", s.line, err)
		}
		return raw, nil
	}
}

// SliceSource serves revisions from memory.
type SliceSource struct {
	revisions []RawRevision
	next      int
}

// NewSliceSource creates a Source over revisions.
func NewSliceSource(revisions ...RawRevision) *SliceSource {
	return &SliceSource{revisions: revisions}
}

// Next implements Source.
func (s *SliceSource) Next(ctx context.Context) (RawRevision, error) {
	if err := ctx.Err(); err != nil {
		return RawRevision{}, err
	}
	if s.next >= len(s.revisions) {
		return RawRevision{}, io.EOF
	}
	s.next++
	return s.revisions[s.next-1], nil
}
