// Package ingest folds a document's revision history into authorship
// records. Each new revision is diffed against the latest stored one; every
// word keeps the revision that created it, deleted words are attributed to
// the author who removed them, and added words are mapped to ontology
// concepts as contributions of the revision's author.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dacharyc/revdiff"
	"github.com/dacharyc/revdiff/ontology"
)

var (
	// ErrInvalidRevision is returned for revisions without a positive ID.
	ErrInvalidRevision = errors.New("invalid revision")
	// ErrOutOfOrder is returned for a revision older than the latest stored one.
	ErrOutOfOrder = errors.New("revision out of order")
)

// Deletion counts words of one creator removed by one deleter in a revision.
type Deletion struct {
	Deleter   string
	Creator   string
	CreatedIn revdiff.RevisionID
	Words     int
}

// SelfDeletion reports whether the deleter removed their own words.
func (d Deletion) SelfDeletion() bool {
	return d.Deleter == d.Creator
}

// Contribution counts words an author added about one concept in a revision.
type Contribution struct {
	Author    string
	Concept   string
	Revision  revdiff.RevisionID
	Timestamp time.Time
	Words     int
}

// Batch is everything persisted for one ingested revision. A Store must
// save it atomically.
type Batch struct {
	DocID    string
	Revision *revdiff.Revision // words stamped with CreatedIn
	Previous revdiff.RevisionID

	// Added is the number of words the revision created.
	Added int
	// Deleted holds words of the previous revision with DeletedIn stamped.
	Deleted []revdiff.Word

	Deletions     []Deletion
	Contributions []Contribution
}

// Store persists ingested revisions.
type Store interface {
	HasRevision(ctx context.Context, docID string, id revdiff.RevisionID) (bool, error)
	// LatestRevision returns the newest stored revision with its word
	// stamps, or nil when the document has none.
	LatestRevision(ctx context.Context, docID string) (*revdiff.Revision, error)
	// RevisionAuthors returns the author of each known revision ID.
	RevisionAuthors(ctx context.Context, docID string, ids []revdiff.RevisionID) (map[revdiff.RevisionID]string, error)
	SaveRevision(ctx context.Context, b *Batch) error
}

// Options configures an Ingester.
type Options struct {
	// Differ compares consecutive revisions. If nil, a default Differ is used.
	Differ *revdiff.Differ
	// Annotator splits revision text. If nil, a default Annotator is used.
	Annotator *revdiff.Annotator
	// Index maps added words to concepts. Without one, no contributions
	// are recorded.
	Index ontology.Index
	Logger zerolog.Logger
}

// Ingester turns raw revisions into stored authorship records.
type Ingester struct {
	store     Store
	differ    *revdiff.Differ
	annotator *revdiff.Annotator
	index     ontology.Index
	logger    zerolog.Logger
}

// New creates an Ingester writing to store.
func New(store Store, opts Options) *Ingester {
	if opts.Differ == nil {
		o := revdiff.DefaultOptions()
		o.Logger = opts.Logger
		opts.Differ = revdiff.NewDiffer(o)
	}
	if opts.Annotator == nil {
		opts.Annotator = revdiff.NewAnnotator(revdiff.DefaultAnnotateOptions())
	}
	return &Ingester{
		store:     store,
		differ:    opts.Differ,
		annotator: opts.Annotator,
		index:     opts.Index,
		logger:    opts.Logger.With().Str("component", "Ingester").Logger(),
	}
}

// Outcome reports what ingesting one revision did.
type Outcome struct {
	Revision revdiff.RevisionID
	// Skipped is true when the revision was already stored.
	Skipped       bool
	Words         int
	Added         int
	Deleted       int
	Unchanged     int
	Contributions int
}

// Summary totals the outcomes of an Ingest run.
type Summary struct {
	Ingested int
	Skipped  int
	Added    int
	Deleted  int
}

func (s *Summary) add(o Outcome) {
	if o.Skipped {
		s.Skipped++
		return
	}
	s.Ingested++
	s.Added += o.Added
	s.Deleted += o.Deleted
}

// Ingest reads src to the end, ingesting each revision in order. It stops at
// the first failing revision; revisions before it stay stored.
func (in *Ingester) Ingest(ctx context.Context, docID string, src Source) (Summary, error) {
	var sum Summary
	for {
		raw, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return sum, nil
		}
		if err != nil {
			return sum, fmt.Errorf("reading revisions: %w", err)
		}

		out, err := in.IngestRevision(ctx, docID, raw)
		if err != nil {
			return sum, fmt.Errorf("revision %d: %w", raw.ID, err)
		}
		sum.add(out)
	}
}

// IngestRevision ingests one revision. Ingesting a revision that is already
// stored is a no-op reported through Outcome.Skipped.
func (in *Ingester) IngestRevision(ctx context.Context, docID string, raw RawRevision) (Outcome, error) {
	out := Outcome{Revision: raw.ID}
	if raw.ID <= 0 {
		return out, fmt.Errorf("%w: id %d", ErrInvalidRevision, raw.ID)
	}

	exists, err := in.store.HasRevision(ctx, docID, raw.ID)
	if err != nil {
		return out, fmt.Errorf("checking revision: %w", err)
	}
	if exists {
		in.logger.Debug().Str("doc", docID).Int64("revision", int64(raw.ID)).Msg("revision already ingested")
		out.Skipped = true
		return out, nil
	}

	prev, err := in.store.LatestRevision(ctx, docID)
	if err != nil {
		return out, fmt.Errorf("loading previous revision: %w", err)
	}
	if prev != nil && raw.Timestamp.Before(prev.Timestamp) {
		return out, fmt.Errorf("%w: %s is before revision %d at %s",
			ErrOutOfOrder, raw.Timestamp.Format(time.RFC3339), prev.ID, prev.Timestamp.Format(time.RFC3339))
	}

	rev, err := in.annotate(raw)
	if err != nil {
		return out, err
	}

	batch := &Batch{DocID: docID, Revision: rev}
	if prev == nil {
		for _, w := range rev.Words() {
			w.CreatedIn = rev.ID
		}
	} else {
		batch.Previous = prev.ID
		res := in.differ.Diff(prev, rev)
		if n := stamp(rev, prev.ID, res); n > 0 {
			in.logger.Warn().Int64("revision", int64(rev.ID)).Int("words", n).Msg("words left unpaired by the diff treated as added")
		}
		batch.Deleted = deletedWords(rev.ID, res)
		batch.Deletions, err = in.attributeDeletions(ctx, docID, raw.Author, batch.Deleted)
		if err != nil {
			return out, err
		}
	}

	added := createdIn(rev, rev.ID)
	batch.Added = len(added)
	batch.Contributions = in.contributions(rev, added)

	if err := in.store.SaveRevision(ctx, batch); err != nil {
		return out, fmt.Errorf("saving revision: %w", err)
	}

	out.Words = rev.WordCount()
	out.Added = batch.Added
	out.Deleted = len(batch.Deleted)
	out.Unchanged = out.Words - out.Added
	out.Contributions = len(batch.Contributions)

	in.logger.Info().
		Str("doc", docID).
		Int64("revision", int64(rev.ID)).
		Str("author", rev.Author).
		Int("added", out.Added).
		Int("deleted", out.Deleted).
		Int("unchanged", out.Unchanged).
		Msg("revision ingested")
	return out, nil
}

// annotate turns raw text into a revision carrying the raw metadata.
func (in *Ingester) annotate(raw RawRevision) (*revdiff.Revision, error) {
	text := raw.Text
	if raw.HTML {
		var err error
		text, err = revdiff.ExtractHTMLText(strings.NewReader(raw.Text))
		if err != nil {
			return nil, fmt.Errorf("extracting text: %w", err)
		}
	}
	rev := in.annotator.Annotate(text, raw.ID)
	rev.Author = raw.Author
	rev.Timestamp = raw.Timestamp
	return rev, nil
}

// stamp sets CreatedIn on every word of rev: unchanged words keep their old
// stamp, added words get rev.ID and collapsed duplicates copy their
// representative. It returns the number of words no diff bucket covered;
// those are stamped as added.
func stamp(rev *revdiff.Revision, prevID revdiff.RevisionID, res *revdiff.Result) int {
	words := make(map[revdiff.WordID]*revdiff.Word, rev.WordCount())
	for _, w := range rev.Words() {
		words[w.ID] = w
	}

	for _, p := range res.Unchanged {
		if w := words[p.New.ID]; w != nil {
			w.CreatedIn = p.Old.CreatedIn
			if w.CreatedIn == 0 {
				w.CreatedIn = prevID
			}
		}
	}
	for _, a := range res.Added {
		if w := words[a.ID]; w != nil {
			w.CreatedIn = rev.ID
		}
	}
	for _, d := range res.Duplicates {
		w, rep := words[d.Word.ID], rev.WordByID(d.Representative.ID)
		if w != nil && rep != nil {
			w.CreatedIn = rep.CreatedIn
		}
	}

	missing := 0
	for _, w := range words {
		if w.CreatedIn == 0 {
			w.CreatedIn = rev.ID
			missing++
		}
	}
	return missing
}

// deletedWords returns the previous revision's words that rev removed,
// stamped with rev's ID. A collapsed old duplicate is removed along with its
// representative.
func deletedWords(id revdiff.RevisionID, res *revdiff.Result) []revdiff.Word {
	deleted := make([]revdiff.Word, 0, len(res.Deleted))
	for _, w := range res.Deleted {
		w.DeletedIn = id
		deleted = append(deleted, w)
	}
	if len(res.OldDuplicates) == 0 {
		return deleted
	}
	kept := res.UnchangedMap()
	for _, d := range res.OldDuplicates {
		if _, ok := kept[d.Representative.ID]; ok {
			continue
		}
		w := d.Word
		w.DeletedIn = id
		deleted = append(deleted, w)
	}
	return deleted
}

// attributeDeletions groups deleted words by the revision that created them.
func (in *Ingester) attributeDeletions(ctx context.Context, docID, deleter string, deleted []revdiff.Word) ([]Deletion, error) {
	if len(deleted) == 0 {
		return nil, nil
	}

	counts := make(map[revdiff.RevisionID]int)
	for _, w := range deleted {
		counts[w.CreatedIn]++
	}
	ids := make([]revdiff.RevisionID, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	authors, err := in.store.RevisionAuthors(ctx, docID, ids)
	if err != nil {
		return nil, fmt.Errorf("loading revision authors: %w", err)
	}

	deletions := make([]Deletion, 0, len(ids))
	for _, id := range ids {
		creator, ok := authors[id]
		if !ok {
			in.logger.Warn().Int64("created_in", int64(id)).Msg("deleted words from an unknown revision")
		}
		deletions = append(deletions, Deletion{Deleter: deleter, Creator: creator, CreatedIn: id, Words: counts[id]})
	}
	return deletions, nil
}

// contributions maps added words to concepts.
func (in *Ingester) contributions(rev *revdiff.Revision, added []revdiff.Word) []Contribution {
	if in.index == nil || len(added) == 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, w := range added {
		if revdiff.IsStopword(w.Text) {
			continue
		}
		key := w.Stem
		if key == "" {
			key = w.Text
		}
		for _, concept := range in.index.ConceptsForStem(key) {
			counts[concept]++
		}
	}

	concepts := make([]string, 0, len(counts))
	for c := range counts {
		concepts = append(concepts, c)
	}
	sort.Strings(concepts)

	contributions := make([]Contribution, 0, len(concepts))
	for _, c := range concepts {
		contributions = append(contributions, Contribution{
			Author:    rev.Author,
			Concept:   c,
			Revision:  rev.ID,
			Timestamp: rev.Timestamp,
			Words:     counts[c],
		})
	}
	return contributions
}

// createdIn returns the words of rev stamped with id.
func createdIn(rev *revdiff.Revision, id revdiff.RevisionID) []revdiff.Word {
	var words []revdiff.Word
	for _, w := range rev.Words() {
		if w.CreatedIn == id {
			words = append(words, *w)
		}
	}
	return words
}
