package ingest_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dacharyc/revdiff"
	"github.com/dacharyc/revdiff/ingest"
	"github.com/dacharyc/revdiff/ontology"
	"github.com/dacharyc/revdiff/store"
)

const doc = "Rivers"

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func at(days int) time.Time {
	return t0.Add(time.Duration(days) * 24 * time.Hour)
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "revdiff.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newIngester(t *testing.T, s ingest.Store) *ingest.Ingester {
	t.Helper()
	onto, err := ontology.Load(filepath.Join("..", "testdata", "ontology.yaml"))
	require.NoError(t, err)
	return ingest.New(s, ingest.Options{Index: onto, Logger: zerolog.Nop()})
}

// stamps maps each word text of a revision to the revisions that created it.
func stamps(rev *revdiff.Revision) map[string][]revdiff.RevisionID {
	m := make(map[string][]revdiff.RevisionID)
	for _, w := range rev.Words() {
		m[w.Text] = append(m[w.Text], w.CreatedIn)
	}
	return m
}

func TestIngestRevision_FirstRevision(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	in := newIngester(t, s)

	out, err := in.IngestRevision(ctx, doc, ingest.RawRevision{
		ID: 1, Author: "alice", Timestamp: at(0), Text: "The river flows north. The cat sat.",
	})
	require.NoError(t, err)
	assert.False(t, out.Skipped)
	assert.Equal(t, 7, out.Words)
	assert.Equal(t, 7, out.Added)
	assert.Equal(t, 0, out.Deleted)
	assert.Equal(t, 2, out.Contributions)

	rev, err := s.LatestRevision(ctx, doc)
	require.NoError(t, err)
	require.NotNil(t, rev)
	assert.Equal(t, "alice", rev.Author)
	for _, w := range rev.Words() {
		assert.Equal(t, revdiff.RevisionID(1), w.CreatedIn, "word %q", w.Text)
	}
}

func TestIngestRevision_CarriesStamps(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	in := newIngester(t, s)

	_, err := in.IngestRevision(ctx, doc, ingest.RawRevision{
		ID: 1, Author: "alice", Timestamp: at(0), Text: "The river flows north. The cat sat.",
	})
	require.NoError(t, err)

	out, err := in.IngestRevision(ctx, doc, ingest.RawRevision{
		ID: 2, Author: "bob", Timestamp: at(1), Text: "The cat sat. The river flows south. Mountains rise high.",
	})
	require.NoError(t, err)
	assert.Equal(t, 10, out.Words)
	assert.Equal(t, 4, out.Added)
	assert.Equal(t, 1, out.Deleted)
	assert.Equal(t, 6, out.Unchanged)

	rev, err := s.LatestRevision(ctx, doc)
	require.NoError(t, err)
	got := stamps(rev)
	assert.Equal(t, []revdiff.RevisionID{1, 1}, got["the"])
	assert.Equal(t, []revdiff.RevisionID{1}, got["cat"])
	assert.Equal(t, []revdiff.RevisionID{1}, got["river"])
	assert.Equal(t, []revdiff.RevisionID{2}, got["south"])
	assert.Equal(t, []revdiff.RevisionID{2}, got["mountains"])

	// "north" is stamped deleted in the first revision's snapshot.
	first, err := s.Revision(ctx, doc, 1)
	require.NoError(t, err)
	for _, w := range first.Words() {
		if w.Text == "north" {
			assert.Equal(t, revdiff.RevisionID(2), w.DeletedIn)
		} else {
			assert.Zero(t, w.DeletedIn, "word %q", w.Text)
		}
	}

	contributions, err := s.Contributions(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, contributions, 1)
	assert.Equal(t, "geology", contributions[0].Concept)
	assert.Equal(t, 1, contributions[0].Words)
}

func TestIngestRevision_AlreadyIngestedIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	in := newIngester(t, s)

	raw := ingest.RawRevision{ID: 1, Author: "alice", Timestamp: at(0), Text: "The river flows north."}
	_, err := in.IngestRevision(ctx, doc, raw)
	require.NoError(t, err)

	out, err := in.IngestRevision(ctx, doc, raw)
	require.NoError(t, err)
	assert.True(t, out.Skipped)

	revs, err := s.Revisions(ctx, doc)
	require.NoError(t, err)
	assert.Len(t, revs, 1)

	contributions, err := s.Contributions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, contributions, 1)
}

func TestIngestRevision_Rejects(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	in := newIngester(t, s)

	_, err := in.IngestRevision(ctx, doc, ingest.RawRevision{ID: 0, Author: "alice", Text: "x"})
	assert.ErrorIs(t, err, ingest.ErrInvalidRevision)

	_, err = in.IngestRevision(ctx, doc, ingest.RawRevision{ID: 5, Author: "alice", Timestamp: at(5), Text: "Later text."})
	require.NoError(t, err)
	_, err = in.IngestRevision(ctx, doc, ingest.RawRevision{ID: 6, Author: "bob", Timestamp: at(1), Text: "Earlier text."})
	assert.ErrorIs(t, err, ingest.ErrOutOfOrder)
}

func TestIngestRevision_DuplicateSentencesKeepStamp(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	in := newIngester(t, s)

	_, err := in.IngestRevision(ctx, doc, ingest.RawRevision{
		ID: 1, Author: "alice", Timestamp: at(0), Text: "See also. Alpha beta.",
	})
	require.NoError(t, err)

	out, err := in.IngestRevision(ctx, doc, ingest.RawRevision{
		ID: 2, Author: "bob", Timestamp: at(1), Text: "See also. Alpha beta. See also.",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Added)
	assert.Equal(t, 0, out.Deleted)

	rev, err := s.LatestRevision(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, []revdiff.RevisionID{1, 1}, stamps(rev)["see"])
}

func TestIngestRevision_DeletesCollapsedDuplicates(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	in := newIngester(t, s)

	_, err := in.IngestRevision(ctx, doc, ingest.RawRevision{
		ID: 1, Author: "alice", Timestamp: at(0), Text: "See also. River bank. See also.",
	})
	require.NoError(t, err)

	out, err := in.IngestRevision(ctx, doc, ingest.RawRevision{
		ID: 2, Author: "bob", Timestamp: at(1), Text: "River bank.",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Added)
	assert.Equal(t, 4, out.Deleted)

	first, err := s.Revision(ctx, doc, 1)
	require.NoError(t, err)
	for _, w := range first.Words() {
		switch w.Text {
		case "see", "also":
			assert.Equal(t, revdiff.RevisionID(2), w.DeletedIn, "word %d %q", w.ID, w.Text)
		default:
			assert.Zero(t, w.DeletedIn, "word %d %q", w.ID, w.Text)
		}
	}

	stats, err := s.AuthorStats(ctx)
	require.NoError(t, err)
	byAuthor := make(map[string]store.AuthorStats, len(stats))
	for _, st := range stats {
		byAuthor[st.Author] = st
	}
	assert.Equal(t, 6, byAuthor["alice"].Added)
	assert.Equal(t, 4, byAuthor["alice"].DeletedByOthers)
	assert.Equal(t, 4, byAuthor["bob"].DeletedOthers)
}

func TestIngestRevision_KeepsDuplicateOfSurvivingSentence(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	in := newIngester(t, s)

	_, err := in.IngestRevision(ctx, doc, ingest.RawRevision{
		ID: 1, Author: "alice", Timestamp: at(0), Text: "See also. Rivers meet the sea. See also.",
	})
	require.NoError(t, err)

	out, err := in.IngestRevision(ctx, doc, ingest.RawRevision{
		ID: 2, Author: "bob", Timestamp: at(1), Text: "See also. Rivers meet the ocean.",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Deleted)

	first, err := s.Revision(ctx, doc, 1)
	require.NoError(t, err)
	for _, w := range first.Words() {
		if w.Text == "sea" {
			assert.Equal(t, revdiff.RevisionID(2), w.DeletedIn)
		} else {
			assert.Zero(t, w.DeletedIn, "word %d %q", w.ID, w.Text)
		}
	}
}

func TestIngestRevision_HTML(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	in := newIngester(t, s)

	out, err := in.IngestRevision(ctx, doc, ingest.RawRevision{
		ID: 1, Author: "alice", Timestamp: at(0), HTML: true,
		Text: `<div id="mw-content-text"><p>The river floods.<sup class="reference">[1]</sup></p></div>`,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Words)
}

func TestIngest_History(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	in := newIngester(t, s)

	src := ingest.NewSliceSource(
		ingest.RawRevision{ID: 1, Author: "alice", Timestamp: at(0), Text: "The river flows north. The cat sat."},
		ingest.RawRevision{ID: 2, Author: "bob", Timestamp: at(1), Text: "The cat sat. The river flows south. Mountains rise high."},
		ingest.RawRevision{ID: 2, Author: "bob", Timestamp: at(1), Text: "The cat sat. The river flows south. Mountains rise high."},
		ingest.RawRevision{ID: 3, Author: "alice", Timestamp: at(2), Text: "The cat sat. Mountains rise high."},
	)

	sum, err := in.Ingest(ctx, doc, src)
	require.NoError(t, err)
	assert.Equal(t, ingest.Summary{Ingested: 3, Skipped: 1, Added: 11, Deleted: 5}, sum)

	stats, err := s.AuthorStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	alice, bob := stats[0], stats[1]
	assert.Equal(t, store.AuthorStats{
		Author: "alice", Revisions: 2, Added: 7, DeletedByOthers: 1, DeletedBySelf: 3, DeletedOthers: 1,
	}, alice)
	assert.Equal(t, store.AuthorStats{
		Author: "bob", Revisions: 1, Added: 4, DeletedByOthers: 1, DeletedOthers: 1,
	}, bob)

	rev, err := s.LatestRevision(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, revdiff.RevisionID(3), rev.ID)
	got := stamps(rev)
	assert.Equal(t, []revdiff.RevisionID{1}, got["cat"])
	assert.Equal(t, []revdiff.RevisionID{2}, got["mountains"])
}

func TestIngest_StopsAtFirstError(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	in := newIngester(t, s)

	src := ingest.NewSliceSource(
		ingest.RawRevision{ID: 1, Author: "alice", Timestamp: at(0), Text: "First."},
		ingest.RawRevision{ID: -4, Author: "bob", Timestamp: at(1), Text: "Broken."},
		ingest.RawRevision{ID: 3, Author: "carol", Timestamp: at(2), Text: "Never reached."},
	)

	sum, err := in.Ingest(ctx, doc, src)
	assert.ErrorIs(t, err, ingest.ErrInvalidRevision)
	assert.Equal(t, 1, sum.Ingested)

	ok, err := s.HasRevision(ctx, doc, 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

// failingStore fails every save.
type failingStore struct {
	*store.Store
}

func (failingStore) SaveRevision(context.Context, *ingest.Batch) error {
	return errors.New("disk full")
}

func TestIngestRevision_SaveFailure(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	in := newIngester(t, failingStore{s})

	_, err := in.IngestRevision(ctx, doc, ingest.RawRevision{ID: 1, Author: "alice", Timestamp: at(0), Text: "Text."})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	ok, err := s.HasRevision(ctx, doc, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIngest_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := newIngester(t, newStore(t))
	_, err := in.Ingest(ctx, doc, ingest.NewSliceSource(ingest.RawRevision{ID: 1, Author: "a", Text: "x"}))
	assert.ErrorIs(t, err, context.Canceled)
}
