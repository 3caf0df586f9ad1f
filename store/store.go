// Package store provides SQLite-based storage for ingested revisions,
// word authorship stamps, deletions and contributions.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dacharyc/revdiff"
	"github.com/dacharyc/revdiff/ingest"
)

// ErrNotFound is returned when a requested revision does not exist.
var ErrNotFound = errors.New("not found")

// Schema is the SQLite schema.
const Schema = `
CREATE TABLE IF NOT EXISTS revisions (
    doc_id      TEXT NOT NULL,
    id          INTEGER NOT NULL,
    author      TEXT NOT NULL,
    timestamp   INTEGER NOT NULL,
    previous    INTEGER NOT NULL DEFAULT 0,
    words       INTEGER NOT NULL,
    added       INTEGER NOT NULL,
    deleted     INTEGER NOT NULL,
    ingested_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (doc_id, id)
);

CREATE TABLE IF NOT EXISTS sections (
    doc_id      TEXT NOT NULL,
    revision_id INTEGER NOT NULL,
    id          INTEGER NOT NULL,
    parent      INTEGER NOT NULL,
    title       TEXT NOT NULL,
    level       INTEGER NOT NULL,
    PRIMARY KEY (doc_id, revision_id, id)
);

CREATE TABLE IF NOT EXISTS words (
    doc_id      TEXT NOT NULL,
    revision_id INTEGER NOT NULL,
    id          INTEGER NOT NULL,
    sentence_id INTEGER NOT NULL,
    section_id  INTEGER NOT NULL,
    surface     TEXT NOT NULL,
    text        TEXT NOT NULL,
    stem        TEXT NOT NULL,
    tag         TEXT NOT NULL,
    start_pos   INTEGER NOT NULL,
    end_pos     INTEGER NOT NULL,
    created_in  INTEGER NOT NULL,
    deleted_in  INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (doc_id, revision_id, id)
);

CREATE TABLE IF NOT EXISTS deletions (
    doc_id      TEXT NOT NULL,
    revision_id INTEGER NOT NULL,
    deleter     TEXT NOT NULL,
    creator     TEXT NOT NULL,
    created_in  INTEGER NOT NULL,
    words       INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS contributions (
    doc_id      TEXT NOT NULL,
    revision_id INTEGER NOT NULL,
    author      TEXT NOT NULL,
    concept     TEXT NOT NULL,
    timestamp   INTEGER NOT NULL,
    words       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_revisions_time ON revisions(doc_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_words_created ON words(doc_id, created_in);
CREATE INDEX IF NOT EXISTS idx_deletions_creator ON deletions(creator);
CREATE INDEX IF NOT EXISTS idx_contributions_author ON contributions(author);
`

// Store persists ingestion results. It implements ingest.Store.
type Store struct {
	db *sql.DB
}

var _ ingest.Store = (*Store)(nil)

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory:
	// databases alive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// transaction runs fn in a transaction, rolling back when it fails.
func (s *Store) transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	return tx.Commit()
}

// HasRevision reports whether a revision is stored.
func (s *Store) HasRevision(ctx context.Context, docID string, id revdiff.RevisionID) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM revisions WHERE doc_id = ? AND id = ?", docID, int64(id)).Scan(&n)
	return n > 0, err
}

// SaveRevision stores a batch in one transaction: the revision row, its
// sections and stamped words, the deletion stamps on the previous
// revision's words, and the deletion and contribution rows.
func (s *Store) SaveRevision(ctx context.Context, b *ingest.Batch) error {
	rev := b.Revision
	return s.transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO revisions (doc_id, id, author, timestamp, previous, words, added, deleted)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, b.DocID, int64(rev.ID), rev.Author, rev.Timestamp.UnixNano(), int64(b.Previous),
			rev.WordCount(), b.Added, len(b.Deleted)); err != nil {
			return fmt.Errorf("insert revision: %w", err)
		}

		if err := insertSections(ctx, tx, b.DocID, rev); err != nil {
			return err
		}
		if err := insertWords(ctx, tx, b.DocID, rev); err != nil {
			return err
		}
		if err := markDeleted(ctx, tx, b.DocID, b.Previous, b.Deleted); err != nil {
			return err
		}

		for _, d := range b.Deletions {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO deletions (doc_id, revision_id, deleter, creator, created_in, words)
				VALUES (?, ?, ?, ?, ?, ?)
			`, b.DocID, int64(rev.ID), d.Deleter, d.Creator, int64(d.CreatedIn), d.Words); err != nil {
				return fmt.Errorf("insert deletion: %w", err)
			}
		}
		for _, c := range b.Contributions {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO contributions (doc_id, revision_id, author, concept, timestamp, words)
				VALUES (?, ?, ?, ?, ?, ?)
			`, b.DocID, int64(c.Revision), c.Author, c.Concept, c.Timestamp.UnixNano(), c.Words); err != nil {
				return fmt.Errorf("insert contribution: %w", err)
			}
		}
		return nil
	})
}

func insertSections(ctx context.Context, tx *sql.Tx, docID string, rev *revdiff.Revision) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sections (doc_id, revision_id, id, parent, title, level)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, sec := range rev.Sections {
		if _, err := stmt.ExecContext(ctx, docID, int64(rev.ID), int(sec.ID), int(sec.Parent), sec.Title, sec.Level); err != nil {
			return fmt.Errorf("insert section %d: %w", sec.ID, err)
		}
	}
	return nil
}

func insertWords(ctx context.Context, tx *sql.Tx, docID string, rev *revdiff.Revision) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO words (doc_id, revision_id, id, sentence_id, section_id, surface, text, stem, tag,
		                   start_pos, end_pos, created_in, deleted_in)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, sent := range rev.Sentences {
		for _, w := range sent.Words {
			if _, err := stmt.ExecContext(ctx, docID, int64(rev.ID), int(w.ID), int(sent.ID), int(sent.Section),
				w.Surface, w.Text, w.Stem, w.Tag, w.Start, w.End, int64(w.CreatedIn), int64(w.DeletedIn)); err != nil {
				return fmt.Errorf("insert word %d: %w", w.ID, err)
			}
		}
	}
	return nil
}

func markDeleted(ctx context.Context, tx *sql.Tx, docID string, prev revdiff.RevisionID, deleted []revdiff.Word) error {
	if len(deleted) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		UPDATE words SET deleted_in = ? WHERE doc_id = ? AND revision_id = ? AND id = ?
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, w := range deleted {
		if _, err := stmt.ExecContext(ctx, int64(w.DeletedIn), docID, int64(prev), int(w.ID)); err != nil {
			return fmt.Errorf("mark word %d deleted: %w", w.ID, err)
		}
	}
	return nil
}

// LatestRevision returns the newest revision of a document, or nil when
// none is stored.
func (s *Store) LatestRevision(ctx context.Context, docID string) (*revdiff.Revision, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM revisions WHERE doc_id = ? ORDER BY timestamp DESC, id DESC LIMIT 1
	`, docID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.Revision(ctx, docID, revdiff.RevisionID(id))
}

// Revision rebuilds a stored revision with its sections, sentences and
// word stamps.
func (s *Store) Revision(ctx context.Context, docID string, id revdiff.RevisionID) (*revdiff.Revision, error) {
	rev := &revdiff.Revision{ID: id}
	var ts int64
	err := s.db.QueryRowContext(ctx,
		"SELECT author, timestamp FROM revisions WHERE doc_id = ? AND id = ?", docID, int64(id)).
		Scan(&rev.Author, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("revision %d of %q: %w", id, docID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	rev.Timestamp = time.Unix(0, ts).UTC()

	if rev.Sections, err = s.sections(ctx, docID, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sentence_id, section_id, surface, text, stem, tag, start_pos, end_pos, created_in, deleted_in
		FROM words WHERE doc_id = ? AND revision_id = ? ORDER BY id
	`, docID, int64(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			w          revdiff.Word
			sentenceID int
			sectionID  int
			created    int64
			deletedIn  int64
		)
		if err := rows.Scan(&w.ID, &sentenceID, &sectionID, &w.Surface, &w.Text, &w.Stem, &w.Tag,
			&w.Start, &w.End, &created, &deletedIn); err != nil {
			return nil, err
		}
		w.CreatedIn = revdiff.RevisionID(created)
		w.DeletedIn = revdiff.RevisionID(deletedIn)

		n := len(rev.Sentences)
		if n == 0 || rev.Sentences[n-1].ID != revdiff.SentenceID(sentenceID) {
			rev.Sentences = append(rev.Sentences, revdiff.Sentence{
				ID:      revdiff.SentenceID(sentenceID),
				Section: revdiff.SectionID(sectionID),
			})
			n++
		}
		rev.Sentences[n-1].Words = append(rev.Sentences[n-1].Words, w)
	}
	return rev, rows.Err()
}

func (s *Store) sections(ctx context.Context, docID string, id revdiff.RevisionID) ([]revdiff.Section, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent, title, level FROM sections WHERE doc_id = ? AND revision_id = ? ORDER BY id
	`, docID, int64(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []revdiff.Section
	for rows.Next() {
		var sec revdiff.Section
		if err := rows.Scan(&sec.ID, &sec.Parent, &sec.Title, &sec.Level); err != nil {
			return nil, err
		}
		sections = append(sections, sec)
	}
	return sections, rows.Err()
}

// RevisionAuthors returns the author of each stored revision among ids.
func (s *Store) RevisionAuthors(ctx context.Context, docID string, ids []revdiff.RevisionID) (map[revdiff.RevisionID]string, error) {
	authors := make(map[revdiff.RevisionID]string, len(ids))
	if len(ids) == 0 {
		return authors, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, docID)
	for _, id := range ids {
		args = append(args, int64(id))
	}
	query := "SELECT id, author FROM revisions WHERE doc_id = ? AND id IN (?" +
		strings.Repeat(", ?", len(ids)-1) + ")"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id     int64
			author string
		)
		if err := rows.Scan(&id, &author); err != nil {
			return nil, err
		}
		authors[revdiff.RevisionID(id)] = author
	}
	return authors, rows.Err()
}

// RevisionInfo summarizes one stored revision.
type RevisionInfo struct {
	ID        revdiff.RevisionID
	Author    string
	Timestamp time.Time
	Words     int
	Added     int
	Deleted   int
}

// Revisions lists a document's revisions in chronological order.
func (s *Store) Revisions(ctx context.Context, docID string) ([]RevisionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, author, timestamp, words, added, deleted
		FROM revisions WHERE doc_id = ? ORDER BY timestamp, id
	`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []RevisionInfo
	for rows.Next() {
		var (
			info RevisionInfo
			id   int64
			ts   int64
		)
		if err := rows.Scan(&id, &info.Author, &ts, &info.Words, &info.Added, &info.Deleted); err != nil {
			return nil, err
		}
		info.ID = revdiff.RevisionID(id)
		info.Timestamp = time.Unix(0, ts).UTC()
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// WordHistory returns the words of a stored revision with the author of the
// revision that created each one.
func (s *Store) WordHistory(ctx context.Context, docID string, id revdiff.RevisionID) ([]AttributedWord, error) {
	rev, err := s.Revision(ctx, docID, id)
	if err != nil {
		return nil, err
	}

	var ids []revdiff.RevisionID
	seen := make(map[revdiff.RevisionID]struct{})
	for _, w := range rev.Words() {
		if _, ok := seen[w.CreatedIn]; !ok {
			seen[w.CreatedIn] = struct{}{}
			ids = append(ids, w.CreatedIn)
		}
	}
	authors, err := s.RevisionAuthors(ctx, docID, ids)
	if err != nil {
		return nil, err
	}

	history := make([]AttributedWord, 0, rev.WordCount())
	for _, w := range rev.Words() {
		history = append(history, AttributedWord{Word: *w, Author: authors[w.CreatedIn]})
	}
	return history, nil
}

// AttributedWord is a word with the author who created it.
type AttributedWord struct {
	revdiff.Word
	Author string
}

// AuthorStats aggregates an author's activity across all documents.
type AuthorStats struct {
	Author    string
	Revisions int
	// Added counts words the author created.
	Added int
	// DeletedByOthers counts the author's words removed by someone else.
	DeletedByOthers int
	// DeletedBySelf counts the author's words they removed themselves.
	DeletedBySelf int
	// DeletedOthers counts words of other authors this author removed.
	DeletedOthers int
}

// AuthorStats returns per-author totals, sorted by author.
func (s *Store) AuthorStats(ctx context.Context) ([]AuthorStats, error) {
	stats := make(map[string]*AuthorStats)
	get := func(author string) *AuthorStats {
		st, ok := stats[author]
		if !ok {
			st = &AuthorStats{Author: author}
			stats[author] = st
		}
		return st
	}

	rows, err := s.db.QueryContext(ctx, "SELECT author, COUNT(*), SUM(added) FROM revisions GROUP BY author")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			author     string
			revs, adds int
		)
		if err := rows.Scan(&author, &revs, &adds); err != nil {
			rows.Close()
			return nil, err
		}
		st := get(author)
		st.Revisions = revs
		st.Added = adds
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT deleter, creator, SUM(words) FROM deletions GROUP BY deleter, creator")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			deleter, creator string
			words            int
		)
		if err := rows.Scan(&deleter, &creator, &words); err != nil {
			rows.Close()
			return nil, err
		}
		if deleter == creator {
			get(creator).DeletedBySelf += words
			continue
		}
		get(creator).DeletedByOthers += words
		get(deleter).DeletedOthers += words
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]AuthorStats, 0, len(stats))
	for _, st := range stats {
		result = append(result, *st)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Author < result[j].Author })
	return result, nil
}

// Contributions returns contribution rows, all of them when author is empty,
// ordered by time.
func (s *Store) Contributions(ctx context.Context, author string) ([]ingest.Contribution, error) {
	query := "SELECT revision_id, author, concept, timestamp, words FROM contributions"
	var args []any
	if author != "" {
		query += " WHERE author = ?"
		args = append(args, author)
	}
	query += " ORDER BY timestamp, revision_id, concept"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contributions []ingest.Contribution
	for rows.Next() {
		var (
			c      ingest.Contribution
			rev    int64
			tsNano int64
		)
		if err := rows.Scan(&rev, &c.Author, &c.Concept, &tsNano, &c.Words); err != nil {
			return nil, err
		}
		c.Revision = revdiff.RevisionID(rev)
		c.Timestamp = time.Unix(0, tsNano).UTC()
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}
