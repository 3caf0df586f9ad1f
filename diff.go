package revdiff

import (
	"sort"

	"github.com/rs/zerolog"
)

// DefaultThreshold is the default near-match acceptance threshold.
const DefaultThreshold = 0.5

// ChangeKind classifies a sentence in a diff result.
type ChangeKind int

const (
	// Matched means the sentence text exists, possibly moved, in both revisions.
	Matched ChangeKind = iota
	// Edited means an aligned pair close enough to be the same sentence, edited.
	Edited
	// Replaced means an aligned pair too far apart to be related.
	Replaced
	// Added means the sentence exists only in the new revision.
	Added
	// Deleted means the sentence exists only in the old revision.
	Deleted
)

// String returns a human-readable representation of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case Matched:
		return "Matched"
	case Edited:
		return "Edited"
	case Replaced:
		return "Replaced"
	case Added:
		return "Added"
	case Deleted:
		return "Deleted"
	default:
		return "Unknown"
	}
}

// SentenceChange records how one deduplicated sentence was classified.
// Old is nil for Added, New is nil for Deleted.
type SentenceChange struct {
	Kind     ChangeKind
	Old      *Sentence
	New      *Sentence
	Distance int
	Ratio    float64
}

// Duplicate records a word whose sentence collapsed onto an identical
// sentence of the same revision during deduplication.
type Duplicate struct {
	Word           Word
	Representative Word
}

// Result is the output of a position-insensitive diff.
type Result struct {
	// Deleted holds old-revision words with no counterpart, in position order.
	Deleted []Word
	// Added holds new-revision words with no counterpart, in position order.
	Added []Word
	// Unchanged pairs every surviving old word with its new word, in old
	// position order.
	Unchanged []WordPair

	// Sentences classifies every deduplicated sentence of both revisions.
	Sentences []SentenceChange
	// Duplicates lists new-revision words that deduplication left out of the
	// three buckets above.
	Duplicates []Duplicate
	// OldDuplicates lists the old-revision words deduplication left out. Each
	// shares the fate of its representative.
	OldDuplicates []Duplicate
}

// UnchangedMap returns the unchanged pairs as old word ID -> new word ID.
func (r *Result) UnchangedMap() map[WordID]WordID {
	m := make(map[WordID]WordID, len(r.Unchanged))
	for _, p := range r.Unchanged {
		m[p.Old.ID] = p.New.ID
	}
	return m
}

// HasChanges returns true if any word was added or deleted.
func (r *Result) HasChanges() bool {
	return len(r.Deleted) > 0 || len(r.Added) > 0
}

// Options configures a Differ.
type Options struct {
	// Threshold is the near-match acceptance threshold. An aligned pair is
	// treated as an edited sentence iff its score is strictly below it, so
	// zero treats every aligned pair as a replacement. DefaultOptions sets
	// DefaultThreshold.
	Threshold float64

	// AbsoluteThreshold, when true, scores aligned pairs by their raw word
	// edit distance instead of the distance relative to the longer sentence.
	AbsoluteThreshold bool

	// Aligner pairs leftover sentences. If nil, an AnchorAligner with
	// DefaultAlignOptions is used.
	Aligner Aligner

	// Logger receives structural anomalies. The zero value discards them.
	Logger zerolog.Logger
}

// DefaultOptions returns Options with default settings.
func DefaultOptions() Options {
	return Options{
		Threshold: DefaultThreshold,
		Aligner:   &AnchorAligner{Options: DefaultAlignOptions()},
		Logger:    zerolog.Nop(),
	}
}

// Differ computes position-insensitive diffs. A Differ holds no state between
// calls and may be shared by goroutines diffing different revision pairs.
type Differ struct {
	threshold float64
	absolute  bool
	aligner   Aligner
	logger    zerolog.Logger
}

// NewDiffer creates a Differ from opts. A nil Aligner is replaced by the
// default one; every other field is used as given.
func NewDiffer(opts Options) *Differ {
	if opts.Aligner == nil {
		opts.Aligner = &AnchorAligner{Options: DefaultAlignOptions()}
	}
	return &Differ{
		threshold: opts.Threshold,
		absolute:  opts.AbsoluteThreshold,
		aligner:   opts.Aligner,
		logger:    opts.Logger.With().Str("component", "Differ").Logger(),
	}
}

// Threshold returns the near-match acceptance threshold.
func (d *Differ) Threshold() float64 {
	return d.threshold
}

// Diff compares two revisions. A nil revision is treated as empty. Neither
// revision is modified.
func (d *Differ) Diff(old, new *Revision) *Result {
	res := &Result{}

	oldSet, oldDups := d.dedupe(old, "old")
	newSet, newDups := d.dedupe(new, "new")
	res.OldDuplicates = oldDups
	res.Duplicates = newDups

	deleted, added, matches := mergeMatch(oldSet, newSet)

	for _, m := range matches {
		d.harvestUnchanged(res, m.old, m.new)
	}

	switch {
	case len(deleted) == 0:
		for i := range added {
			res.addSentence(&added[i])
		}
	case len(added) == 0:
		for i := range deleted {
			res.deleteSentence(&deleted[i])
		}
	default:
		al := d.aligner.Align(deleted, added)
		for i := range al.Pairs {
			d.classifyPair(res, &al.Pairs[i])
		}
		for i := range al.OldRest {
			res.deleteSentence(&al.OldRest[i])
		}
		for i := range al.NewRest {
			res.addSentence(&al.NewRest[i])
		}
	}

	res.finish()
	return res
}

// exactMatch is a pair of textually identical sentences.
type exactMatch struct {
	old, new *Sentence
}

// dedupe returns the revision's sentences sorted by text (ties by position),
// keeping one representative per distinct text.
func (d *Differ) dedupe(rev *Revision, side string) ([]Sentence, []Duplicate) {
	if rev == nil {
		return nil, nil
	}

	type keyed struct {
		text string
		s    Sentence
	}
	items := make([]keyed, 0, len(rev.Sentences))
	for _, s := range rev.Sentences {
		if s.Len() == 0 {
			d.logger.Debug().Str("side", side).Int("sentence", int(s.ID)).Msg("skipping empty sentence")
			continue
		}
		items = append(items, keyed{text: s.Text(), s: s})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].text != items[j].text {
			return items[i].text < items[j].text
		}
		return items[i].s.Start() < items[j].s.Start()
	})

	var (
		set  []Sentence
		dups []Duplicate
	)
	for i, it := range items {
		if i > 0 && it.text == items[i-1].text {
			rep := set[len(set)-1]
			d.logger.Debug().
				Str("side", side).
				Str("text", it.text).
				Int("sentence", int(it.s.ID)).
				Int("representative", int(rep.ID)).
				Msg("collapsing duplicate sentence")
			for k := 0; k < min(len(it.s.Words), len(rep.Words)); k++ {
				dups = append(dups, Duplicate{Word: it.s.Words[k], Representative: rep.Words[k]})
			}
			continue
		}
		set = append(set, it.s)
	}
	return set, dups
}

// mergeMatch walks two text-sorted sentence sets like the merge step of a
// merge sort, splitting them into old-only, new-only and matched sentences.
func mergeMatch(oldSet, newSet []Sentence) (deleted, added []Sentence, matches []exactMatch) {
	i, j := 0, 0
	for i < len(oldSet) && j < len(newSet) {
		ot, nt := oldSet[i].Text(), newSet[j].Text()
		switch {
		case ot == nt:
			matches = append(matches, exactMatch{old: &oldSet[i], new: &newSet[j]})
			i++
			j++
		case ot < nt:
			deleted = append(deleted, oldSet[i])
			i++
		default:
			added = append(added, newSet[j])
			j++
		}
	}
	deleted = append(deleted, oldSet[i:]...)
	added = append(added, newSet[j:]...)
	return deleted, added, matches
}

// harvestUnchanged zips the words of two textually equal sentences.
func (d *Differ) harvestUnchanged(res *Result, old, new *Sentence) {
	if old.Len() != new.Len() {
		d.logger.Warn().
			Int("old_sentence", int(old.ID)).
			Int("new_sentence", int(new.ID)).
			Int("old_words", old.Len()).
			Int("new_words", new.Len()).
			Msg("matched sentences differ in word count")
	}
	n := min(old.Len(), new.Len())
	for k := 0; k < n; k++ {
		res.Unchanged = append(res.Unchanged, WordPair{Old: old.Words[k], New: new.Words[k]})
	}
	res.Sentences = append(res.Sentences, SentenceChange{Kind: Matched, Old: old, New: new})
}

// classifyPair decides whether an aligned pair is an edit or a replacement.
func (d *Differ) classifyPair(res *Result, p *AlignedPair) {
	score := p.Ratio
	if d.absolute {
		score = float64(p.Distance)
	}

	change := SentenceChange{Old: &p.Old, New: &p.New, Distance: p.Distance, Ratio: p.Ratio}
	if score < d.threshold {
		change.Kind = Edited
		deleted, added, unchanged := DiffSentenceWords(p.Old.Words, p.New.Words)
		res.Deleted = append(res.Deleted, deleted...)
		res.Added = append(res.Added, added...)
		res.Unchanged = append(res.Unchanged, unchanged...)
	} else {
		change.Kind = Replaced
		res.Deleted = append(res.Deleted, p.Old.Words...)
		res.Added = append(res.Added, p.New.Words...)
	}
	res.Sentences = append(res.Sentences, change)
}

// DiffSentenceWords diffs two word lists as multisets: both are sorted by
// text and merge-walked, so word order inside the sentence is ignored.
func DiffSentenceWords(oldWords, newWords []Word) (deleted, added []Word, unchanged []WordPair) {
	a := append([]Word(nil), oldWords...)
	b := append([]Word(nil), newWords...)
	sortWordsByText(a)
	sortWordsByText(b)

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Text == b[j].Text:
			unchanged = append(unchanged, WordPair{Old: a[i], New: b[j]})
			i++
			j++
		case a[i].Text < b[j].Text:
			deleted = append(deleted, a[i])
			i++
		default:
			added = append(added, b[j])
			j++
		}
	}
	deleted = append(deleted, a[i:]...)
	added = append(added, b[j:]...)
	return deleted, added, unchanged
}

// deleteSentence records every word of s as deleted.
func (r *Result) deleteSentence(s *Sentence) {
	r.Deleted = append(r.Deleted, s.Words...)
	r.Sentences = append(r.Sentences, SentenceChange{Kind: Deleted, Old: s})
}

// addSentence records every word of s as added.
func (r *Result) addSentence(s *Sentence) {
	r.Added = append(r.Added, s.Words...)
	r.Sentences = append(r.Sentences, SentenceChange{Kind: Added, New: s})
}

// finish puts the buckets in a deterministic order.
func (r *Result) finish() {
	sortWordsByPosition(r.Deleted)
	sortWordsByPosition(r.Added)
	sort.SliceStable(r.Unchanged, func(i, j int) bool {
		return r.Unchanged[i].Old.Start < r.Unchanged[j].Old.Start
	})
	sort.SliceStable(r.Sentences, func(i, j int) bool {
		a, b := r.Sentences[i], r.Sentences[j]
		// New-side sentences in reading order, then deleted ones in old order.
		if (a.New == nil) != (b.New == nil) {
			return a.New != nil
		}
		if a.New != nil {
			return a.New.Start() < b.New.Start()
		}
		return a.Old.Start() < b.Old.Start()
	})
}
