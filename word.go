// Package revdiff computes position-insensitive diffs between document revisions.
//
// A revision is an ordered list of sentences, each an ordered list of words.
// Unlike a line diff, revdiff ignores where a sentence sits in the document:
// sentences are first matched by exact text regardless of position, the
// leftovers are paired by an alignment strategy scored with word-level edit
// distance, and paired sentences close enough to be "the same sentence,
// edited" get a word-level diff of their own.
//
// For example, when comparing:
//
//	The cat sat. It was warm.
//	It was warm. The dog sat.
//
// a line diff reports two changed lines. revdiff reports "it was warm" as
// unchanged (it only moved), and within "the cat sat" / "the dog sat" only
// "cat" deleted and "dog" added.
//
// The result feeds authorship bookkeeping: every word keeps the revision that
// created it across moves and edits of its sentence.
package revdiff

import (
	"sort"
	"strings"
	"time"
)

// WordID identifies a word within its revision.
type WordID int

// SentenceID identifies a sentence within its revision.
type SentenceID int

// SectionID identifies a section within its revision.
type SectionID int

// NoSection is the parent of top-level sections.
const NoSection SectionID = -1

// RevisionID identifies a revision of a document. Zero means unset.
type RevisionID int64

// Word is the smallest diffed unit.
type Word struct {
	ID      WordID
	Surface string // text as it appears in the revision
	Text    string // lowercased surface form, used for diffing
	Stem    string // stem or lemma, used for concept matching
	Tag     string // part-of-speech tag, if the annotator provides one
	Start   int    // byte offset of word start
	End     int    // byte offset of word end (exclusive)

	CreatedIn RevisionID
	DeletedIn RevisionID
}

// NewWord returns a word with Text normalized from surface.
func NewWord(id WordID, surface, stem string, start, end int) Word {
	return Word{
		ID:      id,
		Surface: surface,
		Text:    strings.ToLower(surface),
		Stem:    stem,
		Start:   start,
		End:     end,
	}
}

// WordPair maps a word of the old revision to its counterpart in the new one.
type WordPair struct {
	Old Word
	New Word
}

// Sentence is an ordered sequence of words.
type Sentence struct {
	ID      SentenceID
	Section SectionID
	Words   []Word
}

// Text returns the words' texts joined by single spaces. Two sentences are
// textually equal iff their Text values are equal.
func (s Sentence) Text() string {
	switch len(s.Words) {
	case 0:
		return ""
	case 1:
		return s.Words[0].Text
	}
	var sb strings.Builder
	for i, w := range s.Words {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(w.Text)
	}
	return sb.String()
}

// Start returns the first word's start offset.
func (s Sentence) Start() int {
	if len(s.Words) == 0 {
		return 0
	}
	return s.Words[0].Start
}

// End returns the last word's end offset.
func (s Sentence) End() int {
	if len(s.Words) == 0 {
		return 0
	}
	return s.Words[len(s.Words)-1].End
}

// Len returns the number of words.
func (s Sentence) Len() int {
	return len(s.Words)
}

// Section groups sentences under a heading. Parent is NoSection for
// top-level sections.
type Section struct {
	ID     SectionID
	Parent SectionID
	Title  string
	Level  int
}

// Revision is one full-text version of a document.
type Revision struct {
	ID        RevisionID
	Author    string
	Timestamp time.Time
	Sections  []Section
	Sentences []Sentence
}

// Words returns pointers to every word in document order. The pointers
// alias the revision's sentences, so callers may stamp words in place.
func (r *Revision) Words() []*Word {
	if r == nil {
		return nil
	}
	words := make([]*Word, 0, r.WordCount())
	for i := range r.Sentences {
		for j := range r.Sentences[i].Words {
			words = append(words, &r.Sentences[i].Words[j])
		}
	}
	return words
}

// WordByID returns the word with the given ID, or nil.
func (r *Revision) WordByID(id WordID) *Word {
	if r == nil {
		return nil
	}
	for i := range r.Sentences {
		ws := r.Sentences[i].Words
		// Words are numbered in document order, so skip whole sentences.
		if len(ws) == 0 || id < ws[0].ID || id > ws[len(ws)-1].ID {
			continue
		}
		for j := range ws {
			if ws[j].ID == id {
				return &ws[j]
			}
		}
	}
	return nil
}

// WordCount returns the total number of words.
func (r *Revision) WordCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, s := range r.Sentences {
		n += len(s.Words)
	}
	return n
}

// Text returns the revision's sentences joined by newlines.
func (r *Revision) Text() string {
	if r == nil {
		return ""
	}
	lines := make([]string, len(r.Sentences))
	for i, s := range r.Sentences {
		lines[i] = s.Text()
	}
	return strings.Join(lines, "\n")
}

// sortWordsByText sorts words by Text, keeping position order among equals.
func sortWordsByText(words []Word) {
	sort.SliceStable(words, func(i, j int) bool {
		return words[i].Text < words[j].Text
	})
}

// sortWordsByPosition sorts words by start offset.
func sortWordsByPosition(words []Word) {
	sort.SliceStable(words, func(i, j int) bool {
		return words[i].Start < words[j].Start
	})
}

// sortSentencesByPosition sorts sentences by start offset.
func sortSentencesByPosition(sentences []Sentence) {
	sort.SliceStable(sentences, func(i, j int) bool {
		return sentences[i].Start() < sentences[j].Start()
	})
}

// wordTexts returns the Text of every word.
func wordTexts(words []Word) []string {
	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Text
	}
	return texts
}
