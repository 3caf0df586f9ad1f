package revdiff

import (
	"github.com/dacharyc/diffx"
)

// Operation represents a diff operation type.
type Operation int

const (
	// Equal indicates the token is unchanged.
	Equal Operation = iota
	// Insert indicates the token was added.
	Insert
	// Delete indicates the token was removed.
	Delete
)

// String returns a human-readable representation of the operation.
func (o Operation) String() string {
	switch o {
	case Equal:
		return "Equal"
	case Insert:
		return "Insert"
	case Delete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// Diff represents a single diff operation on a token.
type Diff struct {
	Type  Operation
	Token string
}

// DiffWords lays out the difference between two word sequences in reading
// order, for display. Classification of words into the Result buckets does
// not depend on this: DiffSentenceWords decides what changed, DiffWords only
// decides where to show it.
//
// It uses diffx's histogram diff, which avoids anchoring on common words
// like "the", "for", "in".
func DiffWords(oldWords, newWords []Word) []Diff {
	oldTexts := wordTexts(oldWords)
	newTexts := wordTexts(newWords)
	ops := diffx.DiffHistogram(oldTexts, newTexts)

	var result []Diff
	for _, op := range ops {
		switch op.Type {
		case diffx.Equal:
			// For equal tokens, prefer the surface form of the new revision
			for i := op.BStart; i < op.BEnd; i++ {
				result = append(result, Diff{Type: Equal, Token: newWords[i].Surface})
			}
		case diffx.Delete:
			for i := op.AStart; i < op.AEnd; i++ {
				result = append(result, Diff{Type: Delete, Token: oldWords[i].Surface})
			}
		case diffx.Insert:
			for i := op.BStart; i < op.BEnd; i++ {
				result = append(result, Diff{Type: Insert, Token: newWords[i].Surface})
			}
		}
	}
	return result
}

// HasChanges returns true if the diff slice contains any non-Equal operations.
func HasChanges(diffs []Diff) bool {
	for _, d := range diffs {
		if d.Type != Equal {
			return true
		}
	}
	return false
}

// DiffStatistics holds statistics about a diff operation.
type DiffStatistics struct {
	OldWords      int // total words in old revision
	NewWords      int // total words in new revision
	DeletedWords  int // words deleted (present in old but not new)
	InsertedWords int // words inserted (present in new but not old)
	CommonWords   int // words common to both revisions

	MatchedSentences  int // sentences found verbatim in both revisions
	EditedSentences   int // aligned pairs accepted as edits
	ReplacedSentences int // aligned pairs rejected by the threshold
	AddedSentences    int // sentences only in the new revision
	DeletedSentences  int // sentences only in the old revision
}

// ComputeStatistics calculates statistics for a diff result.
func ComputeStatistics(old, new *Revision, res *Result) DiffStatistics {
	st := DiffStatistics{
		OldWords:      old.WordCount(),
		NewWords:      new.WordCount(),
		DeletedWords:  len(res.Deleted),
		InsertedWords: len(res.Added),
		CommonWords:   len(res.Unchanged),
	}
	for _, c := range res.Sentences {
		switch c.Kind {
		case Matched:
			st.MatchedSentences++
		case Edited:
			st.EditedSentences++
		case Replaced:
			st.ReplacedSentences++
		case Added:
			st.AddedSentences++
		case Deleted:
			st.DeletedSentences++
		}
	}
	return st
}
