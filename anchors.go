package revdiff

import "math"

// minAnchorLength is the shortest word that can anchor a sentence pairing.
const minAnchorLength = 3

// stopwords never anchor a pairing: sharing "the" says nothing about two
// sentences being related.
var stopwords = map[string]struct{}{
	"a": {}, "about": {}, "after": {}, "all": {}, "also": {}, "an": {}, "and": {}, "any": {},
	"are": {}, "as": {}, "at": {}, "be": {}, "been": {}, "but": {}, "by": {}, "can": {},
	"could": {}, "did": {}, "do": {}, "does": {}, "for": {}, "from": {}, "had": {}, "has": {},
	"have": {}, "he": {}, "her": {}, "his": {}, "how": {}, "i": {}, "if": {}, "in": {},
	"into": {}, "is": {}, "it": {}, "its": {}, "may": {}, "more": {}, "most": {}, "no": {},
	"not": {}, "of": {}, "on": {}, "one": {}, "or": {}, "other": {}, "our": {}, "she": {},
	"so": {}, "some": {}, "such": {}, "than": {}, "that": {}, "the": {}, "their": {},
	"them": {}, "then": {}, "there": {}, "these": {}, "they": {}, "this": {}, "those": {},
	"to": {}, "two": {}, "was": {}, "we": {}, "were": {}, "what": {}, "when": {}, "which": {},
	"while": {}, "who": {}, "will": {}, "with": {}, "would": {}, "you": {},
}

// IsStopword reports whether text is a function word.
func IsStopword(text string) bool {
	_, ok := stopwords[text]
	return ok
}

// anchorKey returns the key a word anchors on: its stem when known, else its
// text. Words that cannot anchor return "".
func anchorKey(w Word) string {
	if len(w.Text) < minAnchorLength || IsStopword(w.Text) {
		return ""
	}
	// Nouns anchor best; when the annotator tags words, ignore everything else.
	if w.Tag != "" && !isNounTag(w.Tag) {
		return ""
	}
	if w.Stem != "" {
		return w.Stem
	}
	return w.Text
}

// isNounTag reports whether a Penn Treebank style tag marks a noun.
func isNounTag(tag string) bool {
	return len(tag) >= 2 && tag[0] == 'N' && tag[1] == 'N'
}

// anchorSets computes each sentence's anchor set, discarding confusing anchors.
//
// Algorithm (inspired by GNU diff's discard_confusing_lines):
//  1. Count, per anchor key, how many sentences on the OTHER side contain it.
//  2. Keys with no occurrence on the other side cannot link anything.
//  3. Keys occurring in more than √n sentences of the other side are
//     "confusing": they would make almost every pair a candidate.
//
// The remaining keys are the anchors used to propose candidate pairs.
func anchorSets(old, new []Sentence) (oldAnchors, newAnchors []map[string]struct{}) {
	oldKeys := sentenceKeys(old)
	newKeys := sentenceKeys(new)

	oldCounts := keyCounts(oldKeys)
	newCounts := keyCounts(newKeys)

	many := int(math.Sqrt(float64(len(old) + len(new))))
	if many < 2 {
		many = 2
	}

	return filterAnchors(oldKeys, newCounts, many), filterAnchors(newKeys, oldCounts, many)
}

// sentenceKeys returns the distinct anchor keys of every sentence.
func sentenceKeys(sentences []Sentence) []map[string]struct{} {
	keys := make([]map[string]struct{}, len(sentences))
	for i, s := range sentences {
		set := make(map[string]struct{}, len(s.Words))
		for _, w := range s.Words {
			if k := anchorKey(w); k != "" {
				set[k] = struct{}{}
			}
		}
		keys[i] = set
	}
	return keys
}

// keyCounts counts the number of sentences containing each key.
func keyCounts(keys []map[string]struct{}) map[string]int {
	counts := make(map[string]int)
	for _, set := range keys {
		for k := range set {
			counts[k]++
		}
	}
	return counts
}

// filterAnchors keeps keys that occur on the other side at most threshold times.
func filterAnchors(keys []map[string]struct{}, otherCounts map[string]int, threshold int) []map[string]struct{} {
	filtered := make([]map[string]struct{}, len(keys))
	for i, set := range keys {
		kept := make(map[string]struct{}, len(set))
		for k := range set {
			if c := otherCounts[k]; c > 0 && c <= threshold {
				kept[k] = struct{}{}
			}
		}
		filtered[i] = kept
	}
	return filtered
}

// sharedAnchors counts keys present in both sets.
func sharedAnchors(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
