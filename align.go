package revdiff

import (
	"fmt"
	"sort"
)

// Algorithm names accepted by AlignerByName.
const (
	AlgorithmBest       = "best"
	AlgorithmGreedy     = "greedy"
	AlgorithmPositional = "positional"
)

// AlignedPair is a proposed pairing between a leftover old sentence and a
// leftover new sentence.
type AlignedPair struct {
	Old      Sentence
	New      Sentence
	Distance int     // word edit distance, possibly capped at the longer length
	Ratio    float64 // Distance relative to the longer sentence, in [0, 1]
}

// Alignment is the result of aligning two sets of leftover sentences. Every
// old input sentence appears in exactly one pair or in OldRest, and likewise
// for new sentences and NewRest.
type Alignment struct {
	Pairs   []AlignedPair
	OldRest []Sentence
	NewRest []Sentence
}

// Aligner pairs sentences that have no exact match in the other revision.
// Implementations must satisfy the partition invariant of Alignment; when
// either input is empty they return no pairs.
type Aligner interface {
	Align(old, new []Sentence) Alignment
}

// AlignOptions configures the built-in aligners.
type AlignOptions struct {
	// MinAnchors is the number of anchor words a candidate pair must share
	// (AnchorAligner only). Values below 1 are treated as 1.
	MinAnchors int

	// Damerau, when true, scores pairs with the Damerau-Levenshtein distance
	// so that swapped neighboring words count as a single edit.
	Damerau bool
}

// DefaultAlignOptions returns AlignOptions with default settings.
func DefaultAlignOptions() AlignOptions {
	return AlignOptions{MinAnchors: 1}
}

// AlignerByName returns the aligner for an algorithm name:
//   - "best": anchor-filtered best match (AnchorAligner)
//   - "greedy": best unused match for each old sentence (GreedyAligner)
//   - "positional": pairing by document position (PositionalAligner)
func AlignerByName(name string, opts AlignOptions) (Aligner, error) {
	switch name {
	case AlgorithmBest, "":
		return &AnchorAligner{Options: opts}, nil
	case AlgorithmGreedy:
		return &GreedyAligner{Options: opts}, nil
	case AlgorithmPositional:
		return &PositionalAligner{Options: opts}, nil
	default:
		return nil, fmt.Errorf("invalid algorithm %q (use best, greedy, or positional)", name)
	}
}

// ScorePair computes the distance and ratio between two sentences.
func ScorePair(old, new Sentence, damerau bool) (int, float64) {
	longest := max(old.Len(), new.Len())
	if longest == 0 {
		return 0, 0
	}
	var d int
	if damerau {
		d = DamerauDistanceWithLimit(old.Words, new.Words, longest)
	} else {
		d = DistanceWithLimit(old.Words, new.Words, longest)
	}
	return d, float64(d) / float64(longest)
}

// AnchorAligner is the default strategy. Only pairs sharing enough anchor
// words (content words, see anchorSets) are candidates; candidates are then
// assigned greedily from the lowest distance ratio up. Sentences left without
// a plausible partner go to the rest sets.
type AnchorAligner struct {
	Options AlignOptions
}

type candidate struct {
	oldIdx, newIdx int
	distance       int
	ratio          float64
}

// Align implements Aligner.
func (a *AnchorAligner) Align(old, new []Sentence) Alignment {
	if len(old) == 0 || len(new) == 0 {
		return restOnly(old, new)
	}

	minAnchors := max(a.Options.MinAnchors, 1)
	oldAnchors, newAnchors := anchorSets(old, new)

	var candidates []candidate
	for i := range old {
		if len(oldAnchors[i]) < minAnchors {
			continue
		}
		for j := range new {
			if sharedAnchors(oldAnchors[i], newAnchors[j]) < minAnchors {
				continue
			}
			d, r := ScorePair(old[i], new[j], a.Options.Damerau)
			candidates = append(candidates, candidate{oldIdx: i, newIdx: j, distance: d, ratio: r})
		}
	}

	sort.SliceStable(candidates, func(x, y int) bool {
		cx, cy := candidates[x], candidates[y]
		if cx.ratio != cy.ratio {
			return cx.ratio < cy.ratio
		}
		if cx.distance != cy.distance {
			return cx.distance < cy.distance
		}
		if sx, sy := old[cx.oldIdx].Start(), old[cy.oldIdx].Start(); sx != sy {
			return sx < sy
		}
		return new[cx.newIdx].Start() < new[cy.newIdx].Start()
	})

	usedOld := make([]bool, len(old))
	usedNew := make([]bool, len(new))
	var pairs []AlignedPair
	for _, c := range candidates {
		if usedOld[c.oldIdx] || usedNew[c.newIdx] {
			continue
		}
		usedOld[c.oldIdx] = true
		usedNew[c.newIdx] = true
		pairs = append(pairs, AlignedPair{
			Old:      old[c.oldIdx],
			New:      new[c.newIdx],
			Distance: c.distance,
			Ratio:    c.ratio,
		})
	}

	return collect(old, new, pairs, usedOld, usedNew)
}

// GreedyAligner pairs each old sentence, in position order, with the closest
// new sentence not yet taken. Every pair is a candidate; the engine's
// threshold decides which ones count as edits.
type GreedyAligner struct {
	Options AlignOptions
}

// Align implements Aligner.
func (a *GreedyAligner) Align(old, new []Sentence) Alignment {
	if len(old) == 0 || len(new) == 0 {
		return restOnly(old, new)
	}

	order := positionOrder(old)
	usedOld := make([]bool, len(old))
	usedNew := make([]bool, len(new))
	var pairs []AlignedPair

	for _, i := range order {
		bestJ, bestD, bestR := -1, 0, 0.0
		for j := range new {
			if usedNew[j] {
				continue
			}
			d, r := ScorePair(old[i], new[j], a.Options.Damerau)
			if bestJ < 0 || r < bestR {
				bestJ, bestD, bestR = j, d, r
			}
		}
		if bestJ < 0 {
			break
		}
		usedOld[i] = true
		usedNew[bestJ] = true
		pairs = append(pairs, AlignedPair{Old: old[i], New: new[bestJ], Distance: bestD, Ratio: bestR})
	}

	return collect(old, new, pairs, usedOld, usedNew)
}

// PositionalAligner pairs the i-th leftover old sentence with the i-th
// leftover new sentence, both in document order.
type PositionalAligner struct {
	Options AlignOptions
}

// Align implements Aligner.
func (a *PositionalAligner) Align(old, new []Sentence) Alignment {
	if len(old) == 0 || len(new) == 0 {
		return restOnly(old, new)
	}

	oldOrder := positionOrder(old)
	newOrder := positionOrder(new)
	n := min(len(old), len(new))

	usedOld := make([]bool, len(old))
	usedNew := make([]bool, len(new))
	pairs := make([]AlignedPair, 0, n)
	for k := 0; k < n; k++ {
		i, j := oldOrder[k], newOrder[k]
		d, r := ScorePair(old[i], new[j], a.Options.Damerau)
		usedOld[i] = true
		usedNew[j] = true
		pairs = append(pairs, AlignedPair{Old: old[i], New: new[j], Distance: d, Ratio: r})
	}

	return collect(old, new, pairs, usedOld, usedNew)
}

// positionOrder returns sentence indexes sorted by start offset.
func positionOrder(sentences []Sentence) []int {
	order := make([]int, len(sentences))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		return sentences[order[x]].Start() < sentences[order[y]].Start()
	})
	return order
}

// restOnly returns an alignment with no pairs.
func restOnly(old, new []Sentence) Alignment {
	return collect(old, new, nil, make([]bool, len(old)), make([]bool, len(new)))
}

// collect builds an Alignment from pairs and the unused sentences.
func collect(old, new []Sentence, pairs []AlignedPair, usedOld, usedNew []bool) Alignment {
	al := Alignment{Pairs: pairs}
	for i, s := range old {
		if !usedOld[i] {
			al.OldRest = append(al.OldRest, s)
		}
	}
	for j, s := range new {
		if !usedNew[j] {
			al.NewRest = append(al.NewRest, s)
		}
	}
	sortSentencesByPosition(al.OldRest)
	sortSentencesByPosition(al.NewRest)
	return al
}
