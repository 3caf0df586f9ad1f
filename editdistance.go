package revdiff

// Distance returns the Levenshtein distance between two word sequences.
// Substituting one word for another costs 0 when their Text is equal and 1
// otherwise; insertions and deletions cost 1.
func Distance(a, b []Word) int {
	return levenshtein(len(a), len(b), wordsEqual(a, b), 0)
}

// DistanceWithLimit returns min(Distance(a, b), limit). The computation stops
// as soon as every cell of a row reaches limit, so a return value equal to
// limit means "at least limit", not an exact distance.
func DistanceWithLimit(a, b []Word, limit int) int {
	if limit <= 0 {
		return 0
	}
	return levenshtein(len(a), len(b), wordsEqual(a, b), limit)
}

// DamerauDistance returns the Damerau-Levenshtein distance (optimal string
// alignment) between two word sequences: swapping two neighboring words
// counts as one edit rather than two substitutions.
func DamerauDistance(a, b []Word) int {
	return damerau(len(a), len(b), wordsEqual(a, b), 0)
}

// DamerauDistanceWithLimit returns min(DamerauDistance(a, b), limit), with
// the same early exit contract as DistanceWithLimit.
func DamerauDistanceWithLimit(a, b []Word, limit int) int {
	if limit <= 0 {
		return 0
	}
	return damerau(len(a), len(b), wordsEqual(a, b), limit)
}

// wordsEqual returns an index comparator over two word sequences.
func wordsEqual(a, b []Word) func(i, j int) bool {
	return func(i, j int) bool {
		return a[i].Text == b[j].Text
	}
}

// levenshtein computes the edit distance between sequences of length n and m
// using two rows. A positive limit caps the result and enables the early exit.
func levenshtein(n, m int, eq func(i, j int) bool, limit int) int {
	if n == 0 || m == 0 {
		return capped(n+m, limit)
	}

	prev := make([]int, m+1)
	curr := make([]int, m+1)
	for j := 0; j <= m; j++ {
		prev[j] = j
	}

	for i := 1; i <= n; i++ {
		curr[0] = i
		rowMin := curr[0]
		for j := 1; j <= m; j++ {
			cost := 1
			if eq(i-1, j-1) {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
			rowMin = min(rowMin, curr[j])
		}
		// Every path to the last cell crosses this row and costs never decrease.
		if limit > 0 && rowMin >= limit {
			return limit
		}
		prev, curr = curr, prev
	}

	return capped(prev[m], limit)
}

// damerau computes the optimal string alignment distance. Transpositions jump
// two rows back, so the early exit looks at the minimum of the last two rows.
func damerau(n, m int, eq func(i, j int) bool, limit int) int {
	if n == 0 || m == 0 {
		return capped(n+m, limit)
	}

	prev2 := make([]int, m+1)
	prev := make([]int, m+1)
	curr := make([]int, m+1)
	for j := 0; j <= m; j++ {
		prev[j] = j
	}
	prevMin := 0

	for i := 1; i <= n; i++ {
		curr[0] = i
		rowMin := curr[0]
		for j := 1; j <= m; j++ {
			cost := 1
			if eq(i-1, j-1) {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,
				curr[j-1]+1,
				prev[j-1]+cost,
			)
			if i > 1 && j > 1 && eq(i-1, j-2) && eq(i-2, j-1) {
				curr[j] = min(curr[j], prev2[j-2]+1)
			}
			rowMin = min(rowMin, curr[j])
		}
		if limit > 0 && min(rowMin, prevMin) >= limit {
			return limit
		}
		prevMin = rowMin
		prev2, prev, curr = prev, curr, prev2
	}

	return capped(prev[m], limit)
}

// capped returns d, or limit when a positive limit is below d.
func capped(d, limit int) int {
	if limit > 0 && d > limit {
		return limit
	}
	return d
}
