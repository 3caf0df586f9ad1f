package revdiff

import "strings"

// AggregateDiffs combines adjacent diffs of the same type into single tokens,
// joining their words with spaces. For example, consecutive Delete operations
// are merged into one Delete.
func AggregateDiffs(diffs []Diff) []Diff {
	if len(diffs) == 0 {
		return diffs
	}

	var result []Diff
	var currentType Operation = -1
	var currentTokens []string

	flush := func() {
		if len(currentTokens) > 0 && currentType >= 0 {
			result = append(result, Diff{
				Type:  currentType,
				Token: strings.Join(currentTokens, " "),
			})
			currentTokens = nil
		}
	}

	for _, d := range diffs {
		if d.Type != currentType {
			flush()
			currentType = d.Type
		}
		currentTokens = append(currentTokens, d.Token)
	}
	flush()

	return result
}

// InterleaveDiffs reorders diffs so that Delete/Insert runs alternate
// positionally: Delete[0] Insert[0] Delete[1] Insert[1], etc. Excess Deletes
// or Inserts are output at the end of the run. Used to show word-for-word
// substitutions next to each other.
func InterleaveDiffs(diffs []Diff) []Diff {
	if len(diffs) == 0 {
		return diffs
	}

	var result []Diff
	i := 0
	for i < len(diffs) {
		d := diffs[i]
		if d.Type != Delete {
			result = append(result, d)
			i++
			continue
		}

		deleteStart := i
		for i < len(diffs) && diffs[i].Type == Delete {
			i++
		}
		deletes := diffs[deleteStart:i]

		insertStart := i
		for i < len(diffs) && diffs[i].Type == Insert {
			i++
		}
		inserts := diffs[insertStart:i]

		for j := 0; j < max(len(deletes), len(inserts)); j++ {
			if j < len(deletes) {
				result = append(result, deletes[j])
			}
			if j < len(inserts) {
				result = append(result, inserts[j])
			}
		}
	}

	return result
}
