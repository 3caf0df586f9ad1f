package revdiff

import (
	"testing"
)

func sentences(texts ...string) []Sentence {
	return makeRevision(0, texts...).Sentences
}

// checkPartition verifies every input sentence lands in exactly one pair or
// rest set.
func checkPartition(t *testing.T, old, new []Sentence, al Alignment) {
	t.Helper()
	seenOld := make(map[SentenceID]int)
	seenNew := make(map[SentenceID]int)
	for _, p := range al.Pairs {
		seenOld[p.Old.ID]++
		seenNew[p.New.ID]++
	}
	for _, s := range al.OldRest {
		seenOld[s.ID]++
	}
	for _, s := range al.NewRest {
		seenNew[s.ID]++
	}
	for _, s := range old {
		if seenOld[s.ID] != 1 {
			t.Errorf("old sentence %d (%q) appears %d times", s.ID, s.Text(), seenOld[s.ID])
		}
	}
	for _, s := range new {
		if seenNew[s.ID] != 1 {
			t.Errorf("new sentence %d (%q) appears %d times", s.ID, s.Text(), seenNew[s.ID])
		}
	}
	if len(seenOld) != len(old) || len(seenNew) != len(new) {
		t.Errorf("alignment refers to sentences outside the input")
	}
}

func TestAlignersPartition(t *testing.T) {
	old := sentences(
		"The river flows north",
		"Bridges cross the river",
		"Farmers grow wheat near the valley",
		"Nothing relates here at all",
	)
	new := sentences(
		"The river flows south",
		"Farmers grow barley near the valley",
		"Completely fresh content appears",
	)

	for _, name := range []string{AlgorithmBest, AlgorithmGreedy, AlgorithmPositional} {
		for _, damerau := range []bool{false, true} {
			a, err := AlignerByName(name, AlignOptions{MinAnchors: 1, Damerau: damerau})
			if err != nil {
				t.Fatalf("AlignerByName(%q) error: %v", name, err)
			}
			al := a.Align(old, new)
			checkPartition(t, old, new, al)
			for _, p := range al.Pairs {
				if p.Ratio < 0 || p.Ratio > 1 {
					t.Errorf("%s: ratio %v out of range", name, p.Ratio)
				}
			}
		}
	}
}

func TestAlignersEmptyInput(t *testing.T) {
	some := sentences("one sentence here")
	for _, name := range []string{AlgorithmBest, AlgorithmGreedy, AlgorithmPositional} {
		a, _ := AlignerByName(name, DefaultAlignOptions())

		al := a.Align(nil, some)
		if len(al.Pairs) != 0 || len(al.NewRest) != 1 || len(al.OldRest) != 0 {
			t.Errorf("%s: Align(nil, some) = %+v", name, al)
		}
		al = a.Align(some, nil)
		if len(al.Pairs) != 0 || len(al.OldRest) != 1 || len(al.NewRest) != 0 {
			t.Errorf("%s: Align(some, nil) = %+v", name, al)
		}
	}
}

func TestAnchorAlignerPairsBySharedContent(t *testing.T) {
	old := sentences(
		"The river flows north",
		"Farmers grow wheat near the valley",
	)
	new := sentences(
		"Farmers grow barley near the valley",
		"The river flows south",
	)

	al := (&AnchorAligner{Options: DefaultAlignOptions()}).Align(old, new)
	if len(al.Pairs) != 2 {
		t.Fatalf("got %d pairs, want 2", len(al.Pairs))
	}
	for _, p := range al.Pairs {
		if p.Old.Words[0].Text != p.New.Words[0].Text {
			t.Errorf("paired %q with %q", p.Old.Text(), p.New.Text())
		}
		if p.Distance != 1 {
			t.Errorf("pair %q / %q distance = %d, want 1", p.Old.Text(), p.New.Text(), p.Distance)
		}
	}
}

func TestAnchorAlignerNoSharedAnchors(t *testing.T) {
	old := sentences("Rivers flow downhill quickly")
	new := sentences("Mountains rise slowly overhead")

	al := (&AnchorAligner{Options: DefaultAlignOptions()}).Align(old, new)
	if len(al.Pairs) != 0 {
		t.Errorf("got %d pairs, want 0", len(al.Pairs))
	}
	checkPartition(t, old, new, al)
}

func TestAnchorAlignerIgnoresStopwords(t *testing.T) {
	// Only stopwords and short words are shared.
	old := sentences("It is of the in a")
	new := sentences("It is of the to an")

	al := (&AnchorAligner{Options: DefaultAlignOptions()}).Align(old, new)
	if len(al.Pairs) != 0 {
		t.Errorf("got %d pairs, want 0", len(al.Pairs))
	}
}

func TestAnchorSetsDiscardConfusingKeys(t *testing.T) {
	old := sentences(
		"common alpha",
		"common beta",
		"common gamma",
		"common delta",
	)
	new := sentences(
		"common alpha",
		"common beta",
		"common gamma",
		"common epsilon",
	)

	oldAnchors, newAnchors := anchorSets(old, new)
	// "common" appears in 4 sentences on each side, more than sqrt(8).
	for i, set := range oldAnchors {
		if _, ok := set["common"]; ok {
			t.Errorf("old sentence %d kept confusing anchor", i)
		}
	}
	if _, ok := oldAnchors[0]["alpha"]; !ok {
		t.Error("old sentence 0 lost anchor alpha")
	}
	if _, ok := oldAnchors[3]["delta"]; ok {
		t.Error("delta has no counterpart and should not anchor")
	}
	if _, ok := newAnchors[3]["epsilon"]; ok {
		t.Error("epsilon has no counterpart and should not anchor")
	}
}

func TestAnchorKey(t *testing.T) {
	tests := []struct {
		name     string
		word     Word
		expected string
	}{
		{"stopword", Word{Text: "the"}, ""},
		{"short", Word{Text: "ox"}, ""},
		{"text", Word{Text: "river"}, "river"},
		{"stem preferred", Word{Text: "rivers", Stem: "river"}, "river"},
		{"noun tag", Word{Text: "river", Tag: "NNS"}, "river"},
		{"verb tag", Word{Text: "flows", Tag: "VBZ"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := anchorKey(tt.word); got != tt.expected {
				t.Errorf("anchorKey() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGreedyAlignerPairsEverything(t *testing.T) {
	old := sentences("Cats chase mice", "Rivers flow downhill quickly")
	new := sentences("Cats chase rats", "Mountains rise slowly overhead", "Extra line")

	al := (&GreedyAligner{}).Align(old, new)
	checkPartition(t, old, new, al)
	if len(al.Pairs) != 2 {
		t.Fatalf("got %d pairs, want 2", len(al.Pairs))
	}
	for _, p := range al.Pairs {
		if p.Old.Words[0].Text == "cats" && p.New.Words[0].Text != "cats" {
			t.Errorf("paired %q with %q", p.Old.Text(), p.New.Text())
		}
	}
}

func TestPositionalAligner(t *testing.T) {
	old := sentences("first old", "second old", "third old")
	new := sentences("first new", "second new")

	al := (&PositionalAligner{}).Align(old, new)
	checkPartition(t, old, new, al)
	if len(al.Pairs) != 2 {
		t.Fatalf("got %d pairs, want 2", len(al.Pairs))
	}
	if al.Pairs[0].Old.ID != 0 || al.Pairs[0].New.ID != 0 || al.Pairs[1].Old.ID != 1 || al.Pairs[1].New.ID != 1 {
		t.Errorf("pairs not in position order: %+v", al.Pairs)
	}
	if len(al.OldRest) != 1 || al.OldRest[0].ID != 2 {
		t.Errorf("OldRest = %+v, want third sentence", al.OldRest)
	}
}

func TestAlignerByName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"best", false},
		{"", false},
		{"greedy", false},
		{"positional", false},
		{"fast", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AlignerByName(tt.name, DefaultAlignOptions())
			if (err != nil) != tt.wantErr {
				t.Errorf("AlignerByName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
		})
	}
}

func TestScorePair(t *testing.T) {
	old := sentences("a b")[0]
	new := sentences("a c")[0]
	d, r := ScorePair(old, new, false)
	if d != 1 || r != 0.5 {
		t.Errorf("ScorePair() = (%d, %v), want (1, 0.5)", d, r)
	}

	d, r = ScorePair(Sentence{}, Sentence{}, false)
	if d != 0 || r != 0 {
		t.Errorf("ScorePair(empty) = (%d, %v), want (0, 0)", d, r)
	}
}
