package revdiff

import (
	"reflect"
	"testing"
)

func TestDiffWords(t *testing.T) {
	tests := []struct {
		name     string
		old      string
		new      string
		expected []Diff
	}{
		{
			name: "identical",
			old:  "hello world",
			new:  "hello world",
			expected: []Diff{
				{Equal, "hello"},
				{Equal, "world"},
			},
		},
		{
			name: "single word change",
			old:  "the cat sat",
			new:  "the dog sat",
			expected: []Diff{
				{Equal, "the"},
				{Delete, "cat"},
				{Insert, "dog"},
				{Equal, "sat"},
			},
		},
		{
			name: "surface form of new revision kept",
			old:  "hello World",
			new:  "Hello world",
			expected: []Diff{
				{Equal, "Hello"},
				{Equal, "world"},
			},
		},
		{
			name: "insertion",
			old:  "a c",
			new:  "a b c",
			expected: []Diff{
				{Equal, "a"},
				{Insert, "b"},
				{Equal, "c"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DiffWords(toWords(tt.old), toWords(tt.new))
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("DiffWords() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestHasChanges(t *testing.T) {
	tests := []struct {
		name     string
		diffs    []Diff
		expected bool
	}{
		{"empty", nil, false},
		{"only equal", []Diff{{Equal, "a"}}, false},
		{"delete", []Diff{{Equal, "a"}, {Delete, "b"}}, true},
		{"insert", []Diff{{Insert, "b"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasChanges(tt.diffs); got != tt.expected {
				t.Errorf("HasChanges() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestOperationString(t *testing.T) {
	tests := []struct {
		op       Operation
		expected string
	}{
		{Equal, "Equal"},
		{Insert, "Insert"},
		{Delete, "Delete"},
		{Operation(42), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.expected {
			t.Errorf("Operation(%d).String() = %q, want %q", tt.op, got, tt.expected)
		}
	}
}

func TestComputeStatistics(t *testing.T) {
	old := makeRevision(1, "the cat sat", "it was warm", "alpha beta")
	new := makeRevision(2, "it was warm", "the dog sat", "gamma delta epsilon")
	res := diffRevisions(old, new)

	st := ComputeStatistics(old, new, res)
	expected := DiffStatistics{
		OldWords:         8,
		NewWords:         9,
		DeletedWords:     3,
		InsertedWords:    4,
		CommonWords:      5,
		MatchedSentences: 1,
		EditedSentences:  1,
		AddedSentences:   1,
		DeletedSentences: 1,
	}
	if st != expected {
		t.Errorf("ComputeStatistics() = %+v, want %+v", st, expected)
	}
}
