package revdiff

import (
	"reflect"
	"testing"
)

func TestAggregateDiffs(t *testing.T) {
	tests := []struct {
		name     string
		input    []Diff
		expected []Diff
	}{
		{
			name:     "empty",
			input:    []Diff{},
			expected: []Diff{},
		},
		{
			name: "single token",
			input: []Diff{
				{Type: Delete, Token: "a"},
			},
			expected: []Diff{
				{Type: Delete, Token: "a"},
			},
		},
		{
			name: "adjacent deletes combined",
			input: []Diff{
				{Type: Delete, Token: "a"},
				{Type: Delete, Token: "b"},
			},
			expected: []Diff{
				{Type: Delete, Token: "a b"},
			},
		},
		{
			name: "adjacent inserts combined",
			input: []Diff{
				{Type: Insert, Token: "x"},
				{Type: Insert, Token: "y"},
			},
			expected: []Diff{
				{Type: Insert, Token: "x y"},
			},
		},
		{
			name: "different types not combined",
			input: []Diff{
				{Type: Delete, Token: "a"},
				{Type: Insert, Token: "b"},
			},
			expected: []Diff{
				{Type: Delete, Token: "a"},
				{Type: Insert, Token: "b"},
			},
		},
		{
			name: "equals separate groups",
			input: []Diff{
				{Type: Delete, Token: "a"},
				{Type: Equal, Token: "x"},
				{Type: Delete, Token: "b"},
			},
			expected: []Diff{
				{Type: Delete, Token: "a"},
				{Type: Equal, Token: "x"},
				{Type: Delete, Token: "b"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AggregateDiffs(tt.input)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("AggregateDiffs() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestInterleaveDiffs(t *testing.T) {
	tests := []struct {
		name     string
		input    []Diff
		expected []Diff
	}{
		{
			name:     "empty input",
			input:    []Diff{},
			expected: []Diff{},
		},
		{
			name: "only equals pass through",
			input: []Diff{
				{Type: Equal, Token: "a"},
				{Type: Equal, Token: "b"},
			},
			expected: []Diff{
				{Type: Equal, Token: "a"},
				{Type: Equal, Token: "b"},
			},
		},
		{
			name: "single delete-insert pair interleaved",
			input: []Diff{
				{Type: Delete, Token: "old1"},
				{Type: Delete, Token: "old2"},
				{Type: Insert, Token: "new1"},
				{Type: Insert, Token: "new2"},
			},
			expected: []Diff{
				{Type: Delete, Token: "old1"},
				{Type: Insert, Token: "new1"},
				{Type: Delete, Token: "old2"},
				{Type: Insert, Token: "new2"},
			},
		},
		{
			name: "more deletes than inserts",
			input: []Diff{
				{Type: Delete, Token: "a"},
				{Type: Delete, Token: "b"},
				{Type: Delete, Token: "c"},
				{Type: Insert, Token: "x"},
			},
			expected: []Diff{
				{Type: Delete, Token: "a"},
				{Type: Insert, Token: "x"},
				{Type: Delete, Token: "b"},
				{Type: Delete, Token: "c"},
			},
		},
		{
			name: "more inserts than deletes",
			input: []Diff{
				{Type: Delete, Token: "a"},
				{Type: Insert, Token: "x"},
				{Type: Insert, Token: "y"},
				{Type: Insert, Token: "z"},
			},
			expected: []Diff{
				{Type: Delete, Token: "a"},
				{Type: Insert, Token: "x"},
				{Type: Insert, Token: "y"},
				{Type: Insert, Token: "z"},
			},
		},
		{
			name: "insert without preceding delete",
			input: []Diff{
				{Type: Equal, Token: "a"},
				{Type: Insert, Token: "new"},
				{Type: Equal, Token: "b"},
			},
			expected: []Diff{
				{Type: Equal, Token: "a"},
				{Type: Insert, Token: "new"},
				{Type: Equal, Token: "b"},
			},
		},
		{
			name: "equals between changes",
			input: []Diff{
				{Type: Delete, Token: "old"},
				{Type: Insert, Token: "new"},
				{Type: Equal, Token: "same"},
				{Type: Delete, Token: "old2"},
				{Type: Insert, Token: "new2"},
			},
			expected: []Diff{
				{Type: Delete, Token: "old"},
				{Type: Insert, Token: "new"},
				{Type: Equal, Token: "same"},
				{Type: Delete, Token: "old2"},
				{Type: Insert, Token: "new2"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := InterleaveDiffs(tt.input)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("InterleaveDiffs() = %v, want %v", result, tt.expected)
			}
		})
	}
}
