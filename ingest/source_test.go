package ingest

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLSource(t *testing.T) {
	input := `{"id": 1, "author": "alice", "timestamp": "2024-03-01T12:00:00Z", "text": "First."}

{"id": 2, "author": "bob", "timestamp": "2024-03-02T12:00:00Z", "text": "<p>Second.</p>", "html": true}
`
	src := NewJSONLSource(strings.NewReader(input))
	ctx := context.Background()

	first, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, RawRevision{
		ID: 1, Author: "alice", Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), Text: "First.",
	}, first)

	second, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bob", second.Author)
	assert.True(t, second.HTML)

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestJSONLSource_BadLine(t *testing.T) {
	src := NewJSONLSource(strings.NewReader("{\"id\": 1}\nnot json\n"))
	ctx := context.Background()

	_, err := src.Next(ctx)
	require.NoError(t, err)

	_, err = src.Next(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestSliceSource(t *testing.T) {
	src := NewSliceSource(RawRevision{ID: 1}, RawRevision{ID: 2})
	ctx := context.Background()

	for _, want := range []int64{1, 2} {
		raw, err := src.Next(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, want, raw.ID)
	}
	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestDeletionSelfDeletion(t *testing.T) {
	assert.True(t, Deletion{Deleter: "a", Creator: "a"}.SelfDeletion())
	assert.False(t, Deletion{Deleter: "a", Creator: "b"}.SelfDeletion())
}
