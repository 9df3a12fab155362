package ids

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUniqueWithinSameMillisecond(t *testing.T) {
	g := &OrderIDGenerator{}
	at := time.UnixMilli(1702468800123)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := g.Generate(at)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestGenerateResetsSequenceOnNewMillisecond(t *testing.T) {
	g := &OrderIDGenerator{}

	first := g.Generate(time.UnixMilli(1702468800123))
	second := g.Generate(time.UnixMilli(1702468800124))

	assert.Equal(t, "1702468800123001", first)
	assert.Equal(t, "1702468800124001", second)
}

func TestCreationTimeRoundTrip(t *testing.T) {
	g := &OrderIDGenerator{}
	at := time.UnixMilli(1702468800123)

	id := g.Generate(at)
	got, ok := CreationTime(id)
	require.True(t, ok)
	assert.True(t, got.Equal(at))
}

func TestCreationTimeRejectsMalformedIDs(t *testing.T) {
	for _, id := range []string{"", "short", "abcdefghijklmnop"} {
		_, ok := CreationTime(id)
		assert.False(t, ok, "id %q", id)
	}
}
