package vectorindex

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T) *Flat {
	t.Helper()
	idx := New(2)
	require.NoError(t, idx.Add(
		[]float32{1, 0},
		[]float32{0, 1},
		[]float32{0.6, 0.8},
		[]float32{1, 0},
		[]float32{-1, 0},
	))
	return idx
}

func TestSearchOrdering(t *testing.T) {
	idx := sample(t)

	hits, err := idx.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []Hit{
		{Ordinal: 0, Score: 1},
		{Ordinal: 3, Score: 1},
		{Ordinal: 2, Score: float64(float32(0.6))},
	}, hits)
}

func TestSearchBounds(t *testing.T) {
	idx := sample(t)

	hits, err := idx.Search([]float32{1, 0}, 50)
	require.NoError(t, err)
	assert.Len(t, hits, 5)
	assert.Equal(t, 4, hits[4].Ordinal)

	hits, err = idx.Search([]float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = New(2).Search([]float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = idx.Search([]float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestAddRejectsWrongDimension(t *testing.T) {
	idx := New(3)
	err := idx.Add([]float32{1, 2, 3}, []float32{1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 0, idx.Len(), "a rejected batch adds nothing")
}

func TestRoundTrip(t *testing.T) {
	idx := sample(t)

	var buf bytes.Buffer
	n, err := idx.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(16+5*2*4), n)

	loaded, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Dimension())
	assert.Equal(t, 5, loaded.Len())
	assert.Equal(t, idx.Vector(2), loaded.Vector(2))
	assert.InDelta(t, 0.8, loaded.Score([]float32{0, 1}, 2), 1e-6)
}

func TestReadCorrupt(t *testing.T) {
	var buf bytes.Buffer
	_, err := sample(t).WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.Bytes()

	_, err = Read(bytes.NewReader(raw[:len(raw)-3]))
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = Read(bytes.NewReader(append(append([]byte{}, raw...), 0)))
	assert.ErrorIs(t, err, ErrCorrupt)

	bad := append([]byte{}, raw...)
	copy(bad, "XXXX")
	_, err = Read(bytes.NewReader(bad))
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = Read(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrCorrupt)
}
