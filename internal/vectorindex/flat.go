package vectorindex

import (
	"bufio"
	"container/heap"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
)

var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrCorrupt           = errors.New("corrupt vector index")
)

const (
	fileMagic   = "CCVI"
	fileVersion = uint32(1)
)

// Hit is one search result: the ordinal of a stored vector and its score
type Hit struct {
	Ordinal int
	Score   float64
}

// Flat is an exact inner-product index. It is not safe for concurrent
// mutation; concurrent Search calls on a fully built index are fine.
type Flat struct {
	dim  int
	data []float32
}

// New returns an empty index for vectors of length dim
func New(dim int) *Flat {
	return &Flat{dim: dim}
}

// Dimension returns the vector length the index accepts
func (f *Flat) Dimension() int {
	return f.dim
}

// Len returns the number of stored vectors
func (f *Flat) Len() int {
	if f.dim == 0 {
		return 0
	}
	return len(f.data) / f.dim
}

// Add appends vectors; each receives the next ordinal
func (f *Flat) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("%w: vector %d has length %d, index holds %d", ErrDimensionMismatch, i, len(v), f.dim)
		}
	}
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	return nil
}

// Vector returns the stored vector at ordinal i
func (f *Flat) Vector(i int) []float32 {
	return f.data[i*f.dim : (i+1)*f.dim]
}

// Score returns the inner product of query with the vector at ordinal i
func (f *Flat) Score(query []float32, i int) float64 {
	return dot(query, f.Vector(i))
}

// Search returns up to n hits ordered by score descending, then ordinal
// ascending
func (f *Flat) Search(query []float32, n int) ([]Hit, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has length %d, index holds %d", ErrDimensionMismatch, len(query), f.dim)
	}
	total := f.Len()
	if n > total {
		n = total
	}
	if n <= 0 {
		return []Hit{}, nil
	}

	h := make(worstFirst, 0, n)
	for i := 0; i < total; i++ {
		hit := Hit{Ordinal: i, Score: f.Score(query, i)}
		if len(h) < n {
			heap.Push(&h, hit)
			continue
		}
		if better(hit, h[0]) {
			h[0] = hit
			heap.Fix(&h, 0)
		}
	}

	hits := []Hit(h)
	sort.Slice(hits, func(a, b int) bool { return better(hits[a], hits[b]) })
	return hits, nil
}

func better(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Ordinal < b.Ordinal
}

// worstFirst is a heap whose root is the weakest retained hit
type worstFirst []Hit

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return better(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *worstFirst) Push(x any)        { *h = append(*h, x.(Hit)) }
func (h *worstFirst) Pop() any {
	old := *h
	last := old[len(old)-1]
	*h = old[:len(old)-1]
	return last
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// WriteTo serializes the index
func (f *Flat) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	header := make([]byte, 16)
	copy(header, fileMagic)
	binary.LittleEndian.PutUint32(header[4:], fileVersion)
	binary.LittleEndian.PutUint32(header[8:], uint32(f.dim))
	binary.LittleEndian.PutUint32(header[12:], uint32(f.Len()))
	written, err := bw.Write(header)
	if err != nil {
		return int64(written), err
	}

	buf := make([]byte, 4)
	for _, v := range f.data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		n, err := bw.Write(buf)
		written += n
		if err != nil {
			return int64(written), err
		}
	}
	return int64(written), bw.Flush()
}

// Read deserializes an index written by WriteTo
func Read(r io.Reader) (*Flat, error) {
	br := bufio.NewReader(r)
	header := make([]byte, 16)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	if string(header[:4]) != fileMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if v := binary.LittleEndian.Uint32(header[4:]); v != fileVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}
	dim := int(binary.LittleEndian.Uint32(header[8:]))
	count := int(binary.LittleEndian.Uint32(header[12:]))
	if dim == 0 && count > 0 {
		return nil, fmt.Errorf("%w: zero dimension with %d vectors", ErrCorrupt, count)
	}

	f := &Flat{dim: dim, data: make([]float32, dim*count)}
	buf := make([]byte, 4)
	for i := range f.data {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("%w: truncated at value %d: %v", ErrCorrupt, i, err)
		}
		f.data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf))
	}
	if _, err := br.ReadByte(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", ErrCorrupt)
	}
	return f, nil
}
