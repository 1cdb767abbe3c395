package sketch

import (
	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
)

// HashKind identifies a RowHasher implementation.
type HashKind string

const (
	// HashOffset projects a key with a single hash offset by the row index.
	HashOffset HashKind = "offset"
	// HashSeeded projects a key with an independently seeded hash per row.
	HashSeeded HashKind = "seeded"
)

// RowHasher maps a key to a column for a given row. Implementations must be
// deterministic: the same key, row and width always yield the same column.
type RowHasher interface {
	Column(key []byte, row, width int) int
	Kind() HashKind
}

// NewRowHasher returns the hasher for the given kind, sized for depth rows.
func NewRowHasher(kind HashKind, depth int) (RowHasher, error) {
	switch kind {
	case HashOffset, "":
		return OffsetHasher{}, nil
	case HashSeeded:
		return NewSeededHasher(depth), nil
	default:
		return nil, ErrUnknownHashKind
	}
}

// OffsetHasher computes (xxhash64(key) + row) mod width.
//
// The rows are related rather than independent: two keys that share a column
// in one row share a column in every row. Use SeededHasher to get the error
// bound the sizing formula assumes.
type OffsetHasher struct{}

var _ RowHasher = OffsetHasher{}

func (OffsetHasher) Column(key []byte, row, width int) int {
	h := xxhash.Sum64(key) + uint64(row)
	return int(h % uint64(width))
}

func (OffsetHasher) Kind() HashKind { return HashOffset }

// SeededHasher computes murmur3(key, seed[row]) mod width.
type SeededHasher struct {
	seeds []uint32
}

var _ RowHasher = (*SeededHasher)(nil)

// NewSeededHasher returns a hasher with depth deterministic row seeds.
func NewSeededHasher(depth int) *SeededHasher {
	seeds := make([]uint32, depth)
	for i := range seeds {
		seeds[i] = uint32(i)*0x9e3779b9 + 0x6c62272e
	}
	return &SeededHasher{seeds: seeds}
}

func (h *SeededHasher) Column(key []byte, row, width int) int {
	seed := uint32(row)
	if row < len(h.seeds) {
		seed = h.seeds[row]
	}
	return int(murmur3.Sum64WithSeed(key, seed) % uint64(width))
}

func (*SeededHasher) Kind() HashKind { return HashSeeded }
