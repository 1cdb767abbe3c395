package sketch

import tmmath "github.com/decentrust/decentrust/libs/math"

// Iterator walks the cells of a sketch matrix in row-major order. It yields
// exactly depth*width cells and can be restarted with Reset.
//
//	for it := s.Iter(); it.Next(); {
//		fmt.Println(it.Row(), it.Col(), it.Value())
//	}
type Iterator[V tmmath.Value] struct {
	matrix [][]V
	width  int
	pos    int
}

// Iter returns an iterator over the live matrix. The sketch must not be
// mutated while the iterator is in use.
func (s *CountMinSketch[V]) Iter() *Iterator[V] {
	return newIterator(s.matrix, s.width)
}

// Snapshot returns an iterator over a private copy of the matrix, unaffected
// by later changes to the sketch.
func (s *CountMinSketch[V]) Snapshot() *Iterator[V] {
	return newIterator(copyMatrix(s.matrix), s.width)
}

func newIterator[V tmmath.Value](matrix [][]V, width int) *Iterator[V] {
	return &Iterator[V]{matrix: matrix, width: width, pos: -1}
}

// Next advances to the next cell and reports whether one exists.
func (it *Iterator[V]) Next() bool {
	if it.pos < it.Len() {
		it.pos++
	}
	return it.pos < it.Len()
}

// Value returns the current cell. It panics if Next has not returned true.
func (it *Iterator[V]) Value() V {
	return it.matrix[it.Row()][it.Col()]
}

// Row returns the row of the current cell.
func (it *Iterator[V]) Row() int { return it.pos / it.width }

// Col returns the column of the current cell.
func (it *Iterator[V]) Col() int { return it.pos % it.width }

// Len returns the total number of cells the iterator yields.
func (it *Iterator[V]) Len() int { return len(it.matrix) * it.width }

// Reset rewinds the iterator to before the first cell.
func (it *Iterator[V]) Reset() { it.pos = -1 }
