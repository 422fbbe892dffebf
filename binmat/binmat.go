// Package binmat provides packed storage for discretized feature matrices.
//
// A discretized dataset holds small integer bin indices per (row, column). The
// storage width is selected per run as the smallest of 8/16/32 bit unsigned
// that accommodates the largest bin index, so a 64-bin dataset costs one byte
// per cell. The width-erased Matrix interface hides the three monomorphized
// packed variants from the rest of the code base; the width is fixed at the
// top boundary with WidthFor.
package binmat

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/gobm/pkg/errors"
)

// BinIndex constrains the packed element types.
type BinIndex interface {
	~uint8 | ~uint16 | ~uint32
}

// Width is the storage width of a packed matrix in bits.
type Width int

const (
	Width8  Width = 8
	Width16 Width = 16
	Width32 Width = 32
)

// WidthFor returns the smallest width whose unsigned range holds maxIndex.
func WidthFor(maxIndex int) Width {
	switch {
	case maxIndex <= math.MaxUint8:
		return Width8
	case maxIndex <= math.MaxUint16:
		return Width16
	default:
		return Width32
	}
}

// Row is a read-only view of one matrix row.
type Row interface {
	At(col int) int
	Len() int
}

// Matrix is a width-erased, row-major packed matrix of bin indices.
type Matrix interface {
	At(row, col int) int
	Rows() int
	Cols() int
	Width() Width
	Row(i int) Row

	// AppendRow packs one row of bin indices. The row length must equal
	// Cols and every index must fit the storage width.
	AppendRow(bins []int) error
}

// NewMatrix returns an empty packed matrix with the given column count and
// storage width.
func NewMatrix(cols int, width Width) Matrix {
	switch width {
	case Width8:
		return &packed[uint8]{cols: cols}
	case Width16:
		return &packed[uint16]{cols: cols}
	default:
		return &packed[uint32]{cols: cols}
	}
}

// NewMatrixForBins selects the width from the largest representable bin
// index, max(numBins)-1.
func NewMatrixForBins(cols int, numBins []int) Matrix {
	maxIndex := 0
	for _, n := range numBins {
		if n-1 > maxIndex {
			maxIndex = n - 1
		}
	}
	return NewMatrix(cols, WidthFor(maxIndex))
}

// packed is one monomorphized matrix variant.
type packed[T BinIndex] struct {
	cols int
	data []T
}

func (m *packed[T]) At(row, col int) int {
	return int(m.data[row*m.cols+col])
}

func (m *packed[T]) Rows() int {
	if m.cols == 0 {
		return 0
	}
	return len(m.data) / m.cols
}

func (m *packed[T]) Cols() int { return m.cols }

func (m *packed[T]) Width() Width {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return Width8
	case uint16:
		return Width16
	default:
		return Width32
	}
}

func (m *packed[T]) Row(i int) Row {
	return rowView{m: m, row: i}
}

func (m *packed[T]) AppendRow(bins []int) error {
	if len(bins) != m.cols {
		return errors.NewDimensionError("binmat.AppendRow", m.cols, len(bins), 1)
	}
	limit := maxValue[T]()
	for col, b := range bins {
		if b < 0 || b > limit {
			return errors.NewValueError("binmat.AppendRow",
				fmt.Sprintf("bin index %d at column %d exceeds storage width", b, col))
		}
		m.data = append(m.data, T(b))
	}
	return nil
}

func maxValue[T BinIndex]() int {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return math.MaxUint8
	case uint16:
		return math.MaxUint16
	default:
		return math.MaxUint32
	}
}

type rowView struct {
	m   Matrix
	row int
}

func (r rowView) At(col int) int { return r.m.At(r.row, col) }
func (r rowView) Len() int       { return r.m.Cols() }
