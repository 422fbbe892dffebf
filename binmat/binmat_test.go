package binmat

import (
	"testing"
)

// TestWidthFor tests the storage width selection
func TestWidthFor(t *testing.T) {
	cases := []struct {
		maxIndex int
		want     Width
	}{
		{0, Width8},
		{255, Width8},
		{256, Width16},
		{65535, Width16},
		{65536, Width32},
	}
	for _, c := range cases {
		if got := WidthFor(c.maxIndex); got != c.want {
			t.Errorf("WidthFor(%d) = %d, want %d", c.maxIndex, got, c.want)
		}
	}
}

// TestMatrixRoundTrip tests that packed values come back unchanged at every width
func TestMatrixRoundTrip(t *testing.T) {
	for _, width := range []Width{Width8, Width16, Width32} {
		m := NewMatrix(3, width)
		rows := [][]int{
			{0, 1, 2},
			{3, 0, 1},
			{255, 7, 0},
		}
		for _, row := range rows {
			if err := m.AppendRow(row); err != nil {
				t.Fatalf("AppendRow failed at width %d: %v", width, err)
			}
		}

		if m.Rows() != 3 || m.Cols() != 3 {
			t.Fatalf("dims = (%d, %d), want (3, 3)", m.Rows(), m.Cols())
		}
		if m.Width() != width {
			t.Errorf("Width() = %d, want %d", m.Width(), width)
		}
		for i, row := range rows {
			for j, want := range row {
				if got := m.At(i, j); got != want {
					t.Errorf("At(%d, %d) = %d, want %d", i, j, got, want)
				}
			}
		}

		view := m.Row(1)
		if view.Len() != 3 || view.At(0) != 3 {
			t.Errorf("Row(1) view mismatch: len=%d, at0=%d", view.Len(), view.At(0))
		}
	}
}

// TestAppendRowRejects tests dimension and range validation
func TestAppendRowRejects(t *testing.T) {
	m := NewMatrix(2, Width8)
	if err := m.AppendRow([]int{1}); err == nil {
		t.Error("expected dimension error for short row")
	}
	if err := m.AppendRow([]int{1, 256}); err == nil {
		t.Error("expected range error for value exceeding uint8")
	}
	if err := m.AppendRow([]int{1, -1}); err == nil {
		t.Error("expected range error for negative value")
	}
}

// TestNewMatrixForBins tests width selection from bin counts
func TestNewMatrixForBins(t *testing.T) {
	m := NewMatrixForBins(2, []int{4, 300})
	if m.Width() != Width16 {
		t.Errorf("width = %d, want %d", m.Width(), Width16)
	}
}

// TestBlocks tests block cutting
func TestBlocks(t *testing.T) {
	m := NewMatrix(1, Width8)
	for i := 0; i < 10; i++ {
		if err := m.AppendRow([]int{i}); err != nil {
			t.Fatal(err)
		}
	}

	blocks := Blocks(m, 4)
	if len(blocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(blocks))
	}
	if blocks[0].Rows() != 4 || blocks[2].Rows() != 2 {
		t.Errorf("block sizes = %d, %d, %d", blocks[0].Rows(), blocks[1].Rows(), blocks[2].Rows())
	}
	if blocks[1].At(0, 0) != 4 {
		t.Errorf("blocks[1].At(0,0) = %d, want 4", blocks[1].At(0, 0))
	}
	if blocks[2].Begin() != 8 {
		t.Errorf("blocks[2].Begin() = %d, want 8", blocks[2].Begin())
	}

	whole := Blocks(m, 0)
	if len(whole) != 1 || whole[0].Rows() != 10 {
		t.Errorf("blockSize 0 should yield one whole block")
	}
}
