package batch

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestSubsequentMaskLowerTriangular(t *testing.T) {
	for _, n := range []int{1, 2, 5, 9} {
		m := SubsequentMask(n)
		r, c := m.Dims()
		if r != n || c != n {
			t.Fatalf("n=%d: got %dx%d", n, r, c)
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if m.At(i, j) != (j <= i) {
					t.Fatalf("n=%d: mask[%d][%d]=%v", n, i, j, m.At(i, j))
				}
			}
		}
	}
}

func TestMakeStdMaskCombinesPadAndCausal(t *testing.T) {
	masks := MakeStdMask([][]int{{1, 2, 0}}, 0)
	want := [][]bool{
		{true, false, false},
		{true, true, false},
		{true, true, false},
	}
	for i := range want {
		for j := range want[i] {
			if masks[0].At(i, j) != want[i][j] {
				t.Fatalf("mask[%d][%d]=%v want %v", i, j, masks[0].At(i, j), want[i][j])
			}
		}
	}
}

func TestMakeStdFrameMaskUsesRowSums(t *testing.T) {
	frames := mat.NewDense(3, 2, []float64{
		0.5, 0.5,
		0, 0,
		1, 0,
	})
	m := MakeStdFrameMask([]*mat.Dense{frames}, 0)[0]
	if m.At(2, 1) {
		t.Fatal("zero frame must be masked as padding")
	}
	if !m.At(2, 2) || !m.At(2, 0) {
		t.Fatal("real frames must be visible at or before the row")
	}
}

func TestMaskAdditive(t *testing.T) {
	add := SubsequentMask(3).Additive()
	if add.At(0, 0) != 0 || add.At(0, 1) > -1e29 {
		t.Fatalf("unexpected additive mask %v", mat.Formatted(add))
	}
}

func TestMaskAndShapeMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	SubsequentMask(2).And(SubsequentMask(3))
}
