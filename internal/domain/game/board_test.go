package game

import "testing"

func TestDiffOneCellAcceptsSingleMark(t *testing.T) {
	var auth Board
	auth[3] = Black
	proposed := auth
	proposed[12] = White

	cell, ok := DiffOneCell(&auth, &proposed, White)
	if !ok || cell != 12 {
		t.Fatalf("expected (12, true), got (%d, %v)", cell, ok)
	}
}

func TestDiffOneCellRejectsBadShapes(t *testing.T) {
	var auth Board
	auth[3] = Black

	cases := []struct {
		name  string
		build func() Board
		mover Cell
	}{
		{"no change", func() Board { return auth }, White},
		{"two cells", func() Board {
			b := auth
			b[5] = White
			b[6] = White
			return b
		}, White},
		{"wrong color", func() Board {
			b := auth
			b[5] = Black
			return b
		}, White},
		{"erased mark", func() Board {
			b := auth
			b[3] = Empty
			return b
		}, White},
		{"overwritten mark", func() Board {
			b := auth
			b[3] = White
			return b
		}, White},
	}

	for _, tc := range cases {
		proposed := tc.build()
		if cell, ok := DiffOneCell(&auth, &proposed, tc.mover); ok {
			t.Fatalf("%s: expected rejection, got cell %d", tc.name, cell)
		}
	}
}

func TestBoardFullAndEmptyCells(t *testing.T) {
	var b Board
	if b.Full() {
		t.Fatalf("empty board reported full")
	}
	if got := len(b.EmptyCells()); got != BoardCells {
		t.Fatalf("expected %d empty cells, got %d", BoardCells, got)
	}

	for i := range b {
		b[i] = Black
	}
	if !b.Full() {
		t.Fatalf("filled board reported not full")
	}
}
