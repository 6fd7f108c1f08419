package game

import "sort"

// MoveOutcome is the result of scoring a single placed mark.
type MoveOutcome struct {
	// Points is the sum of the bounding-box areas of all squares the
	// move completes. One move may complete several squares at once.
	Points int
	// Completed holds the newly finished squares (Remain == 0).
	Completed []Square
	// Potential holds squares through the placed cell with 1-3 corners
	// still empty and none held by the opponent.
	Potential []Square
}

// Evaluate scores a mark of the given color placed at cell idx `placed`.
// The board itself is not mutated: the placed cell is treated as held by
// `color` during the scan regardless of its current content, so callers
// can probe hypothetical moves without copying the board.
//
// Каждая вторая клетка Q рассматривается как второй конец ребра P-Q;
// два оставшихся угла достраиваются поворотом ребра на 90 градусов.
// The same square can be reached through more than one edge, so results
// are deduplicated by canonical corner set; the outcome is a pure
// function of the board and does not depend on scan order.
func Evaluate(b *Board, placed int, color Cell) MoveOutcome {
	var order [BoardCells]int
	for i := range order {
		order[i] = i
	}
	return evalScan(b, placed, color, order[:])
}

// evalScan is Evaluate with an explicit scan order. Split out so tests
// can verify that the result set is invariant under any permutation.
func evalScan(b *Board, placed int, color Cell, order []int) MoveOutcome {
	px, py := CellCoords(placed)
	opponent := color.Opponent()

	occupant := func(idx int) Cell {
		if idx == placed {
			return color
		}
		return b[idx]
	}

	seen := make(map[[4]int]bool)
	outcome := MoveOutcome{}

	for _, q := range order {
		if q == placed {
			continue
		}
		qx, qy := CellCoords(q)
		dx, dy := qx-px, qy-py

		// rot90(dx,dy) = (-dy,dx): достраиваем квадрат на одной стороне
		// ребра; квадрат с другой стороны получится от другого Q.
		rx, ry := px-dy, py+dx
		sx, sy := qx-dy, qy+dx
		if !InBounds(rx, ry) || !InBounds(sx, sy) {
			continue
		}

		corners := [4]int{placed, q, CellIndex(rx, ry), CellIndex(sx, sy)}
		remain := 0
		blocked := false
		for _, c := range corners {
			switch occupant(c) {
			case opponent:
				blocked = true
			case Empty:
				remain++
			}
		}
		if blocked {
			continue
		}

		sq := NewSquare(corners, color, remain)
		if seen[sq.Corners] {
			continue
		}
		seen[sq.Corners] = true

		if remain == 0 {
			outcome.Completed = append(outcome.Completed, sq)
			outcome.Points += sq.Score
		} else {
			outcome.Potential = append(outcome.Potential, sq)
		}
	}

	sortSquares(outcome.Completed)
	sortSquares(outcome.Potential)
	return outcome
}

// PotentialSquares enumerates every square on the board that the given
// color could still finish: no corner held by the opponent and at least
// one corner empty. Used by the bot when it picks a new standing target.
func PotentialSquares(b *Board, color Cell) []Square {
	opponent := color.Opponent()
	seen := make(map[[4]int]bool)
	var result []Square

	for p := 0; p < BoardCells; p++ {
		px, py := CellCoords(p)
		for q := 0; q < BoardCells; q++ {
			if q == p {
				continue
			}
			qx, qy := CellCoords(q)
			dx, dy := qx-px, qy-py
			rx, ry := px-dy, py+dx
			sx, sy := qx-dy, qy+dx
			if !InBounds(rx, ry) || !InBounds(sx, sy) {
				continue
			}

			corners := [4]int{p, q, CellIndex(rx, ry), CellIndex(sx, sy)}
			remain := 0
			blocked := false
			for _, c := range corners {
				switch b[c] {
				case opponent:
					blocked = true
				case Empty:
					remain++
				}
			}
			if blocked || remain == 0 {
				continue
			}

			sq := NewSquare(corners, color, remain)
			if seen[sq.Corners] {
				continue
			}
			seen[sq.Corners] = true
			result = append(result, sq)
		}
	}

	sortSquares(result)
	return result
}

// sortSquares orders squares by their canonical corner tuple so that
// every caller sees the same deterministic order.
func sortSquares(list []Square) {
	sort.Slice(list, func(i, j int) bool {
		return lessCorners(list[i].Corners, list[j].Corners)
	})
}

func lessCorners(a, b [4]int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
