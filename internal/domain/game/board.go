package game

// BoardSize — сторона доски. Игра всегда идёт на поле 8x8.
const BoardSize = 8

// BoardCells is the number of cells on the board.
const BoardCells = BoardSize * BoardSize

// Cell holds the mark placed in a single board cell.
type Cell uint8

const (
	Empty Cell = iota
	Black      // first mover
	White
)

// Opponent returns the opposing color. Empty has no opponent.
func (c Cell) Opponent() Cell {
	switch c {
	case Black:
		return White
	case White:
		return Black
	}
	return Empty
}

func (c Cell) String() string {
	switch c {
	case Black:
		return "black"
	case White:
		return "white"
	}
	return "empty"
}

// Board is the canonical 8x8 field, addressed as y*8+x.
type Board [BoardCells]Cell

// CellIndex converts (x, y) coordinates to the canonical cell index.
func CellIndex(x, y int) int {
	return y*BoardSize + x
}

// CellCoords converts a cell index back to (x, y) coordinates.
func CellCoords(idx int) (x, y int) {
	return idx % BoardSize, idx / BoardSize
}

// InBounds reports whether (x, y) lies on the board.
func InBounds(x, y int) bool {
	return x >= 0 && x < BoardSize && y >= 0 && y < BoardSize
}

// EmptyCells returns the indices of all unoccupied cells in scan order.
func (b *Board) EmptyCells() []int {
	cells := make([]int, 0, BoardCells)
	for i, c := range b {
		if c == Empty {
			cells = append(cells, i)
		}
	}
	return cells
}

// Full reports whether the board has no empty cells left.
func (b *Board) Full() bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}

// DiffOneCell compares the proposed board against the authoritative one
// and returns the single changed cell. ok is false for any other diff
// shape: zero changed cells, two or more, an erased or overwritten mark,
// or a new mark that is not the mover's color.
func DiffOneCell(authoritative, proposed *Board, mover Cell) (cell int, ok bool) {
	cell = -1
	for i := range authoritative {
		if authoritative[i] == proposed[i] {
			continue
		}
		if cell != -1 {
			return -1, false // больше одной изменённой клетки
		}
		if authoritative[i] != Empty || proposed[i] != mover {
			return -1, false
		}
		cell = i
	}
	if cell == -1 {
		return -1, false
	}
	return cell, true
}
