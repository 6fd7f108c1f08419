package game

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Square is an unordered set of four cell indices forming the corners of
// a square in the plane, axis-aligned or rotated. Corners are kept in
// canonical order (by row, then column — which for y*8+x indices is
// plain ascending order), so duplicate detection is a pure equality test.
type Square struct {
	Corners [4]int `json:"corners" bson:"corners"`
	Color   Cell   `json:"color" bson:"color"`
	Score   int    `json:"score" bson:"score"`
	Remain  int    `json:"remain" bson:"remain"`
}

// NewSquare canonicalizes the corner order and computes the bounding-box
// score: the axis-aligned rectangle enclosing all four corners, measured
// in whole grid cells.
func NewSquare(corners [4]int, color Cell, remain int) Square {
	sort.Ints(corners[:])

	minX, minY := BoardSize, BoardSize
	maxX, maxY := 0, 0
	for _, c := range corners {
		x, y := CellCoords(c)
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}

	return Square{
		Corners: corners,
		Color:   color,
		Score:   (maxX - minX + 1) * (maxY - minY + 1),
		Remain:  remain,
	}
}

// Key encodes the canonical corner set as a stable string, e.g. "3-12-25-40".
// It is what gets persisted as the bot's standing target.
func (s Square) Key() string {
	parts := make([]string, 4)
	for i, c := range s.Corners {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, "-")
}

// Equal reports record equality: same corner set, color and score.
func (s Square) Equal(o Square) bool {
	return s.Corners == o.Corners && s.Color == o.Color && s.Score == o.Score
}

// ContainsSquare reports whether an equal square is already in the list.
func ContainsSquare(list []Square, s Square) bool {
	for _, have := range list {
		if have.Equal(s) {
			return true
		}
	}
	return false
}

// ParseSquareKey decodes a persisted target key back into corner indices.
func ParseSquareKey(key string) ([4]int, error) {
	var corners [4]int
	parts := strings.Split(key, "-")
	if len(parts) != 4 {
		return corners, fmt.Errorf("bad square key %q", key)
	}
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v >= BoardCells {
			return corners, fmt.Errorf("bad square key %q", key)
		}
		corners[i] = v
	}
	return corners, nil
}
