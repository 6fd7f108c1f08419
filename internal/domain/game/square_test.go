package game

import "testing"

func TestNewSquareCanonicalizesCorners(t *testing.T) {
	a := NewSquare([4]int{36, 2, 25, 13}, Black, 0)
	b := NewSquare([4]int{2, 13, 25, 36}, Black, 0)
	if !a.Equal(b) {
		t.Fatalf("same corner set must compare equal: %v vs %v", a, b)
	}
	if a.Corners != [4]int{2, 13, 25, 36} {
		t.Fatalf("corners not canonicalized: %v", a.Corners)
	}
	if a.Score != 25 {
		t.Fatalf("expected bounding-box score 25, got %d", a.Score)
	}
}

func TestSquareKeyRoundTrip(t *testing.T) {
	sq := NewSquare([4]int{9, 0, 8, 1}, White, 1)
	key := sq.Key()
	if key != "0-1-8-9" {
		t.Fatalf("unexpected key %q", key)
	}
	corners, err := ParseSquareKey(key)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if corners != sq.Corners {
		t.Fatalf("round trip mismatch: %v vs %v", corners, sq.Corners)
	}
}

func TestParseSquareKeyRejectsGarbage(t *testing.T) {
	for _, key := range []string{"", "1-2-3", "1-2-3-4-5", "a-b-c-d", "0-1-8-64", "0-1-8--1"} {
		if _, err := ParseSquareKey(key); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestContainsSquare(t *testing.T) {
	list := []Square{NewSquare([4]int{0, 1, 8, 9}, Black, 0)}
	if !ContainsSquare(list, NewSquare([4]int{9, 8, 1, 0}, Black, 0)) {
		t.Fatalf("expected square to be found")
	}
	if ContainsSquare(list, NewSquare([4]int{0, 1, 8, 9}, White, 0)) {
		t.Fatalf("color must participate in equality")
	}
}
