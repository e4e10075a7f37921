package engine

import "testing"

func TestCardPacking(t *testing.T) {
	for suit := SuitClubs; suit <= SuitSpades; suit++ {
		for rank := RankAce; rank <= RankKing; rank++ {
			c := NewCard(suit, rank)
			if c.Suit() != suit || c.Rank() != rank {
				t.Fatalf("round trip failed for suit=%d rank=%d: got suit=%d rank=%d",
					suit, rank, c.Suit(), c.Rank())
			}
		}
	}
}

func TestCardStringRoundTrip(t *testing.T) {
	for suit := SuitClubs; suit <= SuitSpades; suit++ {
		for rank := RankAce; rank <= RankKing; rank++ {
			c := NewCard(suit, rank)
			parsed, err := ParseCard(c.String())
			if err != nil {
				t.Fatalf("ParseCard(%q): %v", c.String(), err)
			}
			if parsed != c {
				t.Errorf("ParseCard(%q) = %v, want %v", c.String(), parsed, c)
			}
		}
	}
}

func TestParseCardRejectsGarbage(t *testing.T) {
	for _, code := range []string{"", "A", "ASX", "XS", "A?", "as"} {
		if _, err := ParseCard(code); err == nil {
			t.Errorf("ParseCard(%q) should fail", code)
		}
	}
}

func TestPoints(t *testing.T) {
	cases := []struct {
		code string
		want int
	}{
		{"AC", 1}, {"5H", 5}, {"TD", 10}, {"JS", 0}, {"QH", 0}, {"KC", 0},
	}
	for _, tc := range cases {
		if got := MustCard(tc.code).Points(); got != tc.want {
			t.Errorf("%s.Points() = %d, want %d", tc.code, got, tc.want)
		}
	}
}

func TestOutscuttledBy(t *testing.T) {
	cases := []struct {
		target, attacker string
		want             bool
	}{
		{"5C", "6C", true},   // higher rank
		{"6C", "5C", false},  // lower rank
		{"5C", "5H", true},   // equal rank, higher suit
		{"5H", "5C", false},  // equal rank, lower suit
		{"5S", "5C", false},  // spades outranks clubs
		{"TC", "TS", true},
	}
	for _, tc := range cases {
		got := MustCard(tc.target).OutscuttledBy(MustCard(tc.attacker))
		if got != tc.want {
			t.Errorf("%s.OutscuttledBy(%s) = %v, want %v", tc.target, tc.attacker, got, tc.want)
		}
	}
}

func TestOneOffClassification(t *testing.T) {
	for _, code := range []string{"AC", "2C", "3C", "4C", "5C", "6C", "7C", "9C"} {
		if !MustCard(code).HasOneOff() {
			t.Errorf("%s should have a one-off effect", code)
		}
	}
	for _, code := range []string{"8C", "TC", "JC", "QC", "KC"} {
		if MustCard(code).HasOneOff() {
			t.Errorf("%s should not have a one-off effect", code)
		}
	}
	for _, code := range []string{"2C", "3C", "9C"} {
		if !MustCard(code).IsTargetedOneOff() {
			t.Errorf("%s should be targeted", code)
		}
	}
}
