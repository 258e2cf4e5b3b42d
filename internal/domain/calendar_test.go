package domain

import (
	"testing"
	"time"
)

func madrid(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestNextWeekend(t *testing.T) {
	loc := madrid(t)

	tests := []struct {
		name      string
		ref       time.Time
		wantStart time.Time
	}{
		{"monday", time.Date(2026, 1, 5, 8, 0, 0, 0, loc), time.Date(2026, 1, 10, 0, 0, 0, 0, loc)},
		{"friday night", time.Date(2026, 1, 9, 23, 59, 0, 0, loc), time.Date(2026, 1, 10, 0, 0, 0, 0, loc)},
		{"saturday moves to next week", time.Date(2026, 1, 10, 9, 0, 0, 0, loc), time.Date(2026, 1, 17, 0, 0, 0, 0, loc)},
		{"sunday", time.Date(2026, 1, 11, 12, 0, 0, 0, loc), time.Date(2026, 1, 17, 0, 0, 0, 0, loc)},
		{"utc instant late friday", time.Date(2026, 1, 9, 23, 30, 0, 0, time.UTC), time.Date(2026, 1, 17, 0, 0, 0, 0, loc)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NextWeekend(tt.ref, loc)
			if !w.Start.Equal(tt.wantStart) {
				t.Errorf("start = %v, want %v", w.Start, tt.wantStart)
			}
			wantEnd := tt.wantStart.AddDate(0, 0, 2).Add(-time.Millisecond)
			if !w.End.Equal(wantEnd) {
				t.Errorf("end = %v, want %v", w.End, wantEnd)
			}
		})
	}
}

func TestWeekendContains(t *testing.T) {
	loc := madrid(t)
	w := NextWeekend(time.Date(2026, 1, 5, 8, 0, 0, 0, loc), loc)

	cases := map[time.Time]bool{
		time.Date(2026, 1, 10, 0, 0, 0, 0, loc):                true,
		time.Date(2026, 1, 11, 23, 59, 59, 999_000_000, loc):   true,
		time.Date(2026, 1, 12, 0, 0, 0, 0, loc):                false,
		time.Date(2026, 1, 9, 23, 59, 59, 0, loc):              false,
		time.Date(2026, 1, 10, 17, 30, 0, 0, loc).In(time.UTC): true,
	}
	for ts, want := range cases {
		if got := w.Contains(ts); got != want {
			t.Errorf("Contains(%v) = %v, want %v", ts, got, want)
		}
	}
}

func TestSuggestionsDeadline(t *testing.T) {
	loc := madrid(t)

	tests := []struct {
		name string
		ref  time.Time
		want time.Time
	}{
		{"monday", time.Date(2026, 1, 12, 8, 0, 0, 0, loc), time.Date(2026, 1, 14, 15, 0, 0, 0, loc)},
		{"wednesday morning", time.Date(2026, 1, 14, 10, 0, 0, 0, loc), time.Date(2026, 1, 14, 15, 0, 0, 0, loc)},
		{"wednesday at deadline", time.Date(2026, 1, 14, 15, 0, 0, 0, loc), time.Date(2026, 1, 21, 15, 0, 0, 0, loc)},
		{"thursday", time.Date(2026, 1, 15, 9, 0, 0, 0, loc), time.Date(2026, 1, 21, 15, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SuggestionsDeadline(tt.ref, loc)
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if !got.After(tt.ref) {
				t.Errorf("deadline %v not after %v", got, tt.ref)
			}
		})
	}
}

func TestNextVotingDate(t *testing.T) {
	loc := madrid(t)
	got := NextVotingDate(time.Date(2026, 1, 12, 8, 0, 0, 0, loc), loc)
	want := time.Date(2026, 1, 19, 8, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEstimateRound(t *testing.T) {
	loc := madrid(t)
	season := SeasonStart{Month: time.October, Day: 1}

	tests := []struct {
		name string
		ref  time.Time
		want int
	}{
		{"season start", time.Date(2025, 10, 1, 12, 0, 0, 0, loc), 1},
		{"second week", time.Date(2025, 10, 9, 12, 0, 0, 0, loc), 2},
		{"january uses previous october", time.Date(2026, 1, 5, 8, 0, 0, 0, loc), 14},
		{"clamped to max", time.Date(2026, 9, 20, 8, 0, 0, 0, loc), 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateRound(tt.ref, loc, season, 30); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseSeasonStart(t *testing.T) {
	s, err := ParseSeasonStart("10-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Month != time.October || s.Day != 1 {
		t.Errorf("got %+v", s)
	}
	for _, bad := range []string{"", "13-01", "october", "10-40"} {
		if _, err := ParseSeasonStart(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestFormatCatalanDate(t *testing.T) {
	loc := madrid(t)
	got := FormatCatalanDate(time.Date(2026, 1, 10, 17, 30, 0, 0, loc), loc)
	if got != "Dissabte 10 Gener, 17:30" {
		t.Errorf("got %q", got)
	}
}

func TestVoteChangeNoop(t *testing.T) {
	a := &VoteKey{Round: 7, MatchID: "A"}
	b := &VoteKey{Round: 7, MatchID: "B"}

	tests := []struct {
		name   string
		change VoteChange
		want   bool
	}{
		{"empty", VoteChange{}, true},
		{"create", VoteChange{After: a}, false},
		{"delete", VoteChange{Before: a}, false},
		{"same match", VoteChange{Before: a, After: &VoteKey{Round: 7, MatchID: "A"}}, true},
		{"switch", VoteChange{Before: a, After: b}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.change.Noop(); got != tt.want {
				t.Errorf("Noop() = %v, want %v", got, tt.want)
			}
		})
	}
}
