package domain

import (
	"fmt"
	"time"
)

// Weekend is the closed interval [Saturday 00:00, Sunday 23:59:59.999] in local time.
type Weekend struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w Weekend) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// NextWeekend returns the weekend starting on the first Saturday strictly after
// the calendar day of ref.
func NextWeekend(ref time.Time, loc *time.Location) Weekend {
	local := ref.In(loc)
	days := (int(time.Saturday) - int(local.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	start := time.Date(local.Year(), local.Month(), local.Day()+days, 0, 0, 0, 0, loc)
	end := time.Date(start.Year(), start.Month(), start.Day()+2, 0, 0, 0, 0, loc).Add(-time.Millisecond)
	return Weekend{Start: start, End: end}
}

// NextWeekdayAt returns the first instant strictly after ref that falls on the
// given weekday at hour:00 local time.
func NextWeekdayAt(ref time.Time, loc *time.Location, day time.Weekday, hour int) time.Time {
	local := ref.In(loc)
	days := (int(day) - int(local.Weekday()) + 7) % 7
	next := time.Date(local.Year(), local.Month(), local.Day()+days, hour, 0, 0, 0, loc)
	if !next.After(ref) {
		next = time.Date(local.Year(), local.Month(), local.Day()+days+7, hour, 0, 0, 0, loc)
	}
	return next
}

// SuggestionsDeadline is the Wednesday 15:00 that closes the suggestion window.
func SuggestionsDeadline(ref time.Time, loc *time.Location) time.Time {
	return NextWeekdayAt(ref, loc, time.Wednesday, 15)
}

// NextVotingDate is the Monday 08:00 when the weekly sync is next expected to run.
func NextVotingDate(ref time.Time, loc *time.Location) time.Time {
	return NextWeekdayAt(ref, loc, time.Monday, 8)
}

type SeasonStart struct {
	Month time.Month
	Day   int
}

func ParseSeasonStart(s string) (SeasonStart, error) {
	var month, day int
	if _, err := fmt.Sscanf(s, "%d-%d", &month, &day); err != nil {
		return SeasonStart{}, fmt.Errorf("invalid season start %q, want MM-DD: %w", s, err)
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return SeasonStart{}, fmt.Errorf("invalid season start %q, want MM-DD", s)
	}
	return SeasonStart{Month: time.Month(month), Day: day}, nil
}

// EstimateRound guesses the round being played at ref from the number of whole
// weeks elapsed since the season started, clamped to [1, maxRound].
func EstimateRound(ref time.Time, loc *time.Location, season SeasonStart, maxRound int) int {
	local := ref.In(loc)
	start := time.Date(local.Year(), season.Month, season.Day, 0, 0, 0, 0, loc)
	if local.Before(start) {
		start = start.AddDate(-1, 0, 0)
	}
	weeks := int(local.Sub(start) / (7 * 24 * time.Hour))
	return clampRound(weeks+1, maxRound)
}

func clampRound(round, maxRound int) int {
	if round < 1 {
		return 1
	}
	if round > maxRound {
		return maxRound
	}
	return round
}

var (
	catalanDays   = [...]string{"Diumenge", "Dilluns", "Dimarts", "Dimecres", "Dijous", "Divendres", "Dissabte"}
	catalanMonths = [...]string{"Gener", "Febrer", "Març", "Abril", "Maig", "Juny", "Juliol", "Agost", "Setembre", "Octubre", "Novembre", "Desembre"}
)

// FormatCatalanDate renders t as "Dissabte 10 Gener, 17:30".
func FormatCatalanDate(t time.Time, loc *time.Location) string {
	local := t.In(loc)
	return fmt.Sprintf("%s %d %s, %02d:%02d",
		catalanDays[local.Weekday()], local.Day(), catalanMonths[local.Month()-1], local.Hour(), local.Minute())
}
