package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/Annabf7/el-visionat/internal/service"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

type tallyResult struct {
	Round   int            `json:"jornada"`
	Tallies []domain.Tally `json:"tallies"`
}

type closeResult struct {
	Focus   *domain.WeeklyFocus `json:"focus"`
	Changed bool                `json:"changed"`
}

const timeLayout = "2006-01-02 15:04 MST"

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result any, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeJSON(w io.Writer, result any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func writeText(w io.Writer, result any) error {
	switch r := result.(type) {
	case *service.SyncResult:
		writeSync(w, r)
	case *service.ActiveRoundView:
		writeActive(w, r)
	case *service.RoundView:
		writeRound(w, r)
	case tallyResult:
		writeTallies(w, r)
	case *domain.WeeklyFocus:
		writeFocus(w, r)
	case closeResult:
		if r.Focus == nil {
			fmt.Fprintln(w, "No weekly focus.")
			return nil
		}
		if r.Changed {
			fmt.Fprintf(w, "Suggestions closed for jornada %d.\n", r.Focus.Round)
		} else {
			fmt.Fprintf(w, "Suggestions for jornada %d were already closed.\n", r.Focus.Round)
		}
	case []domain.SyncRun:
		writeRuns(w, r)
	default:
		return writeJSON(w, result)
	}
	return nil
}

func writeSync(w io.Writer, r *service.SyncResult) {
	fmt.Fprintf(w, "Run %s: weekend %s to %s\n", r.RunID, r.WeekendStart.Format(time.DateOnly), r.WeekendEnd.Format(time.DateOnly))
	switch {
	case r.Published:
		fmt.Fprintf(w, "Published jornada %d with %d matches (%s).\n", r.Round, r.MatchCount, r.Reason)
	case r.RestWeek:
		fmt.Fprintf(w, "No games: jornada %d closed for a rest week.\n", r.Round)
	default:
		fmt.Fprintf(w, "Nothing published: %s.\n", r.Reason)
	}
}

func writeActive(w io.Writer, v *service.ActiveRoundView) {
	if v == nil {
		fmt.Fprintln(w, "No jornada has been published yet.")
		return
	}
	p := v.Pointer
	fmt.Fprintf(w, "Active jornada %d (%d matches), published %s\n", p.Round, p.MatchCount, p.PublishedAt.Format(timeLayout))
	if p.RestWeek {
		fmt.Fprintf(w, "Rest week: %s\n", p.RestWeekMessage)
		if p.NextVotingDate != nil {
			fmt.Fprintf(w, "Next vote: %s\n", p.NextVotingDate.Format(timeLayout))
		}
	}
	if v.Period != nil {
		state := "open"
		if !v.Period.Open {
			state = "closed"
		}
		fmt.Fprintf(w, "Voting: %s\n", state)
	}
	if v.Publication != nil {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, m := range v.Publication.Matches {
			fmt.Fprintf(tw, "%s\t%s - %s\t%s\n", m.MatchID, m.Home.NameDisplay, m.Away.NameDisplay, m.DateDisplay)
		}
		tw.Flush()
	}
}

func writeRound(w io.Writer, v *service.RoundView) {
	source := "federation"
	switch {
	case v.Stale:
		source = "stale cache"
	case v.FromCache:
		source = "cache"
	}
	fmt.Fprintf(w, "Jornada %d of %s (%s, fetched %s)\n", v.Schedule.Round, v.CompetitionName, source, v.FetchedAt.Format(timeLayout))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, f := range v.Schedule.Fixtures {
		score := ""
		if f.HomeScore != nil && f.AwayScore != nil {
			score = fmt.Sprintf("%d-%d", *f.HomeScore, *f.AwayScore)
		}
		fmt.Fprintf(tw, "%s\t%s - %s\t%s\t%s\n", f.KickoffAt.Format(timeLayout), f.Home.Name, f.Away.Name, f.Status, score)
	}
	tw.Flush()
}

func writeTallies(w io.Writer, r tallyResult) {
	if len(r.Tallies) == 0 {
		fmt.Fprintf(w, "No votes for jornada %d.\n", r.Round)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, t := range r.Tallies {
		fmt.Fprintf(tw, "%s\t%d\n", t.MatchID, t.Count)
	}
	tw.Flush()
}

func writeFocus(w io.Writer, f *domain.WeeklyFocus) {
	if f == nil {
		fmt.Fprintln(w, "No weekly focus.")
		return
	}
	m := f.WinningMatch
	fmt.Fprintf(w, "Jornada %d: %s - %s (%d votes)\n", f.Round, m.Home.NameDisplay, m.Away.NameDisplay, f.TotalVotes)
	fmt.Fprintf(w, "Status: %s\n", f.Status)
	if f.SuggestionsOpen {
		fmt.Fprintf(w, "Suggestions open until %s\n", f.SuggestionsCloseAt.Format(timeLayout))
	}
	if o := f.Officials; o != nil {
		fmt.Fprintf(w, "Principal: %s\nAuxiliar: %s\n", o.Principal, o.Auxiliary)
		if o.Venue != "" {
			fmt.Fprintf(w, "Venue: %s\n", o.Venue)
		}
	}
}

func writeRuns(w io.Writer, runs []domain.SyncRun) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No sync runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range runs {
		outcome := r.Reason
		if r.Error != "" {
			outcome = "error: " + r.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\tjornada %d\t%s\n", r.StartedAt.Format(timeLayout), r.ID, r.Trigger, r.Round, outcome)
	}
	tw.Flush()
}
