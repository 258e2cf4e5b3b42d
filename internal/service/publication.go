package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/Annabf7/el-visionat/internal/constants"
	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/Annabf7/el-visionat/internal/teams"
)

// BuildPublication projects resolved fixtures onto voting matches, resolving
// every team through the directory.
func BuildPublication(res *Resolution, competitionName string, dir *teams.Directory, loc *time.Location, now time.Time) domain.RoundPublication {
	pub := domain.RoundPublication{
		Round:           res.Round,
		CompetitionID:   res.CompetitionID,
		CompetitionName: competitionName,
		Matches:         make([]domain.VotingMatch, 0, len(res.Fixtures)),
		Standings:       res.Standings,
		WeekendStart:    res.Weekend.Start,
		WeekendEnd:      res.Weekend.End,
		PublishedAt:     now,
		UpdatedAt:       now,
		Source:          constants.PublicationSrc,
	}

	for _, f := range res.Fixtures {
		home, away := dir.Lookup(f.Home.Name), dir.Lookup(f.Away.Name)
		for _, m := range []teams.Mapping{home, away} {
			pub.Mapping.Total++
			if m.Found {
				pub.Mapping.Found++
			} else {
				pub.Mapping.NotFound++
			}
		}

		pub.Matches = append(pub.Matches, domain.VotingMatch{
			MatchID:     MatchID(res.Round, home, away),
			Round:       res.Round,
			Home:        votingTeam(home),
			Away:        votingTeam(away),
			KickoffAt:   f.KickoffAt,
			DateDisplay: domain.FormatCatalanDate(f.KickoffAt, loc),
			Status:      f.Status,
			HomeScore:   f.HomeScore,
			AwayScore:   f.AwayScore,
		})
	}
	return pub
}

// MatchID is "<round>-<homeSlug>-<awaySlug>".
func MatchID(round int, home, away teams.Mapping) string {
	return fmt.Sprintf("%d-%s-%s", round, matchSlug(home), matchSlug(away))
}

func matchSlug(m teams.Mapping) string {
	if m.LogoSlug != "" {
		if i := strings.LastIndex(m.LogoSlug, "."); i > 0 {
			return m.LogoSlug[:i]
		}
		return m.LogoSlug
	}
	return strings.ToLower(teams.Normalize(m.NameRaw))
}

func votingTeam(m teams.Mapping) domain.VotingTeam {
	return domain.VotingTeam{
		TeamID:      m.TeamID,
		NameRaw:     m.NameRaw,
		NameDisplay: m.NameDisplay,
		LogoSlug:    m.LogoSlug,
		ColorHex:    m.ColorHex,
	}
}
