package firestore

import (
	"time"

	"github.com/Annabf7/el-visionat/internal/domain"
)

type teamDoc struct {
	TeamID      string `firestore:"teamId"`
	NameRaw     string `firestore:"teamNameRaw"`
	NameDisplay string `firestore:"teamNameDisplay"`
	LogoSlug    string `firestore:"logoSlug"`
	ColorHex    string `firestore:"colorHex"`
}

type matchDoc struct {
	MatchID     string             `firestore:"matchId"`
	Round       int                `firestore:"jornada"`
	Home        teamDoc            `firestore:"home"`
	Away        teamDoc            `firestore:"away"`
	KickoffAt   time.Time          `firestore:"dateTime"`
	DateDisplay string             `firestore:"dateDisplay"`
	Status      domain.MatchStatus `firestore:"status"`
	HomeScore   *int               `firestore:"homeScore"`
	AwayScore   *int               `firestore:"awayScore"`
}

func newMatchDoc(m domain.VotingMatch) matchDoc {
	return matchDoc{
		MatchID:     m.MatchID,
		Round:       m.Round,
		Home:        teamDoc(m.Home),
		Away:        teamDoc(m.Away),
		KickoffAt:   m.KickoffAt,
		DateDisplay: m.DateDisplay,
		Status:      m.Status,
		HomeScore:   m.HomeScore,
		AwayScore:   m.AwayScore,
	}
}

func (d matchDoc) toDomain() domain.VotingMatch {
	return domain.VotingMatch{
		MatchID:     d.MatchID,
		Round:       d.Round,
		Home:        domain.VotingTeam(d.Home),
		Away:        domain.VotingTeam(d.Away),
		KickoffAt:   d.KickoffAt,
		DateDisplay: d.DateDisplay,
		Status:      d.Status,
		HomeScore:   d.HomeScore,
		AwayScore:   d.AwayScore,
	}
}

type standingDoc struct {
	Position      int    `firestore:"position"`
	TeamName      string `firestore:"teamName"`
	TeamID        string `firestore:"teamId"`
	Played        int    `firestore:"played"`
	Won           int    `firestore:"won"`
	Lost          int    `firestore:"lost"`
	NotPlayed     int    `firestore:"notPlayed"`
	PointsFor     int    `firestore:"pointsFor"`
	PointsAgainst int    `firestore:"pointsAgainst"`
	Points        int    `firestore:"points"`
}

type mappingDoc struct {
	Total    int `firestore:"total"`
	Found    int `firestore:"found"`
	NotFound int `firestore:"notFound"`
}

type publicationDoc struct {
	Round           int           `firestore:"jornada"`
	CompetitionID   string        `firestore:"competitionId"`
	CompetitionName string        `firestore:"competitionName"`
	Matches         []matchDoc    `firestore:"matches"`
	Standings       []standingDoc `firestore:"standings"`
	WeekendStart    time.Time     `firestore:"weekendStart"`
	WeekendEnd      time.Time     `firestore:"weekendEnd"`
	PublishedAt     time.Time     `firestore:"publishedAt"`
	UpdatedAt       time.Time     `firestore:"updatedAt"`
	Source          string        `firestore:"source"`
	Mapping         mappingDoc    `firestore:"mappingStats"`
}

func newPublicationDoc(p domain.RoundPublication) publicationDoc {
	doc := publicationDoc{
		Round:           p.Round,
		CompetitionID:   p.CompetitionID,
		CompetitionName: p.CompetitionName,
		Matches:         make([]matchDoc, 0, len(p.Matches)),
		Standings:       make([]standingDoc, 0, len(p.Standings)),
		WeekendStart:    p.WeekendStart,
		WeekendEnd:      p.WeekendEnd,
		PublishedAt:     p.PublishedAt,
		UpdatedAt:       p.UpdatedAt,
		Source:          p.Source,
		Mapping:         mappingDoc(p.Mapping),
	}
	for _, m := range p.Matches {
		doc.Matches = append(doc.Matches, newMatchDoc(m))
	}
	for _, s := range p.Standings {
		doc.Standings = append(doc.Standings, standingDoc(s))
	}
	return doc
}

func (d publicationDoc) toDomain() *domain.RoundPublication {
	pub := &domain.RoundPublication{
		Round:           d.Round,
		CompetitionID:   d.CompetitionID,
		CompetitionName: d.CompetitionName,
		Matches:         make([]domain.VotingMatch, 0, len(d.Matches)),
		WeekendStart:    d.WeekendStart,
		WeekendEnd:      d.WeekendEnd,
		PublishedAt:     d.PublishedAt,
		UpdatedAt:       d.UpdatedAt,
		Source:          d.Source,
		Mapping:         domain.MappingStats(d.Mapping),
	}
	for _, m := range d.Matches {
		pub.Matches = append(pub.Matches, m.toDomain())
	}
	for _, s := range d.Standings {
		pub.Standings = append(pub.Standings, domain.Standing(s))
	}
	return pub
}

type tableOfficialDoc struct {
	Role string `firestore:"role"`
	Name string `firestore:"name"`
}

type officialsDoc struct {
	ReportURL         string             `firestore:"actaUrl"`
	Principal         string             `firestore:"principal"`
	Auxiliary         string             `firestore:"auxiliar"`
	Scorer            string             `firestore:"anotador"`
	Timekeeper        string             `firestore:"cronometrador"`
	ShotClockOperator string             `firestore:"operadorRll"`
	Caller            string             `firestore:"caller"`
	TableOfficials    []tableOfficialDoc `firestore:"tableOfficials"`
	Venue             string             `firestore:"venue"`
	VenueAddress      string             `firestore:"venueAddress"`
	HomeTeam          string             `firestore:"homeTeam"`
	AwayTeam          string             `firestore:"awayTeam"`
	HomeScore         *int               `firestore:"homeScore"`
	AwayScore         *int               `firestore:"awayScore"`
	MatchDate         string             `firestore:"matchDate"`
	Source            string             `firestore:"source"`
}

type focusDoc struct {
	Round               int                `firestore:"jornada"`
	CompetitionName     string             `firestore:"competitionName"`
	WinningMatch        matchDoc           `firestore:"winningMatch"`
	TotalVotes          int                `firestore:"totalVotes"`
	Officials           *officialsDoc      `firestore:"refereeInfo"`
	VotingClosedAt      time.Time          `firestore:"votingClosedAt"`
	SuggestionsOpen     bool               `firestore:"suggestionsOpen"`
	SuggestionsCloseAt  time.Time          `firestore:"suggestionsCloseAt"`
	SuggestionsClosedAt *time.Time         `firestore:"suggestionsClosedAt"`
	Status              domain.FocusStatus `firestore:"status"`
}

func newFocusDoc(f domain.WeeklyFocus) focusDoc {
	doc := focusDoc{
		Round:               f.Round,
		CompetitionName:     f.CompetitionName,
		WinningMatch:        newMatchDoc(f.WinningMatch),
		TotalVotes:          f.TotalVotes,
		VotingClosedAt:      f.VotingClosedAt,
		SuggestionsOpen:     f.SuggestionsOpen,
		SuggestionsCloseAt:  f.SuggestionsCloseAt,
		SuggestionsClosedAt: f.SuggestionsClosedAt,
		Status:              f.Status,
	}
	if o := f.Officials; o != nil {
		doc.Officials = &officialsDoc{
			ReportURL:         o.ReportURL,
			Principal:         o.Principal,
			Auxiliary:         o.Auxiliary,
			Scorer:            o.Scorer,
			Timekeeper:        o.Timekeeper,
			ShotClockOperator: o.ShotClockOperator,
			Caller:            o.Caller,
			Venue:             o.Venue,
			VenueAddress:      o.VenueAddress,
			HomeTeam:          o.HomeTeam,
			AwayTeam:          o.AwayTeam,
			HomeScore:         o.HomeScore,
			AwayScore:         o.AwayScore,
			MatchDate:         o.MatchDate,
			Source:            o.Source,
		}
		for _, t := range o.TableOfficials {
			doc.Officials.TableOfficials = append(doc.Officials.TableOfficials, tableOfficialDoc(t))
		}
	}
	return doc
}

func (d focusDoc) toDomain() *domain.WeeklyFocus {
	focus := &domain.WeeklyFocus{
		Round:               d.Round,
		CompetitionName:     d.CompetitionName,
		WinningMatch:        d.WinningMatch.toDomain(),
		TotalVotes:          d.TotalVotes,
		VotingClosedAt:      d.VotingClosedAt,
		SuggestionsOpen:     d.SuggestionsOpen,
		SuggestionsCloseAt:  d.SuggestionsCloseAt,
		SuggestionsClosedAt: d.SuggestionsClosedAt,
		Status:              d.Status,
	}
	if o := d.Officials; o != nil {
		focus.Officials = &domain.OfficialsInfo{
			ReportURL:         o.ReportURL,
			Principal:         o.Principal,
			Auxiliary:         o.Auxiliary,
			Scorer:            o.Scorer,
			Timekeeper:        o.Timekeeper,
			ShotClockOperator: o.ShotClockOperator,
			Caller:            o.Caller,
			Venue:             o.Venue,
			VenueAddress:      o.VenueAddress,
			HomeTeam:          o.HomeTeam,
			AwayTeam:          o.AwayTeam,
			HomeScore:         o.HomeScore,
			AwayScore:         o.AwayScore,
			MatchDate:         o.MatchDate,
			Source:            o.Source,
		}
		for _, t := range o.TableOfficials {
			focus.Officials.TableOfficials = append(focus.Officials.TableOfficials, domain.TableOfficial(t))
		}
	}
	return focus
}
