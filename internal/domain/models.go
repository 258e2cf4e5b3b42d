package domain

import "time"

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchLive      MatchStatus = "live"
	MatchFinished  MatchStatus = "finished"
	MatchPostponed MatchStatus = "postponed"
	MatchSuspended MatchStatus = "suspended"
)

type TeamRef struct {
	Name   string `json:"name"`
	FCBQID string `json:"fcbqId,omitempty"`
}

// Fixture is a single game as listed on the federation round page.
type Fixture struct {
	Round        int         `json:"round"`
	Home         TeamRef     `json:"home"`
	Away         TeamRef     `json:"away"`
	KickoffAt    time.Time   `json:"kickoffAt"`
	Status       MatchStatus `json:"status"`
	HomeScore    *int        `json:"homeScore,omitempty"`
	AwayScore    *int        `json:"awayScore,omitempty"`
	ReportURL    string      `json:"reportUrl,omitempty"`
	StreamingURL string      `json:"streamingUrl,omitempty"`
}

type Standing struct {
	Position      int    `json:"position"`
	TeamName      string `json:"teamName"`
	TeamID        string `json:"teamId,omitempty"`
	Played        int    `json:"played"`
	Won           int    `json:"won"`
	Lost          int    `json:"lost"`
	NotPlayed     int    `json:"notPlayed"`
	PointsFor     int    `json:"pointsFor"`
	PointsAgainst int    `json:"pointsAgainst"`
	Points        int    `json:"points"`
}

// ReportLink is an officiating report link found anywhere on a round page,
// with the team names printed next to it.
type ReportLink struct {
	URL   string   `json:"url"`
	Teams []string `json:"teams"`
}

type RoundSchedule struct {
	CompetitionID string       `json:"competitionId"`
	Round         int          `json:"round"`
	Fixtures      []Fixture    `json:"fixtures"`
	Standings     []Standing   `json:"standings"`
	ReportLinks   []ReportLink `json:"reportLinks"`
	FetchedAt     time.Time    `json:"fetchedAt"`
}

type VotingTeam struct {
	TeamID      string `json:"teamId,omitempty"`
	NameRaw     string `json:"teamNameRaw"`
	NameDisplay string `json:"teamNameDisplay"`
	LogoSlug    string `json:"logoSlug,omitempty"`
	ColorHex    string `json:"colorHex,omitempty"`
}

// VotingMatch is a fixture as published to voters.
type VotingMatch struct {
	MatchID     string      `json:"matchId"`
	Round       int         `json:"jornada"`
	Home        VotingTeam  `json:"home"`
	Away        VotingTeam  `json:"away"`
	KickoffAt   time.Time   `json:"dateTime"`
	DateDisplay string      `json:"dateDisplay"`
	Status      MatchStatus `json:"status"`
	HomeScore   *int        `json:"homeScore,omitempty"`
	AwayScore   *int        `json:"awayScore,omitempty"`
}

type MappingStats struct {
	Total    int `json:"total"`
	Found    int `json:"found"`
	NotFound int `json:"notFound"`
}

type RoundPublication struct {
	Round           int           `json:"jornada"`
	CompetitionID   string        `json:"competitionId"`
	CompetitionName string        `json:"competitionName"`
	Matches         []VotingMatch `json:"matches"`
	Standings       []Standing    `json:"standings,omitempty"`
	WeekendStart    time.Time     `json:"weekendStart"`
	WeekendEnd      time.Time     `json:"weekendEnd"`
	PublishedAt     time.Time     `json:"publishedAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
	Source          string        `json:"source"`
	Mapping         MappingStats  `json:"mappingStats"`
}

// Match returns the published match with the given id, or nil.
func (p *RoundPublication) Match(matchID string) *VotingMatch {
	for i := range p.Matches {
		if p.Matches[i].MatchID == matchID {
			return &p.Matches[i]
		}
	}
	return nil
}

type VotingPeriod struct {
	Round       int        `json:"jornada"`
	Open        bool       `json:"votingOpen"`
	OpenedAt    *time.Time `json:"openedAt,omitempty"`
	ClosedAt    *time.Time `json:"closedAt,omitempty"`
	CloseReason string     `json:"closedReason,omitempty"`
}

// Closed reports whether the period has ever been closed. A closed period is
// never reopened.
func (p *VotingPeriod) Closed() bool {
	return p.ClosedAt != nil
}

// ActiveRound is the singleton pointer to the round currently open for voting.
type ActiveRound struct {
	Round           int        `json:"activeJornada"`
	WeekendStart    time.Time  `json:"weekendStart"`
	WeekendEnd      time.Time  `json:"weekendEnd"`
	PublishedAt     time.Time  `json:"publishedAt"`
	MatchCount      int        `json:"matchCount"`
	RestWeek        bool       `json:"restWeek"`
	RestWeekMessage string     `json:"restWeekMessage,omitempty"`
	NextVotingDate  *time.Time `json:"nextVotingDate,omitempty"`
}

// Rollover is the set of writes applied atomically when a new round is
// published: close the round the pointer refers to (if another), open the new
// period, store the publication and move the pointer. Stores read the pointer
// inside the transaction and report the round they closed in Previous.
type Rollover struct {
	Publication RoundPublication
	Pointer     ActiveRound
	Previous    int
	CloseReason string
	At          time.Time
}

// RestWeek closes the round the pointer refers to and flags the pointer
// without moving it.
type RestWeek struct {
	CloseReason    string
	Message        string
	NextVotingDate time.Time
	At             time.Time
}

type Vote struct {
	Round     int       `json:"jornada"`
	UserID    string    `json:"userId"`
	MatchID   string    `json:"matchId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type VoteKey struct {
	Round   int    `json:"jornada"`
	MatchID string `json:"matchId"`
}

// VoteChange describes a vote write by the (round, match) it counted for
// before and after. A nil side means the vote did not exist.
type VoteChange struct {
	Before *VoteKey `json:"before,omitempty"`
	After  *VoteKey `json:"after,omitempty"`
}

// Noop reports whether the change leaves every tally unchanged.
func (c VoteChange) Noop() bool {
	if c.Before == nil && c.After == nil {
		return true
	}
	if c.Before == nil || c.After == nil {
		return false
	}
	return *c.Before == *c.After
}

type Tally struct {
	Round   int    `json:"jornada"`
	MatchID string `json:"matchId"`
	Count   int    `json:"count"`
}

type FocusStatus string

const (
	FocusMinutatge         FocusStatus = "minutatge"
	FocusEntrevistaPendent FocusStatus = "entrevista_pendent"
	FocusCompletat         FocusStatus = "completat"
)

type TableOfficial struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

// OfficialsInfo is the officiating crew and venue extracted from a game report.
type OfficialsInfo struct {
	ReportURL         string          `json:"actaUrl"`
	Principal         string          `json:"principal,omitempty"`
	Auxiliary         string          `json:"auxiliar,omitempty"`
	Scorer            string          `json:"anotador,omitempty"`
	Timekeeper        string          `json:"cronometrador,omitempty"`
	ShotClockOperator string          `json:"operadorRll,omitempty"`
	Caller            string          `json:"caller,omitempty"`
	TableOfficials    []TableOfficial `json:"tableOfficials,omitempty"`
	Venue             string          `json:"venue,omitempty"`
	VenueAddress      string          `json:"venueAddress,omitempty"`
	HomeTeam          string          `json:"homeTeam,omitempty"`
	AwayTeam          string          `json:"awayTeam,omitempty"`
	HomeScore         *int            `json:"homeScore,omitempty"`
	AwayScore         *int            `json:"awayScore,omitempty"`
	MatchDate         string          `json:"matchDate,omitempty"`
	Source            string          `json:"source"`
}

// Empty reports whether the report yielded neither officials nor a venue.
func (o *OfficialsInfo) Empty() bool {
	return o.Principal == "" && o.Auxiliary == "" && o.Scorer == "" &&
		o.Timekeeper == "" && len(o.TableOfficials) == 0 && o.Venue == ""
}

type WeeklyFocus struct {
	Round               int            `json:"jornada"`
	CompetitionName     string         `json:"competitionName,omitempty"`
	WinningMatch        VotingMatch    `json:"winningMatch"`
	TotalVotes          int            `json:"totalVotes"`
	Officials           *OfficialsInfo `json:"refereeInfo"`
	VotingClosedAt      time.Time      `json:"votingClosedAt"`
	SuggestionsOpen     bool           `json:"suggestionsOpen"`
	SuggestionsCloseAt  time.Time      `json:"suggestionsCloseAt"`
	SuggestionsClosedAt *time.Time     `json:"suggestionsClosedAt,omitempty"`
	Status              FocusStatus    `json:"status"`
}

type CachedRound struct {
	Schedule        RoundSchedule `json:"schedule"`
	CompetitionName string        `json:"competitionName"`
	FetchedAt       time.Time     `json:"fetchedAt"`
	ExpiresAt       time.Time     `json:"expiresAt"`
}

type SyncTrigger string

const (
	TriggerSchedule SyncTrigger = "schedule"
	TriggerManual   SyncTrigger = "manual"
	TriggerCLI      SyncTrigger = "cli"
)

type SyncRun struct {
	ID           string      `json:"id"`
	Trigger      SyncTrigger `json:"trigger"`
	StartedAt    time.Time   `json:"startedAt"`
	FinishedAt   time.Time   `json:"finishedAt"`
	TargetDate   *time.Time  `json:"targetDate,omitempty"`
	Published    bool        `json:"published"`
	Round        int         `json:"jornada,omitempty"`
	MatchCount   int         `json:"matchCount"`
	Reason       string      `json:"reason,omitempty"`
	Error        string      `json:"error,omitempty"`
	WeekendStart time.Time   `json:"weekendStart"`
	WeekendEnd   time.Time   `json:"weekendEnd"`
}
