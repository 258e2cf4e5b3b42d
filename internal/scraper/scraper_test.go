package scraper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Annabf7/el-visionat/internal/api"
	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/Annabf7/el-visionat/internal/testutil"
	"github.com/rs/zerolog"
)

const testBaseURL = "https://www.basquetcatala.cat"

func openFixture(t *testing.T, name string) *os.File {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to open fixture %s: %v", name, err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return b
}

func TestParseRoundFixtures(t *testing.T) {
	loc := testutil.Madrid(t)
	schedule, err := ParseRound(openFixture(t, "round.html"), 7, testBaseURL, loc)
	if err != nil {
		t.Fatalf("ParseRound() error = %v", err)
	}

	if len(schedule.Fixtures) != 3 {
		t.Fatalf("fixtures = %d, want 3", len(schedule.Fixtures))
	}

	first := schedule.Fixtures[0]
	if first.Home.Name != "CB TÀRREGA" || first.Away.Name != "UE MATARÓ" {
		t.Errorf("first fixture = %s vs %s", first.Home.Name, first.Away.Name)
	}
	if first.Home.FCBQID != "1001" || first.Away.FCBQID != "1002" {
		t.Errorf("team ids = %q, %q", first.Home.FCBQID, first.Away.FCBQID)
	}
	wantKickoff := time.Date(2026, time.January, 10, 16, 30, 0, 0, time.UTC)
	if !first.KickoffAt.Equal(wantKickoff) {
		t.Errorf("kickoff = %v, want %v", first.KickoffAt.UTC(), wantKickoff)
	}
	if first.Status != domain.MatchScheduled {
		t.Errorf("status = %q", first.Status)
	}
	if first.StreamingURL != "https://www.youtube.com/watch?v=abc" {
		t.Errorf("streaming = %q", first.StreamingURL)
	}
	if first.ReportURL != "" {
		t.Errorf("report = %q, want none", first.ReportURL)
	}

	finished := schedule.Fixtures[1]
	if finished.Status != domain.MatchFinished {
		t.Errorf("status = %q, want finished", finished.Status)
	}
	if finished.HomeScore == nil || *finished.HomeScore != 85 || finished.AwayScore == nil || *finished.AwayScore != 72 {
		t.Errorf("score = %v - %v", finished.HomeScore, finished.AwayScore)
	}
	if finished.ReportURL != testBaseURL+"/acta/555" {
		t.Errorf("report = %q", finished.ReportURL)
	}

	if schedule.Fixtures[2].Status != domain.MatchPostponed {
		t.Errorf("status = %q, want postponed", schedule.Fixtures[2].Status)
	}
}

func TestParseRoundReportLinks(t *testing.T) {
	schedule, err := ParseRound(openFixture(t, "round.html"), 7, testBaseURL, time.UTC)
	if err != nil {
		t.Fatalf("ParseRound() error = %v", err)
	}
	if len(schedule.ReportLinks) != 1 {
		t.Fatalf("report links = %d, want 1", len(schedule.ReportLinks))
	}
	link := schedule.ReportLinks[0]
	if link.URL != testBaseURL+"/acta/555" {
		t.Errorf("url = %q", link.URL)
	}
	if len(link.Teams) != 2 || link.Teams[0] != "CB GRANOLLERS" || link.Teams[1] != "CB IGUALADA" {
		t.Errorf("teams = %v", link.Teams)
	}
}

func TestParseRoundStandings(t *testing.T) {
	schedule, err := ParseRound(openFixture(t, "round.html"), 7, testBaseURL, time.UTC)
	if err != nil {
		t.Fatalf("ParseRound() error = %v", err)
	}
	if len(schedule.Standings) != 2 {
		t.Fatalf("standings = %d, want 2", len(schedule.Standings))
	}
	leader := schedule.Standings[0]
	if leader.Position != 1 || leader.TeamName != "CB GRANOLLERS" || leader.TeamID != "1003" {
		t.Errorf("leader = %+v", leader)
	}
	if leader.Played != 7 || leader.Won != 6 || leader.Points != 13 || leader.PointsFor != 560 {
		t.Errorf("leader stats = %+v", leader)
	}
	if second := schedule.Standings[1]; second.Position != 2 || second.Lost != 2 || second.Points != 0 {
		t.Errorf("second = %+v", second)
	}
}

func TestParseRoundEmptyPage(t *testing.T) {
	schedule, err := ParseRound(openFixture(t, "acta_text.html"), 3, testBaseURL, time.UTC)
	if err != nil {
		t.Fatalf("ParseRound() error = %v", err)
	}
	if len(schedule.Fixtures) != 0 || len(schedule.Standings) != 0 {
		t.Errorf("schedule = %+v, want empty", schedule)
	}
}

func TestParseReportTable(t *testing.T) {
	info, err := ParseReport(openFixture(t, "acta.html"), testBaseURL+"/acta/555")
	if err != nil {
		t.Fatalf("ParseReport() error = %v", err)
	}

	if info.Principal != "JOAN PUIG GARCIA" || info.Auxiliary != "MARTA SOLER RIUS" {
		t.Errorf("referees = %q, %q", info.Principal, info.Auxiliary)
	}
	if info.Scorer != "PERE VIDAL" || info.Timekeeper != "ANNA FONT" {
		t.Errorf("table = %q, %q", info.Scorer, info.Timekeeper)
	}
	if info.ShotClockOperator != "" {
		t.Errorf("shot clock operator = %q, want empty", info.ShotClockOperator)
	}
	if len(info.TableOfficials) != 2 {
		t.Errorf("table officials = %+v", info.TableOfficials)
	}
	if info.HomeTeam != "CB GRANOLLERS" || info.AwayTeam != "CB IGUALADA" {
		t.Errorf("teams = %q vs %q", info.HomeTeam, info.AwayTeam)
	}
	if info.HomeScore == nil || *info.HomeScore != 85 || *info.AwayScore != 72 {
		t.Errorf("score = %v - %v", info.HomeScore, info.AwayScore)
	}
	if info.MatchDate != "10-01-2026" {
		t.Errorf("date = %q", info.MatchDate)
	}
	if info.Venue != "PAVELLÓ MUNICIPAL DE GRANOLLERS - Granollers (08401)" {
		t.Errorf("venue = %q", info.Venue)
	}
	if info.VenueAddress != "CARRER DEL PAVELLÓ, 1, Granollers (08401)" {
		t.Errorf("address = %q", info.VenueAddress)
	}
	if info.Source != "fcbq-acta" || info.ReportURL != testBaseURL+"/acta/555" {
		t.Errorf("source = %q, url = %q", info.Source, info.ReportURL)
	}
}

func TestParseReportText(t *testing.T) {
	info, err := ParseReport(openFixture(t, "acta_text.html"), "u")
	if err != nil {
		t.Fatalf("ParseReport() error = %v", err)
	}
	if info.Principal != "LAIA MIRÓ" {
		t.Errorf("principal = %q", info.Principal)
	}
	if info.Auxiliary != "JORDI COSTA" {
		t.Errorf("auxiliar = %q", info.Auxiliary)
	}
	if info.Caller != "NÚRIA PONS" {
		t.Errorf("caller = %q", info.Caller)
	}
	if info.Venue != "" || info.HomeScore != nil {
		t.Errorf("unexpected venue/score: %+v", info)
	}
}

type fakePages struct {
	pages map[string][]byte
	err   error
}

func (f *fakePages) BaseURL() string { return testBaseURL }

func (f *fakePages) GetRoundPage(ctx context.Context, competitionID string, round int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pages["round"], nil
}

func (f *fakePages) GetPage(ctx context.Context, url string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.pages[url]
	if !ok {
		return nil, api.ErrPageNotFound
	}
	return body, nil
}

func TestSourceFetchRound(t *testing.T) {
	pages := &fakePages{pages: map[string][]byte{"round": readFixture(t, "round.html")}}
	source := NewSourceWithFetcher(pages, time.UTC, 30, zerolog.Nop())

	schedule, err := source.FetchRound(context.Background(), "19795", 7)
	if err != nil {
		t.Fatalf("FetchRound() error = %v", err)
	}
	if schedule.CompetitionID != "19795" || schedule.Round != 7 || len(schedule.Fixtures) != 3 {
		t.Errorf("schedule = %+v", schedule)
	}
	if schedule.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}

	for _, round := range []int{0, 31} {
		if _, err := source.FetchRound(context.Background(), "19795", round); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("FetchRound(%d) error = %v, want invalid argument", round, err)
		}
	}

	pages.err = &api.StatusError{URL: "x", Code: 503}
	if _, err := source.FetchRound(context.Background(), "19795", 7); !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("error = %v, want unavailable", err)
	}
}

func TestSourceFetchReport(t *testing.T) {
	pages := &fakePages{pages: map[string][]byte{
		"/acta/555": readFixture(t, "acta.html"),
		"/acta/1":   []byte("<html><body><p>Sense dades</p></body></html>"),
	}}
	source := NewSourceWithFetcher(pages, time.UTC, 30, zerolog.Nop())

	info, err := source.FetchReport(context.Background(), "/acta/555")
	if err != nil {
		t.Fatalf("FetchReport() error = %v", err)
	}
	if info.Principal != "JOAN PUIG GARCIA" {
		t.Errorf("principal = %q", info.Principal)
	}

	if _, err := source.FetchReport(context.Background(), "/acta/missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing report error = %v, want not found", err)
	}
	if _, err := source.FetchReport(context.Background(), "/acta/1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("empty report error = %v, want not found", err)
	}

	pages.err = errors.New("connection reset")
	if _, err := source.FetchReport(context.Background(), "/acta/555"); !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("error = %v, want unavailable", err)
	}
}
