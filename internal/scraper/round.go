package scraper

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/PuerkitoBio/goquery"
)

var (
	kickoffPattern = regexp.MustCompile(`(\d{2})-(\d{2})-(\d{4})\s+(\d{2}):(\d{2})`)
	scorePattern   = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)$`)
	teamIDPattern  = regexp.MustCompile(`/equip/(\d+)`)
	spaces         = regexp.MustCompile(`\s+`)
)

const (
	teamLinkSelector   = "a.teamNameLink"
	timeSelector       = "[id='time2']"
	reportSelector     = "a[href*='/acta/']"
	streamingSelector  = "a[href*='youtube'], a[href*='twitch'], a[href*='streaming']"
	containerMaxLevels = 5
)

// ParseRound extracts fixtures, standings and report links from a round
// results page. Kickoff times are read as local time in loc; a fixture whose
// date cell does not hold a date gets a zero KickoffAt.
func ParseRound(r io.Reader, round int, baseURL string, loc *time.Location) (*domain.RoundSchedule, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	links := parseReportLinks(doc, baseURL)
	return &domain.RoundSchedule{
		Round:       round,
		Fixtures:    parseFixtures(doc, round, baseURL, loc, links),
		Standings:   parseStandings(doc),
		ReportLinks: links,
	}, nil
}

func parseReportLinks(doc *goquery.Document, baseURL string) []domain.ReportLink {
	var links []domain.ReportLink
	doc.Find(reportSelector).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		var teams []string
		fixtureContainer(a, 1).Find(teamLinkSelector).Each(func(_ int, t *goquery.Selection) {
			if name := cleanText(t.Text()); name != "" {
				teams = append(teams, name)
			}
		})
		links = append(links, domain.ReportLink{URL: absoluteURL(baseURL, href), Teams: teams})
	})
	return links
}

func parseFixtures(doc *goquery.Document, round int, baseURL string, loc *time.Location, links []domain.ReportLink) []domain.Fixture {
	teamLinks := doc.Find(teamLinkSelector)
	allTimes := doc.Find(timeSelector)

	var fixtures []domain.Fixture
	for i := 0; i+1 < teamLinks.Length(); i += 2 {
		homeLink, awayLink := teamLinks.Eq(i), teamLinks.Eq(i+1)
		homeName, awayName := cleanText(homeLink.Text()), cleanText(awayLink.Text())
		if homeName == "" || awayName == "" {
			continue
		}

		container := fixtureContainer(homeLink, 2)
		timeText := cleanText(container.Find(timeSelector).First().Text())
		if timeText == "" && allTimes.Length() > i/2 {
			timeText = cleanText(allTimes.Eq(i / 2).Text())
		}

		f := domain.Fixture{
			Round:  round,
			Home:   teamRef(homeName, homeLink),
			Away:   teamRef(awayName, awayLink),
			Status: domain.MatchScheduled,
		}

		if m := scorePattern.FindStringSubmatch(timeText); m != nil {
			home, _ := strconv.Atoi(m[1])
			away, _ := strconv.Atoi(m[2])
			f.HomeScore, f.AwayScore = &home, &away
			f.Status = domain.MatchFinished
		}
		if kickoff, ok := parseKickoff(timeText, loc); ok {
			f.KickoffAt = kickoff
		}

		raw, _ := goquery.OuterHtml(container)
		switch {
		case strings.Contains(raw, "ico_ajo") || strings.Contains(raw, "Ajornat"):
			f.Status = domain.MatchPostponed
		case strings.Contains(raw, "Suspes") || strings.Contains(raw, "ico_suspes"):
			f.Status = domain.MatchSuspended
		}

		if href, ok := container.Find(streamingSelector).First().Attr("href"); ok {
			f.StreamingURL = href
		}
		if href, ok := container.Find(reportSelector).First().Attr("href"); ok && href != "" {
			f.ReportURL = absoluteURL(baseURL, href)
		} else {
			f.ReportURL = reportByTeams(links, homeName, awayName)
		}

		fixtures = append(fixtures, f)
	}
	return fixtures
}

// fixtureContainer climbs from sel to the element grouping one fixture: the
// closest .row or tr holding at least minTeams team links, else the nearest
// ancestor (up to a few levels) that does.
func fixtureContainer(sel *goquery.Selection, minTeams int) *goquery.Selection {
	for _, selector := range []string{".row", "tr"} {
		c := sel.Closest(selector)
		if c.Length() > 0 && c.Find(teamLinkSelector).Length() >= minTeams {
			return c
		}
	}
	c := sel.Parent()
	for i := 0; i < containerMaxLevels && c.Length() > 0 && c.Find(teamLinkSelector).Length() < minTeams; i++ {
		c = c.Parent()
	}
	return c
}

func reportByTeams(links []domain.ReportLink, home, away string) string {
	home, away = strings.ToUpper(home), strings.ToUpper(away)
	for _, l := range links {
		for _, t := range l.Teams {
			if u := strings.ToUpper(t); u == home || u == away {
				return l.URL
			}
		}
	}
	return ""
}

func parseStandings(doc *goquery.Document) []domain.Standing {
	container := doc.Find("div.container.m-bottom").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), "Classificació a la jornada")
	}).First()
	if container.Length() == 0 {
		return nil
	}

	var standings []domain.Standing
	container.Find("div[id='fila']").Each(func(i int, row *goquery.Selection) {
		teamLink := row.Find("a[href*='/equip/']").First()
		name := cleanText(teamLink.Text())
		if len(name) < 2 {
			return
		}

		position, err := strconv.Atoi(cleanText(row.Find("div.numRanking").First().Text()))
		if err != nil {
			position = i + 1
		}

		stats := make([]int, 0, 7)
		row.Find("div.textRanking").Each(func(_ int, s *goquery.Selection) {
			v, _ := strconv.Atoi(cleanText(s.Text()))
			stats = append(stats, v)
		})
		for len(stats) < 7 {
			stats = append(stats, 0)
		}

		href, _ := teamLink.Attr("href")
		standings = append(standings, domain.Standing{
			Position:      position,
			TeamName:      name,
			TeamID:        teamID(href),
			Played:        stats[0],
			Won:           stats[1],
			Lost:          stats[2],
			NotPlayed:     stats[3],
			PointsFor:     stats[4],
			PointsAgainst: stats[5],
			Points:        stats[6],
		})
	})
	return standings
}

func parseKickoff(s string, loc *time.Location) (time.Time, bool) {
	m := kickoffPattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc), true
}

func teamRef(name string, link *goquery.Selection) domain.TeamRef {
	href, _ := link.Attr("href")
	return domain.TeamRef{Name: name, FCBQID: teamID(href)}
}

func teamID(href string) string {
	if m := teamIDPattern.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	return ""
}

func absoluteURL(baseURL, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(href, "/")
}

func cleanText(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}
