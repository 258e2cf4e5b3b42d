package scraper

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/Annabf7/el-visionat/internal/constants"
	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/PuerkitoBio/goquery"
)

var (
	headerPattern  = regexp.MustCompile(`^(.+?)\s+(\d+)\s*-\s*(\d+)\s+(.+)$`)
	datePattern    = regexp.MustCompile(`\d{2}-\d{2}-\d{4}`)
	venuePattern   = regexp.MustCompile(`(?i)Instal[·.]lació[:\s]*([^\n]+)\s*([^\n]*\(\d{5}\))?`)
	cityPostal     = regexp.MustCompile(`(\S+)\s*\((\d{5})\)\s*$`)
	scriptMarkers  = []string{"function", "var ", "const ", "document", "$(", "window"}
	officialLabels = []officialLabel{
		{label: "Àrbitre/a Principal", cell: []string{"Àrbitre", "Principal"}},
		{label: "Àrbitre/a Auxiliar", cell: []string{"Àrbitre", "Auxiliar"}},
		{label: "Anotador/a", cell: []string{"Anotador"}},
		{label: "Cronometrador/a", cell: []string{"Cronometrador"}},
		{label: "Operador/a RLL", cell: []string{"Operador", "RLL"}},
		{label: "Caller 1", cell: []string{"Caller", "1"}},
	}
	sectionEnd = []string{"Caller 2", "Colors SAMARRETA", "Instal·lació", "function ", "document.", "Rambla Guipúscoa"}
)

type officialLabel struct {
	label string
	cell  []string
}

// ParseReport extracts the officiating crew and venue from a game report page.
func ParseReport(r io.Reader, reportURL string) (*domain.OfficialsInfo, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	info := &domain.OfficialsInfo{ReportURL: reportURL, Source: constants.ReportSource}
	pageText := doc.Find("body").Text()

	header := cleanText(doc.Find("h1, h2, .title, .match-header").First().Text())
	if m := headerPattern.FindStringSubmatch(header); m != nil {
		home, _ := strconv.Atoi(m[2])
		away, _ := strconv.Atoi(m[3])
		info.HomeTeam = strings.TrimSpace(m[1])
		info.AwayTeam = strings.TrimSpace(m[4])
		info.HomeScore, info.AwayScore = &home, &away
	}
	info.MatchDate = datePattern.FindString(pageText)

	names := officialsFromCells(doc)
	for i, l := range officialLabels {
		if names[i] == "" {
			names[i] = officialFromText(pageText, l.label)
		}
	}
	info.Principal, info.Auxiliary = names[0], names[1]
	info.Scorer, info.Timekeeper = names[2], names[3]
	info.ShotClockOperator, info.Caller = names[4], names[5]

	for _, o := range []domain.TableOfficial{
		{Role: "Anotador", Name: info.Scorer},
		{Role: "Cronometrador", Name: info.Timekeeper},
		{Role: "Operador RLL", Name: info.ShotClockOperator},
		{Role: "Caller", Name: info.Caller},
	} {
		if o.Name != "" {
			info.TableOfficials = append(info.TableOfficials, o)
		}
	}

	info.Venue, info.VenueAddress = parseVenue(pageText)
	return info, nil
}

// officialsFromCells reads "label | name" table rows, indexed like officialLabels.
func officialsFromCells(doc *goquery.Document) []string {
	names := make([]string, len(officialLabels))
	doc.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		text := cell.Text()
		next := cleanText(cell.NextFiltered("td, th").Text())
		if next == "" {
			return
		}
		for i, l := range officialLabels {
			if containsAll(text, l.cell) {
				names[i] = next
				return
			}
		}
	})
	return names
}

// officialFromText takes the text after label up to the next known label.
func officialFromText(text, label string) string {
	idx := strings.Index(text, label)
	if idx < 0 {
		return ""
	}
	rest := strings.TrimLeft(text[idx+len(label):], ": \t\r\n")

	end := len(rest)
	for _, l := range officialLabels {
		if l.label == label {
			continue
		}
		if i := strings.Index(rest, l.label); i >= 0 && i < end {
			end = i
		}
	}
	for _, stop := range sectionEnd {
		if i := strings.Index(rest, stop); i >= 0 && i < end {
			end = i
		}
	}

	name := cleanText(rest[:end])
	for _, marker := range scriptMarkers {
		if i := strings.Index(name, marker); i >= 0 {
			name = strings.TrimSpace(name[:i])
		}
	}
	return name
}

func parseVenue(text string) (venue, address string) {
	m := venuePattern.FindStringSubmatch(text)
	if m == nil {
		return "", ""
	}
	name := cleanText(m[1])
	address = cleanText(m[2])
	if name == "" {
		return "", ""
	}
	if pc := cityPostal.FindStringSubmatch(address); pc != nil {
		return fmt.Sprintf("%s - %s (%s)", name, strings.TrimRight(pc[1], ","), pc[2]), address
	}
	return name, address
}

func containsAll(s string, parts []string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
