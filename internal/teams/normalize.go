package teams

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds a team name to its comparison key: upper case, diacritics
// removed, everything except A-Z and 0-9 dropped. It is idempotent and is the
// only normalization used for both directory lookups and fixture signatures.
func Normalize(name string) string {
	folded, _, err := transform.String(foldChain(), strings.ToUpper(name))
	if err != nil {
		folded = strings.ToUpper(name)
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Signature identifies a fixture across rounds: both team identities and the
// exact kickoff instant.
func Signature(home, away string, kickoff time.Time) string {
	return Normalize(home) + "|" + Normalize(away) + "|" + kickoff.UTC().Format(time.RFC3339)
}

// Slug renders a name as a lowercase, hyphen separated asset slug.
func Slug(name string) string {
	folded, _, err := transform.String(foldChain(), strings.ToLower(name))
	if err != nil {
		folded = strings.ToLower(name)
	}
	var b strings.Builder
	for _, r := range folded {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), "-")
}

// a transform.Transformer carries state, so each call gets its own chain
func foldChain() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
