package teammatchdomain

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
)

// Team names follow "<Club> <Number><Gender> (<Strength>)", e.g. "Smash Club 2H (41)".
// The gender letter is sometimes left out.
var (
	teamNamePattern = regexp.MustCompile(`^\s*(.+?)\s+(\d{1,2})\s*([A-Za-z])?\s*(?:\(\s*(\d+)\s*\))?\s*$`)
	strengthPattern = regexp.MustCompile(`\(\s*(\d+)\s*\)\s*$`)
)

// ParsedName holds whatever could be extracted from a team name. Fields that do
// not follow the convention are nil or empty.
type ParsedName struct {
	Club     string
	Number   *int
	Gender   *syncdomain.GenderType
	Strength *int
}

// ParseTeamName extracts the conventional parts of a team name.
func ParseTeamName(name string) ParsedName {
	m := teamNamePattern.FindStringSubmatch(name)
	if m == nil {
		return ParsedName{Strength: ParseStrength(name)}
	}
	p := ParsedName{Club: strings.TrimSpace(m[1])}
	if n, err := strconv.Atoi(m[2]); err == nil {
		p.Number = &n
	}
	p.Gender = parseGenderLetter(m[3])
	if m[4] != "" {
		if s, err := strconv.Atoi(m[4]); err == nil {
			p.Strength = &s
		}
	}
	return p
}

// ParseStrength returns the trailing "(NN)" strength of a name.
func ParseStrength(name string) *int {
	m := strengthPattern.FindStringSubmatch(name)
	if m == nil {
		return nil
	}
	s, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &s
}

func parseGenderLetter(letter string) *syncdomain.GenderType {
	var g syncdomain.GenderType
	switch strings.ToUpper(letter) {
	case "H", "M":
		g = syncdomain.GenderMen
	case "D", "V", "F", "W":
		g = syncdomain.GenderWomen
	case "G", "X":
		g = syncdomain.GenderMixed
	default:
		return nil
	}
	return &g
}

// NormalizeName lower-cases a name, drops the strength suffix and punctuation
// and collapses whitespace.
func NormalizeName(name string) string {
	name = strengthPattern.ReplaceAllString(name, "")
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}
