package synctime

import (
	"errors"
	"fmt"
	"strings"
	"time"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

const isoDate = "2006-01-02"

// ErrEmptyDate is returned when there is nothing to parse.
var ErrEmptyDate = errors.New("date is empty")

// DateParserInterface resolves admin date input to a calendar day.
type DateParserInterface interface {
	ParseDate(input string, clock syncdomain.Clock) (time.Time, error)
}

// DateParser accepts ISO dates ("2026-10-11") and casual English such as
// "yesterday", "last friday" or "3 days ago".
type DateParser struct {
	parser *when.Parser
	loc    *time.Location
}

// NewDateParser builds a parser that interprets relative input in loc. A nil
// location means UTC.
func NewDateParser(loc *time.Location) *DateParser {
	if loc == nil {
		loc = time.UTC
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &DateParser{parser: w, loc: loc}
}

// ParseDate returns midnight UTC of the day the input refers to.
func (p *DateParser) ParseDate(input string, clock syncdomain.Clock) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, ErrEmptyDate
	}

	if t, err := time.ParseInLocation(isoDate, input, p.loc); err == nil {
		return truncateDay(t), nil
	}

	r, err := p.parser.Parse(strings.ToLower(input), clock.Now().In(p.loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse date %q: %w", input, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not recognize date %q", input)
	}
	return truncateDay(r.Time.In(p.loc)), nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var _ DateParserInterface = (*DateParser)(nil)
