package syncdomain

import (
	"math"
	"strings"
)

// Breakdown counts the units of work per tier.
type Breakdown struct {
	Events     int `json:"events"`
	SubEvents  int `json:"subEvents"`
	Draws      int `json:"draws"`
	Encounters int `json:"encounters"`
	Games      int `json:"games"`
	Standings  int `json:"standings"`
	Entries    int `json:"entries"`
}

// Sum returns the total number of units in the breakdown.
func (b Breakdown) Sum() int {
	return b.Events + b.SubEvents + b.Draws + b.Encounters + b.Games + b.Standings + b.Entries
}

// PerEventWorkPlan is the estimate for a single event of the subject.
type PerEventWorkPlan struct {
	EventCode             string `json:"eventCode"`
	EventName             string `json:"eventName"`
	DrawCount             int    `json:"drawCount"`
	EstimatedUnitsPerDraw int    `json:"estimatedUnitsPerDraw"`
	TotalUnits            int    `json:"totalUnits"`
}

// WorkPlan is computed once per root sync and shared by every job of the flow
// so progress percentages use the same denominator.
type WorkPlan struct {
	SubjectCode   string             `json:"subjectCode"`
	TotalUnits    int                `json:"totalUnits"`
	Breakdown     Breakdown          `json:"breakdown"`
	PerEventPlans []PerEventWorkPlan `json:"perEventPlans,omitempty"`
}

// NewWorkPlan builds a plan whose total always equals the breakdown sum.
func NewWorkPlan(subjectCode string, breakdown Breakdown, perEvent []PerEventWorkPlan) WorkPlan {
	return WorkPlan{
		SubjectCode:   subjectCode,
		TotalUnits:    breakdown.Sum(),
		Breakdown:     breakdown,
		PerEventPlans: perEvent,
	}
}

// FallbackWorkPlan is used when the estimate cannot be computed.
func FallbackWorkPlan(subjectCode string) WorkPlan {
	return NewWorkPlan(subjectCode, Breakdown{Events: 1}, nil)
}

type drawClass int

const (
	drawClassUnknown drawClass = iota
	drawClassKnockout
	drawClassQualification
	drawClassRoundRobin
)

func classifyDraw(drawType string) drawClass {
	t := strings.ToLower(strings.TrimSpace(drawType))
	t = strings.NewReplacer("_", "-", " ", "-").Replace(t)
	switch t {
	case "knockout", "ko", "elimination", "single-elimination", "playoff", "play-off", "playoffs":
		return drawClassKnockout
	case "qualification", "qualifying", "qual", "qualifier":
		return drawClassQualification
	case "round-robin", "roundrobin", "poule", "pool", "group", "rr":
		return drawClassRoundRobin
	}
	return drawClassUnknown
}

// EstimateGamesInDraw estimates how many games a draw of the given size and type
// produces. Unknown types use the conservative qualification estimate.
func EstimateGamesInDraw(size int, drawType string) int {
	switch classifyDraw(drawType) {
	case drawClassKnockout:
		return max(1, size-1)
	case drawClassRoundRobin:
		if size > 1 {
			return size * (size - 1) / 2
		}
		return 0
	default:
		return max(1, ceilHalf(size))
	}
}

func ceilHalf(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + 1) / 2
}

// CalculateProgress converts completed units into a percentage in [0,100].
func CalculateProgress(completed, total int) int {
	if total <= 0 {
		return 100
	}
	if completed <= 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(completed) / float64(total)))
	return min(100, pct)
}

// ProgressTracker reports progress for one execution span and never goes back.
type ProgressTracker struct {
	total    int
	reported int
}

// NewProgressTracker returns a tracker for the given denominator.
func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{total: total}
}

// Update returns the percentage to report for completed units. The value never
// drops below one returned earlier by the same tracker.
func (t *ProgressTracker) Update(completed int) int {
	pct := CalculateProgress(completed, t.total)
	if pct > t.reported {
		t.reported = pct
	}
	return t.reported
}

// Percent sets progress directly, with the same monotonic guarantee.
func (t *ProgressTracker) Percent(pct int) int {
	pct = max(0, min(100, pct))
	if pct > t.reported {
		t.reported = pct
	}
	return t.reported
}

// Reported returns the last reported percentage.
func (t *ProgressTracker) Reported() int {
	return t.reported
}
