package teammatchdomain

import (
	"math"
	"sort"
)

const (
	WeightClub     = 0.40
	WeightName     = 0.30
	WeightNumber   = 0.15
	WeightGender   = 0.10
	WeightStrength = 0.05

	HighConfidenceThreshold   = 0.90
	MediumConfidenceThreshold = 0.70
	// MinCandidateScore is exclusive: candidates at or below it are dropped.
	MinCandidateScore = 0.3
	MaxSuggestions    = 5
)

// Score compares an external team with an internal one. Optional fields only
// count, in both the numerator and the denominator, when both sides have them.
func Score(ext ExternalTeamCandidate, team Team) float64 {
	total := WeightClub*Similarity(NormalizeName(ext.ClubName), NormalizeName(team.ClubName)) +
		WeightName*Similarity(ext.NormalizedName, NormalizeName(team.Name))
	weights := WeightClub + WeightName

	if ext.TeamNumber != nil && team.TeamNumber != nil {
		weights += WeightNumber
		if *ext.TeamNumber == *team.TeamNumber {
			total += WeightNumber
		}
	}
	if ext.Gender != nil && team.Gender != nil {
		weights += WeightGender
		if *ext.Gender == *team.Gender {
			total += WeightGender
		}
	}
	if ext.Strength != nil && team.Strength != nil {
		weights += WeightStrength
		delta := math.Abs(float64(*ext.Strength - *team.Strength))
		total += WeightStrength * math.Max(0, 1-delta/100)
	}
	return total / weights
}

// RankCandidates scores teams, drops duplicates and weak candidates and sorts the
// rest best first. Ties are broken by name for a stable order.
func RankCandidates(ext ExternalTeamCandidate, teams []Team) []TeamMatchCandidate {
	seen := make(map[string]bool, len(teams))
	out := make([]TeamMatchCandidate, 0, len(teams))
	for _, t := range teams {
		key := t.ID.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		score := Score(ext, t)
		if score <= MinCandidateScore {
			continue
		}
		out = append(out, TeamMatchCandidate{
			InternalTeamID: t.ID,
			Name:           t.Name,
			ClubName:       t.ClubName,
			TeamNumber:     t.TeamNumber,
			Gender:         t.Gender,
			Score:          score,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Decide picks the outcome for ranked candidates.
func Decide(ext ExternalTeamCandidate, ranked []TeamMatchCandidate) MatchResult {
	res := MatchResult{External: ext, Outcome: OutcomeManualReview, Suggestions: []TeamMatchCandidate{}}
	if len(ranked) == 0 {
		return res
	}
	best := ranked[0]
	switch {
	case best.Score >= HighConfidenceThreshold:
		res.Outcome = OutcomeAutoMatchedHigh
		res.Match = &best
	case best.Score >= MediumConfidenceThreshold:
		res.Outcome = OutcomeAutoMatchedMedium
		res.Match = &best
	default:
		res.Suggestions = append(res.Suggestions, ranked[:min(MaxSuggestions, len(ranked))]...)
	}
	return res
}

// ReviewOnError converts a matching failure into a manual review.
func ReviewOnError(ext ExternalTeamCandidate, err error) MatchResult {
	return MatchResult{
		External:    ext,
		Outcome:     OutcomeManualReview,
		Suggestions: []TeamMatchCandidate{},
		Error:       err.Error(),
	}
}
