// Package scorer computes the 0-100 profile completeness score.
package scorer

import "github.com/lawfinder-au/collector-cli/internal/model"

// Weights. They sum to exactly 100 when every signal is present.
const (
	weightBaseContact     = 20
	weightDescription     = 5
	weightYears           = 5
	weightSpecializations = 5
	weightTeam            = 5
	weightFeatures        = 10
	weightReviewsMany     = 15
	weightReviewsSome     = 10
	weightCaseStudies     = 10
	weightAwards          = 5
	weightProfileImage    = 5
	weightVerified        = 10
	weightHours           = 5

	// Descriptions below this length read as stubs and earn nothing.
	minDescriptionLen = 100

	// Review count at which social proof earns full marks.
	manyReviews = 3
)

// Related carries signals that live outside the merged record itself:
// child-table counts and operator-set profile state. New imports score
// with the zero value.
type Related struct {
	Reviews          int
	CaseStudies      int
	HasProfileImage  bool
	VerifiedRecently bool
}

// Score computes the completeness score for a merged record. Pure: the
// same inputs always produce the same score.
func Score(m *model.Merged, rel Related) int {
	cand := m.Candidate
	enr := m.Enrichment

	score := 0

	if cand.FirmName != "" && cand.Address != "" && cand.Phone != "" &&
		enr.Email != "" && cand.Website != "" {
		score += weightBaseContact
	}

	if len(m.Description) >= minDescriptionLen {
		score += weightDescription
	}
	if enr.YearsExperience > 0 {
		score += weightYears
	}
	if len(enr.Specializations) > 0 {
		score += weightSpecializations
	}
	if len(enr.TeamMembers) > 0 {
		score += weightTeam
	}
	if enr.Features.Any() {
		score += weightFeatures
	}

	switch {
	case rel.Reviews >= manyReviews:
		score += weightReviewsMany
	case rel.Reviews > 0:
		score += weightReviewsSome
	}
	if rel.CaseStudies > 0 {
		score += weightCaseStudies
	}
	if len(enr.Awards) > 0 {
		score += weightAwards
	}

	if rel.HasProfileImage {
		score += weightProfileImage
	}
	if rel.VerifiedRecently {
		score += weightVerified
	}
	if len(cand.Hours) > 0 {
		score += weightHours
	}

	return score
}
