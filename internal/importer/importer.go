// Package importer writes merged records into the directory store.
package importer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lawfinder-au/collector-cli/internal/model"
	"github.com/lawfinder-au/collector-cli/internal/scorer"
	"github.com/lawfinder-au/collector-cli/internal/store"
)

// recentVerification is how long a verification counts toward the
// completeness score.
const recentVerification = 365 * 24 * time.Hour

// ImportError records one record that could not be written.
type ImportError struct {
	Slug    string `json:"slug"`
	PlaceID string `json:"place_id,omitempty"`
	Message string `json:"message"`
}

// ImportReport summarises one import batch.
type ImportReport struct {
	Inserted int           `json:"inserted"`
	Updated  int           `json:"updated"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// Total returns the number of records attempted.
func (r *ImportReport) Total() int {
	return r.Inserted + r.Updated + r.Skipped + r.Failed
}

// Importer upserts merged records one transaction at a time. A failed
// record is recorded and the batch continues.
type Importer struct {
	store store.Store
}

// New creates an Importer.
func New(s store.Store) *Importer {
	return &Importer{store: s}
}

// ImportAll writes every record and returns the batch report. After each
// upsert the completeness score is recomputed against the stored row's
// related signals, so re-imports pick up reviews and verification added
// since the last run.
func (i *Importer) ImportAll(ctx context.Context, records []model.Merged) *ImportReport {
	report := &ImportReport{}
	log := zap.L()

	for idx := range records {
		rec := &records[idx]

		if rec.Candidate.FirmName == "" || rec.Slug == "" {
			report.Skipped++
			log.Warn("import: skipping record without name or slug",
				zap.String("place_id", rec.Candidate.PlaceID))
			continue
		}

		if err := i.importOne(ctx, rec, report); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, ImportError{
				Slug:    rec.Slug,
				PlaceID: rec.Candidate.PlaceID,
				Message: err.Error(),
			})
			log.Error("import: record failed",
				zap.String("slug", rec.Slug), zap.Error(err))
		}
	}

	log.Info("import: batch complete",
		zap.Int("inserted", report.Inserted),
		zap.Int("updated", report.Updated),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report
}

func (i *Importer) importOne(ctx context.Context, rec *model.Merged, report *ImportReport) error {
	lawyer := ToLawyer(rec)

	res, err := i.store.UpsertLawyer(ctx, lawyer)
	if err != nil {
		return err
	}
	if res.Created {
		report.Inserted++
	} else {
		report.Updated++
	}

	// Recompute the score with DB-side signals. Best effort: a failure
	// here leaves the pipeline-computed score in place.
	sig, err := i.store.RelatedSignals(ctx, res.ID)
	if err != nil {
		zap.L().Warn("import: related signals unavailable",
			zap.String("slug", rec.Slug), zap.Error(err))
		return nil
	}

	score := scorer.Score(rec, scorer.Related{
		Reviews:          sig.Reviews,
		CaseStudies:      sig.CaseStudies,
		HasProfileImage:  sig.ProfileImageURL != "",
		VerifiedRecently: verifiedRecently(sig.VerifiedAt, time.Now()),
	})
	if score != rec.Score {
		if err := i.store.UpdateCompleteness(ctx, res.ID, score); err != nil {
			zap.L().Warn("import: completeness update failed",
				zap.String("slug", rec.Slug), zap.Error(err))
		}
	}
	return nil
}

func verifiedRecently(verifiedAt *time.Time, now time.Time) bool {
	return verifiedAt != nil && now.Sub(*verifiedAt) <= recentVerification
}

// ToLawyer maps a merged record onto the persisted row shape. Moderation
// fields stay at their zero values; the store owns their defaults.
func ToLawyer(rec *model.Merged) *model.Lawyer {
	cand := rec.Candidate
	enr := rec.Enrichment

	return &model.Lawyer{
		Slug:      rec.Slug,
		PlaceID:   cand.PlaceID,
		FirmName:  cand.FirmName,
		State:     cand.State,
		StateCode: cand.StateCode,
		City:      cand.City,
		Address:   cand.Address,
		Phone:     cand.Phone,
		Email:     enr.Email,
		Website:   cand.Website,

		ShortDescription: rec.ShortDescription,
		Description:      rec.Description,
		MetaTitle:        rec.MetaTitle,
		MetaDescription:  rec.MetaDescription,

		YearsExperience: enr.YearsExperience,
		FoundedYear:     enr.FoundedYear,
		Languages:       enr.Languages,
		Awards:          enr.Awards,
		Accreditations:  enr.Accreditations,

		SpecializationNames: rec.Specializations(),
		TeamMembers:         enr.TeamMembers,

		NoWinNoFee:       enr.Features.NoWinNoFee,
		FreeConsultation: enr.Features.FreeConsultation,
		HomeVisits:       enr.Features.HomeVisits,
		Telehealth:       enr.Features.Telehealth,
		AcceptsLegalAid:  enr.Features.LegalAid,

		GoogleRating:      cand.Rating,
		GoogleReviewCount: cand.ReviewCount,
		BusinessHours:     cand.Hours,

		Completeness: rec.Score,
	}
}
