// Package report summarises a collection run for operators.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lawfinder-au/collector-cli/internal/importer"
	"github.com/lawfinder-au/collector-cli/internal/model"
)

// Quality tallies how many records carry each high-value field.
type Quality struct {
	WithWebsite         int `json:"with_website"`
	WithDescription     int `json:"with_description"`
	WithPhone           int `json:"with_phone"`
	WithEmail           int `json:"with_email"`
	WithReviews         int `json:"with_reviews"`
	WithSpecializations int `json:"with_specializations"`
}

// FeatureTallies counts detected service features across the run.
type FeatureTallies struct {
	NoWinNoFee       int `json:"no_win_no_fee"`
	FreeConsultation int `json:"free_consultation"`
	HomeVisits       int `json:"home_visits"`
	Telehealth       int `json:"telehealth"`
	LegalAid         int `json:"legal_aid"`
	AfterHours       int `json:"after_hours"`
}

// Distribution summarises completeness scores.
type Distribution struct {
	Min     int            `json:"min"`
	Max     int            `json:"max"`
	Average float64        `json:"average"`
	Buckets map[string]int `json:"buckets"`
}

// Report is the run summary, written as the final artifact and printed
// to the terminal.
type Report struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Phases      []model.PhaseResult   `json:"phases"`
	Failures    []model.ItemFailure   `json:"failures,omitempty"`
	Import      *importer.ImportReport `json:"import,omitempty"`

	TotalRecords int            `json:"total_records"`
	ByState      map[string]int `json:"by_state"`
	ByCity       map[string]int `json:"by_city"`
	Quality      Quality        `json:"quality"`
	Features     FeatureTallies `json:"features"`
	Completeness Distribution   `json:"completeness"`
}

var buckets = []struct {
	label string
	min   int
	max   int
}{
	{"0-24", 0, 24},
	{"25-49", 25, 49},
	{"50-74", 50, 74},
	{"75-100", 75, 100},
}

// Build computes the summary over the run's final records.
func Build(records []model.Merged, phases []model.PhaseResult, failures []model.ItemFailure, imp *importer.ImportReport) *Report {
	r := &Report{
		GeneratedAt:  time.Now().UTC(),
		Phases:       phases,
		Failures:     failures,
		Import:       imp,
		TotalRecords: len(records),
		ByState:      make(map[string]int),
		ByCity:       make(map[string]int),
		Completeness: Distribution{Buckets: make(map[string]int)},
	}

	var scoreSum int
	for i := range records {
		rec := &records[i]
		cand := rec.Candidate
		enr := rec.Enrichment

		if cand.StateCode != "" {
			r.ByState[cand.StateCode]++
		}
		if cand.City != "" {
			r.ByCity[cand.City]++
		}

		if cand.Website != "" {
			r.Quality.WithWebsite++
		}
		if rec.Description != "" {
			r.Quality.WithDescription++
		}
		if cand.Phone != "" {
			r.Quality.WithPhone++
		}
		if enr.Email != "" {
			r.Quality.WithEmail++
		}
		if cand.ReviewCount > 0 {
			r.Quality.WithReviews++
		}
		if len(enr.Specializations) > 0 {
			r.Quality.WithSpecializations++
		}

		f := enr.Features
		if f.NoWinNoFee {
			r.Features.NoWinNoFee++
		}
		if f.FreeConsultation {
			r.Features.FreeConsultation++
		}
		if f.HomeVisits {
			r.Features.HomeVisits++
		}
		if f.Telehealth {
			r.Features.Telehealth++
		}
		if f.LegalAid {
			r.Features.LegalAid++
		}
		if f.AfterHours {
			r.Features.AfterHours++
		}

		score := rec.Score
		scoreSum += score
		if i == 0 || score < r.Completeness.Min {
			r.Completeness.Min = score
		}
		if score > r.Completeness.Max {
			r.Completeness.Max = score
		}
		for _, b := range buckets {
			if score >= b.min && score <= b.max {
				r.Completeness.Buckets[b.label]++
				break
			}
		}
	}

	if len(records) > 0 {
		r.Completeness.Average = float64(scoreSum) / float64(len(records))
	}
	return r
}

// Format renders the report for the terminal.
func (r *Report) Format() string {
	var b strings.Builder

	b.WriteString("COLLECTION RUN REPORT\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	fmt.Fprintf(&b, "Generated: %s\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Total records: %d\n\n", r.TotalRecords)

	b.WriteString("Phases:\n")
	for _, p := range r.Phases {
		status := "ok"
		if p.Error != "" {
			status = "FAILED: " + p.Error
		}
		fmt.Fprintf(&b, "  %-12s items=%-5d failed=%-4d %6.1fs  %s\n",
			p.Phase, p.Items, p.Failed, float64(p.DurationMS)/1000, status)
	}
	b.WriteString("\n")

	if len(r.ByState) > 0 {
		b.WriteString("By state:\n")
		for _, k := range sortedKeys(r.ByState) {
			fmt.Fprintf(&b, "  %-6s %d\n", k, r.ByState[k])
		}
		b.WriteString("\n")
	}

	if len(r.ByCity) > 0 {
		b.WriteString("By city:\n")
		for _, k := range sortedKeys(r.ByCity) {
			fmt.Fprintf(&b, "  %-20s %d\n", k, r.ByCity[k])
		}
		b.WriteString("\n")
	}

	b.WriteString("Data quality:\n")
	fmt.Fprintf(&b, "  website          %d\n", r.Quality.WithWebsite)
	fmt.Fprintf(&b, "  description      %d\n", r.Quality.WithDescription)
	fmt.Fprintf(&b, "  phone            %d\n", r.Quality.WithPhone)
	fmt.Fprintf(&b, "  email            %d\n", r.Quality.WithEmail)
	fmt.Fprintf(&b, "  reviews          %d\n", r.Quality.WithReviews)
	fmt.Fprintf(&b, "  specializations  %d\n", r.Quality.WithSpecializations)
	b.WriteString("\n")

	b.WriteString("Service features:\n")
	fmt.Fprintf(&b, "  no win no fee      %d\n", r.Features.NoWinNoFee)
	fmt.Fprintf(&b, "  free consultation  %d\n", r.Features.FreeConsultation)
	fmt.Fprintf(&b, "  home visits        %d\n", r.Features.HomeVisits)
	fmt.Fprintf(&b, "  telehealth         %d\n", r.Features.Telehealth)
	fmt.Fprintf(&b, "  legal aid          %d\n", r.Features.LegalAid)
	fmt.Fprintf(&b, "  after hours        %d\n", r.Features.AfterHours)
	b.WriteString("\n")

	fmt.Fprintf(&b, "Completeness: min=%d avg=%.1f max=%d\n",
		r.Completeness.Min, r.Completeness.Average, r.Completeness.Max)
	for _, bk := range buckets {
		fmt.Fprintf(&b, "  %-7s %d\n", bk.label, r.Completeness.Buckets[bk.label])
	}

	if r.Import != nil {
		b.WriteString("\nImport:\n")
		fmt.Fprintf(&b, "  inserted=%d updated=%d skipped=%d failed=%d\n",
			r.Import.Inserted, r.Import.Updated, r.Import.Skipped, r.Import.Failed)
	}

	if len(r.Failures) > 0 {
		fmt.Fprintf(&b, "\nFailures (%d):\n", len(r.Failures))
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", f.Phase, f.Key, f.Message)
		}
	}

	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
