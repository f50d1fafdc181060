// Package synth generates profile copy for firms whose websites yielded
// little or no prose. Output is deterministic: the same record always
// produces the same text.
package synth

import (
	"fmt"
	"strings"

	"github.com/lawfinder-au/collector-cli/internal/model"
)

const (
	maxShortDescLen = 200
	maxMetaTitleLen = 60
	maxMetaDescLen  = 160

	// Scraped descriptions shorter than this are replaced with generated copy.
	minUsableDescription = 100
)

// Fill populates the generated text fields on a merged record. A scraped
// description long enough to stand on its own is kept; everything else is
// synthesized from structured data. Short description and meta tags are
// always regenerated so listings stay consistent.
func Fill(m *model.Merged) {
	if len(m.Enrichment.Description) >= minUsableDescription {
		m.Description = m.Enrichment.Description
	} else {
		m.Description = Description(m)
	}
	m.ShortDescription = ShortDescription(m)
	m.MetaTitle = MetaTitle(m)
	m.MetaDescription = MetaDescription(m)
}

// Description builds a full profile description from structured data,
// one paragraph per theme.
func Description(m *model.Merged) string {
	var b strings.Builder

	b.WriteString(intro(m))
	b.WriteString("\n\n")
	b.WriteString(specializationsParagraph(m))
	b.WriteString("\n\n")
	b.WriteString(experienceParagraph(m))
	b.WriteString("\n\n")
	b.WriteString(featuresParagraph(m))
	b.WriteString("\n\n")
	b.WriteString(callToAction(m))

	return b.String()
}

func intro(m *model.Merged) string {
	cand := m.Candidate
	enr := m.Enrichment

	// At most two adjectives, picked in a fixed order so output is stable.
	var adjectives []string
	switch {
	case enr.YearsExperience > 20:
		adjectives = append(adjectives, "highly experienced")
	case enr.YearsExperience > 10:
		adjectives = append(adjectives, "experienced")
	}
	switch {
	case cand.Rating >= 4.5:
		adjectives = append(adjectives, "top-rated")
	case cand.Rating >= 4.0:
		adjectives = append(adjectives, "well-regarded")
	}
	if len(enr.Awards) > 0 {
		adjectives = append(adjectives, "award-winning")
	}
	if len(adjectives) > 2 {
		adjectives = adjectives[:2]
	}

	adjective := "dedicated"
	if len(adjectives) > 0 {
		adjective = strings.Join(adjectives, ", ")
	}
	article := "a"
	if strings.ContainsRune("aeiou", rune(adjective[0])) {
		article = "an"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s is %s %s medical negligence law firm", cand.FirmName, article, adjective)
	switch {
	case cand.City != "" && cand.State != "":
		fmt.Fprintf(&b, " serving %s, %s", cand.City, cand.State)
	case cand.City != "":
		fmt.Fprintf(&b, " based in %s", cand.City)
	case cand.State != "":
		fmt.Fprintf(&b, " serving %s", cand.State)
	}
	b.WriteString(".")

	if enr.YearsExperience > 0 {
		if enr.FoundedYear > 0 {
			fmt.Fprintf(&b, " Since %d, we have been dedicated to representing victims of medical malpractice.", enr.FoundedYear)
		} else {
			fmt.Fprintf(&b, " With over %d years of experience, we have successfully represented numerous medical negligence victims.", enr.YearsExperience)
		}
	}

	return b.String()
}

func specializationsParagraph(m *model.Merged) string {
	specs := m.Enrichment.Specializations
	if len(specs) == 0 {
		return "We handle all types of medical negligence and malpractice cases, providing expert legal representation for victims of medical errors."
	}

	lowered := make([]string, len(specs))
	for i, s := range specs {
		lowered[i] = strings.ToLower(s)
	}

	return fmt.Sprintf("Our practice areas include %s. "+
		"We understand the complex medical and legal issues involved in these cases "+
		"and work diligently to secure the compensation our clients deserve for their injuries and suffering.",
		joinNatural(lowered))
}

func experienceParagraph(m *model.Merged) string {
	enr := m.Enrichment
	var parts []string

	if n := len(enr.Awards); n > 0 {
		award := enr.Awards[0]
		if n > 1 {
			award = fmt.Sprintf("%d professional awards and recognitions", n)
		}
		parts = append(parts, "We have received "+award)
	}
	if len(enr.Accreditations) > 0 {
		parts = append(parts, "Our lawyers hold specialist accreditations in personal injury and medical negligence law")
	}
	if n := len(enr.TeamMembers); n > 1 {
		parts = append(parts, fmt.Sprintf("Our team of %d dedicated legal professionals brings diverse expertise to every case", n))
	}

	if len(parts) == 0 {
		return "Our experienced legal team is dedicated to providing exceptional representation for medical negligence victims. " +
			"We stay current with the latest developments in medical malpractice law to best serve our clients."
	}
	return strings.Join(parts, ". ") + "."
}

func featuresParagraph(m *model.Merged) string {
	f := m.Enrichment.Features
	var features []string
	if f.NoWinNoFee {
		features = append(features, "no win, no fee arrangements")
	}
	if f.FreeConsultation {
		features = append(features, "free initial consultations")
	}
	if f.HomeVisits {
		features = append(features, "home and hospital visits")
	}
	if f.Telehealth {
		features = append(features, "virtual consultations")
	}

	if len(features) == 0 {
		return "We are committed to providing accessible, compassionate legal services to medical negligence victims. " +
			"Our client-focused approach ensures you receive the personal attention and expert representation your case deserves."
	}

	return fmt.Sprintf("We understand that pursuing a medical negligence claim can be daunting, which is why we offer %s. "+
		"Our compassionate approach means we take the time to understand your situation and guide you through every step of the legal process.",
		joinNatural(features))
}

func callToAction(m *model.Merged) string {
	var b strings.Builder
	b.WriteString("If you or a loved one has been a victim of medical negligence, don't wait to seek legal advice. ")

	if m.Enrichment.Features.FreeConsultation {
		fmt.Fprintf(&b, "Contact %s today for a free, confidential consultation. ", m.Candidate.FirmName)
	} else {
		fmt.Fprintf(&b, "Contact %s today to discuss your case. ", m.Candidate.FirmName)
	}

	b.WriteString("We'll review your situation, explain your legal options, and help you understand your rights. ")

	if m.Candidate.City != "" {
		fmt.Fprintf(&b, "Let our experienced %s medical negligence lawyers fight for the justice and compensation you deserve.", m.Candidate.City)
	} else {
		b.WriteString("Let our experienced medical negligence lawyers fight for the justice and compensation you deserve.")
	}

	return b.String()
}

// ShortDescription builds a one-line listing summary, capped at 200
// characters with a compact fallback when the full form runs long.
func ShortDescription(m *model.Merged) string {
	cand := m.Candidate
	enr := m.Enrichment

	spec := "medical negligence"
	if len(enr.Specializations) > 0 {
		spec = strings.ToLower(enr.Specializations[0])
	}

	var parts []string
	if enr.YearsExperience > 0 {
		parts = append(parts, fmt.Sprintf("%d+ years experience", enr.YearsExperience))
	}
	parts = append(parts, spec)
	switch {
	case cand.City != "":
		parts = append(parts, "in "+cand.City)
	case cand.StateCode != "":
		parts = append(parts, "in "+cand.StateCode)
	}

	var features []string
	if enr.Features.NoWinNoFee {
		features = append(features, "No Win No Fee")
	}
	if enr.Features.FreeConsultation {
		features = append(features, "Free Consultation")
	}
	if len(features) > 0 {
		parts = append(parts, strings.Join(features, " | "))
	}

	short := fmt.Sprintf("%s - %s.", cand.FirmName, strings.Join(parts, ", "))
	if len(short) <= maxShortDescLen {
		return short
	}

	tail := "Expert representation"
	if len(features) > 0 {
		tail = features[0]
	}
	loc := ""
	switch {
	case cand.City != "":
		loc = " in " + cand.City
	case cand.StateCode != "":
		loc = " in " + cand.StateCode
	}
	short = fmt.Sprintf("%s - %s lawyers%s. %s.", cand.FirmName, titleCase(spec), loc, tail)
	return truncateSentence(short, maxShortDescLen)
}

// truncateSentence prefers a sentence boundary below max, then falls back
// to a word boundary.
func truncateSentence(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if cut := strings.LastIndexAny(s[:max], ".!?"); cut >= max/2 {
		return s[:cut+1]
	}
	return truncateWords(s, max)
}

func truncateWords(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := strings.LastIndexByte(s[:max-3], ' ')
	if cut <= 0 {
		return s[:max-3] + "..."
	}
	return strings.TrimRight(s[:cut], " ,;:-") + "..."
}

// MetaTitle builds an SEO title capped at 60 characters. Long firm names
// fall back to a generic city title.
func MetaTitle(m *model.Merged) string {
	cand := m.Candidate

	title := fmt.Sprintf("%s - %s %s", cand.FirmName, cand.City, cand.StateCode)
	if len(cand.FirmName) > 30 {
		title = "Medical Negligence Lawyers " + cand.City
	}
	title = strings.TrimSpace(title)

	if len(title) > maxMetaTitleLen {
		title = title[:maxMetaTitleLen-3] + "..."
	}
	return title
}

// MetaDescription builds an SEO description capped at 160 characters.
func MetaDescription(m *model.Merged) string {
	cand := m.Candidate
	enr := m.Enrichment

	parts := []string{cand.FirmName}
	if cand.City != "" {
		parts = append(parts, "in "+cand.City)
	}
	if enr.YearsExperience > 0 {
		parts = append(parts, fmt.Sprintf("%d+ yrs exp", enr.YearsExperience))
	}

	var features []string
	if enr.Features.NoWinNoFee {
		features = append(features, "No win no fee")
	}
	if enr.Features.FreeConsultation {
		features = append(features, "Free consultation")
	}

	meta := strings.Join(parts, " | ")
	if len(features) > 0 {
		meta += ". " + strings.Join(features, ", ")
	}
	meta += ". Call today."

	if len(meta) > maxMetaDescLen {
		meta = meta[:maxMetaDescLen-3] + "..."
	}
	return meta
}

// joinNatural joins items with commas and a final "and".
func joinNatural(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
