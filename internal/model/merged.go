package model

// Merged is the final per-firm record produced by the synthesize phase:
// candidate data joined with website enrichment, generated text, a
// run-unique slug, and the completeness score. This is the unit the
// importer writes.
type Merged struct {
	Candidate  Candidate  `json:"candidate"`
	Enrichment Enrichment `json:"enrichment"`

	Slug             string `json:"slug"`
	Description      string `json:"description"`
	ShortDescription string `json:"short_description"`
	MetaTitle        string `json:"meta_title"`
	MetaDescription  string `json:"meta_description"`
	Score            int    `json:"profile_completeness_score"`
}

// Specializations returns the enriched specialization list, or a single
// default practice area when the website yielded none.
func (m *Merged) Specializations() []string {
	if len(m.Enrichment.Specializations) > 0 {
		return m.Enrichment.Specializations
	}
	return []string{"Medical Negligence"}
}
