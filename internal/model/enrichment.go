package model

// Features are service flags detected on a firm's website. Absence of
// evidence leaves a flag false; downstream scoring treats unset and false
// the same way.
type Features struct {
	NoWinNoFee       bool `json:"no_win_no_fee"`
	FreeConsultation bool `json:"free_consultation"`
	HomeVisits       bool `json:"home_visits"`
	Telehealth       bool `json:"telehealth"`
	LegalAid         bool `json:"legal_aid"`
	AfterHours       bool `json:"after_hours"`
}

// Any reports whether at least one feature flag is set.
func (f Features) Any() bool {
	return f.NoWinNoFee || f.FreeConsultation || f.HomeVisits ||
		f.Telehealth || f.LegalAid || f.AfterHours
}

// TeamMember is one person extracted from a team/staff page.
type TeamMember struct {
	FullName string `json:"full_name"`
	Role     string `json:"role,omitempty"`
	Bio      string `json:"bio,omitempty"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// Enrichment holds signals extracted from a candidate's website. Every
// field is optional: a fetch failure or a site with nothing to extract
// yields an Enrichment with Scraped=false and zero values, never an error.
type Enrichment struct {
	PlaceID string `json:"place_id"`

	// Scraped is true when at least the homepage was fetched and parsed.
	Scraped bool   `json:"scraped"`
	Error   string `json:"error,omitempty"`

	Description      string       `json:"description,omitempty"`
	ShortDescription string       `json:"short_description,omitempty"`
	Specializations  []string     `json:"specializations,omitempty"`
	TeamMembers      []TeamMember `json:"team_members,omitempty"`
	YearsExperience  int          `json:"years_experience,omitempty"`
	FoundedYear      int          `json:"founded_year,omitempty"`
	Awards           []string     `json:"awards,omitempty"`
	Accreditations   []string     `json:"accreditations,omitempty"`
	Languages        []string     `json:"languages,omitempty"`
	Email            string       `json:"email,omitempty"`
	MetaTitle        string       `json:"meta_title,omitempty"`
	MetaDescription  string       `json:"meta_description,omitempty"`
	Features         Features     `json:"features"`
	PagesFetched     int          `json:"pages_fetched,omitempty"`
}
