package model

import "time"

// Verification states for a lawyer profile. Only operators move a profile
// out of unverified.
const (
	VerificationUnverified = "unverified"
	VerificationPending    = "pending"
	VerificationVerified   = "verified"
)

// Lawyer is the long-lived destination row, keyed by a unique slug with
// the place ID as the upsert match key. Moderation fields (IsPublished,
// VerificationStatus, IsFeatured, FeaturedPriority, SubscriptionTier) are
// operator-owned: the pipeline sets them only on first insert and never
// touches them on update.
type Lawyer struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	PlaceID   string `json:"google_place_id,omitempty"`
	FirmName  string `json:"firm_name"`
	State     string `json:"state"`
	StateCode string `json:"state_code"`
	City      string `json:"city"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Website   string `json:"website,omitempty"`

	ShortDescription string `json:"short_description,omitempty"`
	Description      string `json:"description,omitempty"`
	MetaTitle        string `json:"meta_title,omitempty"`
	MetaDescription  string `json:"meta_description,omitempty"`

	YearsExperience int      `json:"years_experience,omitempty"`
	FoundedYear     int      `json:"founded_year,omitempty"`
	Languages       []string `json:"languages,omitempty"`
	Awards          []string `json:"awards,omitempty"`
	Accreditations  []string `json:"accreditations,omitempty"`

	// Child collections, replaced wholesale on every import.
	SpecializationNames []string     `json:"specializations,omitempty"`
	TeamMembers         []TeamMember `json:"team_members,omitempty"`

	NoWinNoFee       bool `json:"no_win_no_fee"`
	FreeConsultation bool `json:"free_consultation"`
	HomeVisits       bool `json:"home_visits_available"`
	Telehealth       bool `json:"telehealth_available"`
	AcceptsLegalAid  bool `json:"accepts_legal_aid"`

	ShowPhoneLink   bool `json:"show_phone_link"`
	ShowEmailLink   bool `json:"show_email_link"`
	ShowWebsiteLink bool `json:"show_website_link"`

	GoogleRating      float64           `json:"google_rating,omitempty"`
	GoogleReviewCount int               `json:"google_review_count,omitempty"`
	BusinessHours     map[string]string `json:"business_hours,omitempty"`

	ProfileImageURL string `json:"profile_image_url,omitempty"`
	Completeness    int    `json:"profile_completeness_score"`

	// Moderation (operator-owned).
	IsPublished        bool       `json:"is_published"`
	VerificationStatus string     `json:"verification_status"`
	IsFeatured         bool       `json:"is_featured"`
	FeaturedPriority   int        `json:"featured_priority"`
	SubscriptionTier   string     `json:"subscription_tier"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
