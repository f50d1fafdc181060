package model

import "time"

// BusinessStatus is the operating state reported by the search source.
type BusinessStatus string

const (
	StatusOperating         BusinessStatus = "operating"
	StatusClosedTemporarily BusinessStatus = "closed_temporarily"
	StatusClosedPermanently BusinessStatus = "closed_permanently"
	StatusUnknown           BusinessStatus = "unknown"
)

// Candidate is one search hit from the places source, keyed by PlaceID.
// Candidates are immutable once written to the search snapshot.
type Candidate struct {
	PlaceID     string            `json:"place_id"`
	FirmName    string            `json:"firm_name"`
	Address     string            `json:"address"`
	Street      string            `json:"street,omitempty"`
	City        string            `json:"city"`
	State       string            `json:"state"`
	StateCode   string            `json:"state_code"`
	Postcode    string            `json:"postcode,omitempty"`
	Latitude    float64           `json:"latitude,omitempty"`
	Longitude   float64           `json:"longitude,omitempty"`
	Phone       string            `json:"phone,omitempty"`
	Website     string            `json:"website,omitempty"`
	Rating      float64           `json:"rating,omitempty"`
	ReviewCount int               `json:"review_count,omitempty"`
	Hours       map[string]string `json:"hours,omitempty"`
	Status      BusinessStatus    `json:"status"`
	MapsURL     string            `json:"maps_url,omitempty"`
	SearchTerm  string            `json:"search_term"`
	CollectedAt time.Time         `json:"collected_at"`
}
