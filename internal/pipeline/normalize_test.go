package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lawfinder-au/collector-cli/internal/model"
	"github.com/lawfinder-au/collector-cli/pkg/places"
)

func TestParseAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		formatted    string
		wantStreet   string
		wantPostcode string
	}{
		{
			name:         "full address",
			formatted:    "123 Pitt St, Sydney NSW 2000, Australia",
			wantStreet:   "123 Pitt St",
			wantPostcode: "2000",
		},
		{
			name:         "suite prefix",
			formatted:    "Level 5/44 Market St, Sydney NSW 2000, Australia",
			wantStreet:   "Level 5/44 Market St",
			wantPostcode: "2000",
		},
		{
			name:         "two parts keeps postcode only",
			formatted:    "Sydney NSW 2000, Australia",
			wantStreet:   "",
			wantPostcode: "2000",
		},
		{
			name:      "no commas",
			formatted: "Sydney",
		},
		{
			name:      "empty",
			formatted: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			street, postcode := parseAddress(tt.formatted)
			assert.Equal(t, tt.wantStreet, street)
			assert.Equal(t, tt.wantPostcode, postcode)
		})
	}
}

func TestCleanPhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		phone string
		want  string
	}{
		{"national with spaces", "02 9555 1234", "+61295551234"},
		{"national with parens", "(02) 9555 1234", "+61295551234"},
		{"already international", "+61 2 9555 1234", "+61295551234"},
		{"mobile", "0412 345 678", "+61412345678"},
		{"bare digits", "295551234", "+61295551234"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, cleanPhone(tt.phone))
		})
	}
}

func TestParseHours(t *testing.T) {
	t.Parallel()

	t.Run("open and closed days", func(t *testing.T) {
		t.Parallel()
		hours := parseHours(&places.OpeningHours{
			WeekdayDescriptions: []string{
				"Monday: 9:00 AM – 5:00 PM",
				"Saturday: Closed",
				"Sunday",
			},
		})
		assert.Equal(t, "9:00 AM – 5:00 PM", hours["monday"])
		assert.Equal(t, "Closed", hours["saturday"])
		assert.Equal(t, "closed", hours["sunday"])
	})

	t.Run("nil input", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, parseHours(nil))
		assert.Nil(t, parseHours(&places.OpeningHours{}))
	})

	t.Run("unrecognised lines ignored", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, parseHours(&places.OpeningHours{
			WeekdayDescriptions: []string{"Public holidays: varies"},
		}))
	})
}

func TestBusinessStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, model.StatusOperating, businessStatus("OPERATIONAL"))
	assert.Equal(t, model.StatusClosedTemporarily, businessStatus("CLOSED_TEMPORARILY"))
	assert.Equal(t, model.StatusClosedPermanently, businessStatus("CLOSED_PERMANENTLY"))
	assert.Equal(t, model.StatusUnknown, businessStatus(""))
	assert.Equal(t, model.StatusUnknown, businessStatus("SOMETHING_ELSE"))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pair := model.SearchPair{City: "Sydney", State: "New South Wales", StateCode: "NSW"}

	place := places.Place{
		ID:                       "place-123",
		DisplayName:              places.DisplayName{Text: "Acme Lawyers"},
		FormattedAddress:         "123 Pitt St, Sydney NSW 2000, Australia",
		NationalPhoneNumber:      "(02) 9555 1234",
		InternationalPhoneNumber: "+61 2 9555 1234",
		WebsiteURI:               "https://acme.example.com",
		Rating:                   4.6,
		UserRatingCount:          41,
		BusinessStatus:           "OPERATIONAL",
		GoogleMapsURI:            "https://maps.google.com/?cid=1",
		Location:                 &places.LatLng{Latitude: -33.87, Longitude: 151.21},
		RegularOpeningHours: &places.OpeningHours{
			WeekdayDescriptions: []string{"Monday: 9:00 AM – 5:00 PM"},
		},
	}

	cand := normalize(place, pair, "medical negligence lawyer", now)

	assert.Equal(t, "place-123", cand.PlaceID)
	assert.Equal(t, "Acme Lawyers", cand.FirmName)
	assert.Equal(t, "123 Pitt St", cand.Street)
	assert.Equal(t, "Sydney", cand.City)
	assert.Equal(t, "NSW", cand.StateCode)
	assert.Equal(t, "2000", cand.Postcode)
	assert.Equal(t, "+61295551234", cand.Phone)
	assert.Equal(t, "https://acme.example.com", cand.Website)
	assert.Equal(t, 4.6, cand.Rating)
	assert.Equal(t, 41, cand.ReviewCount)
	assert.Equal(t, model.StatusOperating, cand.Status)
	assert.Equal(t, "medical negligence lawyer", cand.SearchTerm)
	assert.Equal(t, now, cand.CollectedAt)
	assert.InDelta(t, -33.87, cand.Latitude, 0.001)
	assert.InDelta(t, 151.21, cand.Longitude, 0.001)
	assert.Equal(t, "9:00 AM – 5:00 PM", cand.Hours["monday"])
}

func TestNormalizePrefersInternationalPhone(t *testing.T) {
	t.Parallel()

	cand := normalize(places.Place{
		InternationalPhoneNumber: "+61 2 9555 0000",
		NationalPhoneNumber:      "(02) 9555 9999",
	}, model.SearchPair{}, "", time.Now())
	assert.Equal(t, "+61295550000", cand.Phone)

	cand = normalize(places.Place{
		NationalPhoneNumber: "(02) 9555 9999",
	}, model.SearchPair{}, "", time.Now())
	assert.Equal(t, "+61295559999", cand.Phone)
}
