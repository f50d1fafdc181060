package pipeline

import (
	"regexp"
	"strings"
	"time"

	"github.com/lawfinder-au/collector-cli/internal/model"
	"github.com/lawfinder-au/collector-cli/pkg/places"
)

var nonPhoneChars = regexp.MustCompile(`[^\d+]`)

var weekdays = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// normalize maps a raw place onto the candidate schema for the search
// pair that produced it.
func normalize(p places.Place, pair model.SearchPair, term string, now time.Time) model.Candidate {
	street, postcode := parseAddress(p.FormattedAddress)

	phone := p.InternationalPhoneNumber
	if phone == "" {
		phone = p.NationalPhoneNumber
	}

	cand := model.Candidate{
		PlaceID:     p.ID,
		FirmName:    p.DisplayName.Text,
		Address:     p.FormattedAddress,
		Street:      street,
		City:        pair.City,
		State:       pair.State,
		StateCode:   pair.StateCode,
		Postcode:    postcode,
		Phone:       cleanPhone(phone),
		Website:     p.WebsiteURI,
		Rating:      p.Rating,
		ReviewCount: p.UserRatingCount,
		Hours:       parseHours(p.RegularOpeningHours),
		Status:      businessStatus(p.BusinessStatus),
		MapsURL:     p.GoogleMapsURI,
		SearchTerm:  term,
		CollectedAt: now,
	}
	if p.Location != nil {
		cand.Latitude = p.Location.Latitude
		cand.Longitude = p.Location.Longitude
	}
	return cand
}

// parseAddress splits a formatted address on commas: the first part is the
// street, the second-to-last carries "STATE POSTCODE". Comma-free
// addresses yield nothing, which is fine; the full string is kept anyway.
func parseAddress(formatted string) (street, postcode string) {
	if formatted == "" {
		return "", ""
	}
	parts := strings.Split(formatted, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if len(parts) >= 3 {
		street = parts[0]
	}
	if len(parts) >= 2 {
		fields := strings.Fields(parts[len(parts)-2])
		if len(fields) >= 2 {
			postcode = fields[1]
		}
	}
	return street, postcode
}

// cleanPhone strips formatting and forces the +61 country prefix.
func cleanPhone(phone string) string {
	if phone == "" {
		return ""
	}
	cleaned := nonPhoneChars.ReplaceAllString(phone, "")
	switch {
	case strings.HasPrefix(cleaned, "0"):
		return "+61" + cleaned[1:]
	case !strings.HasPrefix(cleaned, "+"):
		return "+61" + cleaned
	}
	return cleaned
}

// parseHours turns weekday descriptions like "Monday: 9:00 AM – 5:00 PM"
// into a day-keyed map. Days without a colon read as closed.
func parseHours(oh *places.OpeningHours) map[string]string {
	if oh == nil || len(oh.WeekdayDescriptions) == 0 {
		return nil
	}

	hours := make(map[string]string)
	for _, desc := range oh.WeekdayDescriptions {
		lower := strings.ToLower(desc)
		for _, day := range weekdays {
			if !strings.HasPrefix(lower, day) {
				continue
			}
			if idx := strings.Index(desc, ":"); idx >= 0 {
				hours[day] = strings.TrimSpace(desc[idx+1:])
			} else {
				hours[day] = "closed"
			}
			break
		}
	}
	if len(hours) == 0 {
		return nil
	}
	return hours
}

func businessStatus(s string) model.BusinessStatus {
	switch s {
	case "OPERATIONAL":
		return model.StatusOperating
	case "CLOSED_TEMPORARILY":
		return model.StatusClosedTemporarily
	case "CLOSED_PERMANENTLY":
		return model.StatusClosedPermanently
	default:
		return model.StatusUnknown
	}
}
