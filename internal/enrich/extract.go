package enrich

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/lawfinder-au/collector-cli/internal/model"
)

var errNonHTML = eris.New("enrich: non-HTML response")

// Feature phrase patterns. These run over whitespace-collapsed lowercase
// text, so \s+ still matters for phrases split across tags.
var (
	reNoWinNoFee  = regexp.MustCompile(`no\s*win,?\s*no\s*fee`)
	reFreeConsult = regexp.MustCompile(`(?:free|complimentary|no[\s-]*obligation)\s+(?:initial\s+)?consultation`)
	reHomeVisits  = regexp.MustCompile(`home\s+visits?|visit\s+you\s+at\s+home|hospital\s+visits?`)
	reTelehealth  = regexp.MustCompile(`telehealth|video\s+(?:consultation|conference|call)s?|zoom\s+(?:meeting|consultation)s?`)
	reLegalAid    = regexp.MustCompile(`legal\s+aid`)
	reAfterHours  = regexp.MustCompile(`24\s*/\s*7|24\s*hours?|after[\s-]*hours`)

	reYearsExp = regexp.MustCompile(`(\d{1,2})\s*\+?\s*years?(?:['’]?)\s*(?:of\s+)?(?:combined\s+|legal\s+)?experience`)
	reFounded  = regexp.MustCompile(`(?:since|established(?:\s+in)?|founded(?:\s+in)?|serving\s+\w+\s+since)\s+(\d{4})`)

	reEmail = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	reWhitespace = regexp.MustCompile(`\s+`)
)

// specializationTerms maps detection phrases to canonical labels.
var specializationTerms = []struct {
	phrase string
	label  string
}{
	{"medical negligence", "Medical Negligence"},
	{"medical malpractice", "Medical Negligence"},
	{"birth injur", "Birth Injuries"},
	{"surgical error", "Surgical Errors"},
	{"misdiagnosis", "Misdiagnosis"},
	{"delayed diagnosis", "Misdiagnosis"},
	{"hospital negligence", "Hospital Negligence"},
	{"dental negligence", "Dental Negligence"},
	{"cosmetic surgery", "Cosmetic Surgery Claims"},
	{"nursing home", "Aged Care Negligence"},
	{"aged care", "Aged Care Negligence"},
	{"pharmaceutical", "Pharmaceutical Claims"},
	{"medication error", "Pharmaceutical Claims"},
	{"cancer misdiagnosis", "Cancer Misdiagnosis"},
	{"anaesthe", "Anaesthesia Errors"},
	{"public liability", "Public Liability"},
	{"personal injury", "Personal Injury"},
	{"workers compensation", "Workers Compensation"},
	{"workers' compensation", "Workers Compensation"},
	{"motor vehicle accident", "Motor Vehicle Accidents"},
	{"tpd claim", "TPD Claims"},
	{"total and permanent disability", "TPD Claims"},
}

var accreditationKeywords = []string{
	"accredited specialist",
	"law society",
	"law institute",
	"queensland law society",
	"admitted to practice",
	"admitted as a solicitor",
	"australian lawyers alliance",
	"doyle's guide",
	"doyles guide",
	"certified",
}

var knownLanguages = []string{
	"Mandarin", "Cantonese", "Greek", "Italian", "Arabic", "Vietnamese",
	"Spanish", "Hindi", "Punjabi", "French", "German", "Korean",
	"Japanese", "Polish", "Serbian", "Croatian", "Macedonian", "Turkish",
}

// junk email domains never worth keeping.
var junkEmailDomains = []string{"example.com", "sentry.io", "wixpress.com", "yourdomain.com"}

const (
	maxTeamMembers     = 10
	maxAwards          = 10
	maxAccreditations  = 5
	maxLanguages       = 5
	maxDescriptionLen  = 1000
	maxShortDescLen    = 200
	minFoundedYear     = 1950
	maxBioLen          = 500
)

// extract runs every extraction rule over the fetched documents and fills
// the enrichment in place. The first document is always the homepage.
func extract(enr *model.Enrichment, docs []*goquery.Document, baseURL string) {
	var combined strings.Builder
	for _, d := range docs {
		combined.WriteString(visibleText(d))
		combined.WriteString(" ")
	}
	text := strings.ToLower(collapseSpace(combined.String()))

	enr.Features = extractFeatures(text)
	enr.Specializations = extractSpecializations(text)
	enr.YearsExperience, enr.FoundedYear = extractExperience(text, time.Now().Year())
	enr.Languages = extractLanguages(text)
	enr.Email = extractEmail(docs, combined.String())

	for _, d := range docs {
		if enr.Description == "" {
			enr.Description = extractDescription(d)
		}
		if len(enr.TeamMembers) == 0 {
			enr.TeamMembers = extractTeam(d, baseURL)
		}
		if len(enr.Awards) == 0 {
			enr.Awards = extractAwards(d)
		}
	}
	enr.Accreditations = extractAccreditations(combined.String())

	home := docs[0]
	enr.MetaTitle = strings.TrimSpace(home.Find("title").First().Text())
	if enr.MetaTitle == "" {
		enr.MetaTitle, _ = home.Find(`meta[property="og:title"]`).Attr("content")
	}
	enr.MetaDescription = metaContent(home, `meta[name="description"]`)
	if enr.MetaDescription == "" {
		enr.MetaDescription = metaContent(home, `meta[property="og:description"]`)
	}
	enr.ShortDescription = extractShortDescription(home, enr.MetaDescription)
}

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(v)
}

// visibleText returns the page's body text with boilerplate containers
// stripped, so phrase matching is not polluted by navigation chrome.
func visibleText(doc *goquery.Document) string {
	sel := doc.Find("body").Clone()
	sel.Find("script, style, noscript, nav, header, footer, aside, form").Remove()
	return sel.Text()
}

func collapseSpace(s string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}

func extractFeatures(text string) model.Features {
	return model.Features{
		NoWinNoFee:       reNoWinNoFee.MatchString(text),
		FreeConsultation: reFreeConsult.MatchString(text),
		HomeVisits:       reHomeVisits.MatchString(text),
		Telehealth:       reTelehealth.MatchString(text),
		LegalAid:         reLegalAid.MatchString(text),
		AfterHours:       reAfterHours.MatchString(text),
	}
}

func extractSpecializations(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, term := range specializationTerms {
		if !strings.Contains(text, term.phrase) || seen[term.label] {
			continue
		}
		seen[term.label] = true
		out = append(out, term.label)
	}
	return out
}

// extractExperience finds an explicit "N years experience" claim or infers
// one from a founding year. The larger of the two wins when both appear.
func extractExperience(text string, currentYear int) (years, founded int) {
	if m := reYearsExp.FindStringSubmatch(text); m != nil {
		years, _ = strconv.Atoi(m[1])
	}

	for _, m := range reFounded.FindAllStringSubmatch(text, -1) {
		y, _ := strconv.Atoi(m[1])
		if y < minFoundedYear || y > currentYear {
			continue
		}
		if founded == 0 || y < founded {
			founded = y
		}
	}

	if founded > 0 && currentYear-founded > years {
		years = currentYear - founded
	}
	return years, founded
}

func extractLanguages(text string) []string {
	// Only count a language when it appears in a sentence that is actually
	// about languages, otherwise "French doors" style noise creeps in.
	var out []string
	for _, sentence := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	}) {
		if !strings.Contains(sentence, "speak") && !strings.Contains(sentence, "language") {
			continue
		}
		for _, lang := range knownLanguages {
			if len(out) >= maxLanguages {
				return out
			}
			if strings.Contains(sentence, strings.ToLower(lang)) && !contains(out, lang) {
				out = append(out, lang)
			}
		}
	}
	return out
}

func extractEmail(docs []*goquery.Document, rawText string) string {
	// mailto links are the most reliable source.
	for _, d := range docs {
		var found string
		d.Find(`a[href^="mailto:"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			addr := strings.TrimPrefix(href, "mailto:")
			if i := strings.IndexByte(addr, '?'); i >= 0 {
				addr = addr[:i]
			}
			if validEmail(addr) {
				found = strings.ToLower(strings.TrimSpace(addr))
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}

	for _, addr := range reEmail.FindAllString(rawText, 5) {
		if validEmail(addr) {
			return strings.ToLower(addr)
		}
	}
	return ""
}

func validEmail(addr string) bool {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if !reEmail.MatchString(addr) {
		return false
	}
	for _, junk := range junkEmailDomains {
		if strings.HasSuffix(addr, "@"+junk) {
			return false
		}
	}
	// Image filenames masquerading as emails (logo@2x.png).
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg"} {
		if strings.HasSuffix(addr, ext) {
			return false
		}
	}
	return true
}

// extractDescription pulls the longest meaningful prose block from about
// and intro containers, falling back to leading paragraphs.
func extractDescription(doc *goquery.Document) string {
	candidates := doc.Find(`[class*="about"], [id*="about"], [class*="intro"], [class*="overview"], main, article`)

	var best string
	candidates.Each(func(_ int, s *goquery.Selection) {
		var parts []string
		s.Find("p").Each(func(_ int, p *goquery.Selection) {
			t := collapseSpace(p.Text())
			if len(t) >= 50 {
				parts = append(parts, t)
			}
		})
		joined := strings.Join(parts, "\n\n")
		if len(joined) > len(best) {
			best = joined
		}
	})

	if best == "" {
		var parts []string
		doc.Find("body p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
			t := collapseSpace(p.Text())
			if len(t) >= 80 {
				parts = append(parts, t)
			}
			return len(parts) < 3
		})
		best = strings.Join(parts, "\n\n")
	}

	return truncateWords(best, maxDescriptionLen)
}

func extractShortDescription(doc *goquery.Document, metaDesc string) string {
	if metaDesc != "" {
		return truncateSentence(collapseSpace(metaDesc), maxShortDescLen)
	}

	var hero string
	doc.Find(`[class*="hero"] h1, [class*="hero"] h2, [class*="hero"] p, [class*="tagline"], [class*="lead"]`).
		EachWithBreak(func(_ int, s *goquery.Selection) bool {
			t := collapseSpace(s.Text())
			if len(t) >= 40 && len(t) <= 300 {
				hero = t
				return false
			}
			return true
		})
	if hero != "" {
		return truncateSentence(hero, maxShortDescLen)
	}

	var first string
	doc.Find("body p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		t := collapseSpace(p.Text())
		if len(t) >= 50 {
			first = t
			return false
		}
		return true
	})
	return truncateSentence(first, maxShortDescLen)
}

var teamRoleWords = regexp.MustCompile(`(?i)partner|principal|director|solicitor|lawyer|barrister|counsel|paralegal|associate|clerk|manager`)

// extractTeam walks team/staff containers looking for person cards: a
// heading with a plausible name, optionally a role line, bio paragraph and
// photo.
func extractTeam(doc *goquery.Document, baseURL string) []model.TeamMember {
	var members []model.TeamMember
	seen := map[string]bool{}

	containers := doc.Find(`[class*="team"], [id*="team"], [class*="staff"], [class*="our-people"], [class*="lawyer"], [class*="attorney"]`)
	containers.Find(`[class*="member"], [class*="profile"], [class*="card"], [class*="bio"], li, article`).
		EachWithBreak(func(_ int, card *goquery.Selection) bool {
			name := collapseSpace(card.Find("h2, h3, h4, h5, strong").First().Text())
			if !plausibleName(name) || seen[name] {
				return true
			}

			member := model.TeamMember{FullName: name}

			role := collapseSpace(card.Find(`[class*="role"], [class*="title"], [class*="position"], em, span`).First().Text())
			if role != "" && role != name && teamRoleWords.MatchString(role) && len(role) <= 80 {
				member.Role = role
			}

			bio := collapseSpace(card.Find("p").First().Text())
			if len(bio) >= 30 {
				member.Bio = truncateWords(bio, maxBioLen)
			}

			if src, ok := card.Find("img").First().Attr("src"); ok {
				member.PhotoURL = resolveURL(baseURL, src)
			}

			seen[name] = true
			members = append(members, member)
			return len(members) < maxTeamMembers
		})

	return members
}

// plausibleName accepts 2-4 capitalised words, which filters headings like
// "Our Team" poorly enough that a stop list helps.
func plausibleName(s string) bool {
	if s == "" || len(s) > 60 {
		return false
	}
	lower := strings.ToLower(s)
	for _, stop := range []string{"our team", "meet the team", "the team", "our people", "our lawyers", "contact", "about"} {
		if lower == stop {
			return false
		}
	}
	words := strings.Fields(s)
	if len(words) < 2 || len(words) > 4 {
		return false
	}
	for _, w := range words {
		r := []rune(w)
		if r[0] < 'A' || r[0] > 'Z' {
			return false
		}
	}
	return true
}

func extractAwards(doc *goquery.Document) []string {
	var awards []string
	seen := map[string]bool{}

	doc.Find(`[class*="award"], [id*="award"], [class*="recognition"], [class*="achievement"]`).
		Find("li, p, h3, h4").
		EachWithBreak(func(_ int, s *goquery.Selection) bool {
			t := collapseSpace(s.Text())
			if len(t) >= 10 && len(t) <= 200 && !seen[t] {
				seen[t] = true
				awards = append(awards, t)
			}
			return len(awards) < maxAwards
		})

	return awards
}

func extractAccreditations(rawText string) []string {
	text := collapseSpace(rawText)
	lower := strings.ToLower(text)

	var out []string
	seen := map[string]bool{}
	for _, kw := range accreditationKeywords {
		idx := strings.Index(lower, kw)
		if idx < 0 {
			continue
		}
		sentence := sentenceAround(text, idx)
		if len(sentence) < 20 || len(sentence) > 200 || seen[sentence] {
			continue
		}
		seen[sentence] = true
		out = append(out, sentence)
		if len(out) >= maxAccreditations {
			break
		}
	}
	return out
}

// sentenceAround returns the sentence containing byte offset idx.
func sentenceAround(text string, idx int) string {
	start := strings.LastIndexAny(text[:idx], ".!?")
	if start < 0 {
		start = 0
	} else {
		start++
	}
	end := strings.IndexAny(text[idx:], ".!?")
	if end < 0 {
		end = len(text)
	} else {
		end += idx + 1
	}
	return strings.TrimSpace(text[start:end])
}

func resolveURL(baseURL, ref string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ref
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return base.ResolveReference(r).String()
}

// truncateWords cuts at a word boundary below max, appending an ellipsis.
func truncateWords(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := strings.LastIndexByte(s[:max], ' ')
	if cut <= 0 {
		cut = max
	}
	return strings.TrimRight(s[:cut], " ,;:") + "..."
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

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
