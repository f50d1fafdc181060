package enrich

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawfinder-au/collector-cli/internal/model"
)

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractFeatures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want model.Features
	}{
		{
			name: "no win no fee with comma",
			text: "we act on a no win, no fee basis",
			want: model.Features{NoWinNoFee: true},
		},
		{
			name: "free consultation",
			text: "book your free initial consultation today",
			want: model.Features{FreeConsultation: true},
		},
		{
			name: "home and hospital visits",
			text: "we offer home visits and hospital visits",
			want: model.Features{HomeVisits: true},
		},
		{
			name: "telehealth",
			text: "telehealth and video consultations available",
			want: model.Features{Telehealth: true},
		},
		{
			name: "legal aid and after hours",
			text: "legal aid accepted, available 24/7",
			want: model.Features{LegalAid: true, AfterHours: true},
		},
		{
			name: "nothing",
			text: "we are a law firm",
			want: model.Features{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, extractFeatures(tt.text))
		})
	}
}

func TestExtractExperience(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		text        string
		wantYears   int
		wantFounded int
	}{
		{"explicit years", "over 25 years of experience in law", 25, 0},
		{"years with plus", "30+ years experience", 30, 0},
		{"founded year", "established in 1995, we serve sydney", 30, 1995},
		{"since year", "serving clients since 2010", 15, 2010},
		{"explicit beats smaller founded", "40 years experience, founded 2015", 40, 2015},
		{"founded beats smaller explicit", "5 years experience, established 1990", 35, 1990},
		{"implausible year ignored", "established 1849", 0, 0},
		{"future year ignored", "established 2990", 0, 0},
		{"nothing", "a law firm", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			years, founded := extractExperience(tt.text, 2025)
			assert.Equal(t, tt.wantYears, years, "years")
			assert.Equal(t, tt.wantFounded, founded, "founded")
		})
	}
}

func TestExtractSpecializations(t *testing.T) {
	t.Parallel()

	text := strings.ToLower(
		"We handle medical negligence, birth injury and misdiagnosis claims. " +
			"Also medical malpractice claims.")
	got := extractSpecializations(text)

	assert.Contains(t, got, "Medical Negligence")
	assert.Contains(t, got, "Birth Injuries")
	assert.Contains(t, got, "Misdiagnosis")
	// "medical malpractice" maps to the same label; no duplicates.
	assert.Len(t, got, 3)
}

func TestExtractEmail(t *testing.T) {
	t.Parallel()

	t.Run("prefers mailto links", func(t *testing.T) {
		t.Parallel()
		doc := docFrom(t, `<html><body>
			<a href="mailto:Info@Firm.com.au?subject=hi">Email us</a>
			<p>other@elsewhere.com</p>
		</body></html>`)
		got := extractEmail([]*goquery.Document{doc}, "other@elsewhere.com")
		assert.Equal(t, "info@firm.com.au", got)
	})

	t.Run("falls back to text scan", func(t *testing.T) {
		t.Parallel()
		doc := docFrom(t, `<html><body><p>contact admin@firm.com.au</p></body></html>`)
		got := extractEmail([]*goquery.Document{doc}, "contact admin@firm.com.au")
		assert.Equal(t, "admin@firm.com.au", got)
	})

	t.Run("rejects junk addresses", func(t *testing.T) {
		t.Parallel()
		doc := docFrom(t, `<html><body></body></html>`)
		got := extractEmail([]*goquery.Document{doc}, "logo@2x.png and test@example.com")
		assert.Empty(t, got)
	})
}

func TestExtractLanguages(t *testing.T) {
	t.Parallel()

	text := strings.ToLower(
		"Our team speaks Mandarin and Greek. We also installed French doors in the office.")
	got := extractLanguages(text)

	assert.Contains(t, got, "Mandarin")
	assert.Contains(t, got, "Greek")
	assert.NotContains(t, got, "French")
}

func TestExtractTeam(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<html><body>
	<section class="our-team">
		<div class="team-member">
			<h3>Jane Smith</h3>
			<span class="role">Principal Solicitor</span>
			<p>Jane has practised in medical negligence for two decades and leads the firm.</p>
			<img src="/img/jane.jpg">
		</div>
		<div class="team-member">
			<h3>John Doe</h3>
			<span class="role">Senior Associate</span>
			<p>John focuses on birth injury claims and complex hospital matters here.</p>
		</div>
		<div class="team-member">
			<h3>Our Team</h3>
		</div>
	</section>
	</body></html>`)

	members := extractTeam(doc, "https://firm.example.com")
	require.Len(t, members, 2)

	assert.Equal(t, "Jane Smith", members[0].FullName)
	assert.Equal(t, "Principal Solicitor", members[0].Role)
	assert.NotEmpty(t, members[0].Bio)
	assert.Equal(t, "https://firm.example.com/img/jane.jpg", members[0].PhotoURL)

	assert.Equal(t, "John Doe", members[1].FullName)
}

func TestExtractAwards(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<html><body>
	<section class="awards">
		<ul>
			<li>Doyle's Guide Leading Firm 2024</li>
			<li>Law Society Excellence Award</li>
			<li>tiny</li>
		</ul>
	</section>
	</body></html>`)

	awards := extractAwards(doc)
	assert.Contains(t, awards, "Doyle's Guide Leading Firm 2024")
	assert.Contains(t, awards, "Law Society Excellence Award")
	assert.NotContains(t, awards, "tiny")
}

func TestExtractDescriptionPrefersAboutSection(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<html><body>
	<div class="about-us">
		<p>`+strings.Repeat("We are a dedicated medical negligence practice. ", 4)+`</p>
		<p>`+strings.Repeat("Our lawyers act for injured patients across the state. ", 3)+`</p>
	</div>
	<p>Short footer note.</p>
	</body></html>`)

	desc := extractDescription(doc)
	assert.Contains(t, desc, "dedicated medical negligence practice")
	assert.LessOrEqual(t, len(desc), maxDescriptionLen+3)
}

func TestTruncateSentence(t *testing.T) {
	t.Parallel()

	long := "First sentence here. Second sentence is quite a bit longer and runs on. Third one."
	got := truncateSentence(long, 30)
	assert.Equal(t, "First sentence here.", got)
	assert.LessOrEqual(t, len(got), 30)

	// No sentence boundary in range falls back to a word cut.
	noDots := strings.Repeat("word ", 30)
	got = truncateSentence(noDots, 40)
	assert.LessOrEqual(t, len(got), 43)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestSubpageLinks(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<html><body>
		<a href="/about-us">About</a>
		<a href="/our-team">Team</a>
		<a href="/contact">Contact</a>
		<a href="/about-us">About again</a>
		<a href="https://other.example.com/about">External</a>
		<a href="/blog/post-1">Blog</a>
		<a href="mailto:x@y.com">Mail</a>
	</body></html>`)

	links := subpageLinks(doc, "https://firm.example.com/", 3)
	assert.Equal(t, []string{
		"https://firm.example.com/about-us",
		"https://firm.example.com/our-team",
		"https://firm.example.com/contact",
	}, links)
}

func TestSubpageLinksRespectsCap(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<html><body>
		<a href="/about">a</a>
		<a href="/team">b</a>
		<a href="/contact">c</a>
	</body></html>`)

	links := subpageLinks(doc, "https://firm.example.com/", 2)
	assert.Len(t, links, 2)
}
