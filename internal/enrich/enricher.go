// Package enrich extracts structured signals from candidate websites.
package enrich

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/lawfinder-au/collector-cli/internal/fetcher"
	"github.com/lawfinder-au/collector-cli/internal/model"
)

// likelySubpage matches paths worth a follow-up fetch: about/team/contact
// pages carry most of the extractable signal.
var likelySubpage = regexp.MustCompile(`(?i)/(about([_-]us)?|who-we-are|our-firm|our-team|team|our-people|people|meet-the-team|contact([_-]us)?)/?$`)

// Options configures the enricher.
type Options struct {
	// MaxSubpages bounds follow-up fetches beyond the homepage. Default 3.
	MaxSubpages int
}

// Enricher fetches a candidate's website and extracts an Enrichment.
// Failures of any kind produce a partially-empty record, never an error:
// one unreachable site must not abort the batch.
type Enricher struct {
	client *fetcher.Client
	opts   Options
}

// New creates an Enricher sharing the pipeline's rate-limited client.
func New(client *fetcher.Client, opts Options) *Enricher {
	if opts.MaxSubpages <= 0 {
		opts.MaxSubpages = 3
	}
	return &Enricher{client: client, opts: opts}
}

// Enrich fetches the candidate's homepage plus likely sub-pages and runs
// the extraction rules over everything collected. A candidate without a
// website yields an empty record with Scraped=false, which is not an error.
func (e *Enricher) Enrich(ctx context.Context, cand model.Candidate) model.Enrichment {
	enr := model.Enrichment{PlaceID: cand.PlaceID}
	if cand.Website == "" {
		return enr
	}

	log := zap.L().With(zap.String("firm", cand.FirmName), zap.String("website", cand.Website))

	home, doc, err := e.fetchDoc(ctx, cand.Website)
	if err != nil {
		log.Warn("enrich: homepage fetch failed", zap.Error(err))
		enr.Error = err.Error()
		return enr
	}

	enr.Scraped = true
	enr.PagesFetched = 1
	docs := []*goquery.Document{doc}

	for _, link := range subpageLinks(doc, home.FinalURL, e.opts.MaxSubpages) {
		_, sub, err := e.fetchDoc(ctx, link)
		if err != nil {
			log.Debug("enrich: subpage fetch failed", zap.String("url", link), zap.Error(err))
			continue
		}
		docs = append(docs, sub)
		enr.PagesFetched++
	}

	extract(&enr, docs, home.FinalURL)

	log.Info("enrich: done",
		zap.Int("pages", enr.PagesFetched),
		zap.Int("team_members", len(enr.TeamMembers)),
		zap.Int("specializations", len(enr.Specializations)),
	)
	return enr
}

func (e *Enricher) fetchDoc(ctx context.Context, rawURL string) (*fetcher.Response, *goquery.Document, error) {
	resp, err := e.client.Get(ctx, rawURL)
	if err != nil {
		return nil, nil, err
	}
	if !resp.IsHTML() {
		return nil, nil, errNonHTML
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, nil, err
	}
	return resp, doc, nil
}

// subpageLinks finds same-host anchors pointing at about/team/contact
// pages, deduplicated, capped at max.
func subpageLinks(doc *goquery.Document, baseURL string, max int) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	seen := map[string]bool{base.String(): true}
	var links []string

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
			return true
		}

		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		resolved := base.ResolveReference(ref)
		resolved.Fragment = ""
		resolved.RawQuery = ""

		if resolved.Host != base.Host {
			return true
		}
		if !likelySubpage.MatchString(resolved.Path) {
			return true
		}

		key := resolved.String()
		if seen[key] {
			return true
		}
		seen[key] = true
		links = append(links, key)
		return len(links) < max
	})

	return links
}
