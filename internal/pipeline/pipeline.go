// Package pipeline orchestrates the collection run: search, enrich,
// synthesize, import. Phases run sequentially and each one snapshots its
// output before the next begins, so an interrupted run can resume without
// repeating paid API calls.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lawfinder-au/collector-cli/internal/artifact"
	"github.com/lawfinder-au/collector-cli/internal/enrich"
	"github.com/lawfinder-au/collector-cli/internal/importer"
	"github.com/lawfinder-au/collector-cli/internal/model"
	"github.com/lawfinder-au/collector-cli/internal/report"
	"github.com/lawfinder-au/collector-cli/internal/scorer"
	"github.com/lawfinder-au/collector-cli/internal/slug"
	"github.com/lawfinder-au/collector-cli/internal/store"
	"github.com/lawfinder-au/collector-cli/internal/synth"
	"github.com/lawfinder-au/collector-cli/pkg/geocode"
	"github.com/lawfinder-au/collector-cli/pkg/places"
)

const defaultTerm = "medical negligence lawyer"

// Options configures one collection run.
type Options struct {
	Pairs    []model.SearchPair
	Terms    []string
	MaxPages int
	RadiusM  float64

	Resume     bool
	SkipImport bool
	DryRun     bool
}

// Pipeline wires the phase components together. All downstream clients
// are injected so tests can substitute fakes.
type Pipeline struct {
	places    places.Client
	geocoder  geocode.Client
	enricher  *enrich.Enricher
	store     store.Store
	artifacts *artifact.Dir
	opts      Options

	phases   []model.PhaseResult
	failures []model.ItemFailure
}

// New creates a Pipeline.
func New(pc places.Client, gc geocode.Client, en *enrich.Enricher, st store.Store, art *artifact.Dir, opts Options) *Pipeline {
	if len(opts.Terms) == 0 {
		opts.Terms = []string{defaultTerm}
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 3
	}
	if opts.RadiusM <= 0 {
		opts.RadiusM = 50000
	}
	return &Pipeline{
		places:    pc,
		geocoder:  gc,
		enricher:  en,
		store:     st,
		artifacts: art,
		opts:      opts,
	}
}

// Validate checks the run can start at all. Called before any phase so
// misconfiguration fails fast instead of after paid search calls.
func (p *Pipeline) Validate(ctx context.Context) error {
	if !p.opts.Resume && len(p.opts.Pairs) == 0 {
		return eris.New("pipeline: no search pairs configured")
	}
	if p.opts.SkipImport || p.opts.DryRun {
		return nil
	}
	if p.store == nil {
		return eris.New("pipeline: no store configured and import not skipped")
	}
	if err := p.store.Ping(ctx); err != nil {
		return eris.Wrap(err, "pipeline: destination store unreachable")
	}
	return nil
}

// Run executes the full pipeline and returns the run report.
func (p *Pipeline) Run(ctx context.Context) (*report.Report, error) {
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}

	runTS := time.Now().UTC()
	log := zap.L()
	log.Info("pipeline: starting run",
		zap.Time("run_ts", runTS),
		zap.Int("pairs", len(p.opts.Pairs)),
		zap.Bool("resume", p.opts.Resume),
	)

	var candidates []model.Candidate
	err := p.trackPhase(model.PhaseSearch, func() (int, error) {
		var err error
		candidates, err = p.search(ctx, runTS)
		return len(candidates), err
	})
	if err != nil {
		return nil, err
	}

	var enrichments []model.Enrichment
	err = p.trackPhase(model.PhaseEnrich, func() (int, error) {
		enrichments = p.enrichAll(ctx, candidates)
		if _, werr := p.artifacts.WritePhase(model.PhaseEnrich, runTS, enrichments); werr != nil {
			return len(enrichments), werr
		}
		return len(enrichments), nil
	})
	if err != nil {
		return nil, err
	}

	var records []model.Merged
	err = p.trackPhase(model.PhaseSynthesize, func() (int, error) {
		records = p.synthesize(candidates, enrichments)
		if _, werr := p.artifacts.WritePhase(model.PhaseSynthesize, runTS, records); werr != nil {
			return len(records), werr
		}
		return len(records), nil
	})
	if err != nil {
		return nil, err
	}

	var imp *importer.ImportReport
	if p.opts.SkipImport || p.opts.DryRun {
		log.Info("pipeline: import skipped",
			zap.Bool("skip_import", p.opts.SkipImport),
			zap.Bool("dry_run", p.opts.DryRun),
		)
	} else {
		err = p.trackPhase(model.PhaseImport, func() (int, error) {
			imp = importer.New(p.store).ImportAll(ctx, records)
			for _, e := range imp.Errors {
				p.failures = append(p.failures, model.ItemFailure{
					Phase:   model.PhaseImport,
					Key:     e.Slug,
					Message: e.Message,
				})
			}
			return imp.Total(), nil
		})
		if err != nil {
			return nil, err
		}
	}

	rep := report.Build(records, p.phases, p.failures, imp)
	if _, err := p.artifacts.WriteReport(runTS, rep); err != nil {
		return rep, err
	}

	log.Info("pipeline: run complete",
		zap.Int("records", len(records)),
		zap.Int("failures", len(p.failures)),
	)
	return rep, nil
}

// trackPhase runs one phase, timing it and recording the result. A phase
// error aborts the run; per-item failures inside a phase do not.
func (p *Pipeline) trackPhase(phase model.Phase, fn func() (int, error)) error {
	log := zap.L().With(zap.String("phase", string(phase)))
	log.Info("pipeline: phase starting")

	failedBefore := len(p.failures)
	start := time.Now()
	items, err := fn()
	duration := time.Since(start).Milliseconds()

	result := model.PhaseResult{
		Phase:      phase,
		Items:      items,
		Failed:     len(p.failures) - failedBefore,
		DurationMS: duration,
	}
	if err != nil {
		result.Error = err.Error()
	}
	p.phases = append(p.phases, result)

	if err != nil {
		log.Error("pipeline: phase failed", zap.Int64("duration_ms", duration), zap.Error(err))
		return eris.Wrapf(err, "pipeline: phase %s", phase)
	}
	log.Info("pipeline: phase complete",
		zap.Int("items", items),
		zap.Int("failed", result.Failed),
		zap.Int64("duration_ms", duration),
	)
	return nil
}

// search runs every (pair, term) query, deduplicating across pairs by
// place ID. With --resume it reloads the latest completed snapshot
// instead of touching the API.
func (p *Pipeline) search(ctx context.Context, runTS time.Time) ([]model.Candidate, error) {
	if p.opts.Resume {
		path, ok := p.artifacts.LatestCompleted(model.PhaseSearch)
		if !ok {
			return nil, eris.New("pipeline: --resume requested but no completed search snapshot found")
		}
		var candidates []model.Candidate
		if err := artifact.Load(path, &candidates); err != nil {
			return nil, err
		}
		zap.L().Info("pipeline: resumed from snapshot",
			zap.String("file", path),
			zap.Int("candidates", len(candidates)),
		)
		return candidates, nil
	}

	seen := make(map[string]bool)
	var candidates []model.Candidate

	for _, pair := range p.opts.Pairs {
		lat, lng, biased := p.geocodePair(ctx, pair)

		for _, term := range p.opts.Terms {
			query := fmt.Sprintf("%s %s %s", term, pair.City, pair.StateCode)

			req := places.SearchRequest{Query: query}
			if biased {
				req.Latitude = lat
				req.Longitude = lng
				req.RadiusM = p.opts.RadiusM
			}

			results, err := p.places.SearchPages(ctx, req, p.opts.MaxPages)
			if err != nil {
				// Keep partial pages; record the failure and move on.
				p.failures = append(p.failures, model.ItemFailure{
					Phase:   model.PhaseSearch,
					Key:     query,
					Message: err.Error(),
				})
				zap.L().Warn("pipeline: search failed",
					zap.String("query", query), zap.Error(err))
			}

			added := 0
			for _, place := range results {
				if place.ID == "" || seen[place.ID] {
					continue
				}
				seen[place.ID] = true
				candidates = append(candidates, normalize(place, pair, term, runTS))
				added++
			}
			zap.L().Info("pipeline: searched",
				zap.String("query", query),
				zap.Int("results", len(results)),
				zap.Int("new", added),
			)
		}
	}

	if _, err := p.artifacts.WritePhase(model.PhaseSearch, runTS, candidates); err != nil {
		return nil, err
	}
	return candidates, nil
}

// geocodePair resolves the pair's city for location bias. Failure means
// the search runs unbiased, which is worse but not fatal.
func (p *Pipeline) geocodePair(ctx context.Context, pair model.SearchPair) (lat, lng float64, ok bool) {
	address := fmt.Sprintf("%s, %s, Australia", pair.City, pair.StateCode)
	res, err := p.geocoder.Geocode(ctx, address)
	if err != nil {
		p.failures = append(p.failures, model.ItemFailure{
			Phase:   model.PhaseSearch,
			Key:     address,
			Message: "geocode: " + err.Error(),
		})
		zap.L().Warn("pipeline: geocode failed", zap.String("address", address), zap.Error(err))
		return 0, 0, false
	}
	if !res.Matched {
		zap.L().Warn("pipeline: geocode found nothing", zap.String("address", address))
		return 0, 0, false
	}
	return res.Latitude, res.Longitude, true
}

// enrichAll visits each candidate's website in turn. Enrichment never
// aborts the run; a failed site yields an empty record.
func (p *Pipeline) enrichAll(ctx context.Context, candidates []model.Candidate) []model.Enrichment {
	enrichments := make([]model.Enrichment, 0, len(candidates))
	for _, cand := range candidates {
		enr := p.enricher.Enrich(ctx, cand)
		if enr.Error != "" {
			p.failures = append(p.failures, model.ItemFailure{
				Phase:   model.PhaseEnrich,
				Key:     cand.PlaceID,
				Message: enr.Error,
			})
		}
		enrichments = append(enrichments, enr)
	}
	return enrichments
}

// synthesize joins candidates with their enrichments, generates text,
// claims a run-unique slug, and scores each record.
func (p *Pipeline) synthesize(candidates []model.Candidate, enrichments []model.Enrichment) []model.Merged {
	byPlace := make(map[string]model.Enrichment, len(enrichments))
	for _, enr := range enrichments {
		byPlace[enr.PlaceID] = enr
	}

	slugs := slug.NewRegistry()
	records := make([]model.Merged, 0, len(candidates))

	for _, cand := range candidates {
		rec := model.Merged{
			Candidate:  cand,
			Enrichment: byPlace[cand.PlaceID],
		}
		rec.Slug = slugs.Claim(slug.Make(cand.FirmName, cand.City))
		synth.Fill(&rec)
		rec.Score = scorer.Score(&rec, scorer.Related{})
		records = append(records, rec)
	}
	return records
}
