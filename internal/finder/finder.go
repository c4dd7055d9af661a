// Package finder implements the comparable-company pipeline: prompt the
// model for candidates with discovery and validation fields in one payload,
// parse with salvage tiers, filter by similarity thresholds, deduplicate, and
// re-query once when too few candidates survive.
package finder

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/comparable-finder/internal/llm"
	"github.com/jonathan/comparable-finder/internal/prompts"
	"github.com/jonathan/comparable-finder/internal/sitefetch"
	"github.com/jonathan/comparable-finder/internal/types"
)

// Pipeline bounds.
const (
	DefaultMinResults     = 3
	DefaultMaxResults     = 10
	DefaultScoreThreshold = 6
)

// Config holds explicit pipeline configuration; no process-global state.
type Config struct {
	Client         llm.Client
	Retry          llm.RetryPolicy
	Logger         *zap.Logger
	SiteFetcher    *sitefetch.Fetcher // optional prompt enrichment
	MinResults     int
	MaxResults     int
	ScoreThreshold int
}

// Finder runs the comparable-company pipeline.
type Finder struct {
	client    llm.Client
	retry     llm.RetryPolicy
	log       *zap.Logger
	site      *sitefetch.Fetcher
	min       int
	max       int
	threshold int
}

// New creates a Finder. Missing bounds fall back to the defaults; a nil
// logger disables logging.
func New(cfg Config) (*Finder, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("LLM client is required")
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = llm.DefaultRetryPolicy()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MinResults == 0 {
		cfg.MinResults = DefaultMinResults
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.ScoreThreshold == 0 {
		cfg.ScoreThreshold = DefaultScoreThreshold
	}
	if cfg.MinResults > cfg.MaxResults {
		return nil, fmt.Errorf("min results %d exceeds max results %d", cfg.MinResults, cfg.MaxResults)
	}

	return &Finder{
		client:    cfg.Client,
		retry:     cfg.Retry,
		log:       cfg.Logger,
		site:      cfg.SiteFetcher,
		min:       cfg.MinResults,
		max:       cfg.MaxResults,
		threshold: cfg.ScoreThreshold,
	}, nil
}

// Find returns between MinResults and MaxResults validated comparable
// companies for the target, or an error. On success every returned candidate
// has both similarity scores at or above the threshold and a name distinct
// from every other candidate's, case-insensitively.
func (f *Finder) Find(ctx context.Context, target types.TargetCompany) ([]types.CandidateCompany, error) {
	f.log.Info("finding comparables", zap.String("target", target.Name))

	prompt := f.buildDiscoveryPrompt(ctx, target)

	resp, err := f.retry.GenerateJSON(ctx, f.client, prompt, llm.TierStandard)
	if err != nil {
		return nil, &APICallError{Message: "discovery query failed", Cause: err}
	}

	rawCandidates := f.parseCandidates(ctx, resp)
	kept, seen := f.filter(rawCandidates, nil)

	if len(kept) < f.min {
		f.log.Info("insufficient candidates, issuing supplementary query",
			zap.Int("kept", len(kept)), zap.Int("min", f.min))
		kept = f.findAdditional(ctx, target, kept, seen)
	}

	if len(kept) < f.min {
		return nil, &InsufficientResultsError{Found: len(kept), Min: f.min}
	}

	if len(kept) > f.max {
		kept = kept[:f.max]
	}
	return kept, nil
}

// buildDiscoveryPrompt renders the main prompt, appending a website excerpt
// when the site fetcher is configured and the fetch succeeds.
func (f *Finder) buildDiscoveryPrompt(ctx context.Context, target types.TargetCompany) string {
	siteExcerpt := ""
	if f.site != nil {
		excerpt, err := f.site.Excerpt(ctx, target.URL)
		if err != nil {
			f.log.Debug("site excerpt unavailable", zap.String("url", target.URL), zap.Error(err))
		} else if excerpt != "" {
			siteExcerpt = "\n- Website Excerpt: " + excerpt
		}
	}

	template := prompts.MustGet("comparables.json", "find-comparables")
	return prompts.Format(template, map[string]string{
		"Name":        target.Name,
		"URL":         target.URL,
		"Description": target.BusinessDescription,
		"Industry":    target.PrimaryIndustryClassification,
		"SiteExcerpt": siteExcerpt,
	})
}

// findAdditional issues the single supplementary query, excluding every name
// already considered, and merges survivors with the existing list.
func (f *Finder) findAdditional(ctx context.Context, target types.TargetCompany, kept []types.CandidateCompany, seen map[string]bool) []types.CandidateCompany {
	exclude := make([]string, 0, len(seen))
	for name := range seen {
		exclude = append(exclude, name)
	}

	template := prompts.MustGet("comparables.json", "find-additional")
	prompt := prompts.Format(template, map[string]string{
		"FoundCount":   fmt.Sprintf("%d", len(kept)),
		"MinResults":   fmt.Sprintf("%d", f.min),
		"Name":         target.Name,
		"Description":  target.BusinessDescription,
		"Industry":     target.PrimaryIndustryClassification,
		"ExcludeNames": strings.Join(exclude, ", "),
	})

	resp, err := f.retry.GenerateJSON(ctx, f.client, prompt, llm.TierStandard)
	if err != nil {
		// The supplementary query is best-effort; the caller enforces the minimum.
		f.log.Warn("supplementary query failed", zap.Error(err))
		return kept
	}

	additional, _ := f.filter(f.parseCandidates(ctx, resp), seen)
	return append(kept, additional...)
}

// filter applies the acceptance rule and case-insensitive name deduplication,
// preserving input order. A candidate is kept only when the model's own
// comparability flag is true and both scores meet the threshold; anything
// malformed fails closed. seen carries exclusions from a previous round and
// is updated with every considered name, kept or not, so the supplementary
// query does not resurface rejected companies.
func (f *Finder) filter(raw []types.RawCandidate, seen map[string]bool) ([]types.CandidateCompany, map[string]bool) {
	if seen == nil {
		seen = make(map[string]bool)
	}

	var kept []types.CandidateCompany
	for _, rc := range raw {
		candidate, comparable := types.CandidateFromRaw(rc)
		if candidate.Name == "" {
			continue
		}

		nameKey := strings.ToLower(candidate.Name)
		if seen[nameKey] {
			continue
		}
		seen[nameKey] = true

		if !comparable ||
			candidate.ProductsSimilarityScore < f.threshold ||
			candidate.CustomerSimilarityScore < f.threshold {
			f.log.Debug("candidate rejected",
				zap.String("name", candidate.Name),
				zap.Bool("is_comparable", comparable),
				zap.Int("products_score", candidate.ProductsSimilarityScore),
				zap.Int("customer_score", candidate.CustomerSimilarityScore))
			continue
		}

		f.log.Debug("candidate accepted", zap.String("name", candidate.Name))
		kept = append(kept, candidate)
	}
	return kept, seen
}
