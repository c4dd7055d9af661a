package finder

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/jonathan/comparable-finder/internal/llm"
	"github.com/jonathan/comparable-finder/internal/prompts"
	"github.com/jonathan/comparable-finder/internal/schemas"
	"github.com/jonathan/comparable-finder/internal/types"
)

// candidatePayload is the JSON envelope the model is instructed to return.
type candidatePayload struct {
	Companies []types.RawCandidate `json:"companies"`
}

// parseCandidates turns a raw model response into raw candidate records,
// degrading through three tiers:
//  1. strict: fence-strip, schema-validate, decode
//  2. salvage extraction: isolate the first balanced {...} span and decode
//  3. salvage re-query: ask a lite model to re-extract structured data
//
// If every tier fails the step yields an empty list; the caller decides
// whether the overall search can still succeed.
func (f *Finder) parseCandidates(ctx context.Context, raw string) []types.RawCandidate {
	cleaned := llm.CleanJSONBlock(raw)

	if payload, err := decodeStrict(cleaned); err == nil {
		return payload.Companies
	} else {
		f.log.Debug("strict parse failed, trying extraction", zap.Error(err))
	}

	if span := llm.ExtractJSONObject(cleaned); span != "" {
		var payload candidatePayload
		if err := json.Unmarshal([]byte(span), &payload); err == nil && len(payload.Companies) > 0 {
			return payload.Companies
		}
	}

	companies, err := f.reextract(ctx, raw)
	if err != nil {
		f.log.Warn("all parse tiers failed, treating response as empty", zap.Error(err))
		return nil
	}
	return companies
}

// decodeStrict validates the document against the candidate-list schema and
// decodes it. Schema rejection is an error here; salvage comes later.
func decodeStrict(doc string) (*candidatePayload, error) {
	if err := schemas.ValidateCandidateList(doc); err != nil {
		return nil, err
	}
	var payload candidatePayload
	if err := json.Unmarshal([]byte(doc), &payload); err != nil {
		return nil, &ParseError{Message: "failed to decode candidate payload", Cause: err}
	}
	return &payload, nil
}

// reextract asks a lite-tier model to recover structured data from an
// unstructured response. The raw text is truncated to keep the salvage
// prompt bounded.
func (f *Finder) reextract(ctx context.Context, raw string) ([]types.RawCandidate, error) {
	const maxSalvageLen = 4000
	if len(raw) > maxSalvageLen {
		raw = raw[:maxSalvageLen]
	}

	template := prompts.MustGet("comparables.json", "reextract-companies")
	prompt := prompts.Format(template, map[string]string{"Raw": raw})

	resp, err := f.retry.GenerateJSON(ctx, f.client, prompt, llm.TierLite)
	if err != nil {
		return nil, &APICallError{Message: "salvage re-extraction failed", Cause: err}
	}

	cleaned := llm.CleanJSONBlock(resp)
	if span := llm.ExtractJSONObject(cleaned); span != "" {
		cleaned = span
	}

	var payload candidatePayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, &ParseError{Message: "failed to parse salvage response", Cause: err}
	}
	return payload.Companies, nil
}
