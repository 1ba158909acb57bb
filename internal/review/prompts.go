package review

import (
	"fmt"
	"strings"

	"github.com/clearscope-ai/clearscope/internal/knowledge"
)

const reviewSystemPrompt = `You are a meticulous fact-checker reviewing a business-analysis report draft against its source material. Score the draft and list the problems you find. Judge only against the provided material. Never invent source content.`

const reviewStrictSystemPrompt = reviewSystemPrompt + ` Respond with ONLY a single JSON object matching the requested schema. No prose, no markdown fences, no trailing commentary.`

const reviewTemplate = `Review this report draft against the source material.

Check four things:
1. quote_accuracy - every quoted passage matches the source verbatim.
2. calculation_accuracy - every figure survives recomputation from its inputs.
3. coverage - significant findings in the source appear in the draft.
4. source_grounding - every claim traces to the source material.

Return a JSON object with exactly these fields:

{
  "quote_accuracy": 0.0,
  "calculation_accuracy": 0.0,
  "coverage": 0.0,
  "source_grounding": 0.0,
  "overall": 0.0,
  "corrections": [
    {"kind": "quote|calculation|citation|unverified", "before": "text as drafted", "after": "corrected text", "reason": "short reason"}
  ],
  "additions": ["finding present in the source but missing from the draft"]
}

Rules:
- Scores are 0-10. overall is your holistic judgment, not an average.
- Report a correction only when you can state the corrected text.
- A draft with no problems gets empty corrections and additions.

Quoted passages found in the draft:
%s

Figures found in the draft:
%s

Declared figures with inputs:
%s

Source material:
%s

Draft:
%s`

func buildReviewPrompt(draft Draft, sourceMaterial string, signals DraftSignals) string {
	var declared []string
	for _, f := range draft.Figures {
		declared = append(declared, fmt.Sprintf("- %s = %g (inputs: %v)", f.Label, f.Value, f.Inputs))
	}
	return fmt.Sprintf(reviewTemplate,
		bulletsOrNone(signals.Quotes),
		bulletsOrNone(signals.Figures),
		listOrNone(declared),
		orNone(sourceMaterial),
		draft.Content,
	)
}

const refineSystemPrompt = `You are an editor refining a business-analysis report draft. Apply the reviewer's corrections and ground claims in the reference knowledge provided. Preserve the draft's structure and voice. Never delete a claim; mark what you cannot verify.`

const refineStrictSystemPrompt = refineSystemPrompt + ` Respond with ONLY a single JSON object matching the requested schema. No prose, no markdown fences, no trailing commentary.`

const refineTemplate = `Refine this draft by applying the reviewer's findings.

Return a JSON object with exactly these fields:

{
  "content": "the full refined markdown draft",
  "claims": [
    {"text": "claim as it appears in the refined draft", "citation": "source reference or empty", "confidence": "HIGH|MEDIUM|LOW", "unverified": false}
  ],
  "corrections": [
    {"kind": "quote|calculation|citation|unverified", "before": "…", "after": "…", "reason": "…"}
  ]
}

Rules:
- Apply every reviewer correction; recompute figures from their inputs.
- Attach citations from the reference knowledge where a claim matches it.
- A claim with no support anywhere is kept, marked "unverified": true with "confidence": "LOW".
- If nothing needs changing, return the draft content unchanged with empty corrections.

Reviewer findings:
%s

Reference knowledge (%s industry):
%s

Source material:
%s

Draft:
%s`

func buildRefinePrompt(draft Draft, sourceMaterial string, result *ReviewResult, grounding []knowledge.SearchResult) string {
	findings, _ := marshalIndent(result)

	var refs []string
	for _, g := range grounding {
		refs = append(refs, fmt.Sprintf("- [%s/%s] %s: %s", g.Item.ContentType, g.Item.ContentID, g.Item.Title, g.Item.Body))
	}

	industry := draft.Industry
	if industry == "" {
		industry = "unspecified"
	}
	return fmt.Sprintf(refineTemplate,
		findings,
		industry,
		listOrNone(refs),
		orNone(sourceMaterial),
		draft.Content,
	)
}

func bulletsOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = "- " + s
	}
	return strings.Join(out, "\n")
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, "\n")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
