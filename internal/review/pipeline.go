package review

import (
	"context"
	"fmt"
	"log"
)

// EventRecorder receives pipeline events for the audit trail. The audit
// package's Log satisfies it.
type EventRecorder interface {
	Event(ctx context.Context, event, sessionID, stage, summary string)
}

// Pipeline runs a draft through review and refinement. Every stage has a
// single fallback edge: on any failure the original draft passes through
// unchanged with status skipped, so a broken reviewer can never block or
// corrupt report generation.
type Pipeline struct {
	reviewer *Reviewer
	refiner  *Refiner
	audit    EventRecorder
}

// NewPipeline wires the two stages. audit may be nil.
func NewPipeline(reviewer *Reviewer, refiner *Refiner, audit EventRecorder) *Pipeline {
	return &Pipeline{reviewer: reviewer, refiner: refiner, audit: audit}
}

// ReviewAndRefine runs Draft -> Reviewing -> Refining -> Refined. The
// returned outcome always carries a usable draft: on failure it is the
// input, byte for byte, with status skipped.
func (p *Pipeline) ReviewAndRefine(ctx context.Context, draft Draft, sourceMaterial string) (outcome Outcome) {
	stage := StatusDraft
	defer func() {
		if r := recover(); r != nil {
			outcome = p.skip(ctx, draft, stage, fmt.Sprintf("panic: %v", r))
		}
	}()

	stage = StatusReviewing
	result, err := p.reviewer.Review(ctx, draft, sourceMaterial)
	if err != nil {
		return p.skip(ctx, draft, stage, err.Error())
	}

	stage = StatusRefining
	refined, err := p.refiner.Refine(ctx, draft, sourceMaterial, result)
	if err != nil {
		return p.skip(ctx, draft, stage, err.Error())
	}

	return Outcome{Draft: refined, Review: result, Status: StatusRefined}
}

// skip is the fallback edge: emit the original draft, log, and record the
// audit entry.
func (p *Pipeline) skip(ctx context.Context, draft Draft, stage Status, reason string) Outcome {
	log.Printf("review: pipeline skipped draft %s at stage %s: %s", draft.ID, stage, reason)
	if p.audit != nil {
		p.audit.Event(ctx, "review_skipped", draft.ID, string(stage), reason)
	}
	return Outcome{Draft: draft, Status: StatusSkipped}
}
