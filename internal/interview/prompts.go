package interview

import (
	"fmt"
	"strings"

	"github.com/clearscope-ai/clearscope/internal/session"
)

const analyzeSystemPrompt = `You are an analyst interpreting a small-business owner's answer during a discovery interview. Extract factual statements and score how much evidence the answer provides per topic category. Be precise. Never invent facts that the answer does not state or clearly imply.`

// strictSystemPrompt is used on the re-prompt after a schema failure.
const strictSystemPrompt = analyzeSystemPrompt + ` Respond with ONLY a single JSON object matching the requested schema. No prose, no markdown fences, no trailing commentary.`

const analyzeTemplate = `The subject answered an interview question. Extract facts and confidence deltas.

Categories (use only these ids): %s

Question category hint: %s

Return a JSON object with exactly these fields:

{
  "facts": [
    {
      "category": "category id",
      "key": "snake_case identifier for the fact, e.g. employee_count",
      "statement": "short factual restatement",
      "value": 12.0,
      "confidence": "HIGH|MEDIUM|LOW",
      "external_source": false
    }
  ],
  "deltas": [
    {"category": "category id", "points": 0, "strength": "direct|implied|inferred"}
  ],
  "signals": {
    "corrections": [{"fact_key": "key being corrected", "new_statement": "…"}],
    "follow_ups": [{"category": "category id", "text": "follow-up question"}]
  }
}

Rules:
- "value" is optional; include it only when the answer states a number.
- "strength" is "direct" when the subject disclosed it outright, "implied" when it follows from what they said, "inferred" when it is a pattern you deduced.
- Set "external_source" true when the fact cites third-party data the subject cannot verify.
- "points" between 1 and 25 per delta.
- Omit empty arrays.

Known facts so far:
%s

Answer:
%s`

func buildAnalyzePrompt(answerText, categoryHint string, categories []session.Category, known []session.Fact) string {
	ids := make([]string, len(categories))
	for i, c := range categories {
		ids[i] = c.ID
	}

	var knownLines []string
	for _, f := range known {
		if f.SupersededBy != "" {
			continue
		}
		knownLines = append(knownLines, fmt.Sprintf("- [%s] %s: %s", f.Category, f.Key, f.Statement))
	}
	knownBlock := "(none)"
	if len(knownLines) > 0 {
		knownBlock = strings.Join(knownLines, "\n")
	}
	if categoryHint == "" {
		categoryHint = "(none)"
	}

	return fmt.Sprintf(analyzeTemplate, strings.Join(ids, ", "), categoryHint, knownBlock, answerText)
}
