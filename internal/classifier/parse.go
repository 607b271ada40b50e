package classifier

import (
	"encoding/json"
	"regexp"
)

// Models wrap their JSON in markdown fences or surrounding prose often
// enough that strict decoding is not an option. Try a fenced block first,
// then the first bare object.
var (
	fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	bareJSONRe   = regexp.MustCompile(`(?s)\{.*?\}`)
)

// parseOutcome interprets raw model output. Anything that cannot be reduced
// to a valid judgment becomes a ParseFailure carrying the raw text.
func parseOutcome(raw string) Outcome {
	jsonStr := extractJSON(raw)
	if jsonStr == "" {
		return Outcome{ParseFailure: &ParseFailure{Raw: raw}}
	}

	var j Judgment
	if err := json.Unmarshal([]byte(jsonStr), &j); err != nil {
		return Outcome{ParseFailure: &ParseFailure{Raw: raw}}
	}

	// Normalize: unknown types collapse to none, confidence clamps to [0,1].
	switch j.Type {
	case "supports", "contradicts", "extends", OutcomeNone:
	default:
		j.Type = OutcomeNone
	}
	if j.Confidence < 0 {
		j.Confidence = 0
	}
	if j.Confidence > 1 {
		j.Confidence = 1
	}

	return Outcome{Ok: &j}
}

// extractJSON pulls the most plausible JSON object out of model output.
func extractJSON(raw string) string {
	if m := fencedJSONRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	if m := bareJSONRe.FindString(raw); m != "" {
		return m
	}
	return ""
}
