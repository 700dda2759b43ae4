package ollama

import (
	"fmt"
	"strconv"
	"strings"
)

const maxVerificationContext = 8000

func buildVerificationPrompt(answer, contextText string) string {
	if len(contextText) > maxVerificationContext {
		contextText = contextText[:maxVerificationContext]
	}

	return fmt.Sprintf(`You are a fact-checking judge. Decide whether the ANSWER is fully supported by the CONTEXT.

CONTEXT:
%s

ANSWER:
%s

Reply with exactly two lines and nothing else:
FAITHFUL: YES, PARTIAL or NO
CONFIDENCE: a number between 0.0 and 1.0`, contextText, answer)
}

// parseVerificationResponse maps the judge's verdict and confidence to
// one support score. A missing confidence line is an error so the
// caller can fall back to its conservative default.
func parseVerificationResponse(raw string) (float64, error) {
	verdictWeight := -1.0
	confidence := -1.0

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "FAITHFUL:"):
			switch {
			case strings.Contains(upper, "YES"):
				verdictWeight = 1.0
			case strings.Contains(upper, "PARTIAL"):
				verdictWeight = 0.5
			case strings.Contains(upper, "NO"):
				verdictWeight = 0.0
			}
		case strings.HasPrefix(upper, "CONFIDENCE:"):
			value := strings.TrimSpace(line[len("CONFIDENCE:"):])
			parsed, err := strconv.ParseFloat(value, 64)
			if err == nil {
				confidence = parsed
			}
		}
	}

	if verdictWeight < 0 || confidence < 0 {
		return 0, fmt.Errorf("missing FAITHFUL or CONFIDENCE line in %q", raw)
	}
	if confidence > 1 {
		confidence = 1
	}
	return verdictWeight * confidence, nil
}
