package usecase

import (
	"fmt"
	"strings"
)

const qaPromptTemplate = `You are an insurance policy assistant. Answer the question using ONLY the provided policy documents.

Rules:
- Treat PERSONAL POLICY DOCUMENTS as the user's actual coverage; GENERAL INSURANCE GUIDES are educational background only.
- Quote exact figures (limits, deductibles, percentages) as they appear in the documents.
- If the documents do not contain the answer, say so plainly instead of guessing.

Documents:
%s

Question: %s

Answer:`

func buildQAPrompt(question, context string) string {
	return fmt.Sprintf(qaPromptTemplate, context, question)
}

const coveragePromptTemplate = `You are an insurance claims analyst. Determine whether the described scenario is covered, using ONLY the provided policy documents.

Documents:
%s

Scenario: %s

Respond with a single JSON object, no prose around it:
{
  "is_covered": true or false,
  "determination": "one-paragraph explanation citing the policy language",
  "policy_section": "section reference or empty string",
  "coverage_limit": "applicable limit or empty string",
  "deductible": "applicable deductible or empty string",
  "exclusions_checked": [{"section": "", "description": "", "applies": false}],
  "conditions": "conditions the policyholder must meet, or empty string"
}`

func buildCoveragePrompt(scenario, context string) string {
	return fmt.Sprintf(coveragePromptTemplate, context, scenario)
}

const comparePromptTemplate = `You are an insurance policy analyst. Compare the policies below on one aspect, using ONLY the provided policy documents.

Documents:
%s

Aspect to compare: %s
Policies present: %s

Respond with a single JSON object, no prose around it:
{
  "items": [{"policy_type": "", "policy_number": "", "value": "", "section": "", "notes": ""}],
  "summary": "one-paragraph comparison"
}`

func buildComparePrompt(aspect, context string, policyTypes []string) string {
	return fmt.Sprintf(comparePromptTemplate, context, aspect, strings.Join(policyTypes, ", "))
}

// extractJSONObject tolerates models wrapping JSON in code fences or
// prose: it returns the substring from the first '{' to its matching
// closing brace, tracking strings so braces inside values do not
// unbalance the scan.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
