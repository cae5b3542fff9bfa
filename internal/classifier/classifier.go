package classifier

import (
	"regexp"
	"strings"
)

// Classifier decides whether an any-type occurrence is intentional (keep and
// document) or unintentional (replace with a precise type). Rules are
// evaluated in a fixed order; the first match wins.
type Classifier struct{}

// New creates a Classifier.
func New() *Classifier {
	return &Classifier{}
}

var (
	intentionalCommentRe = regexp.MustCompile(`(?i)\b(intentional|intentionally|deliberate|deliberately|required for|must be any)\b`)
	disableDirectiveRe   = regexp.MustCompile(`eslint-disable.*no-explicit-any\s*--\s*\S`)

	arrayAnyRe      = regexp.MustCompile(`\bany\[\]|\bArray<\s*any\s*>`)
	recordAnyRe     = regexp.MustCompile(`\bRecord<\s*string\s*,\s*any\s*>`)
	indexSigAnyRe   = regexp.MustCompile(`\[\s*\w+\s*:\s*string\s*\]\s*:\s*any\b`)
	catchAnyRe      = regexp.MustCompile(`catch\s*\(\s*\w+\s*:\s*any\s*\)`)
	errorAssignRe   = regexp.MustCompile(`\b(error|err)\s*:\s*any\b`)
	mockShapeRe     = regexp.MustCompile(`(?i)\b(mock|stub|fixture|jest\.fn|vi\.fn)\b`)
	apiVocabularyRe = regexp.MustCompile(`(?i)\b(fetch|axios|api\s*response|response\.json|endpoint)\b`)
	configVocabRe   = regexp.MustCompile(`(?i)\b(dynamic\s*config|adaptive|configurable|feature\s*flag)\b`)
)

// domainReplacements names the concrete type a domain implies, when it does.
var domainReplacements = map[CodeDomain]string{
	DomainAstrological: "PlanetaryPosition",
	DomainRecipe:       "Recipe",
}

// Classify applies the rule chain to a single occurrence.
func (c *Classifier) Classify(ctx Context) Result {
	snippet := strings.TrimSpace(ctx.CodeSnippet)
	if snippet == "" {
		return Result{
			IsIntentional: false,
			Category:      CategoryUnclassified,
			Confidence:    0.2,
			Reasoning:     "empty or malformed context; defaulting to unintentional with low confidence",
		}
	}

	context := snippet + "\n" + strings.Join(ctx.SurroundingLines, "\n")

	// Rule 1: explicit human documentation wins outright.
	if ctx.HasExistingComment && (intentionalCommentRe.MatchString(ctx.ExistingComment) || disableDirectiveRe.MatchString(ctx.ExistingComment)) {
		return Result{
			IsIntentional:         true,
			Category:              CategoryDocumented,
			Confidence:            0.98,
			Reasoning:             "adjacent comment documents the any-type as intentional",
			RequiresDocumentation: false,
		}
	}
	if disableDirectiveRe.MatchString(context) {
		return Result{
			IsIntentional:         true,
			Category:              CategoryDocumented,
			Confidence:            0.95,
			Reasoning:             "disable directive with explanation covers this occurrence",
			RequiresDocumentation: false,
		}
	}

	// Rule 2: test files keep array/mock-shaped occurrences.
	if ctx.IsInTestFile && (arrayAnyRe.MatchString(snippet) || mockShapeRe.MatchString(context)) {
		return Result{
			IsIntentional:         true,
			Category:              CategoryTestMock,
			Confidence:            0.85,
			Reasoning:             "test-file mock or fixture; flexible typing is deliberate",
			RequiresDocumentation: false,
		}
	}

	// Rule 3: structural shapes have canonical replacements.
	switch {
	case arrayAnyRe.MatchString(snippet):
		return Result{
			IsIntentional:        false,
			Category:             CategoryArrayType,
			Confidence:           0.95,
			SuggestedReplacement: "unknown[]",
			Reasoning:            "bare any array; unknown[] preserves flexibility without disabling checks",
		}
	case recordAnyRe.MatchString(snippet):
		return Result{
			IsIntentional:        false,
			Category:             CategoryRecordType,
			Confidence:           0.95,
			SuggestedReplacement: "Record<string, unknown>",
			Reasoning:            "any-valued record; Record<string, unknown> is the safe equivalent",
		}
	case indexSigAnyRe.MatchString(snippet):
		return Result{
			IsIntentional:        false,
			Category:             CategoryIndexSignature,
			Confidence:           0.9,
			SuggestedReplacement: "[key: string]: unknown",
			Reasoning:            "any-valued index signature; unknown forces narrowing at use sites",
		}
	}

	// Rule 4: error-handling shapes are intentional.
	if catchAnyRe.MatchString(snippet) || errorAssignRe.MatchString(snippet) {
		return Result{
			IsIntentional:         true,
			Category:              CategoryErrorHandling,
			Confidence:            0.9,
			Reasoning:             "caught error values are untyped by the language; any is conventional here",
			RequiresDocumentation: true,
		}
	}

	// Rule 5: domain-context hints bias toward intentional.
	if apiVocabularyRe.MatchString(context) {
		return Result{
			IsIntentional:         true,
			Category:              CategoryExternalAPI,
			Confidence:            0.75,
			SuggestedReplacement:  "unknown",
			Reasoning:             "external API response shape; prefer unknown plus a validated cast",
			RequiresDocumentation: true,
		}
	}
	if configVocabRe.MatchString(context) {
		return Result{
			IsIntentional:         true,
			Category:              CategoryDynamicConfig,
			Confidence:            0.7,
			Reasoning:             "dynamic configuration value; shape varies at runtime",
			RequiresDocumentation: true,
		}
	}
	if repl, ok := domainReplacements[ctx.Domain]; ok {
		return Result{
			IsIntentional:         true,
			Category:              CategoryDomainData,
			Confidence:            0.7,
			SuggestedReplacement:  repl,
			Reasoning:             "domain data with a known concrete type available",
			RequiresDocumentation: true,
		}
	}

	// Rule 6: default unintentional; confidence shrinks with missing context.
	confidence := 0.6
	if len(ctx.SurroundingLines) == 0 {
		confidence -= 0.2
	}
	if ctx.Domain == DomainUnknown || ctx.Domain == "" {
		confidence -= 0.1
	}
	return Result{
		IsIntentional:        false,
		Category:             CategoryUnclassified,
		Confidence:           confidence,
		SuggestedReplacement: "unknown",
		Reasoning:            "no intentional signal found; replace with a precise type or unknown",
	}
}

// ClassifyBatch classifies each context independently. A malformed entry
// never aborts the batch; it degrades to the low-confidence default.
func (c *Classifier) ClassifyBatch(contexts []Context) []Result {
	results := make([]Result, len(contexts))
	for i, ctx := range contexts {
		results[i] = c.Classify(ctx)
	}
	return results
}

// DomainForPath guesses the code domain from a file path.
func DomainForPath(path string) CodeDomain {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, ".test.") || strings.Contains(lower, ".spec.") || strings.Contains(lower, "__tests__"):
		return DomainTest
	case strings.Contains(lower, "astro") || strings.Contains(lower, "planetary") || strings.Contains(lower, "celestial"):
		return DomainAstrological
	case strings.Contains(lower, "recipe") || strings.Contains(lower, "ingredient") || strings.Contains(lower, "kitchen"):
		return DomainRecipe
	case strings.Contains(lower, "campaign"):
		return DomainCampaign
	case strings.Contains(lower, "service") || strings.Contains(lower, "/api/"):
		return DomainService
	case strings.Contains(lower, "component") || strings.Contains(lower, ".tsx"):
		return DomainComponent
	default:
		return DomainUnknown
	}
}
