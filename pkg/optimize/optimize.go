// Package optimize rewrites raw user queries before retrieval: whitespace
// and case normalization, acronym expansion, keyword extraction, plus
// intent and complexity classification. All operations are pure functions
// of the input, so results are safe to cache and to key caches on.
package optimize

import (
	"fmt"
	"strings"

	"github.com/ragkit-ai/go-ragkit/pkg/rag"
)

const detailHint = " Please be specific and provide details where appropriate."

// Config holds the optimizer's vocabulary. Zero-value fields fall back to
// the built-in defaults.
type Config struct {
	// Acronym expansion table; keys are matched case-insensitively.
	Acronyms map[string]string

	// Words removed during keyword extraction.
	StopWords []string
}

// Optimizer is an immutable query rewriter. Construct it once and share
// it; all methods are safe for concurrent use.
type Optimizer struct {
	acronyms  map[string]string // keys uppercased
	stopWords map[string]struct{}
}

// Verify it implements the orchestrator contract
var _ rag.Optimizer = (*Optimizer)(nil)

// New creates an Optimizer. Pass nil to use the default vocabulary.
func New(config *Config) *Optimizer {
	if config == nil {
		config = &Config{}
	}

	acronyms := config.Acronyms
	if acronyms == nil {
		acronyms = DefaultAcronyms()
	}
	stopWords := config.StopWords
	if stopWords == nil {
		stopWords = DefaultStopWords()
	}

	o := &Optimizer{
		acronyms:  make(map[string]string, len(acronyms)),
		stopWords: make(map[string]struct{}, len(stopWords)),
	}
	for k, v := range acronyms {
		o.acronyms[strings.ToUpper(k)] = v
	}
	for _, w := range stopWords {
		o.stopWords[strings.ToLower(w)] = struct{}{}
	}
	return o
}

// Optimize derives the full optimization result for a raw query.
func (o *Optimizer) Optimize(query string) rag.OptimizedQuery {
	normalized := normalize(query)
	return rag.OptimizedQuery{
		Original:   query,
		Normalized: normalized,
		Expanded:   o.expandAcronyms(normalized),
		Intent:     classifyIntent(normalized),
		Complexity: classifyComplexity(normalized),
		Keywords:   o.keywords(normalized),
	}
}

// OptimizePrompt nudges the model toward concrete answers unless the
// prompt already asks for specifics.
func (o *Optimizer) OptimizePrompt(prompt string) string {
	lower := strings.ToLower(prompt)
	if strings.Contains(lower, "specific") || strings.Contains(lower, "detail") {
		return prompt
	}
	return prompt + detailHint
}

// Analysis describes a query's structure and flags issues that tend to
// hurt retrieval quality.
type Analysis struct {
	Words      int            `json:"words"`
	Characters int            `json:"characters"`
	Intent     rag.Intent     `json:"intent"`
	Complexity rag.Complexity `json:"complexity"`
	Keywords   []string       `json:"keywords,omitempty"`
	Issues     []string       `json:"issues,omitempty"`
}

// Analyze inspects a raw query without rewriting it. An empty Issues slice
// means nothing looked problematic. Safe on empty input.
func (o *Optimizer) Analyze(query string) Analysis {
	normalized := normalize(query)
	words := 0
	if normalized != "" {
		words = len(strings.Split(normalized, " "))
	}

	a := Analysis{
		Words:      words,
		Characters: len(query),
		Intent:     classifyIntent(normalized),
		Complexity: classifyComplexity(normalized),
		Keywords:   o.keywords(normalized),
	}
	if words < 2 {
		a.Issues = append(a.Issues, "query is too short to retrieve against")
	}
	if len(query) > rag.MaxQueryLength {
		a.Issues = append(a.Issues, "query exceeds the maximum length")
	}
	if words > 0 && len(a.Keywords) == 0 {
		a.Issues = append(a.Issues, "query contains only stop words")
	}
	return a
}

// SuggestAlternatives proposes rephrasings of a query that tend to
// retrieve better. Returns nil when the query has no usable keywords.
func (o *Optimizer) SuggestAlternatives(query string) []string {
	normalized := normalize(query)
	keywords := o.keywords(normalized)
	if len(keywords) == 0 {
		return nil
	}

	subject := strings.Join(keywords, " ")
	var out []string

	switch classifyIntent(normalized) {
	case rag.IntentDefinition:
		out = append(out,
			fmt.Sprintf("Explain %s in simple terms", subject),
			fmt.Sprintf("How is %s used in practice?", subject))
	case rag.IntentProcedural:
		out = append(out,
			fmt.Sprintf("What are the steps to %s?", subject),
			fmt.Sprintf("What is %s?", subject))
	case rag.IntentCausal:
		out = append(out,
			fmt.Sprintf("What causes %s?", subject),
			fmt.Sprintf("What is %s?", subject))
	case rag.IntentComparison:
		out = append(out,
			fmt.Sprintf("What are the differences in %s?", subject))
	default:
		out = append(out,
			fmt.Sprintf("What is %s?", subject),
			fmt.Sprintf("How does %s work?", subject))
	}

	if subject != normalized {
		out = append(out, subject)
	}
	return out
}

// normalize trims, collapses internal whitespace and lowercases.
func normalize(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// expandAcronyms replaces known acronyms with "expansion (ACRONYM)".
// Each acronym expands at most once per query.
func (o *Optimizer) expandAcronyms(normalized string) string {
	if normalized == "" {
		return ""
	}

	seen := make(map[string]bool)
	words := strings.Split(normalized, " ")
	for i, word := range words {
		core, trailing := splitTrailingPunct(word)
		key := strings.ToUpper(core)
		expansion, ok := o.acronyms[key]
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		words[i] = fmt.Sprintf("%s (%s)%s", expansion, key, trailing)
	}
	return strings.Join(words, " ")
}

// keywords returns the non-stop-word tokens in input order, de-duplicated.
func (o *Optimizer) keywords(normalized string) []string {
	if normalized == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	for _, word := range strings.Split(normalized, " ") {
		token := strings.Trim(word, ".,!?;:\"'()")
		if token == "" {
			continue
		}
		if _, stop := o.stopWords[token]; stop {
			continue
		}
		if seen[token] {
			continue
		}
		seen[token] = true
		out = append(out, token)
	}
	return out
}

func classifyIntent(normalized string) rag.Intent {
	switch {
	case strings.Contains(normalized, " vs ") ||
		strings.Contains(normalized, " versus ") ||
		strings.Contains(normalized, "compare") ||
		strings.Contains(normalized, "difference between"):
		return rag.IntentComparison
	case strings.HasPrefix(normalized, "how ") || strings.Contains(normalized, "how to"):
		return rag.IntentProcedural
	case strings.HasPrefix(normalized, "why "):
		return rag.IntentCausal
	case strings.HasPrefix(normalized, "what is") ||
		strings.HasPrefix(normalized, "what are") ||
		strings.HasPrefix(normalized, "define ") ||
		strings.Contains(normalized, "meaning of"):
		return rag.IntentDefinition
	default:
		return rag.IntentGeneral
	}
}

func classifyComplexity(normalized string) rag.Complexity {
	words := 0
	if normalized != "" {
		words = len(strings.Split(normalized, " "))
	}
	sentences := countSentences(normalized)

	switch {
	case words < 3:
		return rag.ComplexitySimple
	case words < 8 && sentences <= 1 && !hasConjunction(normalized):
		return rag.ComplexityModerate
	case words < 15 && sentences <= 2:
		return rag.ComplexityComplex
	default:
		return rag.ComplexityVeryComplex
	}
}

// countSentences counts runs of sentence terminators, so "what?!" is one
// sentence.
func countSentences(s string) int {
	count := 0
	inRun := false
	for _, r := range s {
		if r == '.' || r == '!' || r == '?' {
			if !inRun {
				count++
				inRun = true
			}
		} else {
			inRun = false
		}
	}
	if count == 0 && s != "" {
		return 1
	}
	return count
}

func hasConjunction(normalized string) bool {
	for _, word := range strings.Split(normalized, " ") {
		token := strings.Trim(word, ".,!?;:")
		for _, c := range conjunctions {
			if token == c {
				return true
			}
		}
	}
	return false
}

func splitTrailingPunct(word string) (core, trailing string) {
	i := len(word)
	for i > 0 && strings.ContainsRune(".,!?;:\"')", rune(word[i-1])) {
		i--
	}
	return word[:i], word[i:]
}
