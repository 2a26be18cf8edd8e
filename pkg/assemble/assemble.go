// Package assemble renders retrieved documents into a single budgeted
// context block for generation.
//
// Fragments keep their retrieval order, exact duplicate contents are
// dropped, and the rendered text never exceeds the token budget. Token
// counts are estimated at a fixed characters-per-token ratio rather than
// by a real tokenizer; the estimate is deliberately conservative for
// English prose and close enough for budgeting.
package assemble

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ragkit-ai/go-ragkit/pkg/rag"
)

var (
	blankRuns   = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// Condense collapses runs of spaces and tabs to a single space and runs of
// three or more newlines to a blank line, leaving the wording untouched.
// Assemble applies it to every fragment, so sloppily extracted documents
// do not waste context budget on whitespace.
func Condense(s string) string {
	s = blankRuns.ReplaceAllString(s, " ")
	s = newlineRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Config holds the assembler's rendering settings. Zero-value fields fall
// back to defaults.
type Config struct {
	// Separator joins rendered fragments (defaults to "\n\n---\n\n").
	Separator string

	// CharsPerToken is the estimation ratio (defaults to 4).
	CharsPerToken int
}

// Assembler is an immutable fragment renderer, safe for concurrent use.
// Per-query settings (threshold, budget) come in with each call.
type Assembler struct {
	separator     string
	charsPerToken int
}

// Verify it implements the orchestrator contract
var _ rag.Assembler = (*Assembler)(nil)

// New creates an Assembler. Pass nil to use defaults.
func New(config *Config) *Assembler {
	if config == nil {
		config = &Config{}
	}
	sep := config.Separator
	if sep == "" {
		sep = "\n\n---\n\n"
	}
	cpt := config.CharsPerToken
	if cpt <= 0 {
		cpt = 4
	}
	return &Assembler{separator: sep, charsPerToken: cpt}
}

// Assemble filters, de-duplicates and renders docs into a context block
// within opts.MaxContextTokens.
//
// Rules, in order:
//   - documents scoring below opts.RelevanceThreshold are dropped
//   - surviving documents keep their input order, never re-sorted
//   - fragment contents are whitespace-condensed (see Condense)
//   - exact duplicate contents are dropped, first occurrence wins
//   - fragments that would push the rendered text past the budget are
//     dropped; when even the first fragment alone exceeds the budget it is
//     truncated to fit, so the budget holds for any input
//
// Dropped counts every document excluded for any of these reasons.
// Returns a CategoryAssembly error when nothing survives filtering.
func (a *Assembler) Assemble(docs []rag.SourceDocument, opts rag.Options) (*rag.AssembledContext, error) {
	if len(docs) == 0 {
		return nil, rag.NewErr(rag.CategoryAssembly, "no documents to assemble")
	}

	dropped := 0
	seen := make(map[string]bool)
	var relevant []rag.SourceDocument
	for _, doc := range docs {
		if doc.Score < opts.RelevanceThreshold {
			dropped++
			continue
		}
		if seen[doc.Content] {
			dropped++
			continue
		}
		seen[doc.Content] = true
		relevant = append(relevant, doc)
	}

	if len(relevant) == 0 {
		return nil, rag.NewErr(rag.CategoryAssembly, "no documents met the relevance threshold")
	}

	budgetChars := opts.MaxContextTokens * a.charsPerToken

	var b strings.Builder
	var included []rag.SourceDocument
	for _, doc := range relevant {
		fragment := a.renderFragment(doc)

		addition := len(fragment)
		if b.Len() > 0 {
			addition += len(a.separator)
		}

		if b.Len()+addition > budgetChars {
			if len(included) == 0 {
				// Even a lone oversized fragment must respect the budget.
				b.WriteString(truncateAtRune(fragment, budgetChars))
				included = append(included, doc)
			} else {
				dropped++
			}
			continue
		}

		if b.Len() > 0 {
			b.WriteString(a.separator)
		}
		b.WriteString(fragment)
		included = append(included, doc)
	}

	text := b.String()
	return &rag.AssembledContext{
		Text:          text,
		Included:      included,
		TokenEstimate: a.EstimateTokens(text),
		Dropped:       dropped,
	}, nil
}

// EstimateTokens returns the estimated token count of s, rounded up.
func (a *Assembler) EstimateTokens(s string) int {
	return (len(s) + a.charsPerToken - 1) / a.charsPerToken
}

// Report describes what Assemble would do with docs at the given
// threshold, without rendering. Useful for tuning thresholds and budgets.
type Report struct {
	Total           int     `json:"total"`
	AboveThreshold  int     `json:"aboveThreshold"`
	Duplicates      int     `json:"duplicates"`
	EstimatedTokens int     `json:"estimatedTokens"`
	MeanScore       float64 `json:"meanScore"`
}

// Inspect computes a pre-assembly Report for docs.
func (a *Assembler) Inspect(docs []rag.SourceDocument, threshold float64) Report {
	r := Report{Total: len(docs)}
	seen := make(map[string]bool)
	chars := 0
	sum := 0.0
	for _, doc := range docs {
		sum += doc.Score
		if doc.Score < threshold {
			continue
		}
		if seen[doc.Content] {
			r.Duplicates++
			continue
		}
		seen[doc.Content] = true
		r.AboveThreshold++
		chars += len(a.renderFragment(doc)) + len(a.separator)
	}
	r.EstimatedTokens = (chars + a.charsPerToken - 1) / a.charsPerToken
	if len(docs) > 0 {
		r.MeanScore = sum / float64(len(docs))
	}
	return r
}

// renderFragment renders one document as a metadata header line plus its
// content. Metadata keys are sorted so output is deterministic.
func (a *Assembler) renderFragment(doc rag.SourceDocument) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[source: %s score: %.2f", doc.ID, doc.Score)

	if len(doc.Metadata) > 0 {
		keys := make([]string, 0, len(doc.Metadata))
		for k := range doc.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, doc.Metadata[k])
		}
	}

	b.WriteString("]\n")
	b.WriteString(Condense(doc.Content))
	return b.String()
}

// truncateAtRune cuts s to at most max bytes without splitting a rune.
func truncateAtRune(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
