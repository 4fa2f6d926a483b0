package search

import (
	"strings"

	"github.com/duclm1x1/dive-engine/internal/store"
)

// DefaultSynonyms bridges common vocabulary gaps between query phrasing
// and indexed text. Keys are lowercase terms; values are the terms the
// reformulation may add alongside the original.
var DefaultSynonyms = map[string][]string{
	"error":   {"failure", "fault"},
	"failure": {"error", "fault"},
	"bug":     {"defect", "error"},
	"fix":     {"repair", "patch"},
	"delete":  {"remove", "drop"},
	"remove":  {"delete", "drop"},
	"create":  {"add", "insert"},
	"add":     {"create", "insert"},
	"find":    {"search", "locate"},
	"search":  {"find", "query"},
	"doc":     {"document"},
	"config":  {"configuration", "settings"},
	"setting": {"configuration", "option"},
	"price":   {"cost", "amount"},
	"cost":    {"price", "amount"},
	"start":   {"begin", "launch"},
	"stop":    {"halt", "end"},
	"fast":    {"quick", "rapid"},
	"slow":    {"sluggish", "latency"},
}

// QueryExpander produces a reformulated query for the corrective pass:
// drop stop terms that dilute lexical matching, then add a bounded
// number of synonyms for the terms that remain.
type QueryExpander struct {
	synonyms      map[string][]string
	stopWords     map[string]struct{}
	maxExpansions int
}

// QueryExpanderOption configures the query expander.
type QueryExpanderOption func(*QueryExpander)

// WithMaxExpansions sets the maximum synonyms added per term.
func WithMaxExpansions(n int) QueryExpanderOption {
	return func(e *QueryExpander) {
		e.maxExpansions = n
	}
}

// WithCustomSynonyms adds custom synonym mappings.
func WithCustomSynonyms(synonyms map[string][]string) QueryExpanderOption {
	return func(e *QueryExpander) {
		for k, v := range synonyms {
			e.synonyms[k] = append(e.synonyms[k], v...)
		}
	}
}

// NewQueryExpander creates an expander with the default synonym table
// and the indexer's stop word list.
func NewQueryExpander(opts ...QueryExpanderOption) *QueryExpander {
	e := &QueryExpander{
		synonyms:      make(map[string][]string, len(DefaultSynonyms)),
		stopWords:     store.BuildStopWordMap(store.DefaultStopWords),
		maxExpansions: 2,
	}
	for k, v := range DefaultSynonyms {
		e.synonyms[k] = v
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reformulate rewrites a query for the second retrieval attempt.
// The result keeps the original non-stop terms in order, then appends
// synonyms. If stripping stop words would leave nothing, the original
// terms are kept so the reformulated query is never empty.
func (e *QueryExpander) Reformulate(query string) string {
	terms := store.TokenizeText(query)
	if len(terms) == 0 {
		return query
	}

	kept := make([]string, 0, len(terms))
	for _, term := range terms {
		if _, stop := e.stopWords[term]; stop {
			continue
		}
		kept = append(kept, term)
	}
	if len(kept) == 0 {
		kept = terms
	}

	seen := make(map[string]bool, len(kept))
	expanded := make([]string, 0, len(kept)*2)
	for _, term := range kept {
		if !seen[term] {
			expanded = append(expanded, term)
			seen[term] = true
		}
	}

	for _, term := range kept {
		added := 0
		for _, syn := range e.synonyms[term] {
			lower := strings.ToLower(syn)
			if seen[lower] || added >= e.maxExpansions {
				continue
			}
			expanded = append(expanded, lower)
			seen[lower] = true
			added++
		}
	}

	return strings.Join(expanded, " ")
}
