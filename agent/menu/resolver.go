package menu

import (
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// MatchStatus is the outcome of a resolution attempt.
type MatchStatus string

const (
	MatchFound        MatchStatus = "found"
	MatchAmbiguous    MatchStatus = "ambiguous"
	MatchNotFound     MatchStatus = "not_found"
	MatchEmptyCatalog MatchStatus = "empty_catalog"
)

// Resolution is the result of mapping a free-text phrase to catalog entries.
// Item is set only for MatchFound; Candidates only for MatchAmbiguous.
type Resolution struct {
	Status     MatchStatus
	Item       *Item
	Candidates []Item
}

// DefaultFuzzyThreshold is the minimum token-set score (0-100) for the fuzzy
// stage. Calibrated so near-duplicates ("pizza americana" vs "pizza americana
// grande") both surface while unrelated items do not.
const DefaultFuzzyThreshold = 80

// Resolver maps free-text phrases to canonical catalog entries using three
// stages: exact name/alias match, keyword-subset match, token-set fuzzy
// match. Each stage runs only if the previous produced nothing.
type Resolver struct {
	catalog   *Catalog
	threshold int
}

type ResolverOption func(*Resolver)

func WithFuzzyThreshold(threshold int) ResolverOption {
	return func(r *Resolver) {
		if threshold > 0 && threshold <= 100 {
			r.threshold = threshold
		}
	}
}

func NewResolver(catalog *Catalog, opts ...ResolverOption) *Resolver {
	r := &Resolver{catalog: catalog, threshold: DefaultFuzzyThreshold}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Catalog returns the catalog handle the resolver reads from.
func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}

// Resolve runs the staged lookup over all available items.
func (r *Resolver) Resolve(query string) Resolution {
	return r.resolve(query, "")
}

// ResolveCategory runs the staged lookup restricted to one category.
func (r *Resolver) ResolveCategory(query, category string) Resolution {
	return r.resolve(query, category)
}

func (r *Resolver) resolve(query, category string) Resolution {
	candidates := r.catalog.Available(category)
	if len(candidates) == 0 {
		return Resolution{Status: MatchEmptyCatalog}
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Resolution{Status: MatchNotFound}
	}

	if item, ok := exactMatch(q, candidates); ok {
		return Resolution{Status: MatchFound, Item: item}
	}
	if res, ok := keywordSubsetMatch(q, candidates); ok {
		return res
	}
	return r.fuzzyMatch(q, candidates)
}

// exactMatch compares the query against canonical names and aliases,
// case-insensitively. First hit wins; canonical names are unique so ties do
// not occur here.
func exactMatch(q string, candidates []Item) (*Item, bool) {
	for i := range candidates {
		it := &candidates[i]
		if strings.ToLower(strings.TrimSpace(it.Name)) == q {
			return it, true
		}
		for _, alias := range it.AliasList() {
			if alias == q {
				return it, true
			}
		}
	}
	return nil, false
}

// keywordSubsetMatch selects items whose name contains every query token.
// One hit is a Found; several are an Ambiguous (size/variant
// disambiguation).
func keywordSubsetMatch(q string, candidates []Item) (Resolution, bool) {
	queryTokens := strings.Fields(q)
	if len(queryTokens) == 0 {
		return Resolution{}, false
	}

	var matches []Item
	for _, it := range candidates {
		nameTokens := map[string]struct{}{}
		for _, tok := range strings.Fields(strings.ToLower(it.Name)) {
			nameTokens[tok] = struct{}{}
		}
		all := true
		for _, tok := range queryTokens {
			if _, ok := nameTokens[tok]; !ok {
				all = false
				break
			}
		}
		if all {
			matches = append(matches, it)
		}
	}

	switch len(matches) {
	case 0:
		return Resolution{}, false
	case 1:
		return Resolution{Status: MatchFound, Item: &matches[0]}, true
	default:
		return Resolution{Status: MatchAmbiguous, Candidates: matches}, true
	}
}

// fuzzyMatch scores the query against every candidate name with a token-set
// ratio and keeps only scores at or above the threshold.
func (r *Resolver) fuzzyMatch(q string, candidates []Item) Resolution {
	var matches []Item
	for _, it := range candidates {
		score := fuzzy.TokenSetRatio(q, strings.ToLower(it.Name))
		if score >= r.threshold {
			matches = append(matches, it)
		}
	}

	switch len(matches) {
	case 0:
		return Resolution{Status: MatchNotFound}
	case 1:
		return Resolution{Status: MatchFound, Item: &matches[0]}
	default:
		return Resolution{Status: MatchAmbiguous, Candidates: matches}
	}
}
