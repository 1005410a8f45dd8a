package subquery

import (
	"sort"
	"strings"
	"unicode"
)

const maxVariants = 5

// stopWords are function words stripped before topic extraction. Verbs like
// "find" and "show" are noise here even though they matter elsewhere: the
// corpus is indexed by subject, not by the user's phrasing.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "being": {}, "do": {}, "does": {}, "did": {},
	"what": {}, "whats": {}, "when": {}, "where": {}, "who": {}, "whom": {},
	"which": {}, "why": {}, "how": {}, "i": {}, "me": {}, "my": {}, "mine": {},
	"we": {}, "us": {}, "our": {}, "you": {}, "your": {}, "he": {}, "she": {},
	"it": {}, "its": {}, "they": {}, "them": {}, "their": {}, "of": {},
	"for": {}, "to": {}, "in": {}, "on": {}, "at": {}, "by": {}, "with": {},
	"about": {}, "from": {}, "up": {}, "out": {}, "over": {}, "any": {},
	"all": {}, "and": {}, "or": {}, "but": {}, "if": {}, "then": {}, "so": {},
	"can": {}, "could": {}, "should": {}, "would": {}, "will": {}, "shall": {},
	"may": {}, "might": {}, "must": {}, "have": {}, "has": {}, "had": {},
	"get": {}, "got": {}, "tell": {}, "show": {}, "find": {}, "search": {},
	"look": {}, "give": {}, "need": {}, "want": {}, "please": {}, "some": {},
	"there": {}, "here": {}, "that": {}, "this": {}, "these": {}, "those": {},
	"anything": {}, "something": {}, "everything": {}, "again": {}, "just": {},
}

// temporalWords are stripped alongside stop words: the temporal resolver
// handles them, so they only dilute keyword variants.
var temporalWords = map[string]struct{}{
	"today": {}, "tomorrow": {}, "yesterday": {}, "tonight": {},
	"morning": {}, "afternoon": {}, "evening": {}, "night": {},
	"week": {}, "month": {}, "year": {}, "weekend": {},
	"next": {}, "last": {}, "upcoming": {}, "recent": {}, "recently": {},
	"monday": {}, "tuesday": {}, "wednesday": {}, "thursday": {},
	"friday": {}, "saturday": {}, "sunday": {},
}

// Generate expands a raw query into up to 5 search variants: the query
// itself, its keyword skeleton, and up to two topic variants built from the
// longest keywords. Purely local; no model call.
func Generate(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	variants := []string{query}

	keywords := Keywords(query)
	if len(keywords) >= 2 {
		variants = append(variants, strings.Join(keywords, " "))
	}

	// Topic variants: the single longest keyword (skip short ones, they are
	// too ambiguous alone) and the two longest joined in query order.
	byLen := append([]string(nil), keywords...)
	sort.SliceStable(byLen, func(i, j int) bool {
		return len(byLen[i]) > len(byLen[j])
	})
	if len(byLen) >= 1 && len(byLen[0]) >= 4 {
		variants = append(variants, byLen[0])
	}
	if len(byLen) >= 2 {
		variants = append(variants, joinInQueryOrder(keywords, byLen[0], byLen[1]))
	}

	return dedupe(variants, maxVariants)
}

// Keywords returns the query's content words in original order, lowercased,
// with stop and temporal words removed.
func Keywords(query string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})

	keywords := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.Trim(tok, "'")
		if tok == "" {
			continue
		}
		if _, ok := stopWords[tok]; ok {
			continue
		}
		if _, ok := temporalWords[tok]; ok {
			continue
		}
		keywords = append(keywords, tok)
	}
	return keywords
}

// TopicNouns collapses the query to its keyword string, used by the
// second-chance search when the first pass came back thin.
func TopicNouns(query string) string {
	return strings.Join(Keywords(query), " ")
}

func joinInQueryOrder(ordered []string, a, b string) string {
	picked := make([]string, 0, 2)
	for _, kw := range ordered {
		if kw == a || kw == b {
			picked = append(picked, kw)
		}
		if len(picked) == 2 {
			break
		}
	}
	return strings.Join(picked, " ")
}

func dedupe(variants []string, max int) []string {
	seen := make(map[string]struct{}, len(variants))
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
		if len(out) == max {
			break
		}
	}
	return out
}
