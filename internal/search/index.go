// Package search ranks call graph functions against free-text queries.
package search

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/mcgtools/mcg/internal/graph"
)

var (
	tokenPattern      = regexp.MustCompile(`[a-z0-9_]+`)
	identifierPattern = regexp.MustCompile(`[A-Za-z0-9_]+`)
)

type Document struct {
	ID     graph.NodeID   `json:"id"`
	Name   string         `json:"name"`
	Origin string         `json:"origin,omitempty"`
	Length int            `json:"length"`
	Terms  map[string]int `json:"terms"`
}

type Index struct {
	DocumentCount int            `json:"document_count"`
	AvgDocLength  float64        `json:"avg_doc_length"`
	DocFreq       map[string]int `json:"doc_freq"`
	Documents     []Document     `json:"documents"`
}

type Result struct {
	ID    graph.NodeID
	Score float64
}

// Build indexes every node of g by name, origin and metadata keys.
func Build(g *graph.Callgraph) *Index {
	if g == nil {
		return &Index{DocFreq: map[string]int{}}
	}

	documents := make([]Document, 0, g.Len())
	docFreq := make(map[string]int)
	totalLength := 0

	for node := range g.All() {
		keys := make([]string, 0, len(node.MetaData()))
		for key := range node.MetaData() {
			keys = append(keys, key)
		}
		terms := buildTerms(node.FunctionName(), node.Origin(), strings.Join(keys, " "))
		length := 0
		for _, count := range terms {
			length += count
		}
		if length == 0 {
			continue
		}

		documents = append(documents, Document{
			ID:     node.ID(),
			Name:   node.FunctionName(),
			Origin: node.Origin(),
			Length: length,
			Terms:  terms,
		})
		totalLength += length

		for term := range terms {
			docFreq[term]++
		}
	}

	avgDocLength := 0.0
	if len(documents) > 0 {
		avgDocLength = float64(totalLength) / float64(len(documents))
	}

	return &Index{
		DocumentCount: len(documents),
		AvgDocLength:  avgDocLength,
		DocFreq:       docFreq,
		Documents:     documents,
	}
}

// Search scores documents with BM25. When nothing matches, names within a
// small edit distance of the query are returned instead.
func Search(index *Index, query string, limit int) []Result {
	if index == nil || len(index.Documents) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}

	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}

	seenTerms := make(map[string]bool, len(queryTerms))
	uniqueTerms := make([]string, 0, len(queryTerms))
	for _, term := range queryTerms {
		if seenTerms[term] {
			continue
		}
		seenTerms[term] = true
		uniqueTerms = append(uniqueTerms, term)
	}

	k1 := 1.2
	b := 0.75
	n := float64(index.DocumentCount)
	avgLen := index.AvgDocLength
	if avgLen <= 0 {
		avgLen = 1
	}

	results := make([]Result, 0)
	for _, doc := range index.Documents {
		score := 0.0
		docLen := float64(doc.Length)
		for _, term := range uniqueTerms {
			tf := float64(doc.Terms[term])
			if tf <= 0 {
				continue
			}
			df := float64(index.DocFreq[term])
			if df <= 0 {
				continue
			}
			idf := math.Log(1.0 + ((n - df + 0.5) / (df + 0.5)))
			numerator := tf * (k1 + 1.0)
			denominator := tf + k1*(1.0-b+b*(docLen/avgLen))
			score += idf * (numerator / denominator)
		}
		if score > 0 {
			results = append(results, Result{ID: doc.ID, Score: score})
		}
	}

	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	if len(results) == 0 {
		return fuzzyNameFallback(index.Documents, query, limit)
	}
	return results
}

func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
}

func buildTerms(name, origin, metaKeys string) map[string]int {
	terms := make(map[string]int)
	addWeighted(terms, name, 4)
	addWeighted(terms, origin, 2)
	addWeighted(terms, metaKeys, 1)
	return terms
}

func addWeighted(terms map[string]int, value string, weight int) {
	for _, token := range tokenize(value) {
		terms[token] += weight
	}
}

// tokenize lowercases value and splits it into words. Identifiers such as
// parseDirectory or Parse_directory also yield their camel case and
// underscore parts.
func tokenize(value string) []string {
	if value == "" {
		return nil
	}
	tokens := tokenPattern.FindAllString(strings.ToLower(value), -1)
	for _, word := range identifierPattern.FindAllString(value, -1) {
		parts := splitIdentifier(word)
		if len(parts) < 2 {
			continue
		}
		tokens = append(tokens, parts...)
	}
	return tokens
}

func splitIdentifier(word string) []string {
	var parts []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			parts = append(parts, strings.ToLower(string(current)))
			current = current[:0]
		}
	}
	runes := []rune(word)
	for i, r := range runes {
		switch {
		case r == '_':
			flush()
			continue
		case unicode.IsUpper(r) && i > 0 && (unicode.IsLower(runes[i-1]) ||
			(i+1 < len(runes) && unicode.IsUpper(runes[i-1]) && unicode.IsLower(runes[i+1]))):
			flush()
		}
		current = append(current, r)
	}
	flush()
	return parts
}

func fuzzyNameFallback(documents []Document, query string, limit int) []Result {
	needle := normalizeForFuzzy(query)
	if needle == "" {
		return nil
	}

	results := make([]Result, 0)
	for _, doc := range documents {
		candidate := normalizeForFuzzy(unqualified(doc.Name))
		if candidate == "" {
			continue
		}
		distance := levenshteinDistance(needle, candidate)
		threshold := max(len(candidate)/3, 2)
		if distance > threshold {
			continue
		}
		results = append(results, Result{ID: doc.ID, Score: 1.0 / float64(1+distance)})
	}

	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// unqualified strips C++ scopes, so ns::Widget::draw is compared as draw.
func unqualified(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return name[i+2:]
	}
	return name
}

func normalizeForFuzzy(value string) string {
	return strings.Join(tokenPattern.FindAllString(strings.ToLower(value), -1), "")
}

func levenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		current := make([]int, len(b)+1)
		current[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			current[j] = min(current[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev = current
	}

	return prev[len(b)]
}
